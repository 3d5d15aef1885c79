package journal

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"golang-ledger-reconciler/internal/models"
	"golang-ledger-reconciler/internal/money"
)

// ERPHeader is the import layout expected by the accounting system.
var ERPHeader = []string{
	"Lanc. Automatico", "DEBITO", "CREDITO", "Data Mov.", "VALOR", "CODIGO HISTORICO",
	"COMPL. HISTORICO", "CCDEBITO", "CCCREDITO", "Nr. Doc.", "COMPLEMENTO",
}

const utf8BOM = "\ufeff"

// WriteERP writes entries as the ERP import file: UTF-8 with BOM,
// semicolon-separated, day-first dates and comma decimals.
func WriteERP(w io.Writer, entries []models.JournalEntry) error {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return fmt.Errorf("writing BOM: %w", err)
	}

	cw := csv.NewWriter(w)
	cw.Comma = ';'

	if err := cw.Write(ERPHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, e := range entries {
		if err := cw.Write(MarshalERP(e)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalERP converts an entry to its eleven ERP fields.
func MarshalERP(e models.JournalEntry) []string {
	return []string{
		"",
		strconv.Itoa(e.DebitAccount),
		strconv.Itoa(e.CreditAccount),
		e.Date.Format(models.BRDateLayout),
		money.Format(e.Amount),
		strconv.Itoa(e.HistoryCode),
		e.Description,
		"",
		"",
		"",
		"",
	}
}
