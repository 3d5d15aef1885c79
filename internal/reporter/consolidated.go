package reporter

import (
	"encoding/csv"
	"fmt"
	"io"

	"golang-ledger-reconciler/internal/models"
	"golang-ledger-reconciler/internal/money"
)

// ConsolidatedHeader is the layout of the consolidated transaction export.
var ConsolidatedHeader = []string{
	"Data", "Operadora", "Bandeira", "Valor_Bruto", "Despesas", "Valor_Liquido", "Numero_Cartao", "Descricao",
}

const utf8BOM = "\ufeff"

// WriteConsolidatedTransactions writes every sale and fee line as one
// semicolon-separated line, UTF-8 with BOM, in the order given.
func WriteConsolidatedTransactions(w io.Writer, records []models.TransactionRecord) error {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return fmt.Errorf("writing BOM: %w", err)
	}

	cw := csv.NewWriter(w)
	cw.Comma = ';'
	if err := cw.Write(ConsolidatedHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, r := range records {
		operator := r.Operator
		if operator == "" {
			operator = r.Source
		}
		row := []string{
			r.Date.Format(models.BRDateLayout),
			operator,
			r.Brand,
			money.Format(r.Gross),
			money.Format(r.Fee),
			money.Format(r.Net),
			r.CardID,
			r.Description,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing record %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
