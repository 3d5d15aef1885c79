package extractor

import (
	"golang-ledger-reconciler/internal/models"
	"golang-ledger-reconciler/internal/money"
	"golang-ledger-reconciler/internal/parsers"
	"golang-ledger-reconciler/pkg/errors"
)

// LedgerRule names the ledger's date and value columns.
type LedgerRule struct {
	Date    parsers.Synonyms `mapstructure:"date"`
	Value   parsers.Synonyms `mapstructure:"value"`
	Lenient bool             `mapstructure:"lenient"`
}

// DefaultLedgerRule returns the synonyms of common ledger exports.
func DefaultLedgerRule() LedgerRule {
	return LedgerRule{
		Date: parsers.Synonyms{
			"data", "data mov.", "data do lançamento", "data de lançamento", "data lançamento",
			"dt. lançamento", "data da venda", "date",
		},
		Value: parsers.Synonyms{
			"valor", "valor do lançamento", "valor total", "valor bruto", "faturamento", "total", "amount", "value",
		},
	}
}

// LedgerStats counts what ExtractLedger kept.
type LedgerStats struct {
	RowsRead    int
	RowsKept    int
	InvalidDate int
}

// ExtractLedger reads dated values from the ledger. A missing date or value
// column is fatal for the run; rows with unparseable dates are dropped.
func ExtractLedger(t *parsers.RawTable, rule LedgerRule) ([]models.LedgerRow, LedgerStats, error) {
	stats := LedgerStats{RowsRead: len(t.Rows)}

	dateCol, ok := parsers.Resolve(t, rule.Date, rule.Lenient)
	if !ok {
		closest, _ := parsers.SuggestColumn(t, rule.Date)
		return nil, stats, errors.LedgerColumnMissingError(t.Name, "date", rule.Date, closest)
	}
	valueCol, ok := parsers.Resolve(t, rule.Value, rule.Lenient)
	if !ok {
		closest, _ := parsers.SuggestColumn(t, rule.Value)
		return nil, stats, errors.LedgerColumnMissingError(t.Name, "value", rule.Value, closest)
	}

	rows := make([]models.LedgerRow, 0, len(t.Rows))
	for i := range t.Rows {
		date, err := models.ParseDate(t.Cell(i, dateCol))
		if err != nil {
			stats.InvalidDate++
			continue
		}
		rows = append(rows, models.LedgerRow{
			Date:  date,
			Value: money.Normalize(t.Cell(i, valueCol), false),
		})
	}
	stats.RowsKept = len(rows)
	return rows, stats, nil
}
