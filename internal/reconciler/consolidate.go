package reconciler

import (
	"github.com/shopspring/decimal"

	"golang-ledger-reconciler/internal/models"
)

// Consolidate joins daily totals with their redistributed processor amounts.
// adjusted must be index-aligned with totals; a missing index falls back to
// the original processor amount. Negative shortfalls are kept for review.
func Consolidate(totals []models.DailyTotal, adjusted []decimal.Decimal) []models.ComparisonRow {
	rows := make([]models.ComparisonRow, len(totals))
	for i, t := range totals {
		adj := t.ProcessorGross
		if i < len(adjusted) {
			adj = adjusted[i]
		}
		rows[i] = models.ComparisonRow{
			Date:              t.Date,
			LedgerGross:       t.LedgerGross,
			ProcessorGross:    t.ProcessorGross,
			AdjustedProcessor: adj,
			Shortfall:         t.LedgerGross.Sub(adj),
		}
	}
	return rows
}
