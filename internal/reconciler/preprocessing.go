package reconciler

import (
	"time"

	"golang-ledger-reconciler/internal/models"
)

// dateFilter keeps calendar dates inside an inclusive range. A nil bound is open.
type dateFilter struct {
	start *time.Time
	end   *time.Time
}

func newDateFilter(start, end *time.Time) dateFilter {
	f := dateFilter{}
	if start != nil {
		d := models.Day(*start)
		f.start = &d
	}
	if end != nil {
		d := models.Day(*end)
		f.end = &d
	}
	return f
}

func (f dateFilter) active() bool {
	return f.start != nil || f.end != nil
}

func (f dateFilter) keep(date time.Time) bool {
	if f.start != nil && date.Before(*f.start) {
		return false
	}
	if f.end != nil && date.After(*f.end) {
		return false
	}
	return true
}

func (f dateFilter) ledger(rows []models.LedgerRow) []models.LedgerRow {
	if !f.active() {
		return rows
	}
	out := make([]models.LedgerRow, 0, len(rows))
	for _, r := range rows {
		if f.keep(r.Date) {
			out = append(out, r)
		}
	}
	return out
}

func (f dateFilter) records(records []models.TransactionRecord) []models.TransactionRecord {
	if !f.active() {
		return records
	}
	out := make([]models.TransactionRecord, 0, len(records))
	for _, r := range records {
		if f.keep(r.Date) {
			out = append(out, r)
		}
	}
	return out
}

func (f dateFilter) fees(fees []models.FeeEntry) []models.FeeEntry {
	if !f.active() {
		return fees
	}
	out := make([]models.FeeEntry, 0, len(fees))
	for _, fee := range fees {
		if f.keep(fee.Date) {
			out = append(out, fee)
		}
	}
	return out
}

// dateRange reports the span of the comparison rows, or nil when empty.
func dateRange(rows []models.ComparisonRow) *DateRange {
	if len(rows) == 0 {
		return nil
	}
	return &DateRange{Start: rows[0].Date, End: rows[len(rows)-1].Date}
}
