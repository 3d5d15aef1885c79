// Package aggregator reduces ledger rows and transaction records to one
// total per calendar day.
package aggregator

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"golang-ledger-reconciler/internal/models"
)

// Aggregate sums each side per date over the union of dates of both sides,
// sorted ascending. A date missing on one side has a zero total there.
// Fee lines are ignored.
func Aggregate(records []models.TransactionRecord, ledger []models.LedgerRow) []models.DailyTotal {
	byDate := make(map[string]*models.DailyTotal)
	get := func(d time.Time) *models.DailyTotal {
		d = models.Day(d)
		key := models.DateKey(d)
		total, ok := byDate[key]
		if !ok {
			total = &models.DailyTotal{Date: d, LedgerGross: decimal.Zero, ProcessorGross: decimal.Zero}
			byDate[key] = total
		}
		return total
	}

	for _, row := range ledger {
		t := get(row.Date)
		t.LedgerGross = t.LedgerGross.Add(row.Value)
	}
	for _, rec := range records {
		if !rec.IsSale() {
			continue
		}
		t := get(rec.Date)
		t.ProcessorGross = t.ProcessorGross.Add(rec.Gross)
	}

	out := make([]models.DailyTotal, 0, len(byDate))
	for _, t := range byDate {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

// FeeTotal is the fee amount booked on one day.
type FeeTotal struct {
	Date   time.Time
	Amount decimal.Decimal
}

// SumFeesByDate totals fee entries per day, sorted ascending.
func SumFeesByDate(fees []models.FeeEntry) []FeeTotal {
	byDate := make(map[string]*FeeTotal)
	for _, f := range fees {
		d := models.Day(f.Date)
		key := models.DateKey(d)
		t, ok := byDate[key]
		if !ok {
			t = &FeeTotal{Date: d, Amount: decimal.Zero}
			byDate[key] = t
		}
		t.Amount = t.Amount.Add(f.Amount)
	}

	out := make([]FeeTotal, 0, len(byDate))
	for _, t := range byDate {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

// Totals is the sum of every day on each side.
type Totals struct {
	Ledger    decimal.Decimal
	Processor decimal.Decimal
}

// Sum returns the run totals of the daily rows.
func Sum(totals []models.DailyTotal) Totals {
	s := Totals{Ledger: decimal.Zero, Processor: decimal.Zero}
	for _, t := range totals {
		s.Ledger = s.Ledger.Add(t.LedgerGross)
		s.Processor = s.Processor.Add(t.ProcessorGross)
	}
	return s
}
