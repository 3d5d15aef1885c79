// Package redistribution moves excess processor amounts to adjacent days to
// absorb settlement-date skew between processors and the ledger.
package redistribution

import (
	"github.com/shopspring/decimal"

	"golang-ledger-reconciler/internal/models"
)

// Options bound the cascade.
type Options struct {
	// MaxCascade is the most days an amount may be pushed across, counted
	// per amount from the day it was booked. Zero means unbounded. An
	// amount that reaches the bound stays on the day it arrived at, which
	// is then not clamped.
	MaxCascade int `mapstructure:"max_cascade"`
}

// Redistribute returns the adjusted processor total of every day, in input
// order. totals must be sorted ascending by date and is not modified.
//
// next_day walks forward: a day whose processor total exceeds its ledger
// total is clamped to the ledger total and the excess is added to the
// following day. previous_day is the mirror image. The sum of the adjusted
// totals always equals the sum of the original processor totals.
func Redistribute(totals []models.DailyTotal, policy models.RedistributionPolicy, opts Options) []decimal.Decimal {
	adjusted := make([]decimal.Decimal, len(totals))
	for i, t := range totals {
		adjusted[i] = t.ProcessorGross
	}
	if len(totals) < 2 {
		return adjusted
	}

	switch policy {
	case models.PolicyNextDay:
		cascade(totals, adjusted, 0, len(totals)-1, 1, opts.MaxCascade)
	case models.PolicyPreviousDay:
		cascade(totals, adjusted, len(totals)-1, 0, -1, opts.MaxCascade)
	}
	return adjusted
}

// carry is an amount in transit and the number of days it has moved.
type carry struct {
	amount decimal.Decimal
	hops   int
}

// cascade walks from start to end in steps of dir. Each day's ledger total
// absorbs the oldest amounts first, so the excess pushed onward is made of
// the youngest ones; an amount that has already moved maxHops days stays.
// The end day keeps whatever reaches it.
func cascade(totals []models.DailyTotal, adjusted []decimal.Decimal, start, end, dir, maxHops int) {
	var incoming []carry // youngest first
	for i := start; ; i += dir {
		total := adjusted[i]
		for _, c := range incoming {
			total = total.Add(c.amount)
		}
		ledger := totals[i].LedgerGross
		if i == end || !total.GreaterThan(ledger) {
			adjusted[i] = total
			incoming = nil
			if i == end {
				return
			}
			continue
		}

		excess := total.Sub(ledger)
		pieces := append([]carry{{amount: adjusted[i]}}, incoming...)
		takes := make([]decimal.Decimal, len(pieces))
		for k, p := range pieces {
			take := decimal.Min(excess, decimal.Max(p.amount, decimal.Zero))
			takes[k] = take
			excess = excess.Sub(take)
		}
		// Only a negative ledger total leaves excess unassigned.
		takes[0] = takes[0].Add(excess)

		kept := ledger
		var outgoing []carry
		for k, p := range pieces {
			if !takes[k].IsPositive() {
				continue
			}
			if maxHops > 0 && p.hops >= maxHops {
				kept = kept.Add(takes[k])
				continue
			}
			outgoing = append(outgoing, carry{amount: takes[k], hops: p.hops + 1})
		}
		adjusted[i] = kept
		incoming = outgoing
	}
}
