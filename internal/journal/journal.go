// Package journal turns reconciled shortfalls and processor fees into ERP
// journal entries and writes the ERP import file.
package journal

import (
	"fmt"
	"sort"

	"golang-ledger-reconciler/internal/models"
	"golang-ledger-reconciler/internal/money"
)

// Accounts are the chart-of-accounts codes used when posting.
type Accounts struct {
	CashDebit   int `mapstructure:"cash_debit"`
	FeeDebit    int `mapstructure:"fee_debit"`
	Clearing    int `mapstructure:"clearing"`
	CashHistory int `mapstructure:"cash_history"`
	FeeHistory  int `mapstructure:"fee_history"`
}

// DefaultAccounts returns the codes of the reference chart of accounts.
func DefaultAccounts() Accounts {
	return Accounts{
		CashDebit:   5,
		FeeDebit:    441,
		Clearing:    1071,
		CashHistory: 31,
		FeeHistory:  201,
	}
}

// Validate checks that every code is positive
func (a Accounts) Validate() error {
	codes := map[string]int{
		"cash_debit":   a.CashDebit,
		"fee_debit":    a.FeeDebit,
		"clearing":     a.Clearing,
		"cash_history": a.CashHistory,
		"fee_history":  a.FeeHistory,
	}
	for _, name := range []string{"cash_debit", "fee_debit", "clearing", "cash_history", "fee_history"} {
		if codes[name] <= 0 {
			return fmt.Errorf("account code %s must be positive, got %d", name, codes[name])
		}
	}
	return nil
}

// Emit builds the journal: one cash-sale entry per day whose shortfall is
// above one cent, in ascending date order, then one expense entry per fee
// above one cent, in input order. Amounts are rounded to cents.
func Emit(rows []models.ComparisonRow, fees []models.FeeEntry, accts Accounts) []models.JournalEntry {
	sorted := make([]models.ComparisonRow, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	var entries []models.JournalEntry
	for _, row := range sorted {
		if !money.AboveNoise(row.Shortfall) {
			continue
		}
		entries = append(entries, models.JournalEntry{
			DebitAccount:  accts.CashDebit,
			CreditAccount: accts.Clearing,
			Date:          row.Date,
			Amount:        row.Shortfall.Round(2),
			HistoryCode:   accts.CashHistory,
			Description:   "Venda a vista - ajuste conciliacao " + row.Date.Format(models.BRDateLayout),
			Kind:          models.EntryKindShortfall,
		})
	}

	for _, fee := range fees {
		if !money.AboveNoise(fee.Amount) {
			continue
		}
		entries = append(entries, models.JournalEntry{
			DebitAccount:  accts.FeeDebit,
			CreditAccount: accts.Clearing,
			Date:          fee.Date,
			Amount:        fee.Amount.Round(2),
			HistoryCode:   accts.FeeHistory,
			Description:   feeDescription(fee),
			Kind:          models.EntryKindFee,
		})
	}
	return entries
}

func feeDescription(fee models.FeeEntry) string {
	if fee.Note != "" {
		return "Despesa " + fee.Origin + " - " + fee.Note
	}
	return "Despesa " + fee.Origin
}
