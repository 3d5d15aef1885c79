package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the canonical calendar-date rendering used in keys and JSON.
const DateLayout = "2006-01-02"

// BRDateLayout is the day-first rendering used in the ERP and consolidated files.
const BRDateLayout = "02/01/2006"

// RecordKind tells sale lines from fee-only lines of the consolidated export.
type RecordKind string

const (
	KindSale RecordKind = ""
	KindFee  RecordKind = "fee"
)

// TransactionRecord is one settled processor row after normalization. Fee
// lines carry a zero gross and a negative net and never count as sales.
type TransactionRecord struct {
	Date        time.Time       `json:"date"`
	Gross       decimal.Decimal `json:"gross"`
	Fee         decimal.Decimal `json:"fee"`
	Net         decimal.Decimal `json:"net"`
	Source      string          `json:"source"`
	Operator    string          `json:"operator,omitempty"`
	Status      string          `json:"status,omitempty"`
	Brand       string          `json:"brand,omitempty"`
	CardID      string          `json:"card_id,omitempty"`
	Description string          `json:"description,omitempty"`
	Kind        RecordKind      `json:"kind,omitempty"`
}

// IsSale reports whether the record is a sale rather than a fee line.
func (r *TransactionRecord) IsSale() bool {
	return r.Kind != KindFee
}

// CountSales returns how many records are sales.
func CountSales(records []TransactionRecord) int {
	n := 0
	for i := range records {
		if records[i].IsSale() {
			n++
		}
	}
	return n
}

// Validate performs basic validation on the TransactionRecord
func (r *TransactionRecord) Validate() error {
	if r.Date.IsZero() {
		return fmt.Errorf("transaction date cannot be zero")
	}
	if r.Fee.IsNegative() {
		return fmt.Errorf("transaction fee cannot be negative: %s", r.Fee)
	}
	if strings.TrimSpace(r.Source) == "" {
		return fmt.Errorf("transaction source cannot be empty")
	}
	return nil
}

// String returns a string representation of the TransactionRecord
func (r *TransactionRecord) String() string {
	return fmt.Sprintf("TransactionRecord{Date: %s, Gross: %s, Fee: %s, Source: %s}",
		r.Date.Format(DateLayout), r.Gross, r.Fee, r.Source)
}

// LedgerRow is one dated revenue amount from the general ledger.
type LedgerRow struct {
	Date  time.Time       `json:"date"`
	Value decimal.Decimal `json:"value"`
}

// DailyTotal is the per-day sum of each side of the reconciliation.
type DailyTotal struct {
	Date           time.Time       `json:"date"`
	LedgerGross    decimal.Decimal `json:"ledger_gross"`
	ProcessorGross decimal.Decimal `json:"processor_gross"`
}

// FeeEntry is a processor fee to be posted as an expense.
type FeeEntry struct {
	Date   time.Time       `json:"date"`
	Amount decimal.Decimal `json:"amount"`
	Origin string          `json:"origin"`
	Note   string          `json:"note,omitempty"`
}

// Validate performs basic validation on the FeeEntry
func (f *FeeEntry) Validate() error {
	if f.Date.IsZero() {
		return fmt.Errorf("fee date cannot be zero")
	}
	if !f.Amount.IsPositive() {
		return fmt.Errorf("fee amount must be positive, got %s", f.Amount)
	}
	if strings.TrimSpace(f.Origin) == "" {
		return fmt.Errorf("fee origin cannot be empty")
	}
	return nil
}

// MarshalJSON renders the date as a calendar date and the amount as a string
func (f FeeEntry) MarshalJSON() ([]byte, error) {
	type Alias FeeEntry
	return json.Marshal(&struct {
		Date   string `json:"date"`
		Amount string `json:"amount"`
		Alias
	}{
		Date:   f.Date.Format(DateLayout),
		Amount: f.Amount.StringFixed(2),
		Alias:  Alias(f),
	})
}

// EntryKind tells what produced a journal entry.
type EntryKind string

const (
	// EntryKindShortfall is a cash-sale adjustment for unexplained ledger revenue
	EntryKindShortfall EntryKind = "shortfall"
	// EntryKindFee is a processor fee expense
	EntryKindFee EntryKind = "fee"
)

// JournalEntry is one debit/credit posting for the ERP import file.
type JournalEntry struct {
	DebitAccount  int             `json:"debit_account"`
	CreditAccount int             `json:"credit_account"`
	Date          time.Time       `json:"date"`
	Amount        decimal.Decimal `json:"amount"`
	HistoryCode   int             `json:"history_code"`
	Description   string          `json:"description"`
	Kind          EntryKind       `json:"kind"`
}

// String returns a string representation of the JournalEntry
func (e *JournalEntry) String() string {
	return fmt.Sprintf("JournalEntry{D: %d, C: %d, Date: %s, Amount: %s, Hist: %d, %q}",
		e.DebitAccount, e.CreditAccount, e.Date.Format(DateLayout), e.Amount.StringFixed(2), e.HistoryCode, e.Description)
}

// MarshalJSON renders the date as a calendar date and the amount as a string
func (e JournalEntry) MarshalJSON() ([]byte, error) {
	type Alias JournalEntry
	return json.Marshal(&struct {
		Date   string `json:"date"`
		Amount string `json:"amount"`
		Alias
	}{
		Date:   e.Date.Format(DateLayout),
		Amount: e.Amount.StringFixed(2),
		Alias:  Alias(e),
	})
}

// ComparisonRow is one line of the consolidated comparison table.
// A negative Shortfall means the processors explain more than the ledger
// recorded; it is reported but never journaled.
type ComparisonRow struct {
	Date              time.Time       `json:"date"`
	LedgerGross       decimal.Decimal `json:"ledger_gross"`
	ProcessorGross    decimal.Decimal `json:"processor_gross"`
	AdjustedProcessor decimal.Decimal `json:"adjusted_processor"`
	Shortfall         decimal.Decimal `json:"shortfall"`
}

// MarshalJSON renders the date as a calendar date and amounts with two decimals
func (c ComparisonRow) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		Date              string `json:"date"`
		LedgerGross       string `json:"ledger_gross"`
		ProcessorGross    string `json:"processor_gross"`
		AdjustedProcessor string `json:"adjusted_processor"`
		Shortfall         string `json:"shortfall"`
	}{
		Date:              c.Date.Format(DateLayout),
		LedgerGross:       c.LedgerGross.StringFixed(2),
		ProcessorGross:    c.ProcessorGross.StringFixed(2),
		AdjustedProcessor: c.AdjustedProcessor.StringFixed(2),
		Shortfall:         c.Shortfall.StringFixed(2),
	})
}

// RedistributionPolicy selects how excess processor amounts move between days.
type RedistributionPolicy string

const (
	PolicyNone        RedistributionPolicy = "none"
	PolicyNextDay     RedistributionPolicy = "next_day"
	PolicyPreviousDay RedistributionPolicy = "previous_day"
)

// String returns the string representation of RedistributionPolicy
func (p RedistributionPolicy) String() string {
	return string(p)
}

// IsValid checks if the policy is one of the known policies
func (p RedistributionPolicy) IsValid() bool {
	switch p {
	case PolicyNone, PolicyNextDay, PolicyPreviousDay:
		return true
	}
	return false
}

// ParseRedistributionPolicy accepts the policy names plus a few spellings
// used on the command line ("next", "previous", "next-day").
func ParseRedistributionPolicy(s string) (RedistributionPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(strings.ReplaceAll(s, "-", "_"))) {
	case "", "none", "off":
		return PolicyNone, nil
	case "next_day", "next":
		return PolicyNextDay, nil
	case "previous_day", "previous", "prev":
		return PolicyPreviousDay, nil
	default:
		return "", fmt.Errorf("invalid redistribution policy '%s': must be none, next_day or previous_day", s)
	}
}
