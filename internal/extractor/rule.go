// Package extractor maps operator exports onto transaction records and fee
// entries. Each operator is a Rule descriptor held in a Registry; adding an
// operator is a data change.
package extractor

import (
	"fmt"
	"strings"

	"golang-ledger-reconciler/internal/parsers"
)

// Logical names a column a rule may resolve.
type Logical string

const (
	ColDate        Logical = "date"
	ColGross       Logical = "gross"
	ColNet         Logical = "net"
	ColFee         Logical = "fee"
	ColStatus      Logical = "status"
	ColBrand       Logical = "brand"
	ColCard        Logical = "card"
	ColAuth        Logical = "auth"
	ColPaymentDate Logical = "payment_date"
	ColDescription Logical = "description"
	ColInstallment Logical = "installment"
	ColWallet      Logical = "wallet"
)

// FeeStrategy selects how a file's fees are derived.
type FeeStrategy string

const (
	// FeeAuto uses the fee column when present, else gross minus net.
	FeeAuto          FeeStrategy = "auto"
	FeeColumn        FeeStrategy = "column"
	FeeGrossMinusNet FeeStrategy = "gross_minus_net"
	FeeNone          FeeStrategy = "none"
)

// FeeGranularity selects whether a file yields one fee entry or one per day.
type FeeGranularity string

const (
	// GranularityFile books the whole file's fee on its first valid date.
	GranularityFile FeeGranularity = "file"
	GranularityDay  FeeGranularity = "day"
)

// ExtraFee is an additional expense column booked with its own qualifier.
type ExtraFee struct {
	Column parsers.Synonyms `mapstructure:"column"`
	Note   string           `mapstructure:"note"`
}

// Rule describes how to extract one operator's export.
type Rule struct {
	ID          string                       `mapstructure:"id"`
	Name        string                       `mapstructure:"name"`
	Description string                       `mapstructure:"description"`
	FileHints   []string                     `mapstructure:"file_hints"`
	Columns     map[Logical]parsers.Synonyms `mapstructure:"columns"`

	StatusAllow []string `mapstructure:"status_allow"`
	StatusDeny  []string `mapstructure:"status_deny"`

	FeeStrategy    FeeStrategy    `mapstructure:"fee_strategy"`
	FeeGranularity FeeGranularity `mapstructure:"fee_granularity"`
	FeeNote        string         `mapstructure:"fee_note"`
	ExtraFees      []ExtraFee     `mapstructure:"extra_fees"`

	// GrossIsInstallment disables (card, auth) de-duplication, since every
	// installment legitimately repeats the pair.
	GrossIsInstallment bool `mapstructure:"gross_is_installment"`
	// FeesOnly rules emit fee entries only, dated by DateColumn.
	FeesOnly   bool    `mapstructure:"fees_only"`
	DateColumn Logical `mapstructure:"date_column"`
	// CardFallback is read when the card column is empty or "-".
	CardFallback Logical `mapstructure:"card_fallback"`
	Lenient      bool    `mapstructure:"lenient"`
}

// Synonyms returns the header synonyms of a logical column.
func (r *Rule) Synonyms(l Logical) parsers.Synonyms {
	return r.Columns[l]
}

// dateLogical is the column rows are dated by.
func (r *Rule) dateLogical() Logical {
	if r.DateColumn != "" {
		return r.DateColumn
	}
	return ColDate
}

// recordDescription is written on every record of the consolidated export.
func (r *Rule) recordDescription() string {
	if r.Description != "" {
		return r.Description
	}
	return "Venda " + r.Name
}

// Validate checks that the rule can be used for extraction
func (r *Rule) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("rule id cannot be empty")
	}
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("rule %s: name cannot be empty", r.ID)
	}
	if len(r.Synonyms(r.dateLogical())) == 0 {
		return fmt.Errorf("rule %s: no synonyms for date column %q", r.ID, r.dateLogical())
	}
	if len(r.Synonyms(ColGross)) == 0 {
		return fmt.Errorf("rule %s: no synonyms for gross column", r.ID)
	}
	if r.FeesOnly && len(r.Synonyms(ColNet)) == 0 {
		return fmt.Errorf("rule %s: fees-only rules need a net column", r.ID)
	}

	switch r.FeeStrategy {
	case FeeAuto, FeeColumn, FeeGrossMinusNet, FeeNone:
	default:
		return fmt.Errorf("rule %s: invalid fee strategy %q", r.ID, r.FeeStrategy)
	}
	switch r.FeeGranularity {
	case GranularityFile, GranularityDay:
	default:
		return fmt.Errorf("rule %s: invalid fee granularity %q", r.ID, r.FeeGranularity)
	}
	for _, extra := range r.ExtraFees {
		if len(extra.Column) == 0 {
			return fmt.Errorf("rule %s: extra fee %q has no column synonyms", r.ID, extra.Note)
		}
	}
	return nil
}

// applyDefaults fills fields a config-file rule may omit.
func (r *Rule) applyDefaults() {
	r.ID = strings.ToLower(strings.TrimSpace(r.ID))
	if r.Name == "" {
		r.Name = r.ID
	}
	if r.FeeStrategy == "" {
		r.FeeStrategy = FeeAuto
	}
	if r.FeeGranularity == "" {
		r.FeeGranularity = GranularityFile
	}
	if r.Columns == nil {
		r.Columns = make(map[Logical]parsers.Synonyms)
	}
}
