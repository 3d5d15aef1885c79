package reconciler

import (
	"fmt"
	"time"

	"golang-ledger-reconciler/internal/extractor"
	"golang-ledger-reconciler/internal/journal"
	"golang-ledger-reconciler/internal/models"
	"golang-ledger-reconciler/internal/parsers"
	"golang-ledger-reconciler/pkg/errors"

	"github.com/shopspring/decimal"
)

// Config holds configuration options for the reconciliation service
type Config struct {
	Loader   *parsers.LoaderConfig
	Ledger   extractor.LedgerRule
	Accounts journal.Accounts

	// MaxConcurrentFiles bounds parallel processor extraction; 1 is sequential.
	MaxConcurrentFiles int
	// MaxCascade bounds redistribution hops; 0 is unbounded.
	MaxCascade int

	ExcludeVouchers bool
	VoucherKeywords []string
	LenientColumns  bool
}

// DefaultConfig returns a default configuration for the reconciliation service
func DefaultConfig() *Config {
	return &Config{
		Loader:             parsers.DefaultLoaderConfig(),
		Ledger:             extractor.DefaultLedgerRule(),
		Accounts:           journal.DefaultAccounts(),
		MaxConcurrentFiles: 1,
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.MaxConcurrentFiles <= 0 {
		return fmt.Errorf("max concurrent files must be positive, got %d", c.MaxConcurrentFiles)
	}
	if c.MaxCascade < 0 {
		return fmt.Errorf("max cascade cannot be negative, got %d", c.MaxCascade)
	}
	if len(c.Ledger.Date) == 0 || len(c.Ledger.Value) == 0 {
		return fmt.Errorf("ledger date and value synonyms are required")
	}
	if err := c.Accounts.Validate(); err != nil {
		return err
	}
	if c.Loader != nil {
		if err := c.Loader.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Input is one named byte stream. RuleID forces an operator rule; empty
// means detect it from the name.
type Input struct {
	Name   string
	Data   []byte
	RuleID string
	// Err is a fetch failure; the input is reported as skipped.
	Err error
}

// Request represents a request for reconciliation
type Request struct {
	Ledger     Input
	Processors []Input
	Policy     models.RedistributionPolicy
	StartDate  *time.Time
	EndDate    *time.Time
}

// Validate validates the reconciliation request
func (r *Request) Validate() error {
	if r.Ledger.Name == "" {
		return errors.ValidationError(errors.CodeMissingField, "ledger", nil, nil)
	}
	for i, p := range r.Processors {
		if p.Name == "" {
			return errors.ValidationError(errors.CodeMissingField, fmt.Sprintf("processor_files[%d]", i), nil, nil)
		}
	}
	if !r.Policy.IsValid() {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "policy", r.Policy, nil)
	}
	if r.StartDate != nil && r.EndDate != nil && r.StartDate.After(*r.EndDate) {
		return errors.ValidationError(errors.CodeInvalidDate, "start_date", r.StartDate.Format(models.DateLayout),
			fmt.Errorf("start date must be before end date"))
	}
	return nil
}

// DateRange represents a date range filter
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// FileState is the outcome of one processor file.
type FileState string

const (
	FileAccepted FileState = "accepted"
	FileSkipped  FileState = "skipped"
)

// FileStatus reports what happened to one processor file.
type FileStatus struct {
	File        string                       `json:"file"`
	RuleID      string                       `json:"rule_id,omitempty"`
	Operator    string                       `json:"operator,omitempty"`
	State       FileState                    `json:"state"`
	Code        errors.ErrorCode             `json:"code,omitempty"`
	Message     string                       `json:"message,omitempty"`
	RowsRead    int                          `json:"rows_read"`
	Records     int                          `json:"records"`
	Fees        int                          `json:"fees"`
	RowsDropped map[extractor.DropReason]int `json:"rows_dropped,omitempty"`
}

// Summary provides a high-level overview of reconciliation results
type Summary struct {
	Policy models.RedistributionPolicy `json:"policy"`

	LedgerTotal    decimal.Decimal `json:"ledger_total"`
	ProcessorTotal decimal.Decimal `json:"processor_total"`
	AdjustedTotal  decimal.Decimal `json:"adjusted_total"`
	ShortfallTotal decimal.Decimal `json:"shortfall_total"`
	FeeTotal       decimal.Decimal `json:"fee_total"`

	Days              int `json:"days"`
	ShortfallDays     int `json:"shortfall_days"`
	LedgerRows        int `json:"ledger_rows"`
	LedgerRowsDropped int `json:"ledger_rows_dropped"`
	FilesAccepted     int `json:"files_accepted"`
	FilesSkipped      int `json:"files_skipped"`
	Records           int `json:"records"`
	JournalEntries    int `json:"journal_entries"`

	DateRange *DateRange `json:"date_range,omitempty"`
}

// Result contains the complete results of reconciliation
type Result struct {
	RunID       string                     `json:"run_id"`
	Summary     *Summary                   `json:"summary"`
	Comparison  []models.ComparisonRow     `json:"comparison"`
	Journal     []models.JournalEntry      `json:"journal"`
	Fees        []models.FeeEntry          `json:"fees"`
	Records     []models.TransactionRecord `json:"-"`
	Files       []FileStatus               `json:"files"`
	Diagnostics *errors.ErrorSummary       `json:"diagnostics,omitempty"`
	ProcessedAt time.Time                  `json:"processed_at"`
	Duration    time.Duration              `json:"duration"`
}

// Skipped returns the statuses of files that were not used.
func (r *Result) Skipped() []FileStatus {
	var out []FileStatus
	for _, f := range r.Files {
		if f.State == FileSkipped {
			out = append(out, f)
		}
	}
	return out
}
