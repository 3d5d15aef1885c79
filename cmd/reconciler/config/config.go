// Package config turns viper settings and command-line values into the
// configuration structs of the reconciliation packages.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"golang-ledger-reconciler/internal/extractor"
	"golang-ledger-reconciler/internal/journal"
	"golang-ledger-reconciler/internal/models"
	"golang-ledger-reconciler/internal/parsers"
	"golang-ledger-reconciler/internal/reconciler"
	"golang-ledger-reconciler/internal/reporter"
	"golang-ledger-reconciler/pkg/errors"
)

// Settings is the part of a run that comes from the config file or the
// environment rather than from flags.
type Settings struct {
	Accounts  journal.Accounts     `mapstructure:"accounts"`
	Operators []*extractor.Rule    `mapstructure:"operators"`
	Loader    LoaderSettings       `mapstructure:"loader"`
	Ledger    extractor.LedgerRule `mapstructure:"ledger"`
}

// LoaderSettings overrides the loader's header discovery.
type LoaderSettings struct {
	ScanWindow     int      `mapstructure:"scan_window"`
	MinHeaderCells int      `mapstructure:"min_header_cells"`
	HeaderKeywords []string `mapstructure:"header_keywords"`
	FooterMarkers  []string `mapstructure:"footer_markers"`
}

// RunOptions are the flag-driven switches of one reconcile invocation.
type RunOptions struct {
	MaxCascade      int
	ExcludeVouchers bool
	VoucherKeywords []string
	LenientColumns  bool
	Concurrency     int
}

// Load reads Settings from v. Keys left out keep their defaults.
func Load(v *viper.Viper) (*Settings, error) {
	if v == nil {
		v = viper.GetViper()
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "config", v.ConfigFileUsed(), err).
			WithSuggestion("check the config file syntax and key names")
	}
	settings.applyDefaults()

	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

// applyDefaults fills zero values field by field so a partial section in the
// config file only overrides what it names.
func (s *Settings) applyDefaults() {
	accts := journal.DefaultAccounts()
	if s.Accounts.CashDebit == 0 {
		s.Accounts.CashDebit = accts.CashDebit
	}
	if s.Accounts.FeeDebit == 0 {
		s.Accounts.FeeDebit = accts.FeeDebit
	}
	if s.Accounts.Clearing == 0 {
		s.Accounts.Clearing = accts.Clearing
	}
	if s.Accounts.CashHistory == 0 {
		s.Accounts.CashHistory = accts.CashHistory
	}
	if s.Accounts.FeeHistory == 0 {
		s.Accounts.FeeHistory = accts.FeeHistory
	}

	ledger := extractor.DefaultLedgerRule()
	if len(s.Ledger.Date) == 0 {
		s.Ledger.Date = ledger.Date
	}
	if len(s.Ledger.Value) == 0 {
		s.Ledger.Value = ledger.Value
	}
}

// Validate checks the settings and reports the first problem as a
// configuration error.
func (s *Settings) Validate() error {
	if err := s.Accounts.Validate(); err != nil {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "accounts", s.Accounts, err)
	}
	if s.Loader.ScanWindow < 0 {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "loader.scan_window", s.Loader.ScanWindow,
			fmt.Errorf("scan window cannot be negative"))
	}
	if s.Loader.MinHeaderCells < 0 {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "loader.min_header_cells", s.Loader.MinHeaderCells,
			fmt.Errorf("min header cells cannot be negative"))
	}
	for i, rule := range s.Operators {
		if rule == nil || strings.TrimSpace(rule.ID) == "" {
			return errors.ConfigurationError(errors.CodeMissingConfig, fmt.Sprintf("operators[%d].id", i), nil,
				fmt.Errorf("every configured operator needs an id"))
		}
	}
	return nil
}

// CreateRegistry returns the built-in operators plus the configured ones.
// A configured operator with a built-in id replaces it.
func (s *Settings) CreateRegistry() (*extractor.Registry, error) {
	registry := extractor.DefaultRegistry()
	for _, rule := range s.Operators {
		if err := registry.Override(rule); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// CreateLoaderConfig applies the loader overrides to the defaults.
func (s *Settings) CreateLoaderConfig() *parsers.LoaderConfig {
	config := parsers.DefaultLoaderConfig()
	if s.Loader.ScanWindow > 0 {
		config.ScanWindow = s.Loader.ScanWindow
	}
	if s.Loader.MinHeaderCells > 0 {
		config.MinHeaderCells = s.Loader.MinHeaderCells
	}
	if len(s.Loader.HeaderKeywords) > 0 {
		config.HeaderKeywords = s.Loader.HeaderKeywords
	}
	if len(s.Loader.FooterMarkers) > 0 {
		config.FooterMarkers = s.Loader.FooterMarkers
	}
	return config
}

// CreateReconcilerConfig builds the service configuration for one run.
func CreateReconcilerConfig(s *Settings, opts RunOptions) (*reconciler.Config, error) {
	config := reconciler.DefaultConfig()
	config.Loader = s.CreateLoaderConfig()
	config.Ledger = s.Ledger
	config.Ledger.Lenient = config.Ledger.Lenient || opts.LenientColumns
	config.Accounts = s.Accounts
	config.MaxCascade = opts.MaxCascade
	config.ExcludeVouchers = opts.ExcludeVouchers
	config.VoucherKeywords = opts.VoucherKeywords
	config.LenientColumns = opts.LenientColumns
	if opts.Concurrency > 0 {
		config.MaxConcurrentFiles = opts.Concurrency
	}

	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "reconciler", nil, err)
	}
	return config, nil
}

// CreateReportConfig creates a report configuration for the specified output format
func CreateReportConfig(format string) (*reporter.ReportConfig, error) {
	config := reporter.DefaultReportConfig()
	config.Format = reporter.OutputFormat(strings.ToLower(strings.TrimSpace(format)))

	switch config.Format {
	case reporter.FormatConsole:
		config.IncludeFileStatus = true
		config.IncludeComparison = true
		config.IncludeJournal = true
	case reporter.FormatJSON:
		config.IncludeFileStatus = true
		config.IncludeComparison = true
		config.IncludeJournal = true
	case reporter.FormatCSV:
		config.CSVHeaders = true
		config.IncludeFileStatus = false
		config.IncludeJournal = false
	default:
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "output-format", format,
			fmt.Errorf("unknown output format")).
			WithSuggestion("use one of: console, json, csv")
	}
	return config, nil
}

// ParseOperatorOverrides reads "file=operator" pairs. The file part is
// matched against the input URI or its base name.
func ParseOperatorOverrides(pairs []string) (map[string]string, error) {
	overrides := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		file, op, ok := strings.Cut(pair, "=")
		file, op = strings.TrimSpace(file), strings.TrimSpace(op)
		if !ok || file == "" || op == "" {
			return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "operator", pair,
				fmt.Errorf("expected file=operator")).
				WithSuggestion("for example --operator rede_janeiro.csv=rede")
		}
		overrides[file] = strings.ToLower(op)
	}
	return overrides, nil
}

// OperatorFor returns the override for uri, if any.
func OperatorFor(overrides map[string]string, uri string) string {
	if op, ok := overrides[uri]; ok {
		return op
	}
	return overrides[filepath.Base(uri)]
}

// ParsePolicy validates a redistribution policy name.
func ParsePolicy(s string) (models.RedistributionPolicy, error) {
	policy, err := models.ParseRedistributionPolicy(s)
	if err != nil {
		return "", errors.ConfigurationError(errors.CodeInvalidConfig, "policy", s, err).
			WithSuggestion("use one of: none, next_day, previous_day")
	}
	return policy, nil
}

// ParseDateFlag parses an optional date bound. Empty yields nil.
func ParseDateFlag(name, value string) (*time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	t, err := models.ParseDate(value)
	if err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, name, value, err).
			WithSuggestion("use YYYY-MM-DD or DD/MM/YYYY")
	}
	return &t, nil
}
