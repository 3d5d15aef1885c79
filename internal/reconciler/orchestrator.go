// Package reconciler runs one reconciliation of a ledger against a set of
// payment-processor exports.
//
// A run loads the ledger, extracts every processor file independently,
// merges the per-file results in input order, aggregates both sides per
// day, redistributes processor excess between adjacent days, consolidates
// the comparison table and emits the journal entries for the ERP.
//
// Example usage:
//
//	service, err := reconciler.NewService(reconciler.DefaultConfig(), extractor.DefaultRegistry())
//	if err != nil {
//		return err
//	}
//	result, err := service.Run(ctx, &reconciler.Request{
//		Ledger:     reconciler.Input{Name: "razao.xlsx", Data: ledger},
//		Processors: []reconciler.Input{{Name: "cielo.csv", Data: cielo}},
//		Policy:     models.PolicyNextDay,
//	})
package reconciler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"golang-ledger-reconciler/internal/aggregator"
	"golang-ledger-reconciler/internal/extractor"
	"golang-ledger-reconciler/internal/journal"
	"golang-ledger-reconciler/internal/models"
	"golang-ledger-reconciler/internal/money"
	"golang-ledger-reconciler/internal/parsers"
	"golang-ledger-reconciler/internal/redistribution"
	"golang-ledger-reconciler/pkg/errors"
	"golang-ledger-reconciler/pkg/logger"
)

// tableLoader turns raw file bytes into a table.
type tableLoader interface {
	Load(name string, data []byte) (*parsers.RawTable, error)
}

// Service orchestrates the complete reconciliation process
type Service struct {
	config   *Config
	registry *extractor.Registry
	loader   tableLoader
	logger   logger.Logger
}

// NewService creates a reconciliation service. A nil config or registry
// falls back to the defaults.
func NewService(config *Config, registry *extractor.Registry) (*Service, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if registry == nil {
		registry = extractor.DefaultRegistry()
	}
	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "reconciler", err.Error(), err)
	}

	loader, err := parsers.NewLoader(recognition(config.Loader, registry))
	if err != nil {
		return nil, err
	}

	log := logger.GetGlobalLogger().WithComponent("reconciler")
	log.WithFields(logger.Fields{
		"operators":   len(registry.List()),
		"concurrency": config.MaxConcurrentFiles,
		"max_cascade": config.MaxCascade,
	}).Debug("Created reconciliation service")

	return &Service{
		config:   config,
		registry: registry,
		loader:   loader,
		logger:   log,
	}, nil
}

// Registry returns the operator rules the service extracts with.
func (s *Service) Registry() *extractor.Registry {
	return s.registry
}

// Run performs one reconciliation. Only a ledger that cannot be read or
// that lacks its date or value column fails the run; unusable processor
// files are reported as skipped in Result.Files.
func (s *Service) Run(ctx context.Context, request *Request) (*Result, error) {
	if request == nil {
		return nil, errors.ValidationError(errors.CodeMissingField, "request", nil, nil)
	}
	req := *request
	if req.Policy == "" {
		req.Policy = models.PolicyNone
	}
	request = &req
	if err := request.Validate(); err != nil {
		return nil, err
	}

	startTime := time.Now()
	runID := uuid.NewString()
	log := s.logger.WithFields(logger.Fields{
		"run_id":     runID,
		"ledger":     request.Ledger.Name,
		"processors": len(request.Processors),
		"policy":     request.Policy,
	})
	log.Info("Starting reconciliation")

	var (
		ledger      []models.LedgerRow
		ledgerStats extractor.LedgerStats
	)
	err := logger.TimedStage("ledger", log, func() error {
		var err error
		ledger, ledgerStats, err = s.loadLedger(request.Ledger)
		return err
	})
	if err != nil {
		return nil, errors.WrapIfNeeded(err, errors.CategoryReconciliation, errors.CodeLedgerColumnMissing, "ledger could not be read")
	}
	if len(ledger) == 0 {
		log.Warn("Ledger has no dated rows; every processor day will show a negative shortfall")
	}

	progress := logger.NewFileProgress(log, len(request.Processors))
	results, err := s.processFiles(ctx, request.Processors, progress)
	if err != nil {
		return nil, err
	}
	progress.Complete()

	records, fees, statuses := merge(results)
	diag := diagnostics(results)
	if diag != nil {
		log.WithField("skipped", diag.Error()).Warn("Some processor files were skipped")
	}

	filter := newDateFilter(request.StartDate, request.EndDate)
	ledger = filter.ledger(ledger)
	records = filter.records(records)
	fees = filter.fees(fees)

	totals := aggregator.Aggregate(records, ledger)
	adjusted := redistribution.Redistribute(totals, request.Policy, redistribution.Options{MaxCascade: s.config.MaxCascade})
	comparison := Consolidate(totals, adjusted)
	entries := journal.Emit(comparison, fees, s.config.Accounts)

	result := &Result{
		RunID:       runID,
		Comparison:  comparison,
		Journal:     entries,
		Fees:        fees,
		Records:     records,
		Files:       statuses,
		Diagnostics: diag,
		ProcessedAt: startTime,
		Duration:    time.Since(startTime),
	}
	result.Summary = summarize(request.Policy, totals, comparison, fees, statuses, ledgerStats, models.CountSales(records), len(entries))

	log.WithFields(logger.Fields{
		"days":            result.Summary.Days,
		"records":         result.Summary.Records,
		"files_skipped":   result.Summary.FilesSkipped,
		"shortfall_total": result.Summary.ShortfallTotal.StringFixed(2),
		"journal_entries": result.Summary.JournalEntries,
		"duration":        result.Duration.String(),
	}).Info("Reconciliation completed")

	return result, nil
}

func summarize(
	policy models.RedistributionPolicy,
	totals []models.DailyTotal,
	comparison []models.ComparisonRow,
	fees []models.FeeEntry,
	statuses []FileStatus,
	ledgerStats extractor.LedgerStats,
	records, entries int,
) *Summary {
	sum := aggregator.Sum(totals)
	summary := &Summary{
		Policy:            policy,
		LedgerTotal:       sum.Ledger,
		ProcessorTotal:    sum.Processor,
		AdjustedTotal:     decimal.Zero,
		ShortfallTotal:    decimal.Zero,
		FeeTotal:          decimal.Zero,
		Days:              len(comparison),
		LedgerRows:        ledgerStats.RowsKept,
		LedgerRowsDropped: ledgerStats.InvalidDate,
		Records:           records,
		JournalEntries:    entries,
		DateRange:         dateRange(comparison),
	}

	for _, row := range comparison {
		summary.AdjustedTotal = summary.AdjustedTotal.Add(row.AdjustedProcessor)
		summary.ShortfallTotal = summary.ShortfallTotal.Add(row.Shortfall)
		if money.AboveNoise(row.Shortfall) {
			summary.ShortfallDays++
		}
	}
	for _, fee := range fees {
		summary.FeeTotal = summary.FeeTotal.Add(fee.Amount)
	}
	for _, st := range statuses {
		if st.State == FileAccepted {
			summary.FilesAccepted++
		} else {
			summary.FilesSkipped++
		}
	}
	return summary
}
