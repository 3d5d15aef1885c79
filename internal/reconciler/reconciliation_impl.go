package reconciler

import (
	"context"
	"fmt"
	"sync"

	"golang-ledger-reconciler/internal/extractor"
	"golang-ledger-reconciler/internal/models"
	"golang-ledger-reconciler/internal/parsers"
	"golang-ledger-reconciler/pkg/errors"
	"golang-ledger-reconciler/pkg/logger"
)

// fileResult is the isolated output of one processor file. Workers only
// write their own slot; merging happens after every file is done.
type fileResult struct {
	status  FileStatus
	records []models.TransactionRecord
	fees    []models.FeeEntry
	err     *errors.ReconcilerError
}

// loadLedger reads the ledger. Any failure here ends the run.
func (s *Service) loadLedger(in Input) ([]models.LedgerRow, extractor.LedgerStats, error) {
	table, err := s.loader.Load(in.Name, in.Data)
	if err != nil {
		return nil, extractor.LedgerStats{}, err
	}
	return extractor.ExtractLedger(table, s.config.Ledger)
}

// processFiles runs every processor file and returns the results in input order.
func (s *Service) processFiles(ctx context.Context, inputs []Input, progress *logger.FileProgress) ([]fileResult, error) {
	results := make([]fileResult, len(inputs))

	if s.config.MaxConcurrentFiles <= 1 || len(inputs) <= 1 {
		for i, in := range inputs {
			if err := ctx.Err(); err != nil {
				return nil, errors.ReconciliationError(errors.CodeCancelled, "processor extraction", err)
			}
			results[i] = s.processFile(in, progress)
		}
		return results, nil
	}

	semaphore := make(chan struct{}, s.config.MaxConcurrentFiles)
	var wg sync.WaitGroup

	for i, in := range inputs {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		go func(slot int, in Input) {
			defer wg.Done()

			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			if ctx.Err() != nil {
				return
			}
			results[slot] = s.processFile(in, progress)
		}(i, in)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, errors.ReconciliationError(errors.CodeCancelled, "processor extraction", err)
	}
	return results, nil
}

// processFile loads one export, picks its rule and extracts it. Failures,
// panics included, become a skipped status; they never escape to the run.
func (s *Service) processFile(in Input, progress *logger.FileProgress) (res fileResult) {
	res = fileResult{status: FileStatus{File: in.Name}}
	defer func() {
		if r := recover(); r != nil {
			s.logger.WithField("file", in.Name).Errorf("Recovered from panic while processing file: %v", r)
			failed := fileResult{status: FileStatus{File: in.Name, RuleID: res.status.RuleID, Operator: res.status.Operator}}
			res = s.skip(failed, errors.ReconciliationError(errors.CodeExtractionFailed, "process "+in.Name,
				fmt.Errorf("panic: %v", r)).WithContext("file", in.Name), progress)
		}
	}()
	if in.Err != nil {
		return s.skip(res, in.Err, progress)
	}

	rule, err := s.ruleFor(in)
	if err != nil {
		return s.skip(res, err, progress)
	}
	res.status.RuleID = rule.ID
	res.status.Operator = rule.Name

	table, err := s.loader.Load(in.Name, in.Data)
	if err != nil {
		return s.skip(res, err, progress)
	}

	out, err := extractor.Extract(table, rule, extractor.Options{
		ExcludeVouchers: s.config.ExcludeVouchers,
		VoucherKeywords: s.config.VoucherKeywords,
		Lenient:         s.config.LenientColumns,
		Logger:          s.logger,
	})
	if err != nil {
		return s.skip(res, err, progress)
	}

	res.records = out.Records
	res.fees = out.Fees
	res.status.State = FileAccepted
	res.status.RowsRead = out.RowsRead
	res.status.Records = out.RowsKept
	res.status.Fees = len(out.Fees)
	res.status.RowsDropped = out.RowsDropped
	progress.Accepted(in.Name, out.RowsKept)
	return res
}

func (s *Service) ruleFor(in Input) (*extractor.Rule, error) {
	if in.RuleID != "" {
		return s.registry.Get(in.RuleID)
	}
	if rule := s.registry.Detect(in.Name); rule != nil {
		return rule, nil
	}
	return nil, errors.New(errors.CategoryConfiguration, errors.CodeUnknownOperator,
		fmt.Sprintf("no operator matches %s", in.Name)).
		WithContext("file", in.Name).
		WithSuggestion("name the operator with --operator or register a generic rule")
}

func (s *Service) skip(res fileResult, err error, progress *logger.FileProgress) fileResult {
	rerr := errors.WrapIfNeeded(err, errors.CategoryInternal, errors.CodeUnexpectedError, "processor file failed")
	res.err = rerr
	res.status.State = FileSkipped
	res.status.Code = rerr.Code
	res.status.Message = rerr.Error()
	progress.Skipped(res.status.File, rerr)
	return res
}

// merge concatenates per-file outputs in input order.
func merge(results []fileResult) ([]models.TransactionRecord, []models.FeeEntry, []FileStatus) {
	var records []models.TransactionRecord
	var fees []models.FeeEntry
	statuses := make([]FileStatus, 0, len(results))
	for _, r := range results {
		records = append(records, r.records...)
		fees = append(fees, r.fees...)
		statuses = append(statuses, r.status)
	}
	return records, fees, statuses
}

// diagnostics summarizes why files were skipped; nil when none were.
func diagnostics(results []fileResult) *errors.ErrorSummary {
	var errs []*errors.ReconcilerError
	for _, r := range results {
		if r.err != nil {
			errs = append(errs, r.err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errors.NewErrorSummary(errs)
}

// recognition merges the registry's header synonyms into the loader config.
func recognition(cfg *parsers.LoaderConfig, registry *extractor.Registry) *parsers.LoaderConfig {
	if cfg == nil {
		cfg = parsers.DefaultLoaderConfig()
	}
	out := *cfg
	out.Recognition = append(registry.Recognition(), cfg.Recognition...)
	return &out
}
