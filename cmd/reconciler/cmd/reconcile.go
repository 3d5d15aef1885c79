package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"golang-ledger-reconciler/cmd/reconciler/config"
	"golang-ledger-reconciler/internal/journal"
	"golang-ledger-reconciler/internal/models"
	"golang-ledger-reconciler/internal/reconciler"
	"golang-ledger-reconciler/internal/reporter"
	"golang-ledger-reconciler/internal/source"
	"golang-ledger-reconciler/pkg/errors"
	"golang-ledger-reconciler/pkg/logger"
)

// reconcileFlags holds the values read back from viper in PreRunE, so the
// config file and RECONCILER_* variables can supply any of them.
type reconcileFlags struct {
	ledgerFile       string
	processorFiles   []string
	operators        map[string]string
	policy           models.RedistributionPolicy
	outputFormat     string
	outputFile       string
	erpFile          string
	consolidatedFile string
	startDate        string
	endDate          string
	options          config.RunOptions
}

var flags reconcileFlags

// reconcileCmd represents the reconcile command
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile the ledger against processor files",
	Long: `Reconcile totals the ledger and every processor file by day, compares
them, optionally moves processor excess to an adjacent day, and books
what is left as cash sales plus the processor fees.

Inputs may be local paths, gs://bucket/object or s3://bucket/key.
Processor files are matched to an operator by file name; use --operator
to force one. A file that cannot be read or extracted is skipped and
reported, the run carries on with the rest. A ledger that cannot be read
stops the run.

Examples:
  # Basic reconciliation
  reconciler reconcile --ledger-file razao.xlsx --processor-files cielo.csv,rede.xls

  # Move excess to the next day and write the ERP import file
  reconciler reconcile -l razao.xlsx -p cielo.csv,cabal.xlsx \
    --policy next_day --erp-file lancamentos.csv

  # Force an operator for a file whose name gives no hint
  reconciler reconcile -l razao.xlsx -p export.csv --operator export.csv=mercadopago

  # Restrict to a period and emit JSON
  reconciler reconcile -l razao.xlsx -p cielo.csv \
    --start-date 2024-01-01 --end-date 2024-01-31 --output-format json`,

	PreRunE: validateReconcileFlags,
	RunE:    runReconcile,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)

	f := reconcileCmd.Flags()

	// Input flags
	f.StringP("ledger-file", "l", "", "ledger export: local path, gs:// or s3:// URI (required)")
	f.StringSliceP("processor-files", "p", []string{}, "comma-separated processor exports")
	f.StringSlice("operator", []string{}, "force an operator for a file, as file=operator (repeatable)")

	// Reconciliation flags
	f.String("policy", string(models.PolicyNone), "redistribution policy: none, next_day, previous_day")
	f.Int("max-cascade", 0, "days an excess may travel (0 = unbounded)")
	f.Bool("exclude-vouchers", false, "drop rows whose brand is a meal/food voucher")
	f.StringSlice("voucher-keywords", []string{}, "voucher brand keywords (default: built-in list)")
	f.Bool("lenient-columns", false, "also match columns whose header merely contains a synonym")
	f.Int("concurrency", 1, "processor files extracted in parallel (0 = default)")

	// Output flags
	f.StringP("output-format", "f", "console", "report format: console, json, csv")
	f.StringP("output-file", "o", "", "report file path (default: stdout)")
	f.String("erp-file", "", "write the ERP journal import file to this path")
	f.String("consolidated-file", "", "write every accepted transaction to this path")

	// Date filtering flags
	f.String("start-date", "", "first day to reconcile (YYYY-MM-DD or DD/MM/YYYY)")
	f.String("end-date", "", "last day to reconcile (YYYY-MM-DD or DD/MM/YYYY)")

	// Bind flags to viper
	for _, name := range []string{
		"ledger-file", "processor-files", "operator",
		"policy", "max-cascade", "exclude-vouchers", "voucher-keywords", "lenient-columns", "concurrency",
		"output-format", "output-file", "erp-file", "consolidated-file",
		"start-date", "end-date",
	} {
		viper.BindPFlag(name, f.Lookup(name))
	}
}

func validateReconcileFlags(cmd *cobra.Command, args []string) error {
	// Get values from viper (allows override from config file)
	flags = reconcileFlags{
		ledgerFile:       viper.GetString("ledger-file"),
		processorFiles:   viper.GetStringSlice("processor-files"),
		outputFormat:     viper.GetString("output-format"),
		outputFile:       viper.GetString("output-file"),
		erpFile:          viper.GetString("erp-file"),
		consolidatedFile: viper.GetString("consolidated-file"),
		startDate:        viper.GetString("start-date"),
		endDate:          viper.GetString("end-date"),
		options: config.RunOptions{
			MaxCascade:      viper.GetInt("max-cascade"),
			ExcludeVouchers: viper.GetBool("exclude-vouchers"),
			VoucherKeywords: viper.GetStringSlice("voucher-keywords"),
			LenientColumns:  viper.GetBool("lenient-columns"),
			Concurrency:     viper.GetInt("concurrency"),
		},
	}

	// Validate required flags
	if flags.ledgerFile == "" {
		return errors.ConfigurationError(errors.CodeMissingConfig, "ledger-file", nil,
			fmt.Errorf("ledger-file is required"))
	}

	// The ledger must be readable up front; a processor file only needs a
	// usable location, since one that cannot be read is skipped by the run
	if err := validateInput(flags.ledgerFile, "ledger file"); err != nil {
		return err
	}
	for i, p := range flags.processorFiles {
		if _, err := parseInput(p, fmt.Sprintf("processor file %d", i+1)); err != nil {
			return err
		}
	}

	var err error
	if flags.operators, err = config.ParseOperatorOverrides(viper.GetStringSlice("operator")); err != nil {
		return err
	}
	if flags.policy, err = config.ParsePolicy(viper.GetString("policy")); err != nil {
		return err
	}
	if _, err := config.CreateReportConfig(flags.outputFormat); err != nil {
		return err
	}
	if flags.options.MaxCascade < 0 {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "max-cascade", flags.options.MaxCascade,
			fmt.Errorf("max-cascade cannot be negative"))
	}
	if flags.options.Concurrency < 0 {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "concurrency", flags.options.Concurrency,
			fmt.Errorf("concurrency cannot be negative"))
	}

	// Validate dates
	start, err := config.ParseDateFlag("start-date", flags.startDate)
	if err != nil {
		return err
	}
	end, err := config.ParseDateFlag("end-date", flags.endDate)
	if err != nil {
		return err
	}
	if start != nil && end != nil && start.After(*end) {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "start-date", flags.startDate,
			fmt.Errorf("start date cannot be after end date"))
	}

	// Validate output directories exist if specified
	for _, out := range []string{flags.outputFile, flags.erpFile, flags.consolidatedFile} {
		if err := validateOutputDir(out); err != nil {
			return err
		}
	}

	return nil
}

func parseInput(uri, description string) (source.Location, error) {
	loc, err := source.Parse(uri)
	if err != nil {
		return loc, errors.ConfigurationError(errors.CodeInvalidConfig, description, uri, err).
			WithSuggestion("use a local path, gs://bucket/object or s3://bucket/key")
	}
	return loc, nil
}

// validateInput checks a local input exists and is a readable file.
func validateInput(uri, description string) error {
	loc, err := parseInput(uri, description)
	if err != nil {
		return err
	}
	if loc.Scheme != source.SchemeLocal {
		return nil
	}
	return validateFileExists(loc.Key, description)
}

func validateFileExists(filePath, description string) error {
	if filePath == "" {
		return errors.ConfigurationError(errors.CodeMissingConfig, description, nil,
			fmt.Errorf("%s path cannot be empty", description))
	}

	info, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return errors.FileError(errors.CodeFileNotFound, filePath, err).
			WithContext("input", description)
	}
	if err != nil {
		return errors.FileError(errors.CodeFilePermission, filePath, err).
			WithContext("input", description)
	}

	if info.IsDir() {
		return errors.FileError(errors.CodeFileCorrupted, filePath,
			fmt.Errorf("%s is a directory, expected a file", description))
	}

	// Check if file is readable
	file, err := os.Open(filePath)
	if err != nil {
		return errors.FileError(errors.CodeFilePermission, filePath, err).
			WithContext("input", description)
	}
	file.Close()

	return nil
}

func validateOutputDir(path string) error {
	if path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return errors.FileError(errors.CodeFileNotFound, dir, err).
			WithSuggestion("create the output directory first")
	}
	return nil
}

func runReconcile(cmd *cobra.Command, args []string) error {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logger.GetGlobalLogger().WithComponent("cli")
	log.WithFields(logger.Fields{
		"ledger":     flags.ledgerFile,
		"processors": strings.Join(flags.processorFiles, ", "),
		"policy":     flags.policy,
		"format":     flags.outputFormat,
	}).Info("Starting reconciliation")

	// Create configurations
	settings, err := config.Load(nil)
	if err != nil {
		return err
	}
	registry, err := settings.CreateRegistry()
	if err != nil {
		return err
	}
	reconcilerConfig, err := config.CreateReconcilerConfig(settings, flags.options)
	if err != nil {
		return err
	}
	reportConfig, err := config.CreateReportConfig(flags.outputFormat)
	if err != nil {
		return err
	}

	service, err := reconciler.NewService(reconcilerConfig, registry)
	if err != nil {
		return err
	}

	request, err := buildRequest(ctx, source.NewOpener())
	if err != nil {
		return err
	}

	result, err := service.Run(ctx, request)
	if err != nil {
		return err
	}

	return writeOutputs(cmd.OutOrStdout(), result, reportConfig, log)
}

// buildRequest fetches every input and assigns forced operators. Only a
// ledger fetch failure is returned; processor failures travel in the
// request and end up as skipped files.
func buildRequest(ctx context.Context, opener *source.Opener) (*reconciler.Request, error) {
	ledger, err := opener.Open(ctx, flags.ledgerFile)
	if err != nil {
		return nil, err
	}

	processors := opener.OpenAll(ctx, flags.processorFiles)

	start, _ := config.ParseDateFlag("start-date", flags.startDate)
	end, _ := config.ParseDateFlag("end-date", flags.endDate)

	request := &reconciler.Request{
		Ledger:    reconciler.Input{Name: ledger.Name, Data: ledger.Data},
		Policy:    flags.policy,
		StartDate: start,
		EndDate:   end,
	}
	for _, f := range processors {
		request.Processors = append(request.Processors, reconciler.Input{
			Name:   f.Name,
			Data:   f.Data,
			RuleID: config.OperatorFor(flags.operators, f.URI),
			Err:    f.Err,
		})
	}
	return request, nil
}

// writeOutputs writes the report, then the ERP and consolidated files when asked for.
func writeOutputs(stdout io.Writer, result *reconciler.Result, reportConfig *reporter.ReportConfig, log logger.Logger) error {
	generator, err := reporter.NewSafeReportGenerator(reportConfig, log)
	if err != nil {
		return err
	}

	// Determine output destination
	if flags.outputFile != "" {
		if _, err := generator.WriteFileSafely(flags.outputFile, func(w io.Writer) error {
			return generator.GenerateReportSafely(result, w)
		}); err != nil {
			return err
		}
	} else if err := generator.GenerateReportSafely(result, stdout); err != nil {
		return err
	}

	if flags.erpFile != "" {
		if _, err := generator.WriteFileSafely(flags.erpFile, func(w io.Writer) error {
			return journal.WriteERP(w, result.Journal)
		}); err != nil {
			return err
		}
	}

	if flags.consolidatedFile != "" {
		if _, err := generator.WriteFileSafely(flags.consolidatedFile, func(w io.Writer) error {
			return reporter.WriteConsolidatedTransactions(w, result.Records)
		}); err != nil {
			return err
		}
	}

	log.WithFields(logger.Fields{
		"run_id":          result.RunID,
		"journal_entries": len(result.Journal),
		"files_skipped":   result.Summary.FilesSkipped,
		"duration":        result.Duration,
	}).Info("Reconciliation completed")
	return nil
}
