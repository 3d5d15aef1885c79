// Package reporter renders reconciliation results.
//
// Supported output formats:
//   - Console: summary, per-file status, comparison table and a journal preview
//   - JSON: the full result for programmatic consumption
//   - CSV: the comparison table, semicolon-separated with comma decimals
//
// The package also writes the consolidated transaction export, one line per
// accepted processor record.
//
// Example usage:
//
//	generator, err := reporter.NewReportGenerator(&reporter.ReportConfig{Format: reporter.FormatCSV})
//	if err != nil {
//		return err
//	}
//	err = generator.GenerateReport(result, os.Stdout)
package reporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"golang-ledger-reconciler/internal/extractor"
	"golang-ledger-reconciler/internal/models"
	"golang-ledger-reconciler/internal/money"
	"golang-ledger-reconciler/internal/reconciler"
)

// OutputFormat represents the supported report output formats.
type OutputFormat string

const (
	FormatConsole OutputFormat = "console"
	FormatJSON    OutputFormat = "json"
	FormatCSV     OutputFormat = "csv"
)

// IsValid checks if the output format is supported
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatConsole, FormatJSON, FormatCSV:
		return true
	default:
		return false
	}
}

// ReportConfig holds configuration options for report generation
type ReportConfig struct {
	Format OutputFormat `json:"format"`

	IncludeFileStatus bool `json:"include_file_status"`
	IncludeComparison bool `json:"include_comparison"`
	IncludeJournal    bool `json:"include_journal"`
	// JournalPreview caps the console journal listing; 0 lists every entry.
	JournalPreview int `json:"journal_preview"`

	CSVDelimiter rune `json:"csv_delimiter"`
	CSVHeaders   bool `json:"csv_headers"`
}

// DefaultReportConfig returns a default report configuration
func DefaultReportConfig() *ReportConfig {
	return &ReportConfig{
		Format:            FormatConsole,
		IncludeFileStatus: true,
		IncludeComparison: true,
		IncludeJournal:    true,
		JournalPreview:    10,
		CSVDelimiter:      ';',
		CSVHeaders:        true,
	}
}

// Validate validates the report configuration
func (c *ReportConfig) Validate() error {
	if !c.Format.IsValid() {
		return fmt.Errorf("invalid output format: %s", c.Format)
	}
	if c.JournalPreview < 0 {
		return fmt.Errorf("journal preview cannot be negative, got %d", c.JournalPreview)
	}
	if c.CSVDelimiter == 0 || c.CSVDelimiter == '"' || c.CSVDelimiter == '\n' {
		return fmt.Errorf("invalid CSV delimiter %q", c.CSVDelimiter)
	}
	return nil
}

// ReportGenerator generates reconciliation reports in various formats
type ReportGenerator struct {
	config *ReportConfig
}

// NewReportGenerator creates a new report generator with the specified configuration
func NewReportGenerator(config *ReportConfig) (*ReportGenerator, error) {
	if config == nil {
		config = DefaultReportConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid report configuration: %w", err)
	}

	return &ReportGenerator{
		config: config,
	}, nil
}

// GenerateReport generates a report from reconciliation results and writes it to the provided writer
func (rg *ReportGenerator) GenerateReport(result *reconciler.Result, writer io.Writer) error {
	if result == nil {
		return fmt.Errorf("reconciliation result cannot be nil")
	}

	switch rg.config.Format {
	case FormatConsole:
		return rg.generateConsoleReport(result, writer)
	case FormatJSON:
		return rg.generateJSONReport(result, writer)
	case FormatCSV:
		return rg.generateCSVReport(result, writer)
	default:
		return fmt.Errorf("unsupported output format: %s", rg.config.Format)
	}
}

// generateConsoleReport generates a human-readable console report
func (rg *ReportGenerator) generateConsoleReport(result *reconciler.Result, writer io.Writer) error {
	fmt.Fprintf(writer, "RECONCILIATION REPORT\n")
	fmt.Fprintf(writer, "Run: %s\n", result.RunID)
	fmt.Fprintf(writer, "Generated: %s\n", result.ProcessedAt.Format(time.RFC3339))
	fmt.Fprintf(writer, "Processing Duration: %v\n\n", result.Duration)

	if result.Summary != nil {
		fmt.Fprintf(writer, "=== SUMMARY ===\n")
		rg.printSummary(result.Summary, writer)
		fmt.Fprintf(writer, "\n")
	}

	if rg.config.IncludeFileStatus && len(result.Files) > 0 {
		fmt.Fprintf(writer, "=== PROCESSOR FILES ===\n")
		if err := rg.printFiles(result.Files, writer); err != nil {
			return err
		}
		fmt.Fprintf(writer, "\n")
	}

	if rg.config.IncludeComparison {
		fmt.Fprintf(writer, "=== DAILY COMPARISON ===\n")
		if err := rg.printComparison(result.Comparison, writer); err != nil {
			return err
		}
		fmt.Fprintf(writer, "\n")
	}

	if rg.config.IncludeJournal && len(result.Journal) > 0 {
		fmt.Fprintf(writer, "=== JOURNAL ENTRIES ===\n")
		return rg.printJournal(result.Journal, writer)
	}
	return nil
}

// generateJSONReport generates a structured JSON report
func (rg *ReportGenerator) generateJSONReport(result *reconciler.Result, writer io.Writer) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(rg.filterResultForOutput(result))
}

// ComparisonHeader is the header of the CSV comparison report.
var ComparisonHeader = []string{"Data", "Razao", "Operadoras", "Operadoras_Ajustado", "Venda_a_Vista"}

// generateCSVReport writes the comparison table
func (rg *ReportGenerator) generateCSVReport(result *reconciler.Result, writer io.Writer) error {
	csvWriter := csv.NewWriter(writer)
	csvWriter.Comma = rg.config.CSVDelimiter

	if rg.config.CSVHeaders {
		if err := csvWriter.Write(ComparisonHeader); err != nil {
			return fmt.Errorf("failed to write CSV headers: %w", err)
		}
	}

	for _, row := range result.Comparison {
		record := []string{
			row.Date.Format(models.BRDateLayout),
			money.Format(row.LedgerGross),
			money.Format(row.ProcessorGross),
			money.Format(row.AdjustedProcessor),
			money.Format(row.Shortfall),
		}
		if err := csvWriter.Write(record); err != nil {
			return fmt.Errorf("failed to write comparison row: %w", err)
		}
	}

	csvWriter.Flush()
	return csvWriter.Error()
}

// Helper methods for console output formatting

func (rg *ReportGenerator) printSummary(summary *reconciler.Summary, writer io.Writer) {
	fmt.Fprintf(writer, "Policy:               %s\n", summary.Policy)
	if summary.DateRange != nil {
		fmt.Fprintf(writer, "Period:               %s - %s\n",
			summary.DateRange.Start.Format(models.BRDateLayout),
			summary.DateRange.End.Format(models.BRDateLayout))
	}
	fmt.Fprintf(writer, "Days:                 %d (%d with cash sales)\n", summary.Days, summary.ShortfallDays)
	fmt.Fprintf(writer, "Ledger rows:          %d (%d without a valid date)\n", summary.LedgerRows, summary.LedgerRowsDropped)
	fmt.Fprintf(writer, "Processor files:      %d accepted, %d skipped\n", summary.FilesAccepted, summary.FilesSkipped)
	fmt.Fprintf(writer, "Processor records:    %d\n", summary.Records)
	fmt.Fprintf(writer, "\n")
	fmt.Fprintf(writer, "Ledger total:         %s\n", money.Format(summary.LedgerTotal))
	fmt.Fprintf(writer, "Processor total:      %s\n", money.Format(summary.ProcessorTotal))
	fmt.Fprintf(writer, "Adjusted total:       %s\n", money.Format(summary.AdjustedTotal))
	fmt.Fprintf(writer, "Cash sales:           %s\n", money.Format(summary.ShortfallTotal))
	fmt.Fprintf(writer, "Fees:                 %s\n", money.Format(summary.FeeTotal))
	fmt.Fprintf(writer, "Journal entries:      %d\n", summary.JournalEntries)
}

func (rg *ReportGenerator) printFiles(files []reconciler.FileStatus, writer io.Writer) error {
	tw := tabwriter.NewWriter(writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tOPERATOR\tSTATE\tRECORDS\tFEES\tDETAIL")
	for _, f := range files {
		detail := ""
		if f.State == reconciler.FileSkipped {
			detail = string(f.Code)
		} else if dropped := totalDropped(f.RowsDropped); dropped > 0 {
			detail = fmt.Sprintf("%d rows dropped", dropped)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n", f.File, f.Operator, f.State, f.Records, f.Fees, detail)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, f := range files {
		if f.State == reconciler.FileSkipped && f.Message != "" {
			fmt.Fprintf(writer, "  %s: %s\n", f.File, f.Message)
		}
	}
	return nil
}

func (rg *ReportGenerator) printComparison(rows []models.ComparisonRow, writer io.Writer) error {
	if len(rows) == 0 {
		fmt.Fprintf(writer, "No dated rows\n")
		return nil
	}
	tw := tabwriter.NewWriter(writer, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "DATE\tLEDGER\tPROCESSORS\tADJUSTED\tCASH SALES\t")
	for _, row := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t\n",
			row.Date.Format(models.BRDateLayout),
			money.Format(row.LedgerGross),
			money.Format(row.ProcessorGross),
			money.Format(row.AdjustedProcessor),
			money.Format(row.Shortfall))
	}
	return tw.Flush()
}

func (rg *ReportGenerator) printJournal(entries []models.JournalEntry, writer io.Writer) error {
	tw := tabwriter.NewWriter(writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tDEBIT\tCREDIT\tVALUE\tHISTORY\tDESCRIPTION")
	for i, e := range entries {
		if rg.config.JournalPreview > 0 && i >= rg.config.JournalPreview {
			break
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%s\t%s\n",
			e.Date.Format(models.BRDateLayout),
			e.DebitAccount,
			e.CreditAccount,
			money.Format(e.Amount),
			strconv.Itoa(e.HistoryCode),
			e.Description)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if rg.config.JournalPreview > 0 && len(entries) > rg.config.JournalPreview {
		fmt.Fprintf(writer, "  ... and %d more\n", len(entries)-rg.config.JournalPreview)
	}
	return nil
}

// Helper methods

func totalDropped(dropped map[extractor.DropReason]int) int {
	n := 0
	for _, c := range dropped {
		n += c
	}
	return n
}

func (rg *ReportGenerator) filterResultForOutput(result *reconciler.Result) map[string]interface{} {
	output := map[string]interface{}{
		"run_id":       result.RunID,
		"summary":      result.Summary,
		"processed_at": result.ProcessedAt,
		"duration":     result.Duration.String(),
	}

	if rg.config.IncludeFileStatus {
		output["files"] = result.Files
		if result.Diagnostics != nil {
			output["diagnostics"] = result.Diagnostics
		}
	}
	if rg.config.IncludeComparison {
		output["comparison"] = result.Comparison
	}
	if rg.config.IncludeJournal {
		output["journal"] = result.Journal
		output["fees"] = result.Fees
	}
	return output
}

// GetConfiguration returns the current configuration
func (rg *ReportGenerator) GetConfiguration() *ReportConfig {
	return rg.config
}
