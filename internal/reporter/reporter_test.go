package reporter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"golang-ledger-reconciler/internal/extractor"
	"golang-ledger-reconciler/internal/models"
	"golang-ledger-reconciler/internal/reconciler"
	"golang-ledger-reconciler/pkg/errors"
	"golang-ledger-reconciler/pkg/logger"
)

func date(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func sampleResult() *reconciler.Result {
	return &reconciler.Result{
		RunID:       "run-1",
		ProcessedAt: date(31),
		Duration:    150 * time.Millisecond,
		Summary: &reconciler.Summary{
			Policy:         models.PolicyNextDay,
			LedgerTotal:    decimal.NewFromInt(1500),
			ProcessorTotal: decimal.NewFromInt(1300),
			AdjustedTotal:  decimal.NewFromInt(1300),
			ShortfallTotal: decimal.NewFromInt(200),
			FeeTotal:       decimal.RequireFromString("30"),
			Days:           2,
			ShortfallDays:  1,
			FilesAccepted:  1,
			FilesSkipped:   1,
			Records:        2,
			JournalEntries: 2,
			DateRange:      &reconciler.DateRange{Start: date(10), End: date(11)},
		},
		Comparison: []models.ComparisonRow{
			{Date: date(10), LedgerGross: decimal.NewFromInt(1000), ProcessorGross: decimal.NewFromInt(1200),
				AdjustedProcessor: decimal.NewFromInt(1000), Shortfall: decimal.Zero},
			{Date: date(11), LedgerGross: decimal.NewFromInt(500), ProcessorGross: decimal.NewFromInt(100),
				AdjustedProcessor: decimal.NewFromInt(300), Shortfall: decimal.RequireFromString("200.5")},
		},
		Journal: []models.JournalEntry{
			{DebitAccount: 5, CreditAccount: 1071, Date: date(11), Amount: decimal.RequireFromString("200.5"),
				HistoryCode: 31, Description: "Venda a vista - ajuste conciliacao 11/01/2024", Kind: models.EntryKindShortfall},
			{DebitAccount: 441, CreditAccount: 1071, Date: date(10), Amount: decimal.NewFromInt(30),
				HistoryCode: 201, Description: "Despesa Cielo", Kind: models.EntryKindFee},
		},
		Files: []reconciler.FileStatus{
			{File: "cielo.csv", Operator: "Cielo", State: reconciler.FileAccepted, Records: 2, Fees: 1,
				RowsDropped: map[extractor.DropReason]int{extractor.DropStatus: 1}},
			{File: "foo.csv", State: reconciler.FileSkipped, Code: errors.CodeMissingColumn, Message: "missing required column"},
		},
	}
}

func TestNewReportGenerator(t *testing.T) {
	tests := []struct {
		name        string
		config      *ReportConfig
		expectError bool
	}{
		{name: "default config", config: nil},
		{name: "valid config", config: DefaultReportConfig()},
		{name: "invalid format", config: &ReportConfig{Format: "xml", CSVDelimiter: ';'}, expectError: true},
		{name: "negative preview", config: &ReportConfig{Format: FormatConsole, JournalPreview: -1, CSVDelimiter: ';'}, expectError: true},
		{name: "quote delimiter", config: &ReportConfig{Format: FormatCSV, CSVDelimiter: '"'}, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			generator, err := NewReportGenerator(tt.config)
			if tt.expectError {
				if err == nil {
					t.Errorf("expected error but got none")
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if generator == nil {
				t.Errorf("expected generator but got nil")
			}
		})
	}
}

func TestOutputFormatValidation(t *testing.T) {
	tests := []struct {
		format OutputFormat
		valid  bool
	}{
		{FormatConsole, true},
		{FormatJSON, true},
		{FormatCSV, true},
		{"invalid", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := tt.format.IsValid(); got != tt.valid {
			t.Errorf("format %q: expected valid=%v, got %v", tt.format, tt.valid, got)
		}
	}
}

func TestGenerateReport_NilResult(t *testing.T) {
	generator, _ := NewReportGenerator(nil)
	if err := generator.GenerateReport(nil, &bytes.Buffer{}); err == nil {
		t.Error("expected error for nil result")
	}
}

func TestConsoleReport(t *testing.T) {
	generator, _ := NewReportGenerator(nil)
	var buf bytes.Buffer
	if err := generator.GenerateReport(sampleResult(), &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"RECONCILIATION REPORT",
		"Run: run-1",
		"=== SUMMARY ===",
		"Cash sales:           200,00",
		"Period:               10/01/2024 - 11/01/2024",
		"=== PROCESSOR FILES ===",
		"missing_column",
		"1 rows dropped",
		"=== DAILY COMPARISON ===",
		"200,50",
		"=== JOURNAL ENTRIES ===",
		"Despesa Cielo",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("console report missing %q\n%s", want, out)
		}
	}
}

func TestConsoleReport_JournalPreview(t *testing.T) {
	config := DefaultReportConfig()
	config.JournalPreview = 1
	generator, _ := NewReportGenerator(config)

	var buf bytes.Buffer
	if err := generator.GenerateReport(sampleResult(), &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "... and 1 more") {
		t.Errorf("expected truncated journal listing, got\n%s", buf.String())
	}
	if strings.Contains(buf.String(), "Despesa Cielo") {
		t.Error("entry past the preview limit should not be listed")
	}
}

func TestJSONReport(t *testing.T) {
	config := DefaultReportConfig()
	config.Format = FormatJSON
	generator, _ := NewReportGenerator(config)

	result := sampleResult()
	result.Diagnostics = errors.NewErrorSummary([]*errors.ReconcilerError{
		errors.MissingColumnError("foo.csv", "gross", []string{"valor bruto"}, ""),
	})

	var buf bytes.Buffer
	if err := generator.GenerateReport(result, &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("report is not valid JSON: %v", err)
	}
	if decoded["run_id"] != "run-1" {
		t.Errorf("expected run_id run-1, got %v", decoded["run_id"])
	}

	comparison, ok := decoded["comparison"].([]interface{})
	if !ok || len(comparison) != 2 {
		t.Fatalf("expected 2 comparison rows, got %v", decoded["comparison"])
	}
	first := comparison[0].(map[string]interface{})
	if first["date"] != "2024-01-10" || first["ledger_gross"] != "1000.00" {
		t.Errorf("unexpected comparison row: %v", first)
	}
	if _, ok := decoded["journal"]; !ok {
		t.Error("expected journal in JSON output")
	}
	diag, ok := decoded["diagnostics"].(map[string]interface{})
	if !ok || diag["total"] != float64(1) {
		t.Errorf("expected diagnostics with one error, got %v", decoded["diagnostics"])
	}
}

func TestCSVReport(t *testing.T) {
	config := DefaultReportConfig()
	config.Format = FormatCSV
	generator, _ := NewReportGenerator(config)

	var buf bytes.Buffer
	if err := generator.GenerateReport(sampleResult(), &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	reader := csv.NewReader(&buf)
	reader.Comma = ';'
	records, err := reader.ReadAll()
	if err != nil {
		t.Fatalf("invalid CSV: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(records))
	}
	if strings.Join(records[0], ";") != strings.Join(ComparisonHeader, ";") {
		t.Errorf("unexpected header: %v", records[0])
	}
	want := []string{"11/01/2024", "500,00", "100,00", "300,00", "200,50"}
	if strings.Join(records[2], ";") != strings.Join(want, ";") {
		t.Errorf("expected %v, got %v", want, records[2])
	}
}

func TestWriteConsolidatedTransactions(t *testing.T) {
	records := []models.TransactionRecord{
		{Date: date(10), Gross: decimal.NewFromInt(100), Fee: decimal.RequireFromString("2.5"),
			Net: decimal.RequireFromString("97.5"), Source: "Cielo (cielo.csv)", Operator: "Cielo",
			Brand: "Visa", CardID: "1234", Description: "Venda Cielo"},
		{Date: date(11), Gross: decimal.NewFromInt(50), Net: decimal.NewFromInt(50), Source: "Rede (rede.csv)"},
	}

	var buf bytes.Buffer
	if err := WriteConsolidatedTransactions(&buf, records); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	if !strings.HasPrefix(out, "\ufeff") {
		t.Fatal("expected UTF-8 BOM")
	}
	lines := strings.Split(strings.TrimSpace(strings.TrimPrefix(out, "\ufeff")), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0] != "Data;Operadora;Bandeira;Valor_Bruto;Despesas;Valor_Liquido;Numero_Cartao;Descricao" {
		t.Errorf("unexpected header: %s", lines[0])
	}
	if lines[1] != "10/01/2024;Cielo;Visa;100,00;2,50;97,50;1234;Venda Cielo" {
		t.Errorf("unexpected first row: %s", lines[1])
	}
	if !strings.HasPrefix(lines[2], "11/01/2024;Rede (rede.csv);") {
		t.Errorf("expected source fallback for missing operator: %s", lines[2])
	}
}

func TestWriteConsolidatedTransactions_FeeLine(t *testing.T) {
	records := []models.TransactionRecord{
		{Date: date(10), Gross: decimal.NewFromInt(200), Fee: decimal.RequireFromString("9.98"),
			Net: decimal.RequireFromString("190.02"), Operator: "Mercado Pago", Brand: "credit_card",
			Description: "Venda Mercado Pago"},
		{Date: date(10), Gross: decimal.Zero, Fee: decimal.RequireFromString("12.5"),
			Net: decimal.RequireFromString("-12.5"), Operator: "Mercado Pago", Brand: "credit_card",
			Description: "Custo de parcelamento - Mercado Pago", Kind: models.KindFee},
	}

	var buf bytes.Buffer
	if err := WriteConsolidatedTransactions(&buf, records); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(strings.TrimPrefix(buf.String(), "\ufeff")), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	want := "10/01/2024;Mercado Pago;credit_card;0,00;12,50;-12,50;;Custo de parcelamento - Mercado Pago"
	if lines[2] != want {
		t.Errorf("unexpected fee line:\n got %s\nwant %s", lines[2], want)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, io.ErrClosedPipe }

func TestSafeReportGenerator(t *testing.T) {
	generator, err := NewSafeReportGenerator(nil, logger.NewDiscard())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := generator.GenerateReportSafely(nil, &bytes.Buffer{}); err == nil {
		t.Error("expected error for nil result")
	}

	var buf bytes.Buffer
	if err := generator.GenerateReportSafely(sampleResult(), &buf); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	if _, err := NewSafeReportGenerator(&ReportConfig{Format: "xml"}, logger.NewDiscard()); err == nil {
		t.Error("expected configuration error")
	} else if rerr, ok := errors.AsReconcilerError(err); !ok || rerr.Category != errors.CategoryConfiguration {
		t.Errorf("expected configuration error, got %v", err)
	}
}

func TestSafeReportGenerator_CSVWriteFailure(t *testing.T) {
	config := DefaultReportConfig()
	config.Format = FormatCSV
	generator, _ := NewSafeReportGenerator(config, logger.NewDiscard())

	if err := generator.GenerateReportSafely(sampleResult(), failingWriter{}); err == nil {
		t.Error("expected error when neither format can be written")
	}
}

func TestWriteFileSafely(t *testing.T) {
	generator, _ := NewSafeReportGenerator(nil, logger.NewDiscard())
	dir := t.TempDir()
	path := filepath.Join(dir, "erp.csv")

	written, err := generator.WriteFileSafely(path, func(w io.Writer) error {
		_, err := io.WriteString(w, "ok")
		return err
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if written != path {
		t.Errorf("expected %s, got %s", path, written)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "ok" {
		t.Errorf("unexpected file content %q", data)
	}
}

func TestGenerateBackupPath(t *testing.T) {
	dir := t.TempDir()
	got := generateBackupPath(filepath.Join(dir, "report.csv"))
	if got != filepath.Join(dir, "report_backup.csv") {
		t.Errorf("unexpected backup path %s", got)
	}
}
