package reconciler

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"golang-ledger-reconciler/internal/extractor"
	"golang-ledger-reconciler/internal/models"
	"golang-ledger-reconciler/internal/parsers"
	"golang-ledger-reconciler/pkg/errors"
	"golang-ledger-reconciler/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.SetGlobalLogger(logger.NewDiscard())
	os.Exit(m.Run())
}

const ledgerCSV = "Data;Valor\n10/01/2024;1000,00\n11/01/2024;500,00\n"

func cieloCSV(rows ...string) []byte {
	out := "Data da venda;Valor bruto;Valor líquido;Status\n"
	for _, r := range rows {
		out += r + "\n"
	}
	return []byte(out)
}

func newTestService(t *testing.T, mutate func(*Config)) *Service {
	t.Helper()
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(cfg)
	}
	service, err := NewService(cfg, nil)
	if err != nil {
		t.Fatalf("Failed to create service: %v", err)
	}
	return service
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestService_Run_NextDayAbsorbsSkew(t *testing.T) {
	service := newTestService(t, nil)

	result, err := service.Run(context.Background(), &Request{
		Ledger: Input{Name: "razao.csv", Data: []byte(ledgerCSV)},
		Processors: []Input{{
			Name: "cielo.csv",
			Data: cieloCSV("10/01/2024;1200,00;1200,00;Aprovada", "11/01/2024;300,00;300,00;Aprovada"),
		}},
		Policy: models.PolicyNextDay,
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(result.Comparison) != 2 {
		t.Fatalf("Expected 2 comparison rows, got %d", len(result.Comparison))
	}
	wantAdjusted := []string{"1000", "500"}
	for i, row := range result.Comparison {
		if !row.AdjustedProcessor.Equal(dec(wantAdjusted[i])) {
			t.Errorf("Day %d: expected adjusted %s, got %s", i, wantAdjusted[i], row.AdjustedProcessor)
		}
		if !row.Shortfall.IsZero() {
			t.Errorf("Day %d: expected zero shortfall, got %s", i, row.Shortfall)
		}
	}
	if !result.Comparison[0].ProcessorGross.Equal(dec("1200")) {
		t.Errorf("Expected original processor gross 1200, got %s", result.Comparison[0].ProcessorGross)
	}
	if len(result.Journal) != 0 {
		t.Errorf("Expected no journal entries, got %d", len(result.Journal))
	}
	if result.RunID == "" {
		t.Error("Expected a run ID")
	}
	if result.Summary.FilesAccepted != 1 || result.Summary.Records != 2 {
		t.Errorf("Unexpected summary: %+v", result.Summary)
	}
}

func TestService_Run_PolicyNoneKeepsShortfalls(t *testing.T) {
	service := newTestService(t, nil)

	result, err := service.Run(context.Background(), &Request{
		Ledger: Input{Name: "razao.csv", Data: []byte(ledgerCSV)},
		Processors: []Input{{
			Name: "cielo.csv",
			Data: cieloCSV("10/01/2024;1200,00;1200,00;Aprovada", "11/01/2024;300,00;300,00;Aprovada"),
		}},
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.Summary.Policy != models.PolicyNone {
		t.Errorf("Expected empty policy to mean none, got %s", result.Summary.Policy)
	}
	if !result.Comparison[0].Shortfall.Equal(dec("-200")) {
		t.Errorf("Expected negative shortfall -200 on day 1, got %s", result.Comparison[0].Shortfall)
	}
	if !result.Comparison[1].Shortfall.Equal(dec("200")) {
		t.Errorf("Expected shortfall 200 on day 2, got %s", result.Comparison[1].Shortfall)
	}
	if len(result.Journal) != 1 {
		t.Fatalf("Expected one journal entry, got %d", len(result.Journal))
	}
	entry := result.Journal[0]
	if entry.Kind != models.EntryKindShortfall || entry.DebitAccount != 5 || entry.CreditAccount != 1071 || entry.HistoryCode != 31 {
		t.Errorf("Unexpected shortfall entry: %+v", entry)
	}
	if result.Summary.ShortfallDays != 1 {
		t.Errorf("Expected 1 shortfall day, got %d", result.Summary.ShortfallDays)
	}
}

func TestService_Run_GrossMinusNetFee(t *testing.T) {
	service := newTestService(t, nil)

	result, err := service.Run(context.Background(), &Request{
		Ledger:     Input{Name: "razao.csv", Data: []byte("Data;Valor\n10/01/2024;1000,00\n")},
		Processors: []Input{{Name: "cielo.csv", Data: cieloCSV("10/01/2024;1000,00;970,00;Aprovada")}},
		Policy:     models.PolicyNextDay,
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(result.Fees) != 1 || !result.Fees[0].Amount.Equal(dec("30")) {
		t.Fatalf("Expected one 30.00 fee, got %+v", result.Fees)
	}
	if len(result.Journal) != 1 {
		t.Fatalf("Expected one journal entry, got %d", len(result.Journal))
	}
	entry := result.Journal[0]
	if entry.Kind != models.EntryKindFee || entry.DebitAccount != 441 || entry.HistoryCode != 201 {
		t.Errorf("Unexpected fee entry: %+v", entry)
	}
	if entry.Description != "Despesa Cielo" {
		t.Errorf("Expected description 'Despesa Cielo', got %q", entry.Description)
	}
	if !result.Summary.FeeTotal.Equal(dec("30")) {
		t.Errorf("Expected fee total 30, got %s", result.Summary.FeeTotal)
	}
}

func TestService_Run_SkipsUnusableFiles(t *testing.T) {
	service := newTestService(t, nil)

	result, err := service.Run(context.Background(), &Request{
		Ledger: Input{Name: "razao.csv", Data: []byte(ledgerCSV)},
		Processors: []Input{
			{Name: "cielo_janeiro.csv", Data: []byte("Foo;Bar\n1;2\n")},
			{Name: "relatorio.pdf", Data: []byte("%PDF-1.4")},
			{Name: "outro.csv", Data: cieloCSV("10/01/2024;1000,00;1000,00;Aprovada"), RuleID: "cilo"},
			{Name: "cielo.csv", Data: cieloCSV("10/01/2024;1000,00;1000,00;Aprovada")},
			{Name: "rede.csv", Err: errors.SourceError("s3://exports/rede.csv", fmt.Errorf("connection reset"))},
		},
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	want := []struct {
		state FileState
		code  errors.ErrorCode
	}{
		{FileSkipped, errors.CodeMissingColumn},
		{FileSkipped, errors.CodeUnrecognizedFormat},
		{FileSkipped, errors.CodeUnknownOperator},
		{FileAccepted, ""},
		{FileSkipped, errors.CodeSourceUnavailable},
	}
	if len(result.Files) != len(want) {
		t.Fatalf("Expected %d file statuses, got %d", len(want), len(result.Files))
	}
	for i, w := range want {
		got := result.Files[i]
		if got.State != w.state || got.Code != w.code {
			t.Errorf("File %s: expected %s/%s, got %s/%s (%s)", got.File, w.state, w.code, got.State, got.Code, got.Message)
		}
	}
	if result.Summary.FilesSkipped != 4 || len(result.Skipped()) != 4 {
		t.Errorf("Expected 4 skipped files, got %d", result.Summary.FilesSkipped)
	}
	if result.Diagnostics == nil || result.Diagnostics.Total != 4 {
		t.Fatalf("Expected diagnostics for 4 skipped files, got %+v", result.Diagnostics)
	}
	if !result.Diagnostics.HasCategory(errors.CategoryNetwork) {
		t.Errorf("Expected a network diagnostic for the unreachable file, got %v", result.Diagnostics.ByCategory)
	}
	if !result.Diagnostics.HasCode(errors.CodeMissingColumn) || !result.Diagnostics.HasCategory(errors.CategoryConfiguration) {
		t.Errorf("Expected missing column and unknown operator diagnostics, got %v", result.Diagnostics.ByCode)
	}
	if !result.Comparison[0].ProcessorGross.Equal(dec("1000")) {
		t.Errorf("Expected the accepted file to contribute 1000, got %s", result.Comparison[0].ProcessorGross)
	}
}

// panickyLoader panics for one file name and delegates the rest.
type panickyLoader struct {
	name string
	next tableLoader
}

func (l panickyLoader) Load(name string, data []byte) (*parsers.RawTable, error) {
	if name == l.name {
		panic("corrupt workbook")
	}
	return l.next.Load(name, data)
}

func TestService_Run_RecoversPanicInFile(t *testing.T) {
	for _, concurrency := range []int{1, 3} {
		service := newTestService(t, func(c *Config) { c.MaxConcurrentFiles = concurrency })
		service.loader = panickyLoader{name: "quebrado.xls", next: service.loader}

		result, err := service.Run(context.Background(), &Request{
			Ledger: Input{Name: "razao.csv", Data: []byte(ledgerCSV)},
			Processors: []Input{
				{Name: "quebrado.xls", Data: []byte("junk")},
				{Name: "cielo.csv", Data: cieloCSV("10/01/2024;1000,00;1000,00;Aprovada")},
			},
		})
		if err != nil {
			t.Fatalf("concurrency %d: Run failed: %v", concurrency, err)
		}
		if got := result.Files[0]; got.State != FileSkipped || got.Code != errors.CodeExtractionFailed {
			t.Errorf("concurrency %d: expected quebrado.xls skipped with %s, got %s/%s", concurrency, errors.CodeExtractionFailed, got.State, got.Code)
		}
		if got := result.Files[1]; got.State != FileAccepted {
			t.Errorf("concurrency %d: expected cielo.csv accepted, got %s (%s)", concurrency, got.State, got.Message)
		}
	}
}

func TestService_Run_NoRuleMatches(t *testing.T) {
	cielo, err := extractor.DefaultRegistry().Get("cielo")
	if err != nil {
		t.Fatalf("Failed to get rule: %v", err)
	}
	registry := extractor.NewRegistry()
	if err := registry.Register(cielo); err != nil {
		t.Fatalf("Failed to register rule: %v", err)
	}
	service, err := NewService(DefaultConfig(), registry)
	if err != nil {
		t.Fatalf("Failed to create service: %v", err)
	}

	result, err := service.Run(context.Background(), &Request{
		Ledger:     Input{Name: "razao.csv", Data: []byte(ledgerCSV)},
		Processors: []Input{{Name: "outro.csv", Data: cieloCSV("10/01/2024;1000,00;1000,00;Aprovada")}},
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if got := result.Files[0]; got.State != FileSkipped || got.Code != errors.CodeUnknownOperator {
		t.Errorf("Expected outro.csv skipped as unknown operator, got %s/%s", got.State, got.Code)
	}
}

func TestService_Run_LedgerColumnMissingIsFatal(t *testing.T) {
	service := newTestService(t, nil)

	result, err := service.Run(context.Background(), &Request{
		Ledger:     Input{Name: "razao.csv", Data: []byte("Data;Historico\n10/01/2024;venda\n")},
		Processors: []Input{{Name: "cielo.csv", Data: cieloCSV("10/01/2024;1000,00;1000,00;Aprovada")}},
	})
	if err == nil {
		t.Fatal("Expected an error for a ledger without a value column")
	}
	if result != nil {
		t.Error("Expected no result on a fatal error")
	}
	rerr, ok := errors.AsReconcilerError(err)
	if !ok {
		t.Fatalf("Expected a ReconcilerError, got %T", err)
	}
	if rerr.Code != errors.CodeLedgerColumnMissing {
		t.Errorf("Expected code %s, got %s", errors.CodeLedgerColumnMissing, rerr.Code)
	}
	if rerr.GetExitCode() != 5 {
		t.Errorf("Expected exit code 5, got %d", rerr.GetExitCode())
	}
}

func TestService_Run_NoProcessorFiles(t *testing.T) {
	service := newTestService(t, nil)

	result, err := service.Run(context.Background(), &Request{
		Ledger: Input{Name: "razao.csv", Data: []byte(ledgerCSV)},
		Policy: models.PolicyNextDay,
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(result.Comparison) != 2 {
		t.Fatalf("Expected one row per ledger date, got %d", len(result.Comparison))
	}
	for _, row := range result.Comparison {
		if !row.ProcessorGross.IsZero() {
			t.Errorf("Expected zero processor gross, got %s", row.ProcessorGross)
		}
	}
	if len(result.Journal) != 2 {
		t.Errorf("Expected a shortfall entry per day, got %d", len(result.Journal))
	}
}

func TestService_Run_ConcurrentKeepsInputOrder(t *testing.T) {
	service := newTestService(t, func(c *Config) { c.MaxConcurrentFiles = 4 })

	names := []string{"cielo_a.csv", "cielo_b.csv", "cielo_c.csv", "cielo_d.csv", "cielo_e.csv"}
	var inputs []Input
	for _, n := range names {
		inputs = append(inputs, Input{Name: n, Data: cieloCSV("10/01/2024;100,00;100,00;Aprovada")})
	}

	result, err := service.Run(context.Background(), &Request{
		Ledger:     Input{Name: "razao.csv", Data: []byte(ledgerCSV)},
		Processors: inputs,
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	for i, n := range names {
		if result.Files[i].File != n {
			t.Errorf("Slot %d: expected %s, got %s", i, n, result.Files[i].File)
		}
	}
	for i, rec := range result.Records {
		if want := "Cielo (" + names[i] + ")"; rec.Source != want {
			t.Errorf("Record %d: expected source %s, got %s", i, want, rec.Source)
		}
	}
	if !result.Comparison[0].ProcessorGross.Equal(dec("500")) {
		t.Errorf("Expected 500 on day 1, got %s", result.Comparison[0].ProcessorGross)
	}
}

func TestService_Run_DateRange(t *testing.T) {
	service := newTestService(t, nil)
	start := time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC)

	result, err := service.Run(context.Background(), &Request{
		Ledger: Input{Name: "razao.csv", Data: []byte(ledgerCSV)},
		Processors: []Input{{
			Name: "cielo.csv",
			Data: cieloCSV("10/01/2024;1000,00;970,00;Aprovada", "11/01/2024;500,00;490,00;Aprovada"),
		}},
		StartDate: &start,
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(result.Comparison) != 1 || !result.Comparison[0].Date.Equal(start) {
		t.Fatalf("Expected only 2024-01-11, got %+v", result.Comparison)
	}
	if len(result.Fees) != 1 || !result.Fees[0].Amount.Equal(dec("10")) {
		t.Errorf("Expected only the 10.00 fee of the kept day, got %+v", result.Fees)
	}
	if result.Summary.DateRange == nil || !result.Summary.DateRange.End.Equal(start) {
		t.Errorf("Unexpected date range: %+v", result.Summary.DateRange)
	}
}

func TestService_Run_Cancelled(t *testing.T) {
	service := newTestService(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := service.Run(ctx, &Request{
		Ledger:     Input{Name: "razao.csv", Data: []byte(ledgerCSV)},
		Processors: []Input{{Name: "cielo.csv", Data: cieloCSV("10/01/2024;1000,00;1000,00;Aprovada")}},
	})
	rerr, ok := errors.AsReconcilerError(err)
	if !ok || rerr.Code != errors.CodeCancelled {
		t.Errorf("Expected a cancelled error, got %v", err)
	}
}

func TestService_Run_InvalidRequest(t *testing.T) {
	service := newTestService(t, nil)

	tests := []struct {
		name    string
		request *Request
	}{
		{"nil request", nil},
		{"missing ledger", &Request{}},
		{"bad policy", &Request{Ledger: Input{Name: "razao.csv"}, Policy: "sideways"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := service.Run(context.Background(), tt.request); err == nil {
				t.Error("Expected an error")
			}
		})
	}
}
