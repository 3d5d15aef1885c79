package cmd

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"testing"

	"golang-ledger-reconciler/internal/extractor"
	"golang-ledger-reconciler/pkg/errors"
	"golang-ledger-reconciler/pkg/logger"
)

func testHandler(verbose bool) (*CLIErrorHandler, *bytes.Buffer) {
	var out bytes.Buffer
	return &CLIErrorHandler{logger: logger.NewDiscard(), out: &out, verbose: verbose}, &out
}

func TestHandleError_ExitCodes(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{name: "nil", err: nil, expected: 0},
		{name: "file", err: errors.FileError(errors.CodeFileNotFound, "razao.xlsx", os.ErrNotExist), expected: 2},
		{name: "parse", err: errors.UnrecognizedFormatError("x.pdf", "pdf", nil), expected: 3},
		{name: "configuration", err: errors.ConfigurationError(errors.CodeInvalidConfig, "policy", "x", nil), expected: 4},
		{name: "ledger", err: errors.LedgerColumnMissingError("razao.csv", "value", []string{"valor"}, ""), expected: 5},
		{name: "network", err: errors.SourceError("gs://b/k", fmt.Errorf("timeout")), expected: 6},
		{name: "wrapped os error", err: fmt.Errorf("open: %w", os.ErrNotExist), expected: 2},
		{name: "generic", err: fmt.Errorf("unknown flag: --foo"), expected: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := testHandler(false)
			if got := h.HandleError(tt.err); got != tt.expected {
				t.Errorf("expected exit code %d, got %d", tt.expected, got)
			}
		})
	}
}

func TestHandleError_Output(t *testing.T) {
	h, out := testHandler(true)
	_, err := extractor.DefaultRegistry().Get("cilo")

	h.HandleError(err)

	text := out.String()
	for _, want := range []string{"Error:", "Suggestion:", "Configuration error help:"} {
		if !strings.Contains(text, want) {
			t.Errorf("output should contain %q, got\n%s", want, text)
		}
	}
}

func TestHandleError_ContextSorted(t *testing.T) {
	h, out := testHandler(false)
	err := errors.New(errors.CategoryParse, errors.CodeInvalidData, "bad file").
		WithContext("zeta", 1).
		WithContext("alpha", 2)

	h.HandleError(err)

	text := out.String()
	if strings.Index(text, "alpha") > strings.Index(text, "zeta") {
		t.Errorf("context keys should be sorted, got\n%s", text)
	}
}
