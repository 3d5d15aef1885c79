package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golang-ledger-reconciler/pkg/errors"
)

func TestExtractLedger(t *testing.T) {
	tbl := rawTable("razao.csv",
		[]string{"Data Mov.", "Histórico", "Valor"},
		[]string{"10/01/2024", "Vendas", "1.000,00"},
		[]string{"11/01/2024", "Vendas", "500,00"},
		[]string{"sem data", "Ajuste", "1,00"},
	)

	rows, stats, err := ExtractLedger(tbl, DefaultLedgerRule())
	require.NoError(t, err)

	require.Len(t, rows, 2)
	assert.Equal(t, day(2024, 1, 10), rows[0].Date)
	assert.True(t, rows[0].Value.Equal(dec("1000")))
	assert.Equal(t, 3, stats.RowsRead)
	assert.Equal(t, 2, stats.RowsKept)
	assert.Equal(t, 1, stats.InvalidDate)
}

func TestExtractLedgerMissingColumnIsFatal(t *testing.T) {
	tbl := rawTable("razao.csv", []string{"Data", "Histórico"}, []string{"10/01/2024", "x"})

	_, _, err := ExtractLedger(tbl, DefaultLedgerRule())
	require.Error(t, err)

	rerr, ok := errors.AsReconcilerError(err)
	require.True(t, ok)
	assert.Equal(t, errors.CodeLedgerColumnMissing, rerr.Code)
	assert.Equal(t, errors.CategoryReconciliation, rerr.Category)
	assert.Equal(t, "value", rerr.Context["column"])
}
