package parsers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"

	"golang-ledger-reconciler/pkg/errors"
)

func newTestLoader(t *testing.T) *Loader {
	t.Helper()
	l, err := NewLoader(nil)
	require.NoError(t, err)
	return l
}

func TestLoadSemicolonWithPreambleAndFooter(t *testing.T) {
	data := []byte("Relatório de transações\n" +
		"Período: 01/01/2024 a 31/01/2024\n" +
		"Data da transação;Bandeira;Valor parcela bruto;Status\n" +
		"10/01/2024;Visa;\"1.000,00\";Transação Processada\n" +
		"11/01/2024;Master;250,00;Cancelada\n" +
		"\n" +
		"Total;;1.250,00;\n")

	table, err := newTestLoader(t).Load("CABAL-VOUCHER.csv", data)
	require.NoError(t, err)

	assert.Equal(t, FormatDelimited, table.Format)
	assert.Equal(t, ';', table.Delimiter)
	assert.Equal(t, EncodingUTF8, table.Encoding)
	assert.Equal(t, 2, table.HeaderRow)
	assert.Equal(t, []string{"Data da transação", "Bandeira", "Valor parcela bruto", "Status"}, table.Headers)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "1.000,00", table.Rows[0][2])
}

func TestLoadCommaFallsThroughSemicolon(t *testing.T) {
	data := []byte("data,valor,status\n10/01/2024,\"1.200,00\",Aprovada\n")

	table, err := newTestLoader(t).Load("export.csv", data)
	require.NoError(t, err)

	assert.Equal(t, ',', table.Delimiter)
	assert.Equal(t, []string{"data", "valor", "status"}, table.Headers)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "1.200,00", table.Rows[0][1])
}

func TestLoadLatin1(t *testing.T) {
	text := "Data;Valor;Situação\n10/01/2024;100,00;Aprovada\n"
	encoded, err := charmap.ISO8859_1.NewEncoder().String(text)
	require.NoError(t, err)

	table, err := newTestLoader(t).Load("caixa.csv", []byte(encoded))
	require.NoError(t, err)

	assert.Equal(t, EncodingLatin1, table.Encoding)
	assert.Equal(t, "Situação", table.Headers[2])
}

func TestLoadStripsBOMAndEmptyHeaderColumns(t *testing.T) {
	data := []byte("\ufeffData;;Valor\n10/01/2024;x;5,00\n")

	table, err := newTestLoader(t).Load("ledger.csv", data)
	require.NoError(t, err)

	assert.Equal(t, []string{"Data", "Valor"}, table.Headers)
	assert.Equal(t, []string{"10/01/2024", "5,00"}, table.Rows[0])
}

func TestLoadPadsShortRows(t *testing.T) {
	data := []byte("Data;Valor;Status\n10/01/2024;5,00\n")

	table, err := newTestLoader(t).Load("short.csv", data)
	require.NoError(t, err)
	assert.Equal(t, []string{"10/01/2024", "5,00", ""}, table.Rows[0])
}

func TestLoadUnknownExtension(t *testing.T) {
	_, err := newTestLoader(t).Load("report.pdf", []byte("%PDF-1.4"))
	require.Error(t, err)

	rerr, ok := errors.AsReconcilerError(err)
	require.True(t, ok)
	assert.Equal(t, errors.CodeUnrecognizedFormat, rerr.Code)
}

func TestLoadSingleColumnText(t *testing.T) {
	_, err := newTestLoader(t).Load("notes.txt", []byte("just a line\nanother line\n"))
	require.Error(t, err)
}

func TestLoadXLSX(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "Extrato de vendas"))
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]interface{}{"Data da venda", "Valor bruto", "Status"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A4", &[]interface{}{45301, 1200.5, "Aprovada"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A5", &[]interface{}{"Total", 1200.5}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	table, err := newTestLoader(t).Load("CAIXA.xlsx", buf.Bytes())
	require.NoError(t, err)

	assert.Equal(t, FormatXLSX, table.Format)
	assert.Equal(t, 2, table.HeaderRow)
	assert.Equal(t, []string{"Data da venda", "Valor bruto", "Status"}, table.Headers)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "45301", table.Rows[0][0])
	assert.Equal(t, "1200.5", table.Rows[0][1])
}

func TestLoadCorruptSpreadsheet(t *testing.T) {
	_, err := newTestLoader(t).Load("broken.xlsx", []byte("not a zip"))
	require.Error(t, err)

	rerr, ok := errors.AsReconcilerError(err)
	require.True(t, ok)
	assert.Equal(t, errors.CodeFileCorrupted, rerr.Code)
}

func TestLoadEncodingAndEmptyFiles(t *testing.T) {
	cfg := DefaultLoaderConfig()
	cfg.Attempts = []Attempt{{Delimiter: ';', Encoding: EncodingUTF8}}
	utf8Only, err := NewLoader(cfg)
	require.NoError(t, err)

	latin1, err := charmap.ISO8859_1.NewEncoder().String("Data;Situação\n10/01/2024;Aprovada\n")
	require.NoError(t, err)

	tests := []struct {
		name   string
		loader *Loader
		file   string
		data   []byte
		code   errors.ErrorCode
	}{
		{name: "latin-1 without a latin-1 attempt", loader: utf8Only, file: "caixa.csv", data: []byte(latin1), code: errors.CodeEncodingError},
		{name: "empty csv", loader: newTestLoader(t), file: "vazio.csv", data: []byte("\ufeff"), code: errors.CodeInvalidData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.loader.Load(tt.file, tt.data)
			require.Error(t, err)

			rerr, ok := errors.AsReconcilerError(err)
			require.True(t, ok)
			assert.Equal(t, tt.code, rerr.Code)
			assert.Equal(t, errors.CategoryParse, rerr.Category)
			assert.Equal(t, tt.file, rerr.Context["file"])
		})
	}
}

func TestLoadEmptyWorkbook(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	_, err = newTestLoader(t).Load("vazio.xlsx", buf.Bytes())
	require.Error(t, err)

	rerr, ok := errors.AsReconcilerError(err)
	require.True(t, ok)
	assert.Equal(t, errors.CodeInvalidData, rerr.Code)
}

func TestNewLoaderRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultLoaderConfig()
	cfg.ScanWindow = 0
	_, err := NewLoader(cfg)
	require.Error(t, err)

	cfg = DefaultLoaderConfig()
	cfg.Attempts = []Attempt{{Delimiter: ';', Encoding: "utf-16"}}
	_, err = NewLoader(cfg)
	require.Error(t, err)
}
