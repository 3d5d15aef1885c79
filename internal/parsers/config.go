package parsers

import (
	"fmt"
)

// Attempt is one (delimiter, encoding) combination tried on delimited text.
type Attempt struct {
	Delimiter rune   `mapstructure:"delimiter"`
	Encoding  string `mapstructure:"encoding"`
}

// Supported encodings for delimited text.
const (
	EncodingUTF8   = "utf-8"
	EncodingLatin1 = "latin-1"
)

// LoaderConfig holds configuration for table loading
type LoaderConfig struct {
	// ScanWindow is how many leading rows header discovery may inspect.
	ScanWindow int `mapstructure:"scan_window"`
	// MinHeaderCells is the fewest non-empty cells a header row may have.
	MinHeaderCells int `mapstructure:"min_header_cells"`
	// HeaderKeywords mark a row as the header when any cell contains one.
	HeaderKeywords []string `mapstructure:"header_keywords"`
	// FooterMarkers drop trailer rows whose first cell contains one.
	FooterMarkers []string `mapstructure:"footer_markers"`
	// Attempts are tried in order for delimited text.
	Attempts []Attempt `mapstructure:"-"`
	// Recognition decides whether a delimited attempt produced real columns.
	Recognition []Synonyms `mapstructure:"-"`
}

// DefaultHeaderKeywords are date-like, value-like and status-like terms.
var DefaultHeaderKeywords = []string{
	"data", "date", "dt.", "valor", "value", "amount", "bruto", "liquido", "status", "situacao",
}

// DefaultFooterMarkers identify report trailer rows.
var DefaultFooterMarkers = []string{
	"total", "emitido por", "issued by", "razao social", "company name", "gerado em", "generated on",
}

// DefaultAttempts is semicolon before comma, UTF-8 before Latin-1.
var DefaultAttempts = []Attempt{
	{Delimiter: ';', Encoding: EncodingUTF8},
	{Delimiter: ';', Encoding: EncodingLatin1},
	{Delimiter: ',', Encoding: EncodingUTF8},
	{Delimiter: ',', Encoding: EncodingLatin1},
	{Delimiter: '\t', Encoding: EncodingUTF8},
}

// DefaultRecognition is used when the caller does not supply the operator registry's synonyms.
var DefaultRecognition = []Synonyms{
	{"data", "data da venda", "data da transação", "data de venda", "date", "data do lançamento", "data mov."},
	{"valor", "valor bruto", "valor da venda", "amount", "value", "valor total"},
	{"status", "situação", "status da venda"},
}

// DefaultLoaderConfig returns a configuration with standard defaults
func DefaultLoaderConfig() *LoaderConfig {
	return &LoaderConfig{
		ScanWindow:     60,
		MinHeaderCells: 2,
		HeaderKeywords: append([]string(nil), DefaultHeaderKeywords...),
		FooterMarkers:  append([]string(nil), DefaultFooterMarkers...),
		Attempts:       append([]Attempt(nil), DefaultAttempts...),
		Recognition:    append([]Synonyms(nil), DefaultRecognition...),
	}
}

// Validate checks if the loader configuration is valid
func (c *LoaderConfig) Validate() error {
	if c.ScanWindow <= 0 {
		return fmt.Errorf("scan window must be positive, got %d", c.ScanWindow)
	}
	if c.MinHeaderCells < 1 {
		return fmt.Errorf("min header cells must be at least 1, got %d", c.MinHeaderCells)
	}
	if len(c.HeaderKeywords) == 0 {
		return fmt.Errorf("at least one header keyword is required")
	}
	if len(c.Attempts) == 0 {
		return fmt.Errorf("at least one delimited attempt is required")
	}
	for _, a := range c.Attempts {
		if a.Encoding != EncodingUTF8 && a.Encoding != EncodingLatin1 {
			return fmt.Errorf("unsupported encoding %q", a.Encoding)
		}
		if a.Delimiter == 0 || a.Delimiter == '"' || a.Delimiter == '\n' || a.Delimiter == '\r' {
			return fmt.Errorf("invalid delimiter %q", a.Delimiter)
		}
	}
	return nil
}
