package parsers

import "strings"

// Format identifies how a table was decoded.
type Format string

const (
	FormatDelimited Format = "delimited"
	FormatXLSX      Format = "xlsx"
	FormatXLS       Format = "xls"
)

// RawTable is a rectangular table with a discovered header row.
// Every row has exactly len(Headers) cells.
type RawTable struct {
	Name    string
	Headers []string
	Rows    [][]string

	Format    Format
	Delimiter rune
	Encoding  string
	// HeaderRow is the zero-based source row the header was found on.
	HeaderRow int
}

// ColumnRef points at one resolved column of a RawTable.
type ColumnRef struct {
	Index  int
	Header string
}

// Synonyms is an ordered list of acceptable header names for one logical column.
type Synonyms []string

// Width returns the number of columns.
func (t *RawTable) Width() int {
	return len(t.Headers)
}

// Cell returns the trimmed value of row r at column c.
func (t *RawTable) Cell(r int, c ColumnRef) string {
	if r < 0 || r >= len(t.Rows) || c.Index < 0 || c.Index >= len(t.Rows[r]) {
		return ""
	}
	return strings.TrimSpace(t.Rows[r][c.Index])
}

// newRawTable builds a table from source rows: rows above headerRow are
// discarded, empty-header columns dropped, footer and blank rows removed.
func newRawTable(name string, rows [][]string, headerRow int, footerMarkers []string) *RawTable {
	header := rows[headerRow]
	keep := make([]int, 0, len(header))
	headers := make([]string, 0, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, utf8BOM))
		if h == "" {
			continue
		}
		keep = append(keep, i)
		headers = append(headers, h)
	}

	body := make([][]string, 0, len(rows)-headerRow-1)
	for _, row := range rows[headerRow+1:] {
		if isBlankRow(row) || isFooterRow(row, footerMarkers) {
			continue
		}
		out := make([]string, len(keep))
		for j, idx := range keep {
			if idx < len(row) {
				out[j] = row[idx]
			}
		}
		if isBlankRow(out) {
			continue
		}
		body = append(body, out)
	}

	return &RawTable{
		Name:      name,
		Headers:   headers,
		Rows:      body,
		HeaderRow: headerRow,
	}
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// isFooterRow matches markers against the first non-empty cell, so an
// indented trailer row is still caught.
func isFooterRow(row []string, markers []string) bool {
	first := ""
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			first = cell
			break
		}
	}
	folded := Fold(first)
	if folded == "" {
		return false
	}
	for _, marker := range markers {
		if strings.Contains(folded, Fold(marker)) {
			return true
		}
	}
	return false
}
