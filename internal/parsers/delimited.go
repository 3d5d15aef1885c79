package parsers

import (
	"bytes"
	"encoding/csv"
	stderrors "errors"
	"fmt"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

const utf8BOM = "\ufeff"

var (
	errInvalidUTF8 = stderrors.New("invalid UTF-8 encoding detected")
	errNoRecords   = stderrors.New("no records")
)

// readDelimited decodes data with one attempt and returns every record.
// Invalid UTF-8 under a UTF-8 attempt is an error so the caller falls
// through to the next attempt.
func readDelimited(data []byte, attempt Attempt) ([][]string, error) {
	data = bytes.TrimPrefix(data, []byte(utf8BOM))

	var src io.Reader
	switch attempt.Encoding {
	case EncodingUTF8:
		if !utf8.Valid(data) {
			return nil, errInvalidUTF8
		}
		src = bytes.NewReader(data)
	case EncodingLatin1:
		src = transform.NewReader(bytes.NewReader(data), charmap.ISO8859_1.NewDecoder())
	default:
		return nil, fmt.Errorf("unsupported encoding %q", attempt.Encoding)
	}

	reader := csv.NewReader(src)
	reader.Comma = attempt.Delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	var records [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", len(records)+1, err)
		}
		records = append(records, record)
	}

	if len(records) == 0 {
		return nil, errNoRecords
	}
	return records, nil
}

// maxWidth returns the widest record, used to reject attempts that did not split.
func maxWidth(records [][]string) int {
	width := 0
	for _, r := range records {
		if len(r) > width {
			width = len(r)
		}
	}
	return width
}
