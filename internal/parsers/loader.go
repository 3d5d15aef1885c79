package parsers

import (
	stderrors "errors"
	"path/filepath"
	"strings"

	"golang-ledger-reconciler/pkg/errors"
	"golang-ledger-reconciler/pkg/logger"
)

// Loader turns a named byte stream into a RawTable.
type Loader struct {
	config *LoaderConfig
	logger logger.Logger
}

// NewLoader creates a Loader with the given configuration
func NewLoader(config *LoaderConfig) (*Loader, error) {
	if config == nil {
		config = DefaultLoaderConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "loader", err.Error(), err)
	}

	log := logger.GetGlobalLogger().WithComponent("loader")
	log.WithFields(logger.Fields{
		"scan_window": config.ScanWindow,
		"attempts":    len(config.Attempts),
	}).Debug("Created loader")

	return &Loader{config: config, logger: log}, nil
}

// Load decodes data according to the extension of name. A file that cannot
// be read returns a *errors.ReconcilerError; callers skip it.
func (l *Loader) Load(name string, data []byte) (*RawTable, error) {
	ext := strings.ToLower(filepath.Ext(name))
	log := l.logger.WithField("file", name)

	var (
		table *RawTable
		err   error
	)
	switch ext {
	case ".csv", ".txt":
		table, err = l.loadDelimited(name, data)
	case ".xlsx", ".xlsm":
		table, err = l.loadSpreadsheet(name, data, FormatXLSX)
	case ".xls":
		table, err = l.loadSpreadsheet(name, data, FormatXLS)
	default:
		return nil, errors.UnrecognizedFormatError(name, ext, nil)
	}
	if err != nil {
		log.WithError(err).Warn("File could not be loaded")
		return nil, err
	}

	log.WithFields(logger.Fields{
		"format":     table.Format,
		"header_row": table.HeaderRow,
		"columns":    table.Width(),
		"rows":       len(table.Rows),
	}).Debug("Loaded table")
	return table, nil
}

// loadDelimited tries each attempt in order. The first attempt whose header
// carries a recognized column wins; otherwise the first attempt that split
// into more than one column is used.
func (l *Loader) loadDelimited(name string, data []byte) (*RawTable, error) {
	var fallback *RawTable
	var lastErr error
	encodingFailures, empty := 0, 0

	for _, attempt := range l.config.Attempts {
		records, err := readDelimited(data, attempt)
		if err != nil {
			lastErr = err
			switch {
			case stderrors.Is(err, errInvalidUTF8):
				encodingFailures++
			case stderrors.Is(err, errNoRecords):
				empty++
			}
			l.logger.WithFields(logger.Fields{
				"file":      name,
				"delimiter": string(attempt.Delimiter),
				"encoding":  attempt.Encoding,
			}).WithError(err).Debug("Delimited attempt failed")
			continue
		}
		if maxWidth(records) < 2 {
			continue
		}

		table := l.buildTable(name, records)
		table.Format = FormatDelimited
		table.Delimiter = attempt.Delimiter
		table.Encoding = attempt.Encoding

		if l.recognized(table) {
			return table, nil
		}
		if fallback == nil && table.Width() > 1 {
			fallback = table
		}
	}

	if fallback != nil {
		l.logger.WithFields(logger.Fields{
			"file":      name,
			"delimiter": string(fallback.Delimiter),
			"encoding":  fallback.Encoding,
		}).Debug("No attempt recognized; using first parse with multiple columns")
		return fallback, nil
	}
	switch n := len(l.config.Attempts); {
	case encodingFailures == n:
		return nil, errors.ParseError(errors.CodeEncodingError, name, lastErr)
	case empty == n:
		return nil, errors.ParseError(errors.CodeInvalidData, name, lastErr)
	}
	return nil, errors.UnrecognizedFormatError(name, filepath.Ext(name), lastErr)
}

func (l *Loader) loadSpreadsheet(name string, data []byte, format Format) (*RawTable, error) {
	var (
		sheets []sheet
		err    error
	)
	if format == FormatXLS {
		sheets, err = readXLS(data)
	} else {
		sheets, err = readXLSX(data)
	}
	if err != nil {
		return nil, errors.FileError(errors.CodeFileCorrupted, name, err)
	}

	for _, s := range sheets {
		if idx, ok := FindHeaderRow(s.rows, l.config.HeaderKeywords, l.config.ScanWindow, l.config.MinHeaderCells); ok {
			table := newRawTable(name, s.rows, idx, l.config.FooterMarkers)
			table.Format = format
			return table, nil
		}
	}

	for _, s := range sheets {
		if first := firstNonBlank(s.rows); first >= 0 {
			table := newRawTable(name, s.rows, first, l.config.FooterMarkers)
			table.Format = format
			return table, nil
		}
	}
	return nil, errors.ParseError(errors.CodeInvalidData, name, nil).
		WithContext("format", string(format))
}

// buildTable applies header discovery to records, falling back to the first row.
func (l *Loader) buildTable(name string, records [][]string) *RawTable {
	idx, ok := FindHeaderRow(records, l.config.HeaderKeywords, l.config.ScanWindow, l.config.MinHeaderCells)
	if !ok {
		idx = max(firstNonBlank(records), 0)
	}
	return newRawTable(name, records, idx, l.config.FooterMarkers)
}

func (l *Loader) recognized(t *RawTable) bool {
	for _, syn := range l.config.Recognition {
		if _, ok := ResolveColumn(t, syn); ok {
			return true
		}
	}
	return false
}

func firstNonBlank(rows [][]string) int {
	for i, row := range rows {
		if !isBlankRow(row) {
			return i
		}
	}
	return -1
}
