package parsers

import (
	"bytes"
	"fmt"
	"os"

	"github.com/shakinm/xlsReader/xls"
	"github.com/xuri/excelize/v2"
)

// sheet is one worksheet's cells as text.
type sheet struct {
	name string
	rows [][]string
}

// readXLSX returns every worksheet. Cell values are raw, so dates arrive
// as Excel serial numbers and amounts without display formatting.
func readXLSX(data []byte) ([]sheet, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var sheets []sheet
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("sheet %s: %w", name, err)
		}
		sheets = append(sheets, sheet{name: name, rows: rows})
	}
	return sheets, nil
}

// readXLS decodes a legacy BIFF workbook. The reader only opens paths, so the
// bytes go through a temporary file.
func readXLS(data []byte) ([]sheet, error) {
	tmp, err := os.CreateTemp("", "reconciler-*.xls")
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, err
	}

	workbook, err := xls.OpenFile(tmp.Name())
	if err != nil {
		return nil, err
	}

	var sheets []sheet
	for i := 0; i < workbook.GetNumberSheets(); i++ {
		ws, err := workbook.GetSheet(i)
		if err != nil || ws == nil {
			continue
		}

		var rows [][]string
		for r := 0; r <= int(ws.GetNumberRows()); r++ {
			row, err := ws.GetRow(r)
			if err != nil || row == nil {
				continue
			}
			var cells []string
			for _, col := range row.GetCols() {
				if col == nil {
					cells = append(cells, "")
					continue
				}
				cells = append(cells, col.GetString())
			}
			rows = append(rows, cells)
		}
		sheets = append(sheets, sheet{name: fmt.Sprintf("sheet%d", i+1), rows: rows})
	}

	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no readable sheets")
	}
	return sheets, nil
}
