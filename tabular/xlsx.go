//go:build !noxlsx

package tabular

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// readXLSX reads the configured sheet, or every sheet when none is set. The
// first row of each sheet is the header; blank header cells become
// column_N (1-based position).
func readXLSX(path string, cfg Config) ([]Record, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("xlsx %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if cfg.XLSXSheetName != "" {
		sheets = []string{cfg.XLSXSheetName}
	}

	var records []Record
	for _, sheet := range sheets {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("xlsx %s sheet %s: %w", path, sheet, err)
		}
		if len(rows) == 0 {
			continue
		}

		header := make([]string, len(rows[0]))
		for i, cell := range rows[0] {
			name := strings.TrimSpace(cell)
			if name == "" {
				name = fmt.Sprintf("column_%d", i+1)
			}
			header[i] = name
		}

		for _, row := range rows[1:] {
			if isBlankRow(row) {
				continue
			}
			record := make(Record, len(header))
			for i, cell := range row {
				if i >= len(header) {
					break
				}
				record[header[i]] = cell
			}
			records = append(records, record)
		}
	}
	return records, nil
}
