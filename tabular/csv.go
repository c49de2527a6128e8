package tabular

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"
)

// readCSV maps each data row against the header row. Short rows leave the
// trailing fields absent; extra cells beyond the header are dropped.
func readCSV(path string, _ Config) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("csv %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	header := rows[0]
	var records []Record
	for _, row := range rows[1:] {
		if isBlankRow(row) {
			continue
		}
		record := make(Record, len(header))
		for i, name := range header {
			if i >= len(row) {
				break
			}
			record[strings.TrimSpace(name)] = row[i]
		}
		records = append(records, record)
	}
	return records, nil
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
