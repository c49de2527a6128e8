package tabular

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// readJSON accepts either a top-level array of objects or a single object.
// Non-object array elements are a malformed input, not a skippable row.
func readJSON(path string, _ Config) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("json %s: %w", path, err)
	}

	switch v := raw.(type) {
	case []any:
		records := make([]Record, 0, len(v))
		for i, elem := range v {
			obj, ok := elem.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("json %s: element %d is not an object", path, i)
			}
			records = append(records, obj)
		}
		return records, nil
	case map[string]any:
		return []Record{v}, nil
	default:
		return nil, fmt.Errorf("json %s: top level must be an object or array of objects", path)
	}
}

// readJSONL reads one object per non-blank line.
func readJSONL(path string, _ Config) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var records []Record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var record Record
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			return nil, fmt.Errorf("jsonl %s line %d: %w", path, lineNo, err)
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("jsonl %s: %w", path, err)
	}
	return records, nil
}
