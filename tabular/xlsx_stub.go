//go:build noxlsx

package tabular

import "fmt"

func readXLSX(path string, _ Config) ([]Record, error) {
	return nil, fmt.Errorf("%w: xlsx support not compiled in (rebuild without the noxlsx tag)", ErrCodecUnavailable)
}
