// Package tabular reads the outreach activity log and persists the learning
// store as CSV.
package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/TobiSchelling/learnloop/internal/normalize"
)

// ErrNoActivities is returned when the activity log does not exist.
var ErrNoActivities = errors.New("activity log not found")

// ReadActivities reads every row of the activity log at path. Short rows are
// padded with empty cells; rows wider than the header are a hard error.
func ReadActivities(path string) ([]normalize.Record, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNoActivities, path)
	}
	if err != nil {
		return nil, fmt.Errorf("opening activity log: %w", err)
	}
	defer f.Close()

	rows, err := readTable(f)
	if err != nil {
		return nil, fmt.Errorf("reading activity log %s: %w", path, err)
	}
	return rows, nil
}

// readTable parses a header row followed by data rows into column maps.
func readTable(r io.Reader) ([]normalize.Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	var rows []normalize.Record
	for line := 2; ; line++ {
		cells, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(cells) > len(header) {
			return nil, fmt.Errorf("row %d: expected %d fields, saw %d", line, len(header), len(cells))
		}
		rec := make(normalize.Record, len(header))
		for i, col := range header {
			if i < len(cells) {
				rec[col] = cells[i]
			} else {
				rec[col] = ""
			}
		}
		rows = append(rows, rec)
	}
	return rows, nil
}
