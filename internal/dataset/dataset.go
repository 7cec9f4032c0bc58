// Package dataset loads observed time-series tables from CSV. The
// expected shape is a header row naming each column, a time column with
// strictly increasing values, and numeric data throughout. The first
// row supplies the baseline values for baseline-relative model terms.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strconv"
)

var (
	// ErrNoHeader indicates an empty file.
	ErrNoHeader = errors.New("dataset: missing header row")

	// ErrNoRows indicates a header with no data rows.
	ErrNoRows = errors.New("dataset: no data rows")

	// ErrUnknownColumn indicates a column name not present in the header.
	ErrUnknownColumn = errors.New("dataset: unknown column")

	// ErrTimeOrder indicates time values not strictly increasing.
	ErrTimeOrder = errors.New("dataset: time column not strictly increasing")
)

// Table is a loaded observation table, read-only after Load.
type Table struct {
	Times   []float64
	columns map[string][]float64
	names   []string
}

// Load reads the CSV at path, using timeColumn as the time index.
func Load(path, timeColumn string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("dataset: %w", err)
	}
	return parse(records, timeColumn)
}

func parse(records [][]string, timeColumn string) (*Table, error) {
	if len(records) == 0 {
		return nil, ErrNoHeader
	}
	header := records[0]
	if len(records) < 2 {
		return nil, ErrNoRows
	}

	timeIdx := -1
	for i, name := range header {
		if name == timeColumn {
			timeIdx = i
			break
		}
	}
	if timeIdx < 0 {
		return nil, fmt.Errorf("%w: time column %q", ErrUnknownColumn, timeColumn)
	}

	t := &Table{columns: make(map[string][]float64)}
	for i, name := range header {
		if i == timeIdx {
			continue
		}
		t.names = append(t.names, name)
		t.columns[name] = make([]float64, 0, len(records)-1)
	}

	for rowIdx, rec := range records[1:] {
		if len(rec) != len(header) {
			return nil, fmt.Errorf("dataset: row %d has %d fields, header has %d",
				rowIdx+1, len(rec), len(header))
		}
		for i, cell := range rec {
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("dataset: row %d column %q: %w", rowIdx+1, header[i], err)
			}
			if i == timeIdx {
				if n := len(t.Times); n > 0 && v <= t.Times[n-1] {
					return nil, fmt.Errorf("%w: row %d", ErrTimeOrder, rowIdx+1)
				}
				t.Times = append(t.Times, v)
			} else {
				t.columns[header[i]] = append(t.columns[header[i]], v)
			}
		}
	}

	return t, nil
}

// Columns lists the data column names in header order.
func (t *Table) Columns() []string { return t.names }

// Column returns the named series, aligned with Times.
func (t *Table) Column(name string) ([]float64, error) {
	col, ok := t.columns[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, name)
	}
	return col, nil
}

// Baseline returns the first-row value of the named column.
func (t *Table) Baseline(name string) (float64, error) {
	col, err := t.Column(name)
	if err != nil {
		return 0, err
	}
	return col[0], nil
}

// Len is the number of data rows.
func (t *Table) Len() int { return len(t.Times) }
