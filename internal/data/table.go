// Package data turns tabular behavioral datasets into per-session batches:
// ordered observation rows, action rows with explicit missing cells, and a
// session id derived from the grouping columns.
package data

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
)

// Table is a simple column-named grid of raw string cells.
type Table struct {
	Columns []string
	Rows    [][]string
}

// LoadCSV reads a headered CSV file into a table.
func LoadCSV(path string) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return Table{}, err
	}
	defer f.Close()
	t, err := ReadCSV(f)
	if err != nil {
		return Table{}, fmt.Errorf("read %s: %w", path, err)
	}
	return t, nil
}

// ReadCSV parses a headered CSV stream.
func ReadCSV(r io.Reader) (Table, error) {
	reader := csv.NewReader(r)
	records, err := reader.ReadAll()
	if err != nil {
		return Table{}, err
	}
	if len(records) == 0 {
		return Table{}, fmt.Errorf("csv has no header row")
	}
	return Table{Columns: records[0], Rows: records[1:]}, nil
}

// ColumnIndex returns the position of a named column.
func (t Table) ColumnIndex(name string) (int, bool) {
	for i, c := range t.Columns {
		if c == name {
			return i, true
		}
	}
	return 0, false
}

// Column returns all cells of a named column.
func (t Table) Column(name string) ([]string, bool) {
	idx, ok := t.ColumnIndex(name)
	if !ok {
		return nil, false
	}
	out := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row[idx]
	}
	return out, true
}
