package data

import "fmt"

// Evert turns a sequence of k-tuples into k parallel sequences. Every row
// must have the same arity.
func Evert[T any](rows [][]T) ([][]T, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	k := len(rows[0])
	cols := make([][]T, k)
	for i := range cols {
		cols[i] = make([]T, len(rows))
	}
	for r, row := range rows {
		if len(row) != k {
			return nil, fmt.Errorf("row %d has arity %d, expected %d", r, len(row), k)
		}
		for c, v := range row {
			cols[c][r] = v
		}
	}
	return cols, nil
}

// Revert is the inverse of Evert: k parallel sequences back into a sequence
// of k-tuples. Every column must have the same length.
func Revert[T any](cols [][]T) ([][]T, error) {
	if len(cols) == 0 {
		return nil, nil
	}
	n := len(cols[0])
	for c, col := range cols {
		if len(col) != n {
			return nil, fmt.Errorf("column %d has length %d, expected %d", c, len(col), n)
		}
	}
	rows := make([][]T, n)
	for r := range rows {
		row := make([]T, len(cols))
		for c := range cols {
			row[c] = cols[c][r]
		}
		rows[r] = row
	}
	return rows, nil
}
