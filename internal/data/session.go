package data

import (
	"fmt"
	"strconv"
	"strings"
)

// Maybe is one action cell: a value or an explicit missing marker.
type Maybe struct {
	Value float64
	Valid bool
}

func Some(v float64) Maybe {
	return Maybe{Value: v, Valid: true}
}

func None() Maybe {
	return Maybe{}
}

// Session is one independent observation/action sequence sharing one
// parameter vector. Immutable once built.
type Session struct {
	ID           string
	GroupValues  []string
	Observations [][]float64
	Actions      [][]Maybe
}

// BatchSpec names which dataset columns are observations, actions, and
// grouping keys.
type BatchSpec struct {
	Observations []string
	Actions      []string
	Groups       []string
}

// BuildSessions splits a table into sessions keyed by the distinct
// combinations of grouping-column values, in order of first appearance.
// It also returns a session-level table (the first row of each session)
// used to build regression design matrices.
func BuildSessions(t Table, spec BatchSpec) ([]Session, Table, error) {
	if len(spec.Groups) == 0 {
		return nil, Table{}, fmt.Errorf("at least one grouping column is required")
	}
	if len(spec.Actions) == 0 {
		return nil, Table{}, fmt.Errorf("at least one action column is required")
	}
	obsIdx, err := columnIndexes(t, spec.Observations)
	if err != nil {
		return nil, Table{}, err
	}
	actIdx, err := columnIndexes(t, spec.Actions)
	if err != nil {
		return nil, Table{}, err
	}
	groupIdx, err := columnIndexes(t, spec.Groups)
	if err != nil {
		return nil, Table{}, err
	}

	order := make([]string, 0)
	byKey := make(map[string]*Session)
	firstRows := make(map[string][]string)

	for rowNum, row := range t.Rows {
		groupVals := make([]string, len(groupIdx))
		for i, gi := range groupIdx {
			groupVals[i] = row[gi]
		}
		key := strings.Join(groupVals, "_")

		s, ok := byKey[key]
		if !ok {
			s = &Session{ID: key, GroupValues: groupVals}
			byKey[key] = s
			order = append(order, key)
			firstRows[key] = row
		}

		obs := make([]float64, len(obsIdx))
		for i, oi := range obsIdx {
			v, err := strconv.ParseFloat(strings.TrimSpace(row[oi]), 64)
			if err != nil {
				return nil, Table{}, fmt.Errorf("row %d: observation column %s: %q is not numeric", rowNum+1, spec.Observations[i], row[oi])
			}
			obs[i] = v
		}
		acts := make([]Maybe, len(actIdx))
		for i, ai := range actIdx {
			cell, err := parseActionCell(row[ai])
			if err != nil {
				return nil, Table{}, fmt.Errorf("row %d: action column %s: %w", rowNum+1, spec.Actions[i], err)
			}
			acts[i] = cell
		}
		s.Observations = append(s.Observations, obs)
		s.Actions = append(s.Actions, acts)
	}

	sessions := make([]Session, 0, len(order))
	sessionRows := make([][]string, 0, len(order))
	for _, key := range order {
		sessions = append(sessions, *byKey[key])
		sessionRows = append(sessionRows, firstRows[key])
	}
	return sessions, Table{Columns: t.Columns, Rows: sessionRows}, nil
}

func parseActionCell(raw string) (Maybe, error) {
	cell := strings.TrimSpace(raw)
	switch strings.ToLower(cell) {
	case "", "na", "nan", "missing":
		return None(), nil
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return Maybe{}, fmt.Errorf("%q is not numeric", raw)
	}
	return Some(v), nil
}

func columnIndexes(t Table, names []string) ([]int, error) {
	out := make([]int, len(names))
	for i, name := range names {
		idx, ok := t.ColumnIndex(name)
		if !ok {
			return nil, fmt.Errorf("dataset is missing column %s", name)
		}
		out[i] = idx
	}
	return out, nil
}
