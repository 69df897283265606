// Package formula parses lme4-style mixed-model formulas such as
// "learning_rate ~ 1 + age + (1|id)" and builds the fixed and random design
// matrices from a session-level covariate table.
package formula

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"praxis/internal/data"
)

// RandomTerm is one (terms | group) part of a formula.
type RandomTerm struct {
	Terms []string
	Group string
}

// Formula is a parsed regression specification for one target parameter.
type Formula struct {
	Target string
	Fixed  []string
	Random []RandomTerm
}

// Parse reads "target ~ term + term + (terms|group)". An intercept is
// implicit unless the right-hand side contains a literal 0.
func Parse(src string) (Formula, error) {
	parts := strings.SplitN(src, "~", 2)
	if len(parts) != 2 {
		return Formula{}, fmt.Errorf("formula %q: expected target ~ terms", src)
	}
	target := strings.TrimSpace(parts[0])
	if target == "" {
		return Formula{}, fmt.Errorf("formula %q: empty target", src)
	}

	f := Formula{Target: target}
	terms, err := splitTop(parts[1])
	if err != nil {
		return Formula{}, fmt.Errorf("formula %q: %w", src, err)
	}

	suppressIntercept := false
	for _, term := range terms {
		if strings.HasPrefix(term, "(") && strings.HasSuffix(term, ")") {
			rt, err := parseRandom(term[1 : len(term)-1])
			if err != nil {
				return Formula{}, fmt.Errorf("formula %q: %w", src, err)
			}
			f.Random = append(f.Random, rt)
			continue
		}
		switch term {
		case "":
			return Formula{}, fmt.Errorf("formula %q: empty term", src)
		case "0", "-1":
			suppressIntercept = true
		case "1":
			// Implicit anyway.
		default:
			f.Fixed = append(f.Fixed, term)
		}
	}
	if !suppressIntercept {
		f.Fixed = append([]string{"1"}, f.Fixed...)
	}
	if len(f.Fixed) == 0 && len(f.Random) == 0 {
		return Formula{}, fmt.Errorf("formula %q: no terms", src)
	}
	return f, nil
}

func parseRandom(src string) (RandomTerm, error) {
	halves := strings.SplitN(src, "|", 2)
	if len(halves) != 2 {
		return RandomTerm{}, fmt.Errorf("random term %q: expected terms|group", src)
	}
	group := strings.TrimSpace(halves[1])
	if group == "" {
		return RandomTerm{}, fmt.Errorf("random term %q: empty group", src)
	}
	rt := RandomTerm{Group: group}
	for _, t := range strings.Split(halves[0], "+") {
		t = strings.TrimSpace(t)
		if t == "" {
			return RandomTerm{}, fmt.Errorf("random term %q: empty term", src)
		}
		rt.Terms = append(rt.Terms, t)
	}
	return rt, nil
}

// splitTop splits on + outside parentheses.
func splitTop(src string) ([]string, error) {
	var out []string
	depth := 0
	start := 0
	for i, r := range src {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("unbalanced parentheses")
			}
		case '+':
			if depth == 0 {
				out = append(out, strings.TrimSpace(src[start:i]))
				start = i + 1
			}
		}
	}
	if depth != 0 {
		return nil, fmt.Errorf("unbalanced parentheses")
	}
	out = append(out, strings.TrimSpace(src[start:]))
	return out, nil
}

// Block is the column range one (term, group) pair occupies in Z: one
// column per group level, all sharing one deviation scale.
type Block struct {
	Group  string
	Term   string
	Levels []string
	Offset int
}

// Design holds the realized matrices for one formula over the session
// table: one row per session.
type Design struct {
	X      [][]float64
	XNames []string
	Z      [][]float64
	ZNames []string
	Blocks []Block
}

// Build realizes the design matrices. Categorical fixed predictors are
// dummy-coded against their first (sorted) level; random-term group levels
// are sorted for a stable column order.
func Build(f Formula, tab data.Table) (Design, error) {
	n := len(tab.Rows)
	if n == 0 {
		return Design{}, fmt.Errorf("formula %s: empty session table", f.Target)
	}

	d := Design{
		X: make([][]float64, n),
		Z: make([][]float64, n),
	}
	for i := range d.X {
		d.X[i] = []float64{}
		d.Z[i] = []float64{}
	}

	for _, term := range f.Fixed {
		cols, names, err := fixedColumns(term, tab)
		if err != nil {
			return Design{}, fmt.Errorf("formula %s: %w", f.Target, err)
		}
		d.XNames = append(d.XNames, names...)
		for i := range d.X {
			d.X[i] = append(d.X[i], cols[i]...)
		}
	}

	for _, rt := range f.Random {
		groupCol, ok := tab.Column(rt.Group)
		if !ok {
			return Design{}, fmt.Errorf("formula %s: grouping column %s not in dataset", f.Target, rt.Group)
		}
		levels := distinctSorted(groupCol)
		for _, term := range rt.Terms {
			weights, err := randomWeights(term, tab)
			if err != nil {
				return Design{}, fmt.Errorf("formula %s: %w", f.Target, err)
			}
			d.Blocks = append(d.Blocks, Block{
				Group:  rt.Group,
				Term:   term,
				Levels: levels,
				Offset: len(d.ZNames),
			})
			for _, lvl := range levels {
				d.ZNames = append(d.ZNames, fmt.Sprintf("%s|%s:%s", term, rt.Group, lvl))
			}
			for i := range d.Z {
				row := make([]float64, len(levels))
				for j, lvl := range levels {
					if groupCol[i] == lvl {
						row[j] = weights[i]
					}
				}
				d.Z[i] = append(d.Z[i], row...)
			}
		}
	}

	return d, nil
}

// fixedColumns expands one fixed term into per-row column segments.
func fixedColumns(term string, tab data.Table) ([][]float64, []string, error) {
	n := len(tab.Rows)
	if term == "1" {
		cols := make([][]float64, n)
		for i := range cols {
			cols[i] = []float64{1}
		}
		return cols, []string{"(Intercept)"}, nil
	}

	raw, ok := tab.Column(term)
	if !ok {
		return nil, nil, fmt.Errorf("predictor column %s not in dataset", term)
	}
	if vals, ok := numericColumn(raw); ok {
		cols := make([][]float64, n)
		for i, v := range vals {
			cols[i] = []float64{v}
		}
		return cols, []string{term}, nil
	}

	// Categorical: dummy-code against the first sorted level.
	levels := distinctSorted(raw)
	if len(levels) < 2 {
		return nil, nil, fmt.Errorf("predictor %s has a single level", term)
	}
	coded := levels[1:]
	names := make([]string, len(coded))
	for j, lvl := range coded {
		names[j] = fmt.Sprintf("%s:%s", term, lvl)
	}
	cols := make([][]float64, n)
	for i, cell := range raw {
		row := make([]float64, len(coded))
		for j, lvl := range coded {
			if cell == lvl {
				row[j] = 1
			}
		}
		cols[i] = row
	}
	return cols, names, nil
}

// randomWeights is the per-row multiplier for one random term: ones for the
// intercept, the numeric predictor value for a random slope.
func randomWeights(term string, tab data.Table) ([]float64, error) {
	n := len(tab.Rows)
	if term == "1" {
		ones := make([]float64, n)
		for i := range ones {
			ones[i] = 1
		}
		return ones, nil
	}
	raw, ok := tab.Column(term)
	if !ok {
		return nil, fmt.Errorf("random-slope column %s not in dataset", term)
	}
	vals, ok := numericColumn(raw)
	if !ok {
		return nil, fmt.Errorf("random-slope column %s must be numeric", term)
	}
	return vals, nil
}

func numericColumn(raw []string) ([]float64, bool) {
	out := make([]float64, len(raw))
	for i, cell := range raw {
		v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
		if err != nil {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}

func distinctSorted(raw []string) []string {
	seen := make(map[string]bool, len(raw))
	var out []string
	for _, cell := range raw {
		if !seen[cell] {
			seen[cell] = true
			out = append(out, cell)
		}
	}
	sort.Strings(out)
	return out
}
