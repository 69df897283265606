package fit

import (
	"sort"
	"strconv"

	"praxis/internal/data"
)

// Statistic collapses the pooled draws of one quantity to a point estimate.
type Statistic func(xs []float64) float64

func Mean(xs []float64) float64 {
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func Median(xs []float64) float64 {
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// SummarizeParameters pools samples across chains and reduces each
// (session, parameter) cell to one value.
func SummarizeParameters(d *Draws, stat Statistic) data.Table {
	t := data.Table{Columns: []string{"session", "parameter", "value"}}
	for s, sid := range d.Sessions {
		for p, pname := range d.Parameters {
			t.Rows = append(t.Rows, []string{
				sid, pname, formatFloat(stat(pool(d.Params[s][p]))),
			})
		}
	}
	return t
}

// SummarizeTrajectories pools samples across chains and reduces each
// (session, state, timestep) cell to one value. Timestep 0 is the state
// before the first observation.
func SummarizeTrajectories(d *Draws, stat Statistic) data.Table {
	t := data.Table{Columns: []string{"session", "state", "timestep", "value"}}
	for s, sid := range d.Sessions {
		for st, sname := range d.States {
			for ts := range d.Trajectories[s][st] {
				t.Rows = append(t.Rows, []string{
					sid, sname, strconv.Itoa(ts),
					formatFloat(stat(pool(d.Trajectories[s][st][ts]))),
				})
			}
		}
	}
	return t
}

func pool(cell [][]float64) []float64 {
	out := make([]float64, 0, len(cell)*len(cell[0]))
	for _, row := range cell {
		out = append(out, row...)
	}
	return out
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
