// Package agent drives one action model forward in simulation: feed it
// observations, sample its actions, and keep an append-only history of the
// visited states and realized actions.
package agent

import (
	"fmt"
	"math/rand"

	"praxis/internal/action"
	"praxis/internal/attr"
	"praxis/internal/dist"
)

// Agent owns a private runtime and rand source. It is not safe for
// concurrent use; simulate cohorts with one agent per goroutine.
type Agent struct {
	rt    *action.Runtime
	r     *rand.Rand
	track []string

	stateNames []string
	states     [][]float64
	actions    [][]attr.Value
}

// New builds an agent for the model with a seeded rand source. Track
// restricts which states the history records; empty means all.
func New(m action.Model, seed int64, track ...string) (*Agent, error) {
	rt, err := action.NewRuntime(m)
	if err != nil {
		return nil, err
	}
	a := &Agent{
		rt:    rt,
		r:     rand.New(rand.NewSource(seed)),
		track: track,
	}
	if err := a.Reset(); err != nil {
		return nil, err
	}
	return a, nil
}

// SetParameters writes parameter values without resetting; call Reset to
// re-seed parameter-linked initial states from the new values.
func (a *Agent) SetParameters(values map[string]attr.Value) error {
	return a.rt.Bundle().SetParameters(values)
}

// Parameter reads one current parameter value.
func (a *Agent) Parameter(name string) (attr.Value, error) {
	return a.rt.Bundle().GetParameter(name)
}

// State reads one current state value.
func (a *Agent) State(name string) (attr.Value, error) {
	return a.rt.Bundle().GetState(name)
}

// Reset restores all states to their initial values and starts a fresh
// history whose first snapshot is the reset state.
func (a *Agent) Reset() error {
	a.rt.Reset()
	names, err := a.rt.Bundle().TrackedStateNames(a.track)
	if err != nil {
		return err
	}
	a.stateNames = names
	a.states = nil
	a.actions = nil
	return a.snapshot()
}

// Observe feeds one observation row through the model and samples one value
// per declared action.
func (a *Agent) Observe(obs []float64) ([]attr.Value, error) {
	dists, err := a.rt.Step(obs)
	if err != nil {
		return nil, err
	}

	specs := a.rt.Model().Schema.Actions
	values := make([]attr.Value, len(dists))
	for i, d := range dists {
		v, err := sampleValue(specs[i], d, a.r)
		if err != nil {
			return nil, fmt.Errorf("action %s: %w", specs[i].Name, err)
		}
		if err := a.rt.Bundle().SetAction(specs[i].Name, v); err != nil {
			return nil, err
		}
		values[i] = v
	}

	a.actions = append(a.actions, values)
	if err := a.snapshot(); err != nil {
		return nil, err
	}
	return values, nil
}

// Simulate runs a whole observation sequence, returning one action row per
// timestep.
func (a *Agent) Simulate(obs [][]float64) ([][]attr.Value, error) {
	out := make([][]attr.Value, 0, len(obs))
	for t, row := range obs {
		values, err := a.Observe(row)
		if err != nil {
			return nil, fmt.Errorf("timestep %d: %w", t, err)
		}
		out = append(out, values)
	}
	return out, nil
}

// History returns the tracked state names and one snapshot per visited
// state: the reset state plus one per observation.
func (a *Agent) History() ([]string, [][]float64) {
	return a.stateNames, a.states
}

// Actions returns the realized action rows since the last reset.
func (a *Agent) Actions() [][]attr.Value {
	return a.actions
}

func (a *Agent) snapshot() error {
	values, err := a.rt.Bundle().TrackedStateValues(a.track)
	if err != nil {
		return err
	}
	a.states = append(a.states, values)
	return nil
}

// sampleValue realizes one action value of the declared kind. Multivariate
// families are simulation-only; fitting conditions on scalar columns.
func sampleValue(spec attr.ActionSpec, d dist.Distribution, r *rand.Rand) (attr.Value, error) {
	switch dd := d.(type) {
	case dist.Continuous:
		return attr.FloatValue(dd.Sample(r)), nil
	case dist.Discrete:
		return attr.IntValue(dd.Sample(r)), nil
	case dist.MultiContinuous:
		return attr.FloatVectorValue(dd.SampleVec(r)), nil
	default:
		return attr.Value{}, fmt.Errorf("cannot sample a %s distribution", d.Support())
	}
}
