package action

import (
	"fmt"
	"math/rand"

	"praxis/internal/attr"
	"praxis/internal/dist"
)

// Runtime binds one model to one attribute bundle. Each session evaluation
// and each simulating agent owns a private runtime.
type Runtime struct {
	model  Model
	bundle *attr.Bundle
}

func NewRuntime(m Model) (*Runtime, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	bundle, err := attr.NewBundle(m.Schema)
	if err != nil {
		return nil, err
	}
	return &Runtime{model: m, bundle: bundle}, nil
}

func (r *Runtime) Model() Model {
	return r.model
}

func (r *Runtime) Bundle() *attr.Bundle {
	return r.bundle
}

// Reset restores all states to their initial values (resolving
// parameter-linked initials against the current parameters).
func (r *Runtime) Reset() {
	r.bundle.Reset()
}

// Step converts one observation row into named values, invokes the step
// function, and checks the returned distributions against the declared
// action families.
func (r *Runtime) Step(obsRow []float64) ([]dist.Distribution, error) {
	specs := r.model.Schema.Observations
	if len(obsRow) != len(specs) {
		return nil, fmt.Errorf("model %s expects %d observations, got %d", r.model.Name, len(specs), len(obsRow))
	}
	obs := make(map[string]attr.Value, len(specs))
	for i, spec := range specs {
		switch spec.Kind {
		case attr.Int:
			obs[spec.Name] = attr.IntValue(int(obsRow[i]))
		case attr.Real:
			obs[spec.Name] = attr.FloatValue(obsRow[i])
		default:
			return nil, fmt.Errorf("observation %s: unsupported kind %s", spec.Name, spec.Kind)
		}
	}

	dists, err := r.model.Step(r.bundle, obs)
	if err != nil {
		return nil, err
	}
	if len(dists) != len(r.model.Schema.Actions) {
		return nil, fmt.Errorf("model %s returned %d distributions for %d actions", r.model.Name, len(dists), len(r.model.Schema.Actions))
	}
	for i, d := range dists {
		want := r.model.Schema.Actions[i].Family
		if d == nil {
			return nil, fmt.Errorf("action %s: step returned nil distribution", r.model.Schema.Actions[i].Name)
		}
		if d.Support() != want {
			return nil, fmt.Errorf("action %s: declared %s but step returned %s", r.model.Schema.Actions[i].Name, want, d.Support())
		}
	}
	return dists, nil
}

// StoreAction records the realized value of the i-th action on the bundle
// so step functions that depend on their previous action observe it.
func (r *Runtime) StoreAction(i int, value float64) error {
	if i < 0 || i >= len(r.model.Schema.Actions) {
		return fmt.Errorf("action index %d out of range", i)
	}
	spec := r.model.Schema.Actions[i]
	switch spec.Kind {
	case attr.Int:
		return r.bundle.SetAction(spec.Name, attr.IntValue(int(value)))
	case attr.Real:
		return r.bundle.SetAction(spec.Name, attr.FloatValue(value))
	default:
		return fmt.Errorf("action %s: unsupported kind %s for scalar store", spec.Name, spec.Kind)
	}
}

// SampleAction draws one realized value from the i-th returned distribution.
func SampleAction(d dist.Distribution, r *rand.Rand) (float64, error) {
	switch dd := d.(type) {
	case dist.Continuous:
		return dd.Sample(r), nil
	case dist.Discrete:
		return float64(dd.Sample(r)), nil
	default:
		return 0, fmt.Errorf("%s distributions cannot be reduced to one action value", d.Support())
	}
}
