// Package attr defines the typed attribute containers an action model is
// made of: parameter, state, observation, and action specs on the schema
// side, and mutable value bundles instantiated from a schema on the runtime
// side. Values hold diff.Scalar cells, so one bundle serves both plain
// simulation and taped fitting without separate instantiations.
package attr

import (
	"fmt"

	"praxis/internal/dist"
)

// Kind is the semantic type of an attribute cell.
type Kind int

const (
	Real Kind = iota
	Int
	RealVector
)

func (k Kind) String() string {
	switch k {
	case Real:
		return "real"
	case Int:
		return "int"
	case RealVector:
		return "real vector"
	default:
		return "unknown"
	}
}

// ParameterSpec declares one parameter. A non-empty SeedsState marks it as
// an initial-state parameter: reset copies its current value into the named
// state.
type ParameterSpec struct {
	Name          string
	Kind          Kind
	Default       float64
	DefaultVector []float64
	SeedsState    string
}

// StateSpec declares one state cell. HasInitial marks a fixed initial value;
// states seeded by a parameter leave it unset.
type StateSpec struct {
	Name          string
	Kind          Kind
	Initial       float64
	InitialVector []float64
	HasInitial    bool
}

// ObservationSpec declares one observation column the step function reads.
type ObservationSpec struct {
	Name string
	Kind Kind
}

// ActionSpec declares one action and the distribution family it is drawn
// from. The kind must match the family's support.
type ActionSpec struct {
	Name   string
	Kind   Kind
	Family dist.Support
}

// Submodel nests a self-contained schema (e.g. a reusable learning rule)
// under a name. Attribute lookups fall through to it.
type Submodel struct {
	Name   string
	Schema Schema
}

// Schema is the immutable attribute layout of one action model.
type Schema struct {
	Parameters   []ParameterSpec
	States       []StateSpec
	Observations []ObservationSpec
	Actions      []ActionSpec
	Submodel     *Submodel
}

// Validate checks the schema invariants: unique names, initial-state
// parameters referencing an existing state of the same kind, and action
// kinds agreeing with their distribution family.
func (s Schema) Validate() error {
	seen := make(map[string]struct{})
	claim := func(name, what string) error {
		if name == "" {
			return fmt.Errorf("%s name is required", what)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("duplicate attribute name: %s", name)
		}
		seen[name] = struct{}{}
		return nil
	}

	states := make(map[string]StateSpec, len(s.States))
	for _, st := range s.States {
		if err := claim(st.Name, "state"); err != nil {
			return err
		}
		states[st.Name] = st
	}
	for _, p := range s.Parameters {
		if err := claim(p.Name, "parameter"); err != nil {
			return err
		}
		if p.SeedsState == "" {
			continue
		}
		st, ok := states[p.SeedsState]
		if !ok {
			return fmt.Errorf("initial-state parameter %s references unknown state %s", p.Name, p.SeedsState)
		}
		if st.Kind != p.Kind {
			return fmt.Errorf("initial-state parameter %s is %s but state %s is %s", p.Name, p.Kind, st.Name, st.Kind)
		}
		if st.HasInitial {
			return fmt.Errorf("state %s has both a fixed initial value and seeding parameter %s", st.Name, p.Name)
		}
	}
	for _, o := range s.Observations {
		if err := claim(o.Name, "observation"); err != nil {
			return err
		}
	}
	for _, a := range s.Actions {
		if err := claim(a.Name, "action"); err != nil {
			return err
		}
		if err := checkActionFamily(a); err != nil {
			return err
		}
	}
	if s.Submodel != nil {
		if s.Submodel.Name == "" {
			return fmt.Errorf("submodel name is required")
		}
		if err := s.Submodel.Schema.Validate(); err != nil {
			return fmt.Errorf("submodel %s: %w", s.Submodel.Name, err)
		}
	}
	return nil
}

func checkActionFamily(a ActionSpec) error {
	var want Kind
	switch a.Family {
	case dist.ContinuousUnivariate:
		want = Real
	case dist.DiscreteUnivariate:
		want = Int
	case dist.ContinuousMultivariate, dist.DiscreteMultivariate:
		want = RealVector
	default:
		return fmt.Errorf("action %s: unknown distribution family", a.Name)
	}
	if a.Kind != want {
		return fmt.Errorf("action %s is %s but its %s family produces %s values", a.Name, a.Kind, a.Family, want)
	}
	return nil
}
