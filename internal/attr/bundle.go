package attr

import (
	"errors"
	"fmt"

	"praxis/internal/diff"
)

// ErrAttributeNotFound distinguishes a bad attribute name from every other
// failure. Callers must surface it, never treat it as a value.
var ErrAttributeNotFound = errors.New("attribute not found")

type initialState struct {
	fromParameter string
	fixed         Value
	hasFixed      bool
}

// Bundle holds the current value cells for one action-model instance. One
// bundle is private to one session evaluation (or one simulating agent) and
// is mutated in place by the step function.
type Bundle struct {
	schema   Schema
	params   map[string]*Value
	states   map[string]*Value
	actions  map[string]*Value
	initials map[string]initialState
	sub      *Bundle
}

// NewBundle instantiates fresh cells from a validated schema. Parameters
// start at their defaults, states at their initial values, actions at zero.
func NewBundle(schema Schema) (*Bundle, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	return newBundleUnchecked(schema), nil
}

func newBundleUnchecked(schema Schema) *Bundle {
	b := &Bundle{
		schema:   schema,
		params:   make(map[string]*Value, len(schema.Parameters)),
		states:   make(map[string]*Value, len(schema.States)),
		actions:  make(map[string]*Value, len(schema.Actions)),
		initials: make(map[string]initialState, len(schema.States)),
	}
	for _, p := range schema.Parameters {
		v := defaultValue(p)
		b.params[p.Name] = &v
		if p.SeedsState != "" {
			b.initials[p.SeedsState] = initialState{fromParameter: p.Name}
		}
	}
	for _, st := range schema.States {
		v := zeroValue(st.Kind, len(st.InitialVector))
		b.states[st.Name] = &v
		if init, ok := b.initials[st.Name]; !ok || init.fromParameter == "" {
			b.initials[st.Name] = initialState{fixed: fixedInitial(st), hasFixed: true}
		}
	}
	for _, a := range schema.Actions {
		v := zeroValue(a.Kind, 0)
		b.actions[a.Name] = &v
	}
	if schema.Submodel != nil {
		b.sub = newBundleUnchecked(schema.Submodel.Schema)
	}
	b.resetStates()
	return b
}

func defaultValue(p ParameterSpec) Value {
	switch p.Kind {
	case Int:
		return IntValue(int(p.Default))
	case RealVector:
		return FloatVectorValue(p.DefaultVector)
	default:
		return FloatValue(p.Default)
	}
}

func fixedInitial(st StateSpec) Value {
	switch st.Kind {
	case Int:
		return IntValue(int(st.Initial))
	case RealVector:
		return FloatVectorValue(st.InitialVector)
	default:
		return FloatValue(st.Initial)
	}
}

func zeroValue(k Kind, vecLen int) Value {
	switch k {
	case Int:
		return IntValue(0)
	case RealVector:
		return VectorValue(make([]diff.Scalar, vecLen))
	default:
		return FloatValue(0)
	}
}

// Schema returns the schema the bundle was built from.
func (b *Bundle) Schema() Schema {
	return b.schema
}

// Sub returns the nested submodel bundle, or nil.
func (b *Bundle) Sub() *Bundle {
	return b.sub
}

// Reset restores every state to its initial value and every action cell to
// zero, leaving the bundle as a fresh one with the current parameters.
// Parameter-linked initial states copy the parameter's *current* value, so
// setting a parameter before reset moves the state's starting point.
// Recurses into the submodel.
func (b *Bundle) Reset() {
	b.resetStates()
	b.resetActions()
	if b.sub != nil {
		b.sub.Reset()
	}
}

func (b *Bundle) resetActions() {
	for _, a := range b.schema.Actions {
		*b.actions[a.Name] = zeroValue(a.Kind, 0)
	}
}

func (b *Bundle) resetStates() {
	for name, cell := range b.states {
		init := b.initials[name]
		if init.fromParameter != "" {
			*cell = (*b.params[init.fromParameter]).Clone()
			continue
		}
		*cell = init.fixed.Clone()
	}
}

// LoadParameters snapshots all parameters for the step function.
func (b *Bundle) LoadParameters() map[string]Value {
	return snapshot(b.params, b.sub, (*Bundle).LoadParameters)
}

// LoadStates snapshots all states for the step function.
func (b *Bundle) LoadStates() map[string]Value {
	return snapshot(b.states, b.sub, (*Bundle).LoadStates)
}

// LoadActions snapshots all actions (the previous timestep's realized
// values) for the step function.
func (b *Bundle) LoadActions() map[string]Value {
	return snapshot(b.actions, b.sub, (*Bundle).LoadActions)
}

func snapshot(local map[string]*Value, sub *Bundle, loadSub func(*Bundle) map[string]Value) map[string]Value {
	out := make(map[string]Value, len(local))
	if sub != nil {
		for name, v := range loadSub(sub) {
			out[name] = v
		}
	}
	// Local names shadow submodel names.
	for name, cell := range local {
		out[name] = cell.Clone()
	}
	return out
}

// GetParameter reads one parameter, delegating to the submodel when the
// name is not local.
func (b *Bundle) GetParameter(name string) (Value, error) {
	return b.get(name, func(bb *Bundle) map[string]*Value { return bb.params })
}

// GetState reads one state, delegating to the submodel.
func (b *Bundle) GetState(name string) (Value, error) {
	return b.get(name, func(bb *Bundle) map[string]*Value { return bb.states })
}

// GetAction reads one action, delegating to the submodel.
func (b *Bundle) GetAction(name string) (Value, error) {
	return b.get(name, func(bb *Bundle) map[string]*Value { return bb.actions })
}

func (b *Bundle) get(name string, sel func(*Bundle) map[string]*Value) (Value, error) {
	if cell, ok := sel(b)[name]; ok {
		return cell.Clone(), nil
	}
	if b.sub != nil {
		return b.sub.get(name, sel)
	}
	return Value{}, fmt.Errorf("%w: %s", ErrAttributeNotFound, name)
}

// SetParameter writes one parameter, delegating to the submodel.
func (b *Bundle) SetParameter(name string, v Value) error {
	return b.set(name, v, func(bb *Bundle) map[string]*Value { return bb.params })
}

// SetState writes one state, delegating to the submodel.
func (b *Bundle) SetState(name string, v Value) error {
	return b.set(name, v, func(bb *Bundle) map[string]*Value { return bb.states })
}

// UpdateState is the single-state mutation used inside step functions.
func (b *Bundle) UpdateState(name string, v Value) error {
	return b.SetState(name, v)
}

// SetAction records a realized action value.
func (b *Bundle) SetAction(name string, v Value) error {
	return b.set(name, v, func(bb *Bundle) map[string]*Value { return bb.actions })
}

func (b *Bundle) set(name string, v Value, sel func(*Bundle) map[string]*Value) error {
	if cell, ok := sel(b)[name]; ok {
		if cell.Kind != v.Kind {
			return fmt.Errorf("attribute %s is %s, cannot assign %s", name, cell.Kind, v.Kind)
		}
		// Unsized vector cells adopt the length of the first write.
		if cell.Kind == RealVector && len(cell.Vector) != 0 && len(cell.Vector) != len(v.Vector) {
			return fmt.Errorf("attribute %s has %d components, cannot assign %d", name, len(cell.Vector), len(v.Vector))
		}
		*cell = v.Clone()
		return nil
	}
	if b.sub != nil {
		return b.sub.set(name, v, sel)
	}
	return fmt.Errorf("%w: %s", ErrAttributeNotFound, name)
}

// SetParameters writes a batch of parameters by name.
func (b *Bundle) SetParameters(values map[string]Value) error {
	for name, v := range values {
		if err := b.SetParameter(name, v); err != nil {
			return err
		}
	}
	return nil
}
