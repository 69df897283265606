package attr

import "fmt"

// TrackedStateNames expands state names into flat column names for
// trajectory recording. An empty track selects every state in schema order,
// with the submodel's states appended. Vector states expand to one column
// per component, named name[i] with 1-based indices.
func (b *Bundle) TrackedStateNames(track []string) ([]string, error) {
	if len(track) == 0 {
		track = b.allStateNames()
	}
	names := make([]string, 0, len(track))
	for _, name := range track {
		v, err := b.GetState(name)
		if err != nil {
			return nil, err
		}
		if v.Kind == RealVector {
			for i := range v.Vector {
				names = append(names, fmt.Sprintf("%s[%d]", name, i+1))
			}
			continue
		}
		names = append(names, name)
	}
	return names, nil
}

// TrackedStateValues reads the current values of the tracked states in the
// same order and expansion as TrackedStateNames.
func (b *Bundle) TrackedStateValues(track []string) ([]float64, error) {
	if len(track) == 0 {
		track = b.allStateNames()
	}
	values := make([]float64, 0, len(track))
	for _, name := range track {
		v, err := b.GetState(name)
		if err != nil {
			return nil, err
		}
		values = append(values, v.Floats()...)
	}
	return values, nil
}

func (b *Bundle) allStateNames() []string {
	names := make([]string, 0, len(b.schema.States))
	for _, st := range b.schema.States {
		names = append(names, st.Name)
	}
	if b.sub != nil {
		for _, name := range b.sub.allStateNames() {
			// Shadowed names resolve to the local cell already listed.
			if _, ok := b.states[name]; !ok {
				names = append(names, name)
			}
		}
	}
	return names
}
