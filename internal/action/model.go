// Package action wraps a user-supplied step function together with its
// attribute schema into an executable unit. The step function reads the
// current parameters and states from the bundle, returns one distribution
// per declared action, and records state changes through UpdateState.
package action

import (
	"errors"
	"fmt"

	"praxis/internal/attr"
	"praxis/internal/dist"
)

// ErrRejected signals that the current parameter combination is invalid for
// the input just seen. Step functions wrap it via Rejectf; under the
// catch-rejections policy the whole joint sample becomes probability zero.
var ErrRejected = errors.New("parameters rejected")

// Rejectf builds a parameter-rejection error with context.
func Rejectf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrRejected, fmt.Sprintf(format, args...))
}

// StepFunc maps the bundle and the current observation values to one
// distribution per declared action. It must be pure apart from mutating the
// bundle it receives.
type StepFunc func(b *attr.Bundle, obs map[string]attr.Value) ([]dist.Distribution, error)

// Model is the immutable pairing of a schema with its step function.
type Model struct {
	Name   string
	Schema attr.Schema
	Step   StepFunc
}

// Validate checks the model is executable: a name, a step function, a valid
// schema, and at least one action to emit.
func (m Model) Validate() error {
	if m.Name == "" {
		return errors.New("model name is required")
	}
	if m.Step == nil {
		return errors.New("step function is required")
	}
	if err := m.Schema.Validate(); err != nil {
		return err
	}
	if len(m.Schema.Actions) == 0 {
		return errors.New("model declares no actions")
	}
	return nil
}
