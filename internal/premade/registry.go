// Package premade ships a small catalog of ready-to-fit action models and
// the registry that names them. The registry is an explicit object handed to
// whatever needs model lookup; there is no ambient global.
package premade

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"praxis/internal/action"
)

var (
	ErrModelExists   = errors.New("model already registered")
	ErrModelNotFound = errors.New("model not found")
)

// Factory builds a fresh model instance. Each call must return an
// independent value; instances share no mutable state.
type Factory func() action.Model

// Registry maps model names to factories. Safe for concurrent use.
type Registry struct {
	mu sync.RWMutex
	m  map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{m: make(map[string]Factory)}
}

// Builtin returns a registry populated with the stock catalog.
func Builtin() *Registry {
	r := NewRegistry()
	for name, factory := range map[string]Factory{
		"gaussian_report": GaussianReport,
		"rescorla_wagner": RescorlaWagner,
		"pvl_delta":       func() action.Model { return PVLDelta(4) },
	} {
		if err := r.Register(name, factory); err != nil {
			panic(err)
		}
	}
	return r
}

// Register adds a factory under a name. The factory's model is validated
// once up front so a bad registration fails at startup, not at resolve time.
func (r *Registry) Register(name string, factory Factory) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("model name is required")
	}
	if factory == nil {
		return errors.New("model factory is required")
	}
	if err := factory().Validate(); err != nil {
		return fmt.Errorf("model %s: %w", name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.m[name]; exists {
		return fmt.Errorf("%w: %s", ErrModelExists, name)
	}
	r.m[name] = factory
	return nil
}

// Resolve builds a fresh instance of the named model.
func (r *Registry) Resolve(name string) (action.Model, error) {
	r.mu.RLock()
	factory, ok := r.m[strings.TrimSpace(name)]
	r.mu.RUnlock()
	if !ok {
		return action.Model{}, fmt.Errorf("%w: %s", ErrModelNotFound, name)
	}
	return factory(), nil
}

// List returns the registered names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.m))
	for name := range r.m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
