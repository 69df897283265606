// Package fit assembles an action model, a population model, and session
// data into a differentiable joint log-density, runs the sampler over it,
// and turns retained draws back into per-session parameter values and state
// trajectories.
package fit

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand"

	"praxis/internal/action"
	"praxis/internal/attr"
	"praxis/internal/data"
	"praxis/internal/diff"
	"praxis/internal/population"
	"praxis/internal/sampler"
	"praxis/internal/session"
)

// Problem is one assembled inference problem. Assembly validates the pieces
// against each other once; evaluation assumes they fit.
type Problem struct {
	model    action.Model
	pop      population.Model
	sessions []data.Session
	missing  session.MissingPolicy
	logger   *slog.Logger
	seed     int64
}

// Options tunes assembly-time behavior.
type Options struct {
	Missing session.MissingPolicy
	Logger  *slog.Logger
	// Seed drives the per-session rand sources used to realize missing
	// actions, keeping the joint density deterministic in the latents.
	Seed int64
}

// Assemble validates that the population model's parameters exist on the
// action model with Real kind, and that the population's materialization
// covers every session.
func Assemble(m action.Model, pop population.Model, sessions []data.Session, opts Options) (*Problem, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if pop == nil {
		return nil, fmt.Errorf("population model is required")
	}
	if len(sessions) == 0 {
		return nil, fmt.Errorf("at least one session is required")
	}

	declared := make(map[string]attr.Kind, len(m.Schema.Parameters))
	for _, p := range m.Schema.Parameters {
		declared[p.Name] = p.Kind
	}
	collectSubParams(m.Schema, declared)
	for _, name := range pop.ParameterNames() {
		kind, ok := declared[name]
		if !ok {
			return nil, fmt.Errorf("population model targets parameter %s, which model %s does not declare", name, m.Name)
		}
		if kind != attr.Real {
			return nil, fmt.Errorf("population model targets parameter %s of kind %s; only real parameters can be sampled", name, kind)
		}
	}

	probe := make([]diff.Scalar, pop.Dim())
	values, _, err := pop.Realize(probe)
	if err != nil {
		return nil, fmt.Errorf("population model: %w", err)
	}
	if len(values) != len(sessions) {
		return nil, fmt.Errorf("population model materializes %d sessions, data has %d", len(values), len(sessions))
	}

	for _, s := range sessions {
		for t, row := range s.Actions {
			if len(row) != len(m.Schema.Actions) {
				return nil, fmt.Errorf("session %s, timestep %d: %d action cells for %d declared actions", s.ID, t, len(row), len(m.Schema.Actions))
			}
		}
		for t, row := range s.Observations {
			if len(row) != len(m.Schema.Observations) {
				return nil, fmt.Errorf("session %s, timestep %d: %d observation cells for %d declared observations", s.ID, t, len(row), len(m.Schema.Observations))
			}
		}
	}

	return &Problem{
		model:    m,
		pop:      pop,
		sessions: sessions,
		missing:  opts.Missing,
		logger:   opts.Logger,
		seed:     opts.Seed,
	}, nil
}

func collectSubParams(s attr.Schema, into map[string]attr.Kind) {
	if s.Submodel == nil {
		return
	}
	for _, p := range s.Submodel.Schema.Parameters {
		if _, ok := into[p.Name]; !ok {
			into[p.Name] = p.Kind
		}
	}
	collectSubParams(s.Submodel.Schema, into)
}

// Population exposes the assembled population model.
func (p *Problem) Population() population.Model { return p.pop }

// Sessions exposes the assembled session batch.
func (p *Problem) Sessions() []data.Session { return p.sessions }

// Model exposes the assembled action model.
func (p *Problem) Model() action.Model { return p.model }

// Target builds the sampler-facing joint density. Each call to LogDensity
// runs on a fresh tape and a fresh runtime, so the target is safe for
// concurrent chains. Parameter rejections and non-finite values become
// probability zero rather than errors.
func (p *Problem) Target() sampler.Target {
	return sampler.Target{
		Dim: p.pop.Dim(),
		LogDensity: func(x []float64) (float64, []float64, error) {
			tape := diff.NewTape()
			lat := make([]diff.Scalar, len(x))
			for i, v := range x {
				lat[i] = tape.Var(v)
			}

			values, logPrior, err := p.pop.Realize(lat)
			if err != nil {
				return 0, nil, err
			}

			rt, err := action.NewRuntime(p.model)
			if err != nil {
				return 0, nil, err
			}

			total := logPrior
			cfg := session.Config{Missing: p.missing, CatchRejections: true, Logger: p.logger}
			for si, sess := range p.sessions {
				out, err := session.Evaluate(session.Request{
					Runtime:    rt,
					Parameters: p.bindParameters(values[si]),
					Session:    sess,
					Rand:       rand.New(rand.NewSource(p.seed + int64(si))),
				}, cfg)
				if err != nil {
					return 0, nil, err
				}
				if out.Rejected {
					return math.Inf(-1), make([]float64, len(x)), nil
				}
				total = diff.Add(total, out.LogLik)
			}

			logp := total.Value()
			if math.IsNaN(logp) || math.IsInf(logp, 0) {
				return math.Inf(-1), make([]float64, len(x)), nil
			}
			return logp, tape.Gradient(total, lat), nil
		},
	}
}

func (p *Problem) bindParameters(row []diff.Scalar) map[string]attr.Value {
	names := p.pop.ParameterNames()
	out := make(map[string]attr.Value, len(names))
	for i, name := range names {
		out[name] = attr.RealValue(row[i])
	}
	return out
}
