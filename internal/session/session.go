// Package session evaluates one session of behavioral data against an
// action model: bind the session's parameters, reset, then walk the
// timesteps in order, conditioning the joint log-density on observed
// actions and realizing missing ones according to the configured policy.
// Sessions are independent of one another; timesteps within a session are
// strictly sequential.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"

	"praxis/internal/action"
	"praxis/internal/attr"
	"praxis/internal/data"
	"praxis/internal/diff"
	"praxis/internal/dist"
)

// MissingPolicy decides what happens at a timestep whose action is missing.
type MissingPolicy int

const (
	// SkipMissing passes the observation through the step function and
	// contributes no likelihood term. The realized action is drawn
	// unconditioned, which may diverge from what downstream steps expect;
	// a warning is logged when this activates.
	SkipMissing MissingPolicy = iota
	// InferMissing realizes the action as a latent draw from the step
	// distribution, contributing no likelihood term.
	InferMissing
)

// Config fixes the evaluation axes for a whole fitting run.
type Config struct {
	Missing         MissingPolicy
	CatchRejections bool
	Logger          *slog.Logger
}

// Request is one session evaluation: a private runtime, the session's
// parameter vector, its data, and a rand source for realizing missing
// actions (and for nothing else).
type Request struct {
	Runtime    *action.Runtime
	Parameters map[string]attr.Value
	Session    data.Session
	Rand       *rand.Rand
	Record     bool
	Track      []string
}

// History is the recorded per-timestep trajectory: one snapshot of the
// tracked states before any observation plus one after each timestep.
type History struct {
	Names  []string
	Values [][]float64
}

// Outcome is the session's contribution to the joint model. Rejected
// outcomes carry probability zero for the entire joint sample.
type Outcome struct {
	LogLik   diff.Scalar
	Rejected bool
	Reason   string
	Actions  [][]float64
	History  *History
}

// Evaluate runs the per-session kernel. Parameter rejections raised by the
// step function either become a rejected outcome (catch policy) or
// propagate as errors annotated with session id and timestep.
func Evaluate(req Request, cfg Config) (Outcome, error) {
	rt := req.Runtime
	s := req.Session
	if len(s.Observations) != len(s.Actions) {
		return Outcome{}, fmt.Errorf("session %s: %d observations but %d action rows", s.ID, len(s.Observations), len(s.Actions))
	}

	if err := rt.Bundle().SetParameters(req.Parameters); err != nil {
		return Outcome{}, fmt.Errorf("session %s: %w", s.ID, err)
	}
	rt.Reset()

	var history *History
	if req.Record {
		names, err := rt.Bundle().TrackedStateNames(req.Track)
		if err != nil {
			return Outcome{}, fmt.Errorf("session %s: %w", s.ID, err)
		}
		history = &History{Names: names}
		if err := appendSnapshot(history, rt.Bundle(), req.Track); err != nil {
			return Outcome{}, fmt.Errorf("session %s: %w", s.ID, err)
		}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	logLik := diff.Const(0)
	realized := make([][]float64, 0, len(s.Observations))
	warnedSkip := false

	for t, obs := range s.Observations {
		dists, err := rt.Step(obs)
		if err != nil {
			if errors.Is(err, action.ErrRejected) && cfg.CatchRejections {
				return Outcome{Rejected: true, Reason: fmt.Sprintf("session %s, timestep %d: %v", s.ID, t, err)}, nil
			}
			return Outcome{}, fmt.Errorf("session %s, timestep %d: %w", s.ID, t, err)
		}

		row := s.Actions[t]
		if len(row) != len(dists) {
			return Outcome{}, fmt.Errorf("session %s, timestep %d: %d action cells for %d actions", s.ID, t, len(row), len(dists))
		}

		values := make([]float64, len(dists))
		for i, d := range dists {
			cell := row[i]
			if cell.Valid {
				term, err := condition(d, cell.Value)
				if err != nil {
					return Outcome{}, fmt.Errorf("session %s, timestep %d: %w", s.ID, t, err)
				}
				logLik = diff.Add(logLik, term)
				values[i] = cell.Value
			} else {
				if req.Rand == nil {
					return Outcome{}, fmt.Errorf("session %s, timestep %d: missing action but no rand source configured", s.ID, t)
				}
				v, err := action.SampleAction(d, req.Rand)
				if err != nil {
					return Outcome{}, fmt.Errorf("session %s, timestep %d: %w", s.ID, t, err)
				}
				values[i] = v
				if cfg.Missing == SkipMissing && !warnedSkip {
					logger.Warn("skipping missing action; realized value is unconditioned and may diverge from the data-generating process",
						"session", s.ID, "timestep", t)
					warnedSkip = true
				}
			}
			if err := rt.StoreAction(i, values[i]); err != nil {
				return Outcome{}, fmt.Errorf("session %s, timestep %d: %w", s.ID, t, err)
			}
		}

		realized = append(realized, values)
		if history != nil {
			if err := appendSnapshot(history, rt.Bundle(), req.Track); err != nil {
				return Outcome{}, fmt.Errorf("session %s: %w", s.ID, err)
			}
		}
	}

	return Outcome{LogLik: logLik, Actions: realized, History: history}, nil
}

func condition(d dist.Distribution, observed float64) (diff.Scalar, error) {
	switch dd := d.(type) {
	case dist.Continuous:
		return dd.LogPDF(diff.Const(observed)), nil
	case dist.Discrete:
		k := int(observed)
		if float64(k) != observed {
			return diff.Scalar{}, fmt.Errorf("observed action %v is not an integer outcome", observed)
		}
		return dd.LogPMF(k), nil
	default:
		return diff.Scalar{}, fmt.Errorf("cannot condition a single action column on a %s distribution", d.Support())
	}
}

func appendSnapshot(h *History, b *attr.Bundle, track []string) error {
	values, err := b.TrackedStateValues(track)
	if err != nil {
		return err
	}
	h.Values = append(h.Values, values)
	return nil
}
