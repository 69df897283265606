package fit

import (
	"context"
	"fmt"
	"math/rand"

	"golang.org/x/sync/errgroup"

	"praxis/internal/action"
	"praxis/internal/diff"
	"praxis/internal/sampler"
	"praxis/internal/session"
)

// Draws holds materialized quantities per retained draw. Parameter values
// are indexed [session][parameter][sample][chain]; trajectories add the
// timestep axis [session][state][timestep][sample][chain], where timestep 0
// is the state before the first observation.
type Draws struct {
	Sessions     []string
	Parameters   []string
	States       []string
	Params       [][][][]float64
	Trajectories [][][][][]float64
}

// ParameterDraws materializes per-session parameter values for every
// retained draw, without re-running the sessions.
func (r *Result) ParameterDraws() (*Draws, error) {
	d, err := r.newDraws(nil, false)
	if err != nil {
		return nil, err
	}
	for c, chain := range r.Chains.Samples {
		for i, x := range chain {
			values, _, err := r.Problem.pop.Realize(consts(x))
			if err != nil {
				return nil, err
			}
			for s := range d.Sessions {
				for p := range d.Parameters {
					d.Params[s][p][i][c] = values[s][p].Value()
				}
			}
		}
	}
	return d, nil
}

// Extract re-runs every session under every retained draw in plain mode,
// recording parameter values and the tracked state trajectories. Chains are
// processed in parallel; each worker owns a private runtime.
func (r *Result) Extract(ctx context.Context, track []string) (*Draws, error) {
	d, err := r.newDraws(track, true)
	if err != nil {
		return nil, err
	}
	p := r.Problem

	g, ctx := errgroup.WithContext(ctx)
	for c, chain := range r.Chains.Samples {
		c, chain := c, chain
		g.Go(func() error {
			rt, err := action.NewRuntime(p.model)
			if err != nil {
				return err
			}
			cfg := session.Config{Missing: p.missing, CatchRejections: false, Logger: p.logger}
			for i, x := range chain {
				if err := ctx.Err(); err != nil {
					return err
				}
				values, _, err := p.pop.Realize(consts(x))
				if err != nil {
					return err
				}
				for si, sess := range p.sessions {
					out, err := session.Evaluate(session.Request{
						Runtime:    rt,
						Parameters: p.bindParameters(values[si]),
						Session:    sess,
						Rand:       rand.New(rand.NewSource(p.seed + int64(si))),
						Record:     true,
						Track:      track,
					}, cfg)
					if err != nil {
						return fmt.Errorf("chain %d draw %d: %w", c, i, err)
					}
					for pi := range d.Parameters {
						d.Params[si][pi][i][c] = values[si][pi].Value()
					}
					for st := range d.States {
						for t := range out.History.Values {
							d.Trajectories[si][st][t][i][c] = out.History.Values[t][st]
						}
					}
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return d, nil
}

// SamplePrior draws ancestrally from the population prior, shaped as a
// single chain so the same extraction paths apply.
func SamplePrior(p *Problem, n int, seed int64) (*Result, error) {
	if n < 1 {
		return nil, fmt.Errorf("at least one prior draw is required")
	}
	r := rand.New(rand.NewSource(seed))
	samples := make([][]float64, n)
	for i := range samples {
		samples[i] = p.pop.DrawLatents(r)
	}
	return &Result{
		Problem:     p,
		Chains:      sampler.Chains{Samples: [][][]float64{samples}},
		LatentNames: p.pop.LatentNames(),
	}, nil
}

func (r *Result) newDraws(track []string, withTrajectories bool) (*Draws, error) {
	p := r.Problem
	if len(r.Chains.Samples) == 0 || len(r.Chains.Samples[0]) == 0 {
		return nil, fmt.Errorf("result holds no retained draws")
	}
	nChains := len(r.Chains.Samples)
	nSamples := len(r.Chains.Samples[0])

	d := &Draws{Parameters: p.pop.ParameterNames()}
	for _, s := range p.sessions {
		d.Sessions = append(d.Sessions, s.ID)
	}

	d.Params = make([][][][]float64, len(d.Sessions))
	for s := range d.Params {
		d.Params[s] = make([][][]float64, len(d.Parameters))
		for pi := range d.Params[s] {
			d.Params[s][pi] = grid(nSamples, nChains)
		}
	}

	if withTrajectories {
		rt, err := action.NewRuntime(p.model)
		if err != nil {
			return nil, err
		}
		names, err := rt.Bundle().TrackedStateNames(track)
		if err != nil {
			return nil, err
		}
		d.States = names
		d.Trajectories = make([][][][][]float64, len(d.Sessions))
		for si, sess := range p.sessions {
			steps := len(sess.Observations) + 1
			d.Trajectories[si] = make([][][][]float64, len(names))
			for st := range names {
				d.Trajectories[si][st] = make([][][]float64, steps)
				for t := range d.Trajectories[si][st] {
					d.Trajectories[si][st][t] = grid(nSamples, nChains)
				}
			}
		}
	}
	return d, nil
}

func grid(nSamples, nChains int) [][]float64 {
	out := make([][]float64, nSamples)
	for i := range out {
		out[i] = make([]float64, nChains)
	}
	return out
}

func consts(x []float64) []diff.Scalar {
	out := make([]diff.Scalar, len(x))
	for i, v := range x {
		out[i] = diff.Const(v)
	}
	return out
}
