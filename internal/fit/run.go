package fit

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"praxis/internal/sampler"
)

// SampleOptions tunes one sampling run over an assembled problem.
type SampleOptions struct {
	Sampler  sampler.Sampler // nil means the built-in MALA
	Chains   int
	Samples  int
	Warmup   int
	StepSize float64
	Seed     int64
	Workers  int
}

func (o SampleOptions) withDefaults() SampleOptions {
	if o.Chains == 0 {
		o.Chains = 2
	}
	if o.Samples == 0 {
		o.Samples = 1000
	}
	if o.Warmup == 0 {
		o.Warmup = o.Samples / 2
	}
	return o
}

// Result holds the retained chains together with the problem that produced
// them, which is needed to materialize draws back into parameters.
type Result struct {
	Problem     *Problem
	Chains      sampler.Chains
	LatentNames []string
	Options     SampleOptions
}

// initAttempts bounds the prior-draw search for a finite-density start.
const initAttempts = 100

// Run samples the problem's joint density. Chains start from ancestral
// prior draws, re-drawn until the density is finite at the start point.
func Run(ctx context.Context, p *Problem, opts SampleOptions) (*Result, error) {
	opts = opts.withDefaults()
	s := opts.Sampler
	if s == nil {
		s = sampler.NewMALA(p.logger)
	}

	target := p.Target()
	r := rand.New(rand.NewSource(opts.Seed))
	init := make([][]float64, opts.Chains)
	for c := range init {
		point, err := findInit(target, p, r)
		if err != nil {
			return nil, fmt.Errorf("chain %d: %w", c, err)
		}
		init[c] = point
	}

	chains, err := s.Sample(ctx, target, init, sampler.Config{
		Chains:   opts.Chains,
		Samples:  opts.Samples,
		Warmup:   opts.Warmup,
		StepSize: opts.StepSize,
		Seed:     opts.Seed,
		Workers:  opts.Workers,
	})
	if err != nil {
		return nil, err
	}
	return &Result{
		Problem:     p,
		Chains:      chains,
		LatentNames: p.pop.LatentNames(),
		Options:     opts,
	}, nil
}

func findInit(target sampler.Target, p *Problem, r *rand.Rand) ([]float64, error) {
	for attempt := 0; attempt < initAttempts; attempt++ {
		point := p.pop.DrawLatents(r)
		logp, _, err := target.LogDensity(point)
		if err != nil {
			return nil, err
		}
		if !math.IsInf(logp, -1) && !math.IsNaN(logp) {
			return point, nil
		}
	}
	return nil, fmt.Errorf("no finite-density initial point found in %d prior draws", initAttempts)
}
