// Package sampler draws from unnormalized log-densities over R^n. The
// built-in kernel is Metropolis-adjusted Langevin (MALA) with step-size
// adaptation during warmup; chains run in parallel and are reproducible
// from the configured seed.
package sampler

import (
	"context"
	"errors"
	"fmt"
)

// Target is the differentiable density to sample from. LogDensity returns
// the unnormalized log density and its gradient at x; it must be safe for
// concurrent calls from different chains.
type Target struct {
	Dim        int
	LogDensity func(x []float64) (float64, []float64, error)
}

// Config fixes one sampling run.
type Config struct {
	Chains   int
	Samples  int
	Warmup   int
	StepSize float64 // initial step size, adapted during warmup
	Seed     int64
	Workers  int // concurrent chains; 0 means all at once
}

func (c Config) validate() error {
	if c.Chains < 1 {
		return errors.New("at least one chain is required")
	}
	if c.Samples < 1 {
		return errors.New("at least one retained sample is required")
	}
	if c.Warmup < 0 {
		return errors.New("warmup cannot be negative")
	}
	if c.StepSize < 0 {
		return errors.New("step size cannot be negative")
	}
	return nil
}

// Chains is the retained output of one run, indexed [chain][sample][dim].
type Chains struct {
	Samples     [][][]float64
	StepSizes   []float64
	AcceptRates []float64
}

// Sampler is the pluggable MCMC kernel.
type Sampler interface {
	// Sample runs cfg.Chains chains from the given per-chain initial
	// points and returns cfg.Samples retained draws per chain.
	Sample(ctx context.Context, target Target, init [][]float64, cfg Config) (Chains, error)
}

func checkInit(target Target, init [][]float64, cfg Config) error {
	if len(init) != cfg.Chains {
		return fmt.Errorf("got %d initial points for %d chains", len(init), cfg.Chains)
	}
	for i, x := range init {
		if len(x) != target.Dim {
			return fmt.Errorf("chain %d: initial point has dim %d, target has %d", i, len(x), target.Dim)
		}
	}
	return nil
}
