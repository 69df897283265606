package sampler

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"

	"golang.org/x/sync/errgroup"
)

// malaTargetAccept is the asymptotically optimal MALA acceptance rate.
const malaTargetAccept = 0.574

// MALA is a Metropolis-adjusted Langevin sampler. Proposals drift along the
// density gradient; the step size adapts toward the target acceptance rate
// during warmup and is frozen afterwards.
type MALA struct {
	Logger *slog.Logger
}

func NewMALA(logger *slog.Logger) *MALA {
	return &MALA{Logger: logger}
}

func (m *MALA) Sample(ctx context.Context, target Target, init [][]float64, cfg Config) (Chains, error) {
	if err := cfg.validate(); err != nil {
		return Chains{}, err
	}
	if err := checkInit(target, init, cfg); err != nil {
		return Chains{}, err
	}
	if target.LogDensity == nil {
		return Chains{}, fmt.Errorf("target has no log density")
	}

	out := Chains{
		Samples:     make([][][]float64, cfg.Chains),
		StepSizes:   make([]float64, cfg.Chains),
		AcceptRates: make([]float64, cfg.Chains),
	}

	g, ctx := errgroup.WithContext(ctx)
	if cfg.Workers > 0 {
		g.SetLimit(cfg.Workers)
	}
	for c := 0; c < cfg.Chains; c++ {
		c := c
		g.Go(func() error {
			samples, eps, accept, err := m.runChain(ctx, target, init[c], cfg, c)
			if err != nil {
				return fmt.Errorf("chain %d: %w", c, err)
			}
			out.Samples[c] = samples
			out.StepSizes[c] = eps
			out.AcceptRates[c] = accept
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Chains{}, err
	}
	return out, nil
}

func (m *MALA) runChain(ctx context.Context, target Target, init []float64, cfg Config, chain int) ([][]float64, float64, float64, error) {
	r := rand.New(rand.NewSource(cfg.Seed + int64(chain)))
	eps := cfg.StepSize
	if eps == 0 {
		eps = 0.1
	}

	x := append([]float64(nil), init...)
	logp, grad, err := target.LogDensity(x)
	if err != nil {
		return nil, 0, 0, err
	}
	if !math.IsInf(logp, -1) && !finite(logp, grad) {
		return nil, 0, 0, fmt.Errorf("log density not finite at the initial point")
	}
	if math.IsInf(logp, -1) {
		return nil, 0, 0, fmt.Errorf("initial point has zero density")
	}

	total := cfg.Warmup + cfg.Samples
	samples := make([][]float64, 0, cfg.Samples)
	accepted := 0
	postWarmup := 0

	for it := 0; it < total; it++ {
		if err := ctx.Err(); err != nil {
			return nil, 0, 0, err
		}

		y := make([]float64, target.Dim)
		for i := range y {
			y[i] = x[i] + 0.5*eps*eps*grad[i] + eps*r.NormFloat64()
		}

		logpY, gradY, err := target.LogDensity(y)
		if err != nil {
			return nil, 0, 0, err
		}

		accept := false
		if finite(logpY, gradY) {
			logAlpha := logpY - logp + logQ(x, y, gradY, eps) - logQ(y, x, grad, eps)
			accept = math.Log(r.Float64()) < logAlpha
		}
		if accept {
			x, logp, grad = y, logpY, gradY
		}

		if it < cfg.Warmup {
			// Robbins-Monro drift of log step size toward the target
			// acceptance rate.
			a := 0.0
			if accept {
				a = 1
			}
			eta := math.Pow(float64(it+1), -0.6)
			eps = math.Exp(math.Log(eps) + eta*(a-malaTargetAccept))
		} else {
			postWarmup++
			if accept {
				accepted++
			}
			samples = append(samples, append([]float64(nil), x...))
		}
	}

	rate := 0.0
	if postWarmup > 0 {
		rate = float64(accepted) / float64(postWarmup)
	}
	if m.Logger != nil {
		m.Logger.Debug("chain finished", "chain", chain, "step_size", eps, "accept_rate", rate)
	}
	return samples, eps, rate, nil
}

// logQ is the log proposal density of moving to `to` from `from` whose
// gradient is gradFrom.
func logQ(to, from, gradFrom []float64, eps float64) float64 {
	sum := 0.0
	for i := range to {
		d := to[i] - from[i] - 0.5*eps*eps*gradFrom[i]
		sum += d * d
	}
	return -sum / (2 * eps * eps)
}

func finite(logp float64, grad []float64) bool {
	if math.IsNaN(logp) || math.IsInf(logp, 1) || math.IsInf(logp, -1) {
		return false
	}
	for _, g := range grad {
		if math.IsNaN(g) || math.IsInf(g, 0) {
			return false
		}
	}
	return true
}
