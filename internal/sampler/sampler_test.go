package sampler

import (
	"context"
	"math"
	"testing"
)

// stdNormalTarget is an isotropic Gaussian with the given per-dimension
// standard deviations.
func gaussianTarget(sds ...float64) Target {
	return Target{
		Dim: len(sds),
		LogDensity: func(x []float64) (float64, []float64, error) {
			logp := 0.0
			grad := make([]float64, len(x))
			for i, v := range x {
				s2 := sds[i] * sds[i]
				logp -= v * v / (2 * s2)
				grad[i] = -v / s2
			}
			return logp, grad, nil
		},
	}
}

func TestMALARecoversGaussianMoments(t *testing.T) {
	target := gaussianTarget(1, 2)
	cfg := Config{Chains: 2, Samples: 2000, Warmup: 500, Seed: 42}
	init := [][]float64{{0.5, 0.5}, {-0.5, -0.5}}

	out, err := NewMALA(nil).Sample(context.Background(), target, init, cfg)
	if err != nil {
		t.Fatalf("sample: %v", err)
	}

	for dim, wantSD := range []float64{1, 2} {
		var sum, sumSq float64
		n := 0
		for _, chain := range out.Samples {
			for _, x := range chain {
				sum += x[dim]
				sumSq += x[dim] * x[dim]
				n++
			}
		}
		mean := sum / float64(n)
		variance := sumSq/float64(n) - mean*mean
		if math.Abs(mean) > 0.25*wantSD {
			t.Fatalf("dim %d: mean %f too far from 0", dim, mean)
		}
		if math.Abs(variance-wantSD*wantSD) > 0.5*wantSD*wantSD {
			t.Fatalf("dim %d: variance %f, want about %f", dim, variance, wantSD*wantSD)
		}
	}

	for c, rate := range out.AcceptRates {
		if rate < 0.2 || rate > 0.95 {
			t.Fatalf("chain %d: acceptance rate %f outside a healthy range", c, rate)
		}
	}
	for c, eps := range out.StepSizes {
		if eps <= 0 || math.IsNaN(eps) {
			t.Fatalf("chain %d: bad adapted step size %f", c, eps)
		}
	}
}

func TestMALADeterministicForSeed(t *testing.T) {
	target := gaussianTarget(1)
	cfg := Config{Chains: 2, Samples: 50, Warmup: 50, Seed: 7}
	init := [][]float64{{0.1}, {-0.1}}

	a, err := NewMALA(nil).Sample(context.Background(), target, init, cfg)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	b, err := NewMALA(nil).Sample(context.Background(), target, init, cfg)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	for c := range a.Samples {
		for i := range a.Samples[c] {
			if a.Samples[c][i][0] != b.Samples[c][i][0] {
				t.Fatalf("chain %d sample %d differs across runs", c, i)
			}
		}
	}
}

func TestMALAChainsDifferBySeedOffset(t *testing.T) {
	target := gaussianTarget(1)
	cfg := Config{Chains: 2, Samples: 50, Warmup: 10, Seed: 3}
	out, err := NewMALA(nil).Sample(context.Background(), target, [][]float64{{0}, {0}}, cfg)
	if err != nil {
		t.Fatalf("sample: %v", err)
	}
	same := true
	for i := range out.Samples[0] {
		if out.Samples[0][i][0] != out.Samples[1][i][0] {
			same = false
			break
		}
	}
	if same {
		t.Fatal("chains with identical inits produced identical trajectories")
	}
}

func TestMALAValidation(t *testing.T) {
	target := gaussianTarget(1)
	mala := NewMALA(nil)
	ctx := context.Background()

	if _, err := mala.Sample(ctx, target, [][]float64{{0}}, Config{Chains: 2, Samples: 10}); err == nil {
		t.Fatal("expected init count error")
	}
	if _, err := mala.Sample(ctx, target, [][]float64{{0, 0}}, Config{Chains: 1, Samples: 10}); err == nil {
		t.Fatal("expected init dim error")
	}
	if _, err := mala.Sample(ctx, target, [][]float64{{0}}, Config{Chains: 1, Samples: 0}); err == nil {
		t.Fatal("expected samples error")
	}
	if _, err := mala.Sample(ctx, Target{Dim: 1}, [][]float64{{0}}, Config{Chains: 1, Samples: 10}); err == nil {
		t.Fatal("expected missing density error")
	}
}

func TestMALARejectsZeroDensityInit(t *testing.T) {
	target := Target{
		Dim: 1,
		LogDensity: func(x []float64) (float64, []float64, error) {
			return math.Inf(-1), []float64{0}, nil
		},
	}
	if _, err := NewMALA(nil).Sample(context.Background(), target, [][]float64{{0}}, Config{Chains: 1, Samples: 10}); err == nil {
		t.Fatal("expected zero-density init error")
	}
}

func TestMALAContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewMALA(nil).Sample(ctx, gaussianTarget(1), [][]float64{{0}}, Config{Chains: 1, Samples: 10000, Warmup: 10000})
	if err == nil {
		t.Fatal("expected cancellation error")
	}
}

func TestMALASurvivesRejectedRegions(t *testing.T) {
	// Density is zero on the negative half-line; the chain must stay on
	// the support and keep producing samples.
	target := Target{
		Dim: 1,
		LogDensity: func(x []float64) (float64, []float64, error) {
			if x[0] < 0 {
				return math.Inf(-1), []float64{0}, nil
			}
			return -x[0], []float64{-1}, nil
		},
	}
	out, err := NewMALA(nil).Sample(context.Background(), target, [][]float64{{1}}, Config{Chains: 1, Samples: 500, Warmup: 200, Seed: 9})
	if err != nil {
		t.Fatalf("sample: %v", err)
	}
	for _, x := range out.Samples[0] {
		if x[0] < 0 {
			t.Fatalf("sample left the support: %f", x[0])
		}
	}
}
