package dist

import (
	"math"
	"math/rand"

	"praxis/internal/diff"
)

// Bernoulli is a coin flip with success probability P; outcomes are 0/1.
type Bernoulli struct {
	P diff.Scalar
}

func (Bernoulli) Support() Support { return DiscreteUnivariate }

func (d Bernoulli) LogPMF(k int) diff.Scalar {
	switch k {
	case 1:
		return diff.Log(d.P)
	case 0:
		return diff.Log(diff.Sub(diff.Const(1), d.P))
	default:
		return diff.Const(math.Inf(-1))
	}
}

func (d Bernoulli) Sample(r *rand.Rand) int {
	if r.Float64() < d.P.Value() {
		return 1
	}
	return 0
}

// Categorical is a distribution over options 1..len(P). Weights need not be
// normalized; the log-mass normalizes against the weight sum.
type Categorical struct {
	P []diff.Scalar
}

func (Categorical) Support() Support { return DiscreteUnivariate }

func (d Categorical) LogPMF(k int) diff.Scalar {
	if k < 1 || k > len(d.P) {
		return diff.Const(math.Inf(-1))
	}
	return diff.Sub(diff.Log(d.P[k-1]), diff.Log(diff.Sum(d.P)))
}

func (d Categorical) Sample(r *rand.Rand) int {
	total := 0.0
	for _, p := range d.P {
		total += p.Value()
	}
	u := r.Float64() * total
	acc := 0.0
	for i, p := range d.P {
		acc += p.Value()
		if u < acc {
			return i + 1
		}
	}
	return len(d.P)
}

// Softmax exponentiates and returns unnormalized categorical weights; pair
// with Categorical, which normalizes in the log-mass.
func Softmax(logits []diff.Scalar) []diff.Scalar {
	// Shift by the max for numeric stability; the shift cancels in the
	// normalized mass.
	maxVal := math.Inf(-1)
	for _, l := range logits {
		if l.Value() > maxVal {
			maxVal = l.Value()
		}
	}
	out := make([]diff.Scalar, len(logits))
	for i, l := range logits {
		out[i] = diff.Exp(diff.Shift(l, -maxVal))
	}
	return out
}
