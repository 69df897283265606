// Package dist holds the distribution families action models return and
// population models draw from. Log-densities are computed in diff.Scalar
// arithmetic so they are differentiable when evaluated on a tape; sampling
// uses an injected rand source and plain float64s.
package dist

import (
	"math/rand"

	"praxis/internal/diff"
)

// Support classifies a distribution family by the values it produces.
type Support int

const (
	ContinuousUnivariate Support = iota
	DiscreteUnivariate
	ContinuousMultivariate
	DiscreteMultivariate
)

func (s Support) String() string {
	switch s {
	case ContinuousUnivariate:
		return "continuous univariate"
	case DiscreteUnivariate:
		return "discrete univariate"
	case ContinuousMultivariate:
		return "continuous multivariate"
	case DiscreteMultivariate:
		return "discrete multivariate"
	default:
		return "unknown"
	}
}

// Distribution is the minimal contract shared by every family.
type Distribution interface {
	Support() Support
}

// Continuous is a univariate distribution over the reals.
type Continuous interface {
	Distribution
	LogPDF(x diff.Scalar) diff.Scalar
	Sample(r *rand.Rand) float64
}

// Discrete is a univariate distribution over integers.
type Discrete interface {
	Distribution
	LogPMF(k int) diff.Scalar
	Sample(r *rand.Rand) int
}

// MultiContinuous is a distribution over real vectors.
type MultiContinuous interface {
	Distribution
	LogPDFVec(x []diff.Scalar) diff.Scalar
	SampleVec(r *rand.Rand) []float64
}

// Prior is a continuous distribution usable as a prior over an unconstrained
// latent: it additionally names the bijection from the sampler's real line
// onto its support.
type Prior interface {
	Continuous
	Bijector() Bijector
}
