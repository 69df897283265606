package dist

import (
	"math"

	"praxis/internal/diff"
)

// Bijector maps an unconstrained latent onto a distribution's support.
// Priors with unbounded support use Identity; positive-support priors use
// Exp, whose log-Jacobian is the latent itself.
type Bijector int

const (
	Identity Bijector = iota
	ExpBijector
)

// Constrain maps an unconstrained scalar onto the support and returns the
// constrained value together with the log absolute Jacobian determinant.
func Constrain(b Bijector, x diff.Scalar) (diff.Scalar, diff.Scalar) {
	switch b {
	case ExpBijector:
		return diff.Exp(x), x
	default:
		return x, diff.Const(0)
	}
}

// Unconstrain inverts Constrain for plain values, used when seeding chains
// from ancestral prior draws.
func Unconstrain(b Bijector, v float64) float64 {
	switch b {
	case ExpBijector:
		return math.Log(v)
	default:
		return v
	}
}
