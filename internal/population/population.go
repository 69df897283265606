// Package population maps a vector of unconstrained latents to per-session
// action-model parameters. Samplers explore the latent space; a population
// model supplies the prior density over latents (with the change-of-variables
// correction) and the materialized parameter values per session.
package population

import (
	"fmt"
	"math/rand"

	"praxis/internal/diff"
)

// Model is the contract between a population structure and the sampler.
type Model interface {
	// ParameterNames lists the action-model parameters this population
	// model controls, in materialization order.
	ParameterNames() []string
	// LatentNames labels each unconstrained latent, in layout order.
	LatentNames() []string
	// Dim is the number of unconstrained latents.
	Dim() int
	// Realize maps latents to per-session parameter values, indexed
	// [session][parameter], and returns the latents' log-prior density
	// including the log-Jacobian of any support bijection.
	Realize(lat []diff.Scalar) ([][]diff.Scalar, diff.Scalar, error)
	// DrawLatents samples one latent vector ancestrally from the prior.
	DrawLatents(r *rand.Rand) []float64
}

// Link transforms a regression's linear predictor onto a parameter's scale.
type Link int

const (
	IdentityLink Link = iota
	LogisticLink
	ExpLink
)

// LinkByName resolves the link names accepted in fit configurations.
func LinkByName(name string) (Link, error) {
	switch name {
	case "", "identity":
		return IdentityLink, nil
	case "logistic":
		return LogisticLink, nil
	case "exp":
		return ExpLink, nil
	default:
		return 0, fmt.Errorf("unknown inverse link %q", name)
	}
}

func (l Link) String() string {
	switch l {
	case LogisticLink:
		return "logistic"
	case ExpLink:
		return "exp"
	default:
		return "identity"
	}
}

// Apply evaluates the inverse link on the linear predictor.
func (l Link) Apply(x diff.Scalar) diff.Scalar {
	switch l {
	case LogisticLink:
		return diff.Logistic(x)
	case ExpLink:
		return diff.Exp(x)
	default:
		return x
	}
}
