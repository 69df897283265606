package population

import (
	"fmt"
	"math/rand"

	"praxis/internal/diff"
	"praxis/internal/dist"
	"praxis/internal/formula"
)

// RegressionParam regresses one action-model parameter on session-level
// covariates: value = link(X beta + Z r), with non-centered random effects
// r = sigma * z, one deviation scale per (term, group) block.
type RegressionParam struct {
	Target string
	Design formula.Design
	Link   Link
	// BetaPrior defaults to StudentT(3, 0, 1), SigmaPrior to HalfStudentT(3, 1).
	BetaPrior  dist.Prior
	SigmaPrior dist.Prior
}

// Regression pools information across sessions through a linear model per
// target parameter. Latents per target are laid out beta, then one scale
// latent per random block, then the standardized deviations z.
type Regression struct {
	params   []RegressionParam
	sessions int
}

func NewRegression(params []RegressionParam) (*Regression, error) {
	if len(params) == 0 {
		return nil, fmt.Errorf("regression population model needs at least one parameter")
	}
	sessions := len(params[0].Design.X)
	seen := make(map[string]bool, len(params))
	for i := range params {
		p := &params[i]
		if p.Target == "" {
			return nil, fmt.Errorf("regression parameter with empty target")
		}
		if seen[p.Target] {
			return nil, fmt.Errorf("duplicate regression target %s", p.Target)
		}
		seen[p.Target] = true
		if len(p.Design.X) != sessions {
			return nil, fmt.Errorf("target %s: design has %d sessions, expected %d", p.Target, len(p.Design.X), sessions)
		}
		if len(p.Design.XNames) == 0 && len(p.Design.ZNames) == 0 {
			return nil, fmt.Errorf("target %s: empty design", p.Target)
		}
		if p.BetaPrior == nil {
			p.BetaPrior = dist.StudentT{Nu: 3, Mu: diff.Const(0), Sigma: diff.Const(1)}
		}
		if p.SigmaPrior == nil {
			p.SigmaPrior = dist.HalfStudentT{Nu: 3, Sigma: diff.Const(1)}
		}
	}
	if sessions == 0 {
		return nil, fmt.Errorf("regression population model needs at least one session")
	}
	return &Regression{params: params, sessions: sessions}, nil
}

func (m *Regression) ParameterNames() []string {
	names := make([]string, len(m.params))
	for i, p := range m.params {
		names[i] = p.Target
	}
	return names
}

func (m *Regression) LatentNames() []string {
	names := make([]string, 0, m.Dim())
	for _, p := range m.params {
		for _, xn := range p.Design.XNames {
			names = append(names, fmt.Sprintf("%s.beta.%s", p.Target, xn))
		}
		for _, blk := range p.Design.Blocks {
			names = append(names, fmt.Sprintf("%s.sigma.%s|%s", p.Target, blk.Term, blk.Group))
		}
		for _, zn := range p.Design.ZNames {
			names = append(names, fmt.Sprintf("%s.z.%s", p.Target, zn))
		}
	}
	return names
}

func (m *Regression) Dim() int {
	dim := 0
	for _, p := range m.params {
		dim += len(p.Design.XNames) + len(p.Design.Blocks) + len(p.Design.ZNames)
	}
	return dim
}

func (m *Regression) Realize(lat []diff.Scalar) ([][]diff.Scalar, diff.Scalar, error) {
	if len(lat) != m.Dim() {
		return nil, diff.Scalar{}, fmt.Errorf("expected %d latents, got %d", m.Dim(), len(lat))
	}
	values := make([][]diff.Scalar, m.sessions)
	for s := range values {
		values[s] = make([]diff.Scalar, len(m.params))
	}
	std := dist.Normal{Mu: diff.Const(0), Sigma: diff.Const(1)}

	logPrior := diff.Const(0)
	idx := 0
	for pi, p := range m.params {
		beta := make([]diff.Scalar, len(p.Design.XNames))
		bb := p.BetaPrior.Bijector()
		for j := range beta {
			v, lj := dist.Constrain(bb, lat[idx])
			idx++
			logPrior = diff.Add(logPrior, diff.Add(p.BetaPrior.LogPDF(v), lj))
			beta[j] = v
		}

		sigmas := make([]diff.Scalar, len(p.Design.Blocks))
		sb := p.SigmaPrior.Bijector()
		for j := range sigmas {
			v, lj := dist.Constrain(sb, lat[idx])
			idx++
			logPrior = diff.Add(logPrior, diff.Add(p.SigmaPrior.LogPDF(v), lj))
			sigmas[j] = v
		}

		// Non-centered random effects: r = sigma * z with z standard normal.
		effects := make([]diff.Scalar, len(p.Design.ZNames))
		for j := range effects {
			z := lat[idx]
			idx++
			logPrior = diff.Add(logPrior, std.LogPDF(z))
			effects[j] = diff.Mul(sigmas[blockOf(p.Design.Blocks, j)], z)
		}

		for s := 0; s < m.sessions; s++ {
			eta := diff.Const(0)
			for j, b := range beta {
				eta = diff.Add(eta, diff.Scale(b, p.Design.X[s][j]))
			}
			for j, r := range effects {
				eta = diff.Add(eta, diff.Scale(r, p.Design.Z[s][j]))
			}
			values[s][pi] = p.Link.Apply(eta)
		}
	}
	return values, logPrior, nil
}

func (m *Regression) DrawLatents(r *rand.Rand) []float64 {
	lat := make([]float64, 0, m.Dim())
	for _, p := range m.params {
		bb := p.BetaPrior.Bijector()
		for range p.Design.XNames {
			lat = append(lat, dist.Unconstrain(bb, p.BetaPrior.Sample(r)))
		}
		sb := p.SigmaPrior.Bijector()
		for range p.Design.Blocks {
			lat = append(lat, dist.Unconstrain(sb, p.SigmaPrior.Sample(r)))
		}
		for range p.Design.ZNames {
			lat = append(lat, r.NormFloat64())
		}
	}
	return lat
}

func blockOf(blocks []formula.Block, col int) int {
	for i := len(blocks) - 1; i >= 0; i-- {
		if col >= blocks[i].Offset {
			return i
		}
	}
	return 0
}
