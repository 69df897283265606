package population

import (
	"fmt"
	"math/rand"

	"praxis/internal/diff"
	"praxis/internal/dist"
)

// Param pairs one action-model parameter with its prior.
type Param struct {
	Name  string
	Prior dist.Prior
}

// Independent gives every session its own draw of every parameter, with no
// pooling across sessions. Latents are laid out parameter-major: all
// sessions of the first parameter, then all sessions of the second.
type Independent struct {
	params     []Param
	sessionIDs []string
}

func NewIndependent(params []Param, sessionIDs []string) (*Independent, error) {
	if len(params) == 0 {
		return nil, fmt.Errorf("independent population model needs at least one parameter")
	}
	if len(sessionIDs) == 0 {
		return nil, fmt.Errorf("independent population model needs at least one session")
	}
	seen := make(map[string]bool, len(params))
	for _, p := range params {
		if p.Name == "" {
			return nil, fmt.Errorf("parameter with empty name")
		}
		if p.Prior == nil {
			return nil, fmt.Errorf("parameter %s has no prior", p.Name)
		}
		if seen[p.Name] {
			return nil, fmt.Errorf("duplicate parameter %s", p.Name)
		}
		seen[p.Name] = true
	}
	return &Independent{params: params, sessionIDs: sessionIDs}, nil
}

// NewSingleSession is the one-session special case used when fitting a
// single agent's data.
func NewSingleSession(params []Param) (*Independent, error) {
	return NewIndependent(params, []string{"session"})
}

func (m *Independent) ParameterNames() []string {
	names := make([]string, len(m.params))
	for i, p := range m.params {
		names[i] = p.Name
	}
	return names
}

func (m *Independent) LatentNames() []string {
	names := make([]string, 0, m.Dim())
	for _, p := range m.params {
		for _, id := range m.sessionIDs {
			names = append(names, fmt.Sprintf("%s.%s", p.Name, id))
		}
	}
	return names
}

func (m *Independent) Dim() int {
	return len(m.params) * len(m.sessionIDs)
}

func (m *Independent) Realize(lat []diff.Scalar) ([][]diff.Scalar, diff.Scalar, error) {
	if len(lat) != m.Dim() {
		return nil, diff.Scalar{}, fmt.Errorf("expected %d latents, got %d", m.Dim(), len(lat))
	}
	nSessions := len(m.sessionIDs)
	values := make([][]diff.Scalar, nSessions)
	for s := range values {
		values[s] = make([]diff.Scalar, len(m.params))
	}

	logPrior := diff.Const(0)
	idx := 0
	for pi, p := range m.params {
		b := p.Prior.Bijector()
		for s := 0; s < nSessions; s++ {
			v, lj := dist.Constrain(b, lat[idx])
			idx++
			logPrior = diff.Add(logPrior, diff.Add(p.Prior.LogPDF(v), lj))
			values[s][pi] = v
		}
	}
	return values, logPrior, nil
}

func (m *Independent) DrawLatents(r *rand.Rand) []float64 {
	lat := make([]float64, 0, m.Dim())
	for _, p := range m.params {
		b := p.Prior.Bijector()
		for range m.sessionIDs {
			lat = append(lat, dist.Unconstrain(b, p.Prior.Sample(r)))
		}
	}
	return lat
}
