package diff

// Tape records the computation graph for one evaluation. It is not safe for
// concurrent use; each log-density evaluation owns a private tape.
type Tape struct {
	nodes []node
}

type node struct {
	p1, p2 int
	d1, d2 float64
}

func NewTape() *Tape {
	return &Tape{nodes: make([]node, 0, 1024)}
}

// Var introduces a traced input variable with the given value.
func (t *Tape) Var(x float64) Scalar {
	idx := t.push(-1, -1, 0, 0)
	return Scalar{val: x, node: idx, tape: t}
}

// Len returns the number of recorded nodes.
func (t *Tape) Len() int {
	return len(t.nodes)
}

func (t *Tape) push(p1, p2 int, d1, d2 float64) int {
	t.nodes = append(t.nodes, node{p1: p1, p2: p2, d1: d1, d2: d2})
	return len(t.nodes) - 1
}

// Gradient runs the reverse sweep from out and returns d(out)/d(wrt[i]) for
// every requested variable. Variables the output does not depend on get a
// zero entry. An untraced output has a zero gradient everywhere.
func (t *Tape) Gradient(out Scalar, wrt []Scalar) []float64 {
	grad := make([]float64, len(wrt))
	if out.tape != t {
		return grad
	}

	adjoint := make([]float64, len(t.nodes))
	adjoint[out.node] = 1
	for i := out.node; i >= 0; i-- {
		a := adjoint[i]
		if a == 0 {
			continue
		}
		n := t.nodes[i]
		if n.p1 >= 0 {
			adjoint[n.p1] += a * n.d1
		}
		if n.p2 >= 0 {
			adjoint[n.p2] += a * n.d2
		}
	}

	for i, v := range wrt {
		if v.tape == t {
			grad[i] = adjoint[v.node]
		}
	}
	return grad
}
