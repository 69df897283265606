// Package diff provides the scalar numeric type action models compute with.
//
// A Scalar either carries a plain float64 (simulation) or is additionally
// recorded on a Tape (fitting), in which case every arithmetic operation
// appends a node so that Tape.Gradient can run a reverse sweep afterwards.
// Step functions are written once against Scalar and run unchanged in both
// modes.
package diff

import "math"

// Scalar is a single real value, optionally traced on a Tape.
// The zero value is the constant 0.
type Scalar struct {
	val  float64
	node int
	tape *Tape
}

// Const wraps a plain float64. Constants are never traced.
func Const(x float64) Scalar {
	return Scalar{val: x}
}

// Value returns the underlying float64.
func (s Scalar) Value() float64 {
	return s.val
}

// Traced reports whether the scalar is recorded on a tape.
func (s Scalar) Traced() bool {
	return s.tape != nil
}

func tapeOf(a, b Scalar) *Tape {
	if a.tape != nil {
		return a.tape
	}
	return b.tape
}

func nodeOf(t *Tape, s Scalar) int {
	if s.tape != t || s.tape == nil {
		return -1
	}
	return s.node
}

func binary(a, b Scalar, val, da, db float64) Scalar {
	t := tapeOf(a, b)
	if t == nil {
		return Scalar{val: val}
	}
	idx := t.push(nodeOf(t, a), nodeOf(t, b), da, db)
	return Scalar{val: val, node: idx, tape: t}
}

func unary(a Scalar, val, da float64) Scalar {
	if a.tape == nil {
		return Scalar{val: val}
	}
	idx := a.tape.push(a.node, -1, da, 0)
	return Scalar{val: val, node: idx, tape: a.tape}
}

func Add(a, b Scalar) Scalar {
	return binary(a, b, a.val+b.val, 1, 1)
}

func Sub(a, b Scalar) Scalar {
	return binary(a, b, a.val-b.val, 1, -1)
}

func Mul(a, b Scalar) Scalar {
	return binary(a, b, a.val*b.val, b.val, a.val)
}

func Div(a, b Scalar) Scalar {
	return binary(a, b, a.val/b.val, 1/b.val, -a.val/(b.val*b.val))
}

func Neg(a Scalar) Scalar {
	return unary(a, -a.val, -1)
}

func Log(a Scalar) Scalar {
	return unary(a, math.Log(a.val), 1/a.val)
}

func Exp(a Scalar) Scalar {
	v := math.Exp(a.val)
	return unary(a, v, v)
}

func Sqrt(a Scalar) Scalar {
	v := math.Sqrt(a.val)
	return unary(a, v, 0.5/v)
}

// Pow raises a to a constant power.
func Pow(a Scalar, p float64) Scalar {
	return unary(a, math.Pow(a.val, p), p*math.Pow(a.val, p-1))
}

func Abs(a Scalar) Scalar {
	if a.val < 0 {
		return Neg(a)
	}
	return a
}

// Logistic is 1/(1+exp(-x)), computed in a form stable for large |x|.
func Logistic(a Scalar) Scalar {
	v := 1 / (1 + math.Exp(-a.val))
	return unary(a, v, v*(1-v))
}

// Log1p is log(1+x).
func Log1p(a Scalar) Scalar {
	return unary(a, math.Log1p(a.val), 1/(1+a.val))
}

// Tanh is the hyperbolic tangent.
func Tanh(a Scalar) Scalar {
	v := math.Tanh(a.val)
	return unary(a, v, 1-v*v)
}

// Sum folds a slice with Add. An empty slice sums to the constant 0.
func Sum(xs []Scalar) Scalar {
	total := Const(0)
	for _, x := range xs {
		total = Add(total, x)
	}
	return total
}

// Scale multiplies by a constant factor.
func Scale(a Scalar, c float64) Scalar {
	return unary(a, a.val*c, c)
}

// Shift adds a constant offset.
func Shift(a Scalar, c float64) Scalar {
	return unary(a, a.val+c, 1)
}
