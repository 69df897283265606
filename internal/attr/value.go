package attr

import "praxis/internal/diff"

// Value is one attribute cell: a real scalar, an integer, or a real vector.
// Real cells carry diff.Scalar so autodiff flows through state mutation.
type Value struct {
	Kind   Kind
	Real   diff.Scalar
	Int    int
	Vector []diff.Scalar
}

func RealValue(s diff.Scalar) Value {
	return Value{Kind: Real, Real: s}
}

func FloatValue(x float64) Value {
	return Value{Kind: Real, Real: diff.Const(x)}
}

func IntValue(k int) Value {
	return Value{Kind: Int, Int: k}
}

func VectorValue(xs []diff.Scalar) Value {
	return Value{Kind: RealVector, Vector: xs}
}

func FloatVectorValue(xs []float64) Value {
	vec := make([]diff.Scalar, len(xs))
	for i, x := range xs {
		vec[i] = diff.Const(x)
	}
	return Value{Kind: RealVector, Vector: vec}
}

// Clone deep-copies the cell so later mutation cannot alias.
func (v Value) Clone() Value {
	out := v
	if v.Vector != nil {
		out.Vector = append([]diff.Scalar(nil), v.Vector...)
	}
	return out
}

// Float collapses the cell to a plain float64 (ints widen; vectors return
// their first element, callers wanting the full vector use Floats).
func (v Value) Float() float64 {
	switch v.Kind {
	case Int:
		return float64(v.Int)
	case RealVector:
		if len(v.Vector) == 0 {
			return 0
		}
		return v.Vector[0].Value()
	default:
		return v.Real.Value()
	}
}

// Floats returns the cell as a flat float64 slice: one element for scalars
// and ints, one per component for vectors.
func (v Value) Floats() []float64 {
	switch v.Kind {
	case RealVector:
		out := make([]float64, len(v.Vector))
		for i, s := range v.Vector {
			out[i] = s.Value()
		}
		return out
	case Int:
		return []float64{float64(v.Int)}
	default:
		return []float64{v.Real.Value()}
	}
}
