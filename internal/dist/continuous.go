package dist

import (
	"math"
	"math/rand"

	"praxis/internal/diff"
)

const logSqrt2Pi = 0.9189385332046727 // log(sqrt(2*pi))

// Normal is the Gaussian family with mean Mu and standard deviation Sigma.
type Normal struct {
	Mu    diff.Scalar
	Sigma diff.Scalar
}

func (Normal) Support() Support { return ContinuousUnivariate }

func (d Normal) LogPDF(x diff.Scalar) diff.Scalar {
	z := diff.Div(diff.Sub(x, d.Mu), d.Sigma)
	return diff.Sub(
		diff.Shift(diff.Scale(diff.Mul(z, z), -0.5), -logSqrt2Pi),
		diff.Log(d.Sigma),
	)
}

func (d Normal) Sample(r *rand.Rand) float64 {
	return d.Mu.Value() + r.NormFloat64()*d.Sigma.Value()
}

func (Normal) Bijector() Bijector { return Identity }

// LogNormal is the distribution of exp(Normal(Mu, Sigma)).
type LogNormal struct {
	Mu    diff.Scalar
	Sigma diff.Scalar
}

func (LogNormal) Support() Support { return ContinuousUnivariate }

func (d LogNormal) LogPDF(x diff.Scalar) diff.Scalar {
	lx := diff.Log(x)
	return diff.Sub(Normal{Mu: d.Mu, Sigma: d.Sigma}.LogPDF(lx), lx)
}

func (d LogNormal) Sample(r *rand.Rand) float64 {
	return math.Exp(d.Mu.Value() + r.NormFloat64()*d.Sigma.Value())
}

func (LogNormal) Bijector() Bijector { return ExpBijector }

// StudentT is the location-scale t family with Nu degrees of freedom.
// Nu is a plain constant; location and scale may be traced.
type StudentT struct {
	Nu    float64
	Mu    diff.Scalar
	Sigma diff.Scalar
}

func (StudentT) Support() Support { return ContinuousUnivariate }

func (d StudentT) LogPDF(x diff.Scalar) diff.Scalar {
	lg1, _ := math.Lgamma((d.Nu + 1) / 2)
	lg2, _ := math.Lgamma(d.Nu / 2)
	constTerm := lg1 - lg2 - 0.5*math.Log(d.Nu*math.Pi)

	z := diff.Div(diff.Sub(x, d.Mu), d.Sigma)
	kernel := diff.Scale(diff.Log1p(diff.Scale(diff.Mul(z, z), 1/d.Nu)), -(d.Nu+1)/2)
	return diff.Shift(diff.Sub(kernel, diff.Log(d.Sigma)), constTerm)
}

func (d StudentT) Sample(r *rand.Rand) float64 {
	chi2 := 2 * gammaSample(r, d.Nu/2)
	return d.Mu.Value() + d.Sigma.Value()*r.NormFloat64()/math.Sqrt(chi2/d.Nu)
}

func (StudentT) Bijector() Bijector { return Identity }

// HalfStudentT is StudentT(Nu, 0, Sigma) truncated to the non-negative
// reals, the default prior for random-effect scales.
type HalfStudentT struct {
	Nu    float64
	Sigma diff.Scalar
}

func (HalfStudentT) Support() Support { return ContinuousUnivariate }

func (d HalfStudentT) LogPDF(x diff.Scalar) diff.Scalar {
	full := StudentT{Nu: d.Nu, Mu: diff.Const(0), Sigma: d.Sigma}
	return diff.Shift(full.LogPDF(x), math.Log(2))
}

func (d HalfStudentT) Sample(r *rand.Rand) float64 {
	full := StudentT{Nu: d.Nu, Mu: diff.Const(0), Sigma: d.Sigma}
	return math.Abs(full.Sample(r))
}

func (HalfStudentT) Bijector() Bijector { return ExpBijector }

// MvNormalDiag is a multivariate normal with a diagonal covariance, given as
// per-dimension means and standard deviations.
type MvNormalDiag struct {
	Mu    []diff.Scalar
	Sigma []diff.Scalar
}

func (MvNormalDiag) Support() Support { return ContinuousMultivariate }

func (d MvNormalDiag) LogPDFVec(x []diff.Scalar) diff.Scalar {
	total := diff.Const(0)
	for i := range x {
		total = diff.Add(total, Normal{Mu: d.Mu[i], Sigma: d.Sigma[i]}.LogPDF(x[i]))
	}
	return total
}

func (d MvNormalDiag) SampleVec(r *rand.Rand) []float64 {
	out := make([]float64, len(d.Mu))
	for i := range d.Mu {
		out[i] = d.Mu[i].Value() + r.NormFloat64()*d.Sigma[i].Value()
	}
	return out
}

// gammaSample draws from Gamma(shape, 1) via Marsaglia-Tsang squeeze.
func gammaSample(r *rand.Rand, shape float64) float64 {
	if shape < 1 {
		// Boost: Gamma(a) = Gamma(a+1) * U^(1/a).
		return gammaSample(r, shape+1) * math.Pow(r.Float64(), 1/shape)
	}
	d := shape - 1.0/3.0
	c := 1 / math.Sqrt(9*d)
	for {
		x := r.NormFloat64()
		v := 1 + c*x
		if v <= 0 {
			continue
		}
		v = v * v * v
		u := r.Float64()
		if u < 1-0.0331*x*x*x*x {
			return d * v
		}
		if math.Log(u) < 0.5*x*x+d*(1-v+math.Log(v)) {
			return d * v
		}
	}
}
