package population

import (
	"math"
	"math/rand"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"praxis/internal/data"
	"praxis/internal/diff"
	"praxis/internal/dist"
	"praxis/internal/formula"
)

func stdNormalPrior() dist.Prior {
	return dist.Normal{Mu: diff.Const(0), Sigma: diff.Const(1)}
}

func TestIndependentLayout(t *testing.T) {
	m, err := NewIndependent([]Param{
		{Name: "learning_rate", Prior: stdNormalPrior()},
		{Name: "action_noise", Prior: dist.LogNormal{Mu: diff.Const(0), Sigma: diff.Const(1)}},
	}, []string{"s1", "s2"})
	if err != nil {
		t.Fatalf("new independent: %v", err)
	}
	if m.Dim() != 4 {
		t.Fatalf("dim: got %d want 4", m.Dim())
	}
	wantNames := []string{
		"learning_rate.s1", "learning_rate.s2",
		"action_noise.s1", "action_noise.s2",
	}
	if diff := cmp.Diff(wantNames, m.LatentNames()); diff != "" {
		t.Fatalf("latent names (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"learning_rate", "action_noise"}, m.ParameterNames()); diff != "" {
		t.Fatalf("parameter names (-want +got):\n%s", diff)
	}
}

func TestIndependentRealize(t *testing.T) {
	m, err := NewIndependent([]Param{
		{Name: "lr", Prior: stdNormalPrior()},
		{Name: "noise", Prior: dist.LogNormal{Mu: diff.Const(0), Sigma: diff.Const(1)}},
	}, []string{"s1", "s2"})
	if err != nil {
		t.Fatalf("new independent: %v", err)
	}

	lat := []diff.Scalar{diff.Const(0.4), diff.Const(-0.2), diff.Const(0.1), diff.Const(-0.5)}
	values, logPrior, err := m.Realize(lat)
	if err != nil {
		t.Fatalf("realize: %v", err)
	}

	// Identity-bijected parameters pass through; exp-bijected ones are
	// exponentiated.
	if got := values[0][0].Value(); got != 0.4 {
		t.Fatalf("lr s1: got %f", got)
	}
	if got := values[1][1].Value(); math.Abs(got-math.Exp(-0.5)) > 1e-12 {
		t.Fatalf("noise s2: got %f", got)
	}

	normal := stdNormalPrior()
	logNormal := dist.LogNormal{Mu: diff.Const(0), Sigma: diff.Const(1)}
	want := normal.LogPDF(diff.Const(0.4)).Value() +
		normal.LogPDF(diff.Const(-0.2)).Value() +
		logNormal.LogPDF(diff.Const(math.Exp(0.1))).Value() + 0.1 +
		logNormal.LogPDF(diff.Const(math.Exp(-0.5))).Value() + (-0.5)
	if got := logPrior.Value(); math.Abs(got-want) > 1e-10 {
		t.Fatalf("log prior: got %f want %f", got, want)
	}
}

func TestIndependentRealizeDimChecked(t *testing.T) {
	m, err := NewSingleSession([]Param{{Name: "lr", Prior: stdNormalPrior()}})
	if err != nil {
		t.Fatalf("new single session: %v", err)
	}
	if _, _, err := m.Realize([]diff.Scalar{diff.Const(0), diff.Const(0)}); err == nil {
		t.Fatal("expected dimension error")
	}
}

func TestIndependentDrawLatentsRespectsSupport(t *testing.T) {
	m, err := NewIndependent([]Param{
		{Name: "noise", Prior: dist.LogNormal{Mu: diff.Const(0), Sigma: diff.Const(0.5)}},
	}, []string{"s1", "s2", "s3"})
	if err != nil {
		t.Fatalf("new independent: %v", err)
	}
	r := rand.New(rand.NewSource(11))
	for trial := 0; trial < 20; trial++ {
		lat := m.DrawLatents(r)
		if len(lat) != m.Dim() {
			t.Fatalf("latent length: got %d want %d", len(lat), m.Dim())
		}
		scalars := make([]diff.Scalar, len(lat))
		for i, x := range lat {
			scalars[i] = diff.Const(x)
		}
		values, _, err := m.Realize(scalars)
		if err != nil {
			t.Fatalf("realize: %v", err)
		}
		for s := range values {
			if v := values[s][0].Value(); v <= 0 || math.IsNaN(v) {
				t.Fatalf("materialized noise out of support: %f", v)
			}
		}
	}
}

func TestIndependentValidation(t *testing.T) {
	if _, err := NewIndependent(nil, []string{"s1"}); err == nil {
		t.Fatal("expected empty-params error")
	}
	if _, err := NewIndependent([]Param{{Name: "lr", Prior: stdNormalPrior()}}, nil); err == nil {
		t.Fatal("expected empty-sessions error")
	}
	if _, err := NewIndependent([]Param{{Name: "lr"}}, []string{"s1"}); err == nil {
		t.Fatal("expected missing-prior error")
	}
	if _, err := NewIndependent([]Param{
		{Name: "lr", Prior: stdNormalPrior()},
		{Name: "lr", Prior: stdNormalPrior()},
	}, []string{"s1"}); err == nil {
		t.Fatal("expected duplicate error")
	}
}

func regressionFixture(t *testing.T, src string) *Regression {
	t.Helper()
	tab, err := data.ReadCSV(strings.NewReader(`id,age,group
p1,20,ctrl
p2,30,treat
p3,25,ctrl
`))
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	f, err := formula.Parse(src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	d, err := formula.Build(f, tab)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	m, err := NewRegression([]RegressionParam{{Target: f.Target, Design: d, Link: IdentityLink}})
	if err != nil {
		t.Fatalf("new regression: %v", err)
	}
	return m
}

func TestRegressionRealize(t *testing.T) {
	m := regressionFixture(t, "lr ~ 1 + (1|group)")

	// Layout: beta.(Intercept), sigma.1|group, z.ctrl, z.treat.
	wantNames := []string{
		"lr.beta.(Intercept)",
		"lr.sigma.1|group",
		"lr.z.1|group:ctrl",
		"lr.z.1|group:treat",
	}
	if diff := cmp.Diff(wantNames, m.LatentNames()); diff != "" {
		t.Fatalf("latent names (-want +got):\n%s", diff)
	}

	lat := []diff.Scalar{
		diff.Const(0.3),         // intercept
		diff.Const(math.Log(2)), // sigma = 2
		diff.Const(0.5),         // z ctrl -> effect 1
		diff.Const(-1),          // z treat -> effect -2
	}
	values, logPrior, err := m.Realize(lat)
	if err != nil {
		t.Fatalf("realize: %v", err)
	}
	want := []float64{1.3, -1.7, 1.3}
	for s, w := range want {
		if got := values[s][0].Value(); math.Abs(got-w) > 1e-12 {
			t.Fatalf("session %d: got %f want %f", s, got, w)
		}
	}
	if v := logPrior.Value(); math.IsNaN(v) || math.IsInf(v, 0) {
		t.Fatalf("log prior not finite: %f", v)
	}
}

func TestRegressionZeroEffectsReduceToFixed(t *testing.T) {
	m := regressionFixture(t, "lr ~ 1 + age + (1|id)")

	lat := make([]diff.Scalar, m.Dim())
	lat[0] = diff.Const(0.1)  // intercept
	lat[1] = diff.Const(0.02) // age slope
	for i := 2; i < len(lat); i++ {
		lat[i] = diff.Const(0) // sigma latent and z draws
	}
	// z = 0 zeroes the random effects regardless of sigma.
	values, _, err := m.Realize(lat)
	if err != nil {
		t.Fatalf("realize: %v", err)
	}
	ages := []float64{20, 30, 25}
	for s, age := range ages {
		want := 0.1 + 0.02*age
		if got := values[s][0].Value(); math.Abs(got-want) > 1e-12 {
			t.Fatalf("session %d: got %f want %f", s, got, want)
		}
	}
}

func TestRegressionInterceptOnlySharesOneValue(t *testing.T) {
	tab, err := data.ReadCSV(strings.NewReader("id\na\nb\nc\nd\ne\n"))
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	f, err := formula.Parse("value ~ 1")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	d, err := formula.Build(f, tab)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	m, err := NewRegression([]RegressionParam{{Target: "value", Design: d, Link: IdentityLink}})
	if err != nil {
		t.Fatalf("new regression: %v", err)
	}

	if m.Dim() != 1 {
		t.Fatalf("intercept-only dim: got %d want 1", m.Dim())
	}
	values, _, err := m.Realize([]diff.Scalar{diff.Const(0.7)})
	if err != nil {
		t.Fatalf("realize: %v", err)
	}
	if len(values) != 5 {
		t.Fatalf("sessions: got %d want 5", len(values))
	}
	for s := range values {
		if got := values[s][0].Value(); got != 0.7 {
			t.Fatalf("session %d: got %f want 0.7", s, got)
		}
	}
}

func TestRegressionLogisticLinkBounds(t *testing.T) {
	tab, err := data.ReadCSV(strings.NewReader("id,x\na,1\nb,2\n"))
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	f, err := formula.Parse("lr ~ 1 + x")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	d, err := formula.Build(f, tab)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	m, err := NewRegression([]RegressionParam{{Target: "lr", Design: d, Link: LogisticLink}})
	if err != nil {
		t.Fatalf("new regression: %v", err)
	}

	values, _, err := m.Realize([]diff.Scalar{diff.Const(3), diff.Const(4)})
	if err != nil {
		t.Fatalf("realize: %v", err)
	}
	for s := range values {
		v := values[s][0].Value()
		if v <= 0 || v >= 1 {
			t.Fatalf("session %d: logistic value out of (0,1): %f", s, v)
		}
	}
}

func TestRegressionGradientFlows(t *testing.T) {
	m := regressionFixture(t, "lr ~ 1 + (1|group)")

	tape := diff.NewTape()
	lat := []diff.Scalar{tape.Var(0.3), tape.Var(0), tape.Var(0), tape.Var(0)}
	values, _, err := m.Realize(lat)
	if err != nil {
		t.Fatalf("realize: %v", err)
	}
	grads := tape.Gradient(values[0][0], []diff.Scalar{lat[0]})
	if math.Abs(grads[0]-1) > 1e-12 {
		t.Fatalf("intercept gradient: got %f want 1", grads[0])
	}
}

func TestLinkByName(t *testing.T) {
	for name, want := range map[string]Link{
		"":         IdentityLink,
		"identity": IdentityLink,
		"logistic": LogisticLink,
		"exp":      ExpLink,
	} {
		got, err := LinkByName(name)
		if err != nil || got != want {
			t.Fatalf("%q: got %v, %v", name, got, err)
		}
	}
	if _, err := LinkByName("probit"); err == nil {
		t.Fatal("expected unknown link error")
	}
}
