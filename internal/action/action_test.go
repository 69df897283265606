package action

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"praxis/internal/attr"
	"praxis/internal/diff"
	"praxis/internal/dist"
)

func reportModel() Model {
	return Model{
		Name: "gaussian_report",
		Schema: attr.Schema{
			Parameters: []attr.ParameterSpec{
				{Name: "value", Kind: attr.Real, Default: 0, SeedsState: "estimate"},
				{Name: "action_noise", Kind: attr.Real, Default: 1},
			},
			States:       []attr.StateSpec{{Name: "estimate", Kind: attr.Real}},
			Observations: []attr.ObservationSpec{{Name: "observation", Kind: attr.Real}},
			Actions:      []attr.ActionSpec{{Name: "report", Kind: attr.Real, Family: dist.ContinuousUnivariate}},
		},
		Step: func(b *attr.Bundle, obs map[string]attr.Value) ([]dist.Distribution, error) {
			params := b.LoadParameters()
			states := b.LoadStates()
			return []dist.Distribution{
				dist.Normal{Mu: states["estimate"].Real, Sigma: params["action_noise"].Real},
			}, nil
		},
	}
}

func TestRuntimeStep(t *testing.T) {
	rt, err := NewRuntime(reportModel())
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}
	if err := rt.Bundle().SetParameter("value", attr.FloatValue(2)); err != nil {
		t.Fatalf("set parameter: %v", err)
	}
	rt.Reset()

	dists, err := rt.Step([]float64{1.0})
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	if len(dists) != 1 {
		t.Fatalf("expected one distribution, got %d", len(dists))
	}
	n, ok := dists[0].(dist.Normal)
	if !ok {
		t.Fatalf("expected Normal, got %T", dists[0])
	}
	if n.Mu.Value() != 2 {
		t.Fatalf("distribution mean: got %f want 2", n.Mu.Value())
	}
}

func TestRuntimeObservationArityChecked(t *testing.T) {
	rt, err := NewRuntime(reportModel())
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}
	if _, err := rt.Step([]float64{1, 2}); err == nil {
		t.Fatal("expected arity error")
	}
}

func TestRuntimeRejectsWrongFamily(t *testing.T) {
	m := reportModel()
	m.Step = func(b *attr.Bundle, obs map[string]attr.Value) ([]dist.Distribution, error) {
		return []dist.Distribution{dist.Bernoulli{P: diff.Const(0.5)}}, nil
	}
	rt, err := NewRuntime(m)
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}
	if _, err := rt.Step([]float64{1}); err == nil {
		t.Fatal("expected family mismatch error")
	}
}

func TestModelValidation(t *testing.T) {
	m := reportModel()
	m.Step = nil
	if _, err := NewRuntime(m); err == nil {
		t.Fatal("expected missing step error")
	}

	m = reportModel()
	m.Schema.Actions = nil
	if _, err := NewRuntime(m); err == nil {
		t.Fatal("expected no-actions error")
	}
}

func TestStoreActionAndSample(t *testing.T) {
	rt, err := NewRuntime(reportModel())
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}
	if err := rt.StoreAction(0, 1.25); err != nil {
		t.Fatalf("store action: %v", err)
	}
	got, err := rt.Bundle().GetAction("report")
	if err != nil {
		t.Fatalf("get action: %v", err)
	}
	if got.Float() != 1.25 {
		t.Fatalf("stored action: got %f", got.Float())
	}

	r := rand.New(rand.NewSource(5))
	v, err := SampleAction(dist.Normal{Mu: diff.Const(0), Sigma: diff.Const(1)}, r)
	if err != nil {
		t.Fatalf("sample: %v", err)
	}
	if math.IsNaN(v) {
		t.Fatal("sampled NaN")
	}
	k, err := SampleAction(dist.Categorical{P: []diff.Scalar{diff.Const(1), diff.Const(1)}}, r)
	if err != nil {
		t.Fatalf("sample discrete: %v", err)
	}
	if k != 1 && k != 2 {
		t.Fatalf("discrete sample out of range: %f", k)
	}
}

func TestRejectfWrapsSentinel(t *testing.T) {
	err := Rejectf("noise %f is not positive", -1.0)
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}
}
