package premade

import (
	"errors"
	"math"
	"testing"

	"praxis/internal/action"
	"praxis/internal/agent"
	"praxis/internal/attr"
)

func TestGaussianReportRejectsNonPositiveNoise(t *testing.T) {
	rt, err := action.NewRuntime(GaussianReport())
	if err != nil {
		t.Fatalf("runtime: %v", err)
	}
	if err := rt.Bundle().SetParameter("action_noise", attr.FloatValue(0)); err != nil {
		t.Fatalf("set parameter: %v", err)
	}
	if _, err := rt.Step([]float64{1}); !errors.Is(err, action.ErrRejected) {
		t.Fatalf("expected rejection, got %v", err)
	}
}

func TestGaussianReportLearnsTowardObservations(t *testing.T) {
	a, err := agent.New(GaussianReport(), 1)
	if err != nil {
		t.Fatalf("agent: %v", err)
	}
	if err := a.SetParameters(map[string]attr.Value{"learning_rate": attr.FloatValue(0.5)}); err != nil {
		t.Fatalf("set parameters: %v", err)
	}
	if err := a.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if _, err := a.Simulate([][]float64{{1}, {1}}); err != nil {
		t.Fatalf("simulate: %v", err)
	}

	_, states := a.History()
	want := []float64{0, 0.5, 0.75}
	for i, w := range want {
		if math.Abs(states[i][0]-w) > 1e-12 {
			t.Fatalf("estimate[%d]: got %f want %f", i, states[i][0], w)
		}
	}
}

func TestRescorlaWagnerFullLearningTrajectory(t *testing.T) {
	a, err := agent.New(RescorlaWagner(), 1)
	if err != nil {
		t.Fatalf("agent: %v", err)
	}
	if err := a.SetParameters(map[string]attr.Value{"learning_rate": attr.FloatValue(1)}); err != nil {
		t.Fatalf("set parameters: %v", err)
	}
	if err := a.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if _, err := a.Simulate([][]float64{{1}, {1}}); err != nil {
		t.Fatalf("simulate: %v", err)
	}

	// With full learning the expectation jumps to the observation and stays.
	names, states := a.History()
	if names[0] != "expected_value" {
		t.Fatalf("tracked state: %v", names)
	}
	want := []float64{0, 1, 1}
	for i, w := range want {
		if states[i][0] != w {
			t.Fatalf("expected_value[%d]: got %f want %f", i, states[i][0], w)
		}
	}
}

func TestRescorlaWagnerRejectsLearningRateOutsideUnit(t *testing.T) {
	rt, err := action.NewRuntime(RescorlaWagner())
	if err != nil {
		t.Fatalf("runtime: %v", err)
	}
	if err := rt.Bundle().SetParameter("learning_rate", attr.FloatValue(1.5)); err != nil {
		t.Fatalf("set parameter: %v", err)
	}
	if _, err := rt.Step([]float64{1}); !errors.Is(err, action.ErrRejected) {
		t.Fatalf("expected rejection, got %v", err)
	}
}

func TestPVLDeltaUpdatesChosenOptionOnly(t *testing.T) {
	rt, err := action.NewRuntime(PVLDelta(4))
	if err != nil {
		t.Fatalf("runtime: %v", err)
	}
	if err := rt.Bundle().SetParameter("learning_rate", attr.FloatValue(0.5)); err != nil {
		t.Fatalf("set parameter: %v", err)
	}

	if _, err := rt.Step([]float64{1, 10}); err != nil {
		t.Fatalf("step: %v", err)
	}

	ev, err := rt.Bundle().GetState("expected_value")
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	got := ev.Floats()
	want := []float64{5, 0, 0, 0}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Fatalf("expected_value: got %v want %v", got, want)
		}
	}
}

func TestPVLDeltaLossAversionScalesLosses(t *testing.T) {
	rt, err := action.NewRuntime(PVLDelta(2))
	if err != nil {
		t.Fatalf("runtime: %v", err)
	}
	params := map[string]attr.Value{
		"learning_rate": attr.FloatValue(0.5),
		"loss_aversion": attr.FloatValue(2),
	}
	if err := rt.Bundle().SetParameters(params); err != nil {
		t.Fatalf("set parameters: %v", err)
	}

	// Utility of reward -2 with sensitivity 1 and aversion 2 is -4.
	if _, err := rt.Step([]float64{2, -2}); err != nil {
		t.Fatalf("step: %v", err)
	}
	ev, err := rt.Bundle().GetState("expected_value")
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	got := ev.Floats()
	if got[0] != 0 || math.Abs(got[1]-(-2)) > 1e-12 {
		t.Fatalf("expected_value: got %v", got)
	}
}

func TestPVLDeltaFirstTrialSkipsUpdate(t *testing.T) {
	rt, err := action.NewRuntime(PVLDelta(4))
	if err != nil {
		t.Fatalf("runtime: %v", err)
	}

	// Option 0 marks "no previous choice"; expectations stay at zero.
	if _, err := rt.Step([]float64{0, 10}); err != nil {
		t.Fatalf("step: %v", err)
	}
	ev, err := rt.Bundle().GetState("expected_value")
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	for i, v := range ev.Floats() {
		if v != 0 {
			t.Fatalf("expected_value[%d] moved: %f", i, v)
		}
	}
}

func TestPVLDeltaZeroRewardLeavesUtilityZero(t *testing.T) {
	rt, err := action.NewRuntime(PVLDelta(2))
	if err != nil {
		t.Fatalf("runtime: %v", err)
	}
	if err := rt.Bundle().SetParameter("learning_rate", attr.FloatValue(1)); err != nil {
		t.Fatalf("set parameter: %v", err)
	}

	if _, err := rt.Step([]float64{1, 0}); err != nil {
		t.Fatalf("step: %v", err)
	}
	ev, err := rt.Bundle().GetState("expected_value")
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	got := ev.Floats()
	if got[0] != 0 || got[1] != 0 {
		t.Fatalf("expected_value: got %v", got)
	}
}
