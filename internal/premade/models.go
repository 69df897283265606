package premade

import (
	"praxis/internal/action"
	"praxis/internal/attr"
	"praxis/internal/diff"
	"praxis/internal/dist"
)

// GaussianReport reports a noisy estimate of an internal value and nudges
// the estimate toward each observation. With learning_rate zero it reduces
// to repeated noisy reports of one latent value.
func GaussianReport() action.Model {
	return action.Model{
		Name: "gaussian_report",
		Schema: attr.Schema{
			Parameters: []attr.ParameterSpec{
				{Name: "value", Kind: attr.Real, Default: 0, SeedsState: "estimate"},
				{Name: "learning_rate", Kind: attr.Real, Default: 0},
				{Name: "action_noise", Kind: attr.Real, Default: 1},
			},
			States:       []attr.StateSpec{{Name: "estimate", Kind: attr.Real}},
			Observations: []attr.ObservationSpec{{Name: "observation", Kind: attr.Real}},
			Actions:      []attr.ActionSpec{{Name: "report", Kind: attr.Real, Family: dist.ContinuousUnivariate}},
		},
		Step: func(b *attr.Bundle, obs map[string]attr.Value) ([]dist.Distribution, error) {
			params := b.LoadParameters()
			states := b.LoadStates()

			noise := params["action_noise"].Real
			if noise.Value() <= 0 {
				return nil, action.Rejectf("action_noise must be positive, got %g", noise.Value())
			}

			est := states["estimate"].Real
			d := dist.Normal{Mu: est, Sigma: noise}

			next := diff.Add(est, diff.Mul(params["learning_rate"].Real, diff.Sub(obs["observation"].Real, est)))
			if err := b.UpdateState("estimate", attr.RealValue(next)); err != nil {
				return nil, err
			}
			return []dist.Distribution{d}, nil
		},
	}
}

// RescorlaWagner tracks an expected value with a delta rule and emits a
// binary choice whose log-odds are the expectation scaled by the action
// precision. The choice distribution uses the expectation from before the
// current observation's update.
func RescorlaWagner() action.Model {
	return action.Model{
		Name: "rescorla_wagner",
		Schema: attr.Schema{
			Parameters: []attr.ParameterSpec{
				{Name: "initial_value", Kind: attr.Real, Default: 0, SeedsState: "expected_value"},
				{Name: "learning_rate", Kind: attr.Real, Default: 0.1},
				{Name: "action_precision", Kind: attr.Real, Default: 1},
			},
			States:       []attr.StateSpec{{Name: "expected_value", Kind: attr.Real}},
			Observations: []attr.ObservationSpec{{Name: "observation", Kind: attr.Real}},
			Actions:      []attr.ActionSpec{{Name: "choice", Kind: attr.Int, Family: dist.DiscreteUnivariate}},
		},
		Step: func(b *attr.Bundle, obs map[string]attr.Value) ([]dist.Distribution, error) {
			params := b.LoadParameters()
			states := b.LoadStates()

			lr := params["learning_rate"].Real
			if lr.Value() < 0 || lr.Value() > 1 {
				return nil, action.Rejectf("learning_rate must lie in [0,1], got %g", lr.Value())
			}

			v := states["expected_value"].Real
			d := dist.Bernoulli{P: diff.Logistic(diff.Mul(params["action_precision"].Real, v))}

			next := diff.Add(v, diff.Mul(lr, diff.Sub(obs["observation"].Real, v)))
			if err := b.UpdateState("expected_value", attr.RealValue(next)); err != nil {
				return nil, err
			}
			return []dist.Distribution{d}, nil
		},
	}
}

// PVLDelta is the prospect-valence-learning delta model over nOptions decks.
// Each timestep observes the previously chosen option and its reward; the
// choice distribution is a softmax over the expected values as they stand
// before that reward's update (act before update). Rewards pass through a
// prospect utility: magnitude raised to reward_sensitivity, losses scaled
// by loss_aversion. A chosen option outside 1..nOptions skips the update,
// which marks the first trial.
func PVLDelta(nOptions int) action.Model {
	return action.Model{
		Name: "pvl_delta",
		Schema: attr.Schema{
			Parameters: []attr.ParameterSpec{
				{Name: "learning_rate", Kind: attr.Real, Default: 0.1},
				{Name: "reward_sensitivity", Kind: attr.Real, Default: 1},
				{Name: "loss_aversion", Kind: attr.Real, Default: 1},
				{Name: "action_consistency", Kind: attr.Real, Default: 1},
			},
			States: []attr.StateSpec{
				{Name: "expected_value", Kind: attr.RealVector, InitialVector: make([]float64, nOptions), HasInitial: true},
			},
			Observations: []attr.ObservationSpec{
				{Name: "chosen_option", Kind: attr.Int},
				{Name: "reward", Kind: attr.Real},
			},
			Actions: []attr.ActionSpec{{Name: "choice", Kind: attr.Int, Family: dist.DiscreteUnivariate}},
		},
		Step: func(b *attr.Bundle, obs map[string]attr.Value) ([]dist.Distribution, error) {
			params := b.LoadParameters()
			states := b.LoadStates()

			lr := params["learning_rate"].Real
			if lr.Value() < 0 || lr.Value() > 1 {
				return nil, action.Rejectf("learning_rate must lie in [0,1], got %g", lr.Value())
			}

			ev := states["expected_value"].Vector
			logits := make([]diff.Scalar, len(ev))
			for i, e := range ev {
				logits[i] = diff.Mul(params["action_consistency"].Real, e)
			}
			d := dist.Categorical{P: dist.Softmax(logits)}

			if chosen := obs["chosen_option"].Int; chosen >= 1 && chosen <= len(ev) {
				u := prospectUtility(obs["reward"].Real, params["reward_sensitivity"].Real, params["loss_aversion"].Real)
				next := make([]diff.Scalar, len(ev))
				copy(next, ev)
				next[chosen-1] = diff.Add(ev[chosen-1], diff.Mul(lr, diff.Sub(u, ev[chosen-1])))
				if err := b.UpdateState("expected_value", attr.VectorValue(next)); err != nil {
					return nil, err
				}
			}
			return []dist.Distribution{d}, nil
		},
	}
}

// prospectUtility maps a raw reward to sign(r) * |r|^sensitivity, with
// losses additionally scaled by the aversion weight. Zero maps to zero so
// the power never sees log(0).
func prospectUtility(reward, sensitivity, aversion diff.Scalar) diff.Scalar {
	if reward.Value() == 0 {
		return diff.Const(0)
	}
	magnitude := diff.Exp(diff.Mul(sensitivity, diff.Log(diff.Abs(reward))))
	if reward.Value() < 0 {
		return diff.Neg(diff.Mul(aversion, magnitude))
	}
	return magnitude
}
