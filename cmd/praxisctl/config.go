package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"praxis/pkg/praxis"
)

// fitConfig is the yaml shape of a fit run. Column roles, priors, and
// formulas live here; sampler knobs may be overridden by flags.
type fitConfig struct {
	Model        string                 `yaml:"model"`
	Data         string                 `yaml:"data"`
	Observations []string               `yaml:"observations"`
	Actions      []string               `yaml:"actions"`
	Groups       []string               `yaml:"groups"`
	Parameters   []string               `yaml:"parameters"`
	Priors       map[string]priorConfig `yaml:"priors"`
	Formulas     []formulaConfig        `yaml:"formulas"`
	Missing      string                 `yaml:"missing"`
	Chains       int                    `yaml:"chains"`
	Samples      int                    `yaml:"samples"`
	Warmup       int                    `yaml:"warmup"`
	StepSize     float64                `yaml:"step_size"`
	Seed         int64                  `yaml:"seed"`
	Workers      int                    `yaml:"workers"`
	Track        []string               `yaml:"track"`
	Statistic    string                 `yaml:"statistic"`
}

type priorConfig struct {
	Family string  `yaml:"family"`
	Mu     float64 `yaml:"mu"`
	Sigma  float64 `yaml:"sigma"`
	Nu     float64 `yaml:"nu"`
}

type formulaConfig struct {
	Formula string       `yaml:"formula"`
	Link    string       `yaml:"link"`
	Beta    *priorConfig `yaml:"beta"`
	Sigma   *priorConfig `yaml:"sigma"`
}

func loadFitConfig(path string) (praxis.FitRequest, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return praxis.FitRequest{}, err
	}

	var cfg fitConfig
	if err := yaml.Unmarshal(payload, &cfg); err != nil {
		return praxis.FitRequest{}, fmt.Errorf("parse %s: %w", path, err)
	}

	req := praxis.FitRequest{
		Model:        cfg.Model,
		DataPath:     cfg.Data,
		Observations: cfg.Observations,
		Actions:      cfg.Actions,
		Groups:       cfg.Groups,
		Parameters:   cfg.Parameters,
		Missing:      cfg.Missing,
		Chains:       cfg.Chains,
		Samples:      cfg.Samples,
		Warmup:       cfg.Warmup,
		StepSize:     cfg.StepSize,
		Seed:         cfg.Seed,
		Workers:      cfg.Workers,
		Track:        cfg.Track,
		Statistic:    cfg.Statistic,
	}
	if len(cfg.Priors) > 0 {
		req.Priors = make(map[string]praxis.PriorSpec, len(cfg.Priors))
		for name, p := range cfg.Priors {
			req.Priors[name] = priorSpec(p)
		}
	}
	for _, f := range cfg.Formulas {
		spec := praxis.FormulaSpec{Formula: f.Formula, Link: f.Link}
		if f.Beta != nil {
			beta := priorSpec(*f.Beta)
			spec.Beta = &beta
		}
		if f.Sigma != nil {
			sigma := priorSpec(*f.Sigma)
			spec.Sigma = &sigma
		}
		req.Formulas = append(req.Formulas, spec)
	}
	return req, nil
}

func priorSpec(p priorConfig) praxis.PriorSpec {
	return praxis.PriorSpec{Family: p.Family, Mu: p.Mu, Sigma: p.Sigma, Nu: p.Nu}
}
