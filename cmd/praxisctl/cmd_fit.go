package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"praxis/pkg/praxis"
)

var fitFlags struct {
	config       string
	model        string
	data         string
	observations []string
	actions      []string
	groups       []string
	parameters   []string
	missing      string
	chains       int
	samples      int
	warmup       int
	stepSize     float64
	seed         int64
	workers      int
	track        []string
	statistic    string
}

var fitCmd = &cobra.Command{
	Use:   "fit [config.yaml]",
	Short: "Fit a model to a behavioral dataset",
	Long: `Fit assembles an action model, a population model, and a CSV dataset
into a joint posterior, samples it, and persists the run.

Usage:
  praxisctl fit run.yaml
  praxisctl fit --model gaussian_report --data trials.csv \
      --observations observation --actions report --groups id \
      --parameters value`,
	Args: cobra.MaximumNArgs(1),
	RunE: runFit,
}

func init() {
	f := fitCmd.Flags()
	f.StringVar(&fitFlags.config, "config", "", "yaml run config path")
	f.StringVar(&fitFlags.model, "model", "", "registered model name")
	f.StringVar(&fitFlags.data, "data", "", "dataset CSV path")
	f.StringSliceVar(&fitFlags.observations, "observations", nil, "observation column names")
	f.StringSliceVar(&fitFlags.actions, "actions", nil, "action column names")
	f.StringSliceVar(&fitFlags.groups, "groups", nil, "session grouping column names")
	f.StringSliceVar(&fitFlags.parameters, "parameters", nil, "parameters to fit under standard normal priors")
	f.StringVar(&fitFlags.missing, "missing", "", "missing-action policy: skip|infer")
	f.IntVar(&fitFlags.chains, "chains", 0, "chain count")
	f.IntVar(&fitFlags.samples, "samples", 0, "retained samples per chain")
	f.IntVar(&fitFlags.warmup, "warmup", 0, "warmup iterations per chain")
	f.Float64Var(&fitFlags.stepSize, "step-size", 0, "initial sampler step size")
	f.Int64Var(&fitFlags.seed, "seed", 0, "rng seed")
	f.IntVar(&fitFlags.workers, "workers", 0, "concurrent chains (0 runs all at once)")
	f.StringSliceVar(&fitFlags.track, "track", nil, "state names to extract trajectories for")
	f.StringVar(&fitFlags.statistic, "statistic", "", "summary statistic: mean|median")
}

func runFit(cmd *cobra.Command, args []string) error {
	configPath := fitFlags.config
	if configPath == "" && len(args) > 0 {
		configPath = args[0]
	}

	req := praxis.FitRequest{}
	if configPath != "" {
		loaded, err := loadFitConfig(configPath)
		if err != nil {
			return err
		}
		req = loaded
	}
	applyFitFlags(&req)

	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	summary, err := client.Fit(cmd.Context(), req)
	if err != nil {
		return err
	}
	printFitSummary(cmd, summary)
	return nil
}

func applyFitFlags(req *praxis.FitRequest) {
	if fitFlags.model != "" {
		req.Model = fitFlags.model
	}
	if fitFlags.data != "" {
		req.DataPath = fitFlags.data
	}
	if len(fitFlags.observations) > 0 {
		req.Observations = fitFlags.observations
	}
	if len(fitFlags.actions) > 0 {
		req.Actions = fitFlags.actions
	}
	if len(fitFlags.groups) > 0 {
		req.Groups = fitFlags.groups
	}
	if len(fitFlags.parameters) > 0 {
		req.Parameters = fitFlags.parameters
	}
	if fitFlags.missing != "" {
		req.Missing = fitFlags.missing
	}
	if fitFlags.chains > 0 {
		req.Chains = fitFlags.chains
	}
	if fitFlags.samples > 0 {
		req.Samples = fitFlags.samples
	}
	if fitFlags.warmup > 0 {
		req.Warmup = fitFlags.warmup
	}
	if fitFlags.stepSize > 0 {
		req.StepSize = fitFlags.stepSize
	}
	if fitFlags.seed != 0 {
		req.Seed = fitFlags.seed
	}
	if fitFlags.workers > 0 {
		req.Workers = fitFlags.workers
	}
	if len(fitFlags.track) > 0 {
		req.Track = fitFlags.track
	}
	if fitFlags.statistic != "" {
		req.Statistic = fitFlags.statistic
	}
}

func printFitSummary(cmd *cobra.Command, summary praxis.FitSummary) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run %s (%d sessions)\n", summary.RunID, len(summary.Sessions))
	fmt.Fprintf(out, "artifacts: %s\n", summary.ArtifactsDir)
	for chain := range summary.AcceptRates {
		fmt.Fprintf(out, "chain %d: accept=%.3f step=%.4g\n", chain, summary.AcceptRates[chain], summary.StepSizes[chain])
	}
	printTable(out, summary.ParameterSummary)
}
