package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"praxis/pkg/praxis"
)

var simulateFlags struct {
	model        string
	data         string
	observations []string
	params       []string
	seed         int64
	track        []string
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run one agent forward over an observation sequence",
	Long: `Simulate feeds a CSV of observations through a model, sampling one
action per timestep and recording the visited states.

Usage:
  praxisctl simulate --model rescorla_wagner --data trials.csv \
      --observations observation --param learning_rate=0.3 --seed 7`,
	RunE: runSimulate,
}

func init() {
	f := simulateCmd.Flags()
	f.StringVar(&simulateFlags.model, "model", "", "registered model name")
	f.StringVar(&simulateFlags.data, "data", "", "observation CSV path")
	f.StringSliceVar(&simulateFlags.observations, "observations", nil, "observation column names")
	f.StringArrayVar(&simulateFlags.params, "param", nil, "parameter override as name=value (repeatable)")
	f.Int64Var(&simulateFlags.seed, "seed", 1, "rng seed")
	f.StringSliceVar(&simulateFlags.track, "track", nil, "state names to record (default all)")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	params, err := parseParamFlags(simulateFlags.params)
	if err != nil {
		return err
	}

	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	summary, err := client.Simulate(cmd.Context(), praxis.SimulateRequest{
		Model:        simulateFlags.model,
		Parameters:   params,
		DataPath:     simulateFlags.data,
		Observations: simulateFlags.observations,
		Seed:         simulateFlags.seed,
		Track:        simulateFlags.track,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "actions (%s):\n", strings.Join(summary.ActionNames, ", "))
	for t, row := range summary.Actions {
		fmt.Fprintf(out, "  %d: %v\n", t, row)
	}
	fmt.Fprintf(out, "states (%s):\n", strings.Join(summary.StateNames, ", "))
	for t, row := range summary.History {
		fmt.Fprintf(out, "  %d: %v\n", t, row)
	}
	return nil
}

func parseParamFlags(raw []string) (map[string]float64, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make(map[string]float64, len(raw))
	for _, pair := range raw {
		name, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("malformed --param %q, want name=value", pair)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, fmt.Errorf("malformed --param %q: %q is not numeric", pair, value)
		}
		out[strings.TrimSpace(name)] = v
	}
	return out, nil
}
