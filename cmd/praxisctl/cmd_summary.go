package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"praxis/pkg/praxis"
)

var summaryFlags struct {
	runID  string
	latest bool
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show one run's persisted record and summary tables",
	RunE:  runSummary,
}

func init() {
	f := summaryCmd.Flags()
	f.StringVar(&summaryFlags.runID, "run-id", "", "run id")
	f.BoolVar(&summaryFlags.latest, "latest", false, "use the most recent run")
}

func runSummary(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	result, err := client.Summary(cmd.Context(), praxis.SummaryRequest{
		RunID:  summaryFlags.runID,
		Latest: summaryFlags.latest,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	run := result.Run
	fmt.Fprintf(out, "run %s model=%s created=%s\n", run.ID, run.Model, run.CreatedAt.Format("2006-01-02T15:04:05Z"))
	fmt.Fprintf(out, "chains=%d samples=%d warmup=%d seed=%d\n",
		run.Settings.Chains, run.Settings.Samples, run.Settings.Warmup, run.Settings.Seed)
	fmt.Fprintf(out, "sessions: %v\n", run.Sessions)
	printTable(out, result.ParameterSummary)
	printTable(out, result.TrajectorySummary)
	return nil
}
