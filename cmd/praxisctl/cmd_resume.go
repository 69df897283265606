package main

import (
	"errors"

	"github.com/spf13/cobra"

	"praxis/pkg/praxis"
)

var resumeFlags struct {
	runID   string
	latest  bool
	samples int
	config  string
}

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Continue sampling a persisted run",
	Long: `Resume reassembles a run's stored chain segments, continues each chain
from its last draw with the stored step size, and persists the extension
as new segments. The config must describe the same model and dataset as
the original fit.`,
	RunE: runResume,
}

func init() {
	f := resumeCmd.Flags()
	f.StringVar(&resumeFlags.runID, "run-id", "", "run id to resume")
	f.BoolVar(&resumeFlags.latest, "latest", false, "resume the most recent run")
	f.IntVar(&resumeFlags.samples, "samples", 0, "additional retained samples per chain (default: the run's original budget)")
	f.StringVar(&resumeFlags.config, "config", "", "yaml run config path")
}

func runResume(cmd *cobra.Command, args []string) error {
	if resumeFlags.config == "" {
		return errors.New("resume requires --config to rebuild the problem")
	}
	req, err := loadFitConfig(resumeFlags.config)
	if err != nil {
		return err
	}

	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	summary, err := client.Resume(cmd.Context(), praxis.ResumeRequest{
		RunID:   resumeFlags.runID,
		Latest:  resumeFlags.latest,
		Samples: resumeFlags.samples,
		Request: req,
	})
	if err != nil {
		return err
	}
	printFitSummary(cmd, summary)
	return nil
}
