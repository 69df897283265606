package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"praxis/pkg/praxis"
)

var exportFlags struct {
	runID  string
	latest bool
	outDir string
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Copy one run's artifacts for sharing",
	RunE:  runExport,
}

func init() {
	f := exportCmd.Flags()
	f.StringVar(&exportFlags.runID, "run-id", "", "run id")
	f.BoolVar(&exportFlags.latest, "latest", false, "use the most recent run")
	f.StringVar(&exportFlags.outDir, "out", "", "output directory (default: the exports directory)")
}

func runExport(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	summary, err := client.Export(cmd.Context(), praxis.ExportRequest{
		RunID:  exportFlags.runID,
		Latest: exportFlags.latest,
		OutDir: exportFlags.outDir,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "exported %s to %s\n", summary.RunID, summary.Directory)
	return nil
}
