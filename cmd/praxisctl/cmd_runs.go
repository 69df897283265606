package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"praxis/internal/data"
	"praxis/pkg/praxis"
)

var runsFlags struct {
	limit int
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List persisted runs, newest first",
	RunE:  runRuns,
}

func init() {
	runsCmd.Flags().IntVar(&runsFlags.limit, "limit", 20, "maximum runs to list")
}

func runRuns(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	items, err := client.Runs(cmd.Context(), praxis.RunsRequest{Limit: runsFlags.limit})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tCREATED\tMODEL\tSESSIONS\tCHAINS\tSAMPLES\tSEED")
	for _, item := range items {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%d\n",
			item.RunID, item.CreatedAtUTC, item.Model, item.Sessions, item.Chains, item.Samples, item.Seed)
	}
	return w.Flush()
}

func printTable(out io.Writer, t data.Table) {
	if len(t.Rows) == 0 {
		return
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for i, col := range t.Columns {
		if i > 0 {
			fmt.Fprint(w, "\t")
		}
		fmt.Fprint(w, col)
	}
	fmt.Fprintln(w)
	for _, row := range t.Rows {
		for i, cell := range row {
			if i > 0 {
				fmt.Fprint(w, "\t")
			}
			fmt.Fprint(w, cell)
		}
		fmt.Fprintln(w)
	}
	w.Flush()
}
