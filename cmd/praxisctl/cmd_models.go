package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the registered model catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		defer client.Close()

		for _, name := range client.Models() {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}
