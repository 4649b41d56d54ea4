// Package main provides the entry point for the dataflowctl CLI, a small
// diagnostic tool that builds one of the worked example circuits and
// drives it step by step, printing each tick's Z-set as a table.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/arclight-data/dataflow/cmd/dataflowctl/commands"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "dataflowctl",
		Short: "dataflowctl drives worked incremental dataflow circuits",
		Long: `dataflowctl builds one of the incremental dataflow engine's worked
example circuits (transitive closure, label propagation, incremental
two-hop join) and steps it
tick by tick, rendering each step's Z-set as a table.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(commands.NewRunCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
