package main

import (
	"github.com/aretw0/arbor/internal/cli"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph <scenario.yaml>",
	Short: "Export the goal tree visualization",
	Long:  `Builds the goal tree of a scenario and outputs a Mermaid diagram (graph TD) of it.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cli.GraphScenario(cmd.OutOrStdout(), args[0])
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
