package main

import (
	"fmt"

	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/goal"
	"github.com/aretw0/arbor/pkg/scenario"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <scenario.yaml>...",
	Short: "Check scenarios for consistency",
	Long:  `Parses each scenario, compiles its expressions and builds its goal tree without running it.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, path := range args {
			if err := runValidate(path); err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is valid! ✅\n", path)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(path string) error {
	spec, err := scenario.Load(path)
	if err != nil {
		return err
	}
	root, err := spec.Build(scenario.WithVerdictSink(memory.NewVerdictLog()))
	if err != nil {
		return err
	}
	_, err = goal.Build(root)
	return err
}
