package main

import (
	"errors"

	"github.com/aretw0/arbor/internal/cli"
	"github.com/aretw0/arbor/internal/presentation/tui"
	"github.com/aretw0/arbor/pkg/runner"
	"github.com/spf13/cobra"
)

var errRunFailed = errors.New("scenario did not pass")

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run <scenario.yaml>",
	Short: "Run a scenario until every agent is done",
	Long: `Runs the agents of a scenario to completion and prints a report of their goal
trees and the collected verdicts. The exit code is non-zero unless every agent
succeeded and no oracle failed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		jsonMode, _ := cmd.Flags().GetBool("json")
		if jsonMode && !cmd.Flags().Changed("log-format") {
			cfg.LogFormat = "json"
		}

		signals := runner.NewSignalManager(cmd.Context())
		defer signals.Stop()
		ctx := signals.Context()

		out := cmd.OutOrStdout()
		if !jsonMode && cli.IsTerminal(out) {
			tui.PrintBanner(out)
		}
		rep, err := cli.RunScenario(ctx, cli.RunOptions{
			ScenarioPath: args[0],
			Config:       cfg,
			JSON:         jsonMode,
			Out:          out,
			Logs:         cmd.ErrOrStderr(),
		})
		if err != nil {
			return err
		}
		if !rep.Passed() {
			return errRunFailed
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().Bool("json", false, "Print the report as JSON, with JSON logs unless --log-format is set")
}
