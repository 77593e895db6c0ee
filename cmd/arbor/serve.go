package main

import (
	"github.com/aretw0/arbor/internal/cli"
	"github.com/aretw0/arbor/pkg/runner"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve <scenario.yaml>",
	Short: "Run a scenario and expose the agents over HTTP",
	Long: `Runs the agents of a scenario in the background while serving their goal trees,
a live event stream and prometheus metrics. The server stops on SIGINT or SIGTERM.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		// Serve blocks until an interrupt or terminate signal arrives.
		signals := runner.NewSignalManager(cmd.Context())
		defer signals.Stop()

		return cli.Serve(signals.Context(), cli.ServeOptions{
			RunOptions: cli.RunOptions{
				ScenarioPath: args[0],
				Config:       cfg,
				Out:          cmd.OutOrStdout(),
				Logs:         cmd.ErrOrStderr(),
			},
		})
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("metrics-addr", "a", "127.0.0.1:2112", "Address to listen on")
}
