package main

import (
	"fmt"
	"os"

	"github.com/aretw0/arbor/internal/cli"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "arbor",
	Short: "Arbor runs goal-tree agents described in YAML scenarios",
	Long: `Arbor drives agents that pursue a tree of goals under a shared budget.
A scenario file declares the goal tree, the tactics used to solve each goal and
optional test oracles whose verdicts are collected during the run.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	flags := rootCmd.PersistentFlags()
	flags.StringP("config", "c", "", "Config file (default ./arbor.yaml when present)")
	flags.String("log-level", "warn", "Log level: debug, info, warn or error")
	flags.String("log-format", "text", "Log format on stderr: text or json")
	flags.Bool("debug", false, "Log every goal transition and tick")
	flags.Uint64("max-ticks", 10000, "Abort an agent after this many ticks (0 = no limit)")
	flags.IntP("agents", "n", 1, "Number of agents running the scenario")
	flags.String("interval", "", "Pause between ticks, e.g. 100ms")
	flags.String("redis-addr", "", "Record verdicts in redis at host:port instead of memory")
}

// loadConfig resolves the configuration for cmd from the file, the environment and its flags.
func loadConfig(cmd *cobra.Command) (*cli.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return cli.LoadConfig(path, cmd.Flags())
}
