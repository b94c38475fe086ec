// Package cmd is portforge's cobra directive tree: build, worker,
// monitor, init, rebuild-repo, upgrade-host — the CLI layer spec.md §6
// names, each a thin dispatcher onto service/config/graph/scheduler.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"portforge/config"
)

var (
	flagConfigDir string
	flagProfile   string
)

// RootCmd is the entry point main.go's func main invokes via Execute.
var RootCmd = &cobra.Command{
	Use:   "portforge",
	Short: "portforge builds packages in parallel from a ports tree",
	Long: `portforge resolves a bulk port list into a dependency graph,
schedules it across sandboxed worker slots, and builds a pkg(8)
repository from the results — a Go rework of DragonFly BSD's dsynth.`,
	SilenceUsage: true,
}

func init() {
	RootCmd.PersistentFlags().StringVar(&flagConfigDir, "config-dir", "", "directory holding portforge.ini (default: /etc/portforge or /usr/local/etc/portforge)")
	RootCmd.PersistentFlags().StringVar(&flagProfile, "profile", "", "configuration profile to select (default: Global Configuration's profile key)")

	RootCmd.AddCommand(buildCmd, workerCmd, monitorCmd, initCmd, rebuildRepoCmd, upgradeHostCmd)
}

// Execute runs the root command; main calls this and os.Exits on error.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig applies the root command's --config-dir/--profile flags
// the same way on every subcommand that needs a *config.Config.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(flagConfigDir, flagProfile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}
