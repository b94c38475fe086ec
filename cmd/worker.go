package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	_ "portforge/environment/bsd" // registers the "bsd" backend

	"portforge/environment"
	"portforge/sandbox"
	"portforge/worker"
)

var workerCmd = &cobra.Command{
	Use:    "worker <slot-id>",
	Short:  "Run one worker slot (internal: self re-exec'd by the scheduler)",
	Args:   cobra.ExactArgs(1),
	Hidden: true,
	RunE:   runWorker,
}

// workerEnvBackend names the environment.Environment registered under
// "bsd" in production; a non-BSD host has no other backend to select,
// so this is not yet a flag.
const workerEnvBackend = "bsd"

func runWorker(cmd *cobra.Command, args []string) error {
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid slot id %q: %w", args[0], err)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	env, err := environment.New(workerEnvBackend)
	if err != nil {
		return fmt.Errorf("construct sandbox environment: %w", err)
	}

	builder := sandbox.New(id, cfg, env)
	return worker.Main(context.Background(), os.Stdin, os.Stdout, builder)
}
