package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"portforge/builddb"
	"portforge/graph"
	"portforge/metadata"
	"portforge/scheduler"
	"portforge/statusbus"
	"portforge/ui/ncurses"
	"portforge/ui/stdout"
	"portforge/ui/tui"
	"portforge/worker"
)

var buildForce bool

var buildCmd = &cobra.Command{
	Use:   "build [ports...]",
	Short: "Build specified ports and their dependencies",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runBuild,
}

func init() {
	buildCmd.Flags().BoolVar(&buildForce, "force", false, "rebuild even ports the fingerprint index says are already built")
}

// parsePortArg turns a CLI "category/name" or "category/name@flavor"
// argument into a graph.PortId.
func parsePortArg(arg string) graph.PortId {
	origin, flavor, _ := strings.Cut(arg, "@")
	return graph.PortId{Origin: origin, Flavor: flavor}
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := builddb.OpenDB(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open build database: %w", err)
	}
	defer db.Close()

	seeds := make([]graph.PortId, len(args))
	for i, a := range args {
		seeds[i] = parsePortArg(a)
	}

	cache := metadata.NewCache(metadata.ExecQuerier{}, cfg.DPortsPath)

	opts := graph.ResolveOptions{}
	if !buildForce {
		opts.Built = db
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	g, err := graph.Resolve(ctx, seeds, cache, opts)
	if err != nil {
		return fmt.Errorf("resolve dependencies: %w", err)
	}

	bus := statusbus.NewBus()
	summary, err := statusbus.NewSummaryLogSubscriber(cfg.LogsPath + "/Summary.log")
	if err != nil {
		return fmt.Errorf("open summary log: %w", err)
	}

	ui := selectUI(cfg.DisplayMode)

	subDone := make(chan struct{})
	go func() {
		defer close(subDone)
		_ = ui.Run(bus.Subscribe())
	}()
	summaryDone := make(chan struct{})
	go func() {
		defer close(summaryDone)
		_ = summary.Run(bus.Subscribe())
	}()

	sched := scheduler.New(g, bus, cfg, worker.Spawn)
	sched.SetRecorder(db)

	runErr := sched.Run(ctx)
	bus.Close()
	<-subDone
	<-summaryDone

	counts := g.CountByState()
	fmt.Printf("\nBuild summary: %d succeeded, %d failed, %d skipped, %d ignored (of %d total)\n",
		counts[graph.Succeeded], counts[graph.Failed], counts[graph.Skipped], counts[graph.Ignored], g.Len())

	if runErr != nil && !errors.Is(runErr, scheduler.ErrCancelled) && !errors.Is(runErr, scheduler.ErrCancelTimeout) {
		return runErr
	}
	if runErr != nil {
		os.Exit(130) // operator-requested cancellation (SIGINT-style convention)
	}

	failed := counts[graph.Failed]
	if failed > 0 {
		if failed > 255 {
			failed = 255
		}
		os.Exit(failed)
	}
	return nil
}

// selectUI picks the statusbus.Subscriber cfg.DisplayMode names. An
// unrecognized value falls back to ui/stdout rather than erroring —
// display mode is a convenience, not something a build should fail
// over.
func selectUI(mode string) statusbus.Subscriber {
	switch mode {
	case "ncurses":
		return ncurses.New()
	case "tui":
		return tui.New()
	default:
		return stdout.New(os.Stdout)
	}
}
