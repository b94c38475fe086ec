// Package sandbox drives one port through the four build stages spec.md
// §4.6 names — prepare, phases, artifact capture, teardown — inside an
// environment.Environment. It is the worker.Builder a slot's Main loop
// drives; everything it touches is reached through that interface, so
// tests run it against environment.MockEnvironment with no root access.
package sandbox

import (
	"context"
	"fmt"
	"time"

	"portforge/config"
	"portforge/environment"
	"portforge/log"
	"portforge/scheduler"
)

// Builder implements worker.Builder. A Builder is created once per slot
// and reused across tasks: Setup happens once (sandbox prepare mounts
// are expensive), subsequent tasks only reset the overlayed work area
// (spec §4.5 "between tasks the slot does not tear down its sandbox
// root").
type Builder struct {
	slotID int
	cfg    *config.Config
	env    environment.Environment

	prepared bool
}

// New wraps env as the sandbox for slot slotID. env is typically
// environment.New("bsd") in production and a MockEnvironment in tests;
// Builder never constructs one itself so callers keep control of which
// backend (and which registered name) a slot runs against.
func New(slotID int, cfg *config.Config, env environment.Environment) *Builder {
	return &Builder{slotID: slotID, cfg: cfg, env: env}
}

// Build runs one BuildTask to a terminal TaskResult: prepare (lazy,
// first call only), reset the work area, stage dependency packages, run
// the phase list, capture the artifact. phases receives the name of
// each phase as it starts, for the worker to relay upstream.
func (b *Builder) Build(ctx context.Context, phases chan<- string, task scheduler.BuildTask) scheduler.TaskResult {
	logger := log.NewPackageLogger(b.cfg, task.Port.Origin)
	defer logger.Close()
	logger.WriteHeader()

	start := time.Now()
	fail := func(phase string, err error) scheduler.TaskResult {
		logger.WriteFailure(time.Since(start), err.Error())
		return scheduler.TaskResult{Port: task.Port, Success: false, FailureReason: err.Error(), Phase: phase}
	}

	if err := b.ensurePrepared(); err != nil {
		return fail("prepare", err)
	}
	if err := b.resetWorkArea(); err != nil {
		return fail("prepare", fmt.Errorf("reset work area: %w", err))
	}
	if err := b.stageDependencies(ctx, task, logger); err != nil {
		return fail("install-pkgs", err)
	}
	if phase, err := b.runPhases(ctx, task, phases, logger); err != nil {
		return fail(phase, err)
	}
	if err := b.captureArtifact(task); err != nil {
		return fail("package", fmt.Errorf("capture artifact: %w", err))
	}

	logger.WriteSuccess(time.Since(start))
	return scheduler.TaskResult{Port: task.Port, Success: true, Phase: "package"}
}

// Close tears the sandbox down (stage D). The worker calls this once,
// on slot shutdown, not between tasks.
func (b *Builder) Close() error {
	if !b.prepared {
		return nil
	}
	return b.Teardown()
}

func (b *Builder) ensurePrepared() error {
	if b.prepared {
		return nil
	}
	if err := b.Prepare(); err != nil {
		return err
	}
	b.prepared = true
	return nil
}
