package sandbox

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"portforge/environment"
	"portforge/log"
	"portforge/scheduler"
)

// Prepare is Stage A: mount the sandbox root (environment.Environment.Setup
// does the actual mount work — nullfs system tree, tmpfs work areas — the
// way mount/mount.go's DoWorkerMounts does it). Called once per slot
// lifetime; subsequent tasks only call resetWorkArea.
func (b *Builder) Prepare() error {
	var logger log.LibraryLogger = log.NoOpLogger{}
	if b.cfg.Debug {
		logger = log.StdoutLogger{}
	}
	if err := b.env.Setup(b.slotID, b.cfg, logger); err != nil {
		return fmt.Errorf("sandbox setup: %w", err)
	}
	return nil
}

// resetWorkArea clears the overlayed work directories between tasks
// instead of tearing down and remounting the whole sandbox (spec §4.5:
// amortize mount setup across a slot's lifetime). Grounded on
// build/phases.go's cleanupWorkDir, which does the same host-side
// os.RemoveAll rather than exec'ing inside the chroot.
func (b *Builder) resetWorkArea() error {
	base := b.env.GetBasePath()
	if base == "" {
		return nil // mock/test environments with no host-visible path
	}

	for _, dir := range []string{"construction", "usr/local"} {
		path := filepath.Join(base, dir)
		if err := os.RemoveAll(path); err != nil {
			return fmt.Errorf("clear %s: %w", dir, err)
		}
		if err := os.MkdirAll(path, 0755); err != nil {
			return fmt.Errorf("recreate %s: %w", dir, err)
		}
	}
	return nil
}

// stageDependencies pkg-adds each already-built BUILD/RUN dependency
// before the phase list runs, from the repository's All directory the
// way build/phases.go's installDependencyPackages does (C dsynth
// convention: dependency packages live at /packages/All/<file> inside
// the sandbox).
func (b *Builder) stageDependencies(ctx context.Context, task scheduler.BuildTask, logger *log.PackageLogger) error {
	if len(task.DepPackages) == 0 {
		return nil
	}
	logger.WritePhase("install-pkgs")

	for _, pkgFile := range task.DepPackages {
		pkgPath := filepath.Join("/packages/All", pkgFile)
		writer := &packageLogWriter{logger: logger}
		cmd := &environment.ExecCommand{
			Command: "/usr/sbin/pkg",
			Args:    []string{"add", pkgPath},
			Stdout:  writer,
			Stderr:  writer,
		}
		logger.WriteCommand(fmt.Sprintf("pkg add %s", pkgPath))

		result, err := b.env.Execute(ctx, cmd)
		if err != nil {
			return fmt.Errorf("install dependency %s: %w", pkgFile, err)
		}
		if result.ExitCode != 0 {
			return fmt.Errorf("install dependency %s: exit code %d", pkgFile, result.ExitCode)
		}
	}
	return nil
}

// Teardown is Stage D: unmount everything (environment.Environment.Cleanup
// does the reverse-order unmount with retry, mirroring mount.go's
// DoWorkerUnmounts). Safe to call again after a completed teardown; with
// the BSD backend it returns an error if Prepare never ran.
func (b *Builder) Teardown() error {
	if err := b.env.Cleanup(); err != nil {
		return fmt.Errorf("sandbox teardown: %w", err)
	}
	return nil
}
