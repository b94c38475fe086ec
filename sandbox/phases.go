package sandbox

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"portforge/environment"
	"portforge/log"
	"portforge/scheduler"
)

// buildPhases is Stage B's ordered phase list (spec §4.6). The "-depends"
// phases are no-ops here: their dependency packages were already staged
// in stageDependencies, and lib-depends/run-depends resolution happened
// at graph-build time, not inside the sandbox — matching the teacher's
// executePhase, which returns nil immediately for these.
var buildPhases = []string{
	"check-sanity",
	"pkg-depends",
	"fetch-depends",
	"fetch",
	"checksum",
	"extract-depends",
	"extract",
	"patch-depends",
	"patch",
	"build-depends",
	"lib-depends",
	"configure",
	"build",
	"stage",
	"package",
}

var noOpPhases = map[string]bool{
	"pkg-depends":     true,
	"fetch-depends":   true,
	"extract-depends": true,
	"patch-depends":   true,
	"build-depends":   true,
	"lib-depends":     true,
}

// runPhases executes buildPhases in order inside the sandbox, stopping
// at the first failure. It returns the phase that failed alongside the
// error so the caller can report exactly where the build stopped.
func (b *Builder) runPhases(ctx context.Context, task scheduler.BuildTask, phases chan<- string, logger *log.PackageLogger) (string, error) {
	for _, phase := range buildPhases {
		select {
		case phases <- phase:
		default:
		}

		if noOpPhases[phase] {
			continue
		}

		if err := b.runPhase(ctx, task, phase, logger); err != nil {
			return phase, err
		}
	}
	return "package", nil
}

func (b *Builder) runPhase(ctx context.Context, task scheduler.BuildTask, phase string, logger *log.PackageLogger) error {
	portPath := filepath.Join("/xports", task.Port.Origin)
	args := []string{"-C", portPath}

	if task.Port.Flavor != "" {
		args = append(args, "FLAVOR="+task.Port.Flavor)
	}
	args = append(args,
		"PORTSDIR=/xports",
		"WRKDIRPREFIX=/construction",
		"DISTDIR=/distfiles",
		"PACKAGES=/packages",
		"PKG_DBDIR=/var/db/pkg",
		"BATCH=yes",
		phase,
	)

	writer := &packageLogWriter{logger: logger}
	cmd := &environment.ExecCommand{
		Command: "/usr/bin/make",
		Args:    args,
		Env: map[string]string{
			"PATH": "/sbin:/bin:/usr/sbin:/usr/bin:/usr/local/sbin:/usr/local/bin",
		},
		Stdout: writer,
		Stderr: writer,
	}

	logger.WritePhase(phase)
	logger.WriteCommand(fmt.Sprintf("/usr/bin/make %s", strings.Join(args, " ")))

	result, err := b.env.Execute(ctx, cmd)
	if err != nil {
		return fmt.Errorf("phase %s: execution failed: %w", phase, err)
	}
	if result.ExitCode != 0 {
		return fmt.Errorf("phase %s: exit code %d", phase, result.ExitCode)
	}
	return nil
}
