// Package repo rebuilds the pkg(8) repository database after a build
// run. It is a thin pass-through over the pkg(8) binary — spec.md names
// no internal logic here beyond invoking the right command against the
// configured repository path, the same shelling-out shape main.go's
// original doRebuildRepo sketch used.
package repo

import (
	"fmt"
	"os"
	"os/exec"

	"portforge/config"
)

// Rebuild regenerates the repository's package index via `pkg repo`,
// the step a completed build run needs before clients can `pkg install`
// anything it produced.
func Rebuild(cfg *config.Config) error {
	cmd := exec.Command("pkg", "repo", cfg.RepositoryPath)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("pkg repo %s: %w", cfg.RepositoryPath, err)
	}
	return nil
}
