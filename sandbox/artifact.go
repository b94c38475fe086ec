package sandbox

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"portforge/graph"
	"portforge/scheduler"
)

// captureArtifact is Stage C: move the package `make package` produced
// inside the sandbox's packages/All directory into the repository under
// its fingerprint-addressed name. The teacher's extractPackage only
// verified the file existed at its PKGFILE-derived name; this both
// renames (two builds of the same port+version with different
// transitive inputs must not collide in the repository) and copies
// atomically (a reader scanning RepositoryPath/All must never observe
// a partially written file).
func (b *Builder) captureArtifact(task scheduler.BuildTask) error {
	base := b.env.GetBasePath()
	if base == "" {
		return fmt.Errorf("environment has no host-visible base path")
	}
	if task.PkgFile == "" {
		return fmt.Errorf("no PKGFILE recorded for %s", task.Port)
	}

	src := filepath.Join(base, "packages", "All", task.PkgFile)
	if _, err := os.Stat(src); err != nil {
		return fmt.Errorf("built package not found: %s: %w", src, err)
	}

	destName := graph.PackageFileName(task.Port, task.Version, task.Fingerprint)
	destDir := filepath.Join(b.cfg.RepositoryPath, "All")
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return fmt.Errorf("create repository dir: %w", err)
	}
	dest := filepath.Join(destDir, destName)

	return atomicCopy(src, dest)
}

// atomicCopy copies src to dest via a temp file in dest's directory
// followed by rename, so dest either doesn't exist or is complete —
// never a partial write a concurrent reader could observe.
func atomicCopy(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("copy %s: %w", src, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}
