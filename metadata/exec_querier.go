package metadata

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"portforge/graph"
)

// queryVars is the ordered list of make variables queried in one call,
// mirroring the teacher's single `make -V ... -V ...` invocation so a
// port's metadata costs exactly one subprocess.
var queryVars = []string{
	"PKGNAME",
	"PKGVERSION",
	"PKGFILE",
	"FETCH_DEPENDS",
	"EXTRACT_DEPENDS",
	"PATCH_DEPENDS",
	"BUILD_DEPENDS",
	"LIB_DEPENDS",
	"RUN_DEPENDS",
	"TEST_DEPENDS",
	"OPTIONS_DEFINE",
	"IGNORE",
}

// ExecQuerier queries port metadata by invoking `make -V` against the
// port's Makefile inside the configured ports tree.
type ExecQuerier struct{}

func (ExecQuerier) Query(ctx context.Context, id graph.PortId, portsDir string) (Metadata, error) {
	portPath := filepath.Join(portsDir, id.Origin)
	if _, err := os.Stat(portPath); err != nil {
		return Metadata{}, &PortNotFoundError{PortSpec: id.Origin, Path: portPath}
	}

	args := []string{"-C", portPath}
	if id.Flavor != "" {
		args = append(args, "FLAVOR="+id.Flavor)
	}
	for _, v := range queryVars {
		args = append(args, "-V", v)
	}

	cmd := exec.CommandContext(ctx, "make", args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return Metadata{}, fmt.Errorf("make query failed for %s: %w", id, err)
	}

	return parseQueryOutput(out.String())
}

func parseQueryOutput(output string) (Metadata, error) {
	lines := strings.Split(output, "\n")
	if len(lines) < len(queryVars) {
		return Metadata{}, fmt.Errorf("insufficient output from make (got %d lines, expected %d)", len(lines), len(queryVars))
	}

	var md Metadata
	md.Version = strings.TrimSpace(lines[1])
	if md.Version == "" {
		md.Version = "unknown"
	}

	pkgFileRaw := strings.TrimSpace(lines[2])
	if pkgFileRaw != "" {
		md.PkgFile = filepath.Base(pkgFileRaw)
	}
	md.IsMeta = md.PkgFile == ""

	md.FetchDeps = strings.TrimSpace(lines[3])
	md.ExtractDeps = strings.TrimSpace(lines[4])
	md.PatchDeps = strings.TrimSpace(lines[5])
	md.BuildDeps = strings.TrimSpace(lines[6])
	md.LibDeps = strings.TrimSpace(lines[7])
	md.RunDeps = strings.TrimSpace(lines[8])
	md.TestDeps = strings.TrimSpace(lines[9])

	if opts := strings.TrimSpace(lines[10]); opts != "" {
		md.Options = strings.Fields(opts)
		sort.Strings(md.Options)
	}

	md.IgnoreReason = strings.TrimSpace(lines[11])

	return md, nil
}

// PortNotFoundError reports a PortId absent from the ports tree.
type PortNotFoundError struct {
	PortSpec string
	Path     string
}

func (e *PortNotFoundError) Error() string {
	return fmt.Sprintf("port not found: %s (path: %s)", e.PortSpec, e.Path)
}
