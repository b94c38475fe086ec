// Package metadata loads per-port build metadata from the ports tree by
// invoking the tree's build-system query command, and memoizes results
// for the lifetime of a run.
package metadata

import (
	"context"

	"portforge/graph"
)

// Metadata is the per-port information extracted from the ports tree:
// version, dependency lists by phase, and option flags.
type Metadata struct {
	Version string
	PkgFile string
	IsMeta  bool

	// Dependency strings as declared by the port, in the ports tree's
	// native "tool:category/port[@flavor]" list format. FetchDeps and
	// LibDeps are consulted only when staging/executing build phases —
	// the resolver's graph edges cover EXTRACT+PATCH+BUILD+RUN(+TEST).
	FetchDeps   string
	ExtractDeps string
	PatchDeps   string
	BuildDeps   string
	LibDeps     string
	RunDeps     string
	TestDeps    string

	Options      []string // sorted build option flags, folded into the fingerprint
	IgnoreReason string
}

// Querier extracts metadata for one port. Production code uses ExecQuerier
// (shells out to the ports tree's make); tests use a fixture-backed
// implementation so resolver tests never touch a real ports tree.
type Querier interface {
	Query(ctx context.Context, id graph.PortId, portsDir string) (Metadata, error)
}
