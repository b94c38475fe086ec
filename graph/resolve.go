package graph

import (
	"context"
	"sort"

	"portforge/metadata"
)

// AlreadyBuiltChecker answers whether a fingerprint-matching package
// already exists in the repository, letting Resolve seed a node straight
// into Succeeded instead of scheduling it.
type AlreadyBuiltChecker interface {
	AlreadyBuilt(id PortId, version string, fingerprint [32]byte) bool
}

// ResolveOptions configures a single Resolve call.
type ResolveOptions struct {
	// IncludeTest adds TEST edges to the expansion; set only for the
	// `test` directive.
	IncludeTest bool
	// Built reports already-built packages. A nil Built disables
	// already-built detection (every node starts Pending/Ready).
	Built AlreadyBuiltChecker
}

// Resolve expands seeds into a complete Build Graph by iterative
// work-queue traversal of EXTRACT+PATCH+BUILD+RUN edges (plus TEST when
// opts.IncludeTest), then runs cycle detection, depth computation, and
// fingerprinting, and finally seeds already-built nodes as Succeeded.
//
// A port whose metadata cannot be loaded, or whose metadata declares
// IGNORE, is marked Ignored and its cascade of dependents Skipped — it
// never aborts the whole resolve.
func Resolve(ctx context.Context, seeds []PortId, loader *metadata.Cache, opts ResolveOptions) (*Graph, error) {
	if len(seeds) == 0 {
		return nil, ErrEmptySeedSet
	}

	g := New()
	queued := make(map[PortId]bool, len(seeds))
	queue := make([]PortId, 0, len(seeds))
	for _, s := range seeds {
		g.getOrCreate(s)
		if !queued[s] {
			queued[s] = true
			queue = append(queue, s)
		}
	}

	options := make(map[PortId][]string)

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		idx := g.getOrCreate(id)

		md, err := loader.Get(ctx, id)
		if err != nil {
			ignore(g, idx, (&MetadataError{ID: id, Err: err}).Error())
			continue
		}
		if md.IgnoreReason != "" {
			ignore(g, idx, md.IgnoreReason)
			continue
		}

		n := g.nodes[idx]
		n.Version = md.Version
		n.PkgFile = md.PkgFile
		n.IsMeta = md.IsMeta
		options[id] = md.Options

		phases := []struct {
			t  DepType
			ds string
		}{
			{DepExtract, md.ExtractDeps},
			{DepPatch, md.PatchDeps},
			{DepBuild, md.BuildDeps},
			{DepRun, md.RunDeps},
		}
		if opts.IncludeTest {
			phases = append(phases, struct {
				t  DepType
				ds string
			}{DepTest, md.TestDeps})
		}

		for _, phase := range phases {
			for _, dep := range parseDepString(phase.ds) {
				g.getOrCreate(dep)
				g.link(idx, phase.t, dep)
				if !queued[dep] {
					queued[dep] = true
					queue = append(queue, dep)
				}
			}
		}
	}

	for _, member := range detectCycles(g) {
		idx, ok := g.index[member]
		if !ok || g.nodes[idx].State == Ignored {
			continue
		}
		ignore(g, idx, "dependency cycle")
	}

	computeDepth(g)
	g.computeFingerprints(options)

	seedAlreadyBuilt(g, opts.Built)

	for idx := range g.nodes {
		g.recomputeReady(idx)
	}

	return g, nil
}

// ignore marks idx Ignored with reason and cascades Skipped to every
// reverse-dependent — identical treatment whether the cause was a
// metadata-load failure, an explicit IGNORE, or a dependency cycle.
func ignore(g *Graph, idx int, reason string) {
	n := g.nodes[idx]
	n.State = Ignored
	n.FailureReason = reason
	g.cascadeSkip(idx, "upstream ignored")
}

// seedAlreadyBuilt marks every node with a matching on-disk package as
// Succeeded, processed leaf-first (ascending Depth) so MarkSucceeded's
// DepCount bookkeeping on dependents stays consistent.
func seedAlreadyBuilt(g *Graph, built AlreadyBuiltChecker) {
	if built == nil {
		return
	}

	order := make([]int, 0, len(g.nodes))
	for idx, n := range g.nodes {
		if n.State != Ignored {
			order = append(order, idx)
		}
	}
	sort.Slice(order, func(i, j int) bool {
		return g.nodes[order[i]].Depth < g.nodes[order[j]].Depth
	})

	for _, idx := range order {
		n := g.nodes[idx]
		if built.AlreadyBuilt(n.ID, n.Version, n.Fingerprint) {
			g.MarkSucceeded(idx)
		}
	}
}
