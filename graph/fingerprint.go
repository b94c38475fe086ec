package graph

import (
	"crypto/sha256"
	"sort"
)

// computeFingerprints derives Node.Fingerprint for every node in
// dependency order (leaves first), so a node's fingerprint always
// folds in the already-computed fingerprints of its BUILD+RUN deps.
// Nodes must have Depth already assigned; Ignored nodes are skipped
// (spec: "pkg_fingerprint is undefined for Ignored nodes").
func (g *Graph) computeFingerprints(options map[PortId][]string) {
	order := make([]int, len(g.nodes))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool {
		return g.nodes[order[i]].Depth < g.nodes[order[j]].Depth
	})

	for _, idx := range order {
		n := g.nodes[idx]
		if n.State == Ignored {
			continue
		}
		n.Fingerprint = g.fingerprintOf(n, options[n.ID])
	}
}

func (g *Graph) fingerprintOf(n *Node, options []string) [32]byte {
	h := sha256.New()
	h.Write([]byte(n.Version))
	h.Write([]byte{0})

	depFingerprints := make([][]byte, 0, len(n.Deps[DepBuild])+len(n.Deps[DepRun]))
	seen := make(map[PortId]bool)
	for _, id := range n.Deps[DepBuild] {
		if seen[id] {
			continue
		}
		seen[id] = true
		if idx, ok := g.index[id]; ok {
			fp := g.nodes[idx].Fingerprint
			depFingerprints = append(depFingerprints, fp[:])
		}
	}
	for _, id := range n.Deps[DepRun] {
		if seen[id] {
			continue
		}
		seen[id] = true
		if idx, ok := g.index[id]; ok {
			fp := g.nodes[idx].Fingerprint
			depFingerprints = append(depFingerprints, fp[:])
		}
	}
	sort.Slice(depFingerprints, func(i, j int) bool {
		return string(depFingerprints[i]) < string(depFingerprints[j])
	})
	for _, fp := range depFingerprints {
		h.Write(fp)
	}

	sortedOpts := append([]string(nil), options...)
	sort.Strings(sortedOpts)
	for _, opt := range sortedOpts {
		h.Write([]byte(opt))
		h.Write([]byte{0})
	}

	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
