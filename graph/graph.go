package graph

import (
	"slices"
	"sort"
)

// Graph is dense storage for a resolved Build Graph, keyed by integer
// index with a PortId -> index hash mapping. It is owned exclusively by
// the scheduler; PortNodes are mutated only from the scheduler's thread
// of control.
type Graph struct {
	nodes []*Node
	index map[PortId]int
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{index: make(map[PortId]int)}
}

// Len returns the number of nodes in the graph.
func (g *Graph) Len() int { return len(g.nodes) }

// Node returns the node at idx.
func (g *Graph) Node(idx int) *Node { return g.nodes[idx] }

// Nodes returns every node in insertion order. The caller must not mutate
// node state outside the scheduler's event loop.
func (g *Graph) Nodes() []*Node { return g.nodes }

// Lookup returns the index of id, or (-1, false) if id is not in the graph.
func (g *Graph) Lookup(id PortId) (int, bool) {
	idx, ok := g.index[id]
	return idx, ok
}

// getOrCreate returns the index of id, creating a Pending node if absent.
func (g *Graph) getOrCreate(id PortId) int {
	if idx, ok := g.index[id]; ok {
		return idx
	}
	idx := len(g.nodes)
	g.nodes = append(g.nodes, newNode(id))
	g.index[id] = idx
	return idx
}

// link records that node idx depends on dep via t, updating dep's RDeps
// and DepCount. Both ends must already exist in the graph.
func (g *Graph) link(idx int, t DepType, dep PortId) {
	node := g.nodes[idx]
	if slices.Contains(node.Deps[t], dep) {
		return
	}
	counted := slices.Contains(node.Deps[DepBuild], dep) || slices.Contains(node.Deps[DepRun], dep)
	node.addDep(t, dep)

	if t != DepBuild && t != DepRun || counted {
		return // RDeps/DepCount track BUILD ∪ RUN, once per dep, per the invariant in spec §3
	}
	depIdx, ok := g.index[dep]
	if !ok {
		return
	}
	depNode := g.nodes[depIdx]
	depNode.RDeps = append(depNode.RDeps, node.ID)
	if depNode.State != Succeeded {
		node.DepCount++
	}
}

// recomputeReady transitions idx to Ready if its dependencies are
// satisfied and it is currently Pending.
func (g *Graph) recomputeReady(idx int) bool {
	n := g.nodes[idx]
	if n.State == Pending && n.DepCount == 0 {
		n.State = Ready
		return true
	}
	return false
}

// MarkSucceeded transitions idx to Succeeded and returns the indices of
// nodes that become Ready as a result (dependents whose DepCount reaches
// zero).
func (g *Graph) MarkSucceeded(idx int) []int {
	n := g.nodes[idx]
	n.State = Succeeded

	var newlyReady []int
	for _, rdepID := range n.RDeps {
		rdepIdx, ok := g.index[rdepID]
		if !ok {
			continue
		}
		rdep := g.nodes[rdepIdx]
		if rdep.State.Terminal() {
			continue
		}
		rdep.DepCount--
		if g.recomputeReady(rdepIdx) {
			newlyReady = append(newlyReady, rdepIdx)
		}
	}
	return newlyReady
}

// MarkFailed transitions idx to Failed with reason, and recursively marks
// every node reachable via reverse-dependencies as Skipped.
func (g *Graph) MarkFailed(idx int, reason string) []int {
	n := g.nodes[idx]
	n.State = Failed
	n.FailureReason = reason

	skipReason := "upstream failure of " + n.ID.Origin
	return g.cascadeSkip(idx, skipReason)
}

// MarkIgnored transitions idx to Ignored with reason and cascades
// "upstream ignored" to every reachable reverse-dependency.
func (g *Graph) MarkIgnored(idx int, reason string) []int {
	n := g.nodes[idx]
	n.State = Ignored
	n.FailureReason = reason
	return g.cascadeSkip(idx, "upstream ignored")
}

func (g *Graph) cascadeSkip(idx int, reason string) []int {
	var skipped []int
	queue := []int{idx}
	seen := map[int]bool{idx: true}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		for _, rdepID := range g.nodes[cur].RDeps {
			rdepIdx, ok := g.index[rdepID]
			if !ok || seen[rdepIdx] {
				continue
			}
			seen[rdepIdx] = true
			rdep := g.nodes[rdepIdx]
			if rdep.State.Terminal() {
				continue
			}
			rdep.State = Skipped
			rdep.FailureReason = reason
			skipped = append(skipped, rdepIdx)
			queue = append(queue, rdepIdx)
		}
	}
	return skipped
}

// ReadyNodesOrdered returns every node currently in Ready state, ordered
// by (depth desc, |rdeps| desc, PortId lex asc) for dispatch priority.
func (g *Graph) ReadyNodesOrdered() []*Node {
	var ready []*Node
	for _, n := range g.nodes {
		if n.State == Ready {
			ready = append(ready, n)
		}
	}
	sort.Slice(ready, func(i, j int) bool {
		a, b := ready[i], ready[j]
		if a.Depth != b.Depth {
			return a.Depth > b.Depth
		}
		if len(a.RDeps) != len(b.RDeps) {
			return len(a.RDeps) > len(b.RDeps)
		}
		return a.ID.Less(b.ID)
	})
	return ready
}

// CountByState tallies nodes per state, for the Status Bus snapshot.
func (g *Graph) CountByState() map[State]int {
	counts := make(map[State]int)
	for _, n := range g.nodes {
		counts[n.State]++
	}
	return counts
}
