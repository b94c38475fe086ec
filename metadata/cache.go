package metadata

import (
	"context"
	"sync"

	"portforge/graph"
)

// Cache memoizes Querier results by PortId for the lifetime of a run. The
// loader is pure from the scheduler's point of view: same PortId, same
// metadata within a run.
type Cache struct {
	querier  Querier
	portsDir string

	mu    sync.Mutex
	calls map[graph.PortId]*call
}

type call struct {
	done chan struct{}
	md   Metadata
	err  error
}

// NewCache creates a cache backed by querier, resolving ports under portsDir.
func NewCache(querier Querier, portsDir string) *Cache {
	return &Cache{
		querier:  querier,
		portsDir: portsDir,
		calls:    make(map[graph.PortId]*call),
	}
}

// Get returns the metadata for id, querying at most once per id even
// under concurrent callers.
func (c *Cache) Get(ctx context.Context, id graph.PortId) (Metadata, error) {
	c.mu.Lock()
	if existing, ok := c.calls[id]; ok {
		c.mu.Unlock()
		<-existing.done
		return existing.md, existing.err
	}

	cl := &call{done: make(chan struct{})}
	c.calls[id] = cl
	c.mu.Unlock()

	cl.md, cl.err = c.querier.Query(ctx, id, c.portsDir)
	close(cl.done)
	return cl.md, cl.err
}
