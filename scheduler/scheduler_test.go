package scheduler_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"portforge/config"
	"portforge/graph"
	"portforge/metadata"
	"portforge/scheduler"
	"portforge/statusbus"
)

// portScript, keyed by PortId, decides what a simulated task does on a
// given attempt (1-indexed): the TaskResult to report, or crash=true to
// simulate the slot dying mid-build instead of reporting a result.
type portScript map[graph.PortId]func(attempt int) (result *scheduler.TaskResult, crash bool)

func newFakeFactory(script portScript) scheduler.SlotFactory {
	attempts := map[graph.PortId]int{}
	var mu sync.Mutex

	return func(id int, events chan<- scheduler.WorkerEvent) (scheduler.SlotHandle, error) {
		return &fakeSlot{id: id, events: events, script: script, attempts: attempts, mu: &mu}, nil
	}
}

type fakeSlot struct {
	id       int
	events   chan<- scheduler.WorkerEvent
	script   portScript
	attempts map[graph.PortId]int
	mu       *sync.Mutex
}

func (f *fakeSlot) Send(task scheduler.BuildTask) error {
	go func() {
		f.mu.Lock()
		f.attempts[task.Port]++
		attempt := f.attempts[task.Port]
		f.mu.Unlock()

		var result *scheduler.TaskResult
		crash := false
		if fn, ok := f.script[task.Port]; ok {
			result, crash = fn(attempt)
		} else {
			result = &scheduler.TaskResult{Port: task.Port, Success: true}
		}

		f.events <- scheduler.WorkerEvent{Slot: f.id, Phase: "build"}
		if crash {
			f.events <- scheduler.WorkerEvent{Slot: f.id, Crashed: true}
			return
		}
		f.events <- scheduler.WorkerEvent{Slot: f.id, Result: result}
	}()
	return nil
}

func (f *fakeSlot) Cancel() error { return nil }

func (f *fakeSlot) Kill() error { return nil }

func buildGraph(t *testing.T) *graph.Graph {
	t.Helper()
	querier, err := metadata.NewFixtureQuerier("../graph/testdata")
	require.NoError(t, err)
	cache := metadata.NewCache(querier, "")

	g, err := graph.Resolve(context.Background(), []graph.PortId{{Origin: "www/nginx"}}, cache, graph.ResolveOptions{})
	require.NoError(t, err)
	return g
}

func runWithTimeout(t *testing.T, sched *scheduler.Scheduler, ctx context.Context) error {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- sched.Run(ctx) }()
	select {
	case err := <-done:
		return err
	case <-time.After(3 * time.Second):
		t.Fatal("scheduler.Run did not return in time")
		return nil
	}
}

func nodeByOrigin(g *graph.Graph, origin string) *graph.Node {
	idx, ok := g.Lookup(graph.PortId{Origin: origin})
	if !ok {
		return nil
	}
	return g.Node(idx)
}

func TestRunBuildsEverythingToSuccess(t *testing.T) {
	g := buildGraph(t)
	cfg := &config.Config{MaxWorkers: 2, CancelGrace: time.Second}
	bus := statusbus.NewBus()

	sched := scheduler.New(g, bus, cfg, newFakeFactory(nil))
	err := runWithTimeout(t, sched, context.Background())
	require.NoError(t, err)

	for _, n := range g.Nodes() {
		require.Equal(t, graph.Succeeded, n.State, "node %s", n.ID)
	}
}

func TestRunCascadesFailureToDependents(t *testing.T) {
	g := buildGraph(t)
	cfg := &config.Config{MaxWorkers: 2, CancelGrace: time.Second}
	bus := statusbus.NewBus()

	script := portScript{
		{Origin: "devel/cmake"}: func(attempt int) (*scheduler.TaskResult, bool) {
			return &scheduler.TaskResult{Port: graph.PortId{Origin: "devel/cmake"}, Success: false, FailureReason: "boom"}, false
		},
	}
	sched := scheduler.New(g, bus, cfg, newFakeFactory(script))
	err := runWithTimeout(t, sched, context.Background())
	require.NoError(t, err)

	require.Equal(t, graph.Failed, nodeByOrigin(g, "devel/cmake").State)
	require.Equal(t, graph.Succeeded, nodeByOrigin(g, "security/openssl").State)
	require.Equal(t, graph.Skipped, nodeByOrigin(g, "www/nginx").State)
}

func TestRunRetriesOnceAfterSlotCrash(t *testing.T) {
	g := buildGraph(t)
	cfg := &config.Config{MaxWorkers: 2, CancelGrace: time.Second}
	bus := statusbus.NewBus()

	script := portScript{
		{Origin: "devel/cmake"}: func(attempt int) (*scheduler.TaskResult, bool) {
			if attempt == 1 {
				return nil, true // crash on the first attempt
			}
			return &scheduler.TaskResult{Port: graph.PortId{Origin: "devel/cmake"}, Success: true}, false
		},
	}
	sched := scheduler.New(g, bus, cfg, newFakeFactory(script))
	err := runWithTimeout(t, sched, context.Background())
	require.NoError(t, err)

	for _, n := range g.Nodes() {
		require.Equal(t, graph.Succeeded, n.State, "node %s", n.ID)
	}
}

func TestRunFailsAfterSecondCrashExhaustsRetry(t *testing.T) {
	g := buildGraph(t)
	cfg := &config.Config{MaxWorkers: 2, CancelGrace: time.Second}
	bus := statusbus.NewBus()

	script := portScript{
		{Origin: "devel/cmake"}: func(attempt int) (*scheduler.TaskResult, bool) {
			return nil, true // crash every attempt
		},
	}
	sched := scheduler.New(g, bus, cfg, newFakeFactory(script))
	err := runWithTimeout(t, sched, context.Background())
	require.NoError(t, err)

	require.Equal(t, graph.Failed, nodeByOrigin(g, "devel/cmake").State)
	require.Equal(t, graph.Skipped, nodeByOrigin(g, "www/nginx").State)
}

type fakeRecorder struct {
	mu      sync.Mutex
	records map[graph.PortId]string
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{records: map[graph.PortId]string{}}
}

func (r *fakeRecorder) RecordFingerprint(port graph.PortId, version string, fingerprint [32]byte, pkgFile string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[port] = pkgFile
	return nil
}

func TestRunRecordsFingerprintsOfSucceededNodes(t *testing.T) {
	g := buildGraph(t)
	cfg := &config.Config{MaxWorkers: 2, CancelGrace: time.Second}
	bus := statusbus.NewBus()
	recorder := newFakeRecorder()

	sched := scheduler.New(g, bus, cfg, newFakeFactory(nil))
	sched.SetRecorder(recorder)
	err := runWithTimeout(t, sched, context.Background())
	require.NoError(t, err)

	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	for _, n := range g.Nodes() {
		_, ok := recorder.records[n.ID]
		require.True(t, ok, "expected a recorded fingerprint for %s", n.ID)
	}
}

func TestRunCancellationStopsDispatchAndReturnsErrCancelled(t *testing.T) {
	g := buildGraph(t)
	cfg := &config.Config{MaxWorkers: 1, CancelGrace: 200 * time.Millisecond}
	bus := statusbus.NewBus()

	block := make(chan struct{})
	script := portScript{
		{Origin: "devel/cmake"}: func(attempt int) (*scheduler.TaskResult, bool) {
			<-block // never completes on its own; only Cancel unblocks the test
			return &scheduler.TaskResult{Port: graph.PortId{Origin: "devel/cmake"}, Success: true}, false
		},
	}
	sched := scheduler.New(g, bus, cfg, newFakeFactory(script))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sched.Run(ctx) }()

	time.Sleep(50 * time.Millisecond) // let dispatch assign the one slot
	cancel()
	close(block)

	select {
	case err := <-done:
		require.ErrorIs(t, err, scheduler.ErrCancelled)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler.Run did not return after cancellation")
	}
}
