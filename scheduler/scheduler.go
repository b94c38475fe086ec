// Package scheduler drives the build graph to completion with a single
// goroutine: one select loop dispatching ready nodes to worker slots,
// reacting to their results, and publishing every state transition to
// the status bus. This replaces the teacher's build/build.go design of
// one goroutine per worker plus a 100ms-polling waitForDependencies —
// spec §5's "suspension points: exactly one" invariant rules that design
// out, so all waiting here happens in the one select below.
package scheduler

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"portforge/config"
	"portforge/graph"
	"portforge/statusbus"
)

// slowStartRampInterval is how often the scheduler raises its
// effective-parallelism ceiling by one slot during the slow-start ramp
// (teacher's SlowStartOpt clamps once at startup; spec §4.4 wants a
// periodic ramp instead, so this generalizes it to a ticker).
const slowStartRampInterval = 2 * time.Second

type slotState struct {
	handle SlotHandle
	busy   bool
	node   int // graph index of the node this slot is building, -1 if idle
}

// Recorder persists a successfully built (port, version, fingerprint)
// tuple so a future run's graph.AlreadyBuiltChecker can skip rebuilding
// it. Implemented by *builddb.DB; a nil Recorder (the zero value from
// New) simply skips recording, which is fine for one-off/test runs that
// never open a database.
type Recorder interface {
	RecordFingerprint(port graph.PortId, version string, fingerprint [32]byte, pkgFile string) error
}

// Scheduler owns a Graph, a set of worker slots, and the Status Bus they
// report through. It has no knowledge of sandboxing or IPC framing —
// those live in worker and sandbox, reached only via SlotHandle.
type Scheduler struct {
	graph    *graph.Graph
	bus      *statusbus.Bus
	cfg      *config.Config
	factory  SlotFactory
	recorder Recorder

	events  chan WorkerEvent
	slots   []*slotState
	retried map[graph.PortId]bool
}

// New creates a Scheduler over g, publishing to bus, sized and paced by
// cfg, spawning slots through factory.
func New(g *graph.Graph, bus *statusbus.Bus, cfg *config.Config, factory SlotFactory) *Scheduler {
	return &Scheduler{
		graph:   g,
		bus:     bus,
		cfg:     cfg,
		factory: factory,
		events:  make(chan WorkerEvent, cfg.MaxWorkers*4),
		retried: make(map[graph.PortId]bool),
	}
}

// SetRecorder attaches the already-built index a successful build
// reports into. Optional: a Scheduler with no Recorder still builds
// correctly, it just can't seed a future run's AlreadyBuiltChecker.
func (s *Scheduler) SetRecorder(r Recorder) {
	s.recorder = r
}

// Run drives the graph to completion: dispatching ready nodes to idle
// slots, applying results as they arrive, and exiting once every
// non-Ignored node is terminal. It returns ErrCancelled/ErrCancelTimeout
// on operator cancellation (ctx or SIGINT/SIGTERM), nil otherwise.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.spawnSlots(); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	slowStartLimit := s.cfg.MaxWorkers
	if s.cfg.SlowStart > 0 && s.cfg.SlowStart < s.cfg.MaxWorkers {
		slowStartLimit = s.cfg.SlowStart
	}
	ticker := time.NewTicker(slowStartRampInterval)
	defer ticker.Stop()

	s.publishSnapshot()

	for {
		s.drainEvents()

		effective := s.cfg.MaxWorkers
		if slowStartLimit < effective {
			effective = slowStartLimit
		}
		s.dispatch(effective)

		if s.allTerminal() {
			return nil
		}

		select {
		case <-ctx.Done():
			return s.cancelAndWait()
		case <-sigCh:
			return s.cancelAndWait()
		case ev := <-s.events:
			s.handleEvent(ev)
		case <-ticker.C:
			if slowStartLimit < s.cfg.MaxWorkers {
				slowStartLimit++
			}
		}
	}
}

func (s *Scheduler) spawnSlots() error {
	s.slots = make([]*slotState, s.cfg.MaxWorkers)
	for i := range s.slots {
		handle, err := s.factory(i, s.events)
		if err != nil {
			return fmt.Errorf("spawn slot %d: %w", i, err)
		}
		s.slots[i] = &slotState{handle: handle, node: -1}
	}
	return nil
}

// drainEvents applies every event already queued, without blocking —
// step 1 of spec §4.4's Run loop.
func (s *Scheduler) drainEvents() {
	for {
		select {
		case ev := <-s.events:
			s.handleEvent(ev)
		default:
			return
		}
	}
}

func (s *Scheduler) handleEvent(ev WorkerEvent) {
	if ev.Slot < 0 || ev.Slot >= len(s.slots) {
		return
	}
	slot := s.slots[ev.Slot]

	switch {
	case ev.Crashed:
		s.handleCrash(slot, ev.Slot)
	case ev.Result != nil:
		s.handleResult(slot, *ev.Result)
	case ev.Phase != "":
		s.handlePhase(slot, ev.Slot, ev.Phase)
	}
}

func (s *Scheduler) handlePhase(slot *slotState, slotID int, phase string) {
	if slot.node < 0 {
		return
	}
	n := s.graph.Node(slot.node)
	if n.State == graph.Staging {
		n.State = graph.Building
	}
	s.bus.Publish(statusbus.Event{Kind: statusbus.PhaseChanged, Port: n.ID, Slot: slotID, Phase: phase})
}

func (s *Scheduler) handleResult(slot *slotState, result TaskResult) {
	idx, ok := s.graph.Lookup(result.Port)
	slot.busy = false
	slot.node = -1
	if !ok {
		return
	}

	if result.Success {
		s.graph.MarkSucceeded(idx)
		s.bus.Publish(statusbus.Event{Kind: statusbus.Succeeded, Port: result.Port})
		if s.recorder != nil {
			n := s.graph.Node(idx)
			_ = s.recorder.RecordFingerprint(n.ID, n.Version, n.Fingerprint, n.PkgFile)
		}
	} else {
		// The persisted failure_reason is exactly the phase name; the
		// full error still reaches the operator via the statusbus
		// event's Reason and the per-port build log.
		s.graph.MarkFailed(idx, result.Phase)
		s.bus.Publish(statusbus.Event{Kind: statusbus.Failed, Port: result.Port, Phase: result.Phase, Reason: result.FailureReason})
	}
	s.publishSnapshot()
}

// handleCrash applies the worker-abort retry policy (spec §7): a node
// whose slot crashed mid-build is retried once, on a freshly spawned
// slot in the same seat; a second crash marks it Failed.
func (s *Scheduler) handleCrash(slot *slotState, slotID int) {
	idx := slot.node
	slot.busy = false
	slot.node = -1
	if idx < 0 {
		return
	}
	n := s.graph.Node(idx)

	handle, err := s.factory(slotID, s.events)
	if err != nil {
		s.graph.MarkFailed(idx, fmt.Sprintf("slot %d crashed and could not be respawned: %v", slotID, err))
		s.bus.Publish(statusbus.Event{Kind: statusbus.Failed, Port: n.ID, Reason: n.FailureReason})
		s.publishSnapshot()
		return
	}
	s.slots[slotID] = &slotState{handle: handle, node: -1}

	if s.retried[n.ID] {
		reason := "slot crashed during build (retry exhausted)"
		s.graph.MarkFailed(idx, reason)
		s.bus.Publish(statusbus.Event{Kind: statusbus.Failed, Port: n.ID, Reason: reason})
		s.publishSnapshot()
		return
	}

	s.retried[n.ID] = true
	n.State = graph.Ready // re-enter the ready queue; DepCount is untouched
}

// dispatch assigns ready nodes to idle slots until either the ready
// queue is empty or effective concurrently-busy slots is reached (spec
// §4.4 step 3).
func (s *Scheduler) dispatch(effective int) {
	if s.busyCount() >= effective {
		return
	}
	for _, n := range s.graph.ReadyNodesOrdered() {
		if s.busyCount() >= effective {
			return
		}
		slotIdx := s.idleSlot()
		if slotIdx < 0 {
			return
		}
		idx, ok := s.graph.Lookup(n.ID)
		if !ok {
			continue
		}

		task := BuildTask{Port: n.ID, Version: n.Version, Fingerprint: n.Fingerprint, PkgFile: n.PkgFile, DepPackages: s.depPackages(n)}
		if err := s.slots[slotIdx].handle.Send(task); err != nil {
			s.graph.MarkFailed(idx, fmt.Sprintf("dispatch to slot %d failed: %v", slotIdx, err))
			s.bus.Publish(statusbus.Event{Kind: statusbus.Failed, Port: n.ID, Reason: n.FailureReason})
			continue
		}

		n.State = graph.Staging
		s.slots[slotIdx].busy = true
		s.slots[slotIdx].node = idx
		s.bus.Publish(statusbus.Event{Kind: statusbus.Started, Port: n.ID, Slot: slotIdx})
	}
}

// depPackages lists the package file names of n's BUILD and RUN
// dependencies (already Succeeded by the time n is Ready), the set
// the sandbox's stageDependencies installs into the slot before running
// n's build phases.
func (s *Scheduler) depPackages(n *graph.Node) []string {
	var names []string
	for _, dt := range []graph.DepType{graph.DepBuild, graph.DepRun} {
		for _, depID := range n.Deps[dt] {
			depIdx, ok := s.graph.Lookup(depID)
			if !ok {
				continue
			}
			dep := s.graph.Node(depIdx)
			names = append(names, graph.PackageFileName(dep.ID, dep.Version, dep.Fingerprint))
		}
	}
	return names
}

func (s *Scheduler) busyCount() int {
	count := 0
	for _, sl := range s.slots {
		if sl.busy {
			count++
		}
	}
	return count
}

func (s *Scheduler) idleSlot() int {
	for i, sl := range s.slots {
		if !sl.busy {
			return i
		}
	}
	return -1
}

func (s *Scheduler) allTerminal() bool {
	for _, n := range s.graph.Nodes() {
		if !n.State.Terminal() {
			return false
		}
	}
	return true
}

func (s *Scheduler) anyBusy() bool {
	return s.busyCount() > 0
}

func (s *Scheduler) publishSnapshot() {
	counts := s.graph.CountByState()
	total := s.graph.Len()
	s.bus.Snapshot(statusbus.TallyFromCounts(
		total,
		counts[graph.Succeeded],
		counts[graph.Failed],
		counts[graph.Skipped],
		counts[graph.Ignored],
		s.busyCount(),
		s.busyCount(),
	))
}

// cancelAndWait implements spec §4.4's cancellation sequence: stop
// dispatch (the caller loop already returns without calling dispatch
// again), ask every busy slot to abandon its task, and wait up to
// cfg.CancelGrace for them to do so.
func (s *Scheduler) cancelAndWait() error {
	for _, sl := range s.slots {
		if sl.busy {
			_ = sl.handle.Cancel()
		}
	}

	grace := s.cfg.CancelGrace
	if grace <= 0 {
		grace = 30 * time.Second
	}
	deadline := time.NewTimer(grace)
	defer deadline.Stop()

	for s.anyBusy() {
		select {
		case ev := <-s.events:
			s.handleEvent(ev)
		case <-deadline.C:
			for _, sl := range s.slots {
				if sl.busy {
					_ = sl.handle.Kill()
				}
			}
			return ErrCancelTimeout
		}
	}
	return ErrCancelled
}
