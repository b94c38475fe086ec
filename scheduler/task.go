package scheduler

import "portforge/graph"

// BuildTask is the unit of work a slot receives over the wire (spec §4.5
// "no shared memory" — everything a slot needs to drive sandbox.Build
// travels in this struct, gob-encoded by worker.wire.go).
type BuildTask struct {
	Port        graph.PortId
	Version     string
	Fingerprint [32]byte

	// PkgFile is the basename the ports tree's build system will produce
	// via `make package` (from the PKGFILE query var), used to locate the
	// freshly built artifact under the sandbox's packages/All directory.
	PkgFile string

	// DepPackages lists the package file basenames (no "All/" prefix) of
	// this port's already-succeeded BUILD+RUN dependencies, for the
	// sandbox to stage with `pkg add` before running build phases.
	DepPackages []string
}

// TaskResult is the final outcome a slot reports for one BuildTask.
type TaskResult struct {
	Port          graph.PortId
	Success       bool
	FailureReason string
	Phase         string // last phase attempted/reached
}

// WorkerEvent is one message arriving on the scheduler's fan-in channel.
// Exactly one of Result, Phase, or Crashed is meaningful per event:
// Result carries a terminal outcome, Phase reports an in-progress phase
// transition, Crashed reports the slot's process exiting unexpectedly
// while a task was outstanding.
type WorkerEvent struct {
	Slot    int
	Phase   string
	Result  *TaskResult
	Crashed bool
}

// SlotHandle is the scheduler's view of a worker slot: send it a task,
// or ask it to abandon the one it's running. The scheduler never spawns
// or reaps the underlying process itself — that's worker.Slot's job,
// reached only through this interface so scheduler has no import-time
// dependency on worker (spec §9 "swapping one UI for another requires no
// scheduler change" applies symmetrically to the worker transport).
type SlotHandle interface {
	Send(task BuildTask) error
	Cancel() error
	// Kill forcibly terminates the slot's process group. Called only
	// after Cancel has gone unacknowledged for cfg.CancelGrace; must
	// return without blocking the scheduler's single goroutine.
	Kill() error
}

// SlotFactory constructs slot id's handle, wiring events as the channel
// that slot's WorkerEvents arrive on.
type SlotFactory func(id int, events chan<- WorkerEvent) (SlotHandle, error)
