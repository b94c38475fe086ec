package worker

import (
	"context"

	"portforge/scheduler"
)

// inboundFrame is what the scheduler's Slot writes to the slot
// subprocess's stdin: exactly one of Task (start a build) or Cancel
// (abandon the outstanding one) is meaningful per frame.
type inboundFrame struct {
	Task   *scheduler.BuildTask
	Cancel bool
}

// outboundFrame is what the slot subprocess writes to its stdout:
// either a Phase update or a terminal Result, never both.
type outboundFrame struct {
	Phase  string
	Result *scheduler.TaskResult
}

// Builder drives one BuildTask to completion, reporting each phase name
// it enters on phases before it finishes. It is implemented by
// sandbox.Build; worker has no knowledge of mounts, chroots, or phase
// ordering — only of the IPC contract around whatever implements this.
type Builder interface {
	Build(ctx context.Context, phases chan<- string, task scheduler.BuildTask) scheduler.TaskResult
}
