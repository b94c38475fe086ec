package worker

import (
	"context"
	"errors"
	"io"

	"portforge/scheduler"
)

// Main runs inside the slot subprocess: it reads one inboundFrame at a
// time from in, drives builder.Build for each Task frame, and writes
// Phase/Result outboundFrames to out until in is closed (the scheduler
// exited or closed the pipe). It returns when the input stream ends.
//
// Between tasks the slot's sandbox is left standing — Main itself never
// tears anything down; that's Builder's responsibility between calls
// (spec.md §4.5 "reuses the mount skeleton"). Builder.Close (Stage D
// teardown) only runs once, here, on the way out: if it fails, Main
// returns that error alongside whatever ended the read loop rather than
// exiting clean, so a supervisor sees this slot's process exit
// abnormally instead of silently leaving mounts behind (spec.md §7
// "sandbox teardown failure" — the scheduler's existing crash-retry
// path already respawns a slot whose process exits unexpectedly, so no
// separate "Reaped" state is needed here).
func Main(ctx context.Context, in io.Reader, out io.Writer, builder Builder) (err error) {
	_ = becomeReaper()

	if closer, ok := builder.(io.Closer); ok {
		defer func() { err = errors.Join(err, closer.Close()) }()
	}

	inbound := make(chan inboundFrame)
	readErr := make(chan error, 1)
	go func() {
		defer close(inbound)
		for {
			var f inboundFrame
			if e := ReadFrame(in, &f); e != nil {
				readErr <- e
				return
			}
			inbound <- f
		}
	}()

	for f := range inbound {
		if f.Task == nil {
			continue // a stray Cancel with nothing outstanding
		}
		if e := runOneTask(ctx, *f.Task, inbound, out, builder); e != nil {
			return e
		}
	}

	return <-readErr
}

// runOneTask drives a single BuildTask, relaying phase updates as they
// arrive and watching for a concurrent Cancel frame while the build
// runs (the read goroutine keeps draining inbound while Build blocks).
func runOneTask(ctx context.Context, task scheduler.BuildTask, inbound <-chan inboundFrame, out io.Writer, builder Builder) error {
	taskCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	phases := make(chan string, 16)
	result := make(chan scheduler.TaskResult, 1)
	go func() {
		result <- builder.Build(taskCtx, phases, task)
		close(phases)
	}()

	for {
		select {
		case phase, ok := <-phases:
			if !ok {
				phases = nil
				continue
			}
			if err := WriteFrame(out, outboundFrame{Phase: phase}); err != nil {
				return err
			}
		case r := <-result:
			if err := WriteFrame(out, outboundFrame{Result: &r}); err != nil {
				return err
			}
			_ = reapDescendants()
			return nil
		case f := <-inbound:
			if f.Cancel {
				cancel()
			}
		}
	}
}
