package scheduler

import "errors"

// ErrCancelled is returned by Run when the operator requested
// cancellation (SIGINT/SIGTERM or ctx.Done) and every busy slot stopped
// within cfg.CancelGrace.
var ErrCancelled = errors.New("scheduler: build cancelled by operator")

// ErrCancelTimeout is returned by Run when cfg.CancelGrace elapsed
// before every busy slot acknowledged cancellation; by then Run has
// already called Kill on every slot still busy (spec §4.4).
var ErrCancelTimeout = errors.New("scheduler: cancellation grace period elapsed before all slots stopped")
