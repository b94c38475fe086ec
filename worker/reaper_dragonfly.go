//go:build dragonfly

package worker

import "portforge/environment/bsd"

// becomeReaper acquires reaper status once at slot startup so every
// descendant the sandbox spawns (make, compilers, install scripts) is
// reachable by reapDescendants even if it gets reparented.
func becomeReaper() error {
	return bsd.BecomeReaper()
}

// reapDescendants kills and waits for every descendant left over after
// a task, exactly worker_helper.go's one-shot lifecycle, run here once
// per task instead of once per process.
func reapDescendants() error {
	return bsd.ReapAll()
}
