//go:build !dragonfly

package worker

// becomeReaper and reapDescendants are no-ops on platforms without
// DragonFly's procctl(2) reaper — the sandbox's mock/non-BSD
// environment backends don't spawn anything that needs reaping.
func becomeReaper() error { return nil }

func reapDescendants() error { return nil }
