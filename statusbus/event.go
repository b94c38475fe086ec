// Package statusbus publishes build-lifecycle events to any number of
// subscribers — the Summary.log writer, the ncurses worker grid, the
// bubbletea status view, the plain stdout logger — without the
// scheduler knowing any of them exist.
package statusbus

import "portforge/graph"

// Kind identifies the shape of an Event's payload.
type Kind int

const (
	Started Kind = iota
	PhaseChanged
	Succeeded
	Failed
	Skipped
	ProgressTick
)

func (k Kind) String() string {
	switch k {
	case Started:
		return "started"
	case PhaseChanged:
		return "phase-changed"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	case Skipped:
		return "skipped"
	case ProgressTick:
		return "progress-tick"
	default:
		return "unknown"
	}
}

// Event is one build-lifecycle notification. Fields not relevant to Kind
// are left zero — e.g. Phase is only meaningful for PhaseChanged,
// Reason only for Failed/Skipped.
type Event struct {
	Kind Kind

	Port PortId
	Slot int // worker slot index, -1 when not slot-attributed (e.g. ProgressTick)

	Phase  string // current build phase, set on PhaseChanged
	Reason string // failure/skip reason, set on Failed/Skipped

	Tally Tally // populated on ProgressTick
}

// PortId is a thin re-export so subscribers don't need to import graph
// just to read an event's origin.
type PortId = graph.PortId

// Tally is a point-in-time snapshot of build-graph progress.
type Tally struct {
	Total      int
	Succeeded  int
	Failed     int
	Skipped    int
	Ignored    int
	Building   int
	Remaining  int
	ActiveSlots int
}
