package statusbus

import "sync"

// Subscriber renders a bus event stream until it closes. Implementations
// (ui/stdout, ui/ncurses, ui/tui, the Summary.log writer) must not block
// the channel for long — a full subscriber channel causes Publish to
// drop events for that subscriber rather than stall the scheduler.
type Subscriber interface {
	Run(events <-chan Event) error
}

// subscriberChanSize bounds how many events a slow subscriber can lag
// behind before Publish starts dropping for it. A full ncurses repaint
// is cheap relative to this; a subscriber that can't keep up with 256
// queued events is broken, not merely slow.
const subscriberChanSize = 256

// Bus fans a single producer's events out to many subscribers. The
// scheduler is the only producer, publishing synchronously from its
// single goroutine after every state transition — that ordering
// guarantee is what makes the per-port event stream totally ordered.
type Bus struct {
	mu   sync.Mutex
	subs []chan Event

	tallyMu sync.Mutex
	tally   Tally
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a new subscriber channel and returns it. Callers
// read from the returned channel until the bus is closed via Close.
func (b *Bus) Subscribe() <-chan Event {
	ch := make(chan Event, subscriberChanSize)
	b.mu.Lock()
	b.subs = append(b.subs, ch)
	b.mu.Unlock()
	return ch
}

// Publish fans out ev to every current subscriber. A subscriber whose
// channel is full has the event dropped for it rather than stalling the
// scheduler — a missed ProgressTick or PhaseChanged is cosmetic; a
// blocked scheduler is not.
func (b *Bus) Publish(ev Event) {
	b.mu.Lock()
	subs := b.subs
	b.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Snapshot records t as the current tally, then publishes a ProgressTick
// carrying it. It returns nothing, and the recorded tally is not readable
// back through the Bus. Call this once per scheduler poll, not once
// per state transition — it is the periodic "still alive" signal, not a
// per-event one.
func (b *Bus) Snapshot(t Tally) {
	b.tallyMu.Lock()
	b.tally = t
	b.tallyMu.Unlock()
	b.Publish(Event{Kind: ProgressTick, Slot: -1, Tally: t})
}

// Close closes every subscriber channel. Call once, after the scheduler
// has stopped publishing.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		close(ch)
	}
	b.subs = nil
}

// TallyFromCounts builds a Tally from a graph.CountByState-shaped map
// plus the currently active slot count, so callers don't need to import
// graph.State constants directly.
func TallyFromCounts(total, succeeded, failed, skipped, ignored, building, activeSlots int) Tally {
	return Tally{
		Total:       total,
		Succeeded:   succeeded,
		Failed:      failed,
		Skipped:     skipped,
		Ignored:     ignored,
		Building:    building,
		Remaining:   total - succeeded - failed - skipped - ignored,
		ActiveSlots: activeSlots,
	}
}
