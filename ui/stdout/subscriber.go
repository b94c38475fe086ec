// Package stdout is the plainest statusbus.Subscriber: one line per
// event, no cursor control, no redraw. It is what a non-interactive
// terminal or a log-collecting CI runner gets when cfg.DisplayMode asks
// for it instead of ui/ncurses or ui/tui.
package stdout

import (
	"bufio"
	"fmt"
	"io"
	"time"

	"portforge/statusbus"
)

// Subscriber prints every bus event to Out, one line at a time. It
// implements statusbus.Subscriber.
type Subscriber struct {
	Out io.Writer

	// TickEvery throttles ProgressTick lines so a fast-polling scheduler
	// doesn't flood a plain terminal with tally lines between real
	// events; zero means print every tick. Started/PhaseChanged/
	// Succeeded/Failed/Skipped are never throttled.
	TickEvery time.Duration

	lastTick time.Time
}

// New returns a Subscriber writing to out.
func New(out io.Writer) *Subscriber {
	return &Subscriber{Out: out, TickEvery: time.Second}
}

// Run prints events until the channel closes. It never returns a
// non-nil error of its own; a write failure to Out ends the loop early
// since there is nothing further useful to report to.
func (s *Subscriber) Run(events <-chan statusbus.Event) error {
	w := bufio.NewWriter(s.Out)
	defer w.Flush()

	for ev := range events {
		line, ok := s.format(ev)
		if !ok {
			continue
		}
		if _, err := w.WriteString(line); err != nil {
			return err
		}
		w.Flush()
	}
	return nil
}

func (s *Subscriber) format(ev statusbus.Event) (string, bool) {
	switch ev.Kind {
	case statusbus.Started:
		return fmt.Sprintf(">>> %s: starting (slot %d)\n", ev.Port, ev.Slot), true
	case statusbus.PhaseChanged:
		return fmt.Sprintf("    %s: %s (slot %d)\n", ev.Port, ev.Phase, ev.Slot), true
	case statusbus.Succeeded:
		return fmt.Sprintf("=== %s: success\n", ev.Port), true
	case statusbus.Failed:
		return fmt.Sprintf("!!! %s: failed at %s: %s\n", ev.Port, ev.Phase, ev.Reason), true
	case statusbus.Skipped:
		return fmt.Sprintf("--- %s: skipped: %s\n", ev.Port, ev.Reason), true
	case statusbus.ProgressTick:
		now := time.Now()
		if s.TickEvery > 0 && !s.lastTick.IsZero() && now.Sub(s.lastTick) < s.TickEvery {
			return "", false
		}
		s.lastTick = now
		t := ev.Tally
		return fmt.Sprintf("[%d/%d done, %d building, %d failed, %d skipped, %d slots active]\n",
			t.Succeeded+t.Failed+t.Skipped+t.Ignored, t.Total, t.Building, t.Failed, t.Skipped, t.ActiveSlots), true
	default:
		return "", false
	}
}
