// Package ncurses is the tview/tcell statusbus.Subscriber: a three-pane
// full-screen view (header tally, per-state progress, scrolling worker
// event log) for an interactive terminal session. It is a direct
// generalization of the teacher's build/ui_ncurses.go NcursesUI, which
// drove the same three panes from its own BuildStats/LogEvent calls;
// here the single driver is the bus's Event stream instead.
package ncurses

import (
	"fmt"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"portforge/statusbus"
)

// Subscriber renders bus events as a full-screen tview application. It
// implements statusbus.Subscriber.
type Subscriber struct {
	app          *tview.Application
	headerText   *tview.TextView
	progressText *tview.TextView
	eventsText   *tview.TextView
	layout       *tview.Flex

	mu            sync.Mutex
	eventLines    []string
	maxEventLines int

	// OnInterrupt is called, if set, when the operator presses Ctrl+C or
	// q/Q inside the UI — the caller's hook for triggering scheduler
	// cancellation, mirroring the teacher's SetInterruptHandler.
	OnInterrupt func()

	screen tcell.Screen
}

// New builds an uninitialized Subscriber; the tview.Application itself
// is constructed lazily on the first Run call so a Subscriber can be
// wired up (e.g. OnInterrupt set) before the screen takes over the
// terminal.
func New() *Subscriber {
	return &Subscriber{maxEventLines: 200}
}

// SetScreen injects a tcell.Screen (e.g. tcell.NewSimulationScreen) in
// place of the real terminal, the same seam the teacher's ui_ncurses
// tests use to drive key events without a TTY.
func (s *Subscriber) SetScreen(screen tcell.Screen) {
	s.screen = screen
}

// Run takes over the terminal, renders events as they arrive, and
// returns once events closes or the operator quits the screen.
func (s *Subscriber) Run(events <-chan statusbus.Event) error {
	s.app = tview.NewApplication()
	if s.screen != nil {
		s.app.SetScreen(s.screen)
	}

	s.headerText = tview.NewTextView().SetDynamicColors(true).SetTextAlign(tview.AlignLeft)
	s.headerText.SetBorder(true).SetTitle(" portforge ").SetTitleAlign(tview.AlignLeft)
	s.headerText.SetText("[yellow]Resolving dependencies...[white]")

	s.progressText = tview.NewTextView().SetDynamicColors(true).SetTextAlign(tview.AlignLeft)
	s.progressText.SetBorder(true).SetTitle(" Progress ").SetTitleAlign(tview.AlignLeft)
	s.progressText.SetText("Waiting for build to start...")

	s.eventsText = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetChangedFunc(func() { s.app.Draw() })
	s.eventsText.SetBorder(true).SetTitle(" Worker Events ").SetTitleAlign(tview.AlignLeft)
	s.eventsText.SetText("No events yet...")

	s.layout = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(s.headerText, 3, 0, false).
		AddItem(s.progressText, 6, 0, false).
		AddItem(s.eventsText, 0, 1, false)

	s.app.SetInputCapture(func(ev *tcell.EventKey) *tcell.EventKey {
		switch {
		case ev.Key() == tcell.KeyCtrlC:
			s.quit()
			return nil
		case ev.Key() == tcell.KeyRune && (ev.Rune() == 'q' || ev.Rune() == 'Q'):
			s.quit()
			return nil
		}
		return ev
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range events {
			s.apply(ev)
		}
		s.app.QueueUpdateDraw(func() {})
		s.app.Stop()
	}()

	err := s.app.SetRoot(s.layout, true).EnableMouse(true).Run()
	<-done
	return err
}

func (s *Subscriber) quit() {
	s.app.Stop()
	if s.OnInterrupt != nil {
		go s.OnInterrupt()
	}
}

func (s *Subscriber) apply(ev statusbus.Event) {
	switch ev.Kind {
	case statusbus.ProgressTick:
		s.updateProgress(ev.Tally)
	case statusbus.Started:
		s.logEvent(ev.Slot, fmt.Sprintf("%s: starting", ev.Port))
	case statusbus.PhaseChanged:
		s.logEvent(ev.Slot, fmt.Sprintf("%s: %s", ev.Port, ev.Phase))
	case statusbus.Succeeded:
		s.logEvent(ev.Slot, fmt.Sprintf("[green]%s: success[white]", ev.Port))
	case statusbus.Failed:
		s.logEvent(ev.Slot, fmt.Sprintf("[red]%s: failed at %s: %s[white]", ev.Port, ev.Phase, ev.Reason))
	case statusbus.Skipped:
		s.logEvent(ev.Slot, fmt.Sprintf("[yellow]%s: skipped: %s[white]", ev.Port, ev.Reason))
	}
}

func (s *Subscriber) updateProgress(t statusbus.Tally) {
	header := fmt.Sprintf("[yellow]Building:[white] %d/%d packages | [green]Active slots:[white] %d",
		t.Succeeded+t.Failed+t.Skipped+t.Ignored, t.Total, t.ActiveSlots)

	progress := fmt.Sprintf(
		"[green]Success:[white]  %3d\n"+
			"[red]Failed:[white]   %3d\n"+
			"[yellow]Skipped:[white]  %3d\n"+
			"[yellow]Ignored:[white]  %3d\n"+
			"Building:     %3d",
		t.Succeeded, t.Failed, t.Skipped, t.Ignored, t.Building,
	)

	s.app.QueueUpdateDraw(func() {
		s.headerText.SetText(header)
		s.progressText.SetText(progress)
	})
}

func (s *Subscriber) logEvent(slot int, message string) {
	s.mu.Lock()
	timestamp := time.Now().Format("15:04:05")
	line := fmt.Sprintf("[%s] [cyan][slot %d][white] %s", timestamp, slot, message)
	s.eventLines = append(s.eventLines, line)
	if len(s.eventLines) > s.maxEventLines {
		s.eventLines = s.eventLines[1:]
	}
	text := ""
	for _, l := range s.eventLines {
		text += l + "\n"
	}
	s.mu.Unlock()

	s.app.QueueUpdateDraw(func() {
		s.eventsText.SetText(text)
		s.eventsText.ScrollToEnd()
	})
}
