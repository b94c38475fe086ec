package ncurses

import (
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"

	"portforge/graph"
	"portforge/statusbus"
)

// TestSubscriber_CtrlC_SimulationScreen verifies Ctrl+C fires
// OnInterrupt using tcell's SimulationScreen, the teacher's pattern for
// driving a tview app without a real terminal.
func TestSubscriber_CtrlC_SimulationScreen(t *testing.T) {
	simScreen := tcell.NewSimulationScreen("UTF-8")
	if err := simScreen.Init(); err != nil {
		t.Fatalf("init simulation screen: %v", err)
	}
	simScreen.SetSize(80, 24)

	sub := New()
	sub.SetScreen(simScreen)

	interrupted := make(chan struct{}, 1)
	sub.OnInterrupt = func() { interrupted <- struct{}{} }

	events := make(chan statusbus.Event)
	done := make(chan error, 1)
	go func() { done <- sub.Run(events) }()

	time.Sleep(100 * time.Millisecond)
	simScreen.InjectKey(tcell.KeyRune, rune(3), tcell.ModNone)

	select {
	case <-interrupted:
	case <-time.After(2 * time.Second):
		t.Fatal("OnInterrupt was not called after simulated Ctrl+C")
	}

	close(events)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after events closed")
	}
}

// TestSubscriber_RendersLifecycleEvents exercises the event-driven
// panes without asserting on rendered pixels — just that a full event
// sequence drives Run to a clean return once the channel closes.
func TestSubscriber_RendersLifecycleEvents(t *testing.T) {
	simScreen := tcell.NewSimulationScreen("UTF-8")
	if err := simScreen.Init(); err != nil {
		t.Fatalf("init simulation screen: %v", err)
	}
	simScreen.SetSize(80, 24)

	sub := New()
	sub.SetScreen(simScreen)

	events := make(chan statusbus.Event, 8)
	events <- statusbus.Event{Kind: statusbus.Started, Port: graph.PortId{Origin: "devel/cmake"}, Slot: 0}
	events <- statusbus.Event{Kind: statusbus.PhaseChanged, Port: graph.PortId{Origin: "devel/cmake"}, Slot: 0, Phase: "build"}
	events <- statusbus.Event{Kind: statusbus.Succeeded, Port: graph.PortId{Origin: "devel/cmake"}}
	events <- statusbus.Event{Kind: statusbus.ProgressTick, Slot: -1, Tally: statusbus.TallyFromCounts(1, 1, 0, 0, 0, 0, 0)}
	close(events)

	done := make(chan error, 1)
	go func() { done <- sub.Run(events) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after events closed")
	}
}
