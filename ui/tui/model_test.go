package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"portforge/graph"
	"portforge/statusbus"
)

func TestModelAppliesLifecycleEvents(t *testing.T) {
	events := make(chan statusbus.Event)
	m := newModel(events)

	next, cmd := m.Update(eventMsg(statusbus.Event{Kind: statusbus.Started, Port: graph.PortId{Origin: "devel/cmake"}, Slot: 0}))
	mm := next.(model)
	require.NotNil(t, cmd, "Update should re-issue listenCmd after a lifecycle event")
	require.Contains(t, strings.Join(mm.lines, "\n"), "devel/cmake: starting (slot 0)")

	next, _ = mm.Update(eventMsg(statusbus.Event{Kind: statusbus.Succeeded, Port: graph.PortId{Origin: "devel/cmake"}}))
	mm = next.(model)
	require.Contains(t, strings.Join(mm.lines, "\n"), "devel/cmake: success")
}

func TestModelProgressTickUpdatesFooterTally(t *testing.T) {
	events := make(chan statusbus.Event)
	m := newModel(events)

	next, _ := m.Update(eventMsg(statusbus.Event{
		Kind:  statusbus.ProgressTick,
		Slot:  -1,
		Tally: statusbus.TallyFromCounts(10, 3, 1, 0, 0, 2, 2),
	}))
	mm := next.(model)
	require.Contains(t, mm.View(), "4/10 done")
}

func TestModelStreamClosedQuits(t *testing.T) {
	events := make(chan statusbus.Event)
	m := newModel(events)

	_, cmd := m.Update(streamClosedMsg{})
	require.NotNil(t, cmd)
	require.IsType(t, tea.Quit(), cmd())
}

func TestModelQuitKeyStopsProgram(t *testing.T) {
	events := make(chan statusbus.Event)
	m := newModel(events)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	require.IsType(t, tea.Quit(), cmd())
}
