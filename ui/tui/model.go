// Package tui is the bubbletea statusbus.Subscriber: a scrollable
// per-port log pane plus a one-line tally footer, offered as a second,
// independently swappable renderer alongside ui/ncurses — demonstrating
// that nothing about statusbus.Subscriber ties a UI to tview/tcell.
// Its message-pump shape (a tea.Cmd that blocks on a channel receive
// and re-issues itself) is lifted from berth-dev-berth's
// internal/tui/commands.ListenExecutionCmd.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"portforge/statusbus"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	failureStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	skipStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	footerStyle  = lipgloss.NewStyle().Bold(true)
)

// eventMsg wraps one statusbus.Event as a tea.Msg.
type eventMsg statusbus.Event

// streamClosedMsg signals the event channel closed (build finished).
type streamClosedMsg struct{}

// model is the bubbletea Model driving the log pane + footer.
type model struct {
	events <-chan statusbus.Event
	vp     viewport.Model
	lines  []string
	tally  statusbus.Tally
	done   bool
	width  int
	height int
}

func newModel(events <-chan statusbus.Event) model {
	w, h, err := term.GetSize(0)
	if err != nil || w <= 0 || h <= 0 {
		w, h = 80, 24
	}
	vp := viewport.New(w, h-2)
	return model{events: events, vp: vp, width: w, height: h}
}

func (m model) Init() tea.Cmd {
	return listenCmd(m.events)
}

// listenCmd blocks on a single channel receive and converts it into a
// tea.Msg; Update re-issues it after every event message, the same polling
// shape berth's ListenExecutionCmd uses for its own streamed output.
func listenCmd(events <-chan statusbus.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return streamClosedMsg{}
		}
		return eventMsg(ev)
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.vp.Width = msg.Width
		m.vp.Height = msg.Height - 2
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.vp, cmd = m.vp.Update(msg)
		return m, cmd

	case eventMsg:
		m.apply(statusbus.Event(msg))
		if m.done {
			return m, tea.Quit
		}
		return m, listenCmd(m.events)

	case streamClosedMsg:
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

func (m *model) apply(ev statusbus.Event) {
	switch ev.Kind {
	case statusbus.Started:
		m.lines = append(m.lines, fmt.Sprintf("%s: starting (slot %d)", ev.Port, ev.Slot))
	case statusbus.PhaseChanged:
		m.lines = append(m.lines, fmt.Sprintf("%s: %s", ev.Port, ev.Phase))
	case statusbus.Succeeded:
		m.lines = append(m.lines, successStyle.Render(fmt.Sprintf("%s: success", ev.Port)))
	case statusbus.Failed:
		m.lines = append(m.lines, failureStyle.Render(fmt.Sprintf("%s: failed at %s: %s", ev.Port, ev.Phase, ev.Reason)))
	case statusbus.Skipped:
		m.lines = append(m.lines, skipStyle.Render(fmt.Sprintf("%s: skipped: %s", ev.Port, ev.Reason)))
	case statusbus.ProgressTick:
		m.tally = ev.Tally
	}
	m.vp.SetContent(strings.Join(m.lines, "\n"))
	m.vp.GotoBottom()
}

func (m model) View() string {
	t := m.tally
	footer := footerStyle.Render(fmt.Sprintf(
		"%d/%d done  %d building  %d failed  %d skipped  %d slots active  (q to quit)",
		t.Succeeded+t.Failed+t.Skipped+t.Ignored, t.Total, t.Building, t.Failed, t.Skipped, t.ActiveSlots,
	))
	return m.vp.View() + "\n" + footer
}
