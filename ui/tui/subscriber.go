package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"portforge/statusbus"
)

// Subscriber runs the bubbletea log-pane program against a bus's event
// stream. It implements statusbus.Subscriber.
type Subscriber struct {
	// Options are passed straight through to tea.NewProgram, letting a
	// caller inject tea.WithInput/tea.WithOutput for tests.
	Options []tea.ProgramOption
}

// New returns a Subscriber with no extra program options.
func New(opts ...tea.ProgramOption) *Subscriber {
	return &Subscriber{Options: opts}
}

// Run starts the bubbletea program and blocks until the operator quits
// or events closes.
func (s *Subscriber) Run(events <-chan statusbus.Event) error {
	p := tea.NewProgram(newModel(events), s.Options...)
	_, err := p.Run()
	return err
}
