package solver

import (
	tea "charm.land/bubbletea/v2"

	slv "github.com/abhisek/solveur/internal/solver"
)

// streamEventMsg carries one event of a running submission back to the
// event loop, along with the channel to keep reading from.
type streamEventMsg struct {
	Event  slv.Event
	Events <-chan slv.Event
}

// topicSelectedMsg is sent when a tab of the topic bar is picked.
type topicSelectedMsg struct {
	Index int
}

// submitMsg is sent when the submit button is pressed.
type submitMsg struct{}

// waitForEvent blocks on the next event of a submission. A closed channel
// ends the chain.
func waitForEvent(events <-chan slv.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return nil
		}
		return streamEventMsg{Event: ev, Events: events}
	}
}
