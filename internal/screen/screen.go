package screen

import (
	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/solveur/internal/ui/layout"
)

// Screen is one page of the TUI. The router keeps screens on a stack; key
// presses reach only the top one, but every other message is delivered to
// all of them, so a covered screen must ignore messages it did not start.
type Screen interface {
	Init() tea.Cmd
	Update(msg tea.Msg) (Screen, tea.Cmd)

	// View renders the content area, excluding header and footer.
	View(width, height int) string

	// Title is shown on the right of the header.
	Title() string
}

// KeyHintProvider lets a screen replace the default footer hints.
type KeyHintProvider interface {
	KeyHints() []layout.KeyHint
}
