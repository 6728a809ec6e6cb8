package components

import (
	"strconv"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/solveur/internal/ui/theme"
)

// TopicBar is a horizontal row of mutually exclusive tabs. Exactly one tab
// is selected at a time.
type TopicBar struct {
	Items    []string
	Selected int
	Focused  bool

	// OnSelect is called with the new index when the selection changes.
	OnSelect func(int) tea.Cmd
}

// NewTopicBar creates a bar with the first item selected.
func NewTopicBar(items []string, onSelect func(int) tea.Cmd) TopicBar {
	return TopicBar{Items: items, OnSelect: onSelect}
}

// Update handles ←/→ (or h/l) and the digit shortcuts 1-9.
func (b TopicBar) Update(msg tea.Msg) (TopicBar, tea.Cmd) {
	kmsg, ok := msg.(tea.KeyMsg)
	if !ok || len(b.Items) == 0 {
		return b, nil
	}

	next := b.Selected
	switch key := kmsg.String(); key {
	case "left", "h":
		next = (b.Selected - 1 + len(b.Items)) % len(b.Items)
	case "right", "l":
		next = (b.Selected + 1) % len(b.Items)
	default:
		if n, err := strconv.Atoi(key); err == nil && n >= 1 && n <= len(b.Items) {
			next = n - 1
		}
	}

	return b.Select(next)
}

// Select moves the selection to i and fires OnSelect if it changed.
func (b TopicBar) Select(i int) (TopicBar, tea.Cmd) {
	if i < 0 || i >= len(b.Items) || i == b.Selected {
		return b, nil
	}
	b.Selected = i
	if b.OnSelect != nil {
		return b, b.OnSelect(i)
	}
	return b, nil
}

// View renders the tabs, wrapping onto more lines when width is short.
func (b TopicBar) View(width int) string {
	var (
		lines []string
		row   []string
		used  int
	)
	for i, item := range b.Items {
		label := strconv.Itoa(i+1) + " " + item
		var tab string
		if i == b.Selected {
			style := theme.TabActive
			if !b.Focused {
				style = style.Background(theme.Border)
			}
			tab = style.Render(label)
		} else {
			tab = theme.TabInactive.Render(label)
		}

		w := lipgloss.Width(tab) + 1
		if used > 0 && used+w > width {
			lines = append(lines, strings.Join(row, " "))
			row, used = nil, 0
		}
		row = append(row, tab)
		used += w
	}
	if len(row) > 0 {
		lines = append(lines, strings.Join(row, " "))
	}
	return strings.Join(lines, "\n")
}
