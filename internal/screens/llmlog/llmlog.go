package llmlog

import (
	"context"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wordwrap"

	"github.com/abhisek/solveur/internal/router"
	"github.com/abhisek/solveur/internal/screen"
	"github.com/abhisek/solveur/internal/store"
	"github.com/abhisek/solveur/internal/ui/layout"
	"github.com/abhisek/solveur/internal/ui/theme"
)

const pageSize = 50

type eventsLoadedMsg struct {
	Events []store.LLMRequestEventRecord
	Err    error
}

// LLMLogScreen lists the most recent generation requests.
type LLMLogScreen struct {
	eventRepo store.EventRepo
	events    []store.LLMRequestEventRecord
	selected  int
	expanded  map[int]bool
	loaded    bool
	errMsg    string
}

var _ screen.Screen = (*LLMLogScreen)(nil)
var _ screen.KeyHintProvider = (*LLMLogScreen)(nil)

// New creates a new LLMLogScreen.
func New(eventRepo store.EventRepo) *LLMLogScreen {
	return &LLMLogScreen{
		eventRepo: eventRepo,
		expanded:  make(map[int]bool),
	}
}

func (s *LLMLogScreen) Init() tea.Cmd {
	return func() tea.Msg {
		events, err := s.eventRepo.QueryLLMEvents(context.Background(), store.QueryOpts{Limit: pageSize})
		return eventsLoadedMsg{Events: events, Err: err}
	}
}

func (s *LLMLogScreen) Title() string {
	return "Journal LLM"
}

func (s *LLMLogScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "Enter", Description: "Détails"},
		{Key: "↑↓", Description: "Naviguer"},
		{Key: "r", Description: "Actualiser"},
		{Key: "Esc", Description: "Retour"},
	}
}

func (s *LLMLogScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case eventsLoadedMsg:
		if msg.Err != nil {
			s.errMsg = msg.Err.Error()
		} else {
			s.errMsg = ""
			s.events = msg.Events
			if s.selected >= len(s.events) {
				s.selected = max(0, len(s.events)-1)
			}
		}
		s.loaded = true
		return s, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return s, func() tea.Msg { return router.PopScreenMsg{} }
		case "up", "k":
			if s.selected > 0 {
				s.selected--
			}
			return s, nil
		case "down", "j":
			if s.selected < len(s.events)-1 {
				s.selected++
			}
			return s, nil
		case "enter":
			s.expanded[s.selected] = !s.expanded[s.selected]
			return s, nil
		case "r":
			s.expanded = make(map[int]bool)
			return s, s.Init()
		}
	}
	return s, nil
}

func (s *LLMLogScreen) View(width, height int) string {
	if s.errMsg != "" {
		return lipgloss.NewStyle().
			Width(width).Align(lipgloss.Center).Foreground(theme.Error).
			Render(fmt.Sprintf("\n\nErreur : %s", s.errMsg))
	}
	if !s.loaded {
		return lipgloss.NewStyle().
			Width(width).Align(lipgloss.Center).Foreground(theme.TextDim).
			Render("\n\n  Chargement du journal...")
	}
	if len(s.events) == 0 {
		return lipgloss.NewStyle().
			Width(width).Align(lipgloss.Center).Foreground(theme.TextDim).Italic(true).
			Render("\n\n  Aucune requête enregistrée.")
	}

	lineWidth := uint(max(width-4, 20))

	var b strings.Builder
	b.WriteString("\n")
	for i, e := range s.events {
		b.WriteString(s.renderLine(i, e, lineWidth))
		b.WriteString("\n")

		if s.expanded[i] {
			b.WriteString(renderDetails(e, lineWidth))
		}
	}
	return b.String()
}

func (s *LLMLogScreen) renderLine(i int, e store.LLMRequestEventRecord, width uint) string {
	prefix := "  "
	if i == s.selected {
		prefix = "> "
	}
	status := "ok"
	if !e.Success {
		status = "échec"
	}

	line := fmt.Sprintf("%s#%d  %s  %-8s %-20s %5dms  %d/%d tok  %s",
		prefix, e.ID, e.Timestamp.Local().Format("02/01 15:04:05"),
		e.Purpose, e.Model, e.LatencyMs, e.InputTokens, e.OutputTokens, status)

	style := lipgloss.NewStyle().Foreground(theme.Text)
	switch {
	case i == s.selected:
		style = style.Foreground(theme.Primary).Bold(true)
	case !e.Success:
		style = style.Foreground(theme.Error)
	}
	return style.Render(truncate.StringWithTail(line, width, "…"))
}

func renderDetails(e store.LLMRequestEventRecord, width uint) string {
	dim := lipgloss.NewStyle().Foreground(theme.TextDim).PaddingLeft(4)

	var b strings.Builder
	fmt.Fprintf(&b, "Requête %s via %s\n", e.RequestID, e.Provider)
	if e.ErrorMessage != "" {
		fmt.Fprintf(&b, "Erreur : %s\n", e.ErrorMessage)
	}
	response := strings.TrimSpace(e.ResponseBody)
	if response == "" {
		response = "(réponse vide)"
	}
	b.WriteString(wordwrap.String(preview(response, 600), int(width)-4))

	return dim.Render(b.String()) + "\n"
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
