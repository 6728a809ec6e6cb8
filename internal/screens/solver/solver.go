package solver

import (
	"context"

	"charm.land/bubbles/v2/spinner"
	"charm.land/bubbles/v2/textarea"
	"charm.land/bubbles/v2/viewport"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/solveur/internal/markup"
	"github.com/abhisek/solveur/internal/screen"
	slv "github.com/abhisek/solveur/internal/solver"
	"github.com/abhisek/solveur/internal/topic"
	"github.com/abhisek/solveur/internal/ui/components"
	"github.com/abhisek/solveur/internal/ui/layout"
	"github.com/abhisek/solveur/internal/ui/theme"
)

type focusArea int

const (
	focusTopics focusArea = iota
	focusProblem
	focusSubmit
	focusCount
)

// SolverScreen implements screen.Screen for the solving session.
type SolverScreen struct {
	ctx    context.Context
	solver *slv.Solver
	state  slv.State

	topics components.TopicBar
	input  textarea.Model
	button components.Button
	output viewport.Model
	spin   spinner.Model

	renderer      *markup.Terminal
	rendererWidth int
	focus         focusArea
	width         int
}

var _ screen.Screen = (*SolverScreen)(nil)
var _ screen.KeyHintProvider = (*SolverScreen)(nil)

// New creates a SolverScreen driving s. ctx bounds every submission.
func New(ctx context.Context, s *slv.Solver) *SolverScreen {
	names := make([]string, 0, len(topic.All()))
	for _, t := range topic.All() {
		names = append(names, t.String())
	}

	input := textarea.New()
	input.Placeholder = slv.Placeholder
	input.ShowLineNumbers = false
	input.Prompt = ""

	scr := &SolverScreen{
		ctx:    ctx,
		solver: s,
		state:  s.State(),
		topics: components.NewTopicBar(names, func(i int) tea.Cmd {
			return func() tea.Msg { return topicSelectedMsg{Index: i} }
		}),
		input: input,
		button: components.NewButton(slv.SubmitLabel, false, func() tea.Cmd {
			return func() tea.Msg { return submitMsg{} }
		}),
		output: viewport.New(),
		spin:   spinner.New(spinner.WithSpinner(spinner.MiniDot)),
		focus:  focusProblem,
	}
	scr.topics.Selected = topic.Index(scr.state.Topic)

	s.Subscribe(scr.sync)
	scr.sync(s.State())
	return scr
}

func (s *SolverScreen) Init() tea.Cmd {
	return s.setFocus(s.focus)
}

func (s *SolverScreen) Title() string {
	return s.state.Topic.String()
}

func (s *SolverScreen) KeyHints() []layout.KeyHint {
	hints := []layout.KeyHint{{Key: "Tab", Description: "Zone suivante"}}
	switch s.focus {
	case focusTopics:
		hints = append(hints, layout.KeyHint{Key: "←→ 1-5", Description: "Thème"})
	case focusSubmit:
		hints = append(hints, layout.KeyHint{Key: "Enter", Description: slv.SubmitLabel})
	}
	return append(hints,
		layout.KeyHint{Key: "Ctrl+S", Description: slv.SubmitLabel},
		layout.KeyHint{Key: "PgUp/PgDn", Description: "Défiler"},
		layout.KeyHint{Key: "Ctrl+L", Description: "Journal"},
		layout.KeyHint{Key: "Ctrl+C", Description: "Quitter"},
	)
}

func (s *SolverScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case streamEventMsg:
		s.solver.Apply(msg.Event)
		return s, waitForEvent(msg.Events)

	case topicSelectedMsg:
		if t, ok := topic.At(msg.Index); ok {
			_ = s.solver.SelectTopic(t)
		}
		return s, nil

	case submitMsg:
		return s, s.submit()

	case spinner.TickMsg:
		if !s.state.Loading {
			return s, nil
		}
		var cmd tea.Cmd
		s.spin, cmd = s.spin.Update(msg)
		return s, cmd

	case tea.KeyMsg:
		return s.handleKey(msg)
	}

	// Cursor blink and friends.
	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	return s, cmd
}

func (s *SolverScreen) handleKey(msg tea.KeyMsg) (screen.Screen, tea.Cmd) {
	switch msg.String() {
	case "ctrl+s":
		return s, s.submit()
	case "tab":
		return s, s.setFocus((s.focus + 1) % focusCount)
	case "shift+tab":
		return s, s.setFocus((s.focus + focusCount - 1) % focusCount)
	case "pgup":
		s.output.PageUp()
		return s, nil
	case "pgdown":
		s.output.PageDown()
		return s, nil
	}

	var cmd tea.Cmd
	switch s.focus {
	case focusTopics:
		if msg.String() == "enter" {
			return s, s.setFocus(focusProblem)
		}
		s.topics, cmd = s.topics.Update(msg)
	case focusProblem:
		if s.state.Loading {
			return s, nil
		}
		s.input, cmd = s.input.Update(msg)
		s.solver.UpdateProblemText(s.input.Value())
	case focusSubmit:
		s.button, cmd = s.button.Update(msg)
	}
	return s, cmd
}

// submit starts a submission if the solver accepts one. The stream runs on
// its own goroutine; events come back one message at a time.
func (s *SolverScreen) submit() tea.Cmd {
	sub, ok := s.solver.Begin()
	if !ok {
		return nil
	}

	events := make(chan slv.Event, 64)
	provider := s.solver.Provider()
	go func() {
		defer close(events)
		_ = sub.Run(s.ctx, provider, func(ev slv.Event) { events <- ev })
	}()

	return tea.Batch(waitForEvent(events), s.spin.Tick)
}

func (s *SolverScreen) setFocus(f focusArea) tea.Cmd {
	s.focus = f
	s.topics.Focused = f == focusTopics
	s.button.Active = f == focusSubmit
	if f == focusProblem && !s.state.Loading {
		return s.input.Focus()
	}
	s.input.Blur()
	return nil
}

// sync mirrors solver state into the widgets. It runs after every state
// change, once per streamed fragment.
func (s *SolverScreen) sync(st slv.State) {
	s.state = st

	s.topics.Selected = topic.Index(st.Topic)
	if s.input.Value() != st.Problem {
		s.input.SetValue(st.Problem)
	}

	if st.Loading {
		s.input.Blur()
	} else if s.focus == focusProblem && !s.input.Focused() {
		s.input.Focus()
	}

	s.button.Label = st.SubmitLabel()
	s.button.Busy = st.Loading

	s.refreshOutput()
}

func (s *SolverScreen) refreshOutput() {
	if s.renderer == nil || s.rendererWidth == 0 {
		return
	}
	atBottom := s.output.AtBottom()
	s.output.SetContent(s.solver.Render(s.renderer))
	if s.state.Loading && atBottom {
		s.output.GotoBottom()
	}
}

func (s *SolverScreen) resize(width, height int) {
	s.width = width
	inner := width - 4
	if inner < 20 {
		inner = 20
	}

	s.input.SetWidth(inner)
	inputHeight := 5
	if layout.IsCompactHeight(height) {
		inputHeight = 3
	}
	s.input.SetHeight(inputHeight)

	topicsHeight := lipgloss.Height(s.topics.View(width))
	// topics + input card + button + heading + status line + output borders
	outHeight := height - topicsHeight - (inputHeight + 2) - 1 - 1 - 1 - 2
	if outHeight < 3 {
		outHeight = 3
	}
	s.output.SetWidth(inner)
	s.output.SetHeight(outHeight)

	if s.rendererWidth != inner {
		s.rendererWidth = inner
		s.renderer = markup.NewTerminal(inner)
		s.refreshOutput()
	}
}

func (s *SolverScreen) View(width, height int) string {
	s.resize(width, height)

	inputCard := theme.Card
	if s.focus == focusProblem {
		inputCard = theme.FocusedCard
	}

	status := ""
	switch {
	case s.state.Error != "":
		status = theme.ErrorText.Render(s.state.Error)
	case s.state.Waiting():
		status = s.spin.View() + " " + theme.Hint.Render("Chargement de la solution")
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		s.topics.View(width),
		inputCard.Render(s.input.View()),
		s.button.View(),
		theme.Title.Render("Solution :")+"  "+status,
		theme.Card.Render(s.output.View()),
	)
}
