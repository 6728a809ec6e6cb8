package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/solveur/internal/llm"
	"github.com/abhisek/solveur/internal/router"
	"github.com/abhisek/solveur/internal/screen"
	"github.com/abhisek/solveur/internal/screens/llmlog"
	solverscreen "github.com/abhisek/solveur/internal/screens/solver"
	"github.com/abhisek/solveur/internal/solver"
	"github.com/abhisek/solveur/internal/store"
	"github.com/abhisek/solveur/internal/topic"
	"github.com/abhisek/solveur/internal/ui/layout"
)

// Options holds dependencies for the TUI.
type Options struct {
	Provider    llm.Provider
	EventRepo   store.EventRepo // optional; enables the LLM log screen
	Topic       topic.Topic
	MaxTokens   int
	Temperature float64
	Logger      *slog.Logger
}

// AppModel is the root Bubble Tea model.
type AppModel struct {
	router    *router.Router
	solver    *solver.Solver
	eventRepo store.EventRepo
	cancel    context.CancelFunc
	width     int
	height    int
}

// newAppModel creates a new AppModel with the solver screen.
func newAppModel(ctx context.Context, opts Options) AppModel {
	ctx, cancel := context.WithCancel(ctx)

	solverOpts := []solver.Option{solver.WithTopic(opts.Topic)}
	if opts.Logger != nil {
		solverOpts = append(solverOpts, solver.WithLogger(opts.Logger))
	}
	if opts.MaxTokens > 0 {
		solverOpts = append(solverOpts, solver.WithMaxTokens(opts.MaxTokens))
	}
	if opts.Temperature > 0 {
		solverOpts = append(solverOpts, solver.WithTemperature(opts.Temperature))
	}
	s := solver.New(opts.Provider, solverOpts...)

	return AppModel{
		router:    router.New(solverscreen.New(ctx, s)),
		solver:    s,
		eventRepo: opts.EventRepo,
		cancel:    cancel,
	}
}

func (m AppModel) Init() tea.Cmd {
	if active := m.router.Active(); active != nil {
		return active.Init()
	}
	return nil
}

func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, m.router.Update(msg)

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.solver.Cancel()
			m.cancel()
			return m, tea.Quit
		case "esc":
			if m.router.Depth() > 1 {
				return m, func() tea.Msg { return router.PopScreenMsg{} }
			}
			return m, nil
		case "ctrl+l":
			if m.eventRepo != nil && m.router.Depth() == 1 {
				return m, func() tea.Msg {
					return router.PushScreenMsg{Screen: llmlog.New(m.eventRepo)}
				}
			}
			return m, nil
		}
	}

	cmd := m.router.Update(msg)
	return m, cmd
}

func (m AppModel) View() tea.View {
	v := tea.NewView(m.frame())
	v.AltScreen = true
	return v
}

// frame renders the whole screen: header, active screen, footer.
func (m AppModel) frame() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	if layout.IsTooSmall(m.width, m.height) {
		return layout.RenderMinSizeMessage(m.width, m.height)
	}

	active := m.router.Active()
	title := ""
	if active != nil {
		title = active.Title()
	}

	header := layout.RenderHeader(title, m.width)
	footer := layout.RenderFooter(m.footerHints(active), m.width)

	headerHeight := lipgloss.Height(header)
	footerHeight := lipgloss.Height(footer)
	contentHeight := m.height - headerHeight - footerHeight
	if contentHeight < 0 {
		contentHeight = 0
	}

	content := m.router.View(m.width, contentHeight)
	return layout.RenderFrame(header, content, footer, m.width, m.height)
}

func (m AppModel) footerHints(active screen.Screen) []layout.KeyHint {
	if p, ok := active.(screen.KeyHintProvider); ok {
		return p.KeyHints()
	}
	if m.router.Depth() > 1 {
		return []layout.KeyHint{
			{Key: "Esc", Description: "Retour"},
			{Key: "Ctrl+C", Description: "Quitter"},
		}
	}
	return []layout.KeyHint{{Key: "Ctrl+C", Description: "Quitter"}}
}

// Run starts the Bubble Tea program and blocks until it exits.
func Run(ctx context.Context, opts Options) error {
	p := tea.NewProgram(newAppModel(ctx, opts), tea.WithContext(ctx))
	_, err := p.Run()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error running program:", err)
		return err
	}
	return nil
}
