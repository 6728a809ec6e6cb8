package router

import (
	"github.com/abhisek/solveur/internal/screen"

	tea "charm.land/bubbletea/v2"
)

// PushScreenMsg requests the router to push a new screen onto the stack.
type PushScreenMsg struct {
	Screen screen.Screen
}

// PopScreenMsg requests the router to pop the current screen off the stack.
type PopScreenMsg struct{}

// Router manages a stack of screens.
//
// Key presses go to the top screen only. Every other message is delivered
// to all screens on the stack, so background work started by a covered
// screen (a solution still streaming under the LLM log, say) keeps flowing.
type Router struct {
	stack []screen.Screen
}

// New creates a new Router with the given initial screen. The caller runs
// its Init(). A nil screen leaves the stack empty.
func New(initial screen.Screen) *Router {
	r := &Router{}
	if initial != nil {
		r.stack = append(r.stack, initial)
	}
	return r
}

// Push adds a screen on top of the stack and calls its Init().
// A nil screen is ignored.
func (r *Router) Push(s screen.Screen) tea.Cmd {
	if s == nil {
		return nil
	}
	r.stack = append(r.stack, s)
	return s.Init()
}

// Pop removes the top screen. No-op if stack depth would become 0.
func (r *Router) Pop() tea.Cmd {
	if len(r.stack) <= 1 {
		return nil
	}
	r.stack = r.stack[:len(r.stack)-1]
	return nil
}

// Active returns the top screen on the stack.
func (r *Router) Active() screen.Screen {
	if len(r.stack) == 0 {
		return nil
	}
	return r.stack[len(r.stack)-1]
}

// Depth returns the number of screens on the stack.
func (r *Router) Depth() int {
	return len(r.stack)
}

// Update handles navigation messages and forwards everything else.
func (r *Router) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case PushScreenMsg:
		return r.Push(msg.Screen)
	case PopScreenMsg:
		return r.Pop()
	case tea.KeyMsg:
		return r.updateAt(len(r.stack)-1, msg)
	}

	cmds := make([]tea.Cmd, 0, len(r.stack))
	for i := range r.stack {
		cmds = append(cmds, r.updateAt(i, msg))
	}
	return tea.Batch(cmds...)
}

func (r *Router) updateAt(i int, msg tea.Msg) tea.Cmd {
	if i < 0 || i >= len(r.stack) {
		return nil
	}
	updated, cmd := r.stack[i].Update(msg)
	r.stack[i] = updated
	return cmd
}

// View renders the active screen.
func (r *Router) View(width, height int) string {
	active := r.Active()
	if active == nil {
		return ""
	}
	return active.View(width, height)
}
