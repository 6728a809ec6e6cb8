package solver

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/solveur/internal/llm"
	slv "github.com/abhisek/solveur/internal/solver"
	"github.com/abhisek/solveur/internal/topic"
)

func newTestScreen(t *testing.T, responses ...llm.MockResponse) (*SolverScreen, *slv.Solver, *llm.MockProvider) {
	t.Helper()
	mock := llm.NewMockProvider(responses...)
	s := slv.New(mock)
	scr := New(context.Background(), s)
	scr.Init()
	_ = scr.View(100, 40)
	return scr, s, mock
}

// pump runs cmd and feeds every stream message it produces back into the
// screen until the stream is exhausted.
func pump(t *testing.T, scr *SolverScreen, cmd tea.Cmd) {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		switch msg := c().(type) {
		case tea.BatchMsg:
			queue = append(queue, msg...)
		case streamEventMsg, topicSelectedMsg, submitMsg:
			_, next := scr.Update(msg)
			queue = append(queue, next)
		}
	}
}

func typeText(scr *SolverScreen, text string) {
	for _, r := range text {
		scr.Update(tea.KeyPressMsg{Code: r, Text: string(r)})
	}
}

func ctrlS() tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: 's', Mod: tea.ModCtrl}
}

func TestTypingUpdatesProblem(t *testing.T) {
	scr, s, _ := newTestScreen(t)
	typeText(scr, "z^2+1=0")
	if got := s.State().Problem; got != "z^2+1=0" {
		t.Fatalf("expected problem to follow the textarea, got %q", got)
	}
}

func TestSubmitStreamsSolution(t *testing.T) {
	scr, s, mock := newTestScreen(t, llm.MockResponse{
		Fragments: []string{"On pose ", "$z = i$", "."},
	})
	typeText(scr, "z^2+1=0")

	_, cmd := scr.Update(ctrlS())
	if cmd == nil {
		t.Fatal("expected a command to start the stream")
	}
	if !s.State().Loading {
		t.Fatal("expected loading right after submit")
	}
	if scr.button.Label != slv.BusyLabel || !scr.button.Busy {
		t.Fatalf("expected busy button, got %q busy=%v", scr.button.Label, scr.button.Busy)
	}

	pump(t, scr, cmd)

	st := s.State()
	if st.Loading || st.Phase != slv.Succeeded {
		t.Fatalf("expected success, got %+v", st)
	}
	if st.Solution != "On pose $z = i$." {
		t.Fatalf("unexpected solution %q", st.Solution)
	}
	if scr.button.Label != slv.SubmitLabel {
		t.Fatalf("expected idle label, got %q", scr.button.Label)
	}
	if mock.CallCount() != 1 {
		t.Fatalf("expected one call, got %d", mock.CallCount())
	}
	if view := scr.View(100, 40); !strings.Contains(view, "z = i") {
		t.Fatalf("expected solution in view:\n%s", view)
	}
}

func TestSubmitEmptyProblemIsNoop(t *testing.T) {
	scr, s, mock := newTestScreen(t)
	typeText(scr, "   ")

	_, cmd := scr.Update(ctrlS())
	if cmd != nil {
		t.Fatal("expected no command for a blank problem")
	}
	if s.State().Loading || mock.CallCount() != 0 {
		t.Fatal("blank problem must not reach the provider")
	}
}

func TestFailureShowsFixedMessage(t *testing.T) {
	scr, s, _ := newTestScreen(t, llm.MockResponse{
		Fragments: []string{"Début"},
		Err:       errors.New("connection reset"),
	})
	typeText(scr, "x")

	_, cmd := scr.Update(ctrlS())
	pump(t, scr, cmd)

	st := s.State()
	if st.Error != slv.ErrorMessage {
		t.Fatalf("expected fixed error, got %q", st.Error)
	}
	if st.Solution != "Début" {
		t.Fatalf("expected partial solution kept, got %q", st.Solution)
	}
	view := scr.View(100, 40)
	if strings.Contains(view, "connection reset") {
		t.Fatal("internal error detail leaked into the view")
	}
}

func TestInputIgnoredWhileLoading(t *testing.T) {
	hold := make(chan struct{})
	scr, s, _ := newTestScreen(t, llm.MockResponse{
		Fragments: []string{"ok"},
		Hold:      hold,
	})
	typeText(scr, "a")
	_, cmd := scr.Update(ctrlS())

	typeText(scr, "bcd")
	if got := s.State().Problem; got != "a" {
		t.Fatalf("expected problem frozen while loading, got %q", got)
	}

	close(hold)
	pump(t, scr, cmd)
	if s.State().Loading {
		t.Fatal("expected stream to finish")
	}
}

func TestTopicBarSelectsTopic(t *testing.T) {
	scr, s, _ := newTestScreen(t)
	typeText(scr, "énoncé")

	scr.Update(tea.KeyPressMsg{Code: tea.KeyTab})
	scr.Update(tea.KeyPressMsg{Code: tea.KeyTab})
	if scr.focus != focusTopics {
		t.Fatalf("expected focus on topics, got %d", scr.focus)
	}

	_, cmd := scr.Update(tea.KeyPressMsg{Code: '3', Text: "3"})
	pump(t, scr, cmd)

	st := s.State()
	if st.Topic != topic.Trigonometrie {
		t.Fatalf("expected Trigonométrie, got %s", st.Topic)
	}
	if st.Problem != "" || scr.input.Value() != "" {
		t.Fatal("expected problem cleared on topic change")
	}
	if scr.Title() != topic.Trigonometrie.String() {
		t.Fatalf("unexpected title %q", scr.Title())
	}
}

func TestSubmitButtonFocus(t *testing.T) {
	scr, s, _ := newTestScreen(t, llm.MockResponse{Fragments: []string{"ok"}})
	typeText(scr, "x")

	scr.Update(tea.KeyPressMsg{Code: tea.KeyTab})
	if scr.focus != focusSubmit {
		t.Fatalf("expected focus on submit, got %d", scr.focus)
	}
	_, cmd := scr.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	pump(t, scr, cmd)

	if s.State().Solution != "ok" {
		t.Fatalf("expected solution after pressing the button, got %q", s.State().Solution)
	}
}

func TestKeyHintsFollowFocus(t *testing.T) {
	scr, _, _ := newTestScreen(t)
	has := func(key string) bool {
		for _, h := range scr.KeyHints() {
			if h.Key == key {
				return true
			}
		}
		return false
	}
	if has("←→ 1-5") {
		t.Fatal("topic hint shown without topic focus")
	}
	scr.Update(tea.KeyPressMsg{Code: tea.KeyTab, Mod: tea.ModShift})
	if scr.focus != focusTopics || !has("←→ 1-5") {
		t.Fatal("expected topic hint after shift+tab")
	}
}
