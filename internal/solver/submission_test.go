package solver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/solveur/internal/llm"
	"github.com/abhisek/solveur/internal/topic"
)

// runAsync starts sub on its own goroutine and returns the event channel,
// the way the TUI drives a submission.
func runAsync(s *Solver, sub *Submission) <-chan Event {
	events := make(chan Event, 16)
	go func() {
		defer close(events)
		_ = sub.Run(context.Background(), s.Provider(), func(ev Event) { events <- ev })
	}()
	return events
}

func drain(s *Solver, events <-chan Event) {
	for ev := range events {
		s.Apply(ev)
	}
}

func TestSubmissionRun_EventOrder(t *testing.T) {
	s, _, _ := newTestSolver(t, llm.MockResponse{Fragments: []string{"A", "", "B"}})
	s.UpdateProblemText("p")
	sub, ok := s.Begin()
	require.True(t, ok)

	var got []Event
	err := sub.Run(context.Background(), s.Provider(), func(ev Event) { got = append(got, ev) })
	require.NoError(t, err)

	assert.Equal(t, []Event{
		FragmentEvent{ID: sub.ID, Text: "A"},
		FragmentEvent{ID: sub.ID, Text: "B"},
		DoneEvent{ID: sub.ID},
	}, got)
}

func TestSubmissionRun_Async(t *testing.T) {
	s, _, _ := newTestSolver(t, llm.MockResponse{Fragments: []string{"A", "B", "C"}})
	s.UpdateProblemText("p")
	sub, ok := s.Begin()
	require.True(t, ok)

	drain(s, runAsync(s, sub))

	st := s.State()
	assert.Equal(t, "ABC", st.Solution)
	assert.False(t, st.Loading)
	assert.Equal(t, Succeeded, st.Phase)
}

func TestSubmission_CancelFailsRun(t *testing.T) {
	hold := make(chan struct{})
	s, _, _ := newTestSolver(t, llm.MockResponse{Fragments: []string{"never"}, Hold: hold})
	s.UpdateProblemText("p")
	sub, _ := s.Begin()

	events := runAsync(s, sub)
	s.Cancel()
	drain(s, events)

	st := s.State()
	assert.False(t, st.Loading)
	assert.Equal(t, ErrorMessage, st.Error)
	assert.Empty(t, st.Solution)
}

func TestSelectTopic_SupersedesInFlightSubmission(t *testing.T) {
	hold := make(chan struct{})
	s, mock, _ := newTestSolver(t,
		llm.MockResponse{Fragments: []string{"ancien"}, Hold: hold},
		llm.MockResponse{Fragments: []string{"nouveau"}},
	)
	s.UpdateProblemText("p")
	sub, ok := s.Begin()
	require.True(t, ok)
	events := runAsync(s, sub)

	require.NoError(t, s.SelectTopic(topic.Complexes))

	st := s.State()
	assert.True(t, st.Loading, "topic change does not touch loading")
	assert.Empty(t, st.Solution)
	assert.Empty(t, st.Problem)

	// Late events of the old stream never reach the new view.
	assert.False(t, s.Apply(FragmentEvent{ID: sub.ID, Text: "late"}))
	assert.Empty(t, s.State().Solution)

	// Still one in flight: a new submission is refused until the old
	// stream terminates.
	s.UpdateProblemText("ignored while loading")
	assert.Empty(t, s.State().Problem)

	drain(s, events)

	st = s.State()
	assert.False(t, st.Loading)
	assert.Empty(t, st.Solution)
	assert.Empty(t, st.Error, "a superseded failure is not shown")
	assert.Equal(t, Idle, st.Phase)
	assert.Equal(t, topic.Complexes, st.Topic)

	s.UpdateProblemText("z = i")
	require.NoError(t, s.Submit(context.Background()))
	assert.Equal(t, "nouveau", s.State().Solution)
	assert.Equal(t, 2, mock.CallCount())
}

func TestSelectTopic_DuringSynchronousSubmit(t *testing.T) {
	s, _, _ := newTestSolver(t, llm.MockResponse{Fragments: []string{"A", "B", "C"}})
	s.UpdateProblemText("p")

	switched := false
	s.Subscribe(func(st State) {
		if !switched && st.Solution == "A" {
			switched = true
			_ = s.SelectTopic(topic.Analyse)
		}
	})

	err := s.Submit(context.Background())
	assert.NoError(t, err, "superseded submissions do not report failure")

	st := s.State()
	assert.Equal(t, topic.Analyse, st.Topic)
	assert.Empty(t, st.Solution)
	assert.Empty(t, st.Error)
	assert.False(t, st.Loading)
}

func TestApply_UnknownSubmissionIgnored(t *testing.T) {
	s, _, _ := newTestSolver(t)
	before := s.State()
	assert.False(t, s.Apply(FragmentEvent{ID: "nope", Text: "x"}))
	assert.False(t, s.Apply(DoneEvent{ID: "nope"}))
	assert.Equal(t, before, s.State())
}

func TestGenerationFailure(t *testing.T) {
	cause := errors.New("stream reset")
	err := error(&GenerationFailure{SubmissionID: "sub-9", Topic: topic.Analyse, Err: cause})

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "sub-9")
	assert.Contains(t, err.Error(), "Analyse 1")
}

func TestUnsubscribe(t *testing.T) {
	s, _, _ := newTestSolver(t)
	calls := 0
	unsubscribe := s.Subscribe(func(State) { calls++ })

	s.UpdateProblemText("a")
	unsubscribe()
	s.UpdateProblemText("b")

	assert.Equal(t, 1, calls)
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "submitting", Submitting.String())
	assert.Equal(t, "succeeded", Succeeded.String())
	assert.Equal(t, "failed", Failed.String())
	assert.Equal(t, "unknown", Phase(42).String())
}

func TestRunRespectsParentContext(t *testing.T) {
	hold := make(chan struct{})
	s, _, _ := newTestSolver(t, llm.MockResponse{Fragments: []string{"x"}, Hold: hold})
	s.UpdateProblemText("p")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := s.Submit(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, ErrorMessage, s.State().Error)
}
