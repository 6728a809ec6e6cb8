// Package solver holds the state machine behind the solving screen: topic
// selection, problem input, and the submit-and-stream lifecycle.
//
// A Solver is not safe for concurrent use. All methods must be called from
// the goroutine that owns it (the UI event loop); only Submission.Run may
// execute elsewhere, handing its events back through Apply.
package solver

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/abhisek/solveur/internal/llm"
	"github.com/abhisek/solveur/internal/markup"
	"github.com/abhisek/solveur/internal/topic"
)

// Solver owns one session's state.
type Solver struct {
	state    State
	provider llm.Provider
	logger   *slog.Logger

	purpose     string
	maxTokens   int
	temperature float64
	newID       func() string

	current    *Submission
	superseded *Submission

	observers map[int]func(State)
	nextObs   int
}

// Option configures a Solver.
type Option func(*Solver)

// WithLogger sets the logger used for failure diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(s *Solver) { s.logger = l }
}

// WithPurpose tags recorded LLM events ("tui", "cli", "web").
func WithPurpose(purpose string) Option {
	return func(s *Solver) { s.purpose = purpose }
}

// WithMaxTokens caps the response length. Zero keeps the provider default.
func WithMaxTokens(n int) Option {
	return func(s *Solver) { s.maxTokens = n }
}

// WithTemperature sets the sampling temperature. Zero keeps the provider
// default.
func WithTemperature(t float64) Option {
	return func(s *Solver) { s.temperature = t }
}

// WithTopic sets the initial topic. Unknown topics are ignored.
func WithTopic(t topic.Topic) Option {
	return func(s *Solver) {
		if t.Valid() {
			s.state.Topic = t
		}
	}
}

// New creates a Solver on the default topic with empty state.
func New(p llm.Provider, opts ...Option) *Solver {
	s := &Solver{
		state:     State{Topic: topic.Default(), Phase: Idle},
		provider:  p,
		logger:    slog.Default(),
		purpose:   "solve",
		newID:     uuid.NewString,
		observers: make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns a copy of the current state.
func (s *Solver) State() State {
	return s.state
}

// Provider returns the generation service the solver submits to.
func (s *Solver) Provider() llm.Provider {
	return s.provider
}

// Subscribe registers fn to be called synchronously after every state
// change. The returned function removes it.
func (s *Solver) Subscribe(fn func(State)) (unsubscribe func()) {
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	return func() { delete(s.observers, id) }
}

func (s *Solver) notify() {
	snapshot := s.state
	for _, fn := range s.observers {
		fn(snapshot)
	}
}

// SelectTopic switches topic and clears the problem, solution and error.
// Loading is left alone. A submission still in flight is cancelled and its
// remaining events are discarded.
func (s *Solver) SelectTopic(t topic.Topic) error {
	if !t.Valid() {
		return topic.ErrUnknownTopic
	}

	if s.current != nil {
		s.current.superseded = true
		s.current.Cancel()
		s.superseded = s.current
		s.current = nil
		s.logger.Debug("submission superseded by topic change",
			"submission", s.superseded.ID, "from", s.superseded.Topic, "to", t)
	}

	s.state.Topic = t
	s.state.Problem = ""
	s.state.Solution = ""
	s.state.Error = ""
	if !s.state.Loading {
		s.state.Phase = Idle
	}
	s.notify()
	return nil
}

// UpdateProblemText replaces the problem text. Ignored while loading.
func (s *Solver) UpdateProblemText(text string) {
	if s.state.Loading || s.state.Problem == text {
		return
	}
	s.state.Problem = text
	s.notify()
}

// Begin accepts a submission if the problem is non-blank and nothing is in
// flight. On acceptance the state moves to Submitting with the previous
// solution and error cleared.
func (s *Solver) Begin() (*Submission, bool) {
	if s.state.Loading || strings.TrimSpace(s.state.Problem) == "" {
		return nil, false
	}

	sub := &Submission{
		ID:      s.newID(),
		Topic:   s.state.Topic,
		Problem: s.state.Problem,
		purpose: s.purpose,
		logger:  s.logger,
		abort:   make(chan struct{}),
	}
	sub.Request = llm.Request{
		System:      SystemInstruction,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: sub.Prompt()}},
		MaxTokens:   s.maxTokens,
		Temperature: s.temperature,
	}
	s.current = sub

	s.state.Loading = true
	s.state.Solution = ""
	s.state.Error = ""
	s.state.Phase = Submitting
	s.notify()
	return sub, true
}

// Apply folds a stream event into the state. It reports whether the event
// belonged to a live submission; stale events are dropped.
func (s *Solver) Apply(ev Event) bool {
	if s.current == nil || ev.SubmissionID() != s.current.ID {
		s.applyStale(ev)
		return false
	}

	switch ev := ev.(type) {
	case FragmentEvent:
		s.state.Solution += ev.Text
	case DoneEvent:
		s.current = nil
		s.state.Loading = false
		s.state.Phase = Succeeded
	case FailedEvent:
		sub := s.current
		s.current = nil
		s.logger.Error("generation failed",
			"submission", sub.ID,
			"topic", sub.Topic,
			"received_chars", len(s.state.Solution),
			"error", ev.Err,
		)
		s.state.Loading = false
		s.state.Error = ErrorMessage
		s.state.Phase = Failed
	default:
		return false
	}
	s.notify()
	return true
}

// applyStale handles events from a superseded submission: only its terminal
// event matters, and it only releases the loading flag.
func (s *Solver) applyStale(ev Event) {
	if s.superseded == nil || ev.SubmissionID() != s.superseded.ID {
		return
	}
	switch ev.(type) {
	case DoneEvent, FailedEvent:
		s.superseded = nil
		if s.current == nil && s.state.Loading {
			s.state.Loading = false
			s.state.Phase = Idle
			s.notify()
		}
	}
}

// Submit runs a whole submission on the calling goroutine. A blank problem
// or a submission already in flight makes it a no-op returning nil. A
// failure is returned as *GenerationFailure after the state shows
// ErrorMessage; a submission superseded by a topic change returns nil.
func (s *Solver) Submit(ctx context.Context) error {
	sub, ok := s.Begin()
	if !ok {
		return nil
	}

	err := sub.Run(ctx, s.provider, func(ev Event) { s.Apply(ev) })
	if err == nil || sub.superseded {
		return nil
	}
	return &GenerationFailure{SubmissionID: sub.ID, Topic: sub.Topic, Err: err}
}

// Cancel aborts the submission in flight, if any. Its failure is applied
// like any other.
func (s *Solver) Cancel() {
	if s.current != nil {
		s.current.Cancel()
	}
}

// Render returns r's output for the current solution.
func (s *Solver) Render(r markup.Renderer) string {
	return r.Render(s.state.Solution)
}
