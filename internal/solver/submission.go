package solver

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/abhisek/solveur/internal/llm"
	"github.com/abhisek/solveur/internal/topic"
)

// Event is a stream event tagged with the submission it belongs to.
type Event interface {
	SubmissionID() string
}

// FragmentEvent carries one piece of streamed text.
type FragmentEvent struct {
	ID   string
	Text string
}

// DoneEvent reports that the stream ended normally.
type DoneEvent struct {
	ID string
}

// FailedEvent reports that the stream failed. Err is never shown to the user.
type FailedEvent struct {
	ID  string
	Err error
}

func (e FragmentEvent) SubmissionID() string { return e.ID }
func (e DoneEvent) SubmissionID() string     { return e.ID }
func (e FailedEvent) SubmissionID() string   { return e.ID }

// Submission is one accepted request. It is created by Solver.Begin and
// driven by Run, which may execute on any goroutine.
type Submission struct {
	ID      string
	Topic   topic.Topic
	Problem string
	Request llm.Request

	purpose    string
	logger     *slog.Logger
	abort      chan struct{}
	abortOnce  sync.Once
	superseded bool // owned by the Solver's goroutine
}

// Prompt returns the user prompt sent for this submission.
func (s *Submission) Prompt() string {
	return BuildPrompt(s.Topic, s.Problem)
}

func (s *Submission) log() *slog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return slog.Default()
}

// Cancel aborts Run. Safe to call from any goroutine, more than once.
func (s *Submission) Cancel() {
	s.abortOnce.Do(func() { close(s.abort) })
}

// Run streams the solution from p and hands each event to emit, in order:
// zero or more FragmentEvents, then exactly one DoneEvent or FailedEvent.
// It returns the failure cause, or nil on normal completion. A stream cut
// off at the token limit still completes; the text received so far is the
// solution.
func (s *Submission) Run(ctx context.Context, p llm.Provider, emit func(Event)) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-s.abort:
			cancel()
		case <-stop:
		}
	}()

	ctx = llm.WithRequestID(llm.WithPurpose(ctx, s.purpose), s.ID)

	for f, err := range p.Stream(ctx, s.Request) {
		var truncated *llm.ErrMaxTokensExceeded
		if errors.As(err, &truncated) {
			s.log().Warn("solution truncated at token limit",
				"submission_id", s.ID,
				"max_tokens", truncated.MaxTokens,
			)
			break
		}
		if err != nil {
			emit(FailedEvent{ID: s.ID, Err: err})
			return err
		}
		if f.Text == "" {
			continue
		}
		emit(FragmentEvent{ID: s.ID, Text: f.Text})
	}

	if err := ctx.Err(); err != nil {
		emit(FailedEvent{ID: s.ID, Err: err})
		return err
	}

	emit(DoneEvent{ID: s.ID})
	return nil
}
