package llm

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"time"

	"github.com/abhisek/solveur/internal/store"
)

// errAbandoned marks a stream whose consumer stopped iterating early.
var errAbandoned = errors.New("stream abandoned by caller")

// LoggingProvider is a decorator that records every LLM stream as an event.
type LoggingProvider struct {
	inner     Provider
	name      string
	eventRepo store.EventRepo
	logger    *slog.Logger
}

// WithLogging wraps a Provider with event logging. name identifies the
// provider family ("gemini", "openai", ...) in recorded events.
func WithLogging(p Provider, name string, repo store.EventRepo, logger *slog.Logger) Provider {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingProvider{inner: p, name: name, eventRepo: repo, logger: logger}
}

func (l *LoggingProvider) Stream(ctx context.Context, req Request) iter.Seq2[Fragment, error] {
	return func(yield func(Fragment, error) bool) {
		start := time.Now()

		var (
			content   strings.Builder
			usage     Usage
			model     = l.inner.ModelID()
			streamErr error
		)

		for f, err := range l.inner.Stream(ctx, req) {
			if err != nil {
				streamErr = err
				yield(Fragment{}, err)
				break
			}
			content.WriteString(f.Text)
			if f.Model != "" {
				model = f.Model
			}
			if f.Usage != nil {
				usage = *f.Usage
			}
			if !yield(f, nil) {
				streamErr = errAbandoned
				break
			}
		}

		l.record(ctx, req, store.LLMRequestEventData{
			RequestID:    RequestIDFrom(ctx),
			Provider:     l.name,
			Model:        model,
			Purpose:      PurposeFrom(ctx),
			InputTokens:  usage.InputTokens,
			OutputTokens: usage.OutputTokens,
			LatencyMs:    time.Since(start).Milliseconds(),
			Success:      streamErr == nil,
			ResponseBody: content.String(),
		}, streamErr)
	}
}

func (l *LoggingProvider) ModelID() string {
	return l.inner.ModelID()
}

func (l *LoggingProvider) record(ctx context.Context, req Request, data store.LLMRequestEventData, streamErr error) {
	data.RequestBody = serializeRequest(req)
	if streamErr != nil {
		data.ErrorMessage = streamErr.Error()
	}

	l.logger.Debug("llm stream finished",
		"request_id", data.RequestID,
		"provider", data.Provider,
		"model", data.Model,
		"purpose", data.Purpose,
		"latency_ms", data.LatencyMs,
		"output_tokens", data.OutputTokens,
		"success", data.Success,
	)

	if l.eventRepo == nil {
		return
	}

	// The request context may already be cancelled (superseded submission);
	// the event is still worth keeping.
	if err := l.eventRepo.AppendLLMRequest(context.WithoutCancel(ctx), data); err != nil {
		l.logger.Warn("failed to record LLM request event", "error", err)
	}
}

// serializeRequest builds a readable representation of the LLM request.
func serializeRequest(req Request) string {
	var b strings.Builder

	if req.System != "" {
		b.WriteString("[system]\n")
		b.WriteString(req.System)
		b.WriteString("\n\n")
	}

	for _, m := range req.Messages {
		b.WriteString(fmt.Sprintf("[%s]\n", m.Role))
		b.WriteString(m.Content)
		b.WriteString("\n\n")
	}

	if req.MaxTokens > 0 || req.Temperature > 0 {
		b.WriteString(fmt.Sprintf("[params] max_tokens=%d temperature=%.2f\n", req.MaxTokens, req.Temperature))
	}

	return b.String()
}
