// Package web serves the solver as a single browser page backed by a
// streaming JSON endpoint.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/abhisek/solveur/internal/llm"
	"github.com/abhisek/solveur/internal/markup"
	"github.com/abhisek/solveur/internal/solver"
	"github.com/abhisek/solveur/internal/topic"
	"github.com/abhisek/solveur/internal/ui/layout"
)

//go:embed templates/index.html
var templateFS embed.FS

var indexTmpl = template.Must(template.ParseFS(templateFS, "templates/index.html"))

// Server hosts the web UI.
type Server struct {
	provider     llm.Provider
	logger       *slog.Logger
	defaultTopic topic.Topic
	maxTokens    int
	temperature  float64
	mux          *http.ServeMux
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithTopic sets the topic selected when the page loads.
func WithTopic(t topic.Topic) Option {
	return func(s *Server) {
		if t.Valid() {
			s.defaultTopic = t
		}
	}
}

// WithMaxTokens caps the length of each generated solution.
func WithMaxTokens(n int) Option {
	return func(s *Server) { s.maxTokens = n }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(s *Server) { s.temperature = t }
}

// New creates a Server that generates solutions with p.
func New(p llm.Provider, opts ...Option) *Server {
	s := &Server{
		provider:     p,
		logger:       slog.Default(),
		defaultTopic: topic.Default(),
		mux:          http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("GET /api/topics", s.handleTopics)
	s.mux.HandleFunc("POST /api/solve", s.handleSolve)
	return s
}

// Handler returns the HTTP handler for all routes.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("web server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

type indexData struct {
	AppName     string
	Topics      []topic.Topic
	Selected    topic.Topic
	Placeholder string
	SubmitLabel string
	BusyLabel   string

	// ErrorMessage is shown by the page itself when the stream breaks.
	ErrorMessage string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	selected := s.defaultTopic
	if q := r.URL.Query().Get("topic"); q != "" {
		if t, err := topic.Parse(q); err == nil {
			selected = t
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := indexTmpl.Execute(w, indexData{
		AppName:     layout.AppName,
		Topics:      topic.All(),
		Selected:    selected,
		Placeholder: solver.Placeholder,
		SubmitLabel: solver.SubmitLabel,
		BusyLabel:   solver.BusyLabel,

		ErrorMessage: solver.ErrorMessage,
	})
	if err != nil {
		s.logger.Error("render index", "error", err)
	}
}

type topicJSON struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

func (s *Server) handleTopics(w http.ResponseWriter, r *http.Request) {
	out := make([]topicJSON, 0, len(topic.All()))
	for _, t := range topic.All() {
		out = append(out, topicJSON{Name: t.String(), Slug: t.Slug()})
	}
	writeJSON(w, http.StatusOK, out)
}

// SolveRequest is the body of POST /api/solve.
type SolveRequest struct {
	Topic   string `json:"topic"`
	Problem string `json:"problem"`
}

// StateEvent is the payload of every "state" event on the solve stream.
type StateEvent struct {
	Solution string `json:"solution"`
	HTML     string `json:"html"`
	Loading  bool   `json:"loading"`
	Error    string `json:"error,omitempty"`
	Phase    string `json:"phase"`
}

func (s *Server) handleSolve(w http.ResponseWriter, r *http.Request) {
	var req SolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}

	t := s.defaultTopic
	if req.Topic != "" {
		parsed, err := topic.Parse(req.Topic)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		t = parsed
	}

	if strings.TrimSpace(req.Problem) == "" {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	opts := []solver.Option{solver.WithTopic(t), solver.WithLogger(s.logger), solver.WithPurpose("web")}
	if s.maxTokens > 0 {
		opts = append(opts, solver.WithMaxTokens(s.maxTokens))
	}
	if s.temperature > 0 {
		opts = append(opts, solver.WithTemperature(s.temperature))
	}
	sv := solver.New(s.provider, opts...)
	sv.UpdateProblemText(req.Problem)

	var html markup.HTML
	sv.Subscribe(func(st solver.State) {
		writeEvent(w, "state", StateEvent{
			Solution: st.Solution,
			HTML:     sv.Render(html),
			Loading:  st.Loading,
			Error:    st.Error,
			Phase:    st.Phase.String(),
		})
		flusher.Flush()
	})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// Failures are already logged by the solver and shown in the last state
	// event.
	_ = sv.Submit(r.Context())

	if r.Context().Err() != nil {
		s.logger.Info("client disconnected", "topic", t)
		return
	}
	writeEvent(w, "done", struct {
		Phase string `json:"phase"`
	}{Phase: sv.State().Phase.String()})
	flusher.Flush()
}

func writeEvent(w http.ResponseWriter, name string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
