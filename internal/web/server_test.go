package web

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/solveur/internal/llm"
	"github.com/abhisek/solveur/internal/solver"
	"github.com/abhisek/solveur/internal/topic"
)

type sseEvent struct {
	Name string
	Data string
}

func readEvents(t *testing.T, r io.Reader) []sseEvent {
	t.Helper()
	var (
		events []sseEvent
		cur    sseEvent
	)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := sc.Text()
		switch {
		case line == "":
			if cur.Name != "" {
				events = append(events, cur)
			}
			cur = sseEvent{}
		case strings.HasPrefix(line, "event: "):
			cur.Name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			cur.Data += strings.TrimPrefix(line, "data: ")
		}
	}
	require.NoError(t, sc.Err())
	return events
}

func newTestServer(t *testing.T, responses ...llm.MockResponse) (*httptest.Server, *llm.MockProvider) {
	t.Helper()
	mock := llm.NewMockProvider(responses...)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := httptest.NewServer(New(mock, WithLogger(logger)).Handler())
	t.Cleanup(srv.Close)
	return srv, mock
}

func postSolve(t *testing.T, url string, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url+"/api/solve", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestIndex(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	page := string(body)
	assert.Contains(t, page, "Maths Solver - Terminale S")
	assert.Contains(t, page, solver.SubmitLabel)
	for _, to := range topic.All() {
		assert.Contains(t, page, to.String())
	}
}

func TestIndexCarriesClientSideFailureHandling(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	page := string(body)

	// The page shows the fixed message itself when fetch fails or the
	// stream drops before the done event.
	assert.Contains(t, page, `data-error="Désolé, une erreur s&#39;est produite`)
	assert.Contains(t, page, "const errorMessage = form.dataset.error;")
	assert.Contains(t, page, `if (!finished || current.loading) fail();`)

	// Loading is shown before the request is sent so a second submit is ignored.
	assert.Less(t, strings.Index(page, "show(current);"), strings.Index(page, `fetch("/api/solve"`))
	assert.Contains(t, page, "if (controller === mine) controller = null;")
}

func TestIndexTopicQuery(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/?topic=trigonometrie")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), `<h2 id="solver-heading">Trigonométrie</h2>`)
}

func TestTopics(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/topics")
	require.NoError(t, err)
	defer resp.Body.Close()

	var got []topicJSON
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	require.Len(t, got, 5)
	assert.Equal(t, "Arithmétique", got[0].Name)
	assert.Equal(t, topic.Geometrie3D.Slug(), got[4].Slug)
}

func TestSolveStreamsStates(t *testing.T) {
	srv, mock := newTestServer(t, llm.MockResponse{
		Fragments: []string{"Soit ", "$z = 1 + 2i$", "."},
	})

	resp := postSolve(t, srv.URL, `{"topic":"Nombres Complexes","problem":"z^2 - 2z + 5 = 0"}`)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	events := readEvents(t, resp.Body)
	// loading, three fragments, final state, done
	require.Len(t, events, 6)

	var first StateEvent
	require.NoError(t, json.Unmarshal([]byte(events[0].Data), &first))
	assert.True(t, first.Loading)
	assert.Empty(t, first.Solution)

	var last StateEvent
	require.NoError(t, json.Unmarshal([]byte(events[4].Data), &last))
	assert.False(t, last.Loading)
	assert.Equal(t, "succeeded", last.Phase)
	assert.Equal(t, "Soit $z = 1 + 2i$.", last.Solution)
	assert.Contains(t, last.HTML, `<span class="math inline">$z = 1 + 2i$</span>`)

	assert.Equal(t, "done", events[5].Name)

	req, ok := mock.LastCall()
	require.True(t, ok)
	assert.Equal(t, solver.BuildPrompt(topic.Complexes, "z^2 - 2z + 5 = 0"), req.Messages[0].Content)
}

func TestSolveFailure(t *testing.T) {
	srv, _ := newTestServer(t, llm.MockResponse{
		Fragments: []string{"Début"},
		Err:       errors.New("upstream exploded"),
	})

	resp := postSolve(t, srv.URL, `{"topic":"Analyse 1","problem":"f(x) = x^2"}`)
	events := readEvents(t, resp.Body)
	require.NotEmpty(t, events)

	var final StateEvent
	require.NoError(t, json.Unmarshal([]byte(events[len(events)-2].Data), &final))
	assert.Equal(t, solver.ErrorMessage, final.Error)
	assert.Equal(t, "Début", final.Solution)
	assert.False(t, final.Loading)
	for _, ev := range events {
		assert.NotContains(t, ev.Data, "upstream exploded")
	}
}

func TestSolveEmptyProblem(t *testing.T) {
	srv, mock := newTestServer(t)

	resp := postSolve(t, srv.URL, `{"topic":"Arithmétique","problem":"   \n"}`)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, 0, mock.CallCount())
}

func TestSolveUnknownTopic(t *testing.T) {
	srv, mock := newTestServer(t)

	resp := postSolve(t, srv.URL, `{"topic":"Astrologie","problem":"x"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, 0, mock.CallCount())
}

func TestSolveBadJSON(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := postSolve(t, srv.URL, `{`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSolveClientDisconnectCancels(t *testing.T) {
	hold := make(chan struct{})
	defer close(hold)
	srv, _ := newTestServer(t, llm.MockResponse{Fragments: []string{"x"}, Hold: hold})

	ctx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, srv.URL+"/api/solve",
		strings.NewReader(`{"problem":"x"}`))
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	// The loading state arrives before the provider is released.
	line, err := bufio.NewReader(resp.Body).ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: state\n", line)

	cancel()
	// httptest.Server.Close waits for the handler; it returns only if the
	// held stream observed the cancellation.
}
