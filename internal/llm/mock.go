package llm

import (
	"context"
	"iter"
	"sync"
)

// MockResponse is a canned streamed response for the MockProvider.
type MockResponse struct {
	// Fragments are yielded in order.
	Fragments []string

	// Usage is attached to the last fragment.
	Usage Usage

	// Err, when set, is yielded after Fragments. With no Fragments it
	// behaves as a setup failure; otherwise as a mid-stream failure.
	Err error

	// Hold, when set, is waited on before the first fragment. Tests use it
	// to keep a stream in flight.
	Hold <-chan struct{}
}

// MockProvider is a deterministic Provider for testing.
// It returns canned responses in FIFO order and records all requests.
type MockProvider struct {
	mu        sync.Mutex
	responses []MockResponse
	Calls     []Request
}

// NewMockProvider creates a MockProvider with the given canned responses.
func NewMockProvider(responses ...MockResponse) *MockProvider {
	return &MockProvider{responses: responses}
}

// Stream yields the next canned response, or ErrProviderUnavailable if the
// queue is empty. The call is recorded when the stream is first iterated.
func (m *MockProvider) Stream(ctx context.Context, req Request) iter.Seq2[Fragment, error] {
	return func(yield func(Fragment, error) bool) {
		resp, ok := m.next(req)
		if !ok {
			yield(Fragment{}, &ErrProviderUnavailable{Err: nil})
			return
		}

		if resp.Hold != nil {
			select {
			case <-resp.Hold:
			case <-ctx.Done():
				yield(Fragment{}, ctx.Err())
				return
			}
		}

		for i, text := range resp.Fragments {
			if err := ctx.Err(); err != nil {
				yield(Fragment{}, err)
				return
			}
			f := Fragment{Text: text, Model: "mock"}
			if i == len(resp.Fragments)-1 && resp.Usage != (Usage{}) {
				usage := resp.Usage
				f.Usage = &usage
			}
			if !yield(f, nil) {
				return
			}
		}

		if resp.Err != nil {
			yield(Fragment{}, resp.Err)
		}
	}
}

func (m *MockProvider) next(req Request) (MockResponse, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, req)

	if len(m.responses) == 0 {
		return MockResponse{}, false
	}
	resp := m.responses[0]
	m.responses = m.responses[1:]
	return resp, true
}

// ModelID returns "mock".
func (m *MockProvider) ModelID() string {
	return "mock"
}

// AddResponse appends a canned response to the queue.
func (m *MockProvider) AddResponse(resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, resp)
}

// CallCount returns the number of streams started.
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// LastCall returns the most recent request, if any.
func (m *MockProvider) LastCall() (Request, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Calls) == 0 {
		return Request{}, false
	}
	return m.Calls[len(m.Calls)-1], true
}
