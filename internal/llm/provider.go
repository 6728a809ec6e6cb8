package llm

import (
	"context"
	"iter"
	"strings"
)

// Provider is the core abstraction for LLM interaction.
// Consumers call Stream with a Request and receive the answer as an ordered
// sequence of text fragments.
type Provider interface {
	// Stream sends a prompt to the LLM and returns the response incrementally.
	// Fragments arrive in generation order and must be concatenated in full
	// to reconstruct the answer. A setup failure is yielded as the first
	// element; iteration ends after the first error. Breaking out of the
	// loop abandons the request.
	Stream(ctx context.Context, req Request) iter.Seq2[Fragment, error]

	// ModelID returns the model identifier this provider is configured to use.
	ModelID() string
}

// Request describes what to send to the LLM.
type Request struct {
	// System is the system instruction. Sets the LLM's role and output
	// conventions.
	System string

	// Messages is the conversation history. For a single problem this
	// contains one user message.
	Messages []Message

	// MaxTokens is the maximum number of tokens in the response.
	// Zero leaves the provider default.
	MaxTokens int

	// Temperature controls randomness. Range: 0.0 - 1.0.
	// Zero leaves the provider default.
	Temperature float64
}

// Message represents a single message in the conversation.
type Message struct {
	Role    Role
	Content string
}

// Role is the message sender role.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Fragment is one incremental piece of a streamed response.
type Fragment struct {
	// Text is the newly generated text. May be empty on bookkeeping chunks.
	Text string

	// Model is the model that served the request, when the chunk reports it.
	Model string

	// Usage is set on chunks that carry token counts. Later values
	// supersede earlier ones.
	Usage *Usage
}

// Response holds a fully drained stream.
type Response struct {
	// Content is the concatenation of every fragment, in arrival order.
	Content string

	// Usage reports token consumption for this request.
	Usage Usage

	// Model is the actual model that served the request.
	Model string
}

// Usage tracks token consumption for a single request.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// Collect drains a stream into a single Response. On failure the returned
// Response still holds the text received before the error.
func Collect(ctx context.Context, p Provider, req Request) (*Response, error) {
	var b strings.Builder
	resp := &Response{Model: p.ModelID()}

	for f, err := range p.Stream(ctx, req) {
		if err != nil {
			resp.Content = b.String()
			return resp, err
		}
		b.WriteString(f.Text)
		if f.Model != "" {
			resp.Model = f.Model
		}
		if f.Usage != nil {
			resp.Usage = *f.Usage
		}
	}

	resp.Content = b.String()
	return resp, nil
}
