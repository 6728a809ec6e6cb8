package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"google.golang.org/genai"
)

func TestGeminiModelMapping(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"gemini-flash", "gemini-2.5-flash"},
		{"gemini-pro", "gemini-2.5-pro"},
		{"gemini-2.0-flash", "gemini-2.0-flash"}, // Pass-through
	}
	for _, tt := range tests {
		got := resolveModel(tt.input, geminiModels)
		if got != tt.expected {
			t.Errorf("resolveModel(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestBuildGeminiContents(t *testing.T) {
	contents := buildGeminiContents([]Message{
		{Role: RoleUser, Content: "question"},
		{Role: RoleAssistant, Content: "réponse"},
	})
	if len(contents) != 2 {
		t.Fatalf("expected 2 contents, got %d", len(contents))
	}
	if contents[0].Role != "user" || contents[1].Role != "model" {
		t.Errorf("roles = %q, %q", contents[0].Role, contents[1].Role)
	}
	if contents[1].Parts[0].Text != "réponse" {
		t.Errorf("text = %q", contents[1].Parts[0].Text)
	}
}

func TestGeminiFragment(t *testing.T) {
	chunk := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: "$$x^2$$"}}},
		}},
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{
			PromptTokenCount:     12,
			CandidatesTokenCount: 3,
			TotalTokenCount:      15,
		},
	}

	f := geminiFragment(chunk, "gemini-2.5-flash")
	if f.Text != "$$x^2$$" {
		t.Errorf("text = %q", f.Text)
	}
	if f.Model != "gemini-2.5-flash" {
		t.Errorf("model = %q, want fallback", f.Model)
	}
	if f.Usage == nil || f.Usage.TotalTokens != 15 {
		t.Errorf("usage = %+v", f.Usage)
	}
}

func TestGeminiTruncated(t *testing.T) {
	stop := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonStop}},
	}
	cut := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonMaxTokens}},
	}
	if geminiTruncated(stop) {
		t.Error("STOP should not be reported as truncated")
	}
	if !geminiTruncated(cut) {
		t.Error("MAX_TOKENS should be reported as truncated")
	}
	if geminiTruncated(&genai.GenerateContentResponse{}) {
		t.Error("chunk without candidates should not be truncated")
	}
}

func TestMapGeminiError(t *testing.T) {
	var rl *ErrRateLimit
	if err := mapGeminiError(&genai.APIError{Code: 429}); !errors.As(err, &rl) {
		t.Errorf("429: expected ErrRateLimit, got %T", err)
	}

	var unavail *ErrProviderUnavailable
	if err := mapGeminiError(&genai.APIError{Code: 503}); !errors.As(err, &unavail) {
		t.Errorf("503: expected ErrProviderUnavailable, got %T", err)
	}
	if err := mapGeminiError(fmt.Errorf("dial tcp: refused")); !errors.As(err, &unavail) {
		t.Errorf("network: expected ErrProviderUnavailable, got %T", err)
	}

	if err := mapGeminiError(context.Canceled); !errors.Is(err, context.Canceled) {
		t.Errorf("cancellation should pass through, got %v", err)
	}
}

func TestNewGeminiProvider_RequiresKey(t *testing.T) {
	if _, err := NewGeminiProvider(context.Background(), GeminiConfig{Model: "gemini-flash"}); err == nil {
		t.Fatal("expected error for empty API key")
	}
}
