package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func collectTexts(t *testing.T, p Provider, req Request) ([]string, error) {
	t.Helper()
	var texts []string
	for f, err := range p.Stream(context.Background(), req) {
		if err != nil {
			return texts, err
		}
		texts = append(texts, f.Text)
	}
	return texts, nil
}

func TestMockProvider_StreamsCannedFragments(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Fragments: []string{"Soit ", "$x$"}, Usage: Usage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15}},
		MockResponse{Fragments: []string{"second"}},
	)

	texts, err := collectTexts(t, mock, Request{Messages: []Message{{Role: RoleUser, Content: "first"}}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Join(texts, "|") != "Soit |$x$" {
		t.Fatalf("unexpected fragments: %q", texts)
	}

	resp, err := Collect(context.Background(), mock, Request{Messages: []Message{{Role: RoleUser, Content: "second"}}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "second" {
		t.Fatalf("expected 'second', got %q", resp.Content)
	}
	if resp.Model != "mock" {
		t.Fatalf("expected model 'mock', got %q", resp.Model)
	}
}

func TestCollect_KeepsUsageFromLastFragment(t *testing.T) {
	mock := NewMockProvider(MockResponse{
		Fragments: []string{"a", "b"},
		Usage:     Usage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15},
	})

	resp, err := Collect(context.Background(), mock, Request{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Usage.InputTokens != 10 || resp.Usage.TotalTokens != 15 {
		t.Fatalf("unexpected usage: %+v", resp.Usage)
	}
}

func TestMockProvider_EmptyQueueReturnsError(t *testing.T) {
	mock := NewMockProvider()
	_, err := Collect(context.Background(), mock, Request{})
	if err == nil {
		t.Fatal("expected error from empty queue")
	}
	var unavail *ErrProviderUnavailable
	if !errors.As(err, &unavail) {
		t.Fatalf("expected ErrProviderUnavailable, got: %T", err)
	}
}

func TestMockProvider_RecordsCalls(t *testing.T) {
	mock := NewMockProvider(MockResponse{Fragments: []string{"ok"}})

	req := Request{
		System:   "sys",
		Messages: []Message{{Role: RoleUser, Content: "hello"}},
	}
	_, _ = Collect(context.Background(), mock, req)

	if mock.CallCount() != 1 {
		t.Fatalf("expected 1 call, got %d", mock.CallCount())
	}
	last, ok := mock.LastCall()
	if !ok || last.System != "sys" {
		t.Fatalf("expected system 'sys', got %q", last.System)
	}
}

func TestMockProvider_StreamIsLazy(t *testing.T) {
	mock := NewMockProvider(MockResponse{Fragments: []string{"ok"}})
	_ = mock.Stream(context.Background(), Request{})
	if mock.CallCount() != 0 {
		t.Fatalf("expected no call before iteration, got %d", mock.CallCount())
	}
}

func TestMockProvider_MidStreamError(t *testing.T) {
	mock := NewMockProvider(MockResponse{
		Fragments: []string{"début ", "de solution"},
		Err:       &ErrProviderUnavailable{},
	})

	resp, err := Collect(context.Background(), mock, Request{})
	var unavail *ErrProviderUnavailable
	if !errors.As(err, &unavail) {
		t.Fatalf("expected ErrProviderUnavailable, got: %T", err)
	}
	if resp.Content != "début de solution" {
		t.Fatalf("partial content lost: %q", resp.Content)
	}
}

func TestMockProvider_SetupError(t *testing.T) {
	mock := NewMockProvider(MockResponse{Err: &ErrRateLimit{RetryAfter: 0}})

	texts, err := collectTexts(t, mock, Request{})
	var rl *ErrRateLimit
	if !errors.As(err, &rl) {
		t.Fatalf("expected ErrRateLimit, got: %T", err)
	}
	if len(texts) != 0 {
		t.Fatalf("expected no fragments, got %q", texts)
	}
}

func TestMockProvider_HoldRespectsCancellation(t *testing.T) {
	hold := make(chan struct{})
	mock := NewMockProvider(MockResponse{Fragments: []string{"never"}, Hold: hold})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Collect(ctx, mock, Request{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestMockProvider_HoldReleases(t *testing.T) {
	hold := make(chan struct{})
	mock := NewMockProvider(MockResponse{Fragments: []string{"after"}, Hold: hold})

	done := make(chan *Response, 1)
	go func() {
		resp, _ := Collect(context.Background(), mock, Request{})
		done <- resp
	}()

	close(hold)
	if resp := <-done; resp.Content != "after" {
		t.Fatalf("expected 'after', got %q", resp.Content)
	}
}

func TestErrorTypes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		msg  string
	}{
		{"rate limit", &ErrRateLimit{}, "rate limited"},
		{"invalid response", &ErrInvalidResponse{Err: errors.New("bad")}, "invalid LLM response: bad"},
		{"unavailable", &ErrProviderUnavailable{}, "LLM provider unavailable"},
		{"max tokens", &ErrMaxTokensExceeded{MaxTokens: 100}, "LLM response truncated: max tokens (100) exceeded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !strings.HasPrefix(tt.err.Error(), tt.msg) {
				t.Fatalf("Error() = %q, want prefix %q", tt.err.Error(), tt.msg)
			}
		})
	}
}

func TestPurposeContext(t *testing.T) {
	ctx := context.Background()
	if got := PurposeFrom(ctx); got != "unknown" {
		t.Fatalf("expected 'unknown', got %q", got)
	}
	ctx = WithPurpose(ctx, "solve")
	if got := PurposeFrom(ctx); got != "solve" {
		t.Fatalf("expected 'solve', got %q", got)
	}
}

func TestRequestIDContext(t *testing.T) {
	ctx := context.Background()
	if got := RequestIDFrom(ctx); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
	ctx = WithRequestID(ctx, "sub-1")
	if got := RequestIDFrom(ctx); got != "sub-1" {
		t.Fatalf("expected 'sub-1', got %q", got)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"gemini with key", Config{Provider: "gemini", Gemini: GeminiConfig{APIKey: "k"}}, false},
		{"gemini no key", Config{Provider: "gemini"}, true},
		{"anthropic with key", Config{Provider: "anthropic", Anthropic: AnthropicConfig{APIKey: "k"}}, false},
		{"anthropic no key", Config{Provider: "anthropic"}, true},
		{"openai with key", Config{Provider: "openai", OpenAI: OpenAIConfig{APIKey: "k"}}, false},
		{"openrouter no key", Config{Provider: "openrouter"}, true},
		{"mock", Config{Provider: "mock"}, false},
		{"unknown", Config{Provider: "unknown"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func clearKeyEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"SOLVEUR_LLM_PROVIDER", "SOLVEUR_GEMINI_API_KEY", "SOLVEUR_GEMINI_MODEL",
		"SOLVEUR_ANTHROPIC_API_KEY", "SOLVEUR_ANTHROPIC_MODEL",
		"SOLVEUR_OPENAI_API_KEY", "SOLVEUR_OPENAI_MODEL", "SOLVEUR_OPENAI_BASE_URL",
		"SOLVEUR_OPENROUTER_API_KEY", "SOLVEUR_OPENROUTER_MODEL",
		"GEMINI_API_KEY", "API_KEY", "OPENAI_API_KEY", "ANTHROPIC_API_KEY", "OPENROUTER_API_KEY",
	} {
		t.Setenv(k, "")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Provider != "gemini" {
		t.Fatalf("expected default provider 'gemini', got %q", cfg.Provider)
	}
	if cfg.Gemini.Model != "gemini-flash" {
		t.Fatalf("expected default model 'gemini-flash', got %q", cfg.Gemini.Model)
	}
}

func TestConfigFromEnv(t *testing.T) {
	clearKeyEnv(t)
	t.Setenv("SOLVEUR_LLM_PROVIDER", "openai")
	t.Setenv("SOLVEUR_OPENAI_API_KEY", "sk-test")
	t.Setenv("SOLVEUR_OPENAI_MODEL", "gpt-4o")

	cfg := ConfigFromEnv(DefaultConfig())
	if cfg.Provider != "openai" {
		t.Fatalf("provider = %q", cfg.Provider)
	}
	if cfg.OpenAI.APIKey != "sk-test" || cfg.OpenAI.Model != "gpt-4o" {
		t.Fatalf("openai section = %+v", cfg.OpenAI)
	}
	if cfg.Gemini.Model != "gemini-flash" {
		t.Fatalf("unrelated default overwritten: %q", cfg.Gemini.Model)
	}
}

func TestDiscoverKeys(t *testing.T) {
	t.Run("API_KEY feeds gemini", func(t *testing.T) {
		clearKeyEnv(t)
		t.Setenv("API_KEY", "g-key")

		cfg := DiscoverKeys(DefaultConfig(), false)
		if cfg.Provider != "gemini" || cfg.Gemini.APIKey != "g-key" {
			t.Fatalf("unexpected config: provider=%q key=%q", cfg.Provider, cfg.Gemini.APIKey)
		}
	})

	t.Run("switches to provider with a key", func(t *testing.T) {
		clearKeyEnv(t)
		t.Setenv("ANTHROPIC_API_KEY", "a-key")

		cfg := DiscoverKeys(DefaultConfig(), false)
		if cfg.Provider != "anthropic" {
			t.Fatalf("expected anthropic, got %q", cfg.Provider)
		}
	})

	t.Run("explicit provider is kept", func(t *testing.T) {
		clearKeyEnv(t)
		t.Setenv("ANTHROPIC_API_KEY", "a-key")

		cfg := DiscoverKeys(DefaultConfig(), true)
		if cfg.Provider != "gemini" {
			t.Fatalf("expected gemini to be kept, got %q", cfg.Provider)
		}
	})
}

func TestConfigSetModel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Provider = "anthropic"
	cfg.SetModel("claude-sonnet")
	if cfg.Anthropic.Model != "claude-sonnet" {
		t.Fatalf("expected anthropic model set, got %q", cfg.Anthropic.Model)
	}
	if cfg.Gemini.Model != "gemini-flash" {
		t.Fatalf("gemini model should be untouched, got %q", cfg.Gemini.Model)
	}
}

func TestNewProvider_Mock(t *testing.T) {
	p, err := NewProvider(context.Background(), Config{Provider: "mock"}, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ModelID() != "mock" {
		t.Fatalf("expected model 'mock', got %q", p.ModelID())
	}
	if _, ok := p.(*LoggingProvider); !ok {
		t.Fatalf("expected logging wrapper, got %T", p)
	}
}

func TestNewProvider_MissingKey(t *testing.T) {
	if _, err := NewProvider(context.Background(), Config{Provider: "openai"}, nil, nil); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLookupCost(t *testing.T) {
	if c := LookupCost("gemini-2.5-flash"); c == nil {
		t.Fatal("expected pricing for gemini-2.5-flash")
	}
	if c := LookupCost("google/gemini-2.5-flash"); c == nil {
		t.Fatal("expected vendor-prefixed lookup to fall back")
	}
	if c := LookupCost("no-such-model"); c != nil {
		t.Fatalf("expected nil for unknown model, got %+v", c)
	}
}
