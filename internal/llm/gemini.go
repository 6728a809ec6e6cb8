package llm

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/http"

	"google.golang.org/genai"
)

// geminiModels maps friendly names to Gemini model IDs.
var geminiModels = map[string]string{
	"gemini-flash": "gemini-2.5-flash",
	"gemini-pro":   "gemini-2.5-pro",
}

// GeminiProvider implements Provider using the Google Gemini SDK.
type GeminiProvider struct {
	client *genai.Client
	model  string
}

// NewGeminiProvider creates a new Gemini provider.
func NewGeminiProvider(ctx context.Context, cfg GeminiConfig) (*GeminiProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create Gemini client: %w", err)
	}

	return &GeminiProvider{
		client: client,
		model:  resolveModel(cfg.Model, geminiModels),
	}, nil
}

func (p *GeminiProvider) Stream(ctx context.Context, req Request) iter.Seq2[Fragment, error] {
	config := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(req.MaxTokens),
	}

	if req.Temperature > 0 {
		temp := float32(req.Temperature)
		config.Temperature = &temp
	}

	if req.System != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.System}},
		}
	}

	contents := buildGeminiContents(req.Messages)

	return func(yield func(Fragment, error) bool) {
		for chunk, err := range p.client.Models.GenerateContentStream(ctx, p.model, contents, config) {
			if err != nil {
				yield(Fragment{}, mapGeminiError(err))
				return
			}

			if chunk.PromptFeedback != nil && chunk.PromptFeedback.BlockReason != "" {
				yield(Fragment{}, &ErrInvalidResponse{
					Err: fmt.Errorf("prompt blocked: %s", chunk.PromptFeedback.BlockReason),
				})
				return
			}

			if !yield(geminiFragment(chunk, p.model), nil) {
				return
			}

			if geminiTruncated(chunk) {
				yield(Fragment{}, &ErrMaxTokensExceeded{MaxTokens: req.MaxTokens})
				return
			}
		}
	}
}

func (p *GeminiProvider) ModelID() string {
	return p.model
}

func buildGeminiContents(msgs []Message) []*genai.Content {
	out := make([]*genai.Content, len(msgs))
	for i, m := range msgs {
		role := "user"
		if m.Role == RoleAssistant {
			role = "model"
		}
		out[i] = &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: m.Content}},
		}
	}
	return out
}

func geminiFragment(chunk *genai.GenerateContentResponse, fallbackModel string) Fragment {
	f := Fragment{
		Text:  chunk.Text(),
		Model: chunk.ModelVersion,
	}
	if f.Model == "" {
		f.Model = fallbackModel
	}
	if chunk.UsageMetadata != nil {
		f.Usage = &Usage{
			InputTokens:  int(chunk.UsageMetadata.PromptTokenCount),
			OutputTokens: int(chunk.UsageMetadata.CandidatesTokenCount),
			TotalTokens:  int(chunk.UsageMetadata.TotalTokenCount),
		}
	}
	return f
}

func geminiTruncated(chunk *genai.GenerateContentResponse) bool {
	return len(chunk.Candidates) > 0 &&
		chunk.Candidates[0].FinishReason == genai.FinishReasonMaxTokens
}

func mapGeminiError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var apiErr *genai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusTooManyRequests {
			return &ErrRateLimit{Err: err}
		}
	}
	return &ErrProviderUnavailable{Err: err}
}
