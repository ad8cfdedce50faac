package services

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"github.com/LovationAdmin/travel-planner-api/utils"
)

// ============================================================================
// GEMINI SERVICE - language model behind the research and itinerary agents
// ============================================================================

// LLMResponse carries the generated text and its estimated cost in dollars.
type LLMResponse struct {
	Text         string
	InputTokens  int
	OutputTokens int
	Cost         float64
}

// LLMProvider is implemented by the language model client the agents use.
type LLMProvider interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (LLMResponse, error)
}

// Pricing for gemini-2.5-flash (per token).
const (
	GeminiInputTokenPrice  = 0.0000003
	GeminiOutputTokenPrice = 0.0000025
)

type GeminiService struct {
	client      *genai.Client
	model       string
	temperature float32
	log         zerolog.Logger
}

type GeminiOptions struct {
	APIKey      string
	Model       string
	Temperature float32
	// BaseURL overrides the Gemini API endpoint.
	BaseURL string
	Logger  zerolog.Logger
}

// NewGeminiService creates a Gemini API client with an explicit key.
func NewGeminiService(ctx context.Context, opts GeminiOptions) (*GeminiService, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("gemini: API key is missing")
	}
	if opts.Model == "" {
		opts.Model = "gemini-2.5-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      opts.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: opts.BaseURL},
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create genai client")
	}
	return &GeminiService{
		client:      client,
		model:       opts.Model,
		temperature: opts.Temperature,
		log:         opts.Logger,
	}, nil
}

func (s *GeminiService) Generate(ctx context.Context, systemPrompt, userPrompt string) (LLMResponse, error) {
	genConfig := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(s.temperature),
	}
	if systemPrompt != "" {
		genConfig.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}

	resp, err := s.client.Models.GenerateContent(ctx, s.model, genai.Text(userPrompt), genConfig)
	if err != nil {
		return LLMResponse{}, &UpstreamError{
			Service: "gemini",
			Message: utils.MaskString(err.Error()),
			Err:     err,
		}
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return LLMResponse{}, &UpstreamError{Service: "gemini", Message: "empty response from model"}
	}

	out := LLMResponse{Text: text}
	if usage := resp.UsageMetadata; usage != nil {
		out.InputTokens = int(usage.PromptTokenCount)
		out.OutputTokens = int(usage.CandidatesTokenCount)
	}
	out.Cost = EstimateGeminiCost(out.InputTokens, out.OutputTokens)

	s.log.Info().
		Str("model", s.model).
		Int("input_tokens", out.InputTokens).
		Int("output_tokens", out.OutputTokens).
		Float64("cost_usd", out.Cost).
		Msg("[Gemini] generation complete")

	return out, nil
}

func EstimateGeminiCost(inputTokens, outputTokens int) float64 {
	return float64(inputTokens)*GeminiInputTokenPrice + float64(outputTokens)*GeminiOutputTokenPrice
}

// cleanModelText strips reasoning blocks and a wrapping Markdown fence.
func cleanModelText(raw string) string {
	s := strings.TrimSpace(raw)

	for {
		start := strings.Index(s, "<think>")
		if start == -1 {
			break
		}
		end := strings.Index(s[start:], "</think>")
		if end == -1 {
			s = s[:start]
			break
		}
		s = s[:start] + s[start+end+len("</think>"):]
	}
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		}
		s = strings.TrimSpace(s)
		s = strings.TrimSuffix(s, "```")
	}

	return strings.TrimSpace(s)
}
