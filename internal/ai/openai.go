package ai

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/oauth2"

	"github.com/sakif/meal-planner/internal/apperror"
)

// PlaceholderAPIKey is the value shipped in sample .env files; it counts as unset.
const PlaceholderAPIKey = "your_openai_api_key_here"

const (
	DefaultModel       = "gpt-4o-mini"
	DefaultTemperature = float32(0.7)
)

// OpenAIConfig configures the chat-completions provider.
type OpenAIConfig struct {
	APIKey      string
	Model       string
	BaseURL     string   // empty = api.openai.com
	Temperature *float32 // nil = DefaultTemperature; 0 is a valid deterministic setting
	Timeout     time.Duration
}

// OpenAIProvider calls an OpenAI-compatible chat-completions endpoint and
// asks for a JSON object response.
type OpenAIProvider struct {
	client      *openai.Client // nil when no usable key is configured
	model       string
	temperature float32
	logger      *slog.Logger
}

// NewOpenAIProvider builds a provider. A missing or placeholder key is not
// an error here: the server still starts, and every Complete call reports
// apperror.ErrProviderMisconfigured instead.
func NewOpenAIProvider(cfg OpenAIConfig, logger *slog.Logger) *OpenAIProvider {
	p := &OpenAIProvider{
		model:       cfg.Model,
		temperature: DefaultTemperature,
		logger:      logger,
	}
	if p.model == "" {
		p.model = DefaultModel
	}
	if cfg.Temperature != nil {
		p.temperature = *cfg.Temperature
	}

	if !KeyConfigured(cfg.APIKey) {
		logger.Warn("OPENAI_API_KEY is not set; meal plan generation will fail until it is configured")
		return p
	}

	// The bearer credential is attached by the oauth2 transport.
	httpClient := oauth2.NewClient(context.Background(), oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: cfg.APIKey,
		TokenType:   "Bearer",
	}))
	httpClient.Timeout = cfg.Timeout

	oc := openai.DefaultConfig("")
	oc.HTTPClient = httpClient
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	p.client = openai.NewClientWithConfig(oc)
	return p
}

// wireTemperature maps 0 to the smallest positive float32. The request
// struct drops a zero temperature as omitempty, and the API would then apply
// its own default of 1.
func wireTemperature(t float32) float32 {
	if t == 0 {
		return math.SmallestNonzeroFloat32
	}
	return t
}

// KeyConfigured reports whether key looks like a real credential.
func KeyConfigured(key string) bool {
	key = strings.TrimSpace(key)
	return key != "" && key != PlaceholderAPIKey
}

// Complete sends one system+user exchange and returns the first choice's content.
func (p *OpenAIProvider) Complete(ctx context.Context, system, user string) (string, error) {
	if p.client == nil {
		return "", apperror.ProviderMisconfigured("OPENAI_API_KEY is not set. Add your OpenAI API key to the server environment")
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: wireTemperature(p.temperature),
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			p.logger.Error("openai api error",
				"status", apiErr.HTTPStatusCode,
				"type", apiErr.Type,
				"message", apiErr.Message,
			)
		}
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}
