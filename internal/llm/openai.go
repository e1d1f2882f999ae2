package llm

import (
	"context"
	"fmt"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"golang.org/x/time/rate"
)

// OpenAIClient implements Completer using the official openai-go SDK
// (chat completions). A token-bucket limiter throttles outbound calls so a
// wide fan-out cannot exceed the configured request rate.
type OpenAIClient struct {
	model   string
	opts    []option.RequestOption
	limiter *rate.Limiter
}

// NewOpenAIClient validates settings and builds the client.
func NewOpenAIClient(cfg Settings) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: api key missing", ErrNotConfigured)
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("%w: model missing", ErrNotConfigured)
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	rps := cfg.RequestsPS
	if rps <= 0 {
		rps = 2
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}

	return &OpenAIClient{
		model:   cfg.Model,
		opts:    opts,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}, nil
}

// Complete submits one block of text and returns the single textual response.
func (c *OpenAIClient) Complete(ctx context.Context, prompt Prompt) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("llm: rate limiter: %w", err)
	}

	client := openai.NewClient(c.opts...)

	msgs := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(prompt.System),
		openai.UserMessage(prompt.User),
	}

	resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.model),
		Messages: msgs,
	})
	if err != nil {
		return "", fmt.Errorf("llm: completion request: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}

// Model returns the configured model identifier.
func (c *OpenAIClient) Model() string { return c.model }
