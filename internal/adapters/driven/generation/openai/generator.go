// Package openai provides a text generation adapter using the OpenAI API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/zukiwong/mirrornote-prompt/internal/core/domain"
	"github.com/zukiwong/mirrornote-prompt/internal/core/ports/driven"
)

// Ensure Generator implements the interface.
var _ driven.TextGenerator = (*Generator)(nil)

// Default configuration values.
const (
	DefaultModel     = "gpt-4o-mini"
	DefaultMaxTokens = 800
	DefaultTimeout   = 60 * time.Second

	// Client-side ceiling on outbound requests. The journaling flow is one
	// request per saved entry, so a low rate is plenty.
	defaultRateLimit = rate.Limit(1)
	defaultBurst     = 3
)

// Config holds configuration for the OpenAI generator.
type Config struct {
	// APIKey is the OpenAI API key (required).
	APIKey string

	// BaseURL overrides the API base URL, e.g. for compatible APIs.
	BaseURL string

	// Model is the model to use (default: gpt-4o-mini).
	Model string

	// MaxTokens caps the reply length (default: 800).
	MaxTokens int

	// Timeout is the request timeout (default: 60s).
	Timeout time.Duration
}

// Generator produces journal replies through the OpenAI chat API. A
// client-side rate limiter keeps bursts of rapid saves from tripping the
// provider's limits.
type Generator struct {
	client    *openai.Client
	model     string
	maxTokens int
	limiter   *rate.Limiter
}

// NewGenerator creates an OpenAI generator.
func NewGenerator(cfg Config) (*Generator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &Generator{
		client:    openai.NewClientWithConfig(clientCfg),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		limiter:   rate.NewLimiter(defaultRateLimit, defaultBurst),
	}, nil
}

// Generate produces a reply for the prompt. On a truncated completion the
// partial text is returned alongside domain.ErrResponseTruncated.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", err
	}

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     g.model,
		MaxTokens: g.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
			return "", fmt.Errorf("%w: %v", domain.ErrGenerationRateLimited, err)
		}
		return "", fmt.Errorf("openai generate: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai generate: no choices returned")
	}

	choice := resp.Choices[0]
	switch choice.FinishReason {
	case openai.FinishReasonContentFilter:
		return "", domain.ErrContentFiltered
	case openai.FinishReasonLength:
		return choice.Message.Content, domain.ErrResponseTruncated
	}
	return choice.Message.Content, nil
}

// ModelName returns the model in use.
func (g *Generator) ModelName() string {
	return g.model
}
