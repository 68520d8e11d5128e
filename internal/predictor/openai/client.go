// Package openai calls an OpenAI-compatible chat completions API through
// the official openai-go SDK.
package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/bookscanapp/bookscan-server/internal/predictor"
	"github.com/bookscanapp/bookscan-server/internal/ratelimit"
)

const (
	providerName   = "openai"
	defaultBaseURL = "https://api.openai.com/v1/"
	defaultModel   = "gpt-4o-mini"
	defaultTimeout = 60 * time.Second
	maxTokens      = 600

	systemPrompt = "You are a careful literary assistant. Reply with a single JSON object and nothing else."
)

// Options configures the client.
type Options struct {
	APIKey      string
	Model       string
	BaseURL     string // any OpenAI-compatible endpoint, e.g. a local gateway
	Temperature float64
	HTTPClient  *http.Client
}

// Client is a rate-limited chat completions client.
type Client struct {
	sdk         openai.Client
	limiter     *ratelimit.KeyedRateLimiter
	baseURL     string
	model       string
	temperature float64
	logger      *slog.Logger
}

// New creates a new client.
func New(opts Options, logger *slog.Logger) *Client {
	baseURL := strings.TrimSpace(opts.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	if opts.Model == "" {
		opts.Model = defaultModel
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: defaultTimeout}
	}

	// The scoring engine owns retries.
	sdk := openai.NewClient(
		option.WithAPIKey(opts.APIKey),
		option.WithBaseURL(baseURL),
		option.WithHTTPClient(opts.HTTPClient),
		option.WithMaxRetries(0),
	)

	return &Client{
		sdk:         sdk,
		limiter:     ratelimit.New(predictor.DefaultRPS, predictor.DefaultBurst),
		baseURL:     baseURL,
		model:       opts.Model,
		temperature: opts.Temperature,
		logger:      logger,
	}
}

// Close releases resources held by the client.
func (c *Client) Close() {
	c.limiter.Stop()
}

// Generate sends prompt as the user message and returns the first choice.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if err := c.limiter.Wait(ctx, c.model); err != nil {
		return "", predictor.Wrap(providerName, c.model, 0, fmt.Errorf("rate limit wait: %w", err))
	}

	c.logger.Debug("openai request", "model", c.model, "prompt_bytes", len(prompt))

	completion, err := c.sdk.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(c.temperature),
		MaxTokens:   openai.Int(maxTokens),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	})
	if err != nil {
		return "", c.classify(ctx, err)
	}

	if len(completion.Choices) == 0 {
		return "", predictor.Wrap(providerName, c.model, http.StatusOK, predictor.ErrEmptyResponse)
	}
	msg := completion.Choices[0].Message
	if msg.Refusal != "" {
		return "", predictor.Wrap(providerName, c.model, http.StatusOK, fmt.Errorf("%w: %s", predictor.ErrBlocked, msg.Refusal))
	}
	if strings.TrimSpace(msg.Content) == "" {
		return "", predictor.Wrap(providerName, c.model, http.StatusOK, predictor.ErrEmptyResponse)
	}

	return msg.Content, nil
}

// classify maps an SDK error onto the shared sentinels.
func (c *Client) classify(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return predictor.Wrap(providerName, c.model, 0, fmt.Errorf("chat completion: %w", ctxErr))
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return predictor.Wrap(providerName, c.model, apiErr.StatusCode,
			predictor.CheckStatus(apiErr.StatusCode, []byte(apiErr.Message)))
	}
	return predictor.Wrap(providerName, c.model, 0, fmt.Errorf("chat completion: %w", err))
}
