// Package gemini calls Google's Gemini generateContent API through the
// google.golang.org/genai SDK.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/bookscanapp/bookscan-server/internal/predictor"
	"github.com/bookscanapp/bookscan-server/internal/ratelimit"
)

const (
	providerName = "gemini"
	defaultModel = "gemini-2.5-flash"

	// The scoring engine enforces the real deadline; this only stops a
	// stuck connection from living forever.
	defaultTimeout = 60 * time.Second
)

// Options configures the client.
type Options struct {
	APIKey      string
	Model       string
	BaseURL     string // empty for Google's endpoint
	Temperature float64
	HTTPClient  *http.Client
}

// Client is a rate-limited Gemini client.
type Client struct {
	genai       *genai.Client // nil without an API key
	limiter     *ratelimit.KeyedRateLimiter
	model       string
	temperature float32
	logger      *slog.Logger
}

// New creates a new Gemini client. Without an API key the client is still
// usable, but every call fails as unauthorized.
func New(ctx context.Context, opts Options, logger *slog.Logger) (*Client, error) {
	if opts.Model == "" {
		opts.Model = defaultModel
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: defaultTimeout}
	}

	c := &Client{
		limiter:     ratelimit.New(predictor.DefaultRPS, predictor.DefaultBurst),
		model:       opts.Model,
		temperature: float32(opts.Temperature),
		logger:      logger,
	}
	if opts.APIKey == "" {
		return c, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      opts.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  opts.HTTPClient,
		HTTPOptions: genai.HTTPOptions{BaseURL: opts.BaseURL},
	})
	if err != nil {
		c.limiter.Stop()
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	c.genai = client
	return c, nil
}

// Close releases resources held by the client.
func (c *Client) Close() {
	c.limiter.Stop()
}

// Generate sends prompt as a single user turn and returns the model's text.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if c.genai == nil {
		return "", predictor.Wrap(providerName, c.model, 0, fmt.Errorf("%w: no API key configured", predictor.ErrUnauthorized))
	}
	if err := c.limiter.Wait(ctx, c.model); err != nil {
		return "", predictor.Wrap(providerName, c.model, 0, fmt.Errorf("rate limit wait: %w", err))
	}

	c.logger.Debug("gemini request", "model", c.model, "prompt_bytes", len(prompt))

	resp, err := c.genai.Models.GenerateContent(ctx, c.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(c.temperature),
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return "", c.classify(ctx, err)
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return "", predictor.Wrap(providerName, c.model, http.StatusOK,
			fmt.Errorf("%w: %s", predictor.ErrBlocked, resp.PromptFeedback.BlockReason))
	}

	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, p := range cand.Content.Parts {
			if p != nil {
				text.WriteString(p.Text)
			}
		}
		if text.Len() > 0 {
			break
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return "", predictor.Wrap(providerName, c.model, http.StatusOK, predictor.ErrEmptyResponse)
	}

	return text.String(), nil
}

// classify maps an SDK error onto the shared sentinels.
func (c *Client) classify(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return predictor.Wrap(providerName, c.model, 0, fmt.Errorf("generate content: %w", ctxErr))
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) && apiErr.Code != 0 {
		return predictor.Wrap(providerName, c.model, apiErr.Code,
			predictor.CheckStatus(apiErr.Code, []byte(apiErr.Message)))
	}
	return predictor.Wrap(providerName, c.model, 0, fmt.Errorf("generate content: %w", err))
}
