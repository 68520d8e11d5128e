// Package googlebooks resolves ISBNs against the Google Books volumes API.
package googlebooks

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/bookscanapp/bookscan-server/internal/catalog"
	"github.com/bookscanapp/bookscan-server/internal/domain"
	"github.com/bookscanapp/bookscan-server/internal/ratelimit"
)

const (
	// Google Books allows roughly 100 requests per 100 seconds per user
	// without a key.
	defaultRPS   = 1.0
	defaultBurst = 5

	defaultBaseURL = "https://www.googleapis.com"
	defaultTimeout = 10 * time.Second

	limiterKey = "volumes"
)

// Options configures the client.
type Options struct {
	BaseURL string
	APIKey  string // optional
	Timeout time.Duration
}

// Client is a rate-limited Google Books client.
type Client struct {
	http    *http.Client
	limiter *ratelimit.KeyedRateLimiter
	baseURL string
	apiKey  string
	logger  *slog.Logger
}

var _ catalog.Resolver = (*Client)(nil)

// New creates a new Google Books client.
func New(opts Options, logger *slog.Logger) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	return &Client{
		http:    &http.Client{Timeout: opts.Timeout},
		limiter: ratelimit.New(defaultRPS, defaultBurst),
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		apiKey:  opts.APIKey,
		logger:  logger,
	}
}

// Close releases resources held by the client.
func (c *Client) Close() {
	c.limiter.Stop()
}

// Resolve returns the first volume matching isbn.
func (c *Client) Resolve(ctx context.Context, isbn string) (domain.BookRecord, error) {
	query := url.Values{}
	query.Set("q", "isbn:"+isbn)
	if c.apiKey != "" {
		query.Set("key", c.apiKey)
	}

	body, err := c.doRequest(ctx, "/books/v1/volumes", query)
	if err != nil {
		return domain.BookRecord{}, wrapError("resolve", isbn, err)
	}

	var resp volumesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.BookRecord{}, wrapError("resolve", isbn, fmt.Errorf("parse response: %w", err))
	}
	if len(resp.Items) == 0 {
		return domain.BookRecord{}, wrapError("resolve", isbn, catalog.ErrNotFound)
	}

	return resp.Items[0].VolumeInfo.toRecord(isbn), nil
}

func (c *Client) doRequest(ctx context.Context, path string, query url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx, limiterKey); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "BookScan/1.0")

	c.logger.Debug("google books request", "path", path, "q", query.Get("q"))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, catalog.ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: status %d", ErrServer, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: status %d", ErrBadRequest, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return body, nil
}
