// Package predictor holds what the language model adapters share: sentinel
// errors, status mapping, and the rate limits applied to outbound calls.
package predictor

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Sentinel errors for predictor calls.
var (
	ErrRateLimited   = errors.New("predictor: rate limited by provider")
	ErrUnauthorized  = errors.New("predictor: credentials rejected")
	ErrBadRequest    = errors.New("predictor: request rejected")
	ErrServer        = errors.New("predictor: provider server error")
	ErrEmptyResponse = errors.New("predictor: response contained no text")
	ErrBlocked       = errors.New("predictor: prompt blocked by provider")
)

// Outbound limits per model, shared by the adapters.
const (
	DefaultRPS   = 2.0
	DefaultBurst = 4
)

// Error wraps an underlying error with provider context.
type Error struct {
	Provider string
	Model    string
	Status   int // 0 when no response was received
	Err      error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s %s: http %d: %v", e.Provider, e.Model, e.Status, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Model, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Wrap attaches provider context to err.
func Wrap(provider, model string, status int, err error) error {
	return &Error{Provider: provider, Model: model, Status: status, Err: err}
}

// CheckStatus maps a non-2xx response to a sentinel error, keeping a short
// excerpt of the body.
func CheckStatus(status int, body []byte) error {
	if status >= 200 && status < 300 {
		return nil
	}

	var base error
	switch {
	case status == http.StatusTooManyRequests:
		base = ErrRateLimited
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		base = ErrUnauthorized
	case status >= 500:
		base = ErrServer
	default:
		base = ErrBadRequest
	}

	excerpt := strings.TrimSpace(string(body))
	if len(excerpt) > 200 {
		excerpt = excerpt[:200]
	}
	if excerpt == "" {
		return base
	}
	return fmt.Errorf("%w: %s", base, excerpt)
}
