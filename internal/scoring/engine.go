// Package scoring turns a book, a reader profile, and a reading history into
// an affinity Prediction using an external language model. Scoring never
// fails outward: every error degrades to the neutral fallback prediction.
package scoring

import (
	"context"
	"errors"
	"log/slog"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/bookscanapp/bookscan-server/internal/domain"
	domainerrors "github.com/bookscanapp/bookscan-server/internal/errors"
	"github.com/bookscanapp/bookscan-server/internal/metrics"
)

// Predictor is a text-in, text-out language model call.
type Predictor interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Fallback reasons, also used as metric labels.
const (
	ReasonTimeout     = "timeout"
	ReasonCircuitOpen = "circuit_open"
	ReasonTransport   = "transport"
	ReasonFormat      = "format"
	ReasonCanceled    = "canceled"
	ReasonInternal    = "internal"
)

// Options tunes the engine. Zero values get defaults.
type Options struct {
	Provider         string        // label for logs and metrics
	Timeout          time.Duration // per attempt, default 20s
	MaxRetries       int           // transport errors only, default 0
	RetryBackoff     time.Duration // doubled per retry, default 250ms
	BreakerThreshold uint32        // consecutive failures to open, default 5
	BreakerCooldown  time.Duration // open state duration, default 30s
}

func (o Options) withDefaults() Options {
	if o.Provider == "" {
		o.Provider = "predictor"
	}
	if o.Timeout <= 0 {
		o.Timeout = 20 * time.Second
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = 250 * time.Millisecond
	}
	if o.BreakerThreshold == 0 {
		o.BreakerThreshold = 5
	}
	if o.BreakerCooldown <= 0 {
		o.BreakerCooldown = 30 * time.Second
	}
	return o
}

// Result is a prediction plus whether it is the fallback.
type Result struct {
	Prediction     domain.Prediction
	Fallback       bool
	FallbackReason string
}

// Engine scores books for readers.
type Engine struct {
	predictor Predictor
	breaker   *gobreaker.CircuitBreaker[string]
	opts      Options
	logger    *slog.Logger
}

// NewEngine creates an Engine calling p.
func NewEngine(p Predictor, opts Options, logger *slog.Logger) *Engine {
	opts = opts.withDefaults()
	logger = logger.With("component", "scoring", "provider", opts.Provider)
	return &Engine{
		predictor: p,
		breaker:   newBreaker("predictor-"+opts.Provider, opts.BreakerThreshold, opts.BreakerCooldown, logger),
		opts:      opts,
		logger:    logger,
	}
}

// Score predicts how much a reader with profile and history will like book.
func (e *Engine) Score(ctx context.Context, profile domain.ReaderProfile, samples []domain.HistorySample, book domain.BookRecord) Result {
	return e.ScoreRequest(ctx, NewRequest(profile, samples, book))
}

// ScoreRequest scores a prebuilt request.
func (e *Engine) ScoreRequest(ctx context.Context, req Request) Result {
	start := time.Now()

	pred, err := e.predict(ctx, req)
	if err != nil {
		reason := fallbackReason(err)
		attrs := []any{"reason", reason, "title", req.Book.Title, "error", err}
		if raw := rawOutput(err); raw != "" {
			clipped, _ := TruncateRunes(raw, 200)
			attrs = append(attrs, "raw", clipped)
		}
		e.logger.Warn("scoring fell back to neutral prediction", attrs...)
		metrics.RecordScoring(e.opts.Provider, metrics.OutcomeFallback, reason, time.Since(start))

		return Result{Prediction: domain.FallbackPrediction(), Fallback: true, FallbackReason: reason}
	}

	e.logger.Debug("prediction ready", "title", req.Book.Title, "rating", pred.Rating, "duration", time.Since(start))
	metrics.RecordScoring(e.opts.Provider, metrics.OutcomeSuccess, "", time.Since(start))
	return Result{Prediction: pred}
}

func (e *Engine) predict(ctx context.Context, req Request) (domain.Prediction, error) {
	prompt, err := RenderPrompt(req)
	if err != nil {
		return domain.Prediction{}, domainerrors.Wrap(err, domainerrors.CodeInternal, "build prompt")
	}

	raw, err := e.generate(ctx, prompt)
	if err != nil {
		return domain.Prediction{}, err
	}

	return ExtractPrediction(raw)
}

// generate calls the predictor, retrying transport failures up to MaxRetries
// times with exponential backoff. A timed-out attempt is not retried, so one
// call never takes much longer than Timeout.
func (e *Engine) generate(ctx context.Context, prompt string) (string, error) {
	backoff := e.opts.RetryBackoff
	for attempt := 0; ; attempt++ {
		raw, err := e.attempt(ctx, prompt)
		if err == nil {
			return raw, nil
		}
		if attempt >= e.opts.MaxRetries || ctx.Err() != nil ||
			isBreakerRejection(err) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}

		e.logger.Debug("retrying predictor call", "attempt", attempt+1, "backoff", backoff, "error", err)
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", domainerrors.Transport(ctx.Err(), "predictor call abandoned")
		case <-timer.C:
		}
		backoff *= 2
	}
}

// attempt makes one bounded call through the circuit breaker. The deadline
// is enforced here even if the predictor ignores its context.
func (e *Engine) attempt(ctx context.Context, prompt string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
	defer cancel()

	raw, err := e.breaker.Execute(func() (string, error) {
		return callWithDeadline(callCtx, e.predictor, prompt)
	})
	switch {
	case err == nil:
		return raw, nil
	case isBreakerRejection(err):
		return "", domainerrors.Transport(err, "predictor circuit open")
	case errors.Is(err, context.DeadlineExceeded):
		return "", domainerrors.Transport(err, "predictor timed out")
	default:
		return "", domainerrors.Transport(err, "predictor request failed")
	}
}

func callWithDeadline(ctx context.Context, p Predictor, prompt string) (string, error) {
	type reply struct {
		raw string
		err error
	}
	done := make(chan reply, 1)
	go func() {
		raw, err := p.Generate(ctx, prompt)
		done <- reply{raw, err}
	}()

	select {
	case r := <-done:
		return r.raw, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func fallbackReason(err error) string {
	switch {
	case isBreakerRejection(err):
		return ReasonCircuitOpen
	case errors.Is(err, context.DeadlineExceeded):
		return ReasonTimeout
	case errors.Is(err, context.Canceled):
		return ReasonCanceled
	case errors.Is(err, domainerrors.ErrPredictionFormat):
		return ReasonFormat
	case errors.Is(err, domainerrors.ErrTransport):
		return ReasonTransport
	default:
		return ReasonInternal
	}
}

func rawOutput(err error) string {
	var de *domainerrors.Error
	if errors.As(err, &de) {
		if details, ok := de.Details.(map[string]string); ok {
			return details["raw"]
		}
	}
	return ""
}
