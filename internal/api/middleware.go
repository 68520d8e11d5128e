package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/bookscanapp/bookscan-server/internal/metrics"
)

const (
	// ReaderHeaderName carries the reader a request acts for.
	ReaderHeaderName = "X-Reader-ID"

	// FallbackHeaderName is set on rate-book responses that carry the
	// neutral fallback prediction.
	FallbackHeaderName = "X-Prediction-Fallback"
)

// ReaderInput scopes a huma operation to one reader.
type ReaderInput struct {
	ReaderID string `header:"X-Reader-ID" required:"true" minLength:"1" maxLength:"128" doc:"Reader the request acts for"`
}

// observe records latency per route pattern and logs each request.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		var route string
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			route = rctx.RoutePattern()
		}
		elapsed := time.Since(start)
		metrics.RecordAPIRequest(r.Method, route, status, elapsed)

		s.logger.Debug("request served",
			"method", r.Method,
			"path", r.URL.Path,
			"route", route,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration", elapsed,
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
