package api

import (
	"errors"
	"io"
	"mime"
	"net/http"

	json "github.com/goccy/go-json"

	"github.com/bookscanapp/bookscan-server/internal/domain"
	"github.com/bookscanapp/bookscan-server/internal/http/response"
	"github.com/bookscanapp/bookscan-server/internal/scoring"
)

// maxRateBookBody bounds the rate-book request body.
const maxRateBookBody = 1 << 20

// rateBookRequest mirrors scoring.Request with pointers so missing members
// can be told apart from empty ones.
type rateBookRequest struct {
	Book            *scoring.BookInput     `json:"book"`
	UserPreferences *domain.Preferences    `json:"userPreferences"`
	ReadingHistory  []domain.HistorySample `json:"readingHistory"`
}

// handleRateBook serves POST /api/rate-book. Existing web clients call it
// directly, so it skips the envelope: bodies are bare, errors are
// {"error": ...}, and a failed prediction is still a 200 with the fallback.
func (s *Server) handleRateBook(w http.ResponseWriter, r *http.Request) {
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mediaType, _, err := mime.ParseMediaType(ct)
		if err != nil || mediaType != "application/json" {
			response.UnsupportedMediaType(w, "content type must be application/json", s.logger)
			return
		}
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRateBookBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.RequestTooLarge(w, "request body too large", s.logger)
			return
		}
		response.BadRequest(w, "could not read request body", s.logger)
		return
	}

	var req rateBookRequest
	if err := json.Unmarshal(body, &req); err != nil {
		response.BadRequest(w, "malformed JSON body", s.logger)
		return
	}

	switch {
	case req.Book == nil:
		response.BadRequest(w, "book is required", s.logger)
		return
	case req.UserPreferences == nil:
		response.BadRequest(w, "userPreferences is required", s.logger)
		return
	}

	result := s.services.Scoring.ScoreRequest(r.Context(), scoring.Request{
		Book:            *req.Book,
		UserPreferences: *req.UserPreferences,
		ReadingHistory:  req.ReadingHistory,
	})

	if result.Fallback {
		w.Header().Set(FallbackHeaderName, "true")
	}
	response.Success(w, result.Prediction, s.logger)
}
