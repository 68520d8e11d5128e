// Package response writes plain JSON bodies for the routes that live outside
// the huma envelope: the rate-book endpoint and middleware rejections.
package response

import (
	"errors"
	"log/slog"
	"net/http"

	json "github.com/goccy/go-json"

	domainerrors "github.com/bookscanapp/bookscan-server/internal/errors"
)

// ErrorBody is the body of every error written by this package.
type ErrorBody struct {
	Error string `json:"error"`
}

// JSON writes v as the response body with the given status code.
func JSON(w http.ResponseWriter, status int, v any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil && logger != nil {
		logger.Error("failed to encode JSON response", "error", err)
	}
}

// Success writes v with 200 OK.
func Success(w http.ResponseWriter, v any, logger *slog.Logger) {
	JSON(w, http.StatusOK, v, logger)
}

// Error writes {"error": message} with the given status code.
func Error(w http.ResponseWriter, status int, message string, logger *slog.Logger) {
	JSON(w, status, ErrorBody{Error: message}, logger)
}

// BadRequest writes a 400 Bad Request response.
func BadRequest(w http.ResponseWriter, message string, logger *slog.Logger) {
	Error(w, http.StatusBadRequest, message, logger)
}

// RequestTooLarge writes a 413 Request Entity Too Large response.
func RequestTooLarge(w http.ResponseWriter, message string, logger *slog.Logger) {
	Error(w, http.StatusRequestEntityTooLarge, message, logger)
}

// UnsupportedMediaType writes a 415 Unsupported Media Type response.
func UnsupportedMediaType(w http.ResponseWriter, message string, logger *slog.Logger) {
	Error(w, http.StatusUnsupportedMediaType, message, logger)
}

// TooManyRequests writes a 429 Too Many Requests response.
func TooManyRequests(w http.ResponseWriter, message string, logger *slog.Logger) {
	Error(w, http.StatusTooManyRequests, message, logger)
}

// InternalError writes a 500 Internal Server Error response.
func InternalError(w http.ResponseWriter, message string, logger *slog.Logger) {
	Error(w, http.StatusInternalServerError, message, logger)
}

// HandleError maps err to a status code. Domain errors keep their code and
// message; anything else becomes a generic 500.
func HandleError(w http.ResponseWriter, err error, logger *slog.Logger) {
	var domainErr *domainerrors.Error
	if errors.As(err, &domainErr) {
		Error(w, domainErr.HTTPStatus(), domainErr.Message, logger)
		return
	}

	if logger != nil {
		logger.Error("unhandled error", "error", err)
	}
	InternalError(w, "internal server error", logger)
}
