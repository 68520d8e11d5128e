package scoring

import (
	"strings"
	"unicode/utf8"

	"github.com/bookscanapp/bookscan-server/internal/domain"
	"github.com/bookscanapp/bookscan-server/internal/history"
)

// MaxDescriptionRunes bounds how much of a book description reaches the predictor.
const MaxDescriptionRunes = 500

// BookInput is the part of a BookRecord the predictor sees.
type BookInput struct {
	Title       string   `json:"title"`
	Authors     []string `json:"authors"`
	Description string   `json:"description"`
}

// Request is everything one prediction is computed from. It doubles as the
// body of POST /api/rate-book.
type Request struct {
	Book            BookInput              `json:"book"`
	UserPreferences domain.Preferences     `json:"userPreferences"`
	ReadingHistory  []domain.HistorySample `json:"readingHistory"`
}

// NewRequest snapshots the inputs so later library or profile edits cannot
// leak into an in-flight prediction.
func NewRequest(profile domain.ReaderProfile, samples []domain.HistorySample, book domain.BookRecord) Request {
	authors := make([]string, len(book.Authors))
	copy(authors, book.Authors)

	hist := make([]domain.HistorySample, len(samples))
	copy(hist, samples)

	return Request{
		Book: BookInput{
			Title:       book.Title,
			Authors:     authors,
			Description: book.Description,
		},
		UserPreferences: profile.Preferences(),
		ReadingHistory:  hist,
	}
}

// bounded returns a copy with the description cut to MaxDescriptionRunes and
// the history cut to history.MaxSamples. truncated reports whether the
// description was shortened.
func (r Request) bounded() (out Request, truncated bool) {
	out = r
	out.Book.Description, truncated = TruncateRunes(r.Book.Description, MaxDescriptionRunes)
	if len(out.ReadingHistory) > history.MaxSamples {
		out.ReadingHistory = out.ReadingHistory[:history.MaxSamples]
	}
	return out, truncated
}

// TruncateRunes cuts s to at most n runes without splitting a multi-byte
// character. Invalid UTF-8 bytes are replaced so the result is always valid.
func TruncateRunes(s string, n int) (string, bool) {
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "\uFFFD")
	}
	if utf8.RuneCountInString(s) <= n {
		return s, false
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i], true
		}
		count++
	}
	return s, false
}
