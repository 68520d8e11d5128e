// Package history derives the reading history shown to the predictor.
package history

import (
	"slices"
	"time"

	"github.com/bookscanapp/bookscan-server/internal/domain"
)

// MaxSamples caps how many finished books are sent to the predictor.
const MaxSamples = 10

// Select returns up to MaxSamples finished, rated books, most recently
// reviewed first. Entries without a review date sort as oldest; ties keep
// their library order. entries is not modified.
func Select(entries []domain.LibraryEntry) []domain.HistorySample {
	rated := make([]domain.LibraryEntry, 0, len(entries))
	for _, e := range entries {
		if e.Status() == domain.StatusRead && e.UserRating > 0 {
			rated = append(rated, e)
		}
	}

	slices.SortStableFunc(rated, func(a, b domain.LibraryEntry) int {
		return reviewedAt(b).Compare(reviewedAt(a))
	})

	n := min(len(rated), MaxSamples)
	samples := make([]domain.HistorySample, 0, n)
	for _, e := range rated[:n] {
		samples = append(samples, domain.HistorySample{Title: e.Title, UserRating: e.UserRating})
	}
	return samples
}

func reviewedAt(e domain.LibraryEntry) time.Time {
	if e.ReviewDate == nil || e.ReviewDate.IsZero() {
		return time.Unix(0, 0)
	}
	return *e.ReviewDate
}
