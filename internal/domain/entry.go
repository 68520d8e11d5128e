package domain

import (
	"fmt"
	"time"
)

// ReadingStatus is where a book sits in the reader's reading life.
type ReadingStatus string

const (
	StatusWantToRead ReadingStatus = "want-to-read"
	StatusReading    ReadingStatus = "reading"
	StatusRead       ReadingStatus = "read"
)

// Valid reports whether s is one of the known statuses.
func (s ReadingStatus) Valid() bool {
	switch s {
	case StatusWantToRead, StatusReading, StatusRead:
		return true
	}
	return false
}

// LibraryEntry is one scan of a book kept in a reader's library.
//
// The same book may appear more than once (a re-read), so identity is the
// pair (ISBN, ScannedAt), never the ISBN alone. Recommendation is frozen at
// insertion and no edit ever replaces it.
type LibraryEntry struct {
	BookRecord
	ReadingStatus  ReadingStatus `json:"readingStatus"`
	UserRating     int           `json:"userRating,omitempty"` // 1-5, 0 = unrated
	UserReview     string        `json:"userReview,omitempty"`
	ReviewDate     *time.Time    `json:"reviewDate,omitempty"`
	ScannedAt      time.Time     `json:"scannedAt"`
	Recommendation *Prediction   `json:"recommendation,omitempty"`
}

// Key returns the entry's composite identity.
func (e LibraryEntry) Key() EntryKey {
	return EntryKey{ISBN: e.ISBN, ScannedAt: e.ScannedAt}
}

// Status returns the reading status, treating a missing one as want-to-read.
func (e LibraryEntry) Status() ReadingStatus {
	if e.ReadingStatus == "" {
		return StatusWantToRead
	}
	return e.ReadingStatus
}

// AffinityRating returns the frozen recommendation rating, or 0 without one.
func (e LibraryEntry) AffinityRating() float64 {
	if e.Recommendation == nil {
		return 0
	}
	return e.Recommendation.Rating
}

// EntryKey identifies a LibraryEntry.
type EntryKey struct {
	ISBN      string
	ScannedAt time.Time
}

// Equal compares keys at full nanosecond precision, ignoring location and
// monotonic clock readings.
func (k EntryKey) Equal(other EntryKey) bool {
	return k.ISBN == other.ISBN && k.ScannedAt.Equal(other.ScannedAt)
}

// String renders the key the way it appears in API paths.
func (k EntryKey) String() string {
	return k.ISBN + "/" + k.ScannedAt.UTC().Format(time.RFC3339Nano)
}

// ParseEntryKey builds a key from an identifier and an RFC 3339 timestamp.
func ParseEntryKey(isbn, scannedAt string) (EntryKey, error) {
	if isbn == "" {
		return EntryKey{}, fmt.Errorf("identifier is required")
	}
	ts, err := time.Parse(time.RFC3339Nano, scannedAt)
	if err != nil {
		return EntryKey{}, fmt.Errorf("scannedAt %q is not an RFC 3339 timestamp: %w", scannedAt, err)
	}
	return EntryKey{ISBN: isbn, ScannedAt: ts}, nil
}

// EntryPatch holds the editable fields of an entry. Nil fields are left as is.
type EntryPatch struct {
	ReadingStatus *ReadingStatus `json:"readingStatus,omitempty"`
	UserRating    *int           `json:"userRating,omitempty"`
	UserReview    *string        `json:"userReview,omitempty"`
}

// Shelves groups library entries by reading status.
type Shelves struct {
	Reading    []LibraryEntry `json:"reading"`
	WantToRead []LibraryEntry `json:"want-to-read"`
	Read       []LibraryEntry `json:"read"`
}

// HistorySample is one rated, finished book as shown to the predictor.
type HistorySample struct {
	Title      string `json:"title"`
	UserRating int    `json:"userRating"`
}
