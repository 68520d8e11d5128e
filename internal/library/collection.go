// Package library manages a reader's collection of scanned books.
//
// Collection is an immutable snapshot: every operation returns a new
// Collection and leaves the receiver untouched. Manager adds persistence and
// serializes writers per reader.
package library

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/bookscanapp/bookscan-server/internal/domain"
	domainerrors "github.com/bookscanapp/bookscan-server/internal/errors"
	"github.com/bookscanapp/bookscan-server/internal/normalize"
)

// SortKey orders query results.
type SortKey string

const (
	SortDate   SortKey = "date"   // scannedAt, newest first
	SortTitle  SortKey = "title"  // title A-Z, ignoring case
	SortRating SortKey = "rating" // recommendation rating, highest first
)

// ParseSortKey maps a query parameter to a SortKey. Unknown keys sort by date.
func ParseSortKey(s string) SortKey {
	switch k := SortKey(strings.ToLower(strings.TrimSpace(s))); k {
	case SortTitle, SortRating:
		return k
	default:
		return SortDate
	}
}

// Collection is an immutable snapshot of a reader's library.
type Collection struct {
	entries []domain.LibraryEntry
}

// NewCollection wraps a copy of entries.
func NewCollection(entries []domain.LibraryEntry) Collection {
	return Collection{entries: slices.Clone(entries)}
}

// Entries returns a copy of the entries in insertion order.
func (c Collection) Entries() []domain.LibraryEntry {
	out := slices.Clone(c.entries)
	if out == nil {
		out = []domain.LibraryEntry{}
	}
	return out
}

// Len returns the number of entries.
func (c Collection) Len() int {
	return len(c.entries)
}

// Find returns the entry with the given identity.
func (c Collection) Find(key domain.EntryKey) (domain.LibraryEntry, bool) {
	if i := c.index(key); i >= 0 {
		return c.entries[i], true
	}
	return domain.LibraryEntry{}, false
}

func (c Collection) index(key domain.EntryKey) int {
	return slices.IndexFunc(c.entries, func(e domain.LibraryEntry) bool {
		return e.Key().Equal(key)
	})
}

// Add appends entry. The same book may be added again with a different
// scannedAt; an exact identity match is rejected.
func (c Collection) Add(entry domain.LibraryEntry) (Collection, error) {
	if strings.TrimSpace(entry.ISBN) == "" {
		return c, domainerrors.Validation("identifier is required")
	}
	if entry.ScannedAt.IsZero() {
		return c, domainerrors.Validation("scannedAt is required")
	}
	if entry.ReadingStatus == "" {
		entry.ReadingStatus = domain.StatusWantToRead
	}
	if !entry.ReadingStatus.Valid() {
		return c, domainerrors.Validationf("unknown reading status %q", entry.ReadingStatus)
	}
	if err := checkRating(entry.UserRating); err != nil {
		return c, err
	}
	if c.index(entry.Key()) >= 0 {
		return c, domainerrors.Validationf("entry %s already exists", entry.Key())
	}

	next := make([]domain.LibraryEntry, len(c.entries), len(c.entries)+1)
	copy(next, c.entries)
	return Collection{entries: append(next, entry)}, nil
}

// Update applies patch to the entry with the given identity and stamps its
// reviewDate with now. Identity and recommendation are never changed. On
// error the returned Collection is the receiver.
func (c Collection) Update(key domain.EntryKey, patch domain.EntryPatch, now time.Time) (Collection, domain.LibraryEntry, error) {
	i := c.index(key)
	if i < 0 {
		return c, domain.LibraryEntry{}, domainerrors.NotFoundf("entry %s not found", key)
	}

	updated := c.entries[i]
	if patch.ReadingStatus != nil {
		if !patch.ReadingStatus.Valid() {
			return c, domain.LibraryEntry{}, domainerrors.Validationf("unknown reading status %q", *patch.ReadingStatus)
		}
		updated.ReadingStatus = *patch.ReadingStatus
	}
	if patch.UserRating != nil {
		if err := checkRating(*patch.UserRating); err != nil {
			return c, domain.LibraryEntry{}, err
		}
		updated.UserRating = *patch.UserRating
	}
	if patch.UserReview != nil {
		updated.UserReview = *patch.UserReview
	}
	reviewed := now
	updated.ReviewDate = &reviewed

	next := slices.Clone(c.entries)
	next[i] = updated
	return Collection{entries: next}, updated, nil
}

// Remove drops the entry with the given identity. Removing an absent entry
// is not an error; removed reports whether anything changed.
func (c Collection) Remove(key domain.EntryKey) (next Collection, removed bool) {
	i := c.index(key)
	if i < 0 {
		return c, false
	}
	return Collection{entries: slices.Delete(slices.Clone(c.entries), i, i+1)}, true
}

// Query returns entries whose title or any author contains filter, ignoring
// case, ordered by sort. An empty filter matches everything.
func (c Collection) Query(filter string, sort SortKey) []domain.LibraryEntry {
	filter = strings.TrimSpace(filter)

	out := make([]domain.LibraryEntry, 0, len(c.entries))
	for _, e := range c.entries {
		if filter == "" || matches(e, filter) {
			out = append(out, e)
		}
	}

	switch sort {
	case SortTitle:
		slices.SortStableFunc(out, func(a, b domain.LibraryEntry) int {
			return cmp.Compare(normalize.Fold(a.Title), normalize.Fold(b.Title))
		})
	case SortRating:
		slices.SortStableFunc(out, func(a, b domain.LibraryEntry) int {
			return cmp.Compare(b.AffinityRating(), a.AffinityRating())
		})
	default:
		slices.SortStableFunc(out, func(a, b domain.LibraryEntry) int {
			return b.ScannedAt.Compare(a.ScannedAt)
		})
	}
	return out
}

func matches(e domain.LibraryEntry, filter string) bool {
	if normalize.ContainsFold(e.Title, filter) {
		return true
	}
	return slices.ContainsFunc(e.Authors, func(a string) bool {
		return normalize.ContainsFold(a, filter)
	})
}

// GroupByStatus buckets entries by reading status, keeping their order.
// Entries without a status land on want-to-read. All three shelves are
// always non-nil.
func GroupByStatus(entries []domain.LibraryEntry) domain.Shelves {
	shelves := domain.Shelves{
		Reading:    []domain.LibraryEntry{},
		WantToRead: []domain.LibraryEntry{},
		Read:       []domain.LibraryEntry{},
	}
	for _, e := range entries {
		switch e.Status() {
		case domain.StatusReading:
			shelves.Reading = append(shelves.Reading, e)
		case domain.StatusRead:
			shelves.Read = append(shelves.Read, e)
		default:
			shelves.WantToRead = append(shelves.WantToRead, e)
		}
	}
	return shelves
}

// checkRating accepts 0 (unrated) or 1-5.
func checkRating(r int) error {
	if r < 0 || r > 5 {
		return domainerrors.Validationf("userRating must be between 1 and 5, got %d", r)
	}
	return nil
}
