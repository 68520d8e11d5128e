package library

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/bookscanapp/bookscan-server/internal/domain"
	"github.com/bookscanapp/bookscan-server/internal/metrics"
	"github.com/bookscanapp/bookscan-server/internal/syncmap"
)

// Repository loads and saves whole library snapshots.
type Repository interface {
	LoadLibrary(ctx context.Context, readerID string) ([]domain.LibraryEntry, error)
	SaveLibrary(ctx context.Context, readerID string, entries []domain.LibraryEntry) error
}

// Manager applies Collection operations to persisted libraries. Writes for
// the same reader are serialized; the snapshot is saved before a write
// returns.
type Manager struct {
	repo   Repository
	locks  *syncmap.Map[string, *sync.Mutex]
	now    func() time.Time
	logger *slog.Logger
}

// NewManager creates a Manager over repo.
func NewManager(repo Repository, logger *slog.Logger) *Manager {
	return &Manager{
		repo:   repo,
		locks:  syncmap.New[string, *sync.Mutex](),
		now:    time.Now,
		logger: logger.With("component", "library"),
	}
}

func (m *Manager) lock(readerID string) func() {
	mu := m.locks.LoadOrCreate(readerID, func() *sync.Mutex { return &sync.Mutex{} })
	mu.Lock()
	return mu.Unlock
}

// Collection returns the reader's current snapshot.
func (m *Manager) Collection(ctx context.Context, readerID string) (Collection, error) {
	entries, err := m.repo.LoadLibrary(ctx, readerID)
	if err != nil {
		return Collection{}, err
	}
	return NewCollection(entries), nil
}

// Add inserts entry into the reader's library.
func (m *Manager) Add(ctx context.Context, readerID string, entry domain.LibraryEntry) (domain.LibraryEntry, error) {
	unlock := m.lock(readerID)
	defer unlock()

	c, err := m.Collection(ctx, readerID)
	if err != nil {
		return domain.LibraryEntry{}, m.record("add", err)
	}
	next, err := c.Add(entry)
	if err != nil {
		return domain.LibraryEntry{}, m.record("add", err)
	}
	if err := m.repo.SaveLibrary(ctx, readerID, next.entries); err != nil {
		m.logger.Error("saving library failed", "reader_id", readerID, "operation", "add", "error", err)
		return domain.LibraryEntry{}, m.record("add", err)
	}

	added, _ := next.Find(entry.Key())
	m.logger.Info("entry added", "reader_id", readerID, "isbn", added.ISBN, "scanned_at", added.ScannedAt)
	return added, m.record("add", nil)
}

// Update edits one entry of the reader's library.
func (m *Manager) Update(ctx context.Context, readerID string, key domain.EntryKey, patch domain.EntryPatch) (domain.LibraryEntry, error) {
	unlock := m.lock(readerID)
	defer unlock()

	c, err := m.Collection(ctx, readerID)
	if err != nil {
		return domain.LibraryEntry{}, m.record("update", err)
	}
	next, updated, err := c.Update(key, patch, m.now().UTC())
	if err != nil {
		return domain.LibraryEntry{}, m.record("update", err)
	}
	if err := m.repo.SaveLibrary(ctx, readerID, next.entries); err != nil {
		m.logger.Error("saving library failed", "reader_id", readerID, "operation", "update", "error", err)
		return domain.LibraryEntry{}, m.record("update", err)
	}
	return updated, m.record("update", nil)
}

// Remove deletes one entry. Removing an absent entry succeeds without a write.
func (m *Manager) Remove(ctx context.Context, readerID string, key domain.EntryKey) error {
	unlock := m.lock(readerID)
	defer unlock()

	c, err := m.Collection(ctx, readerID)
	if err != nil {
		return m.record("remove", err)
	}
	next, removed := c.Remove(key)
	if !removed {
		return m.record("remove", nil)
	}
	if err := m.repo.SaveLibrary(ctx, readerID, next.entries); err != nil {
		m.logger.Error("saving library failed", "reader_id", readerID, "operation", "remove", "error", err)
		return m.record("remove", err)
	}
	return m.record("remove", nil)
}

// Query filters and sorts the reader's library.
func (m *Manager) Query(ctx context.Context, readerID, filter string, sort SortKey) ([]domain.LibraryEntry, error) {
	c, err := m.Collection(ctx, readerID)
	if err != nil {
		return nil, err
	}
	return c.Query(filter, sort), nil
}

// Shelves returns the filtered, sorted library grouped by status.
func (m *Manager) Shelves(ctx context.Context, readerID, filter string, sort SortKey) (domain.Shelves, error) {
	entries, err := m.Query(ctx, readerID, filter, sort)
	if err != nil {
		return domain.Shelves{}, err
	}
	return GroupByStatus(entries), nil
}

func (m *Manager) record(operation string, err error) error {
	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.LibraryMutations.WithLabelValues(operation, result).Inc()
	return err
}
