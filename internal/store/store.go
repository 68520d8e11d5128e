// Package store persists reader libraries, profiles, and catalog lookups as
// JSON documents in a key-value Backend.
package store

import (
	"context"
	"errors"
	"log/slog"
	"time"

	json "github.com/goccy/go-json"

	"github.com/bookscanapp/bookscan-server/internal/domain"
	domainerrors "github.com/bookscanapp/bookscan-server/internal/errors"
)

// Key prefixes.
const (
	libraryPrefix = "library:"
	profilePrefix = "profile:"
	catalogPrefix = "catalog:"
)

// Store is the typed repository over a Backend.
type Store struct {
	backend Backend
	logger  *slog.Logger
}

// New creates a Store over backend.
func New(backend Backend, logger *slog.Logger) *Store {
	return &Store{backend: backend, logger: logger}
}

// Ping checks the backend is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.backend.Ping(ctx)
}

// Close closes the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

// LoadLibrary returns the reader's library snapshot. A reader with no saved
// library has an empty one.
func (s *Store) LoadLibrary(ctx context.Context, readerID string) ([]domain.LibraryEntry, error) {
	var entries []domain.LibraryEntry
	found, err := s.get(ctx, libraryPrefix+readerID, &entries)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "load library")
	}
	if !found || entries == nil {
		return []domain.LibraryEntry{}, nil
	}
	return entries, nil
}

// SaveLibrary replaces the reader's library snapshot.
func (s *Store) SaveLibrary(ctx context.Context, readerID string, entries []domain.LibraryEntry) error {
	if entries == nil {
		entries = []domain.LibraryEntry{}
	}
	if err := s.set(ctx, libraryPrefix+readerID, entries, 0); err != nil {
		return domainerrors.Wrap(err, domainerrors.CodeInternal, "save library")
	}
	return nil
}

// LoadProfile returns the reader's profile, or a NOT_FOUND error if none
// was ever saved.
func (s *Store) LoadProfile(ctx context.Context, readerID string) (domain.ReaderProfile, error) {
	var profile domain.ReaderProfile
	found, err := s.get(ctx, profilePrefix+readerID, &profile)
	if err != nil {
		return domain.ReaderProfile{}, domainerrors.Wrap(err, domainerrors.CodeInternal, "load profile")
	}
	if !found {
		return domain.ReaderProfile{}, domainerrors.NotFound("profile not found")
	}
	return profile, nil
}

// SaveProfile replaces the reader's profile.
func (s *Store) SaveProfile(ctx context.Context, readerID string, profile domain.ReaderProfile) error {
	if err := s.set(ctx, profilePrefix+readerID, profile, 0); err != nil {
		return domainerrors.Wrap(err, domainerrors.CodeInternal, "save profile")
	}
	return nil
}

// GetCachedBook returns a cached catalog record.
func (s *Store) GetCachedBook(ctx context.Context, isbn string) (domain.BookRecord, bool, error) {
	var book domain.BookRecord
	found, err := s.get(ctx, catalogPrefix+isbn, &book)
	if err != nil {
		return domain.BookRecord{}, false, err
	}
	return book, found, nil
}

// CacheBook stores a catalog record for ttl.
func (s *Store) CacheBook(ctx context.Context, book domain.BookRecord, ttl time.Duration) error {
	return s.set(ctx, catalogPrefix+book.ISBN, book, ttl)
}

func (s *Store) get(ctx context.Context, key string, dest any) (bool, error) {
	data, err := s.backend.Get(ctx, key)
	if errors.Is(err, ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		s.logger.Error("corrupt document", "key", key, "error", err)
		return false, err
	}
	return true, nil
}

func (s *Store) set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.backend.Set(ctx, key, data, ttl)
}
