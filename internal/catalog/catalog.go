// Package catalog resolves scanned identifiers to book metadata.
package catalog

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/bookscanapp/bookscan-server/internal/domain"
	"github.com/bookscanapp/bookscan-server/internal/metrics"
)

// ErrNotFound is returned when the catalog has no record for an identifier.
var ErrNotFound = errors.New("catalog: not found")

// Resolver looks up book metadata by identifier.
type Resolver interface {
	Resolve(ctx context.Context, identifier string) (domain.BookRecord, error)
}

// Cache stores resolved records between lookups.
type Cache interface {
	GetCachedBook(ctx context.Context, identifier string) (domain.BookRecord, bool, error)
	CacheBook(ctx context.Context, book domain.BookRecord, ttl time.Duration) error
}

// CachedResolver consults a Cache before delegating to an upstream Resolver.
// Cache failures are logged and never fail a lookup.
type CachedResolver struct {
	upstream Resolver
	cache    Cache
	ttl      time.Duration
	logger   *slog.Logger
}

// NewCachedResolver wraps upstream with cache.
func NewCachedResolver(upstream Resolver, cache Cache, ttl time.Duration, logger *slog.Logger) *CachedResolver {
	return &CachedResolver{
		upstream: upstream,
		cache:    cache,
		ttl:      ttl,
		logger:   logger.With("component", "catalog"),
	}
}

// Resolve implements Resolver.
func (r *CachedResolver) Resolve(ctx context.Context, identifier string) (domain.BookRecord, error) {
	book, ok, err := r.cache.GetCachedBook(ctx, identifier)
	switch {
	case err != nil:
		r.logger.Warn("catalog cache read failed", "isbn", identifier, "error", err)
	case ok:
		metrics.CatalogLookups.WithLabelValues("hit").Inc()
		return book, nil
	}

	book, err = r.upstream.Resolve(ctx, identifier)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			metrics.CatalogLookups.WithLabelValues("not_found").Inc()
			r.logger.Info("catalog has no record", "isbn", identifier)
		} else {
			metrics.CatalogLookups.WithLabelValues("error").Inc()
		}
		return domain.BookRecord{}, err
	}
	metrics.CatalogLookups.WithLabelValues("miss").Inc()

	if err := r.cache.CacheBook(ctx, book, r.ttl); err != nil {
		r.logger.Warn("catalog cache write failed", "isbn", identifier, "error", err)
	}
	return book, nil
}
