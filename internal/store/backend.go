package store

import (
	"context"
	"errors"
	"time"
)

// ErrKeyNotFound is returned by a Backend when a key is absent or expired.
var ErrKeyNotFound = errors.New("store: key not found")

// Backend is a key-value substrate holding opaque documents.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value under key. A ttl of zero means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}
