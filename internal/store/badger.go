package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// BadgerBackend stores documents in an embedded Badger database.
type BadgerBackend struct {
	db     *badger.DB
	logger *slog.Logger
}

var _ Backend = (*BadgerBackend)(nil)

// OpenBadger opens (or creates) a Badger database at path.
func OpenBadger(path string, logger *slog.Logger) (*BadgerBackend, error) {
	opts := badger.DefaultOptions(path)
	opts.SyncWrites = true
	opts.CompactL0OnClose = true
	return openBadger(opts, logger)
}

// OpenBadgerInMemory opens a Badger database that lives only in memory.
func OpenBadgerInMemory(logger *slog.Logger) (*BadgerBackend, error) {
	return openBadger(badger.DefaultOptions("").WithInMemory(true), logger)
}

func openBadger(opts badger.Options, logger *slog.Logger) (*BadgerBackend, error) {
	opts.Logger = nil // Badger's own logging is too chatty

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	logger.Info("Badger database opened", "path", opts.Dir, "in_memory", opts.InMemory)
	return &BadgerBackend{db: db, logger: logger}, nil
}

// Get implements Backend.
func (b *BadgerBackend) Get(_ context.Context, key string) ([]byte, error) {
	var value []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("badger get %s: %w", key, err)
	}
	return value, nil
}

// Set implements Backend.
func (b *BadgerBackend) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(key), value)
		if ttl > 0 {
			e = e.WithTTL(ttl)
		}
		return txn.SetEntry(e)
	})
	if err != nil {
		return fmt.Errorf("badger set %s: %w", key, err)
	}
	return nil
}

// Delete implements Backend.
func (b *BadgerBackend) Delete(_ context.Context, key string) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("badger delete %s: %w", key, err)
	}
	return nil
}

// Ping implements Backend.
func (b *BadgerBackend) Ping(_ context.Context) error {
	if b.db.IsClosed() {
		return errors.New("badger db is closed")
	}
	return nil
}

// Close implements Backend.
func (b *BadgerBackend) Close() error {
	b.logger.Info("Closing Badger database")
	return b.db.Close()
}
