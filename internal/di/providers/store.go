package providers

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/do/v2"

	"github.com/bookscanapp/bookscan-server/internal/config"
	"github.com/bookscanapp/bookscan-server/internal/logger"
	"github.com/bookscanapp/bookscan-server/internal/store"
)

// StoreHandle wraps the store with shutdown capability.
type StoreHandle struct {
	*store.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore opens the configured persistence backend.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	var (
		backend store.Backend
		err     error
	)
	switch cfg.Store.Backend {
	case config.BackendRedis:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		backend, err = store.OpenRedis(ctx, store.RedisOptions{
			Addr:     cfg.Store.RedisAddr,
			Password: cfg.Store.RedisPassword,
			DB:       cfg.Store.RedisDB,
		}, log.Logger)
	case config.BackendMemory:
		backend, err = store.OpenBadgerInMemory(log.Logger)
		log.Warn("Using in-memory store, data is lost on restart")
	default:
		backend, err = store.OpenBadger(cfg.Store.DataPath, log.Logger)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Store.Backend, err)
	}

	log.Info("Store initialized", "backend", cfg.Store.Backend, "path", cfg.Store.DataPath)

	return &StoreHandle{Store: store.New(backend, log.Logger)}, nil
}
