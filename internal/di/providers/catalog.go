package providers

import (
	"github.com/samber/do/v2"

	"github.com/bookscanapp/bookscan-server/internal/catalog"
	"github.com/bookscanapp/bookscan-server/internal/catalog/googlebooks"
	"github.com/bookscanapp/bookscan-server/internal/config"
	"github.com/bookscanapp/bookscan-server/internal/logger"
)

// CatalogHandle is the cached Google Books resolver.
type CatalogHandle struct {
	*catalog.CachedResolver
	client *googlebooks.Client
}

// Shutdown implements do.Shutdownable.
func (h *CatalogHandle) Shutdown() error {
	h.client.Close()
	return nil
}

// ProvideCatalog provides the book catalog, cached in the store.
func ProvideCatalog(i do.Injector) (*CatalogHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	client := googlebooks.New(googlebooks.Options{
		BaseURL: cfg.Catalog.BaseURL,
		APIKey:  cfg.Catalog.APIKey,
		Timeout: cfg.Catalog.Timeout,
	}, log.Logger)

	return &CatalogHandle{
		CachedResolver: catalog.NewCachedResolver(client, storeHandle.Store, cfg.Store.CatalogCacheTTL, log.Logger),
		client:         client,
	}, nil
}
