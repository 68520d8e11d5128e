// Package di provides dependency injection configuration for the BookScan server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/bookscanapp/bookscan-server/internal/config"
	"github.com/bookscanapp/bookscan-server/internal/di/providers"
	"github.com/bookscanapp/bookscan-server/internal/library"
	"github.com/bookscanapp/bookscan-server/internal/logger"
	"github.com/bookscanapp/bookscan-server/internal/scoring"
	"github.com/bookscanapp/bookscan-server/internal/service"
	"github.com/bookscanapp/bookscan-server/internal/validation"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideValidator)

	// Storage layer
	do.Provide(injector, providers.ProvideStore)

	// Outbound clients
	do.Provide(injector, providers.ProvideCatalog)
	do.Provide(injector, providers.ProvidePredictor)
	do.Provide(injector, providers.ProvideScoringEngine)

	// Business services
	do.Provide(injector, providers.ProvideLibraryManager)
	do.Provide(injector, providers.ProvideProfileService)
	do.Provide(injector, providers.ProvideStatsService)
	do.Provide(injector, providers.ProvideEvents)
	do.Provide(injector, providers.ProvideScanService)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and starts the HTTP server.
// Providers run lazily, so this is where configuration errors surface.
func Bootstrap(injector *do.RootScope) error {
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*validation.Validator](injector)

	if _, err := do.Invoke[*providers.StoreHandle](injector); err != nil {
		return err
	}

	_ = do.MustInvoke[*providers.CatalogHandle](injector)
	_ = do.MustInvoke[*providers.PredictorHandle](injector)
	_ = do.MustInvoke[*scoring.Engine](injector)

	_ = do.MustInvoke[*library.Manager](injector)
	_ = do.MustInvoke[*service.ProfileService](injector)
	_ = do.MustInvoke[*service.StatsService](injector)
	_ = do.MustInvoke[*providers.EventsHandle](injector)
	_ = do.MustInvoke[*providers.ScanServiceHandle](injector)

	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	return nil
}
