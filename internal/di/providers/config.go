// Package providers contains dependency injection providers for the BookScan server.
package providers

import (
	"github.com/samber/do/v2"

	"github.com/bookscanapp/bookscan-server/internal/config"
	"github.com/bookscanapp/bookscan-server/internal/logger"
)

// Version is stamped at build time with -ldflags "-X ...providers.Version=...".
var Version = "dev"

// ProvideConfig provides the application configuration.
func ProvideConfig(i do.Injector) (*config.Config, error) {
	return config.LoadConfig()
}

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		AddSource:   cfg.App.Environment == "development",
		Environment: cfg.App.Environment,
	})

	log.Info("Starting BookScan Server",
		"version", Version,
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"store", cfg.Store.Backend,
		"predictor", cfg.Predictor.Provider,
		"model", cfg.Predictor.Model,
	)

	return log, nil
}
