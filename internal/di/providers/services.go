package providers

import (
	"github.com/samber/do/v2"

	"github.com/bookscanapp/bookscan-server/internal/config"
	"github.com/bookscanapp/bookscan-server/internal/library"
	"github.com/bookscanapp/bookscan-server/internal/logger"
	"github.com/bookscanapp/bookscan-server/internal/scoring"
	"github.com/bookscanapp/bookscan-server/internal/service"
	"github.com/bookscanapp/bookscan-server/internal/validation"
)

// ProvideValidator provides the struct validator.
func ProvideValidator(i do.Injector) (*validation.Validator, error) {
	return validation.New(), nil
}

// ProvideLibraryManager provides the library state manager.
func ProvideLibraryManager(i do.Injector) (*library.Manager, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return library.NewManager(storeHandle.Store, log.Logger), nil
}

// ProvideProfileService provides the profile service.
func ProvideProfileService(i do.Injector) (*service.ProfileService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	validator := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewProfileService(storeHandle.Store, validator, log.Logger), nil
}

// ProvideStatsService provides the reading stats service.
func ProvideStatsService(i do.Injector) (*service.StatsService, error) {
	lib := do.MustInvoke[*library.Manager](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewStatsService(lib, storeHandle.Store, log.Logger), nil
}

// ScanServiceHandle wraps the scan service so in-flight predictions are
// drained on shutdown.
type ScanServiceHandle struct {
	*service.ScanService
}

// Shutdown implements do.Shutdownable.
func (h *ScanServiceHandle) Shutdown() error {
	h.Close()
	return nil
}

// ProvideScanService provides the scan pipeline.
func ProvideScanService(i do.Injector) (*ScanServiceHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	catalogHandle := do.MustInvoke[*CatalogHandle](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	lib := do.MustInvoke[*library.Manager](i)
	engine := do.MustInvoke[*scoring.Engine](i)
	log := do.MustInvoke[*logger.Logger](i)

	events := do.MustInvoke[*EventsHandle](i)

	scans := service.NewScanService(
		catalogHandle.CachedResolver,
		storeHandle.Store,
		lib,
		engine,
		cfg.Scan.CandidateTTL,
		log.Logger,
	)
	scans.SetEventEmitter(events.Manager)
	return &ScanServiceHandle{ScanService: scans}, nil
}
