package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/samber/do/v2"

	"github.com/bookscanapp/bookscan-server/internal/api"
	"github.com/bookscanapp/bookscan-server/internal/config"
	"github.com/bookscanapp/bookscan-server/internal/library"
	"github.com/bookscanapp/bookscan-server/internal/logger"
	"github.com/bookscanapp/bookscan-server/internal/scoring"
	"github.com/bookscanapp/bookscan-server/internal/service"
)

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
	api *api.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := h.Server.Shutdown(ctx)
	h.api.Close()
	return err
}

// ProvideHTTPServer provides the HTTP server and starts listening.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)
	events := do.MustInvoke[*EventsHandle](i)

	services := api.Services{
		Profiles: do.MustInvoke[*service.ProfileService](i),
		Library:  do.MustInvoke[*library.Manager](i),
		Stats:    do.MustInvoke[*service.StatsService](i),
		Scans:    do.MustInvoke[*ScanServiceHandle](i).ScanService,
		Scoring:  do.MustInvoke[*scoring.Engine](i),
		Events:   events.Manager,
	}

	apiServer := api.NewServer(services, storeHandle.Store, api.Options{
		Version:        Version,
		CORSOrigins:    cfg.Server.CORSOrigins,
		RateLimitRPS:   cfg.Server.RateLimitRPS,
		RateLimitBurst: cfg.Server.RateLimitBurst,
		// Leave room inside the write timeout for encoding the response.
		ScanWait: max(cfg.Server.WriteTimeout-5*time.Second, cfg.Server.WriteTimeout/2),
	}, log.WithComponent("http").Logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      apiServer,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	// Open event streams never go idle, so end them before the server drains.
	srv.RegisterOnShutdown(func() {
		if err := events.Manager.Shutdown(context.Background()); err != nil {
			log.Warn("Event stream shutdown failed", "error", err)
		}
	})

	go func() {
		log.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server failed", "error", fmt.Errorf("listen on %s: %w", srv.Addr, err))
		}
	}()

	return &HTTPServerHandle{Server: srv, api: apiServer}, nil
}
