package sse

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	json "github.com/goccy/go-json"

	"github.com/bookscanapp/bookscan-server/internal/http/response"
)

const heartbeatInterval = 30 * time.Second

// Handler streams a reader's events at GET /api/v1/events.
//
// Browsers cannot set headers on an EventSource, so the reader may also be
// given as the "reader" query parameter.
type Handler struct {
	manager *Manager
	logger  *slog.Logger
}

// NewHandler creates a new SSE Handler.
func NewHandler(manager *Manager, logger *slog.Logger) *Handler {
	return &Handler{
		manager: manager,
		logger:  logger,
	}
}

// ServeHTTP handles the SSE connection.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	readerID := r.Header.Get("X-Reader-ID")
	if readerID == "" {
		readerID = r.URL.Query().Get("reader")
	}
	if readerID == "" {
		response.BadRequest(w, "X-Reader-ID header or reader query parameter is required", h.logger)
		return
	}

	if r.Context().Err() != nil {
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	rc := http.NewResponseController(w)

	if err := rc.Flush(); err != nil {
		h.logger.Error("failed to flush headers", slog.String("error", err.Error()))
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	client, err := h.manager.Connect(readerID)
	if err != nil {
		h.logger.Error("failed to register SSE client", slog.String("error", err.Error()))
		http.Error(w, "Failed to establish connection", http.StatusInternalServerError)
		return
	}
	defer h.manager.Disconnect(client.ID)

	clientLogger := h.logger.With(slog.String("client_id", client.ID))

	if err := h.sendEvent(w, rc, "connected", map[string]string{
		"client_id": client.ID,
	}); err != nil {
		clientLogger.Warn("failed to send initial connection message", slog.String("error", err.Error()))
		return
	}

	ctx := r.Context()
	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case event, ok := <-client.EventChan:
			if !ok {
				clientLogger.Debug("client closed by manager")
				return
			}
			if err := h.sendEvent(w, rc, string(event.Type), event); err != nil {
				clientLogger.Debug("client disconnected during send")
				return
			}

		case <-heartbeat.C:
			hb := NewHeartbeatEvent()
			if err := h.sendEvent(w, rc, string(hb.Type), hb); err != nil {
				clientLogger.Debug("client disconnected during heartbeat")
				return
			}

		case <-client.Done:
			clientLogger.Debug("client closed by manager")
			return

		case <-ctx.Done():
			return
		}
	}
}

// sendEvent writes one "event:/data:" frame and flushes it.
func (h *Handler) sendEvent(w http.ResponseWriter, rc *http.ResponseController, eventType string, data any) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}

	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, jsonData); err != nil {
		return err
	}

	if err := rc.Flush(); err != nil {
		return err
	}

	// Not every ResponseWriter supports deadlines.
	if err := rc.SetWriteDeadline(time.Now().Add(2 * heartbeatInterval)); err != nil {
		h.logger.Debug("failed to set write deadline", slog.String("error", err.Error()))
	}

	return nil
}
