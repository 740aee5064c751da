// Package handlers implements the call service's REST surface.
package handlers

import (
	"context"
	"encoding/base64"
	"net/http"
	"time"

	"github.com/callflow-systems/callflow-stack/callsvc/internal/poller"
	"github.com/callflow-systems/callflow-stack/callsvc/internal/telephony"
	"github.com/callflow-systems/callflow-stack/common/httputil"
	"github.com/callflow-systems/callflow-stack/common/logging"
	"github.com/callflow-systems/callflow-stack/common/messaging"
)

// Platform is the telephony surface the handlers depend on.
type Platform interface {
	Extensions(ctx context.Context) ([]telephony.Extension, error)
	RecordingContent(ctx context.Context, recordingID string) (string, []byte, error)
}

// Handler holds the dependencies of the call service's HTTP handlers.
type Handler struct {
	platform Platform
	poller   *poller.Poller
	bus      messaging.Client
	log      *logging.Logger
	started  time.Time
}

// NewHandler creates a Handler.
func NewHandler(platform Platform, p *poller.Poller, bus messaging.Client, log *logging.Logger) *Handler {
	return &Handler{
		platform: platform,
		poller:   p,
		bus:      bus,
		log:      log,
		started:  time.Now(),
	}
}

// HealthCheck reports service liveness and broker connectivity.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	code := http.StatusOK
	if !h.bus.IsConnected() {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	httputil.WriteJSON(w, code, map[string]interface{}{
		"status":         status,
		"service":        "callsvc",
		"uptime_seconds": int(time.Since(h.started).Seconds()),
		"bus_connected":  h.bus.IsConnected(),
	})
}

// TriggerPoll starts a call-log poll in the background and returns
// immediately. The optional hours_back field widens the lookback window.
func (h *Handler) TriggerPoll(w http.ResponseWriter, r *http.Request) {
	var req struct {
		HoursBack int `json:"hours_back"`
	}
	if r.ContentLength > 0 {
		if err := httputil.DecodeJSON(r, &req); err != nil {
			httputil.WriteError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
	}
	if req.HoursBack < 0 {
		httputil.WriteError(w, http.StatusBadRequest, "hours_back must be positive")
		return
	}

	// The poll outlives the request.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		if _, err := h.poller.PollOnce(ctx, req.HoursBack); err != nil {
			h.log.Error("triggered poll failed", logging.Error(err))
		}
	}()

	httputil.WriteJSON(w, http.StatusAccepted, map[string]interface{}{
		"success": true,
		"message": "call log processing started",
	})
}

// GetRecording fetches a recording's content from the telephony platform
// and returns it base64-encoded.
func (h *Handler) GetRecording(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RecordingID string `json:"recording_id"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.RecordingID == "" {
		httputil.WriteError(w, http.StatusBadRequest, "recording_id is required")
		return
	}

	contentType, content, err := h.platform.RecordingContent(r.Context(), req.RecordingID)
	if err != nil {
		h.log.Error("recording fetch failed",
			logging.RecordingID(req.RecordingID), logging.Error(err))
		httputil.WriteJSON(w, http.StatusBadGateway, map[string]interface{}{
			"success": false,
			"message": err.Error(),
		})
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":        true,
		"content_type":   contentType,
		"content_base64": base64.StdEncoding.EncodeToString(content),
	})
}

// ListExtensions returns the account's telephony extensions.
func (h *Handler) ListExtensions(w http.ResponseWriter, r *http.Request) {
	extensions, err := h.platform.Extensions(r.Context())
	if err != nil {
		h.log.Error("extension listing failed", logging.Error(err))
		httputil.WriteJSON(w, http.StatusBadGateway, map[string]interface{}{
			"success": false,
			"message": err.Error(),
		})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"extensions": extensions,
	})
}
