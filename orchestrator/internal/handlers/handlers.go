// Package handlers implements the orchestrator's REST surface: health
// reporting and manual reprocessing of call events.
package handlers

import (
	"net/http"
	"time"

	"github.com/callflow-systems/callflow-stack/common/httputil"
	"github.com/callflow-systems/callflow-stack/common/logging"
	"github.com/callflow-systems/callflow-stack/common/messaging"
	"github.com/callflow-systems/callflow-stack/orchestrator/internal/workflow"
)

// Handler holds the dependencies of the orchestrator's HTTP handlers.
type Handler struct {
	engine  *workflow.Engine
	bus     messaging.Client
	log     *logging.Logger
	started time.Time
}

// NewHandler creates a Handler.
func NewHandler(engine *workflow.Engine, bus messaging.Client, log *logging.Logger) *Handler {
	return &Handler{
		engine:  engine,
		bus:     bus,
		log:     log,
		started: time.Now(),
	}
}

// HealthCheck reports service liveness, broker connectivity and the
// topics the workflow engine consumes.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	code := http.StatusOK
	if !h.bus.IsConnected() {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	httputil.WriteJSON(w, code, map[string]interface{}{
		"status":         status,
		"service":        "orchestrator",
		"uptime_seconds": int(time.Since(h.started).Seconds()),
		"bus_connected":  h.bus.IsConnected(),
		"topics":         h.engine.SubscribedTopics(),
	})
}

// ProcessCall runs the lead workflow for a call event posted directly to
// the service, bypassing the bus. Used by the admin console to reprocess
// calls that were dropped or failed.
func (h *Handler) ProcessCall(w http.ResponseWriter, r *http.Request) {
	var data messaging.CallLoggedData
	if err := httputil.DecodeJSON(r, &data); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if data.Call.ID == "" {
		httputil.WriteError(w, http.StatusBadRequest, "call.id is required")
		return
	}
	if data.ProcessedTime.IsZero() {
		data.ProcessedTime = time.Now()
	}

	h.log.Info("manual call reprocess requested", logging.CallID(data.Call.ID))
	if err := h.engine.ProcessCall(r.Context(), &data); err != nil {
		httputil.WriteError(w, http.StatusBadGateway, err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"callId":  data.Call.ID,
	})
}
