// Package handlers implements the admin console's REST façade over the
// other CallFlow services.
package handlers

import (
	"bytes"
	"io"
	"net/http"
	"time"

	"github.com/callflow-systems/callflow-stack/admin/internal/health"
	"github.com/callflow-systems/callflow-stack/common/httputil"
	"github.com/callflow-systems/callflow-stack/common/logging"
)

// Handler holds the dependencies of the admin HTTP handlers.
type Handler struct {
	checker    *health.Checker
	callsvcURL string
	client     *http.Client
	log        *logging.Logger
	started    time.Time
}

// NewHandler creates a Handler. callsvcURL is the base URL the process
// trigger proxies to.
func NewHandler(checker *health.Checker, callsvcURL string, log *logging.Logger) *Handler {
	return &Handler{
		checker:    checker,
		callsvcURL: callsvcURL,
		client:     &http.Client{Timeout: 30 * time.Second},
		log:        log,
		started:    time.Now(),
	}
}

// HealthCheck reports the admin service's own liveness.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "healthy",
		"service":        "admin",
		"uptime_seconds": int(time.Since(h.started).Seconds()),
	})
}

// AggregateHealth polls every configured service and returns the
// aggregate report. The HTTP status mirrors the aggregate: 200 only when
// everything is healthy.
func (h *Handler) AggregateHealth(w http.ResponseWriter, r *http.Request) {
	report := h.checker.Check(r.Context())
	code := http.StatusOK
	if report.Status != health.StatusHealthy {
		code = http.StatusServiceUnavailable
	}
	httputil.WriteJSON(w, code, report)
}

// ListServices returns the configured service registry.
func (h *Handler) ListServices(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"services": h.checker.Services(),
	})
}

// TriggerProcess proxies a call-log processing trigger to the call
// service, passing the request body through untouched.
func (h *Handler) TriggerProcess(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodPost, h.callsvcURL+"/api/call-logs", bytes.NewReader(body))
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.ContentLength = int64(len(body))

	resp, err := h.client.Do(req)
	if err != nil {
		h.log.Error("process trigger failed", logging.Error(err))
		httputil.WriteJSON(w, http.StatusBadGateway, map[string]interface{}{
			"success": false,
			"message": "call service unreachable: " + err.Error(),
		})
		return
	}
	defer resp.Body.Close()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.StatusCode)
	io.Copy(w, resp.Body)
}
