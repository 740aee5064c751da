// Package handlers implements the notifier's REST surface: ad-hoc email
// sending and runtime notification configuration.
package handlers

import (
	"net/http"
	"time"

	"github.com/callflow-systems/callflow-stack/common/httputil"
	"github.com/callflow-systems/callflow-stack/common/logging"
	"github.com/callflow-systems/callflow-stack/common/messaging"
	"github.com/callflow-systems/callflow-stack/notifier/internal/mailer"
	"github.com/callflow-systems/callflow-stack/notifier/internal/notify"
)

// Handler holds the dependencies of the notifier's HTTP handlers.
type Handler struct {
	notifier *notify.Notifier
	sender   mailer.Sender
	bus      messaging.Client
	log      *logging.Logger
	started  time.Time
}

// NewHandler creates a Handler.
func NewHandler(n *notify.Notifier, sender mailer.Sender, bus messaging.Client, log *logging.Logger) *Handler {
	return &Handler{
		notifier: n,
		sender:   sender,
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
		"service":        "notifier",
		"uptime_seconds": int(time.Since(h.started).Seconds()),
		"bus_connected":  h.bus.IsConnected(),
		"enabled":        h.notifier.Settings().Enabled,
	})
}

// SendEmail sends an ad-hoc email, bypassing templates and the enabled
// flag.
func (h *Handler) SendEmail(w http.ResponseWriter, r *http.Request) {
	var req struct {
		To      []string `json:"to"`
		Cc      []string `json:"cc"`
		Bcc     []string `json:"bcc"`
		Subject string   `json:"subject"`
		Body    string   `json:"body"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(req.To) == 0 || req.Subject == "" {
		httputil.WriteError(w, http.StatusBadRequest, "to and subject are required")
		return
	}

	err := h.sender.Send(r.Context(), &mailer.Message{
		To:      req.To,
		Cc:      req.Cc,
		Bcc:     req.Bcc,
		Subject: req.Subject,
		Body:    req.Body,
	})
	if err != nil {
		h.log.Error("ad-hoc email send failed", logging.Error(err))
		httputil.WriteJSON(w, http.StatusBadGateway, map[string]interface{}{
			"success": false,
			"message": err.Error(),
		})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// GetConfig returns the current notification settings.
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.notifier.Settings())
}

// UpdateConfig replaces the notification settings.
func (h *Handler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	var settings notify.Settings
	if err := httputil.DecodeJSON(r, &settings); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	h.notifier.UpdateSettings(settings)
	h.log.Info("notification settings updated",
		"enabled", settings.Enabled, "recipients", len(settings.Recipients))
	httputil.WriteJSON(w, http.StatusOK, h.notifier.Settings())
}
