package server

import (
	"net/http"

	"github.com/callflow-systems/callflow-stack/callsvc/internal/handlers"
)

// NewRouter constructs a ServeMux with the call service API routes
// registered.
func NewRouter(h *handlers.Handler) http.Handler {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", h.HealthCheck)

	mux.HandleFunc("/api/call-logs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			h.TriggerPoll(w, r)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/api/recordings", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			h.GetRecording(w, r)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/api/extensions", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			h.ListExtensions(w, r)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	return mux
}
