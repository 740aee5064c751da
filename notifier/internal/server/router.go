package server

import (
	"net/http"

	"github.com/callflow-systems/callflow-stack/notifier/internal/handlers"
)

// NewRouter constructs a ServeMux with the notifier API routes
// registered.
func NewRouter(h *handlers.Handler) http.Handler {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", h.HealthCheck)

	mux.HandleFunc("/api/email", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			h.SendEmail(w, r)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/api/config", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			h.GetConfig(w, r)
		} else if r.Method == http.MethodPut {
			h.UpdateConfig(w, r)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	return mux
}
