package server

import (
	"net/http"

	"github.com/callflow-systems/callflow-stack/leadsvc/internal/handlers"
)

// NewRouter constructs a ServeMux with the lead service API routes
// registered.
func NewRouter(h *handlers.Handler) http.Handler {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", h.HealthCheck)

	mux.HandleFunc("/api/leads", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			h.CreateLead(w, r)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/api/leads/search", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			h.SearchLeads(w, r)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/api/leads/notes", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			h.AddNote(w, r)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/api/leads/attachments", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			h.AttachRecording(w, r)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/api/lead-owners", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			h.ListOwners(w, r)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	return mux
}
