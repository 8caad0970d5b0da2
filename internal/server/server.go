// Package server provides the HTTP server for the bodystats hand-height service.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/ayusman/bodystats/internal/app"
	"github.com/ayusman/bodystats/internal/server/api"
)

// Config holds the server configuration.
type Config struct {
	StaticDir string
	App       *app.App
}

// Server represents the HTTP server for the bodystats application.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
	hub    *ReportHub
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if a := s.config.App; a != nil {
		s.mux.Handle("/api/updates", api.NewUpdatesHandler(a))

		bodies := api.NewBodiesHandler(a)
		s.mux.Handle("/api/bodies", bodies)
		s.mux.Handle("/api/bodies/", bodies)

		// Every batch of reports is pushed to websocket clients
		s.hub = NewReportHub()
		a.Subscribe(s.hub.Broadcast)
		s.mux.Handle("/api/stream", s.hub)

		// Recorded sessions are only available with a store
		if st := a.Store(); st != nil {
			sessions := api.NewSessionsHandler(st)
			s.mux.Handle("/api/sessions", sessions)
			s.mux.Handle("/api/sessions/", sessions)
		}
	}

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Hub returns the websocket report hub, or nil when no application is configured.
func (s *Server) Hub() *ReportHub {
	return s.hub
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(s.start)

	response := map[string]interface{}{
		"status":  "ok",
		"uptime":  uptime.String(),
		"started": humanize.Time(s.start),
	}
	if s.config.App != nil {
		response["bodies"] = len(s.config.App.Registry().List())
		response["dropped_updates"] = s.config.App.Dropped()
	}
	if s.hub != nil {
		response["stream_clients"] = s.hub.Clients()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s)
}
