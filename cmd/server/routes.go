package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
)

// setupRoutes registers all HTTP routes and middleware
func (s *Server) setupRoutes() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/", s.handleRoot).Methods(http.MethodGet)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/detectors", s.handleDetectors).Methods(http.MethodGet)
	api.HandleFunc("/analyze", s.handleAnalyze).Methods(http.MethodPost)
	api.HandleFunc("/analyze/wav", s.handleAnalyzeWAV).Methods(http.MethodPost)
	api.HandleFunc("/runs", s.handleListRuns).Methods(http.MethodGet)
	api.HandleFunc("/runs/{id}", s.handleGetRun).Methods(http.MethodGet)
	api.HandleFunc("/runs/{id}", s.handleDeleteRun).Methods(http.MethodDelete)
	api.HandleFunc("/runs/{id}/beats", s.handleGetBeats).Methods(http.MethodGet)

	cors := handlers.CORS(
		handlers.AllowedOrigins(s.config.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-Requested-With"}),
		handlers.MaxAge(3600),
	)
	return cors(r)
}

// Start starts the HTTP server
func (s *Server) Start() error {
	handler := handlers.LoggingHandler(os.Stdout, s.setupRoutes())

	addr := fmt.Sprintf(":%d", s.config.Port)
	s.log.Infof("🚀 CardioDNA server starting on %s", addr)
	s.log.Infof("   Database: %s", s.config.DBPath)
	if s.config.NATSURL != "" {
		s.log.Infof("   NATS: %s", s.config.NATSURL)
	}
	s.log.Infof("   CORS Origins: %v", s.config.AllowedOrigins)
	s.log.Infof("\nEndpoints:")
	s.log.Infof("   GET    /health                  - Health check")
	s.log.Infof("   GET    /api/detectors           - Available detectors")
	s.log.Infof("   POST   /api/analyze             - Analyse samples sent as JSON")
	s.log.Infof("   POST   /api/analyze/wav         - Analyse an uploaded WAV file")
	s.log.Infof("   GET    /api/runs                - List runs")
	s.log.Infof("   GET    /api/runs/{id}           - Get run by ID")
	s.log.Infof("   GET    /api/runs/{id}/beats     - Beats of a run")
	s.log.Infof("   DELETE /api/runs/{id}           - Delete run by ID")

	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}
