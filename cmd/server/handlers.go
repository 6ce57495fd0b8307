package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/himanishpuri/CardioDNA/internal/detector"
	"github.com/himanishpuri/CardioDNA/internal/ecgio"
	"github.com/himanishpuri/CardioDNA/pkg/cardiodna"
	"github.com/himanishpuri/CardioDNA/pkg/logger"
)

// Server encapsulates the HTTP server and its dependencies
type Server struct {
	service cardiodna.Service
	config  *ServerConfig
	log     cardiodna.Logger
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int
	DBPath         string
	NATSURL        string
	AllowedOrigins []string
}

// NewServer creates a new server instance
func NewServer(service cardiodna.Service, config *ServerConfig) *Server {
	return &Server{
		service: service,
		config:  config,
		log:     logger.GetLogger().With("http"),
	}
}

// respondJSON writes a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Errorf("Failed to encode JSON response: %v", err)
	}
}

// respondError writes an error response
func (s *Server) respondError(w http.ResponseWriter, statusCode int, message string) {
	s.respondJSON(w, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	})
}

// respondServiceError maps a service error onto a status code.
func (s *Server) respondServiceError(w http.ResponseWriter, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		s.log.Errorf("Request failed: %v", err)
	} else {
		s.log.Debugf("Request rejected: %v", err)
	}
	s.respondError(w, code, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, cardiodna.ErrInvalidInput),
		errors.Is(err, cardiodna.ErrInvalidConfig),
		errors.Is(err, cardiodna.ErrInvalidLimits):
		return http.StatusBadRequest
	case errors.Is(err, cardiodna.ErrRunNotFound):
		return http.StatusNotFound
	case errors.Is(err, cardiodna.ErrNoStorage):
		return http.StatusNotImplemented
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// handleRoot handles GET /
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]any{
		"service": "CardioDNA API",
		"version": "1.0.0",
		"endpoints": map[string]string{
			"health":     "GET /health",
			"detectors":  "GET /api/detectors",
			"analyze":    "POST /api/analyze",
			"analyzeWAV": "POST /api/analyze/wav",
			"runs":       "GET /api/runs",
			"getRun":     "GET /api/runs/{id}",
			"getBeats":   "GET /api/runs/{id}/beats",
			"deleteRun":  "DELETE /api/runs/{id}",
		},
	})
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// handleDetectors handles GET /api/detectors
func (s *Server) handleDetectors(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, DetectorsResponse{
		Detectors: s.service.Detectors(),
		Default:   detector.Default,
	})
}

// handleAnalyze handles POST /api/analyze
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("Invalid JSON body: %v", err))
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Source == "" {
		req.Source = "api"
	}

	a, err := s.service.Analyze(ctx, cardiodna.Recording{
		Source:    req.Source,
		Rate:      req.Rate,
		Samples:   req.Samples,
		Reference: req.Reference,
	})
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, a)
}

// handleAnalyzeWAV handles POST /api/analyze/wav. The form carries the
// recording in "ecg", optional reference beats in "annotations" and an
// optional "channel".
func (s *Server) handleAnalyzeWAV(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		s.respondError(w, http.StatusBadRequest, "Failed to parse form data")
		return
	}

	file, header, err := r.FormFile("ecg")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "ecg file is required")
		return
	}
	defer file.Close()

	channel := 0
	if v := r.FormValue("channel"); v != "" {
		channel, err = strconv.Atoi(v)
		if err != nil || channel < 0 {
			s.respondError(w, http.StatusBadRequest, "channel must be a non-negative integer")
			return
		}
	}

	var reference []int
	if ann, _, err := r.FormFile("annotations"); err == nil {
		defer ann.Close()
		beats, err := ecgio.ParseAnnotations(ann)
		if err != nil {
			s.respondServiceError(w, fmt.Errorf("annotations: %w", err))
			return
		}
		reference = []int(beats)
	}

	s.log.Infof("Analysing uploaded file: %s", header.Filename)
	a, err := s.service.AnalyzeWAV(ctx, file, header.Filename, reference, channel)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, a)
}

// handleListRuns handles GET /api/runs?limit=n
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = n
	}

	runs, err := s.service.ListRuns(limit)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, ListRunsResponse{Runs: runs, Count: len(runs)})
}

// handleGetRun handles GET /api/runs/{id}
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.service.GetRun(mux.Vars(r)["id"])
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, run)
}

// handleGetBeats handles GET /api/runs/{id}/beats
func (s *Server) handleGetBeats(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	beats, err := s.service.GetBeats(id)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, BeatsResponse{RunID: id, Beats: beats, Count: len(beats)})
}

// handleDeleteRun handles DELETE /api/runs/{id}
func (s *Server) handleDeleteRun(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.service.DeleteRun(id); err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.log.Infof("Deleted run %s", id)
	s.respondJSON(w, http.StatusOK, DeleteRunResponse{Message: "Run deleted", ID: id})
}
