package main

import (
	"fmt"

	"github.com/himanishpuri/CardioDNA/pkg/models"
)

const (
	// MaxUploadBytes caps request bodies, JSON or multipart.
	MaxUploadBytes = 64 << 20

	// MaxSamples is about 24 hours at 100 Hz.
	MaxSamples = 10_000_000
)

// AnalyzeRequest is the request body for POST /api/analyze
type AnalyzeRequest struct {
	Source    string    `json:"source"`
	Rate      float64   `json:"rate"`
	Samples   []float64 `json:"samples"`
	Reference []int     `json:"reference,omitempty"`
}

// Validate checks the request size. Signal content is checked by the service.
func (r *AnalyzeRequest) Validate() error {
	if len(r.Samples) == 0 {
		return fmt.Errorf("samples cannot be empty")
	}
	if len(r.Samples) > MaxSamples {
		return fmt.Errorf("too many samples: %d (maximum: %d)", len(r.Samples), MaxSamples)
	}
	return nil
}

// ListRunsResponse is the response for GET /api/runs
type ListRunsResponse struct {
	Runs  []models.Run `json:"runs"`
	Count int          `json:"count"`
}

// BeatsResponse is the response for GET /api/runs/{id}/beats
type BeatsResponse struct {
	RunID string        `json:"run_id"`
	Beats []models.Beat `json:"beats"`
	Count int           `json:"count"`
}

// DeleteRunResponse is the response for DELETE /api/runs/{id}
type DeleteRunResponse struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}

type DetectorsResponse struct {
	Detectors []string `json:"detectors"`
	Default   string   `json:"default"`
}

// ErrorResponse is the standard error response format
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}
