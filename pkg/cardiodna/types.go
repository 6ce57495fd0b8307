package cardiodna

import (
	"errors"

	"github.com/himanishpuri/CardioDNA/internal/ecg"
	"github.com/himanishpuri/CardioDNA/internal/storage"
	"github.com/himanishpuri/CardioDNA/pkg/models"
)

var (
	ErrInvalidConfig = ecg.ErrInvalidConfig
	ErrInvalidInput  = ecg.ErrInvalidInput
	ErrInvalidLimits = ecg.ErrInvalidLimits
	ErrRunNotFound   = storage.ErrRunNotFound
	ErrNoStorage     = errors.New("storage disabled")
)

// Recording is a single-lead ECG to analyse.
type Recording struct {
	Source    string    `json:"source"`
	Rate      float64   `json:"rate"`                // Hz
	Samples   []float64 `json:"samples"`             // amplitude, any unit
	Reference []int     `json:"reference,omitempty"` // annotated R-peak sample indices
}

// Analysis is the outcome of analysing one recording. Run.ID is empty when
// storage is disabled.
type Analysis struct {
	Run        models.Run    `json:"run"`
	Beats      []models.Beat `json:"beats"`
	Candidates []int         `json:"candidates"`
	Missed     []int         `json:"missed,omitempty"` // reference beats nothing was detected for
	Extra      []int         `json:"extra,omitempty"`  // detected beats absent from the reference
}

// BatchItem names a WAV file and optional annotation file.
type BatchItem struct {
	WAVPath         string
	AnnotationsPath string
	Channel         int
}

type BatchResult struct {
	Source   string
	Analysis *Analysis
	Err      error
}

// BatchSummary pools the recordings of a batch. Scores cover the recordings
// that had a reference.
type BatchSummary struct {
	Recordings  int     `json:"recordings"`
	Failed      int     `json:"failed"`
	Beats       int     `json:"beats"`
	Scored      int     `json:"scored"`
	TP          int     `json:"tp"`
	FP          int     `json:"fp"`
	FN          int     `json:"fn"`
	Sensitivity float64 `json:"sensitivity"`
	Precision   float64 `json:"precision"`
	F1          float64 `json:"f1"`
}
