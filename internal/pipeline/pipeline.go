// Package pipeline chains the processing stages for one recording and runs
// independent recordings on a worker pool.
package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/himanishpuri/CardioDNA/internal/detector"
	"github.com/himanishpuri/CardioDNA/internal/ecg"
	"github.com/himanishpuri/CardioDNA/internal/hrv"
	"github.com/himanishpuri/CardioDNA/internal/match"
	"github.com/himanishpuri/CardioDNA/internal/preprocess"
	"github.com/himanishpuri/CardioDNA/internal/refine"
	"github.com/himanishpuri/CardioDNA/internal/rr"
)

// DefaultTolerance is the matching window in seconds.
const DefaultTolerance = 0.05

// Config is everything that controls a run. It is a plain value and safe to
// share between goroutines.
type Config struct {
	Detector        string            `json:"detector"`
	DetectorOptions json.RawMessage   `json:"detector_options,omitempty"`
	Preprocess      preprocess.Config `json:"preprocess"`
	Refine          refine.Config     `json:"refine"`
	Limits          rr.Limits         `json:"limits"`
	Tolerance       float64           `json:"tolerance"`
}

func DefaultConfig() Config {
	return Config{
		Detector:   detector.Default,
		Preprocess: preprocess.DefaultConfig(),
		Refine:     refine.DefaultConfig(),
		Limits:     rr.DefaultLimits(),
		Tolerance:  DefaultTolerance,
	}
}

// Validate checks every rate-independent part of the config. The preprocessing
// band can only be checked against a concrete sampling rate, in Run.
func (c Config) Validate() error {
	if _, err := detector.New(c.Detector, c.DetectorOptions); err != nil {
		return err
	}
	if err := c.Refine.Validate(); err != nil {
		return err
	}
	if err := c.Limits.Validate(); err != nil {
		return err
	}
	if c.Tolerance < 0 || math.IsNaN(c.Tolerance) {
		return fmt.Errorf("%w: tolerance %v", ecg.ErrInvalidConfig, c.Tolerance)
	}
	return nil
}

// Report is the outcome of one run. Candidates and Beats are indices at the
// input signal's rate.
type Report struct {
	Detector   string        `json:"detector"`
	Rate       float64       `json:"rate"`
	Samples    int           `json:"samples"`
	Candidates ecg.Beats     `json:"candidates"`
	Beats      ecg.Beats     `json:"beats"`
	RR         rr.Series     `json:"rr"`
	HRV        *hrv.Features `json:"hrv,omitempty"`   // nil when too few intervals
	Match      *match.Result `json:"match,omitempty"` // nil without a reference
}

// Duration of the analysed recording in seconds.
func (r Report) Duration() float64 {
	if r.Rate <= 0 {
		return 0
	}
	return float64(r.Samples) / r.Rate
}

// Run processes one recording. reference may be nil; when given it must be a
// valid beat sequence for sig and the refined beats are scored against it.
func Run(sig ecg.Signal, reference ecg.Beats, cfg Config) (Report, error) {
	if sig.IsZero() {
		return Report{}, fmt.Errorf("%w: empty signal", ecg.ErrInvalidInput)
	}
	if err := cfg.Validate(); err != nil {
		return Report{}, err
	}
	if reference != nil {
		if err := reference.Validate(sig.Len()); err != nil {
			return Report{}, fmt.Errorf("reference: %w", err)
		}
	}

	det, err := detector.New(cfg.Detector, cfg.DetectorOptions)
	if err != nil {
		return Report{}, err
	}
	prepared, err := preprocess.Prepare(sig, cfg.Preprocess)
	if err != nil {
		return Report{}, err
	}
	candidates, err := det.Detect(prepared)
	if err != nil {
		return Report{}, fmt.Errorf("%s: %w", det.Name(), err)
	}
	candidates = candidates.Rescale(prepared.Rate(), sig.Rate(), sig.Len())

	// Refinement looks at the unfiltered samples so beats land on the recorded peak.
	beats, err := refine.Refine(sig, candidates, cfg.Refine)
	if err != nil {
		return Report{}, err
	}

	series, err := rr.ToRR(beats, sig.Rate(), cfg.Limits)
	if err != nil {
		return Report{}, err
	}

	rep := Report{
		Detector:   det.Name(),
		Rate:       sig.Rate(),
		Samples:    sig.Len(),
		Candidates: candidates,
		Beats:      beats,
		RR:         series,
	}

	features, err := hrv.Compute(series)
	switch {
	case err == nil:
		rep.HRV = &features
	case !errors.Is(err, hrv.ErrTooFewIntervals):
		return Report{}, err
	}

	if reference != nil {
		res, err := match.Match(beats, reference, cfg.Tolerance, sig.Rate())
		if err != nil {
			return Report{}, err
		}
		rep.Match = &res
	}
	return rep, nil
}
