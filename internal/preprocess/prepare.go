// Package preprocess conditions raw ECG for beat detection: a zero-phase
// bandpass removes baseline wander and high-frequency noise, then an optional
// band-limited decimation lowers the rate the detectors work at.
package preprocess

import (
	"fmt"
	"math"

	"github.com/himanishpuri/CardioDNA/internal/ecg"
)

// Config holds the conditioning parameters. A zero TargetRate keeps the input rate.
type Config struct {
	LowCut     float64 `json:"low_cut"`     // Hz
	HighCut    float64 `json:"high_cut"`    // Hz
	TargetRate float64 `json:"target_rate"` // Hz, 0 keeps the original rate
	Order      int     `json:"order"`       // second-order sections per band edge
}

// DefaultConfig passes the QRS band and keeps the original rate.
func DefaultConfig() Config {
	return Config{
		LowCut:  5,
		HighCut: 30,
		Order:   2,
	}
}

// Validate checks cfg against an input sampled at rate.
func (c Config) Validate(rate float64) error {
	switch {
	case c.LowCut <= 0 || c.HighCut <= 0:
		return fmt.Errorf("%w: band edges must be positive (low=%v high=%v)", ecg.ErrInvalidConfig, c.LowCut, c.HighCut)
	case c.LowCut >= c.HighCut:
		return fmt.Errorf("%w: low cut %v Hz must be below high cut %v Hz", ecg.ErrInvalidConfig, c.LowCut, c.HighCut)
	case c.HighCut >= rate/2:
		return fmt.Errorf("%w: high cut %v Hz at or above Nyquist %v Hz", ecg.ErrInvalidConfig, c.HighCut, rate/2)
	case c.TargetRate < 0:
		return fmt.Errorf("%w: negative target rate %v", ecg.ErrInvalidConfig, c.TargetRate)
	case c.TargetRate > rate:
		return fmt.Errorf("%w: target rate %v Hz exceeds input rate %v Hz", ecg.ErrInvalidConfig, c.TargetRate, rate)
	case c.Order < 1:
		return fmt.Errorf("%w: filter order must be at least 1, got %d", ecg.ErrInvalidConfig, c.Order)
	}
	return nil
}

// Prepare returns the bandpassed (and optionally decimated) copy of sig.
func Prepare(sig ecg.Signal, cfg Config) (ecg.Signal, error) {
	if sig.IsZero() {
		return ecg.Signal{}, fmt.Errorf("%w: empty signal", ecg.ErrInvalidInput)
	}
	rate := sig.Rate()
	if err := cfg.Validate(rate); err != nil {
		return ecg.Signal{}, err
	}

	// One period of the low cut is enough padding for the edge transient to decay.
	pad := int(math.Ceil(rate / cfg.LowCut))
	filtered := filtfilt(bandpass(cfg.LowCut, cfg.HighCut, rate, cfg.Order), ecg.View(sig), pad)

	if cfg.TargetRate == 0 || cfg.TargetRate == rate {
		return ecg.NewSignal(filtered, rate)
	}

	resampled, err := Resample(filtered, rate, cfg.TargetRate)
	if err != nil {
		return ecg.Signal{}, err
	}
	return ecg.NewSignal(resampled, cfg.TargetRate)
}
