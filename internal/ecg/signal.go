package ecg

import (
	"fmt"
	"math"
)

// Signal is an immutable single-lead recording: samples plus sampling rate.
type Signal struct {
	samples []float64
	rate    float64
}

// NewSignal copies samples into a new Signal.
// The rate must be positive and finite and the sample slice non-empty.
func NewSignal(samples []float64, rate float64) (Signal, error) {
	if rate <= 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		return Signal{}, fmt.Errorf("%w: sampling rate must be positive, got %v", ErrInvalidConfig, rate)
	}
	if len(samples) == 0 {
		return Signal{}, fmt.Errorf("%w: empty signal", ErrInvalidInput)
	}
	cp := make([]float64, len(samples))
	copy(cp, samples)
	return Signal{samples: cp, rate: rate}, nil
}

// Len returns the number of samples.
func (s Signal) Len() int { return len(s.samples) }

// Rate returns the sampling rate in Hz.
func (s Signal) Rate() float64 { return s.rate }

// At returns sample i.
func (s Signal) At(i int) float64 { return s.samples[i] }

// Samples returns a copy of the sample data.
func (s Signal) Samples() []float64 {
	out := make([]float64, len(s.samples))
	copy(out, s.samples)
	return out
}

// Duration returns the recording length in seconds.
func (s Signal) Duration() float64 {
	return float64(len(s.samples)) / s.rate
}

// IsZero reports whether s was never initialised through NewSignal.
func (s Signal) IsZero() bool { return s.rate == 0 && s.samples == nil }

// View returns the backing samples without copying. The slice must not be modified;
// it lets the processing stages scan multi-hour recordings without duplicating them.
func View(s Signal) []float64 { return s.samples }

// Seconds converts a duration in seconds to a whole number of samples at rate.
func Seconds(sec, rate float64) int {
	return int(math.Round(sec * rate))
}
