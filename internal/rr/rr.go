// Package rr turns beat positions into RR intervals and annotates implausible ones.
//
// Nothing is dropped: an interval outside the physiological limits is flagged
// Rejected, and an ectopic-looking interval is flagged Corrected with its value
// replaced by the local median while the original stays in Series.Original.
package rr

import (
	"fmt"
	"math"
	"sort"

	"github.com/himanishpuri/CardioDNA/internal/ecg"
)

// Flag annotates one RR interval.
type Flag uint8

const (
	Valid Flag = iota
	Corrected
	Rejected
)

func (f Flag) String() string {
	switch f {
	case Valid:
		return "valid"
	case Corrected:
		return "corrected"
	case Rejected:
		return "rejected"
	default:
		return fmt.Sprintf("flag(%d)", uint8(f))
	}
}

func (f Flag) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

func (f *Flag) UnmarshalText(b []byte) error {
	switch string(b) {
	case "valid":
		*f = Valid
	case "corrected":
		*f = Corrected
	case "rejected":
		*f = Rejected
	default:
		return fmt.Errorf("%w: unknown rr flag %q", ecg.ErrInvalidInput, b)
	}
	return nil
}

// Limits bound plausible intervals and tune the ectopic heuristic.
// A zero EctopicThreshold disables correction; a zero MedianWindow means 5.
type Limits struct {
	MinSeconds       float64 `json:"min_seconds"`
	MaxSeconds       float64 `json:"max_seconds"`
	EctopicThreshold float64 `json:"ectopic_threshold"`
	MedianWindow     int     `json:"median_window"`
}

const defaultMedianWindow = 5

// DefaultLimits accepts 30 to 200 bpm and corrects 20% deviations.
func DefaultLimits() Limits {
	return Limits{
		MinSeconds:       0.3,
		MaxSeconds:       2.0,
		EctopicThreshold: 0.2,
		MedianWindow:     defaultMedianWindow,
	}
}

// Validate reports ecg.ErrInvalidLimits for an unusable configuration.
func (l Limits) Validate() error {
	switch {
	case l.MinSeconds >= l.MaxSeconds:
		return fmt.Errorf("%w: min %.3fs must be below max %.3fs", ecg.ErrInvalidLimits, l.MinSeconds, l.MaxSeconds)
	case l.MinSeconds < 0:
		return fmt.Errorf("%w: negative minimum %.3fs", ecg.ErrInvalidLimits, l.MinSeconds)
	case l.EctopicThreshold < 0 || math.IsNaN(l.EctopicThreshold):
		return fmt.Errorf("%w: ectopic threshold %v", ecg.ErrInvalidLimits, l.EctopicThreshold)
	case l.MedianWindow < 0 || (l.MedianWindow > 0 && l.MedianWindow%2 == 0):
		return fmt.Errorf("%w: median window must be a positive odd count, got %d", ecg.ErrInvalidLimits, l.MedianWindow)
	}
	return nil
}

// Series holds len(beats)-1 intervals in seconds.
type Series struct {
	Original []float64 `json:"original"` // raw interval lengths
	Values   []float64 `json:"values"`   // after correction
	Flags    []Flag    `json:"flags"`
	Times    []float64 `json:"times"` // time of the closing beat, seconds
}

func (s Series) Len() int { return len(s.Values) }

// Count returns how many intervals carry flag f.
func (s Series) Count(f Flag) int {
	n := 0
	for _, g := range s.Flags {
		if g == f {
			n++
		}
	}
	return n
}

// Usable returns the corrected values and times of every non-rejected interval.
func (s Series) Usable() (values, times []float64) {
	for i, f := range s.Flags {
		if f == Rejected {
			continue
		}
		values = append(values, s.Values[i])
		times = append(times, s.Times[i])
	}
	return values, times
}

// ToRR computes and annotates the RR intervals of beats sampled at rate.
func ToRR(beats ecg.Beats, rate float64, limits Limits) (Series, error) {
	if rate <= 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		return Series{}, fmt.Errorf("%w: sampling rate %v", ecg.ErrInvalidConfig, rate)
	}
	if err := limits.Validate(); err != nil {
		return Series{}, err
	}
	if err := beats.Validate(0); err != nil {
		return Series{}, err
	}

	n := max(len(beats)-1, 0)
	s := Series{
		Original: make([]float64, n),
		Values:   make([]float64, n),
		Flags:    make([]Flag, n),
		Times:    make([]float64, n),
	}
	for i := 0; i < n; i++ {
		v := float64(beats[i+1]-beats[i]) / rate
		s.Original[i] = v
		s.Values[i] = v
		s.Times[i] = float64(beats[i+1]) / rate
		if v < limits.MinSeconds || v > limits.MaxSeconds {
			s.Flags[i] = Rejected
		}
	}

	if limits.EctopicThreshold == 0 {
		return s, nil
	}
	half := defaultMedianWindow / 2
	if limits.MedianWindow > 0 {
		half = limits.MedianWindow / 2
	}

	// Medians come from the original values so one correction cannot feed the next.
	window := make([]float64, 0, 2*half+1)
	for i := 0; i < n; i++ {
		if s.Flags[i] == Rejected {
			continue
		}
		window = window[:0]
		for k := max(0, i-half); k <= min(n-1, i+half); k++ {
			if s.Flags[k] != Rejected {
				window = append(window, s.Original[k])
			}
		}
		med := median(window)
		if med > 0 && math.Abs(s.Original[i]-med)/med > limits.EctopicThreshold {
			s.Values[i] = med
			s.Flags[i] = Corrected
		}
	}
	return s, nil
}

// median sorts x in place.
func median(x []float64) float64 {
	sort.Float64s(x)
	m := len(x) / 2
	if len(x)%2 == 1 {
		return x[m]
	}
	return (x[m-1] + x[m]) / 2
}
