// Package detector holds the family of coarse R-peak detectors.
//
// Every detector consumes a preprocessed ecg.Signal and emits candidate sample
// indices. Candidates may be a few samples off the true R peak; the refine
// package snaps them afterwards, so detectors stay small and swappable. All
// detectors share the same refractory post-filter, which guarantees that two
// emitted candidates are never closer than the configured refractory distance.
package detector

import (
	"fmt"

	"github.com/himanishpuri/CardioDNA/internal/ecg"
)

// DefaultRefractory is the minimum spacing between beats, in seconds (240 bpm).
const DefaultRefractory = 0.25

// Detector finds candidate beats in a preprocessed signal.
// Implementations must be deterministic and keep no state between calls.
type Detector interface {
	Name() string
	Detect(sig ecg.Signal) (ecg.Beats, error)
}

// EnforceRefractory drops candidates closer than minDist samples to an already
// kept one. Of two conflicting candidates the one with the larger strength wins;
// on equal strength the earlier one is kept. idx must be sorted ascending
// (duplicates allowed); the result is strictly increasing.
func EnforceRefractory(idx []int, strength func(i int) float64, minDist int) ecg.Beats {
	if minDist < 1 {
		minDist = 1
	}
	out := make(ecg.Beats, 0, len(idx))
	for _, c := range idx {
		if len(out) == 0 {
			out = append(out, c)
			continue
		}
		last := out[len(out)-1]
		if c-last >= minDist {
			out = append(out, c)
			continue
		}
		if strength(c) > strength(last) {
			out[len(out)-1] = c
		}
	}
	return out
}

func refractorySamples(seconds, rate float64) (int, error) {
	if seconds < 0 {
		return 0, fmt.Errorf("%w: negative refractory period %v", ecg.ErrInvalidConfig, seconds)
	}
	return ecg.Seconds(seconds, rate), nil
}
