// Package refine snaps coarse detector candidates onto the true R-peak sample.
package refine

import (
	"fmt"
	"math"
	"sort"

	"github.com/himanishpuri/CardioDNA/internal/detector"
	"github.com/himanishpuri/CardioDNA/internal/ecg"
)

// Polarity selects which extremum a refined beat snaps to.
type Polarity string

const (
	Positive Polarity = "positive" // local maximum
	Negative Polarity = "negative" // local minimum (inverted leads)
	Absolute Polarity = "absolute" // largest magnitude either way
)

// Config controls refinement. Durations are in seconds.
type Config struct {
	SearchRadius float64  `json:"search_radius"`
	Refractory   float64  `json:"refractory"`
	Polarity     Polarity `json:"polarity"`
}

// DefaultConfig searches ±50 ms for a positive peak.
func DefaultConfig() Config {
	return Config{
		SearchRadius: 0.05,
		Refractory:   detector.DefaultRefractory,
		Polarity:     Positive,
	}
}

// Validate reports ecg.ErrInvalidConfig for negative durations or an unknown polarity.
func (c Config) Validate() error {
	if c.SearchRadius < 0 {
		return fmt.Errorf("%w: negative search radius %v", ecg.ErrInvalidConfig, c.SearchRadius)
	}
	if c.Refractory < 0 {
		return fmt.Errorf("%w: negative refractory period %v", ecg.ErrInvalidConfig, c.Refractory)
	}
	switch c.Polarity {
	case Positive, Negative, Absolute:
		return nil
	case "":
		return fmt.Errorf("%w: polarity not set", ecg.ErrInvalidConfig)
	default:
		return fmt.Errorf("%w: unknown polarity %q", ecg.ErrInvalidConfig, c.Polarity)
	}
}

// Refine moves every candidate to the extremum of the configured polarity within
// the search radius, then drops beats the shift pushed inside the refractory
// distance of a neighbour (the larger absolute amplitude survives).
func Refine(sig ecg.Signal, candidates ecg.Beats, cfg Config) (ecg.Beats, error) {
	if sig.IsZero() {
		return nil, fmt.Errorf("%w: empty signal", ecg.ErrInvalidInput)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := candidates.Validate(sig.Len()); err != nil {
		return nil, err
	}

	x := ecg.View(sig)
	radius := ecg.Seconds(cfg.SearchRadius, sig.Rate())
	score := scorer(cfg.Polarity)

	refined := make([]int, len(candidates))
	for k, c := range candidates {
		lo, hi := max(0, c-radius), min(len(x)-1, c+radius)
		best := lo
		for i := lo + 1; i <= hi; i++ {
			if score(x[i]) > score(x[best]) {
				best = i
			}
		}
		refined[k] = best
	}
	// Overlapping windows can swap neighbours.
	sort.Ints(refined)

	minDist := ecg.Seconds(cfg.Refractory, sig.Rate())
	return detector.EnforceRefractory(refined, func(i int) float64 { return math.Abs(x[i]) }, minDist), nil
}

func scorer(p Polarity) func(float64) float64 {
	switch p {
	case Negative:
		return func(v float64) float64 { return -v }
	case Absolute:
		return math.Abs
	default:
		return func(v float64) float64 { return v }
	}
}
