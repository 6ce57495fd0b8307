package detector

import (
	"fmt"
	"math"
	"sort"

	"github.com/himanishpuri/CardioDNA/internal/ecg"
)

// ThresholdOptions configures the amplitude-crossing detector.
type ThresholdOptions struct {
	// Fraction of the robust signal maximum the signal must rise above.
	Fraction float64 `json:"fraction"`
	// Percentile used as the robust maximum, in (0, 100].
	Percentile float64 `json:"percentile"`
	// Refractory period in seconds.
	Refractory float64 `json:"refractory"`
}

func defaultThresholdOptions() ThresholdOptions {
	return ThresholdOptions{Fraction: 0.5, Percentile: 99.5, Refractory: DefaultRefractory}
}

// Threshold marks the maximum of every run where the signal stays above a fixed
// fraction of its robust maximum. It suits clean, upright leads.
type Threshold struct {
	opts ThresholdOptions
}

// NewThreshold validates opts, filling zero fields with defaults.
func NewThreshold(opts ThresholdOptions) (*Threshold, error) {
	def := defaultThresholdOptions()
	if opts.Fraction == 0 {
		opts.Fraction = def.Fraction
	}
	if opts.Percentile == 0 {
		opts.Percentile = def.Percentile
	}
	if opts.Refractory == 0 {
		opts.Refractory = def.Refractory
	}
	if opts.Fraction <= 0 || opts.Fraction >= 1 {
		return nil, fmt.Errorf("%w: threshold fraction must be in (0, 1), got %v", ecg.ErrInvalidConfig, opts.Fraction)
	}
	if opts.Percentile <= 0 || opts.Percentile > 100 {
		return nil, fmt.Errorf("%w: percentile must be in (0, 100], got %v", ecg.ErrInvalidConfig, opts.Percentile)
	}
	if opts.Refractory < 0 {
		return nil, fmt.Errorf("%w: negative refractory period %v", ecg.ErrInvalidConfig, opts.Refractory)
	}
	return &Threshold{opts: opts}, nil
}

func (d *Threshold) Name() string { return "threshold" }

func (d *Threshold) Detect(sig ecg.Signal) (ecg.Beats, error) {
	if sig.IsZero() {
		return nil, fmt.Errorf("%w: empty signal", ecg.ErrInvalidInput)
	}
	minDist, err := refractorySamples(d.opts.Refractory, sig.Rate())
	if err != nil {
		return nil, err
	}

	x := ecg.View(sig)
	level := d.opts.Fraction * percentile(x, d.opts.Percentile)
	if level <= 0 {
		return ecg.Beats{}, nil
	}

	var candidates []int
	inRun, best := false, 0
	for i, v := range x {
		switch {
		case v > level && !inRun:
			inRun, best = true, i
		case v > level && v > x[best]:
			best = i
		case v <= level && inRun:
			inRun = false
			candidates = append(candidates, best)
		}
	}
	if inRun {
		candidates = append(candidates, best)
	}

	return EnforceRefractory(candidates, func(i int) float64 { return x[i] }, minDist), nil
}

// percentile returns the p-th percentile of x by linear interpolation.
func percentile(x []float64, p float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	s := make([]float64, len(x))
	copy(s, x)
	sort.Float64s(s)
	pos := p / 100 * float64(len(s)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return s[lo]
	}
	return s[lo] + (s[hi]-s[lo])*(pos-float64(lo))
}
