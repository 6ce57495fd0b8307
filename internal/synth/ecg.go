// Package synth generates deterministic synthetic ECG with known R-peak locations.
// The waveform is not clinical: baseline wander plus gaussian P, Q, R, S and T
// waves per cycle, with sinusoidal heart-rate variability and hashed noise.
package synth

import (
	"fmt"
	"math"

	"github.com/himanishpuri/CardioDNA/internal/ecg"
)

// Config describes the recording to synthesise.
type Config struct {
	Rate        float64 // Hz
	Duration    float64 // seconds
	HeartRate   float64 // mean bpm
	Variability float64 // relative RR modulation, e.g. 0.05
	Noise       float64 // peak noise amplitude
	Baseline    float64 // baseline wander amplitude
	Invert      bool    // flip polarity (inverted lead)
}

// DefaultConfig is one minute at 250 Hz and 72 bpm.
func DefaultConfig() Config {
	return Config{
		Rate:        250,
		Duration:    60,
		HeartRate:   72,
		Variability: 0.05,
		Noise:       0.02,
		Baseline:    0.05,
	}
}

// Recording is a synthetic signal plus the exact R-peak sample indices.
type Recording struct {
	Signal ecg.Signal
	Peaks  ecg.Beats
}

type wave struct {
	amp, mu, sigma float64 // amplitude, cycle phase, width in cycle units
}

var cycle = []wave{
	{0.08, 0.18, 0.03},   // P
	{-0.12, 0.30, 0.01},  // Q
	{1.00, 0.32, 0.008},  // R
	{-0.25, 0.35, 0.012}, // S
	{0.25, 0.60, 0.06},   // T
}

const rPhase = 0.32

// Generate synthesises a recording.
func Generate(cfg Config) (Recording, error) {
	if cfg.Rate <= 0 || cfg.Duration <= 0 || cfg.HeartRate <= 0 {
		return Recording{}, fmt.Errorf("%w: synth needs positive rate, duration and heart rate (%+v)", ecg.ErrInvalidConfig, cfg)
	}
	if cfg.Variability < 0 || cfg.Variability >= 0.5 {
		return Recording{}, fmt.Errorf("%w: variability must be in [0, 0.5), got %v", ecg.ErrInvalidConfig, cfg.Variability)
	}

	n := int(cfg.Duration * cfg.Rate)
	if n < 1 {
		return Recording{}, fmt.Errorf("%w: duration shorter than one sample", ecg.ErrInvalidConfig)
	}

	// Cycle onsets; the first starts shortly after zero so no beat sits on the edge.
	period := 60 / cfg.HeartRate
	var onsets, lengths []float64
	for k, t := 0, 0.2*period; t < cfg.Duration; k++ {
		rr := period * (1 + cfg.Variability*math.Sin(2*math.Pi*float64(k)/8))
		onsets = append(onsets, t)
		lengths = append(lengths, rr)
		t += rr
	}

	samples := make([]float64, n)
	k := 0
	for i := range samples {
		t := float64(i) / cfg.Rate
		for k+1 < len(onsets) && t >= onsets[k+1] {
			k++
		}
		v := cfg.Baseline * math.Sin(2*math.Pi*0.25*t)
		if t >= onsets[k] {
			phase := (t - onsets[k]) / lengths[k]
			for _, w := range cycle {
				v += w.amp * gauss(phase, w.mu, w.sigma)
			}
		}
		v += cfg.Noise * (2*hash(i) - 1)
		if cfg.Invert {
			v = -v
		}
		samples[i] = v
	}

	peaks := make(ecg.Beats, 0, len(onsets))
	for k := range onsets {
		idx := int(math.Round((onsets[k] + rPhase*lengths[k]) * cfg.Rate))
		if idx < n {
			peaks = append(peaks, idx)
		}
	}

	sig, err := ecg.NewSignal(samples, cfg.Rate)
	if err != nil {
		return Recording{}, err
	}
	return Recording{Signal: sig, Peaks: peaks}, nil
}

func gauss(x, mu, sigma float64) float64 {
	z := (x - mu) / sigma
	return math.Exp(-0.5 * z * z)
}

// hash maps a sample index to a repeatable value in [0, 1).
func hash(i int) float64 {
	v := math.Sin(12.9898*float64(i)+78.233) * 43758.5453
	return v - math.Floor(v)
}
