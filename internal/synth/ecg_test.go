package synth

import (
	"errors"
	"math"
	"testing"

	"github.com/himanishpuri/CardioDNA/internal/ecg"
)

func TestGenerateDefaults(t *testing.T) {
	rec, err := Generate(DefaultConfig())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if rec.Signal.Len() != 15000 {
		t.Errorf("expected 15000 samples, got %d", rec.Signal.Len())
	}
	if err := rec.Peaks.Validate(rec.Signal.Len()); err != nil {
		t.Fatalf("peaks invalid: %v", err)
	}

	// 72 bpm for a minute.
	if n := len(rec.Peaks); n < 68 || n > 74 {
		t.Errorf("expected about 72 peaks, got %d", n)
	}
}

func TestGeneratePeaksAreLocalMaxima(t *testing.T) {
	rec, err := Generate(DefaultConfig())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	x := rec.Signal.Samples()
	for _, p := range rec.Peaks {
		best := p
		for i := p - 5; i <= p+5; i++ {
			if i >= 0 && i < len(x) && x[i] > x[best] {
				best = i
			}
		}
		if d := best - p; d < -2 || d > 2 {
			t.Errorf("peak at %d but local maximum at %d", p, best)
		}
		if x[p] < 0.7 {
			t.Errorf("peak at %d has low amplitude %.3f", p, x[p])
		}
	}
}

func TestGenerateDeterministic(t *testing.T) {
	a, _ := Generate(DefaultConfig())
	b, _ := Generate(DefaultConfig())
	for i := 0; i < a.Signal.Len(); i++ {
		if a.Signal.At(i) != b.Signal.At(i) {
			t.Fatalf("sample %d differs", i)
		}
	}
}

func TestGenerateInvert(t *testing.T) {
	cfg := DefaultConfig()
	up, _ := Generate(cfg)
	cfg.Invert = true
	down, _ := Generate(cfg)
	for _, p := range up.Peaks {
		if math.Abs(up.Signal.At(p)+down.Signal.At(p)) > 1e-12 {
			t.Fatalf("inverted sample %d is not mirrored", p)
		}
	}
}

func TestGenerateInvalid(t *testing.T) {
	cfgs := []Config{
		{Rate: 0, Duration: 10, HeartRate: 60},
		{Rate: 250, Duration: 0, HeartRate: 60},
		{Rate: 250, Duration: 10, HeartRate: 0},
		{Rate: 250, Duration: 10, HeartRate: 60, Variability: 0.7},
	}
	for _, cfg := range cfgs {
		if _, err := Generate(cfg); !errors.Is(err, ecg.ErrInvalidConfig) {
			t.Errorf("config %+v: expected ErrInvalidConfig, got %v", cfg, err)
		}
	}
}
