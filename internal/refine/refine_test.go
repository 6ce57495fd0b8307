package refine

import (
	"errors"
	"testing"

	"github.com/himanishpuri/CardioDNA/internal/ecg"
	"github.com/himanishpuri/CardioDNA/internal/synth"
)

func signalWithSpikes(t *testing.T, n int, spikes map[int]float64) ecg.Signal {
	t.Helper()
	x := make([]float64, n)
	for i, v := range spikes {
		x[i] = v
	}
	sig, err := ecg.NewSignal(x, 100)
	if err != nil {
		t.Fatalf("NewSignal failed: %v", err)
	}
	return sig
}

func equalBeats(a, b ecg.Beats) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestRefineSnapsToPeak(t *testing.T) {
	sig := signalWithSpikes(t, 300, map[int]float64{50: 1, 150: 2, 250: 1.5})
	cfg := Config{SearchRadius: 0.05, Refractory: 0.3, Polarity: Positive}

	got, err := Refine(sig, ecg.Beats{47, 153, 246}, cfg)
	if err != nil {
		t.Fatalf("Refine failed: %v", err)
	}
	if want := (ecg.Beats{50, 150, 250}); !equalBeats(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestRefinePolarity(t *testing.T) {
	sig := signalWithSpikes(t, 100, map[int]float64{40: 1, 45: -3})

	tests := []struct {
		polarity Polarity
		want     int
	}{
		{Positive, 40},
		{Negative, 45},
		{Absolute, 45},
	}
	for _, tt := range tests {
		got, err := Refine(sig, ecg.Beats{42}, Config{SearchRadius: 0.05, Polarity: tt.polarity})
		if err != nil {
			t.Fatalf("%s: Refine failed: %v", tt.polarity, err)
		}
		if len(got) != 1 || got[0] != tt.want {
			t.Errorf("%s: expected [%d], got %v", tt.polarity, tt.want, got)
		}
	}
}

func TestRefineMergesCollidingBeats(t *testing.T) {
	// Both candidates snap near the same spike; the smaller neighbour peak loses.
	sig := signalWithSpikes(t, 200, map[int]float64{100: 2, 104: 1.2})
	cfg := Config{SearchRadius: 0.03, Refractory: 0.2, Polarity: Positive}

	got, err := Refine(sig, ecg.Beats{98, 106}, cfg)
	if err != nil {
		t.Fatalf("Refine failed: %v", err)
	}
	if want := (ecg.Beats{100}); !equalBeats(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestRefineClipsAtEdges(t *testing.T) {
	sig := signalWithSpikes(t, 50, map[int]float64{0: 1, 49: 1})
	got, err := Refine(sig, ecg.Beats{2, 47}, Config{SearchRadius: 0.05, Refractory: 0.1, Polarity: Positive})
	if err != nil {
		t.Fatalf("Refine failed: %v", err)
	}
	if want := (ecg.Beats{0, 49}); !equalBeats(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestRefineErrors(t *testing.T) {
	sig := signalWithSpikes(t, 100, nil)

	if _, err := Refine(sig, ecg.Beats{10, 5}, DefaultConfig()); !errors.Is(err, ecg.ErrInvalidInput) {
		t.Errorf("unsorted candidates: expected ErrInvalidInput, got %v", err)
	}
	if _, err := Refine(sig, ecg.Beats{10, 100}, DefaultConfig()); !errors.Is(err, ecg.ErrInvalidInput) {
		t.Errorf("out of range: expected ErrInvalidInput, got %v", err)
	}
	bad := []Config{
		{SearchRadius: -1, Polarity: Positive},
		{SearchRadius: 0.05, Refractory: -1, Polarity: Positive},
		{SearchRadius: 0.05, Polarity: "sideways"},
		{SearchRadius: 0.05},
	}
	for _, cfg := range bad {
		if _, err := Refine(sig, ecg.Beats{10}, cfg); !errors.Is(err, ecg.ErrInvalidConfig) {
			t.Errorf("config %+v: expected ErrInvalidConfig, got %v", cfg, err)
		}
	}
}

func TestRefineSyntheticInvertedLead(t *testing.T) {
	cfg := synth.DefaultConfig()
	cfg.Invert = true
	rec, err := synth.Generate(cfg)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	// Perturb the true peaks by a few samples and let the refiner recover them.
	coarse := make(ecg.Beats, len(rec.Peaks))
	for i, p := range rec.Peaks {
		coarse[i] = p + (i%5 - 2)
	}

	got, err := Refine(rec.Signal, coarse, Config{SearchRadius: 0.04, Refractory: 0.25, Polarity: Negative})
	if err != nil {
		t.Fatalf("Refine failed: %v", err)
	}
	if len(got) != len(rec.Peaks) {
		t.Fatalf("expected %d beats, got %d", len(rec.Peaks), len(got))
	}
	for i := range got {
		if d := got[i] - rec.Peaks[i]; d < -1 || d > 1 {
			t.Errorf("beat %d refined to %d, true peak %d", i, got[i], rec.Peaks[i])
		}
	}
	for i := 1; i < len(got); i++ {
		if got[i]-got[i-1] < ecg.Seconds(0.25, rec.Signal.Rate()) {
			t.Fatalf("refractory violated between %d and %d", got[i-1], got[i])
		}
	}
}
