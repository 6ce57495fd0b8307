package preprocess

import (
	"errors"
	"math"
	"testing"

	"github.com/himanishpuri/CardioDNA/internal/ecg"
)

func sine(freq, amp, rate float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = amp * math.Sin(2*math.Pi*freq*float64(i)/rate)
	}
	return out
}

func mustSignal(t *testing.T, x []float64, rate float64) ecg.Signal {
	t.Helper()
	sig, err := ecg.NewSignal(x, rate)
	if err != nil {
		t.Fatalf("NewSignal failed: %v", err)
	}
	return sig
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		ok   bool
	}{
		{"default", DefaultConfig(), true},
		{"inverted band", Config{LowCut: 30, HighCut: 5, Order: 2}, false},
		{"equal edges", Config{LowCut: 10, HighCut: 10, Order: 2}, false},
		{"zero low", Config{LowCut: 0, HighCut: 30, Order: 2}, false},
		{"negative high", Config{LowCut: 5, HighCut: -1, Order: 2}, false},
		{"above nyquist", Config{LowCut: 5, HighCut: 200, Order: 2}, false},
		{"upsample", Config{LowCut: 5, HighCut: 30, TargetRate: 500, Order: 2}, false},
		{"negative target", Config{LowCut: 5, HighCut: 30, TargetRate: -1, Order: 2}, false},
		{"zero order", Config{LowCut: 5, HighCut: 30}, false},
		{"downsample", Config{LowCut: 5, HighCut: 30, TargetRate: 125, Order: 1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate(250)
			if tt.ok && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.ok && !errors.Is(err, ecg.ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestPrepareDeterministic(t *testing.T) {
	x := sine(10, 1, 250, 1000)
	for i := range x {
		x[i] += 0.3 * math.Sin(2*math.Pi*0.3*float64(i)/250)
	}
	sig := mustSignal(t, x, 250)

	a, err := Prepare(sig, DefaultConfig())
	if err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	b, err := Prepare(sig, DefaultConfig())
	if err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}

	if a.Len() != b.Len() || a.Rate() != b.Rate() {
		t.Fatalf("shape differs: %d@%v vs %d@%v", a.Len(), a.Rate(), b.Len(), b.Rate())
	}
	for i := 0; i < a.Len(); i++ {
		if a.At(i) != b.At(i) {
			t.Fatalf("sample %d differs: %v vs %v", i, a.At(i), b.At(i))
		}
	}
}

func TestPrepareRemovesBaselineWander(t *testing.T) {
	const rate = 250.0
	x := sine(0.2, 1, rate, 5000)
	out, err := Prepare(mustSignal(t, x, rate), DefaultConfig())
	if err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}

	var peak float64
	for i := 500; i < out.Len()-500; i++ {
		peak = math.Max(peak, math.Abs(out.At(i)))
	}
	if peak > 0.05 {
		t.Errorf("baseline wander not suppressed: residual peak %.4f", peak)
	}
}

func TestPreparePassbandIsZeroPhase(t *testing.T) {
	const rate = 250.0
	x := sine(10, 1, rate, 2500)
	out, err := Prepare(mustSignal(t, x, rate), Config{LowCut: 5, HighCut: 30, Order: 1})
	if err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}

	// One 10 Hz period is 25 samples; compare the argmax of a mid-signal period.
	start := 1250
	inMax, outMax := start, start
	for i := start; i < start+25; i++ {
		if x[i] > x[inMax] {
			inMax = i
		}
		if out.At(i) > out.At(outMax) {
			outMax = i
		}
	}
	if d := outMax - inMax; d < -1 || d > 1 {
		t.Errorf("phase shift of %d samples in passband", d)
	}
	if amp := out.At(outMax); amp < 0.8 || amp > 1.05 {
		t.Errorf("passband amplitude %.3f outside [0.8, 1.05]", amp)
	}
}

func TestPrepareDownsamples(t *testing.T) {
	sig := mustSignal(t, sine(10, 1, 500, 2000), 500)
	out, err := Prepare(sig, Config{LowCut: 5, HighCut: 30, TargetRate: 125, Order: 2})
	if err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	if out.Rate() != 125 {
		t.Errorf("expected rate 125, got %v", out.Rate())
	}
	if out.Len() != 500 {
		t.Errorf("expected 500 samples, got %d", out.Len())
	}
}

func TestPrepareRejectsUpsampling(t *testing.T) {
	sig := mustSignal(t, sine(10, 1, 250, 500), 250)
	_, err := Prepare(sig, Config{LowCut: 5, HighCut: 30, TargetRate: 500, Order: 2})
	if !errors.Is(err, ecg.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestResampleBandLimited(t *testing.T) {
	// Ten whole cycles, so the FFT sees a periodic signal.
	x := sine(5, 1, 500, 1000)
	y, err := Resample(x, 500, 250)
	if err != nil {
		t.Fatalf("Resample failed: %v", err)
	}
	if len(y) != 500 {
		t.Fatalf("expected 500 samples, got %d", len(y))
	}
	want := sine(5, 1, 250, 500)
	for i := range y {
		if math.Abs(y[i]-want[i]) > 1e-6 {
			t.Fatalf("sample %d: expected %.6f, got %.6f", i, want[i], y[i])
		}
	}
}

func TestResampleSameRateCopies(t *testing.T) {
	x := []float64{1, 2, 3}
	y, err := Resample(x, 100, 100)
	if err != nil {
		t.Fatalf("Resample failed: %v", err)
	}
	y[0] = 42
	if x[0] != 1 {
		t.Error("Resample aliased its input")
	}
}

func TestBiquadSteadyState(t *testing.T) {
	x := make([]float64, 50)
	for i := range x {
		x[i] = 3
	}
	lowpass(10, 250).run(x)
	for i, v := range x {
		if math.Abs(v-3) > 1e-9 {
			t.Fatalf("low-pass of constant drifted at %d: %v", i, v)
		}
	}

	y := make([]float64, 50)
	for i := range y {
		y[i] = 3
	}
	highpass(10, 250).run(y)
	for i, v := range y {
		if math.Abs(v) > 1e-9 {
			t.Fatalf("high-pass of constant not zero at %d: %v", i, v)
		}
	}
}
