package ecg

import (
	"errors"
	"testing"
)

func TestNewSignal(t *testing.T) {
	tests := []struct {
		name    string
		samples []float64
		rate    float64
		wantErr error
	}{
		{"valid", []float64{1, 2, 3}, 100, nil},
		{"zero rate", []float64{1}, 0, ErrInvalidConfig},
		{"negative rate", []float64{1}, -5, ErrInvalidConfig},
		{"empty", nil, 100, ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSignal(tt.samples, tt.rate)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestSignalIsImmutable(t *testing.T) {
	in := []float64{1, 2, 3}
	sig, err := NewSignal(in, 10)
	if err != nil {
		t.Fatalf("NewSignal failed: %v", err)
	}

	in[0] = 99
	if sig.At(0) != 1 {
		t.Errorf("signal changed after caller mutated input: %v", sig.At(0))
	}

	out := sig.Samples()
	out[1] = 99
	if sig.At(1) != 2 {
		t.Errorf("signal changed after caller mutated Samples(): %v", sig.At(1))
	}

	if sig.Duration() != 0.3 {
		t.Errorf("expected duration 0.3, got %v", sig.Duration())
	}
}

func TestBeatsValidate(t *testing.T) {
	tests := []struct {
		name  string
		beats Beats
		n     int
		ok    bool
	}{
		{"empty", nil, 10, true},
		{"increasing", Beats{0, 3, 9}, 10, true},
		{"duplicate", Beats{1, 1}, 10, false},
		{"decreasing", Beats{5, 2}, 10, false},
		{"out of range", Beats{2, 10}, 10, false},
		{"negative", Beats{-1, 2}, 10, false},
		{"unbounded", Beats{2, 1000}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.beats.Validate(tt.n)
			if tt.ok && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestBeatsRescale(t *testing.T) {
	b := Beats{0, 100, 101, 250}
	got := b.Rescale(250, 125, 200)
	want := Beats{0, 50, 51, 125}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: expected %d, got %d", i, want[i], got[i])
		}
	}

	// 100 and 101 collapse onto the same sample at a quarter of the rate.
	merged := b.Rescale(250, 62.5, 100)
	if err := merged.Validate(100); err != nil {
		t.Errorf("rescaled beats invalid: %v (%v)", err, merged)
	}
	if len(merged) != 3 {
		t.Errorf("expected 3 beats after merge, got %v", merged)
	}
}
