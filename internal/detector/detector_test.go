package detector

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/himanishpuri/CardioDNA/internal/ecg"
	"github.com/himanishpuri/CardioDNA/internal/preprocess"
	"github.com/himanishpuri/CardioDNA/internal/synth"
)

func TestEnforceRefractory(t *testing.T) {
	amp := map[int]float64{10: 1, 12: 3, 30: 2, 31: 2, 60: 5, 100: 1}
	strength := func(i int) float64 { return amp[i] }

	tests := []struct {
		name    string
		in      []int
		minDist int
		want    ecg.Beats
	}{
		{"stronger replaces", []int{10, 12}, 5, ecg.Beats{12}},
		{"weaker dropped", []int{12, 13}, 5, ecg.Beats{12}},
		{"tie keeps earlier", []int{30, 31}, 5, ecg.Beats{30}},
		{"far apart kept", []int{10, 30, 60, 100}, 5, ecg.Beats{10, 30, 60, 100}},
		{"duplicates collapse", []int{60, 60}, 0, ecg.Beats{60}},
		{"empty", nil, 5, ecg.Beats{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EnforceRefractory(tt.in, strength, tt.minDist)
			if len(got) != len(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("expected %v, got %v", tt.want, got)
				}
			}
		})
	}
}

func TestRegistry(t *testing.T) {
	names := Names()
	if len(names) != 2 || names[0] != "pantompkins" || names[1] != "threshold" {
		t.Fatalf("unexpected registry contents: %v", names)
	}

	d, err := New("", nil)
	if err != nil {
		t.Fatalf("default detector: %v", err)
	}
	if d.Name() != Default {
		t.Errorf("expected default %q, got %q", Default, d.Name())
	}

	if _, err := New("wavelet", nil); !errors.Is(err, ecg.ErrInvalidConfig) {
		t.Errorf("unknown detector: expected ErrInvalidConfig, got %v", err)
	}
	if _, err := New("threshold", json.RawMessage(`{"bogus": 1}`)); !errors.Is(err, ecg.ErrInvalidConfig) {
		t.Errorf("unknown option: expected ErrInvalidConfig, got %v", err)
	}
	if _, err := New("threshold", json.RawMessage(`{"fraction": 1.5}`)); !errors.Is(err, ecg.ErrInvalidConfig) {
		t.Errorf("bad fraction: expected ErrInvalidConfig, got %v", err)
	}
	if _, err := New("pantompkins", json.RawMessage(`{"search_back": 0.5}`)); !errors.Is(err, ecg.ErrInvalidConfig) {
		t.Errorf("bad search-back: expected ErrInvalidConfig, got %v", err)
	}
	if _, err := New("pantompkins", json.RawMessage(`{"window": 0.12, "refractory": 0.3}`)); err != nil {
		t.Errorf("valid options rejected: %v", err)
	}
}

// recall counts reference peaks with a detection within tol samples.
func recall(ref, got ecg.Beats, tol int) int {
	hits, j := 0, 0
	for _, r := range ref {
		for j < len(got) && got[j] < r-tol {
			j++
		}
		if j < len(got) && got[j] <= r+tol {
			hits++
		}
	}
	return hits
}

func checkSpacing(t *testing.T, beats ecg.Beats, minDist int) {
	t.Helper()
	for i := 1; i < len(beats); i++ {
		if beats[i]-beats[i-1] < minDist {
			t.Fatalf("beats %d and %d closer than %d samples", beats[i-1], beats[i], minDist)
		}
	}
}

func TestDetectorsOnSyntheticECG(t *testing.T) {
	rec, err := synth.Generate(synth.DefaultConfig())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	prepared, err := preprocess.Prepare(rec.Signal, preprocess.DefaultConfig())
	if err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}

	minDist := ecg.Seconds(DefaultRefractory, rec.Signal.Rate())
	tol := ecg.Seconds(0.05, rec.Signal.Rate())

	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			d, err := New(name, nil)
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}

			for _, sig := range []ecg.Signal{rec.Signal, prepared} {
				beats, err := d.Detect(sig)
				if err != nil {
					t.Fatalf("Detect failed: %v", err)
				}
				if err := beats.Validate(sig.Len()); err != nil {
					t.Fatalf("invalid output: %v", err)
				}
				checkSpacing(t, beats, minDist)

				hits := recall(rec.Peaks, beats, tol)
				if float64(hits) < 0.9*float64(len(rec.Peaks)) {
					t.Errorf("found %d/%d reference beats", hits, len(rec.Peaks))
				}
				if extra := len(beats) - hits; float64(extra) > 0.1*float64(len(rec.Peaks)) {
					t.Errorf("%d detections without a reference beat", extra)
				}
				t.Logf("%s: %d detections, %d/%d hits", name, len(beats), hits, len(rec.Peaks))
			}
		})
	}
}

func TestDetectorsDeterministic(t *testing.T) {
	rec, _ := synth.Generate(synth.DefaultConfig())
	for _, name := range Names() {
		d, _ := New(name, nil)
		a, _ := d.Detect(rec.Signal)
		b, _ := d.Detect(rec.Signal)
		if len(a) != len(b) {
			t.Fatalf("%s: run lengths differ %d vs %d", name, len(a), len(b))
		}
		for i := range a {
			if a[i] != b[i] {
				t.Fatalf("%s: beat %d differs", name, i)
			}
		}
	}
}

func TestDetectFlatSignal(t *testing.T) {
	sig, _ := ecg.NewSignal(make([]float64, 1000), 250)
	for _, name := range Names() {
		d, _ := New(name, nil)
		beats, err := d.Detect(sig)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", name, err)
		}
		if len(beats) != 0 {
			t.Errorf("%s: expected no beats on a flat line, got %v", name, beats)
		}
	}
}

func TestPercentile(t *testing.T) {
	x := []float64{4, 1, 3, 2, 5}
	if p := percentile(x, 50); p != 3 {
		t.Errorf("median: expected 3, got %v", p)
	}
	if p := percentile(x, 100); p != 5 {
		t.Errorf("max: expected 5, got %v", p)
	}
	if p := percentile(x, 25); p != 2 {
		t.Errorf("p25: expected 2, got %v", p)
	}
}
