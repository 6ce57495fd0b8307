package preprocess

import (
	"fmt"
	"math"

	"github.com/himanishpuri/CardioDNA/internal/ecg"
	"github.com/mjibson/go-dsp/fft"
)

// Resample converts x from rate from to rate to by truncating its spectrum.
// Only downsampling (to <= from) is accepted. The result is exact for periodic,
// band-limited input and close to it elsewhere.
func Resample(x []float64, from, to float64) ([]float64, error) {
	if from <= 0 || to <= 0 {
		return nil, fmt.Errorf("%w: resample rates must be positive (%v -> %v)", ecg.ErrInvalidConfig, from, to)
	}
	if to > from {
		return nil, fmt.Errorf("%w: cannot resample up from %v Hz to %v Hz", ecg.ErrInvalidConfig, from, to)
	}

	n := len(x)
	m := int(math.Round(float64(n) * to / from))
	if m == n || n == 0 {
		out := make([]float64, n)
		copy(out, x)
		return out, nil
	}
	if m < 1 {
		m = 1
	}

	spec := fft.FFTReal(x)
	trunc := make([]complex128, m)
	half := (m + 1) / 2
	for k := 0; k < half; k++ {
		trunc[k] = spec[k]
	}
	for k := 1; k < half; k++ {
		trunc[m-k] = spec[n-k]
	}
	if m%2 == 0 {
		// The shared Nyquist bin of an even-length real spectrum is real.
		trunc[m/2] = complex(real(spec[m/2]), 0)
	}

	inv := fft.IFFT(trunc)
	scale := float64(m) / float64(n)
	out := make([]float64, m)
	for i, v := range inv {
		out[i] = real(v) * scale
	}
	return out, nil
}
