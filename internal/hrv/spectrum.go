package hrv

import (
	"fmt"

	"github.com/mjibson/go-dsp/spectral"
	"github.com/mjibson/go-dsp/window"

	"github.com/himanishpuri/CardioDNA/internal/rr"
)

const (
	// TachogramRate is the uniform resampling rate of the RR tachogram, Hz.
	TachogramRate = 4.0
	// MinSpectralSpan is the shortest usable tachogram, seconds.
	MinSpectralSpan = 30.0

	segmentLength = 256
)

// Standard short-term bands, Hz. Lower edge inclusive.
var (
	VLFBand = [2]float64{0.0033, 0.04}
	LFBand  = [2]float64{0.04, 0.15}
	HFBand  = [2]float64{0.15, 0.4}
)

// FrequencyDomain features. Powers are ms².
type FrequencyDomain struct {
	VLF   float64 `json:"vlf"`
	LF    float64 `json:"lf"`
	HF    float64 `json:"hf"`
	Total float64 `json:"total"`
	LFHF  float64 `json:"lf_hf"`
}

// Frequency estimates band powers with Welch's method on the tachogram
// linearly resampled at TachogramRate, mean removed.
func Frequency(s rr.Series) (FrequencyDomain, error) {
	values, times := s.Usable()
	if len(values) < 3 {
		return FrequencyDomain{}, fmt.Errorf("%w: %d usable", ErrTooFewIntervals, len(values))
	}
	if span := times[len(times)-1] - times[0]; span < MinSpectralSpan {
		return FrequencyDomain{}, fmt.Errorf("%w: tachogram spans %.1fs, need %.0fs", ErrTooFewIntervals, span, MinSpectralSpan)
	}

	x := resample(values, times, TachogramRate)
	var mean float64
	for _, v := range x {
		mean += v
	}
	mean /= float64(len(x))
	for i := range x {
		x[i] = (x[i] - mean) * 1000
	}

	pxx, freqs := spectral.Pwelch(x, TachogramRate, &spectral.PwelchOptions{
		NFFT:     segmentLength,
		Noverlap: segmentLength / 2,
		Window:   window.Hann,
	})

	df := TachogramRate / float64(segmentLength)
	band := func(b [2]float64) float64 {
		var p float64
		for k, f := range freqs {
			if f >= b[0] && f < b[1] {
				p += pxx[k] * df
			}
		}
		return p
	}

	fd := FrequencyDomain{
		VLF: band(VLFBand),
		LF:  band(LFBand),
		HF:  band(HFBand),
	}
	fd.Total = fd.VLF + fd.LF + fd.HF
	if fd.HF > 0 {
		fd.LFHF = fd.LF / fd.HF
	}
	return fd, nil
}

// resample linearly interpolates (times, values) on a uniform grid starting at times[0].
func resample(values, times []float64, rate float64) []float64 {
	n := int((times[len(times)-1]-times[0])*rate) + 1
	out := make([]float64, n)
	k := 0
	for i := range out {
		t := times[0] + float64(i)/rate
		for k+1 < len(times)-1 && times[k+1] <= t {
			k++
		}
		t0, t1 := times[k], times[k+1]
		w := (t - t0) / (t1 - t0)
		if w > 1 {
			w = 1
		}
		out[i] = values[k] + w*(values[k+1]-values[k])
	}
	return out
}
