package preprocess

import "math"

// biquad holds normalised second-order section coefficients (a0 == 1).
type biquad struct {
	b0, b1, b2 float64
	a1, a2     float64
}

// Butterworth second-order sections from the bilinear transform with Q = 1/sqrt(2).
func lowpass(cutoff, rate float64) biquad {
	w0 := 2 * math.Pi * cutoff / rate
	cosw, alpha := math.Cos(w0), math.Sin(w0)/math.Sqrt2
	a0 := 1 + alpha
	return biquad{
		b0: (1 - cosw) / 2 / a0,
		b1: (1 - cosw) / a0,
		b2: (1 - cosw) / 2 / a0,
		a1: -2 * cosw / a0,
		a2: (1 - alpha) / a0,
	}
}

func highpass(cutoff, rate float64) biquad {
	w0 := 2 * math.Pi * cutoff / rate
	cosw, alpha := math.Cos(w0), math.Sin(w0)/math.Sqrt2
	a0 := 1 + alpha
	return biquad{
		b0: (1 + cosw) / 2 / a0,
		b1: -(1 + cosw) / a0,
		b2: (1 + cosw) / 2 / a0,
		a1: -2 * cosw / a0,
		a2: (1 - alpha) / a0,
	}
}

// dcGain is H(z) at z = 1.
func (q biquad) dcGain() float64 {
	return (q.b0 + q.b1 + q.b2) / (1 + q.a1 + q.a2)
}

// run filters x in place (direct form II transposed), starting from the steady
// state the section would reach for a constant input equal to x[0].
func (q biquad) run(x []float64) {
	if len(x) == 0 {
		return
	}
	g := q.dcGain()
	z1 := (g - q.b0) * x[0]
	z2 := (q.b2 - q.a2*g) * x[0]
	for i, v := range x {
		y := q.b0*v + z1
		z1 = q.b1*v - q.a1*y + z2
		z2 = q.b2*v - q.a2*y
		x[i] = y
	}
}

// bandpass builds the cascade: order high-pass sections then order low-pass sections.
func bandpass(low, high, rate float64, order int) []biquad {
	sections := make([]biquad, 0, 2*order)
	for i := 0; i < order; i++ {
		sections = append(sections, highpass(low, rate))
	}
	for i := 0; i < order; i++ {
		sections = append(sections, lowpass(high, rate))
	}
	return sections
}

// filtfilt applies the cascade forward and backward so the net phase is zero.
// The input is extended by odd reflection on both ends to settle edge transients.
func filtfilt(sections []biquad, x []float64, pad int) []float64 {
	n := len(x)
	if pad > n-1 {
		pad = n - 1
	}
	if pad < 0 {
		pad = 0
	}

	ext := make([]float64, n+2*pad)
	for i := 0; i < pad; i++ {
		ext[i] = 2*x[0] - x[pad-i]
		ext[n+pad+i] = 2*x[n-1] - x[n-2-i]
	}
	copy(ext[pad:], x)

	for _, q := range sections {
		q.run(ext)
	}
	reverse(ext)
	for _, q := range sections {
		q.run(ext)
	}
	reverse(ext)

	out := make([]float64, n)
	copy(out, ext[pad:pad+n])
	return out
}

func reverse(x []float64) {
	for i, j := 0, len(x)-1; i < j; i, j = i+1, j-1 {
		x[i], x[j] = x[j], x[i]
	}
}
