package ecg

import "fmt"

// Beats is a strictly increasing sequence of sample indices, one per heartbeat.
type Beats []int

// Validate checks strict monotonicity and, when n > 0, that every index lies in [0, n).
// Sequences are never sorted or de-duplicated on the caller's behalf.
func (b Beats) Validate(n int) error {
	for i, idx := range b {
		if idx < 0 || (n > 0 && idx >= n) {
			return fmt.Errorf("%w: beat %d at sample %d outside [0, %d)", ErrInvalidInput, i, idx, n)
		}
		if i > 0 && idx <= b[i-1] {
			return fmt.Errorf("%w: beat %d at sample %d not after %d", ErrInvalidInput, i, idx, b[i-1])
		}
	}
	return nil
}

// Times converts the indices to seconds at rate.
func (b Beats) Times(rate float64) []float64 {
	out := make([]float64, len(b))
	for i, idx := range b {
		out[i] = float64(idx) / rate
	}
	return out
}

// Rescale maps indices sampled at from onto a grid sampled at to, clamping to [0, n).
// Indices that collapse onto the same target sample are merged.
func (b Beats) Rescale(from, to float64, n int) Beats {
	if from == to {
		out := make(Beats, len(b))
		copy(out, b)
		return out
	}
	ratio := to / from
	out := make(Beats, 0, len(b))
	for _, idx := range b {
		m := int(float64(idx)*ratio + 0.5)
		if m >= n {
			m = n - 1
		}
		if m < 0 {
			m = 0
		}
		if len(out) > 0 && m <= out[len(out)-1] {
			continue
		}
		out = append(out, m)
	}
	return out
}
