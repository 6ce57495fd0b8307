// Package match scores candidate beats against reference annotations.
//
// Matching is a monotone two-pointer walk over both sorted sequences. A pair is
// committed as soon as it is within tolerance; the walk never looks ahead for a
// closer partner. This is not a globally optimal assignment for pathological
// interleavings, but it is linear, deterministic and the usual convention for
// scoring QRS detectors.
package match

import (
	"fmt"
	"math"

	"github.com/himanishpuri/CardioDNA/internal/ecg"
)

// Pair links a candidate to a reference beat. Candidate and Reference are
// positions in the input sequences; Offset is candidate minus reference in samples.
type Pair struct {
	Candidate int `json:"candidate"`
	Reference int `json:"reference"`
	Offset    int `json:"offset"`
}

// Counts is the confusion summary shared by single results and aggregates.
type Counts struct {
	TP int `json:"tp"`
	FP int `json:"fp"`
	FN int `json:"fn"`
}

// Sensitivity is TP/(TP+FN), or 0 when there are no reference beats.
func (c Counts) Sensitivity() float64 { return ratio(c.TP, c.TP+c.FN) }

// Precision is TP/(TP+FP), or 0 when there are no candidates.
func (c Counts) Precision() float64 { return ratio(c.TP, c.TP+c.FP) }

// F1 is the harmonic mean of sensitivity and precision, or 0 when both are 0.
func (c Counts) F1() float64 {
	s, p := c.Sensitivity(), c.Precision()
	if s+p == 0 {
		return 0
	}
	return 2 * s * p / (s + p)
}

// Add returns the element-wise sum.
func (c Counts) Add(o Counts) Counts {
	return Counts{TP: c.TP + o.TP, FP: c.FP + o.FP, FN: c.FN + o.FN}
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

// Result is the outcome of one Match call.
type Result struct {
	Counts
	Pairs               []Pair  `json:"pairs"`
	UnmatchedCandidates []int   `json:"unmatched_candidates"`
	UnmatchedReferences []int   `json:"unmatched_references"`
	Rate                float64 `json:"rate"`
}

// MeanAbsOffset is the mean timing error of matched pairs in seconds, 0 without pairs.
func (r Result) MeanAbsOffset() float64 {
	if len(r.Pairs) == 0 || r.Rate <= 0 {
		return 0
	}
	sum := 0
	for _, p := range r.Pairs {
		if p.Offset < 0 {
			sum -= p.Offset
		} else {
			sum += p.Offset
		}
	}
	return float64(sum) / float64(len(r.Pairs)) / r.Rate
}

// Match aligns candidates with reference. Both must be strictly increasing and
// sampled at rate; a pair matches when their distance is at most tolerance seconds.
func Match(candidates, reference ecg.Beats, tolerance, rate float64) (Result, error) {
	if rate <= 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		return Result{}, fmt.Errorf("%w: sampling rate %v", ecg.ErrInvalidConfig, rate)
	}
	if tolerance < 0 || math.IsNaN(tolerance) {
		return Result{}, fmt.Errorf("%w: tolerance %v", ecg.ErrInvalidConfig, tolerance)
	}
	if err := candidates.Validate(0); err != nil {
		return Result{}, fmt.Errorf("candidates: %w", err)
	}
	if err := reference.Validate(0); err != nil {
		return Result{}, fmt.Errorf("reference: %w", err)
	}

	res := Result{
		Pairs:               []Pair{},
		UnmatchedCandidates: []int{},
		UnmatchedReferences: []int{},
		Rate:                rate,
	}
	i, j := 0, 0
	for i < len(candidates) && j < len(reference) {
		c, r := candidates[i], reference[j]
		switch {
		case math.Abs(float64(c-r))/rate <= tolerance:
			res.Pairs = append(res.Pairs, Pair{Candidate: i, Reference: j, Offset: c - r})
			i++
			j++
		case c < r:
			res.UnmatchedCandidates = append(res.UnmatchedCandidates, i)
			i++
		default:
			res.UnmatchedReferences = append(res.UnmatchedReferences, j)
			j++
		}
	}
	for ; i < len(candidates); i++ {
		res.UnmatchedCandidates = append(res.UnmatchedCandidates, i)
	}
	for ; j < len(reference); j++ {
		res.UnmatchedReferences = append(res.UnmatchedReferences, j)
	}

	res.TP = len(res.Pairs)
	res.FP = len(res.UnmatchedCandidates)
	res.FN = len(res.UnmatchedReferences)
	return res, nil
}

// Aggregate sums the counts of several results, e.g. one per recording.
func Aggregate(results ...Result) Counts {
	var total Counts
	for _, r := range results {
		total = total.Add(r.Counts)
	}
	return total
}
