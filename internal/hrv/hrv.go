// Package hrv derives heart-rate variability features from an annotated RR series.
// Rejected intervals never contribute; corrected intervals contribute their
// corrected value.
package hrv

import (
	"errors"
	"fmt"
	"math"

	"github.com/himanishpuri/CardioDNA/internal/ecg"
	"github.com/himanishpuri/CardioDNA/internal/rr"
)

// ErrTooFewIntervals means the series is too short for the requested features.
// It wraps ecg.ErrInvalidInput.
var ErrTooFewIntervals = fmt.Errorf("%w: too few rr intervals", ecg.ErrInvalidInput)

// TimeDomain features. Durations are milliseconds.
type TimeDomain struct {
	Count  int     `json:"count"`
	MeanNN float64 `json:"mean_nn"`
	SDNN   float64 `json:"sdnn"`
	RMSSD  float64 `json:"rmssd"`
	SDSD   float64 `json:"sdsd"`
	NN50   int     `json:"nn50"`
	PNN50  float64 `json:"pnn50"` // percent of successive differences
	MeanHR float64 `json:"mean_hr"`
}

// Time computes the time-domain features. Successive differences are only taken
// between adjacent intervals that are both usable.
func Time(s rr.Series) (TimeDomain, error) {
	var nn []float64
	var diffs []float64
	for i, f := range s.Flags {
		if f == rr.Rejected {
			continue
		}
		nn = append(nn, s.Values[i]*1000)
		if i > 0 && s.Flags[i-1] != rr.Rejected {
			diffs = append(diffs, (s.Values[i]-s.Values[i-1])*1000)
		}
	}
	if len(nn) < 2 {
		return TimeDomain{}, fmt.Errorf("%w: %d usable", ErrTooFewIntervals, len(nn))
	}

	td := TimeDomain{Count: len(nn)}
	var hr float64
	for _, v := range nn {
		td.MeanNN += v
		hr += 60000 / v
	}
	td.MeanNN /= float64(len(nn))
	td.MeanHR = hr / float64(len(nn))
	td.SDNN = stddev(nn)

	if len(diffs) > 0 {
		var sq float64
		for _, d := range diffs {
			sq += d * d
			if math.Abs(d) > 50 {
				td.NN50++
			}
		}
		td.RMSSD = math.Sqrt(sq / float64(len(diffs)))
		td.SDSD = stddev(diffs)
		td.PNN50 = 100 * float64(td.NN50) / float64(len(diffs))
	}
	return td, nil
}

// stddev is the sample standard deviation, 0 for fewer than two values.
func stddev(x []float64) float64 {
	if len(x) < 2 {
		return 0
	}
	var mean float64
	for _, v := range x {
		mean += v
	}
	mean /= float64(len(x))
	var ss float64
	for _, v := range x {
		ss += (v - mean) * (v - mean)
	}
	return math.Sqrt(ss / float64(len(x)-1))
}

// Features bundles both feature families. Freq is nil when the recording is too
// short for a spectral estimate.
type Features struct {
	Time TimeDomain       `json:"time"`
	Freq *FrequencyDomain `json:"freq,omitempty"`
}

// Compute returns time-domain features and, when possible, frequency-domain ones.
func Compute(s rr.Series) (Features, error) {
	td, err := Time(s)
	if err != nil {
		return Features{}, err
	}
	out := Features{Time: td}
	fd, err := Frequency(s)
	switch {
	case err == nil:
		out.Freq = &fd
	case !errors.Is(err, ErrTooFewIntervals):
		return Features{}, err
	}
	return out, nil
}
