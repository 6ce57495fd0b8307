package detector

import (
	"fmt"

	"github.com/himanishpuri/CardioDNA/internal/ecg"
)

// PanTompkinsOptions configures the energy-envelope detector.
type PanTompkinsOptions struct {
	// Moving integration window, seconds.
	Window float64 `json:"window"`
	// Refractory period, seconds.
	Refractory float64 `json:"refractory"`
	// Search back for a missed beat once the gap exceeds this multiple of the mean RR.
	SearchBack float64 `json:"search_back"`
	// Learning phase used to seed the signal and noise levels, seconds.
	Learning float64 `json:"learning"`
}

func defaultPanTompkinsOptions() PanTompkinsOptions {
	return PanTompkinsOptions{
		Window:     0.15,
		Refractory: DefaultRefractory,
		SearchBack: 1.66,
		Learning:   2,
	}
}

// PanTompkins detects QRS complexes on the squared-derivative energy envelope
// with adaptive signal/noise thresholds.
type PanTompkins struct {
	opts PanTompkinsOptions
}

// NewPanTompkins validates opts, filling zero fields with defaults.
func NewPanTompkins(opts PanTompkinsOptions) (*PanTompkins, error) {
	def := defaultPanTompkinsOptions()
	if opts.Window == 0 {
		opts.Window = def.Window
	}
	if opts.Refractory == 0 {
		opts.Refractory = def.Refractory
	}
	if opts.SearchBack == 0 {
		opts.SearchBack = def.SearchBack
	}
	if opts.Learning == 0 {
		opts.Learning = def.Learning
	}
	if opts.Window < 0 || opts.Refractory < 0 || opts.Learning < 0 {
		return nil, fmt.Errorf("%w: pan-tompkins durations must be positive (%+v)", ecg.ErrInvalidConfig, opts)
	}
	if opts.SearchBack <= 1 {
		return nil, fmt.Errorf("%w: search-back factor must exceed 1, got %v", ecg.ErrInvalidConfig, opts.SearchBack)
	}
	return &PanTompkins{opts: opts}, nil
}

func (d *PanTompkins) Name() string { return "pantompkins" }

func (d *PanTompkins) Detect(sig ecg.Signal) (ecg.Beats, error) {
	if sig.IsZero() {
		return nil, fmt.Errorf("%w: empty signal", ecg.ErrInvalidInput)
	}
	rate := sig.Rate()
	minDist, err := refractorySamples(d.opts.Refractory, rate)
	if err != nil {
		return nil, err
	}

	env := energyEnvelope(ecg.View(sig), ecg.Seconds(d.opts.Window, rate))
	peaks := localMaxima(env)
	if len(peaks) == 0 {
		return ecg.Beats{}, nil
	}

	// Seed levels from the learning phase.
	learn := ecg.Seconds(d.opts.Learning, rate)
	if learn < 1 || learn > len(env) {
		learn = len(env)
	}
	var maxLearn, sumLearn float64
	for _, v := range env[:learn] {
		sumLearn += v
		if v > maxLearn {
			maxLearn = v
		}
	}
	spk := 0.25 * maxLearn
	npk := 0.5 * sumLearn / float64(learn)

	var (
		accepted []int
		pending  []int // sub-threshold peaks since the last accepted beat
		recent   []int // last eight RR intervals, samples
	)
	accept := func(p int) {
		if n := len(accepted); n > 0 && p-accepted[n-1] >= minDist {
			recent = append(recent, p-accepted[n-1])
			if len(recent) > 8 {
				recent = recent[1:]
			}
		}
		accepted = append(accepted, p)
		spk = 0.125*env[p] + 0.875*spk
		pending = pending[:0]
	}

	for _, p := range peaks {
		thr := npk + 0.25*(spk-npk)

		if n := len(accepted); n > 0 && len(recent) > 0 {
			mean := meanInt(recent)
			if float64(p-accepted[n-1]) > d.opts.SearchBack*mean {
				best := -1
				for _, q := range pending {
					if q-accepted[n-1] < minDist || p-q < minDist {
						continue
					}
					if env[q] > thr/2 && (best < 0 || env[q] > env[best]) {
						best = q
					}
				}
				if best >= 0 {
					accept(best)
				}
			}
		}

		if env[p] > thr {
			accept(p)
		} else {
			npk = 0.125*env[p] + 0.875*npk
			pending = append(pending, p)
		}
	}

	return EnforceRefractory(accepted, func(i int) float64 { return env[i] }, minDist), nil
}

// energyEnvelope returns the centred moving average of the squared central
// difference of x over a window of w samples.
func energyEnvelope(x []float64, w int) []float64 {
	n := len(x)
	sq := make([]float64, n)
	for i := 1; i < n-1; i++ {
		d := (x[i+1] - x[i-1]) / 2
		sq[i] = d * d
	}
	if w < 1 {
		w = 1
	}

	prefix := make([]float64, n+1)
	for i, v := range sq {
		prefix[i+1] = prefix[i] + v
	}
	half := w / 2
	env := make([]float64, n)
	for i := range env {
		lo, hi := i-half, i+half+1
		if lo < 0 {
			lo = 0
		}
		if hi > n {
			hi = n
		}
		env[i] = (prefix[hi] - prefix[lo]) / float64(w)
	}
	return env
}

func meanInt(x []int) float64 {
	var sum int
	for _, v := range x {
		sum += v
	}
	return float64(sum) / float64(len(x))
}

// localMaxima returns the indices of strict rises followed by a non-rise.
func localMaxima(x []float64) []int {
	var out []int
	for i := 1; i < len(x)-1; i++ {
		if x[i] > x[i-1] && x[i] >= x[i+1] {
			out = append(out, i)
		}
	}
	return out
}
