package cardiodna

import (
	"encoding/json"

	"github.com/himanishpuri/CardioDNA/internal/pipeline"
	"github.com/himanishpuri/CardioDNA/internal/refine"
	"github.com/himanishpuri/CardioDNA/internal/storage"
)

type Config struct {
	DBPath    string
	Workers   int // batch workers, <= 0 means GOMAXPROCS
	Logger    Logger
	Storage   Storage
	Publisher Publisher
	NoStorage bool

	pipeline pipeline.Config
}

type Option func(*Config)

func WithDBPath(path string) Option {
	return func(c *Config) {
		c.DBPath = path
	}
}

// WithDetector selects a detector by name. options is its JSON configuration
// and may be nil for the defaults.
func WithDetector(name string, options json.RawMessage) Option {
	return func(c *Config) {
		c.pipeline.Detector = name
		c.pipeline.DetectorOptions = options
	}
}

// WithPreprocess sets the band-pass edges in Hz, the filter order and the rate
// the detector runs at (0 keeps the input rate).
func WithPreprocess(lowCut, highCut, targetRate float64, order int) Option {
	return func(c *Config) {
		c.pipeline.Preprocess.LowCut = lowCut
		c.pipeline.Preprocess.HighCut = highCut
		c.pipeline.Preprocess.TargetRate = targetRate
		c.pipeline.Preprocess.Order = order
	}
}

// WithRefine sets the peak search radius and refractory period in seconds and
// the polarity ("positive", "negative" or "absolute").
func WithRefine(searchRadius, refractory float64, polarity string) Option {
	return func(c *Config) {
		c.pipeline.Refine.SearchRadius = searchRadius
		c.pipeline.Refine.Refractory = refractory
		c.pipeline.Refine.Polarity = refine.Polarity(polarity)
	}
}

// WithRRLimits sets the physiological RR bounds in seconds and the relative
// deviation from the local median above which an interval is corrected.
func WithRRLimits(minSeconds, maxSeconds, ectopicThreshold float64) Option {
	return func(c *Config) {
		c.pipeline.Limits.MinSeconds = minSeconds
		c.pipeline.Limits.MaxSeconds = maxSeconds
		c.pipeline.Limits.EctopicThreshold = ectopicThreshold
	}
}

// WithTolerance sets the beat matching window in seconds.
func WithTolerance(seconds float64) Option {
	return func(c *Config) {
		c.pipeline.Tolerance = seconds
	}
}

func WithWorkers(n int) Option {
	return func(c *Config) {
		c.Workers = n
	}
}

func WithLogger(log Logger) Option {
	return func(c *Config) {
		c.Logger = log
	}
}

func WithStorage(storage Storage) Option {
	return func(c *Config) {
		c.Storage = storage
	}
}

func WithPublisher(p Publisher) Option {
	return func(c *Config) {
		c.Publisher = p
	}
}

// WithoutStorage analyses without persisting anything. Run queries return
// ErrNoStorage.
func WithoutStorage() Option {
	return func(c *Config) {
		c.NoStorage = true
	}
}

func defaultConfig() *Config {
	return &Config{
		DBPath:   storage.DefaultDBFile,
		pipeline: pipeline.DefaultConfig(),
	}
}
