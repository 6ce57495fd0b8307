package cardiodna

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/himanishpuri/CardioDNA/internal/detector"
	"github.com/himanishpuri/CardioDNA/internal/ecg"
	"github.com/himanishpuri/CardioDNA/internal/ecgio"
	"github.com/himanishpuri/CardioDNA/internal/pipeline"
	"github.com/himanishpuri/CardioDNA/internal/rr"
	"github.com/himanishpuri/CardioDNA/pkg/logger"
	"github.com/himanishpuri/CardioDNA/pkg/models"
)

// cardioService is the default implementation of the Service interface.
type cardioService struct {
	storage   Storage
	publisher Publisher
	log       Logger
	config    *Config
}

func NewService(opts ...Option) (Service, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if err := cfg.pipeline.Validate(); err != nil {
		return nil, err
	}

	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger().With("cardiodna")
	}

	var stor Storage
	switch {
	case cfg.NoStorage:
	case cfg.Storage != nil:
		stor = cfg.Storage
	default:
		var err error
		stor, err = NewSQLiteStorage(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage: %w", err)
		}
	}

	return &cardioService{
		storage:   stor,
		publisher: cfg.Publisher,
		log:       cfg.Logger,
		config:    cfg,
	}, nil
}

// Analyze detects the beats of rec, scores them when rec carries a reference,
// then stores and announces the run.
func (s *cardioService) Analyze(ctx context.Context, rec Recording) (*Analysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sig, err := ecg.NewSignal(rec.Samples, rec.Rate)
	if err != nil {
		return nil, err
	}
	var ref ecg.Beats
	if rec.Reference != nil {
		ref = ecg.Beats(rec.Reference)
	}
	return s.process(rec.Source, sig, ref)
}

// AnalyzeFile reads one channel of a WAV recording and, when annotationsPath
// is set, its reference beats.
func (s *cardioService) AnalyzeFile(ctx context.Context, wavPath, annotationsPath string, channel int) (*Analysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sig, ref, err := load(wavPath, annotationsPath, channel)
	if err != nil {
		return nil, err
	}
	return s.process(filepath.Base(wavPath), sig, ref)
}

// AnalyzeWAV is AnalyzeFile for an in-memory or uploaded WAV stream.
func (s *cardioService) AnalyzeWAV(ctx context.Context, r io.ReadSeeker, source string, reference []int, channel int) (*Analysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sig, info, err := ecgio.DecodeWAV(r, channel)
	if err != nil {
		return nil, err
	}
	s.log.Debugf("Decoded %s: %d frames, %d channels, %d-bit at %d Hz",
		source, info.Frames, info.Channels, info.BitDepth, info.SampleRate)
	var ref ecg.Beats
	if reference != nil {
		ref = ecg.Beats(reference)
	}
	return s.process(source, sig, ref)
}

// Batch analyses items concurrently. A failing item is reported in its
// BatchResult; the error is only set when ctx ends early.
func (s *cardioService) Batch(ctx context.Context, items []BatchItem) ([]BatchResult, BatchSummary, error) {
	jobs := make([]pipeline.Job, len(items))
	for i, item := range items {
		jobs[i] = pipeline.Job{
			Name: filepath.Base(item.WAVPath),
			Load: func() (ecg.Signal, ecg.Beats, error) {
				return load(item.WAVPath, item.AnnotationsPath, item.Channel)
			},
		}
	}

	s.log.Infof("Analysing %d recordings with %s", len(items), s.config.pipeline.Detector)
	results, err := pipeline.Batch(ctx, jobs, s.config.pipeline, s.config.Workers)
	if results == nil {
		return nil, BatchSummary{}, err
	}

	// Runs are saved from this goroutine only.
	out := make([]BatchResult, len(results))
	for i, r := range results {
		out[i].Source = r.Name
		if r.Err != nil {
			s.log.Warnf("%s: %v", r.Name, r.Err)
			out[i].Err = r.Err
			continue
		}
		a, ferr := s.finish(r.Name, r.Report)
		if ferr != nil {
			out[i].Err = ferr
			continue
		}
		out[i].Analysis = a
	}

	sum := pipeline.Aggregate(results)
	summary := BatchSummary{
		Recordings:  sum.Recordings,
		Failed:      sum.Failed,
		Beats:       sum.Beats,
		Scored:      sum.Scored,
		TP:          sum.Counts.TP,
		FP:          sum.Counts.FP,
		FN:          sum.Counts.FN,
		Sensitivity: sum.Counts.Sensitivity(),
		Precision:   sum.Counts.Precision(),
		F1:          sum.Counts.F1(),
	}
	s.log.Infof("Batch done: %d/%d recordings, %d beats", sum.Recordings-sum.Failed, sum.Recordings, sum.Beats)
	return out, summary, err
}

func load(wavPath, annotationsPath string, channel int) (ecg.Signal, ecg.Beats, error) {
	sig, _, err := ecgio.ReadWAV(wavPath, channel)
	if err != nil {
		return ecg.Signal{}, nil, err
	}
	if annotationsPath == "" {
		return sig, nil, nil
	}
	ref, err := ecgio.ReadAnnotations(annotationsPath)
	if err != nil {
		return ecg.Signal{}, nil, err
	}
	return sig, ref, nil
}

func (s *cardioService) process(source string, sig ecg.Signal, ref ecg.Beats) (*Analysis, error) {
	s.log.Infof("Analysing %s (%.1fs at %g Hz)", source, sig.Duration(), sig.Rate())
	rep, err := pipeline.Run(sig, ref, s.config.pipeline)
	if err != nil {
		return nil, err
	}
	return s.finish(source, rep)
}

// finish converts rep, saves it when storage is enabled and publishes it.
// A failed publish is logged and does not fail the analysis.
func (s *cardioService) finish(source string, rep pipeline.Report) (*Analysis, error) {
	a := s.analysisOf(source, rep)
	s.log.Infof("%s: %d beats (%d rejected, %d corrected RR), mean HR %.1f bpm",
		source, a.Run.Beats, a.Run.Rejected, a.Run.Corrected, a.Run.HRV.MeanHR)
	if sc := a.Run.Score; sc != nil {
		s.log.Infof("%s: sensitivity %.3f precision %.3f (TP=%d FP=%d FN=%d)",
			source, sc.Sensitivity, sc.Precision, sc.TP, sc.FP, sc.FN)
	}

	if s.storage != nil {
		id, err := s.storage.SaveRun(a.Run, a.Beats)
		if err != nil {
			return nil, fmt.Errorf("failed to save run: %w", err)
		}
		a.Run.ID = id
		s.log.Debugf("Saved run %s", id)
	}

	if s.publisher != nil {
		if err := s.publisher.PublishRun(a.Run); err != nil {
			s.log.Warnf("Failed to publish run %s: %v", a.Run.ID, err)
		}
	}
	return a, nil
}

func (s *cardioService) analysisOf(source string, rep pipeline.Report) *Analysis {
	run := models.Run{
		Source:      source,
		Detector:    rep.Detector,
		SampleRate:  rep.Rate,
		Samples:     rep.Samples,
		DurationSec: rep.Duration(),
		Beats:       len(rep.Beats),
		Rejected:    rep.RR.Count(rr.Rejected),
		Corrected:   rep.RR.Count(rr.Corrected),
		CreatedAt:   time.Now().UTC(),
	}
	if cfg, err := json.Marshal(s.config.pipeline); err == nil {
		run.Config = string(cfg)
	}
	if f := rep.HRV; f != nil {
		run.HRV = models.HRV{
			MeanHR: f.Time.MeanHR,
			SDNN:   f.Time.SDNN,
			RMSSD:  f.Time.RMSSD,
			PNN50:  f.Time.PNN50,
		}
		if fd := f.Freq; fd != nil {
			run.HRV.LF = fd.LF
			run.HRV.HF = fd.HF
			run.HRV.LFHF = fd.LFHF
		}
	}

	a := &Analysis{
		Candidates: []int(rep.Candidates),
		Beats:      make([]models.Beat, len(rep.Beats)),
	}
	for i, b := range rep.Beats {
		a.Beats[i] = models.Beat{Seq: i, Sample: b}
		if i > 0 {
			a.Beats[i].RRSeconds = rep.RR.Original[i-1]
			a.Beats[i].RRValue = rep.RR.Values[i-1]
			a.Beats[i].Flag = rep.RR.Flags[i-1].String()
		}
	}

	if m := rep.Match; m != nil {
		run.Score = &models.Score{
			TP:           m.TP,
			FP:           m.FP,
			FN:           m.FN,
			Sensitivity:  m.Sensitivity(),
			Precision:    m.Precision(),
			F1:           m.F1(),
			MeanOffsetMs: m.MeanAbsOffset() * 1000,
		}
		a.Missed = m.UnmatchedReferences
		a.Extra = m.UnmatchedCandidates
	}
	a.Run = run
	return a
}

func (s *cardioService) GetRun(id string) (*models.Run, error) {
	if s.storage == nil {
		return nil, ErrNoStorage
	}
	return s.storage.GetRun(id)
}

func (s *cardioService) GetBeats(runID string) ([]models.Beat, error) {
	if s.storage == nil {
		return nil, ErrNoStorage
	}
	return s.storage.GetBeats(runID)
}

// ListRuns returns the newest runs first; limit <= 0 returns all.
func (s *cardioService) ListRuns(limit int) ([]models.Run, error) {
	if s.storage == nil {
		return nil, ErrNoStorage
	}
	return s.storage.ListRuns(limit)
}

// DeleteRun removes a run and its beats.
func (s *cardioService) DeleteRun(id string) error {
	if s.storage == nil {
		return ErrNoStorage
	}
	return s.storage.DeleteRun(id)
}

func (s *cardioService) Detectors() []string {
	return detector.Names()
}

// Close releases all resources held by the service.
func (s *cardioService) Close() error {
	var errs []error
	if s.publisher != nil {
		errs = append(errs, s.publisher.Close())
	}
	if s.storage != nil {
		errs = append(errs, s.storage.Close())
	}
	return errors.Join(errs...)
}
