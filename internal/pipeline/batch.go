package pipeline

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/himanishpuri/CardioDNA/internal/ecg"
	"github.com/himanishpuri/CardioDNA/internal/match"
)

// Job is one recording of a batch. Load runs on a worker, so large files are
// only held in memory while they are processed. A nil reference skips scoring.
type Job struct {
	Name string
	Load func() (sig ecg.Signal, reference ecg.Beats, err error)
}

// Result pairs a job with its report or the error that stopped it.
type Result struct {
	Name   string
	Report Report
	Err    error
}

// Batch runs jobs on at most workers goroutines (<= 0 means GOMAXPROCS). A job
// that fails to load or process is recorded in its Result and does not stop the
// others. The returned error is non-nil only for an invalid config or when ctx
// ends before every job was scheduled; results are in job order either way.
func Batch(ctx context.Context, jobs []Job, cfg Config, workers int) ([]Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	results := make([]Result, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	var cancelled error
	for i, job := range jobs {
		results[i].Name = job.Name
		if err := gctx.Err(); err != nil {
			results[i].Err = err
			cancelled = err
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i].Err = err
				return err
			}
			sig, ref, err := job.Load()
			if err != nil {
				results[i].Err = fmt.Errorf("loading %s: %w", job.Name, err)
				return nil
			}
			rep, err := Run(sig, ref, cfg)
			if err != nil {
				results[i].Err = fmt.Errorf("processing %s: %w", job.Name, err)
				return nil
			}
			results[i].Report = rep
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, cancelled
}

// Summary pools a batch.
type Summary struct {
	Recordings int          `json:"recordings"`
	Failed     int          `json:"failed"`
	Beats      int          `json:"beats"`
	Scored     int          `json:"scored"` // recordings with a reference
	Counts     match.Counts `json:"counts"`
}

// Aggregate sums beats and match counts over the successful results.
func Aggregate(results []Result) Summary {
	s := Summary{Recordings: len(results)}
	var scored []match.Result
	for _, r := range results {
		if r.Err != nil {
			s.Failed++
			continue
		}
		s.Beats += len(r.Report.Beats)
		if r.Report.Match != nil {
			scored = append(scored, *r.Report.Match)
		}
	}
	s.Scored = len(scored)
	s.Counts = match.Aggregate(scored...)
	return s
}
