package cardiodna

import (
	"github.com/himanishpuri/CardioDNA/internal/storage"
	"github.com/himanishpuri/CardioDNA/pkg/models"
)

// storageAdapter adapts the storage.DBClient to implement the Storage interface.
type storageAdapter struct {
	db *storage.DBClient
}

// NewSQLiteStorage creates a new SQLite storage backend.
func NewSQLiteStorage(dbPath string) (Storage, error) {
	db, err := storage.NewDBClientWithPath(dbPath)
	if err != nil {
		return nil, err
	}
	return &storageAdapter{db: db}, nil
}

func (s *storageAdapter) SaveRun(run models.Run, beats []models.Beat) (string, error) {
	dbRun := toDBRun(run)
	dbBeats := make([]storage.Beat, len(beats))
	for i, b := range beats {
		dbBeats[i] = storage.Beat{
			Seq:       b.Seq,
			Sample:    b.Sample,
			RRSeconds: b.RRSeconds,
			RRValue:   b.RRValue,
			Flag:      b.Flag,
		}
	}
	return s.db.SaveRun(&dbRun, dbBeats)
}

func (s *storageAdapter) GetRun(id string) (*models.Run, error) {
	dbRun, err := s.db.GetRun(id)
	if err != nil {
		return nil, err
	}
	run := fromDBRun(*dbRun)
	return &run, nil
}

func (s *storageAdapter) GetBeats(runID string) ([]models.Beat, error) {
	dbBeats, err := s.db.GetBeats(runID)
	if err != nil {
		return nil, err
	}

	beats := make([]models.Beat, len(dbBeats))
	for i, b := range dbBeats {
		beats[i] = models.Beat{
			Seq:       b.Seq,
			Sample:    b.Sample,
			RRSeconds: b.RRSeconds,
			RRValue:   b.RRValue,
			Flag:      b.Flag,
		}
	}
	return beats, nil
}

func (s *storageAdapter) ListRuns(limit int) ([]models.Run, error) {
	dbRuns, err := s.db.ListRuns(limit)
	if err != nil {
		return nil, err
	}

	runs := make([]models.Run, len(dbRuns))
	for i, r := range dbRuns {
		runs[i] = fromDBRun(r)
	}
	return runs, nil
}

func (s *storageAdapter) DeleteRun(id string) error {
	return s.db.DeleteRun(id)
}

func (s *storageAdapter) Close() error {
	return s.db.Close()
}

func toDBRun(r models.Run) storage.Run {
	dbRun := storage.Run{
		ID:          r.ID,
		Source:      r.Source,
		Detector:    r.Detector,
		SampleRate:  r.SampleRate,
		Samples:     r.Samples,
		DurationSec: r.DurationSec,
		BeatCount:   r.Beats,
		Rejected:    r.Rejected,
		Corrected:   r.Corrected,
		MeanHR:      r.HRV.MeanHR,
		SDNN:        r.HRV.SDNN,
		RMSSD:       r.HRV.RMSSD,
		PNN50:       r.HRV.PNN50,
		LF:          r.HRV.LF,
		HF:          r.HRV.HF,
		LFHF:        r.HRV.LFHF,
		Config:      r.Config,
		CreatedAt:   r.CreatedAt,
	}
	if sc := r.Score; sc != nil {
		dbRun.HasReference = true
		dbRun.TP, dbRun.FP, dbRun.FN = sc.TP, sc.FP, sc.FN
		dbRun.Sensitivity = sc.Sensitivity
		dbRun.Precision = sc.Precision
		dbRun.F1 = sc.F1
		dbRun.MeanOffsetMs = sc.MeanOffsetMs
	}
	return dbRun
}

func fromDBRun(r storage.Run) models.Run {
	run := models.Run{
		ID:          r.ID,
		Source:      r.Source,
		Detector:    r.Detector,
		SampleRate:  r.SampleRate,
		Samples:     r.Samples,
		DurationSec: r.DurationSec,
		Beats:       r.BeatCount,
		Rejected:    r.Rejected,
		Corrected:   r.Corrected,
		HRV: models.HRV{
			MeanHR: r.MeanHR,
			SDNN:   r.SDNN,
			RMSSD:  r.RMSSD,
			PNN50:  r.PNN50,
			LF:     r.LF,
			HF:     r.HF,
			LFHF:   r.LFHF,
		},
		Config:    r.Config,
		CreatedAt: r.CreatedAt,
	}
	if r.HasReference {
		run.Score = &models.Score{
			TP:           r.TP,
			FP:           r.FP,
			FN:           r.FN,
			Sensitivity:  r.Sensitivity,
			Precision:    r.Precision,
			F1:           r.F1,
			MeanOffsetMs: r.MeanOffsetMs,
		}
	}
	return run
}
