package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const DefaultDBFile = "cardiodna.sqlite3"
const errDBClientNil = "db client is nil"

// ErrRunNotFound is returned when no run has the requested ID.
var ErrRunNotFound = errors.New("run not found")

type DBClient struct {
	DB *gorm.DB
	db *sql.DB
}

// Run is one analysed recording: where it came from, how it was processed and
// the summary numbers. Per-beat detail lives in Beat.
type Run struct {
	ID          string  `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Source      string  `gorm:"index:idx_run_source" json:"source"`
	Detector    string  `gorm:"index:idx_run_detector" json:"detector"`
	SampleRate  float64 `json:"sample_rate"`
	Samples     int     `json:"samples"`
	DurationSec float64 `json:"duration_sec"`
	BeatCount   int     `json:"beat_count"`
	Rejected    int     `json:"rejected"`
	Corrected   int     `json:"corrected"`

	HasReference bool    `json:"has_reference"`
	TP           int     `json:"tp"`
	FP           int     `json:"fp"`
	FN           int     `json:"fn"`
	Sensitivity  float64 `json:"sensitivity"`
	Precision    float64 `json:"precision"`
	F1           float64 `json:"f1"`
	MeanOffsetMs float64 `json:"mean_offset_ms"`

	MeanHR float64 `json:"mean_hr"`
	SDNN   float64 `json:"sdnn"`
	RMSSD  float64 `json:"rmssd"`
	PNN50  float64 `json:"pnn50"`
	LF     float64 `json:"lf"`
	HF     float64 `json:"hf"`
	LFHF   float64 `json:"lf_hf"`

	Config    string    `json:"config"` // processing configuration as JSON
	CreatedAt time.Time `json:"created_at"`
}

// Beat is a detected beat and the RR interval that ends at it.
// The first beat of a run has no interval: RRSeconds is 0 and Flag is empty.
type Beat struct {
	ID        uint    `gorm:"primaryKey;autoIncrement" json:"-"`
	RunID     string  `gorm:"type:varchar(36);index:idx_beat_run" json:"-"`
	Seq       int     `json:"seq"`
	Sample    int     `json:"sample"`
	RRSeconds float64 `json:"rr_seconds"`
	RRValue   float64 `json:"rr_value"`
	Flag      string  `json:"flag,omitempty"`
}

func NewDBClient() (*DBClient, error) {
	dbPath := os.Getenv("CARDIO_DB_PATH")
	if dbPath == "" {
		dbPath = DefaultDBFile
	}
	return NewDBClientWithPath(dbPath)
}

func NewDBClientWithPath(dbPath string) (*DBClient, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db dir: %w", err)
		}
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	db, err := gorm.Open(sqlite.Open(dbPath+"?_pragma=foreign_keys(1)"), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB from gorm: %w", err)
	}

	// One writer keeps concurrent batch saves from tripping SQLITE_BUSY.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&Run{}, &Beat{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return &DBClient{DB: db, db: sqlDB}, nil
}

func (c *DBClient) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// SaveRun stores run and its beats in one transaction and returns the run ID.
// A missing ID is generated.
func (c *DBClient) SaveRun(run *Run, beats []Beat) (string, error) {
	if c == nil || c.DB == nil {
		return "", errors.New(errDBClientNil)
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	run.BeatCount = len(beats)

	err := c.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(run).Error; err != nil {
			return fmt.Errorf("creating run: %w", err)
		}
		if len(beats) == 0 {
			return nil
		}
		rows := make([]Beat, len(beats))
		for i, b := range beats {
			b.ID = 0
			b.RunID = run.ID
			b.Seq = i
			rows[i] = b
		}
		if err := tx.CreateInBatches(rows, 500).Error; err != nil {
			return fmt.Errorf("batch insert beats: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return run.ID, nil
}

func (c *DBClient) GetRun(id string) (*Run, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}
	var run Run
	if err := c.DB.Where("id = ?", id).First(&run).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
		}
		return nil, fmt.Errorf("querying run: %w", err)
	}
	return &run, nil
}

// ListRuns returns the most recent runs first. limit <= 0 means no limit.
func (c *DBClient) ListRuns(limit int) ([]Run, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}
	q := c.DB.Order("created_at DESC").Order("id")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var runs []Run
	if err := q.Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	return runs, nil
}

func (c *DBClient) GetBeats(runID string) ([]Beat, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}
	if _, err := c.GetRun(runID); err != nil {
		return nil, err
	}
	var rows []Beat
	if err := c.DB.Where("run_id = ?", runID).Order("seq").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("querying beats: %w", err)
	}
	return rows, nil
}

func (c *DBClient) DeleteRun(runID string) error {
	if c == nil || c.DB == nil {
		return errors.New(errDBClientNil)
	}
	return c.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("run_id = ?", runID).Delete(&Beat{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", runID).Delete(&Run{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil
	})
}

func (c *DBClient) CountRuns() (int64, error) {
	if c == nil || c.DB == nil {
		return 0, errors.New(errDBClientNil)
	}
	var n int64
	if err := c.DB.Model(&Run{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("counting runs: %w", err)
	}
	return n, nil
}
