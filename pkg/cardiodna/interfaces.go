package cardiodna

import (
	"context"
	"io"

	"github.com/himanishpuri/CardioDNA/pkg/models"
)

type Service interface {
	Analyze(ctx context.Context, rec Recording) (*Analysis, error)
	AnalyzeFile(ctx context.Context, wavPath, annotationsPath string, channel int) (*Analysis, error)
	AnalyzeWAV(ctx context.Context, r io.ReadSeeker, source string, reference []int, channel int) (*Analysis, error)
	Batch(ctx context.Context, items []BatchItem) ([]BatchResult, BatchSummary, error)
	GetRun(id string) (*models.Run, error)
	GetBeats(runID string) ([]models.Beat, error)
	ListRuns(limit int) ([]models.Run, error)
	DeleteRun(id string) error
	Detectors() []string
	Close() error
}

type Storage interface {
	SaveRun(run models.Run, beats []models.Beat) (string, error)
	GetRun(id string) (*models.Run, error)
	GetBeats(runID string) ([]models.Beat, error)
	ListRuns(limit int) ([]models.Run, error)
	DeleteRun(id string) error
	Close() error
}

// Publisher announces finished runs.
type Publisher interface {
	PublishRun(run models.Run) error
	Close() error
}

type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
}
