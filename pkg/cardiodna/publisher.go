package cardiodna

import (
	"fmt"

	"github.com/himanishpuri/CardioDNA/internal/stream"
	"github.com/himanishpuri/CardioDNA/pkg/models"
)

// natsPublisher adapts stream.Publisher to the Publisher interface.
type natsPublisher struct {
	pub *stream.Publisher
}

// NewNATSPublisher connects to url and announces runs on subject
// (stream.DefaultSubject when empty).
func NewNATSPublisher(url, subject string) (Publisher, error) {
	nc, err := stream.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("connecting to nats: %w", err)
	}
	pub, err := stream.NewPublisher(nc, subject)
	if err != nil {
		nc.Close()
		return nil, err
	}
	return &natsPublisher{pub: pub}, nil
}

func (p *natsPublisher) PublishRun(run models.Run) error {
	return p.pub.Publish(summaryOf(run))
}

func (p *natsPublisher) Close() error {
	return p.pub.Close()
}

func summaryOf(run models.Run) stream.Summary {
	s := stream.Summary{
		RunID:       run.ID,
		Source:      run.Source,
		Detector:    run.Detector,
		DurationSec: run.DurationSec,
		Beats:       run.Beats,
		Rejected:    run.Rejected,
		Corrected:   run.Corrected,
		MeanHR:      run.HRV.MeanHR,
		SDNN:        run.HRV.SDNN,
		RMSSD:       run.HRV.RMSSD,
	}
	if !run.CreatedAt.IsZero() {
		s.Ts = run.CreatedAt.UnixMilli()
	}
	if sc := run.Score; sc != nil {
		sens, prec := sc.Sensitivity, sc.Precision
		s.Sensitivity = &sens
		s.Precision = &prec
	}
	return s
}
