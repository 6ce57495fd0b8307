// Package stream publishes analysis summaries on NATS.
package stream

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// DefaultSubject receives one message per analysed recording.
const DefaultSubject = "cardio.runs"

func Connect(url string) (*nats.Conn, error) {
	return nats.Connect(
		url,
		nats.Name("cardiodna"),
		nats.Timeout(3*time.Second),
		nats.ReconnectWait(500*time.Millisecond),
		nats.MaxReconnects(-1),
	)
}

// Conn is the part of *nats.Conn the publisher needs.
type Conn interface {
	Publish(subject string, data []byte) error
}

// Summary is the JSON payload of a run message.
type Summary struct {
	RunID       string  `json:"run_id,omitempty"`
	Source      string  `json:"source"`
	Detector    string  `json:"detector"`
	Ts          int64   `json:"ts"` // unix ms
	DurationSec float64 `json:"duration_sec"`
	Beats       int     `json:"beats"`
	Rejected    int     `json:"rejected"`
	Corrected   int     `json:"corrected"`
	MeanHR      float64 `json:"mean_hr"`
	SDNN        float64 `json:"sdnn"`
	RMSSD       float64 `json:"rmssd"`

	Sensitivity *float64 `json:"sensitivity,omitempty"`
	Precision   *float64 `json:"precision,omitempty"`
}

type Publisher struct {
	conn    Conn
	subject string
}

// NewPublisher publishes on subject, or DefaultSubject when empty.
func NewPublisher(conn Conn, subject string) (*Publisher, error) {
	if conn == nil {
		return nil, errors.New("nil nats connection")
	}
	if subject == "" {
		subject = DefaultSubject
	}
	return &Publisher{conn: conn, subject: subject}, nil
}

func (p *Publisher) Subject() string { return p.subject }

// Publish sends s, stamping Ts when unset.
func (p *Publisher) Publish(s Summary) error {
	if s.Ts == 0 {
		s.Ts = time.Now().UnixMilli()
	}
	b, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding summary: %w", err)
	}
	if err := p.conn.Publish(p.subject, b); err != nil {
		return fmt.Errorf("publishing to %s: %w", p.subject, err)
	}
	return nil
}

// Close drains the connection when it supports it.
func (p *Publisher) Close() error {
	if d, ok := p.conn.(interface{ Drain() error }); ok {
		return d.Drain()
	}
	return nil
}
