package stream

import (
	"encoding/json"
	"errors"
	"testing"
)

type fakeConn struct {
	subjects []string
	payloads [][]byte
	err      error
	drained  bool
}

func (f *fakeConn) Publish(subject string, data []byte) error {
	if f.err != nil {
		return f.err
	}
	f.subjects = append(f.subjects, subject)
	f.payloads = append(f.payloads, data)
	return nil
}

func (f *fakeConn) Drain() error {
	f.drained = true
	return nil
}

func TestPublish(t *testing.T) {
	conn := &fakeConn{}
	p, err := NewPublisher(conn, "")
	if err != nil {
		t.Fatalf("NewPublisher failed: %v", err)
	}
	if p.Subject() != DefaultSubject {
		t.Errorf("expected default subject, got %q", p.Subject())
	}

	sens := 0.98
	if err := p.Publish(Summary{RunID: "r1", Source: "rec.wav", Beats: 72, MeanHR: 71.5, Sensitivity: &sens}); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if len(conn.payloads) != 1 || conn.subjects[0] != DefaultSubject {
		t.Fatalf("expected one message on %s, got %v", DefaultSubject, conn.subjects)
	}

	var got map[string]any
	if err := json.Unmarshal(conn.payloads[0], &got); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if got["run_id"] != "r1" || got["beats"] != float64(72) || got["sensitivity"] != 0.98 {
		t.Errorf("unexpected payload %s", conn.payloads[0])
	}
	if ts, _ := got["ts"].(float64); ts <= 0 {
		t.Errorf("expected a timestamp, got %v", got["ts"])
	}
	if _, ok := got["precision"]; ok {
		t.Error("precision should be omitted without a reference")
	}

	if err := p.Close(); err != nil || !conn.drained {
		t.Errorf("expected Close to drain, got %v", err)
	}
}

func TestPublishError(t *testing.T) {
	boom := errors.New("connection closed")
	p, _ := NewPublisher(&fakeConn{err: boom}, "cardio.test")
	if err := p.Publish(Summary{}); !errors.Is(err, boom) {
		t.Errorf("expected wrapped publish error, got %v", err)
	}
}

func TestNewPublisherNilConn(t *testing.T) {
	if _, err := NewPublisher(nil, ""); err == nil {
		t.Error("expected error for nil connection")
	}
}
