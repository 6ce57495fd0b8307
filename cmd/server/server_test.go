package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/himanishpuri/CardioDNA/internal/ecgio"
	"github.com/himanishpuri/CardioDNA/internal/synth"
	"github.com/himanishpuri/CardioDNA/pkg/cardiodna"
	"github.com/himanishpuri/CardioDNA/pkg/logger"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	quiet := logger.New(logger.Config{Level: logger.FATAL, Output: io.Discard})
	svc, err := cardiodna.NewService(
		cardiodna.WithDBPath(filepath.Join(t.TempDir(), "api.sqlite3")),
		cardiodna.WithLogger(quiet),
	)
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	t.Cleanup(func() { svc.Close() })

	s := &Server{service: svc, config: &ServerConfig{AllowedOrigins: []string{"*"}}, log: quiet}
	ts := httptest.NewServer(s.setupRoutes())
	t.Cleanup(ts.Close)
	return ts
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
}

func synthRequest(t *testing.T) AnalyzeRequest {
	t.Helper()
	rec, err := synth.Generate(synth.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	return AnalyzeRequest{
		Source:    "synthetic",
		Rate:      rec.Signal.Rate(),
		Samples:   rec.Signal.Samples(),
		Reference: []int(rec.Peaks),
	}
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func TestHealthAndDetectors(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health: expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp, err = http.Get(ts.URL + "/api/detectors")
	if err != nil {
		t.Fatal(err)
	}
	var det DetectorsResponse
	decode(t, resp, &det)
	if det.Default != "pantompkins" || len(det.Detectors) != 2 {
		t.Errorf("unexpected detectors %+v", det)
	}
}

func TestAnalyzeAndRunLifecycle(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/analyze", synthRequest(t))
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("analyze: expected 200, got %d: %s", resp.StatusCode, body)
	}
	var a cardiodna.Analysis
	decode(t, resp, &a)
	if a.Run.ID == "" || a.Run.Score == nil || a.Run.Score.Sensitivity < 0.9 {
		t.Fatalf("unexpected analysis %+v", a.Run)
	}

	resp, err := http.Get(ts.URL + "/api/runs")
	if err != nil {
		t.Fatal(err)
	}
	var list ListRunsResponse
	decode(t, resp, &list)
	if list.Count != 1 || list.Runs[0].ID != a.Run.ID {
		t.Errorf("unexpected run list %+v", list)
	}

	resp, err = http.Get(ts.URL + "/api/runs/" + a.Run.ID + "/beats")
	if err != nil {
		t.Fatal(err)
	}
	var beats BeatsResponse
	decode(t, resp, &beats)
	if beats.Count != a.Run.Beats {
		t.Errorf("expected %d beats, got %d", a.Run.Beats, beats.Count)
	}

	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/runs/"+a.Run.ID, nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("delete: expected 200, got %d", resp.StatusCode)
	}

	resp, err = http.Get(ts.URL + "/api/runs/" + a.Run.ID)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("get after delete: expected 404, got %d", resp.StatusCode)
	}
}

func TestAnalyzeBadRequests(t *testing.T) {
	ts := newTestServer(t)

	unsorted := synthRequest(t)
	unsorted.Reference = []int{300, 200}

	tests := []struct {
		name string
		body any
	}{
		{"empty samples", AnalyzeRequest{Rate: 250}},
		{"zero rate", AnalyzeRequest{Samples: []float64{0, 1, 0}}},
		{"unsorted reference", unsorted},
		{"not an object", []int{1, 2, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, ts.URL+"/api/analyze", tt.body)
			var e ErrorResponse
			decode(t, resp, &e)
			if resp.StatusCode != http.StatusBadRequest || e.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d (%+v)", resp.StatusCode, e)
			}
		})
	}
}

func TestAnalyzeWAVUpload(t *testing.T) {
	ts := newTestServer(t)

	rec, err := synth.Generate(synth.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	wavPath := filepath.Join(t.TempDir(), "upload.wav")
	if err := ecgio.WriteWAV(wavPath, rec.Signal, 16); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(wavPath)
	if err != nil {
		t.Fatal(err)
	}

	var ann strings.Builder
	for _, p := range rec.Peaks {
		fmt.Fprintf(&ann, "%d\n", p)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, _ := mw.CreateFormFile("ecg", "upload.wav")
	fw.Write(data)
	aw, _ := mw.CreateFormFile("annotations", "upload.txt")
	aw.Write([]byte(ann.String()))
	mw.Close()

	resp, err := http.Post(ts.URL+"/api/analyze/wav", mw.FormDataContentType(), &body)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, b)
	}
	var a cardiodna.Analysis
	decode(t, resp, &a)
	if a.Run.Source != "upload.wav" || a.Run.Score == nil || a.Run.Score.F1 < 0.9 {
		t.Errorf("unexpected analysis %+v", a.Run)
	}
}

func TestAnalyzeWAVRejectsJunk(t *testing.T) {
	ts := newTestServer(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, _ := mw.CreateFormFile("ecg", "junk.wav")
	fw.Write([]byte("definitely not RIFF"))
	mw.Close()

	resp, err := http.Post(ts.URL+"/api/analyze/wav", mw.FormDataContentType(), &body)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("x: %w", cardiodna.ErrInvalidInput), http.StatusBadRequest},
		{cardiodna.ErrInvalidLimits, http.StatusBadRequest},
		{fmt.Errorf("%w: abc", cardiodna.ErrRunNotFound), http.StatusNotFound},
		{cardiodna.ErrNoStorage, http.StatusNotImplemented},
		{io.ErrUnexpectedEOF, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
