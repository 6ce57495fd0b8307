package models

import "time"

// Run summarises one analysed recording.
type Run struct {
	ID          string    `json:"id"`
	Source      string    `json:"source"`
	Detector    string    `json:"detector"`
	SampleRate  float64   `json:"sample_rate"` // Hz
	Samples     int       `json:"samples"`
	DurationSec float64   `json:"duration_sec"`
	Beats       int       `json:"beats"`
	Rejected    int       `json:"rejected"`  // RR intervals outside the limits
	Corrected   int       `json:"corrected"` // ectopic RR intervals replaced by the local median
	Score       *Score    `json:"score,omitempty"`
	HRV         HRV       `json:"hrv"`
	Config      string    `json:"config,omitempty"` // processing configuration as JSON
	CreatedAt   time.Time `json:"created_at"`
}

// Score compares detected beats against reference annotations.
type Score struct {
	TP           int     `json:"tp"`
	FP           int     `json:"fp"`
	FN           int     `json:"fn"`
	Sensitivity  float64 `json:"sensitivity"`
	Precision    float64 `json:"precision"`
	F1           float64 `json:"f1"`
	MeanOffsetMs float64 `json:"mean_offset_ms"`
}

// HRV holds the headline heart rate variability numbers. Spectral powers are
// zero when the recording is too short for them.
type HRV struct {
	MeanHR float64 `json:"mean_hr"` // bpm
	SDNN   float64 `json:"sdnn"`    // ms
	RMSSD  float64 `json:"rmssd"`   // ms
	PNN50  float64 `json:"pnn50"`   // percent
	LF     float64 `json:"lf"`      // ms²
	HF     float64 `json:"hf"`      // ms²
	LFHF   float64 `json:"lf_hf"`
}

// Beat is one detected beat. RR fields describe the interval ending at it and
// are empty for the first beat.
type Beat struct {
	Seq       int     `json:"seq"`
	Sample    int     `json:"sample"`
	RRSeconds float64 `json:"rr_seconds,omitempty"` // measured
	RRValue   float64 `json:"rr_value,omitempty"`   // after correction
	Flag      string  `json:"flag,omitempty"`       // valid, corrected or rejected
}
