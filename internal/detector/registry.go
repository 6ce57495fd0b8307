package detector

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/himanishpuri/CardioDNA/internal/ecg"
)

// Factory builds a detector from raw JSON options. Empty options mean defaults.
type Factory func(raw json.RawMessage) (Detector, error)

// registry is explicit: adding a detector means adding an entry here.
var registry = map[string]Factory{
	// threshold: amplitude crossing of a fraction of the robust maximum
	"threshold": func(raw json.RawMessage) (Detector, error) {
		var opts ThresholdOptions
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return NewThreshold(opts)
	},
	// pantompkins: squared-derivative envelope with adaptive thresholds
	"pantompkins": func(raw json.RawMessage) (Detector, error) {
		var opts PanTompkinsOptions
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return NewPanTompkins(opts)
	},
}

// Default is the detector used when none is named.
const Default = "pantompkins"

// New builds the detector registered under name.
func New(name string, raw json.RawMessage) (Detector, error) {
	if name == "" {
		name = Default
	}
	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown detector %q (available: %v)", ecg.ErrInvalidConfig, name, Names())
	}
	return f(raw)
}

// Names lists the registered detectors in sorted order.
func Names() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// strictUnmarshal rejects unknown fields; empty input leaves v at its zero value.
func strictUnmarshal(raw json.RawMessage, v any) error {
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: detector options: %v", ecg.ErrInvalidConfig, err)
	}
	return nil
}
