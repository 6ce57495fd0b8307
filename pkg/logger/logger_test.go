package logger

import (
	"bytes"
	"strings"
	"testing"
)

func newTestLogger(level LogLevel) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	l := New(Config{Level: level, Output: &buf})
	return l, &buf
}

func TestLevelFiltering(t *testing.T) {
	l, buf := newTestLogger(WARN)

	l.Debugf("debug %d", 1)
	l.Infof("info %d", 2)
	l.Warnf("warn %d", 3)
	l.Errorf("error %d", 4)

	out := buf.String()
	if strings.Contains(out, "debug 1") || strings.Contains(out, "info 2") {
		t.Errorf("messages below WARN were written:\n%s", out)
	}
	if !strings.Contains(out, "[WARN] warn 3") || !strings.Contains(out, "[ERROR] error 4") {
		t.Errorf("expected WARN and ERROR lines, got:\n%s", out)
	}
}

func TestWithPrefix(t *testing.T) {
	l, buf := newTestLogger(DEBUG)
	child := l.With("pipeline").With("rec01")

	child.Infof("found %d beats", 72)
	l.Infof("plain")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), lines)
	}
	if !strings.HasSuffix(lines[0], "[INFO] [pipeline rec01] found 72 beats") {
		t.Errorf("unexpected child line %q", lines[0])
	}
	if strings.Contains(lines[1], "pipeline") {
		t.Errorf("parent picked up child prefix: %q", lines[1])
	}
}

func TestColorize(t *testing.T) {
	l, buf := newTestLogger(INFO)
	l.SetColorize(true)
	l.Errorf("boom")
	if !strings.Contains(buf.String(), colorRed+"[ERROR]"+colorReset) {
		t.Errorf("expected coloured level, got %q", buf.String())
	}
}

func TestFatalExits(t *testing.T) {
	l, buf := newTestLogger(INFO)
	code := -1
	l.exit = func(c int) { code = c }

	l.Fatalf("cannot continue")
	if code != 1 {
		t.Errorf("expected exit code 1, got %d", code)
	}
	if !strings.Contains(buf.String(), "[FATAL] cannot continue") {
		t.Errorf("fatal message missing: %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
		ok   bool
	}{
		{"debug", DEBUG, true},
		{" Info ", INFO, true},
		{"warning", WARN, true},
		{"ERROR", ERROR, true},
		{"fatal", FATAL, true},
		{"verbose", INFO, false},
		{"", INFO, false},
	}
	for _, tt := range tests {
		got, ok := ParseLevel(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
