package ecgio

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/himanishpuri/CardioDNA/internal/ecg"
	"github.com/himanishpuri/CardioDNA/pkg/utils"
)

// ReadAnnotations loads a beat annotation file: one sample index per line as the
// first field, optionally followed by a label. Blank lines and lines starting
// with '#' are ignored. The indices must already be strictly increasing.
func ReadAnnotations(path string) (ecg.Beats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	beats, err := ParseAnnotations(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", filepath.Base(path), err)
	}
	return beats, nil
}

// ParseAnnotations is ReadAnnotations over a stream.
func ParseAnnotations(r io.Reader) (ecg.Beats, error) {
	var beats ecg.Beats
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.FieldsFunc(text, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' })
		if len(fields) == 0 {
			continue
		}
		field := fields[0]
		idx, err := strconv.Atoi(field)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %q is not a sample index", ecg.ErrInvalidInput, line, field)
		}
		beats = append(beats, idx)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if err := beats.Validate(0); err != nil {
		return nil, err
	}
	return beats, nil
}

// WriteAnnotations stores beats in the format ReadAnnotations accepts.
func WriteAnnotations(path string, beats ecg.Beats, header string) error {
	if err := beats.Validate(0); err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := utils.MakeDir(dir); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".beats-*.txt")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return err
	}

	w := bufio.NewWriter(tmp)
	if header != "" {
		for _, l := range strings.Split(header, "\n") {
			fmt.Fprintf(w, "# %s\n", l)
		}
	}
	for _, b := range beats {
		fmt.Fprintln(w, b)
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return utils.MoveFile(tmp.Name(), path)
}
