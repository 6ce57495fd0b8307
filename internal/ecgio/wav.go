// Package ecgio loads and stores recordings and beat annotations on disk.
package ecgio

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/himanishpuri/CardioDNA/internal/ecg"
	"github.com/himanishpuri/CardioDNA/pkg/utils"
)

// Info describes a decoded WAV stream.
type Info struct {
	SampleRate int
	Channels   int
	BitDepth   int
	Frames     int
}

// ReadWAV decodes one channel of a PCM WAV file into a Signal normalised to [-1, 1].
func ReadWAV(path string, channel int) (ecg.Signal, Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return ecg.Signal{}, Info{}, err
	}
	defer f.Close()

	sig, info, err := DecodeWAV(f, channel)
	if err != nil {
		return ecg.Signal{}, Info{}, fmt.Errorf("reading %s: %w", filepath.Base(path), err)
	}
	return sig, info, nil
}

// DecodeWAV is ReadWAV over any seekable stream, e.g. an uploaded file.
func DecodeWAV(r io.ReadSeeker, channel int) (ecg.Signal, Info, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		if err := dec.Err(); err != nil {
			return ecg.Signal{}, Info{}, fmt.Errorf("%w: not a WAV file: %v", ecg.ErrInvalidInput, err)
		}
		return ecg.Signal{}, Info{}, fmt.Errorf("%w: not a WAV file", ecg.ErrInvalidInput)
	}
	if dec.WavAudioFormat != 1 {
		return ecg.Signal{}, Info{}, fmt.Errorf("%w: only PCM WAV is supported (format %d)", ecg.ErrInvalidInput, dec.WavAudioFormat)
	}

	info := Info{
		SampleRate: int(dec.SampleRate),
		Channels:   int(dec.NumChans),
		BitDepth:   int(dec.BitDepth),
	}
	if channel < 0 || channel >= info.Channels {
		return ecg.Signal{}, Info{}, fmt.Errorf("%w: channel %d not in file with %d channels", ecg.ErrInvalidConfig, channel, info.Channels)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return ecg.Signal{}, Info{}, fmt.Errorf("decoding PCM: %w", err)
	}

	info.Frames = len(buf.Data) / info.Channels
	if info.Frames == 0 {
		return ecg.Signal{}, Info{}, fmt.Errorf("%w: WAV has no samples", ecg.ErrInvalidInput)
	}

	fullScale := float64(int64(1) << (info.BitDepth - 1))
	samples := make([]float64, info.Frames)
	for i := range samples {
		v := buf.Data[i*info.Channels+channel]
		if info.BitDepth == 8 {
			v -= 128 // unsigned
		}
		samples[i] = float64(v) / fullScale
	}

	sig, err := ecg.NewSignal(samples, float64(info.SampleRate))
	if err != nil {
		return ecg.Signal{}, Info{}, err
	}
	return sig, info, nil
}

// WriteWAV stores sig as mono PCM. The rate must be a whole number of Hz.
// Signals exceeding [-1, 1] are scaled down to fit.
func WriteWAV(path string, sig ecg.Signal, bitDepth int) error {
	if sig.IsZero() {
		return fmt.Errorf("%w: empty signal", ecg.ErrInvalidInput)
	}
	switch bitDepth {
	case 16, 24, 32:
	default:
		return fmt.Errorf("%w: unsupported bit depth %d", ecg.ErrInvalidConfig, bitDepth)
	}
	rate := sig.Rate()
	if rate != math.Trunc(rate) {
		return fmt.Errorf("%w: WAV needs an integer sample rate, got %v", ecg.ErrInvalidConfig, rate)
	}

	x := ecg.View(sig)
	peak := 1.0
	for _, v := range x {
		peak = math.Max(peak, math.Abs(v))
	}
	fullScale := float64(int64(1)<<(bitDepth-1)) - 1

	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: int(rate)},
		Data:           make([]int, len(x)),
		SourceBitDepth: bitDepth,
	}
	for i, v := range x {
		buf.Data[i] = int(math.Round(v / peak * fullScale))
	}

	dir := filepath.Dir(path)
	if err := utils.MakeDir(dir); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".ecg-*.wav")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return err
	}

	enc := wav.NewEncoder(tmp, int(rate), bitDepth, 1, 1)
	if err := enc.Write(buf); err != nil {
		tmp.Close()
		return fmt.Errorf("encoding wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		tmp.Close()
		return fmt.Errorf("finalising wav: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return utils.MoveFile(tmp.Name(), path)
}
