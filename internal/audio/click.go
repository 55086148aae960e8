// SPDX-License-Identifier: MIT

// Package audio renders a click track for an analysis, one click per beat,
// so beat positions can be checked by ear against the source track.
package audio

import (
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"beatsync/internal/analysis"
)

// ClickOptions shapes the rendered click track.
type ClickOptions struct {
	SampleRate  int
	BitDepth    int
	Frequency   float64       // Click tone in Hz.
	ClickLength time.Duration // Audible length of one click.
	Tail        time.Duration // Silence appended after the track.
	// Clicks never drop below this fraction of full scale, however quiet
	// the music is at the beat.
	MinAmplitude float64
}

// DefaultClickOptions is 16-bit mono at 44.1kHz with 30ms, 1kHz clicks.
func DefaultClickOptions() ClickOptions {
	return ClickOptions{
		SampleRate:   44100,
		BitDepth:     16,
		Frequency:    1000,
		ClickLength:  30 * time.Millisecond,
		MinAmplitude: 0.25,
	}
}

const renderChunk = 4096

// RenderClicks encodes a mono WAV click track for a into w. Each click's
// amplitude follows the loudness envelope where the click ends. It returns
// the number of frames written.
func RenderClicks(w io.WriteSeeker, a *analysis.AudioAnalysis, opts ClickOptions) (int, error) {
	if a == nil {
		return 0, fmt.Errorf("render clicks: no analysis")
	}
	if opts.SampleRate <= 0 || opts.ClickLength <= 0 {
		return 0, fmt.Errorf("render clicks: sample rate and click length must be positive")
	}
	if opts.BitDepth != 8 && opts.BitDepth != 16 && opts.BitDepth != 24 && opts.BitDepth != 32 {
		return 0, fmt.Errorf("render clicks: unsupported bit depth %d", opts.BitDepth)
	}

	sr := float64(opts.SampleRate)
	clickN := int(opts.ClickLength.Seconds() * sr)
	length := a.Track.Duration
	if n := len(a.Beats); n > 0 {
		length = math.Max(length, a.Beats[n-1].Start+opts.ClickLength.Seconds())
	}
	total := int(math.Ceil((length + opts.Tail.Seconds()) * sr))

	peak := float64(int(1)<<(opts.BitDepth-1) - 1)
	amps := make([]float64, len(a.Beats))
	for i, b := range a.Beats {
		db := analysis.LoudnessAt(a.Segments, b.Start+opts.ClickLength.Seconds())
		amps[i] = peak * (opts.MinAmplitude + (1-opts.MinAmplitude)*analysis.NormalizeLoudness(db))
	}

	enc := wav.NewEncoder(w, opts.SampleRate, opts.BitDepth, 1, 1)
	full := make([]int, renderChunk)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: opts.SampleRate},
		SourceBitDepth: opts.BitDepth,
	}

	decay := float64(clickN) / 5
	first := 0
	for off := 0; off < total; off += renderChunk {
		n := min(renderChunk, total-off)
		data := full[:n]
		clear(data)

		for first < len(a.Beats) && int(a.Beats[first].Start*sr)+clickN <= off {
			first++
		}
		for i := first; i < len(a.Beats); i++ {
			s := int(a.Beats[i].Start * sr)
			if s >= off+n {
				break
			}
			for j := max(s, off); j < min(s+clickN, off+n); j++ {
				k := float64(j - s)
				data[j-off] += int(amps[i] * math.Sin(2*math.Pi*opts.Frequency*k/sr) * math.Exp(-k/decay))
			}
		}
		for j, v := range data {
			data[j] = int(math.Max(-peak, math.Min(peak, float64(v))))
		}

		buf.Data = data
		if err := enc.Write(buf); err != nil {
			return off, fmt.Errorf("render clicks: write: %w", err)
		}
	}

	if err := enc.Close(); err != nil {
		return total, fmt.Errorf("render clicks: finalize: %w", err)
	}
	return total, nil
}

// WriteClickFile renders the click track to path.
func WriteClickFile(path string, a *analysis.AudioAnalysis, opts ClickOptions) (int, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	frames, err := RenderClicks(f, a, opts)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = cerr
	}
	return frames, err
}
