// SPDX-License-Identifier: MIT
package analysis

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
)

// Decode reads a provider analysis payload from r and validates it.
func Decode(r io.Reader) (*AudioAnalysis, error) {
	var a AudioAnalysis
	if err := json.NewDecoder(r).Decode(&a); err != nil {
		return nil, fmt.Errorf("failed to decode analysis: %w", err)
	}
	if err := a.Validate(); err != nil {
		return nil, fmt.Errorf("invalid analysis: %w", err)
	}
	return &a, nil
}

// LoadFile reads a cached analysis payload from disk.
func LoadFile(path string) (*AudioAnalysis, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open analysis file: %w", err)
	}
	defer f.Close()

	return Decode(f)
}

// Synthetic builds a steady-tempo analysis spanning duration seconds: one
// beat per period and one segment per beat whose envelope peaks a tenth of
// a beat in, alternating between an accented and an unaccented level.
// It stands in for the remote provider in demos and tests.
func Synthetic(tempo, duration float64) *AudioAnalysis {
	a := &AudioAnalysis{Track: Track{Tempo: tempo, Duration: duration}}
	if tempo <= 0 || duration <= 0 {
		return a
	}

	period := 60 / tempo
	n := int(math.Floor(duration / period))
	a.Beats = make([]Beat, 0, n)
	a.Segments = make([]Segment, 0, n)
	for i := 0; i < n; i++ {
		start := float64(i) * period
		peak := -12.0
		if i%4 == 0 {
			peak = -6.0
		}
		a.Beats = append(a.Beats, Beat{Start: start, Duration: period, Confidence: 1})
		a.Segments = append(a.Segments, Segment{
			Start:           start,
			Duration:        period,
			LoudnessStart:   -30,
			LoudnessMax:     peak,
			LoudnessMaxTime: period / 10,
		})
	}
	return a
}
