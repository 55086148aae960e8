// SPDX-License-Identifier: MIT

// Package analysis holds the track analysis payload and the pure lookups
// over it: loudness envelope, local tempo and beat position. None of the
// lookups fail; missing data yields the documented floor values.
package analysis

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

const (
	// FloorDB is the loudness reported when no segment covers a time.
	FloorDB = -60.0

	// DefaultBPMWindow is the span, in seconds, LocalBPM looks across.
	DefaultBPMWindow = 6.0
)

// LoudnessAt returns the interpolated loudness in dB at t.
//
// Inside a segment the envelope rises linearly from LoudnessStart to
// LoudnessMax at Start+LoudnessMaxTime, then decays linearly toward the next
// segment's LoudnessStart over the rest of the segment. The last segment
// holds LoudnessMax through its decay.
func LoudnessAt(segments []Segment, t float64) float64 {
	i := segmentIndex(segments, t)
	if i < 0 {
		return FloorDB
	}
	s := segments[i]

	peakAt := s.Start + s.LoudnessMaxTime
	if t < peakAt {
		if s.LoudnessMaxTime <= 0 {
			return s.LoudnessMax
		}
		frac := (t - s.Start) / s.LoudnessMaxTime
		return lerp(s.LoudnessStart, s.LoudnessMax, frac)
	}

	target := s.LoudnessMax
	if i+1 < len(segments) {
		target = segments[i+1].LoudnessStart
	}
	decay := s.End() - peakAt
	if decay <= 0 {
		return s.LoudnessMax
	}
	return lerp(s.LoudnessMax, target, (t-peakAt)/decay)
}

// segmentIndex finds the segment with Start <= t < End, or -1.
func segmentIndex(segments []Segment, t float64) int {
	if len(segments) == 0 || math.IsNaN(t) {
		return -1
	}
	// First segment starting after t; the candidate is the one before it.
	i := sort.Search(len(segments), func(i int) bool {
		return segments[i].Start > t
	}) - 1
	if i < 0 || t >= segments[i].End() {
		return -1
	}
	return i
}

// LocalBPM estimates the tempo from the beats inside [t-window/2, t+window/2].
// It returns 0 when fewer than two beats fall in the window.
func LocalBPM(beats []Beat, t, window float64) float64 {
	if window <= 0 {
		window = DefaultBPMWindow
	}
	lo := sort.Search(len(beats), func(i int) bool {
		return beats[i].Start >= t-window/2
	})
	hi := sort.Search(len(beats), func(i int) bool {
		return beats[i].Start > t+window/2
	})
	if hi-lo < 2 {
		return 0
	}

	intervals := make([]float64, 0, hi-lo-1)
	for i := lo + 1; i < hi; i++ {
		intervals = append(intervals, beats[i].Start-beats[i-1].Start)
	}
	avg := stat.Mean(intervals, nil)
	if avg <= 0 {
		return 0
	}
	return 60 / avg
}

// NormalizeLoudness maps [-60dB, 0dB] onto [0, 1], clamping outside it.
func NormalizeLoudness(db float64) float64 {
	return clamp((db-FloorDB)/(0-FloorDB), 0, 1)
}

// Scale converts a loudness into the cosmetic scale factor
// 1 + normalized*(maxScale-1).
func Scale(db, maxScale float64) float64 {
	return 1 + NormalizeLoudness(db)*(maxScale-1)
}

// CurrentBeat returns the index of the last beat with Start <= t, or -1.
func CurrentBeat(beats []Beat, t float64) int {
	return sort.Search(len(beats), func(i int) bool {
		return beats[i].Start > t
	}) - 1
}

// NextBeat returns the index of the first beat with Start > t, or -1 when t
// is past the last beat.
func NextBeat(beats []Beat, t float64) int {
	i := sort.Search(len(beats), func(i int) bool {
		return beats[i].Start > t
	})
	if i >= len(beats) {
		return -1
	}
	return i
}

// BeatDuration returns the interval from beat i to beat i+1. Degenerate or
// out-of-range intervals are reported as 1 second.
func BeatDuration(beats []Beat, i int) float64 {
	if i < 0 || i+1 >= len(beats) {
		return 1
	}
	d := beats[i+1].Start - beats[i].Start
	if d <= 0 {
		return 1
	}
	return d
}

func lerp(a, b, frac float64) float64 {
	return a + (b-a)*clamp(frac, 0, 1)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
