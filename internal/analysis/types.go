// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"sort"
)

// Beat is a rhythmic pulse in the track, in seconds from the track start.
type Beat struct {
	Start      float64 `json:"start"`
	Duration   float64 `json:"duration,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

// Segment is an interval of the track with an attack/peak/decay loudness
// envelope. Loudness values are in dB, times in seconds.
type Segment struct {
	Start           float64 `json:"start"`
	Duration        float64 `json:"duration"`
	LoudnessStart   float64 `json:"loudness_start"`
	LoudnessMax     float64 `json:"loudness_max"`
	LoudnessMaxTime float64 `json:"loudness_max_time"`
}

// End returns the exclusive end of the segment.
func (s Segment) End() float64 {
	return s.Start + s.Duration
}

// Track carries the track-level fields of the payload.
type Track struct {
	Tempo    float64 `json:"tempo"`
	Duration float64 `json:"duration,omitempty"`
}

// AudioAnalysis is the precomputed analysis of one track. It is read-only
// for the lifetime of the track; nothing in this module mutates it.
type AudioAnalysis struct {
	Beats    []Beat    `json:"beats"`
	Segments []Segment `json:"segments"`
	Track    Track     `json:"track"`
}

// Empty reports whether there is nothing to lock onto.
func (a *AudioAnalysis) Empty() bool {
	return a == nil || len(a.Beats) == 0
}

// Clone returns a deep copy, so the copy can be handed to another
// goroutine without sharing backing arrays.
func (a *AudioAnalysis) Clone() *AudioAnalysis {
	if a == nil {
		return nil
	}
	return &AudioAnalysis{
		Beats:    append([]Beat(nil), a.Beats...),
		Segments: append([]Segment(nil), a.Segments...),
		Track:    a.Track,
	}
}

// Validate checks the ordering invariants the lookups rely on.
func (a *AudioAnalysis) Validate() error {
	if a == nil {
		return fmt.Errorf("analysis is nil")
	}
	for i := 1; i < len(a.Beats); i++ {
		if a.Beats[i].Start <= a.Beats[i-1].Start {
			return fmt.Errorf("beat %d at %.3fs is not after beat %d at %.3fs",
				i, a.Beats[i].Start, i-1, a.Beats[i-1].Start)
		}
	}
	if !sort.SliceIsSorted(a.Segments, func(i, j int) bool {
		return a.Segments[i].Start < a.Segments[j].Start
	}) {
		return fmt.Errorf("segments are not ordered by start")
	}
	for i, s := range a.Segments {
		if s.Duration < 0 {
			return fmt.Errorf("segment %d has negative duration %.3f", i, s.Duration)
		}
	}
	if a.Track.Tempo < 0 {
		return fmt.Errorf("negative tempo %.2f", a.Track.Tempo)
	}
	return nil
}
