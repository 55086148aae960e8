// SPDX-License-Identifier: MIT
package driver

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"beatsync/internal/syncer"
)

// DefaultAccuracyHistory bounds the number of beat scores kept.
const DefaultAccuracyHistory = 128

// AccuracyTracker scores how close the video was to a head drop each time
// a beat landed. Scores are in [0, 1]; the history is a fixed ring.
type AccuracyTracker struct {
	clip   syncer.Clip
	scores []float64
	next   int
	full   bool
}

// NewAccuracyTracker keeps at most size scores.
func NewAccuracyTracker(clip syncer.Clip, size int) *AccuracyTracker {
	if size <= 0 {
		size = DefaultAccuracyHistory
	}
	return &AccuracyTracker{clip: clip, scores: make([]float64, size)}
}

// Observe records one beat. The video position is backtracked to the
// moment the beat started, since the frame that notices a new beat lands
// somewhat after it.
func (a *AccuracyTracker) Observe(progress, beatStart, videoTime, rate float64) float64 {
	elapsed := math.Max(0, progress-beatStart)
	atBeat := a.clip.Wrap(videoTime - elapsed*rate)

	score := 0.0
	if maxDrift := a.clip.MaxBeatDrift(); maxDrift > 0 {
		score = math.Max(0, 1-a.clip.NearestDropDistance(atBeat)/maxDrift)
	}

	a.scores[a.next] = score
	a.next++
	if a.next == len(a.scores) {
		a.next = 0
		a.full = true
	}
	return score
}

// Len is the number of scores held.
func (a *AccuracyTracker) Len() int {
	if a.full {
		return len(a.scores)
	}
	return a.next
}

// Percent is the mean score as a percentage, 0 with no history.
func (a *AccuracyTracker) Percent() float64 {
	n := a.Len()
	if n == 0 {
		return 0
	}
	return stat.Mean(a.scores[:n], nil) * 100
}

func (a *AccuracyTracker) Reset() {
	a.next = 0
	a.full = false
}
