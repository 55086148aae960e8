// SPDX-License-Identifier: MIT
package syncer

import (
	"fmt"
	"math"
)

// Clip describes the looping video: its period and the head-drop
// timestamps, in seconds, that should land on beats.
type Clip struct {
	LoopDuration float64
	HeadDrops    []float64
}

// Validate checks that drops are strictly increasing inside [0, loop).
func (c Clip) Validate() error {
	if !(c.LoopDuration > 0) {
		return fmt.Errorf("loop duration must be positive, got %v", c.LoopDuration)
	}
	if len(c.HeadDrops) == 0 {
		return fmt.Errorf("at least one head drop is required")
	}
	for i, d := range c.HeadDrops {
		if d < 0 || d >= c.LoopDuration {
			return fmt.Errorf("head drop %d at %.3fs is outside [0, %.3f)", i, d, c.LoopDuration)
		}
		if i > 0 && d <= c.HeadDrops[i-1] {
			return fmt.Errorf("head drop %d at %.3fs is not after %.3fs", i, d, c.HeadDrops[i-1])
		}
	}
	return nil
}

// Wrap folds t into [0, loop).
func (c Clip) Wrap(t float64) float64 {
	if !(c.LoopDuration > 0) {
		return t
	}
	t = math.Mod(t, c.LoopDuration)
	if t < 0 {
		t += c.LoopDuration
	}
	return t
}

// TimeUntilNextDrop is the video distance from t to the first drop after
// it, wrapping across the loop boundary.
func (c Clip) TimeUntilNextDrop(t float64) float64 {
	if len(c.HeadDrops) == 0 {
		return 0
	}
	t = c.Wrap(t)
	for _, d := range c.HeadDrops {
		if d > t {
			return d - t
		}
	}
	return c.LoopDuration - t + c.HeadDrops[0]
}

// DropSpan returns the drop for beat index i and the video distance to the
// drop after it. A degenerate span is reported as 1.
func (c Clip) DropSpan(i int) (start, span float64) {
	n := len(c.HeadDrops)
	if n == 0 {
		return 0, 1
	}
	if i < 0 {
		i = 0
	}
	start = c.HeadDrops[i%n]
	next := c.HeadDrops[(i+1)%n]
	if next > start {
		span = next - start
	} else {
		span = c.LoopDuration - start + next
	}
	if !(span > 0) {
		span = 1
	}
	return start, span
}

// Drift is actual minus expected, folded into [-loop/2, loop/2] so a video
// just past the loop seam is not reported as a full loop behind.
func (c Clip) Drift(actual, expected float64) float64 {
	d := actual - expected
	if !(c.LoopDuration > 0) {
		return d
	}
	half := c.LoopDuration / 2
	for d > half {
		d -= c.LoopDuration
	}
	for d < -half {
		d += c.LoopDuration
	}
	return d
}

// MaxBeatDrift is half the average gap between drops: the farthest a video
// position can be from its nearest drop.
func (c Clip) MaxBeatDrift() float64 {
	if len(c.HeadDrops) == 0 {
		return c.LoopDuration / 2
	}
	return c.LoopDuration / float64(len(c.HeadDrops)) / 2
}

// NearestDropDistance is the distance from t to the closest drop, either
// way around the loop.
func (c Clip) NearestDropDistance(t float64) float64 {
	t = c.Wrap(t)
	best := math.Inf(1)
	for _, d := range c.HeadDrops {
		dist := math.Abs(t - d)
		best = math.Min(best, math.Min(dist, c.LoopDuration-dist))
	}
	return best
}
