// SPDX-License-Identifier: MIT

// Package perf classifies the display frame cadence into a performance tier.
//
// The driver calls MeasureFrame once per display frame. A ring of the most
// recent frame deltas feeds the average frame time; the FPS estimate is
// recomputed once per measurement window so a single slow frame does not
// flip the tier.
package perf

import (
	"time"

	"beatsync/pkg/bitint"

	"gonum.org/v1/gonum/stat"
)

const (
	LowFPSThreshold    = 30.0
	MediumFPSThreshold = 50.0

	// SampleCount is the number of frame deltas kept for averaging.
	SampleCount = 30

	// MeasurementWindow is how often the FPS estimate is refreshed.
	MeasurementWindow = time.Second

	// NominalFrame is the frame period at 60Hz.
	NominalFrame = 16670 * time.Microsecond

	// A delta above DropFactor nominal frames counts as dropped frames.
	DropFactor = 1.5

	initialFPS = 60.0
)

// Metrics is a point-in-time view of the classifier.
type Metrics struct {
	Tier             Tier
	FPS              float64
	LastFrameTime    time.Duration
	AverageFrameTime time.Duration
	DroppedFrames    int
}

// Classifier estimates FPS from frame timestamps. It is not safe for
// concurrent use; the frame loop owns it.
type Classifier struct {
	deltas []float64 // ms, power-of-two ring
	mask   int
	cursor int
	filled int

	lastFrame   time.Time
	lastDelta   time.Duration
	windowStart time.Time
	frameCount  int
	fps         float64
	dropped     int
}

// NewClassifier creates a classifier starting at 60 FPS (high tier).
func NewClassifier() *Classifier {
	capacity := bitint.NextPowerOfTwo(SampleCount)
	return &Classifier{
		deltas: make([]float64, capacity),
		mask:   bitint.Mask(capacity),
		fps:    initialFPS,
	}
}

// MeasureFrame records a display frame at now.
func (c *Classifier) MeasureFrame(now time.Time) {
	if c.lastFrame.IsZero() {
		c.lastFrame = now
		c.windowStart = now
		c.frameCount = 1
		return
	}

	delta := now.Sub(c.lastFrame)
	c.lastFrame = now
	if delta < 0 {
		// Clock went backwards; restart the window rather than record it.
		c.windowStart = now
		c.frameCount = 1
		return
	}
	c.lastDelta = delta

	c.deltas[c.cursor&c.mask] = float64(delta) / float64(time.Millisecond)
	c.cursor++
	if c.filled < SampleCount {
		c.filled++
	}

	if float64(delta) > DropFactor*float64(NominalFrame) {
		missed := int(float64(delta)/float64(NominalFrame)+0.5) - 1
		if missed < 1 {
			missed = 1
		}
		c.dropped += missed
	}

	c.frameCount++
	elapsed := now.Sub(c.windowStart)
	if elapsed >= MeasurementWindow {
		// frameCount includes the frame that opened the window.
		c.fps = float64(c.frameCount-1) * float64(time.Second) / float64(elapsed)
		c.windowStart = now
		c.frameCount = 1
	}
}

// FPS returns the most recent windowed estimate.
func (c *Classifier) FPS() float64 {
	return c.fps
}

// Tier classifies the current FPS estimate.
func (c *Classifier) Tier() Tier {
	return TierForFPS(c.fps)
}

// ThrottleInterval is the spacing the driver should keep between applied
// frames for the current tier.
func (c *Classifier) ThrottleInterval() time.Duration {
	return c.Tier().Throttle()
}

// DroppedFrames returns the number of frames missed since the last Reset.
func (c *Classifier) DroppedFrames() int {
	return c.dropped
}

// AverageFrameTime averages the most recent deltas. With no samples it
// reports the nominal frame period.
func (c *Classifier) AverageFrameTime() time.Duration {
	if c.filled == 0 {
		return NominalFrame
	}
	window := c.recent()
	return time.Duration(stat.Mean(window, nil) * float64(time.Millisecond))
}

// recent returns the filled part of the ring, most recent SampleCount only.
func (c *Classifier) recent() []float64 {
	out := make([]float64, 0, c.filled)
	for i := c.cursor - c.filled; i < c.cursor; i++ {
		out = append(out, c.deltas[i&c.mask])
	}
	return out
}

// Metrics snapshots the classifier state.
func (c *Classifier) Metrics() Metrics {
	return Metrics{
		Tier:             c.Tier(),
		FPS:              c.fps,
		LastFrameTime:    c.lastDelta,
		AverageFrameTime: c.AverageFrameTime(),
		DroppedFrames:    c.dropped,
	}
}

// Reset forgets all history and returns to the initial 60 FPS estimate.
func (c *Classifier) Reset() {
	for i := range c.deltas {
		c.deltas[i] = 0
	}
	c.cursor = 0
	c.filled = 0
	c.lastFrame = time.Time{}
	c.lastDelta = 0
	c.windowStart = time.Time{}
	c.frameCount = 0
	c.fps = initialFPS
	c.dropped = 0
}
