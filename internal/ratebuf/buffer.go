// SPDX-License-Identifier: MIT

// Package ratebuf post-filters the sync engine's raw playback rates.
//
// A Buffer keeps a short, time-windowed history of rate samples and turns
// it into an output that is eased between samples and jump limited: a
// candidate far from the last emitted rate is held back, a moderate change
// is blended in, a small one is adopted as is. One Buffer exists per
// performance tier since each tier delivers samples at a different cadence.
package ratebuf

import (
	"time"

	"beatsync/internal/perf"
)

// StaleAfter is how long a buffer may go without a push before IsStale.
const StaleAfter = 500 * time.Millisecond

// Config tunes one Buffer.
type Config struct {
	MaxBufferSize          int           `yaml:"max_buffer_size"`         // Samples kept, oldest dropped first.
	MaxAge                 time.Duration `yaml:"max_age"`                 // Samples older than this are evicted.
	InterpolationThreshold float64       `yaml:"interpolation_threshold"` // Above this change the output is blended.
	MaxJumpRate            float64       `yaml:"max_jump_rate"`           // Above this change the output is held.
	SmoothFactor           float64       `yaml:"smooth_factor"`           // Blend factor toward the candidate.
}

// DefaultConfig returns the preset for tier. Higher tiers receive more
// samples per second so they keep more of them over a longer window.
func DefaultConfig(tier perf.Tier) Config {
	switch tier {
	case perf.Low:
		return Config{MaxBufferSize: 4, MaxAge: 60 * time.Millisecond, InterpolationThreshold: 0.05, MaxJumpRate: 0.35, SmoothFactor: 0.4}
	case perf.Medium:
		return Config{MaxBufferSize: 6, MaxAge: 80 * time.Millisecond, InterpolationThreshold: 0.03, MaxJumpRate: 0.4, SmoothFactor: 0.5}
	default:
		return Config{MaxBufferSize: 8, MaxAge: 100 * time.Millisecond, InterpolationThreshold: 0.02, MaxJumpRate: 0.5, SmoothFactor: 0.6}
	}
}

// Sample is one raw engine rate.
type Sample struct {
	Rate      float64
	Timestamp time.Time
}

// Output is what the caller should do with the video rate this tick.
type Output struct {
	Rate       float64
	IsBuffered bool // More than one sample contributed.
	ShouldSkip bool // Candidate jumped too far; do not apply a new rate.
}

// Buffer is a jump-limited smoothing window over rate samples. It is not
// safe for concurrent use.
type Buffer struct {
	cfg      Config
	samples  []Sample
	lastRate float64
}

// New creates an empty buffer whose output starts at the identity rate.
func New(cfg Config) *Buffer {
	if cfg.MaxBufferSize < 1 {
		cfg.MaxBufferSize = 1
	}
	return &Buffer{
		cfg:      cfg,
		samples:  make([]Sample, 0, cfg.MaxBufferSize+1),
		lastRate: 1,
	}
}

// SetConfig swaps the tuning; existing samples are trimmed on the next push.
func (b *Buffer) SetConfig(cfg Config) {
	if cfg.MaxBufferSize < 1 {
		cfg.MaxBufferSize = 1
	}
	b.cfg = cfg
}

// Config returns the active tuning.
func (b *Buffer) Config() Config {
	return b.cfg
}

// Push appends a sample and evicts by age, then by count.
func (b *Buffer) Push(rate float64, ts time.Time) {
	b.samples = append(b.samples, Sample{Rate: rate, Timestamp: ts})

	keep := b.samples[:0]
	for _, s := range b.samples {
		if ts.Sub(s.Timestamp) < b.cfg.MaxAge {
			keep = append(keep, s)
		}
	}
	b.samples = keep

	if over := len(b.samples) - b.cfg.MaxBufferSize; over > 0 {
		b.samples = append(b.samples[:0], b.samples[over:]...)
	}
}

// Output computes the rate to emit at ts.
func (b *Buffer) Output(ts time.Time) Output {
	for len(b.samples) > 1 && ts.Sub(b.samples[0].Timestamp) > b.cfg.MaxAge {
		b.samples = append(b.samples[:0], b.samples[1:]...)
	}

	switch len(b.samples) {
	case 0:
		return Output{Rate: b.lastRate}
	case 1:
		return b.limit(b.samples[0].Rate, false)
	}

	oldest, newest := b.samples[0], b.samples[len(b.samples)-1]
	return b.limit(interpolate(oldest, newest, ts), true)
}

// limit applies the jump logic to a candidate rate.
func (b *Buffer) limit(candidate float64, buffered bool) Output {
	delta := candidate - b.lastRate
	if delta < 0 {
		delta = -delta
	}

	switch {
	case delta > b.cfg.MaxJumpRate:
		return Output{Rate: b.lastRate, IsBuffered: buffered, ShouldSkip: true}
	case delta > b.cfg.InterpolationThreshold:
		b.lastRate += (candidate - b.lastRate) * b.cfg.SmoothFactor
	default:
		b.lastRate = candidate
	}
	return Output{Rate: b.lastRate, IsBuffered: buffered}
}

// interpolate eases from oldest to newest by the elapsed fraction of the
// span between them.
func interpolate(oldest, newest Sample, ts time.Time) float64 {
	span := newest.Timestamp.Sub(oldest.Timestamp)
	if span <= 0 {
		return newest.Rate
	}
	t := float64(ts.Sub(oldest.Timestamp)) / float64(span)
	t = min(1, max(0, t))
	return oldest.Rate + (newest.Rate-oldest.Rate)*easeInOut(t)
}

// easeInOut is the quadratic ease-in-out curve on [0, 1].
func easeInOut(t float64) float64 {
	if t < 0.5 {
		return 2 * t * t
	}
	u := -2*t + 2
	return 1 - u*u/2
}

// IsStale reports whether no sample was pushed within StaleAfter of ts.
func (b *Buffer) IsStale(ts time.Time) bool {
	if len(b.samples) == 0 {
		return true
	}
	return ts.Sub(b.samples[len(b.samples)-1].Timestamp) > StaleAfter
}

// Len returns the number of buffered samples.
func (b *Buffer) Len() int {
	return len(b.samples)
}

// LastRate returns the last emitted rate.
func (b *Buffer) LastRate() float64 {
	return b.lastRate
}

// Clear empties the buffer and resets the output to the identity rate.
func (b *Buffer) Clear() {
	b.samples = b.samples[:0]
	b.lastRate = 1
}
