// SPDX-License-Identifier: MIT
package syncer

import (
	"math"

	"beatsync/internal/perf"
)

// Rate bounds shared by every tier.
const (
	DefaultMinRate = 0.85
	DefaultMaxRate = 1.3
)

const (
	// DefaultNudge is the constant rate offset applied near a beat when
	// drift exceeds the tier's correction bound.
	DefaultNudge = 0.1

	// DefaultSnapLerp is the smoothing used while nudging.
	DefaultSnapLerp = 0.2

	velocityHistorySize = 5
)

// Bounds is the closed playback-rate range.
type Bounds struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// DefaultBounds returns [0.85, 1.3].
func DefaultBounds() Bounds {
	return Bounds{Min: DefaultMinRate, Max: DefaultMaxRate}
}

// Clamp limits v to the range. NaN maps to the identity rate clamped.
func (b Bounds) Clamp(v float64) float64 {
	if math.IsNaN(v) {
		v = 1
	}
	return math.Max(b.Min, math.Min(b.Max, v))
}

// Tuning is the per-tier control-loop tuning.
type Tuning struct {
	LerpFactor         float64 `yaml:"lerp_factor"`          // Fraction of the way toward target per tick.
	SnapThreshold      float64 `yaml:"snap_threshold"`       // Seconds before a beat where snap handling starts.
	VelocityWeight     float64 `yaml:"velocity_weight"`      // Weight of the predicted rate velocity.
	MaxDriftCorrection float64 `yaml:"max_drift_correction"` // Drift (s) tolerated before nudging.
}

// DefaultTuning returns the tuning for tier: high reacts fastest, low
// smooths the most and starts snapping earlier.
func DefaultTuning(tier perf.Tier) Tuning {
	switch tier {
	case perf.Low:
		return Tuning{LerpFactor: 0.03, SnapThreshold: 0.1, VelocityWeight: 0.2, MaxDriftCorrection: 0.1}
	case perf.Medium:
		return Tuning{LerpFactor: 0.05, SnapThreshold: 0.07, VelocityWeight: 0.25, MaxDriftCorrection: 0.12}
	default:
		return Tuning{LerpFactor: 0.08, SnapThreshold: 0.05, VelocityWeight: 0.3, MaxDriftCorrection: 0.15}
	}
}

// Options configures an Engine.
type Options struct {
	Clip     Clip
	Bounds   Bounds
	Tunings  [len(perf.Tiers)]Tuning
	Nudge    float64
	SnapLerp float64
}

// DefaultOptions builds options for clip with the stock bounds and tunings.
func DefaultOptions(clip Clip) Options {
	o := Options{
		Clip:     clip,
		Bounds:   DefaultBounds(),
		Nudge:    DefaultNudge,
		SnapLerp: DefaultSnapLerp,
	}
	for _, tier := range perf.Tiers {
		o.Tunings[tier] = DefaultTuning(tier)
	}
	return o
}
