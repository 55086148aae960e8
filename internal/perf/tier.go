// SPDX-License-Identifier: MIT
package perf

import (
	"fmt"
	"strings"
	"time"
)

// Tier is a coarse classification of rendering cadence. Each tier selects
// its own sync tuning and rate buffer.
type Tier int

const (
	Low Tier = iota
	Medium
	High
)

// Tiers lists every tier, lowest first.
var Tiers = [...]Tier{Low, Medium, High}

// String returns the lowercase tier name used in config and telemetry.
func (t Tier) String() string {
	switch t {
	case Low:
		return "low"
	case Medium:
		return "medium"
	case High:
		return "high"
	default:
		return "unknown"
	}
}

// ParseTier converts a case-insensitive tier name.
func ParseTier(s string) (Tier, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return Low, nil
	case "medium":
		return Medium, nil
	case "high":
		return High, nil
	}
	return High, fmt.Errorf("unknown performance tier %q", s)
}

// Valid reports whether t is one of the declared tiers.
func (t Tier) Valid() bool {
	return t >= Low && t <= High
}

// Throttle is the minimum spacing between applied frames on this tier.
// High never throttles.
func (t Tier) Throttle() time.Duration {
	switch t {
	case Low:
		return 33330 * time.Microsecond
	case Medium:
		return 16670 * time.Microsecond
	default:
		return 0
	}
}

// TierForFPS classifies a frame rate: below 30 is low, below 50 medium.
func TierForFPS(fps float64) Tier {
	switch {
	case fps < LowFPSThreshold:
		return Low
	case fps < MediumFPSThreshold:
		return Medium
	default:
		return High
	}
}
