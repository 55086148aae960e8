// SPDX-License-Identifier: MIT
package ratebuf

import "beatsync/internal/perf"

// Set holds one Buffer per performance tier.
type Set struct {
	buffers [len(perf.Tiers)]*Buffer
}

// NewSet builds a buffer for every tier using cfg(tier).
func NewSet(cfg func(perf.Tier) Config) *Set {
	if cfg == nil {
		cfg = DefaultConfig
	}
	s := &Set{}
	for _, tier := range perf.Tiers {
		s.buffers[tier] = New(cfg(tier))
	}
	return s
}

// For returns the buffer for tier. Unknown tiers map to high.
func (s *Set) For(tier perf.Tier) *Buffer {
	if !tier.Valid() {
		tier = perf.High
	}
	return s.buffers[tier]
}

// ClearAll clears every tier's buffer.
func (s *Set) ClearAll() {
	for _, b := range s.buffers {
		b.Clear()
	}
}
