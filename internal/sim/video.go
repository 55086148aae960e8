// SPDX-License-Identifier: MIT

// Package sim provides a simulated host player and video surface so the
// driver can run headless, from the CLI and in tests.
package sim

import (
	"math"
	"sync"
	"time"
)

// Video is a looping video clock. Its position advances at the playback
// rate while playing and wraps at the loop length. Safe for concurrent use.
type Video struct {
	mu      sync.Mutex
	now     func() time.Time
	loop    float64
	pos     float64
	rate    float64
	scale   float64
	playing bool
	last    time.Time
	seeks   int
}

// NewVideo creates a paused video of loop seconds. A nil clock means
// time.Now.
func NewVideo(loop float64, now func() time.Time) *Video {
	if now == nil {
		now = time.Now
	}
	return &Video{now: now, loop: loop, rate: 1, scale: 1, last: now()}
}

// advanceLocked moves the position to the current clock reading.
func (v *Video) advanceLocked() {
	t := v.now()
	if v.playing {
		v.pos += t.Sub(v.last).Seconds() * v.rate
		if v.loop > 0 {
			v.pos = math.Mod(v.pos, v.loop)
			if v.pos < 0 {
				v.pos += v.loop
			}
		}
	}
	v.last = t
}

func (v *Video) CurrentTime() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.advanceLocked()
	return v.pos
}

func (v *Video) SetPlaybackRate(rate float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.advanceLocked()
	v.rate = rate
}

func (v *Video) Seek(t float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.advanceLocked()
	v.pos = t
	v.seeks++
}

func (v *Video) SetScale(scale float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.scale = scale
}

func (v *Video) Play() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.advanceLocked()
	v.playing = true
}

func (v *Video) Pause() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.advanceLocked()
	v.playing = false
}

// Rate is the current playback rate.
func (v *Video) Rate() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.rate
}

// Scale is the last scale set.
func (v *Video) Scale() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.scale
}

// Playing reports whether the video is running.
func (v *Video) Playing() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.playing
}

// Seeks counts Seek calls.
func (v *Video) Seeks() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.seeks
}
