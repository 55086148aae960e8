// SPDX-License-Identifier: MIT
package sim

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"
)

type stepClock struct{ t time.Time }

func (c *stepClock) now() time.Time { return c.t }

func TestVideoAdvancesAtRate(t *testing.T) {
	clock := &stepClock{t: time.Unix(0, 0)}
	v := NewVideo(9.75, clock.now)

	clock.t = clock.t.Add(time.Second)
	if got := v.CurrentTime(); got != 0 {
		t.Fatalf("paused video moved to %v", got)
	}

	v.Play()
	v.SetPlaybackRate(1.2)
	clock.t = clock.t.Add(time.Second)
	if got := v.CurrentTime(); math.Abs(got-1.2) > 1e-9 {
		t.Errorf("after 1s at 1.2x: %v, want 1.2", got)
	}

	v.SetPlaybackRate(0.5)
	clock.t = clock.t.Add(2 * time.Second)
	if got := v.CurrentTime(); math.Abs(got-2.2) > 1e-9 {
		t.Errorf("after 2s more at 0.5x: %v, want 2.2", got)
	}

	v.Pause()
	clock.t = clock.t.Add(time.Hour)
	if got := v.CurrentTime(); math.Abs(got-2.2) > 1e-9 {
		t.Errorf("paused video drifted to %v", got)
	}
}

func TestVideoWrapsAndSeeks(t *testing.T) {
	clock := &stepClock{t: time.Unix(0, 0)}
	v := NewVideo(10, clock.now)
	v.Play()
	clock.t = clock.t.Add(12500 * time.Millisecond)
	if got := v.CurrentTime(); math.Abs(got-2.5) > 1e-9 {
		t.Errorf("wrapped position = %v, want 2.5", got)
	}

	v.Seek(7)
	if got := v.CurrentTime(); got != 7 || v.Seeks() != 1 {
		t.Errorf("after seek: %v (%d seeks)", got, v.Seeks())
	}
	v.SetScale(1.1)
	if v.Scale() != 1.1 || !v.Playing() {
		t.Errorf("scale %v playing %v", v.Scale(), v.Playing())
	}
}

type recorder struct {
	mu       sync.Mutex
	progress []float64
	states   []bool
}

func (r *recorder) OnProgress(ms float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = append(r.progress, ms)
}

func (r *recorder) OnPlayPause(playing bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, playing)
}

func TestHostReportsUntilTrackEnds(t *testing.T) {
	h := NewHost(1)
	h.MinInterval, h.MaxInterval = 2*time.Millisecond, 6*time.Millisecond
	h.Jitter = 0
	h.Duration = 60 * time.Millisecond

	r := &recorder{}
	if err := h.Run(context.Background(), r); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(r.progress) < 3 {
		t.Fatalf("only %d progress reports", len(r.progress))
	}
	for i := 1; i < len(r.progress); i++ {
		if r.progress[i] < r.progress[i-1] {
			t.Errorf("progress went backwards: %v then %v", r.progress[i-1], r.progress[i])
		}
	}
	if len(r.states) != 2 || !r.states[0] || r.states[1] {
		t.Errorf("play states = %v, want [true false]", r.states)
	}
}

func TestHostScript(t *testing.T) {
	h := NewHost(2)
	h.MinInterval, h.MaxInterval = 2*time.Millisecond, 3*time.Millisecond
	h.Jitter = 0
	h.Script = []Event{
		{At: 10 * time.Millisecond, SeekTo: 60_000},
		{At: 20 * time.Millisecond, Pause: true},
		{At: 30 * time.Millisecond, Resume: true},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	r := &recorder{}
	if err := h.Run(ctx, r); err != context.DeadlineExceeded {
		t.Fatalf("Run = %v, want deadline exceeded", err)
	}

	if last := r.progress[len(r.progress)-1]; last < 60_000 {
		t.Errorf("seek not reflected, last progress %v", last)
	}
	want := []bool{true, false, true, false}
	if len(r.states) != len(want) {
		t.Fatalf("play states = %v, want %v", r.states, want)
	}
	for i := range want {
		if r.states[i] != want[i] {
			t.Fatalf("play states = %v, want %v", r.states, want)
		}
	}
}
