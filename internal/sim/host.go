// SPDX-License-Identifier: MIT
package sim

import (
	"context"
	"math/rand/v2"
	"time"
)

// Listener receives host player events. *driver.Driver satisfies it.
type Listener interface {
	OnProgress(ms float64)
	OnPlayPause(playing bool)
}

// Event is a scripted host action at an offset from the start of Run.
type Event struct {
	At     time.Duration
	Pause  bool    // pause the track
	Resume bool    // resume the track
	SeekTo float64 // jump to this position in ms when > 0
}

// Host simulates a music player that reports its position at irregular
// intervals, the way embedded players do.
type Host struct {
	// Reports are spaced uniformly in [MinInterval, MaxInterval].
	MinInterval time.Duration
	MaxInterval time.Duration
	// Jitter is the largest error, either way, added to each report.
	Jitter time.Duration
	// Duration ends the track; zero plays forever.
	Duration time.Duration
	Script   []Event

	rng *rand.Rand
}

// NewHost returns a host with typical report spacing of 200 to 700ms.
func NewHost(seed uint64) *Host {
	return &Host{
		MinInterval: 200 * time.Millisecond,
		MaxInterval: 700 * time.Millisecond,
		Jitter:      20 * time.Millisecond,
		rng:         rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

func (h *Host) nextInterval() time.Duration {
	span := h.MaxInterval - h.MinInterval
	if span <= 0 {
		return h.MinInterval
	}
	return h.MinInterval + time.Duration(h.rng.Int64N(int64(span)))
}

func (h *Host) jitter() float64 {
	if h.Jitter <= 0 {
		return 0
	}
	j := float64(h.Jitter) / float64(time.Millisecond)
	return (h.rng.Float64()*2 - 1) * j
}

// Run plays the track, delivering events to l until ctx is done or the
// track ends. It starts playback and pauses at the end.
func (h *Host) Run(ctx context.Context, l Listener) error {
	if h.rng == nil {
		h.rng = rand.New(rand.NewPCG(1, 2))
	}
	start := time.Now()
	var (
		positionMs float64
		playing    = true
		lastTick   = start
		script     = append([]Event(nil), h.Script...)
	)

	l.OnProgress(0)
	l.OnPlayPause(true)

	timer := time.NewTimer(h.nextInterval())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			l.OnPlayPause(false)
			return ctx.Err()
		case now := <-timer.C:
			if playing {
				positionMs += float64(now.Sub(lastTick)) / float64(time.Millisecond)
			}
			lastTick = now
			elapsed := now.Sub(start)

			for len(script) > 0 && script[0].At <= elapsed {
				ev := script[0]
				script = script[1:]
				switch {
				case ev.SeekTo > 0:
					positionMs = ev.SeekTo
				case ev.Pause && playing:
					playing = false
					l.OnPlayPause(false)
				case ev.Resume && !playing:
					playing = true
					l.OnPlayPause(true)
				}
			}

			if h.Duration > 0 && positionMs >= float64(h.Duration/time.Millisecond) {
				l.OnPlayPause(false)
				return nil
			}
			l.OnProgress(max(0, positionMs+h.jitter()))
			timer.Reset(h.nextInterval())
		}
	}
}
