// SPDX-License-Identifier: MIT
package perf

import (
	"testing"
	"time"
)

var epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// feed drives the classifier with n frames spaced by interval and returns
// the timestamp of the last frame.
func feed(c *Classifier, start time.Time, interval time.Duration, n int) time.Time {
	now := start
	for i := 0; i < n; i++ {
		c.MeasureFrame(now)
		now = now.Add(interval)
	}
	return now.Add(-interval)
}

func TestClassifierInitialState(t *testing.T) {
	c := NewClassifier()
	if c.FPS() != 60 {
		t.Errorf("initial FPS = %.1f, want 60", c.FPS())
	}
	if c.Tier() != High {
		t.Errorf("initial tier = %s, want high", c.Tier())
	}
	if c.AverageFrameTime() != NominalFrame {
		t.Errorf("empty average = %s, want %s", c.AverageFrameTime(), NominalFrame)
	}
}

func TestClassifierTiers(t *testing.T) {
	tests := []struct {
		name     string
		interval time.Duration
		frames   int
		wantTier Tier
		minFPS   float64
		maxFPS   float64
	}{
		{"60Hz", 16 * time.Millisecond, 70, High, 60, 64},
		{"40Hz", 25 * time.Millisecond, 45, Medium, 39.9, 40.1},
		{"25Hz", 40 * time.Millisecond, 30, Low, 24.9, 25.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClassifier()
			feed(c, epoch, tt.interval, tt.frames)
			if c.Tier() != tt.wantTier {
				t.Errorf("tier = %s (fps %.2f), want %s", c.Tier(), c.FPS(), tt.wantTier)
			}
			if c.FPS() < tt.minFPS || c.FPS() > tt.maxFPS {
				t.Errorf("fps = %.2f, want in [%.1f, %.1f]", c.FPS(), tt.minFPS, tt.maxFPS)
			}
		})
	}
}

func TestClassifierFPSHeldWithinWindow(t *testing.T) {
	c := NewClassifier()
	// Half a second of slow frames is not enough to close the window.
	feed(c, epoch, 50*time.Millisecond, 10)
	if c.FPS() != 60 {
		t.Errorf("FPS changed before the window closed: %.2f", c.FPS())
	}
}

func TestClassifierDroppedFrames(t *testing.T) {
	c := NewClassifier()
	c.MeasureFrame(epoch)
	c.MeasureFrame(epoch.Add(16 * time.Millisecond))  // on time
	c.MeasureFrame(epoch.Add(40 * time.Millisecond))  // 24ms: under 1.5 frames
	c.MeasureFrame(epoch.Add(90 * time.Millisecond))  // 50ms: ~3 frames, 2 missed
	c.MeasureFrame(epoch.Add(120 * time.Millisecond)) // 30ms: ~2 frames, 1 missed

	if got := c.DroppedFrames(); got != 3 {
		t.Errorf("DroppedFrames = %d, want 3", got)
	}
}

func TestClassifierAverageUsesRecentSamples(t *testing.T) {
	c := NewClassifier()
	last := feed(c, epoch, 40*time.Millisecond, 50)
	feed(c, last.Add(10*time.Millisecond), 10*time.Millisecond, SampleCount)

	if avg := c.AverageFrameTime(); avg != 10*time.Millisecond {
		t.Errorf("AverageFrameTime = %s, want 10ms", avg)
	}
}

func TestClassifierThrottle(t *testing.T) {
	tests := []struct {
		tier Tier
		want time.Duration
	}{
		{Low, 33330 * time.Microsecond},
		{Medium, 16670 * time.Microsecond},
		{High, 0},
	}
	for _, tt := range tests {
		if got := tt.tier.Throttle(); got != tt.want {
			t.Errorf("%s throttle = %s, want %s", tt.tier, got, tt.want)
		}
	}
}

func TestClassifierReset(t *testing.T) {
	c := NewClassifier()
	feed(c, epoch, 40*time.Millisecond, 30)
	c.Reset()

	m := c.Metrics()
	if m.FPS != 60 || m.DroppedFrames != 0 || m.Tier != High || m.LastFrameTime != 0 {
		t.Errorf("Reset left state behind: %+v", m)
	}
}

func TestClassifierBackwardsClock(t *testing.T) {
	c := NewClassifier()
	c.MeasureFrame(epoch.Add(time.Second))
	c.MeasureFrame(epoch)
	if c.DroppedFrames() != 0 || c.Metrics().LastFrameTime != 0 {
		t.Errorf("backwards clock recorded a delta: %+v", c.Metrics())
	}
}

func TestParseTier(t *testing.T) {
	for _, tier := range Tiers {
		got, err := ParseTier(tier.String())
		if err != nil || got != tier {
			t.Errorf("ParseTier(%q) = %s, %v", tier.String(), got, err)
		}
	}
	if _, err := ParseTier("ultra"); err == nil {
		t.Error("expected error for unknown tier")
	}
}

func TestMeasureFrameHotPath(t *testing.T) {
	c := NewClassifier()
	now := epoch
	allocs := testing.AllocsPerRun(100, func() {
		now = now.Add(16 * time.Millisecond)
		c.MeasureFrame(now)
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations in MeasureFrame, got %.1f", allocs)
	}
}
