// SPDX-License-Identifier: MIT
package driver

import (
	"math"
	"testing"
	"time"

	"beatsync/internal/analysis"
	"beatsync/internal/perf"
	"beatsync/pkg/utils"
)

func TestProcessorWithoutAnalysis(t *testing.T) {
	p := NewProcessor(inlineOptions())
	res := p.Process(ProcessRequest{ProgressMs: 1000, VideoTime: 2, Tier: perf.High, Timestamp: time.Now()})

	if res.PlaybackRate != 1 || res.RawRate != 1 {
		t.Errorf("rates without analysis = %v/%v, want 1", res.PlaybackRate, res.RawRate)
	}
	if res.Scale != 1 || res.LoudnessDB != analysis.FloorDB {
		t.Errorf("scale %v loudness %v, want 1 and the floor", res.Scale, res.LoudnessDB)
	}
	if res.BeatIndex != -1 {
		t.Errorf("BeatIndex = %d, want -1", res.BeatIndex)
	}
}

func TestProcessorScaleFollowsLoudness(t *testing.T) {
	p := NewProcessor(inlineOptions())
	a := &analysis.AudioAnalysis{
		Beats:    utils.RegularBeats(20, 0, 0.5),
		Segments: utils.FlatSegments(10, 1, 0),
	}
	res := p.Process(ProcessRequest{ProgressMs: 2000, VideoTime: 0, Tier: perf.High, Timestamp: time.Now(), Analysis: a})
	if math.Abs(res.Scale-DefaultMaxScale) > 1e-12 {
		t.Errorf("scale at 0dB = %v, want %v", res.Scale, DefaultMaxScale)
	}
}

func TestProcessorResetClearsBuffers(t *testing.T) {
	p := NewProcessor(inlineOptions())
	a := analysis.Synthetic(120, 30)
	now := time.Now()
	for i := range 5 {
		p.Process(ProcessRequest{
			ProgressMs: 1000 + float64(i)*16,
			VideoTime:  0.5,
			Tier:       perf.Medium,
			Timestamp:  now.Add(time.Duration(i) * 16 * time.Millisecond),
			Analysis:   a,
		})
	}
	if p.buffers.For(perf.Medium).Len() == 0 {
		t.Fatal("medium buffer empty after processing")
	}

	p.Reset()
	if n := p.buffers.For(perf.Medium).Len(); n != 0 {
		t.Errorf("buffer len after Reset = %d", n)
	}
	if p.engine.State().PlaybackRate != 1 {
		t.Errorf("engine rate after Reset = %v", p.engine.State().PlaybackRate)
	}
}

func TestInlinePath(t *testing.T) {
	in := NewInline(NewProcessor(inlineOptions()))
	if _, ok := in.Latest(); ok {
		t.Fatal("Latest before Submit reported a result")
	}
	in.Submit(ProcessRequest{Epoch: 4, ProgressMs: 500, Timestamp: time.Now(), Analysis: analysis.Synthetic(120, 10)})
	res, ok := in.Latest()
	if !ok || res.Epoch != 4 {
		t.Fatalf("Latest = %+v, %v", res, ok)
	}
	in.Reset(5)
	if _, ok := in.Latest(); ok {
		t.Error("Latest after Reset reported a stale result")
	}
	if in.Parallel() {
		t.Error("inline path reports Parallel")
	}
}

func TestKindString(t *testing.T) {
	for k, want := range map[Kind]string{
		KindProcess:   "process",
		KindResult:    "result",
		KindResetRate: "resetRate",
		Kind(9):       "unknown",
	} {
		if got := k.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, want %q", k, got, want)
		}
	}
}

func TestAccuracyTracker(t *testing.T) {
	acc := NewAccuracyTracker(defaultClip, 3)

	if got := acc.Observe(1.0, 1.0, 0.883, 1); math.Abs(got-1) > 1e-12 {
		t.Errorf("score on a drop = %v, want 1", got)
	}
	// Backtracked by 0.1s of playback at rate 1 lands on the drop again.
	if got := acc.Observe(1.1, 1.0, 1.503, 1); math.Abs(got-1) > 1e-9 {
		t.Errorf("backtracked score = %v, want 1", got)
	}
	// Halfway between drops is as far as it gets.
	mid := (1.841 + 2.206) / 2
	if got := acc.Observe(2, 2, mid, 1); got > 0.5 {
		t.Errorf("score midway between drops = %v, want a poor score", got)
	}
	if acc.Len() != 3 {
		t.Fatalf("Len = %d, want 3", acc.Len())
	}

	acc.Observe(3, 3, 0.425, 1)
	if acc.Len() != 3 {
		t.Errorf("history grew past its bound: %d", acc.Len())
	}
	if p := acc.Percent(); p <= 0 || p > 100 {
		t.Errorf("Percent = %v", p)
	}

	acc.Reset()
	if acc.Len() != 0 || acc.Percent() != 0 {
		t.Errorf("after Reset: len %d percent %v", acc.Len(), acc.Percent())
	}
}

func BenchmarkProcessorProcess(b *testing.B) {
	p := NewProcessor(inlineOptions())
	a := analysis.Synthetic(120, 240)
	now := time.Now()
	req := ProcessRequest{VideoTime: 0.4, Tier: perf.High, Analysis: a}
	var i int
	for b.Loop() {
		req.ProgressMs = float64(i%200000) + 0.5
		req.Timestamp = now.Add(time.Duration(i) * time.Millisecond)
		p.Process(req)
		i++
	}
}
