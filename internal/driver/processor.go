// SPDX-License-Identifier: MIT
package driver

import (
	"time"

	"beatsync/internal/analysis"
	"beatsync/internal/perf"
	"beatsync/internal/ratebuf"
	"beatsync/internal/syncer"
)

// ProcessRequest is everything one tick of computation needs. Analysis is
// the driver's private clone for the current track and is never mutated.
type ProcessRequest struct {
	Epoch      uint64
	ProgressMs float64
	VideoTime  float64
	Tier       perf.Tier
	Timestamp  time.Time
	Analysis   *analysis.AudioAnalysis
}

// Result is the reply to a ProcessRequest.
type Result struct {
	Epoch        uint64
	Timestamp    time.Time
	ProgressMs   float64
	VideoTime    float64
	PlaybackRate float64 // Buffered rate to apply.
	RawRate      float64 // Engine rate before buffering.
	TargetRate   float64
	Scale        float64
	LoudnessDB   float64
	ShouldSkip   bool
	ShouldSnap   bool
	SnapTime     float64
	Drift        float64
	BeatIndex    int
	BufferLen    int
	BufferStale  bool
}

// Processor bundles the sync engine with the per-tier rate buffers. It is
// owned by exactly one compute path at a time.
type Processor struct {
	engine   *syncer.Engine
	buffers  *ratebuf.Set
	maxScale float64
}

// NewProcessor builds a processor from driver options.
func NewProcessor(opts Options) *Processor {
	return &Processor{
		engine: syncer.New(opts.Engine),
		buffers: ratebuf.NewSet(func(t perf.Tier) ratebuf.Config {
			return opts.Buffers[t]
		}),
		maxScale: opts.MaxScale,
	}
}

// Process runs the engine, feeds the tier's rate buffer and derives the
// loudness scale.
func (p *Processor) Process(req ProcessRequest) Result {
	progress := req.ProgressMs / 1000
	sync := p.engine.Update(progress, req.VideoTime, req.Analysis, req.Tier)

	buf := p.buffers.For(req.Tier)
	buf.Push(sync.PlaybackRate, req.Timestamp)
	out := buf.Output(req.Timestamp)

	loudness := analysis.FloorDB
	if req.Analysis != nil {
		loudness = analysis.LoudnessAt(req.Analysis.Segments, progress)
	}

	return Result{
		Epoch:        req.Epoch,
		Timestamp:    req.Timestamp,
		ProgressMs:   req.ProgressMs,
		VideoTime:    req.VideoTime,
		PlaybackRate: out.Rate,
		RawRate:      sync.PlaybackRate,
		TargetRate:   sync.TargetRate,
		Scale:        analysis.Scale(loudness, p.maxScale),
		LoudnessDB:   loudness,
		ShouldSkip:   out.ShouldSkip,
		ShouldSnap:   sync.ShouldSnap,
		SnapTime:     sync.SnapTime,
		Drift:        sync.Drift,
		BeatIndex:    sync.BeatIndex,
		BufferLen:    buf.Len(),
		BufferStale:  buf.IsStale(req.Timestamp),
	}
}

// Reset clears engine state and every rate buffer.
func (p *Processor) Reset() {
	p.engine.Reset()
	p.buffers.ClearAll()
}
