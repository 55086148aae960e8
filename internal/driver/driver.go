// SPDX-License-Identifier: MIT

// Package driver ties the sync engine to a host player and a video surface.
//
// Host events (progress reports, play/pause, track changes) may arrive on
// any goroutine. A frame loop goroutine runs while the host is playing and
// on every tick measures frame timing, picks a performance tier, computes a
// rate through the active compute path (a worker goroutine or inline) and
// applies the buffered result to the video.
package driver

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"beatsync/internal/analysis"
	"beatsync/internal/log"
	"beatsync/internal/perf"
	"beatsync/internal/transport"
)

// ErrClosed is returned by Start after Close.
var ErrClosed = errors.New("driver: closed")

// VideoSurface is the looping video being driven. Implementations must be
// safe for concurrent use.
type VideoSurface interface {
	CurrentTime() float64
	SetPlaybackRate(rate float64)
	Seek(t float64)
	SetScale(scale float64)
	Play()
	Pause()
}

// Option customises a Driver.
type Option func(*Driver)

// WithTransport publishes Metrics to t while frames are applied.
func WithTransport(t transport.Transport) Option {
	return func(d *Driver) { d.sink = t }
}

// WithWorkerFactory replaces StartWorker.
func WithWorkerFactory(f WorkerFactory) Option {
	return func(d *Driver) { d.factory = f }
}

// WithClock sets the clock used to timestamp host events.
func WithClock(now func() time.Time) Option {
	return func(d *Driver) { d.now = now }
}

// WithSessionID overrides the generated session id.
func WithSessionID(id string) Option {
	return func(d *Driver) { d.metrics.SessionID = id }
}

// Driver is safe for concurrent use.
type Driver struct {
	opts    Options
	log     *log.Logger
	video   VideoSurface
	sink    transport.Transport
	now     func() time.Time
	factory WorkerFactory

	mu sync.Mutex

	classifier   *perf.Classifier
	path         Path
	accuracy     *AccuracyTracker
	appliedEpoch uint64
	lastApplied  time.Time
	lastPublish  time.Time
	lastBeat     int

	analysis     *analysis.AudioAnalysis
	playing      bool
	haveProgress bool
	reportedMs   float64
	reportedAt   time.Time

	// Bumped whenever engine and buffer state must be discarded. The frame
	// goroutine forwards it to the compute path on its next tick.
	epoch uint64

	metrics     Metrics
	resumeTimer *time.Timer

	runCtx   context.Context
	cancel   context.CancelFunc
	loopDone chan struct{}
	closed   bool
}

// New creates a paused driver with no track. The worker goroutine is
// started here when enabled; if it cannot be created the driver computes
// inline on the frame goroutine.
func New(opts Options, video VideoSurface, options ...Option) *Driver {
	d := &Driver{
		opts:       opts,
		log:        log.Named("driver"),
		video:      video,
		now:        time.Now,
		factory:    StartWorker,
		classifier: perf.NewClassifier(),
		accuracy:   NewAccuracyTracker(opts.Engine.Clip, opts.AccuracyHistory),
		lastBeat:   -1,
		metrics: Metrics{
			SessionID:   uuid.NewString(),
			Tier:        perf.High.String(),
			AppliedRate: 1,
			Scale:       1,
			BeatIndex:   -1,
		},
	}
	for _, o := range options {
		o(d)
	}
	d.metrics.FPS = d.classifier.FPS()

	proc := NewProcessor(opts)
	if opts.UseWorker {
		p, err := d.factory(proc)
		if err != nil {
			d.log.Warnf("worker unavailable, computing on the frame goroutine: %v", err)
		} else {
			d.path = p
		}
	}
	if d.path == nil {
		d.path = NewInline(proc)
	}
	d.metrics.WorkerActive = d.path.Parallel()
	d.log.Debugf("session %s, worker active: %v", d.metrics.SessionID, d.metrics.WorkerActive)
	return d
}

// Start arms the frame loop. The loop itself only runs while the host is
// playing and stops when ctx is done.
func (d *Driver) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	if d.runCtx != nil {
		return fmt.Errorf("driver: already started")
	}
	d.runCtx = ctx
	if d.playing {
		d.startLoopLocked()
	}
	return nil
}

func (d *Driver) startLoopLocked() {
	if d.runCtx == nil || d.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(d.runCtx)
	done := make(chan struct{})
	d.cancel, d.loopDone = cancel, done
	go d.loop(ctx, done)
}

// stopLoopLocked detaches the loop; the caller cancels and waits after
// releasing the lock.
func (d *Driver) stopLoopLocked() (context.CancelFunc, chan struct{}) {
	cancel, done := d.cancel, d.loopDone
	d.cancel, d.loopDone = nil, nil
	return cancel, done
}

func (d *Driver) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(d.opts.FrameInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			d.Frame(now)
		}
	}
}

// Close stops the frame loop and the worker.
func (d *Driver) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.stopResumeTimerLocked()
	cancel, done := d.stopLoopLocked()
	d.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	return d.path.Close()
}

// OnProgress records a host position report in milliseconds. A report far
// from the extrapolated position is a seek and discards sync state.
func (d *Driver) OnProgress(ms float64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if d.haveProgress {
		predicted := d.progressAtLocked(now)
		if math.Abs(ms-predicted) > float64(d.opts.SeekThreshold)/float64(time.Millisecond) {
			d.log.Infof("seek detected: %.0fms -> %.0fms", predicted, ms)
			d.metrics.Seeks++
			d.epoch++
		}
	}
	d.reportedMs, d.reportedAt, d.haveProgress = ms, now, true
}

// OnPlayPause mirrors the host play state onto the video and the frame loop.
func (d *Driver) OnPlayPause(playing bool) {
	d.mu.Lock()
	if d.closed || playing == d.playing {
		d.mu.Unlock()
		return
	}

	now := d.now()
	if playing {
		d.playing = true
		d.reportedAt = now // progress was frozen while paused
		d.epoch++
		d.resumeVideoLocked(now)
		d.startLoopLocked()
		d.mu.Unlock()
		return
	}

	d.reportedMs = d.progressAtLocked(now)
	d.playing = false
	d.stopResumeTimerLocked()
	d.video.Pause()
	cancel, done := d.stopLoopLocked()
	d.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// OnTrackChange installs the analysis for a new track. The driver keeps its
// own deep copy; a nil or empty analysis leaves the video at rate 1.
func (d *Driver) OnTrackChange(a *analysis.AudioAnalysis) {
	clone := a.Clone()

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}

	d.analysis = clone
	d.epoch++
	d.accuracy.Reset()
	d.lastBeat = -1
	d.reportedMs, d.haveProgress = 0, false

	d.metrics.GlobalBPM = 0
	d.metrics.Beats, d.metrics.Segments = 0, 0
	if clone != nil {
		d.metrics.GlobalBPM = clone.Track.Tempo
		d.metrics.Beats, d.metrics.Segments = len(clone.Beats), len(clone.Segments)
	}
	d.log.Infof("track changed: %d beats, %d segments, %.1f bpm", d.metrics.Beats, d.metrics.Segments, d.metrics.GlobalBPM)

	d.video.SetPlaybackRate(1)
	d.metrics.AppliedRate = 1
	if d.playing {
		d.resumeVideoLocked(d.now())
	}
}

// resumeVideoLocked starts the video, holding it until the next beat so the
// loop enters on a head drop.
func (d *Driver) resumeVideoLocked(now time.Time) {
	d.stopResumeTimerLocked()

	delay := d.untilNextBeatLocked(now)
	if !d.opts.ResumeOnBeat || delay <= 0 {
		d.video.Play()
		return
	}

	d.video.Pause()
	d.resumeTimer = time.AfterFunc(delay, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if d.playing && !d.closed {
			d.video.Play()
		}
	})
}

func (d *Driver) stopResumeTimerLocked() {
	if d.resumeTimer != nil {
		d.resumeTimer.Stop()
		d.resumeTimer = nil
	}
}

func (d *Driver) untilNextBeatLocked(now time.Time) time.Duration {
	if d.analysis.Empty() {
		return 0
	}
	progressMs := d.progressAtLocked(now)
	next := analysis.NextBeat(d.analysis.Beats, progressMs/1000)
	if next < 0 {
		return 0
	}
	return time.Duration((d.analysis.Beats[next].Start*1000 - progressMs) * float64(time.Millisecond))
}

// progressAtLocked extrapolates the last host report to now.
func (d *Driver) progressAtLocked(now time.Time) float64 {
	if !d.haveProgress {
		return 0
	}
	if !d.playing || !d.opts.ExtrapolateProgress {
		return d.reportedMs
	}
	return d.reportedMs + float64(now.Sub(d.reportedAt))/float64(time.Millisecond)
}

// Frame runs one tick of the sync loop. The frame loop calls it; hosts with
// their own display callback may call it directly instead of Start.
func (d *Driver) Frame(now time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}

	d.classifier.MeasureFrame(now)
	tier := d.classifier.Tier()
	d.refreshPerfLocked(tier)

	if !d.playing || d.analysis.Empty() {
		return
	}
	if throttle := tier.Throttle(); throttle > 0 && !d.lastApplied.IsZero() && now.Sub(d.lastApplied) < throttle {
		d.metrics.ThrottledTicks++
		return
	}

	if d.appliedEpoch != d.epoch {
		d.path.Reset(d.epoch)
		d.appliedEpoch = d.epoch
		d.lastBeat = -1
	}

	d.path.Submit(ProcessRequest{
		Epoch:      d.epoch,
		ProgressMs: d.progressAtLocked(now),
		VideoTime:  d.video.CurrentTime(),
		Tier:       tier,
		Timestamp:  now,
		Analysis:   d.analysis,
	})

	res, ok := d.path.Latest()
	if !ok || res.Epoch != d.epoch {
		return
	}
	d.applyLocked(now, res)
}

func (d *Driver) applyLocked(now time.Time, res Result) {
	if res.ShouldSnap && math.Abs(res.Drift) > d.opts.HardSnapThreshold {
		d.log.Infof("hard snap: drift %.3fs, seeking to %.3fs", res.Drift, res.SnapTime)
		d.video.Seek(res.SnapTime)
		d.video.SetPlaybackRate(1)
		d.metrics.AppliedRate = 1
		d.metrics.HardSnaps++
		d.epoch++
		d.lastApplied = now
		return
	}

	if res.ShouldSkip {
		d.metrics.SkippedFrames++
	} else {
		d.video.SetPlaybackRate(res.PlaybackRate)
		d.metrics.AppliedRate = res.PlaybackRate
		d.lastApplied = now
	}
	d.video.SetScale(res.Scale)

	beats := d.analysis.Beats
	if res.BeatIndex >= 0 && res.BeatIndex < len(beats) && res.BeatIndex != d.lastBeat {
		d.accuracy.Observe(res.ProgressMs/1000, beats[res.BeatIndex].Start, res.VideoTime, d.metrics.AppliedRate)
		d.lastBeat = res.BeatIndex
	}

	m := &d.metrics
	m.Timestamp = now
	m.ProgressMs = res.ProgressMs
	m.VideoTime = d.opts.Engine.Clip.Wrap(res.VideoTime)
	m.RawRate = res.RawRate
	m.TargetRate = res.TargetRate
	m.BeatIndex = res.BeatIndex
	m.Drift = res.Drift
	m.BeatAccuracy = d.accuracy.Percent()
	m.BufferLen = res.BufferLen
	m.BufferStale = res.BufferStale
	m.LoudnessDB = res.LoudnessDB
	m.Scale = res.Scale

	d.publishLocked(now)
}

func (d *Driver) refreshPerfLocked(tier perf.Tier) {
	pm := d.classifier.Metrics()
	d.metrics.FPS = pm.FPS
	d.metrics.Tier = tier.String()
	d.metrics.FrameTimeMs = float64(pm.AverageFrameTime) / float64(time.Millisecond)
	d.metrics.DroppedFrames = pm.DroppedFrames
	d.metrics.Playing = d.playing
}

func (d *Driver) publishLocked(now time.Time) {
	if d.sink == nil {
		return
	}
	if !d.lastPublish.IsZero() && now.Sub(d.lastPublish) < d.opts.PublishInterval {
		return
	}
	d.lastPublish = now
	d.metrics.LocalBPM = analysis.LocalBPM(d.analysis.Beats, d.metrics.ProgressMs/1000, analysis.DefaultBPMWindow)
	if err := d.sink.Send(d.metrics); err != nil {
		d.log.Debugf("publish metrics: %v", err)
	}
}

// Snapshot returns the current debug metrics.
func (d *Driver) Snapshot() Metrics {
	d.mu.Lock()
	defer d.mu.Unlock()
	m := d.metrics
	m.Playing = d.playing
	m.WorkerActive = d.path.Parallel()
	if !d.analysis.Empty() {
		m.LocalBPM = analysis.LocalBPM(d.analysis.Beats, m.ProgressMs/1000, analysis.DefaultBPMWindow)
	}
	return m
}
