// SPDX-License-Identifier: MIT

/*
Package syncer keeps a looping video phase-locked to the beats of a track.

The Engine is a control loop driven once per display frame. Given the music
position and the (loop-wrapped) video position it computes the playback rate
that makes the video reach its next head drop exactly when the next beat
lands:

	target = timeUntilDrop / timeUntilBeat

The target is clamped, biased by the recent rate velocity, and approached
exponentially so the rate never jumps. Close to a beat the engine compares
the video with where it should be and nudges the rate by a fixed offset
when the drift is too large; a drift too large to nudge is reported to the
caller, which seeks and resets.

Engine state is owned by one goroutine at a time. Nothing here blocks.
*/
package syncer

import (
	"math"

	"beatsync/internal/analysis"
	"beatsync/internal/perf"
)

// State is the minimal control-loop state kept across ticks.
type State struct {
	PlaybackRate      float64
	CurrentBeatIndex  int
	LastBeatTime      float64
	ExpectedVideoTime float64
	Drift             float64
}

func initialState() State {
	return State{PlaybackRate: 1, CurrentBeatIndex: -1}
}

// Result is the engine output for one tick.
type Result struct {
	PlaybackRate float64 // Rate to hand to the rate buffer.
	TargetRate   float64 // Unclamped target before smoothing; 0 while snapping.
	ShouldSnap   bool    // Within the snap window of a beat.
	SnapTime     float64 // Expected video time, valid when ShouldSnap.
	Drift        float64 // Video minus expected position, loop-folded.
	BeatIndex    int     // Current beat, -1 without data.
}

// Engine is the sync control loop. The zero value is not usable; call New.
type Engine struct {
	opts     Options
	state    State
	velocity []float64

	// Rate at the previous beat transition, for the velocity estimate.
	lastBeatRate float64
}

// New creates an engine at the identity rate.
func New(opts Options) *Engine {
	if opts.Bounds.Min <= 0 || opts.Bounds.Max < opts.Bounds.Min {
		opts.Bounds = DefaultBounds()
	}
	return &Engine{
		opts:         opts,
		state:        initialState(),
		velocity:     make([]float64, 0, velocityHistorySize),
		lastBeatRate: 1,
	}
}

// Options returns the configuration the engine was built with.
func (e *Engine) Options() Options {
	return e.opts
}

// State returns a copy of the current state.
func (e *Engine) State() State {
	return e.state
}

// Reset returns to the identity rate and forgets beat and velocity history.
// Callers reset on track change, on resume and after a seek.
func (e *Engine) Reset() {
	e.state = initialState()
	e.velocity = e.velocity[:0]
	e.lastBeatRate = 1
}

func (e *Engine) tuning(tier perf.Tier) Tuning {
	if !tier.Valid() {
		tier = perf.High
	}
	return e.opts.Tunings[tier]
}

// Update advances the loop by one tick. progress is the music position and
// videoTime the video position, both in seconds.
func (e *Engine) Update(progress, videoTime float64, a *analysis.AudioAnalysis, tier perf.Tier) Result {
	if a.Empty() || len(e.opts.Clip.HeadDrops) == 0 {
		return Result{PlaybackRate: 1, BeatIndex: -1}
	}
	if !finite(progress) || !finite(videoTime) {
		return Result{PlaybackRate: e.state.PlaybackRate, BeatIndex: e.state.CurrentBeatIndex}
	}

	tune := e.tuning(tier)
	beats := a.Beats
	videoTime = e.opts.Clip.Wrap(videoTime)

	beatIndex := max(analysis.CurrentBeat(beats, progress), 0)
	next := analysis.NextBeat(beats, progress)
	if next < 0 {
		// Past the last beat: nothing to lock onto, drift back to identity.
		e.state.PlaybackRate = e.opts.Bounds.Clamp(lerp(e.state.PlaybackRate, 1, tune.LerpFactor))
		e.state.CurrentBeatIndex = beatIndex
		return Result{PlaybackRate: e.state.PlaybackRate, BeatIndex: beatIndex}
	}

	if beatIndex != e.state.CurrentBeatIndex && e.state.CurrentBeatIndex >= 0 {
		e.onBeatTransition(progress)
	}
	e.state.CurrentBeatIndex = beatIndex

	// Sampling jitter can put progress at or past the beat; that is the
	// snap branch, never a division by a tiny or negative interval.
	timeUntilBeat := beats[next].Start - progress
	if timeUntilBeat <= tune.SnapThreshold || timeUntilBeat <= 0 {
		return e.snap(progress, videoTime, beats, beatIndex, tune)
	}

	timeUntilDrop := e.opts.Clip.TimeUntilNextDrop(videoTime)
	target := timeUntilDrop / timeUntilBeat

	adjusted := e.opts.Bounds.Clamp(e.opts.Bounds.Clamp(target) + e.velocityPrediction(tune))
	e.state.PlaybackRate = e.opts.Bounds.Clamp(lerp(e.state.PlaybackRate, adjusted, tune.LerpFactor))

	expected := e.expectedVideoTime(progress, beats, beatIndex)
	e.state.ExpectedVideoTime = expected
	e.state.Drift = e.opts.Clip.Drift(videoTime, expected)

	return Result{
		PlaybackRate: e.state.PlaybackRate,
		TargetRate:   target,
		Drift:        e.state.Drift,
		BeatIndex:    beatIndex,
	}
}

// snap handles the window just before a beat. The rate is pulled toward a
// constant nudge in the direction that closes the drift, never by a value
// proportional to it.
func (e *Engine) snap(progress, videoTime float64, beats []analysis.Beat, beatIndex int, tune Tuning) Result {
	expected := e.expectedVideoTime(progress, beats, beatIndex)
	drift := e.opts.Clip.Drift(videoTime, expected)

	snapRate := 1.0
	if math.Abs(drift) > tune.MaxDriftCorrection {
		if drift > 0 {
			snapRate = 1 - e.opts.Nudge
		} else {
			snapRate = 1 + e.opts.Nudge
		}
	}
	e.state.PlaybackRate = e.opts.Bounds.Clamp(lerp(e.state.PlaybackRate, snapRate, e.opts.SnapLerp))
	e.state.ExpectedVideoTime = expected
	e.state.Drift = drift

	return Result{
		PlaybackRate: e.state.PlaybackRate,
		ShouldSnap:   true,
		SnapTime:     expected,
		Drift:        drift,
		BeatIndex:    beatIndex,
	}
}

// ExpectedVideoTime is where the video should be at progress: beat i maps
// to head drop i (mod the drop count), and the position between two drops
// follows the fraction of the beat interval elapsed.
func (e *Engine) ExpectedVideoTime(progress float64, a *analysis.AudioAnalysis) float64 {
	if a.Empty() {
		return 0
	}
	return e.expectedVideoTime(progress, a.Beats, max(analysis.CurrentBeat(a.Beats, progress), 0))
}

func (e *Engine) expectedVideoTime(progress float64, beats []analysis.Beat, beatIndex int) float64 {
	start, span := e.opts.Clip.DropSpan(beatIndex)
	beatProgress := (progress - beats[beatIndex].Start) / analysis.BeatDuration(beats, beatIndex)
	beatProgress = math.Max(0, math.Min(1, beatProgress))
	return e.opts.Clip.Wrap(start + beatProgress*span)
}

// onBeatTransition records how fast the rate moved since the last beat.
func (e *Engine) onBeatTransition(progress float64) {
	if e.state.LastBeatTime > 0 {
		if dt := progress - e.state.LastBeatTime; dt > 0 {
			v := (e.state.PlaybackRate - e.lastBeatRate) / dt
			if len(e.velocity) == velocityHistorySize {
				copy(e.velocity, e.velocity[1:])
				e.velocity = e.velocity[:velocityHistorySize-1]
			}
			e.velocity = append(e.velocity, v)
		}
	}
	e.state.LastBeatTime = progress
	e.lastBeatRate = e.state.PlaybackRate
}

// velocityPrediction is the weighted mean rate velocity over recent beat
// transitions; it needs at least two observations.
func (e *Engine) velocityPrediction(tune Tuning) float64 {
	if len(e.velocity) < 2 {
		return 0
	}
	var sum float64
	for _, v := range e.velocity {
		sum += v
	}
	return sum / float64(len(e.velocity)) * tune.VelocityWeight
}

func lerp(current, target, factor float64) float64 {
	return current + (target-current)*factor
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
