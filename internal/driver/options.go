// SPDX-License-Identifier: MIT
package driver

import (
	"time"

	"beatsync/internal/perf"
	"beatsync/internal/ratebuf"
	"beatsync/internal/syncer"
)

// Options configures a Driver.
type Options struct {
	Engine  syncer.Options
	Buffers [len(perf.Tiers)]ratebuf.Config

	// Largest loudness scale applied to the video.
	MaxScale float64

	// Tick period of the frame loop.
	FrameInterval time.Duration

	// A progress report further than this from the extrapolated position
	// is treated as a seek.
	SeekThreshold time.Duration

	// Drift, in seconds, beyond which a snap seeks the video outright.
	HardSnapThreshold float64

	UseWorker           bool
	ExtrapolateProgress bool

	// Hold video playback after a resume or track change until the next
	// beat lands.
	ResumeOnBeat bool

	// Minimum gap between telemetry messages; zero publishes every frame.
	PublishInterval time.Duration

	AccuracyHistory int
}

const (
	DefaultMaxScale          = 1.15
	DefaultFrameInterval     = perf.NominalFrame
	DefaultSeekThreshold     = 3 * time.Second
	DefaultHardSnapThreshold = 1.5
	DefaultPublishInterval   = 100 * time.Millisecond
)

// DefaultOptions returns the production settings for clip.
func DefaultOptions(clip syncer.Clip) Options {
	opts := Options{
		Engine:              syncer.DefaultOptions(clip),
		MaxScale:            DefaultMaxScale,
		FrameInterval:       DefaultFrameInterval,
		SeekThreshold:       DefaultSeekThreshold,
		HardSnapThreshold:   DefaultHardSnapThreshold,
		UseWorker:           true,
		ExtrapolateProgress: true,
		ResumeOnBeat:        true,
		PublishInterval:     DefaultPublishInterval,
		AccuracyHistory:     DefaultAccuracyHistory,
	}
	for _, t := range perf.Tiers {
		opts.Buffers[t] = ratebuf.DefaultConfig(t)
	}
	return opts
}
