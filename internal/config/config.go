// SPDX-License-Identifier: MIT
package config

import (
	"time"

	"beatsync/internal/driver"
	"beatsync/internal/perf"
	"beatsync/internal/ratebuf"
	"beatsync/internal/syncer"
)

// Config represents the main application configuration structure, loaded from YAML.
type Config struct {
	Debug     bool            `yaml:"debug"`     // Enable debug mode (verbose logging).
	LogLevel  string          `yaml:"log_level"` // Logging level (e.g., "debug", "info", "warn", "error").
	Clip      ClipConfig      `yaml:"clip"`      // The looping video being synced.
	Sync      SyncConfig      `yaml:"sync"`      // Control-loop tuning.
	Buffer    BufferConfig    `yaml:"buffer"`    // Rate buffer presets per tier.
	Driver    DriverConfig    `yaml:"driver"`    // Frame loop and host event handling.
	Transport TransportConfig `yaml:"transport"` // Telemetry transports.
}

// ClipConfig describes the video loop.
type ClipConfig struct {
	LoopDuration float64   `yaml:"loop_duration"` // Seconds.
	HeadDrops    []float64 `yaml:"head_drops"`    // Drop timestamps within the loop, ascending.
	MaxScale     float64   `yaml:"max_scale"`     // Scale applied at 0dB.
}

// SyncConfig tunes the sync engine.
type SyncConfig struct {
	MinRate           float64     `yaml:"min_rate"`
	MaxRate           float64     `yaml:"max_rate"`
	Nudge             float64     `yaml:"nudge"`               // Constant rate offset near a beat.
	SnapLerp          float64     `yaml:"snap_lerp"`           // Smoothing while nudging.
	HardSnapThreshold float64     `yaml:"hard_snap_threshold"` // Drift (s) that forces a seek.
	Tiers             TierTunings `yaml:"tiers"`
}

// TierTunings holds one syncer.Tuning per performance tier.
type TierTunings struct {
	Low    syncer.Tuning `yaml:"low"`
	Medium syncer.Tuning `yaml:"medium"`
	High   syncer.Tuning `yaml:"high"`
}

// BufferConfig holds one ratebuf.Config per performance tier.
type BufferConfig struct {
	Low    ratebuf.Config `yaml:"low"`
	Medium ratebuf.Config `yaml:"medium"`
	High   ratebuf.Config `yaml:"high"`
}

// DriverConfig holds frame loop settings.
type DriverConfig struct {
	FrameInterval       time.Duration `yaml:"frame_interval"`
	SeekThreshold       time.Duration `yaml:"seek_threshold"`       // Progress jumps beyond this are seeks.
	UseWorker           bool          `yaml:"use_worker"`           // Compute on a dedicated goroutine.
	ExtrapolateProgress bool          `yaml:"extrapolate_progress"` // Advance progress between host reports.
	ResumeOnBeat        bool          `yaml:"resume_on_beat"`       // Hold the video until the next beat on resume.
	PublishInterval     time.Duration `yaml:"publish_interval"`     // Minimum gap between telemetry messages.
	AccuracyHistory     int           `yaml:"accuracy_history"`     // Beat scores kept for the accuracy metric.
}

// TransportConfig holds settings related to sending telemetry over the network.
type TransportConfig struct {
	WebSocketEnabled bool          `yaml:"websocket_enabled"`  // Serve metrics to WebSocket clients.
	WebSocketAddress string        `yaml:"websocket_address"`  // Listen address (e.g., "127.0.0.1:8090").
	UDPEnabled       bool          `yaml:"udp_enabled"`        // Send sync packets over UDP.
	UDPTargetAddress string        `yaml:"udp_target_address"` // Target address and port for UDP packets (e.g., "127.0.0.1:9090").
	UDPSendInterval  time.Duration `yaml:"udp_send_interval"`  // Interval between sending UDP packets.
}

// DefaultHeadDrops are the drop timestamps of the stock clip.
var DefaultHeadDrops = []float64{
	0.425, 0.883, 1.403, 1.841, 2.206, 2.664, 3.075, 3.58, 3.945, 4.433,
	4.885, 5.292, 5.826, 6.152, 7.06, 7.51, 8.01, 8.435, 8.86, 9.27,
}

// DefaultLoopDuration is the length of the stock clip in seconds.
const DefaultLoopDuration = 9.75

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Debug:    false,
		LogLevel: "info",
		Clip: ClipConfig{
			LoopDuration: DefaultLoopDuration,
			HeadDrops:    append([]float64(nil), DefaultHeadDrops...),
			MaxScale:     driver.DefaultMaxScale,
		},
		Sync: SyncConfig{
			MinRate:           syncer.DefaultMinRate,
			MaxRate:           syncer.DefaultMaxRate,
			Nudge:             syncer.DefaultNudge,
			SnapLerp:          syncer.DefaultSnapLerp,
			HardSnapThreshold: driver.DefaultHardSnapThreshold,
			Tiers: TierTunings{
				Low:    syncer.DefaultTuning(perf.Low),
				Medium: syncer.DefaultTuning(perf.Medium),
				High:   syncer.DefaultTuning(perf.High),
			},
		},
		Buffer: BufferConfig{
			Low:    ratebuf.DefaultConfig(perf.Low),
			Medium: ratebuf.DefaultConfig(perf.Medium),
			High:   ratebuf.DefaultConfig(perf.High),
		},
		Driver: DriverConfig{
			FrameInterval:       driver.DefaultFrameInterval,
			SeekThreshold:       driver.DefaultSeekThreshold,
			UseWorker:           true,
			ExtrapolateProgress: true,
			ResumeOnBeat:        true,
			PublishInterval:     driver.DefaultPublishInterval,
			AccuracyHistory:     driver.DefaultAccuracyHistory,
		},
		Transport: TransportConfig{
			WebSocketEnabled: false,
			WebSocketAddress: "127.0.0.1:8090",
			UDPEnabled:       false,
			UDPTargetAddress: "127.0.0.1:9090",
			UDPSendInterval:  33 * time.Millisecond, // ~30Hz.
		},
	}
}

// SyncClip returns the clip description for the sync engine.
func (c *Config) SyncClip() syncer.Clip {
	return syncer.Clip{
		LoopDuration: c.Clip.LoopDuration,
		HeadDrops:    append([]float64(nil), c.Clip.HeadDrops...),
	}
}

// For returns the sync tuning for tier.
func (t TierTunings) For(tier perf.Tier) syncer.Tuning {
	switch tier {
	case perf.Low:
		return t.Low
	case perf.Medium:
		return t.Medium
	default:
		return t.High
	}
}

// For returns the rate buffer preset for tier.
func (b BufferConfig) For(tier perf.Tier) ratebuf.Config {
	switch tier {
	case perf.Low:
		return b.Low
	case perf.Medium:
		return b.Medium
	default:
		return b.High
	}
}

// EngineOptions converts the sync section into engine options.
func (c *Config) EngineOptions() syncer.Options {
	opts := syncer.Options{
		Clip:     c.SyncClip(),
		Bounds:   syncer.Bounds{Min: c.Sync.MinRate, Max: c.Sync.MaxRate},
		Nudge:    c.Sync.Nudge,
		SnapLerp: c.Sync.SnapLerp,
	}
	for _, t := range perf.Tiers {
		opts.Tunings[t] = c.Sync.Tiers.For(t)
	}
	return opts
}

// DriverOptions converts the whole configuration into driver options.
func (c *Config) DriverOptions() driver.Options {
	opts := driver.Options{
		Engine:              c.EngineOptions(),
		MaxScale:            c.Clip.MaxScale,
		FrameInterval:       c.Driver.FrameInterval,
		SeekThreshold:       c.Driver.SeekThreshold,
		HardSnapThreshold:   c.Sync.HardSnapThreshold,
		UseWorker:           c.Driver.UseWorker,
		ExtrapolateProgress: c.Driver.ExtrapolateProgress,
		ResumeOnBeat:        c.Driver.ResumeOnBeat,
		PublishInterval:     c.Driver.PublishInterval,
		AccuracyHistory:     c.Driver.AccuracyHistory,
	}
	for _, t := range perf.Tiers {
		opts.Buffers[t] = c.Buffer.For(t)
	}
	return opts
}
