// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"beatsync/internal/log"
	"beatsync/internal/perf"
)

// LoadConfig loads configuration from a YAML file specified by path. If path is empty,
// it searches default locations ("beatsync.yaml", "config.yaml"). If no file is found,
// it uses built-in defaults. Keys missing from the file keep their defaults. After
// loading it applies environment variable overrides and validates the result.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		for _, candidate := range []string{"beatsync.yaml", "config.yaml"} {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Apply environment variable overrides AFTER loading from file.
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Marshal renders the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// Validate reports every problem found, joined.
func (c *Config) Validate() error {
	var errs []error

	if _, ok := log.ParseLevel(c.LogLevel); !ok {
		errs = append(errs, fmt.Errorf("log_level %q is not a known level", c.LogLevel))
	}

	if err := c.SyncClip().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("clip: %w", err))
	}
	if c.Clip.MaxScale < 1 {
		errs = append(errs, fmt.Errorf("clip.max_scale must be >= 1, got %v", c.Clip.MaxScale))
	}

	s := c.Sync
	if s.MinRate <= 0 || s.MinRate > 1 || s.MaxRate < 1 {
		errs = append(errs, fmt.Errorf("sync rate bounds [%v, %v] must be positive and contain 1", s.MinRate, s.MaxRate))
	}
	if s.Nudge <= 0 || s.Nudge >= 1 {
		errs = append(errs, fmt.Errorf("sync.nudge must be in (0, 1), got %v", s.Nudge))
	}
	if s.SnapLerp <= 0 || s.SnapLerp > 1 {
		errs = append(errs, fmt.Errorf("sync.snap_lerp must be in (0, 1], got %v", s.SnapLerp))
	}
	if s.HardSnapThreshold <= 0 {
		errs = append(errs, fmt.Errorf("sync.hard_snap_threshold must be positive"))
	}

	for _, tier := range perf.Tiers {
		t := s.Tiers.For(tier)
		if t.LerpFactor <= 0 || t.LerpFactor > 1 {
			errs = append(errs, fmt.Errorf("sync.tiers.%s.lerp_factor must be in (0, 1]", tier))
		}
		if t.SnapThreshold < 0 || t.MaxDriftCorrection < 0 || t.VelocityWeight < 0 {
			errs = append(errs, fmt.Errorf("sync.tiers.%s has a negative setting", tier))
		}

		b := c.Buffer.For(tier)
		if b.MaxBufferSize < 1 {
			errs = append(errs, fmt.Errorf("buffer.%s.max_buffer_size must be at least 1", tier))
		}
		if b.MaxAge <= 0 {
			errs = append(errs, fmt.Errorf("buffer.%s.max_age must be positive", tier))
		}
		if b.SmoothFactor <= 0 || b.SmoothFactor > 1 {
			errs = append(errs, fmt.Errorf("buffer.%s.smooth_factor must be in (0, 1]", tier))
		}
		if b.InterpolationThreshold < 0 || b.MaxJumpRate < b.InterpolationThreshold {
			errs = append(errs, fmt.Errorf("buffer.%s.max_jump_rate must be >= interpolation_threshold >= 0", tier))
		}
	}

	if c.Driver.FrameInterval <= 0 {
		errs = append(errs, fmt.Errorf("driver.frame_interval must be positive"))
	}
	if c.Driver.SeekThreshold <= 0 {
		errs = append(errs, fmt.Errorf("driver.seek_threshold must be positive"))
	}
	if c.Driver.PublishInterval < 0 {
		errs = append(errs, fmt.Errorf("driver.publish_interval must not be negative"))
	}

	// Transport Validation
	if c.Transport.WebSocketEnabled && c.Transport.WebSocketAddress == "" {
		errs = append(errs, fmt.Errorf("transport.websocket_address must be set when the WebSocket transport is enabled"))
	}
	if c.Transport.UDPEnabled {
		if c.Transport.UDPTargetAddress == "" {
			errs = append(errs, fmt.Errorf("transport.udp_target_address must be set when UDP is enabled"))
		} else if !strings.Contains(c.Transport.UDPTargetAddress, ":") {
			errs = append(errs, fmt.Errorf("transport.udp_target_address '%s' appears invalid (missing port?)", c.Transport.UDPTargetAddress))
		}
		if c.Transport.UDPSendInterval <= 0 {
			errs = append(errs, fmt.Errorf("transport.udp_send_interval must be positive when UDP is enabled"))
		}
	}

	return errors.Join(errs...)
}

// applyEnvOverrides applies ENV_* variables on top of the loaded file.
// Values that fail to parse are ignored with a warning.
func (cfg *Config) applyEnvOverrides() {
	// ENV_{...}
	// These are general overrides.

	// ENV_DEBUG
	envBool("ENV_DEBUG", &cfg.Debug)
	// ENV_LOG_LEVEL
	if val, ok := os.LookupEnv("ENV_LOG_LEVEL"); ok {
		cfg.LogLevel = val
		log.Infof("configuration: Overriding log_level from env: %s", val)
	}
	// ENV_USE_WORKER
	envBool("ENV_USE_WORKER", &cfg.Driver.UseWorker)

	// ENV_WS_{...}
	envBool("ENV_WS_ENABLED", &cfg.Transport.WebSocketEnabled)
	if val, ok := os.LookupEnv("ENV_WS_ADDRESS"); ok {
		cfg.Transport.WebSocketAddress = val
		log.Infof("configuration: Overriding transport.websocket_address from env: %s", val)
	}

	// ENV_UDP_{...}
	// These are specific to the transport layer.

	// ENV_UDP_ENABLED
	envBool("ENV_UDP_ENABLED", &cfg.Transport.UDPEnabled)
	// ENV_UDP_TARGET_ADDRESS
	if val, ok := os.LookupEnv("ENV_UDP_TARGET_ADDRESS"); ok {
		cfg.Transport.UDPTargetAddress = val
		log.Infof("configuration: Overriding transport.udp_target_address from env: %s", val)
	}
	// ENV_UDP_SEND_INTERVAL
	if val, ok := os.LookupEnv("ENV_UDP_SEND_INTERVAL"); ok {
		if dur, err := time.ParseDuration(val); err == nil {
			cfg.Transport.UDPSendInterval = dur
			log.Infof("configuration: Overriding transport.udp_send_interval from env: %s", dur)
		} else {
			log.Warnf("configuration: Ignoring ENV_UDP_SEND_INTERVAL=%q: %v", val, err)
		}
	}
}

func envBool(name string, dst *bool) {
	val, ok := os.LookupEnv(name)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		log.Warnf("configuration: Ignoring %s=%q: %v", name, val, err)
		return
	}
	*dst = b
	log.Infof("configuration: Overriding from env %s: %v", name, b)
}
