// SPDX-License-Identifier: MIT
package driver

import "time"

// Metrics is the driver's debug snapshot. It is what the telemetry
// transports publish.
type Metrics struct {
	SessionID string    `json:"session_id"`
	Timestamp time.Time `json:"timestamp"`
	Playing   bool      `json:"playing"`

	// Performance
	FPS            float64 `json:"fps"`
	Tier           string  `json:"tier"`
	FrameTimeMs    float64 `json:"frame_time_ms"`
	DroppedFrames  int     `json:"dropped_frames"`
	WorkerActive   bool    `json:"worker_active"`
	SkippedFrames  int     `json:"skipped_frames"`
	ThrottledTicks int     `json:"throttled_ticks"`

	// Sync
	ProgressMs   float64 `json:"progress_ms"`
	VideoTime    float64 `json:"video_time"`
	AppliedRate  float64 `json:"applied_rate"`
	RawRate      float64 `json:"raw_rate"`
	TargetRate   float64 `json:"target_rate"`
	BeatIndex    int     `json:"beat_index"`
	Drift        float64 `json:"drift"`
	BeatAccuracy float64 `json:"beat_accuracy"`
	Seeks        int     `json:"seeks"`
	HardSnaps    int     `json:"hard_snaps"`
	BufferLen    int     `json:"buffer_len"`
	BufferStale  bool    `json:"buffer_stale"`

	// Audio
	GlobalBPM  float64 `json:"global_bpm"`
	LocalBPM   float64 `json:"local_bpm"`
	LoudnessDB float64 `json:"loudness_db"`
	Scale      float64 `json:"scale"`
	Segments   int     `json:"segments"`
	Beats      int     `json:"beats"`
}
