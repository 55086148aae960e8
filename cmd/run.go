// SPDX-License-Identifier: MIT
package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"beatsync/internal/config"
	"beatsync/internal/driver"
	"beatsync/internal/log"
	"beatsync/internal/perf"
	"beatsync/internal/sim"
	"beatsync/internal/transport"
	"beatsync/internal/transport/udp"
)

type runOptions struct {
	Duration time.Duration
	Report   time.Duration
	Seed     uint64
	SeekAt   time.Duration
	SeekTo   time.Duration
}

func newRunCmd(opts *options) *cobra.Command {
	ro := runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Drive a simulated video against a simulated player",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd.Context(), opts, ro)
		},
	}

	addAnalysisFlags(cmd, opts)
	cmd.Flags().DurationVarP(&ro.Duration, "duration", "d", 0,
		"Stop after this long; zero plays the whole track")
	cmd.Flags().DurationVar(&ro.Report, "report", time.Second, "Interval between status lines")
	cmd.Flags().Uint64Var(&ro.Seed, "seed", uint64(time.Now().UnixNano()), "Seed for progress report timing")
	cmd.Flags().DurationVar(&ro.SeekAt, "seek-at", 0, "Simulate a host seek at this offset")
	cmd.Flags().DurationVar(&ro.SeekTo, "seek-to", 0, "Track position the simulated seek jumps to")
	return cmd
}

func runSync(ctx context.Context, opts *options, ro runOptions) error {
	cfg := opts.cfg
	a, err := opts.loadAnalysis()
	if err != nil {
		return err
	}

	sinks, err := openTelemetry(cfg)
	if err != nil {
		return err
	}
	defer sinks.Close()

	var dopts []driver.Option
	if len(sinks) > 0 {
		dopts = append(dopts, driver.WithTransport(sinks))
	}
	video := sim.NewVideo(cfg.Clip.LoopDuration, nil)
	d := driver.New(cfg.DriverOptions(), video, dopts...)
	defer d.Close()

	if cfg.Transport.UDPEnabled {
		stop, err := startUDP(cfg, d)
		if err != nil {
			return err
		}
		defer stop()
	}

	if err := d.Start(ctx); err != nil {
		return err
	}
	d.OnTrackChange(a)

	host := sim.NewHost(ro.Seed)
	host.Duration = time.Duration(a.Track.Duration * float64(time.Second))
	if ro.SeekAt > 0 {
		host.Script = append(host.Script, sim.Event{At: ro.SeekAt, SeekTo: float64(ro.SeekTo / time.Millisecond)})
	}

	runCtx := ctx
	if ro.Duration > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, ro.Duration)
		defer cancel()
	}

	stopReport := reportStatus(runCtx, d, ro.Report)
	err = host.Run(runCtx, d)
	stopReport()

	m := d.Snapshot()
	log.Infof("session %s: accuracy %.1f%%, %d seeks, %d hard snaps, %d dropped frames",
		m.SessionID, m.BeatAccuracy, m.Seeks, m.HardSnaps, m.DroppedFrames)

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func openTelemetry(cfg *config.Config) (transport.Multi, error) {
	var sinks transport.Multi
	if cfg.Debug {
		sinks = append(sinks, transport.NewLoggingTransport())
	}
	if cfg.Transport.WebSocketEnabled {
		ws, err := transport.NewWebSocketTransport(cfg.Transport.WebSocketAddress)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, ws)
	}
	return sinks, nil
}

func startUDP(cfg *config.Config, d *driver.Driver) (func(), error) {
	sender, err := udp.NewUDPSender(cfg.Transport.UDPTargetAddress)
	if err != nil {
		return nil, err
	}
	pub, err := udp.NewUDPPublisher(cfg.Transport.UDPSendInterval, sender, func() udp.Packet {
		return packetFromMetrics(d.Snapshot())
	})
	if err != nil {
		sender.Close()
		return nil, err
	}
	pub.Start()
	return func() {
		_ = pub.Close()
		_ = sender.Close()
	}, nil
}

func packetFromMetrics(m driver.Metrics) udp.Packet {
	tier, err := perf.ParseTier(m.Tier)
	if err != nil {
		tier = perf.High
	}
	var flags uint8
	if m.Playing {
		flags |= udp.FlagPlaying
	}
	if m.WorkerActive {
		flags |= udp.FlagWorker
	}
	if m.BufferStale {
		flags |= udp.FlagBufferStale
	}
	return udp.Packet{
		Tier:       uint8(tier),
		Flags:      flags,
		BeatIndex:  int32(m.BeatIndex),
		ProgressMs: m.ProgressMs,
		Rate:       float32(m.AppliedRate),
		Scale:      float32(m.Scale),
		Drift:      float32(m.Drift),
		Accuracy:   float32(m.BeatAccuracy),
	}
}

// reportStatus logs a status line every interval until the returned stop
// function is called.
func reportStatus(ctx context.Context, d *driver.Driver, every time.Duration) func() {
	if every <= 0 {
		return func() {}
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				log.Infof("%s", statusLine(d.Snapshot()))
			}
		}
	}()
	return func() {
		cancel()
		<-done
	}
}

func statusLine(m driver.Metrics) string {
	return fmt.Sprintf("t=%7.2fs beat=%4d rate=%.3f target=%.3f drift=%+.3fs acc=%5.1f%% tier=%s fps=%.0f scale=%.3f bpm=%.1f",
		m.ProgressMs/1000, m.BeatIndex, m.AppliedRate, m.TargetRate, m.Drift, m.BeatAccuracy, m.Tier, m.FPS, m.Scale, m.LocalBPM)
}
