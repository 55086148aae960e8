// SPDX-License-Identifier: MIT
package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"beatsync/internal/driver"
	"beatsync/internal/transport/udp"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestInspectSynthetic(t *testing.T) {
	out, err := execute(t, "inspect", "--tempo", "90", "--track-duration", "20s", "--at", "4,10")
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	for _, want := range []string{"tempo:    90.00 bpm", "beats:    30", "time (s)", "90.0"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestInspectMissingFile(t *testing.T) {
	if _, err := execute(t, "inspect", "--analysis", filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Error("missing analysis file accepted")
	}
}

func TestClickWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.wav")
	if _, err := execute(t, "click", "--tempo", "120", "--track-duration", "2s", "-o", path); err != nil {
		t.Fatalf("click: %v", err)
	}
	if fi, err := os.Stat(path); err != nil || fi.Size() < 44 {
		t.Errorf("click file: %v, %v", fi, err)
	}
}

func TestConfigPrintsYAML(t *testing.T) {
	out, err := execute(t, "config")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "loop_duration: 9.75") || !strings.Contains(out, "head_drops:") {
		t.Errorf("unexpected config output:\n%s", out)
	}
}

func TestRunShortSession(t *testing.T) {
	if testing.Short() {
		t.Skip("runs the frame loop in real time")
	}
	if _, err := execute(t, "run", "--tempo", "120", "--track-duration", "30s", "--duration", "300ms", "--report", "0"); err != nil {
		t.Fatalf("run: %v", err)
	}
}

func TestPacketFromMetrics(t *testing.T) {
	p := packetFromMetrics(driver.Metrics{
		Tier: "medium", Playing: true, BufferStale: true,
		BeatIndex: 12, AppliedRate: 1.1, Drift: -0.05, Scale: 1.05,
	})
	if p.Tier != 1 || !p.Has(udp.FlagPlaying) || p.Has(udp.FlagWorker) || !p.Has(udp.FlagBufferStale) {
		t.Errorf("packet header %+v", p)
	}
	if p.BeatIndex != 12 || p.Rate != float32(1.1) {
		t.Errorf("packet body %+v", p)
	}
}
