// SPDX-License-Identifier: MIT
package audio

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-audio/wav"

	"beatsync/internal/analysis"
)

func decode(t *testing.T, path string) (*wav.Decoder, []int) {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { f.Close() })

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		t.Fatalf("%s is not a valid WAV file", path)
	}
	pcm, err := d.FullPCMBuffer()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return d, pcm.Data
}

func peakAbs(data []int) int {
	p := 0
	for _, v := range data {
		p = max(p, v, -v)
	}
	return p
}

func TestRenderClicksPlacesBeats(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clicks.wav")
	opts := DefaultClickOptions()
	a := analysis.Synthetic(120, 2)

	frames, err := WriteClickFile(path, a, opts)
	if err != nil {
		t.Fatalf("WriteClickFile: %v", err)
	}
	if frames != 2*opts.SampleRate {
		t.Errorf("frames = %d, want %d", frames, 2*opts.SampleRate)
	}

	d, data := decode(t, path)
	if int(d.SampleRate) != opts.SampleRate || d.NumChans != 1 || int(d.BitDepth) != opts.BitDepth {
		t.Errorf("format = %dHz %dch %dbit", d.SampleRate, d.NumChans, d.BitDepth)
	}
	if len(data) != frames {
		t.Fatalf("decoded %d frames, want %d", len(data), frames)
	}

	clickN := int(opts.ClickLength.Seconds() * float64(opts.SampleRate))
	beatN := opts.SampleRate / 2
	for i := range 4 {
		if peakAbs(data[i*beatN:i*beatN+clickN]) == 0 {
			t.Errorf("beat %d is silent", i)
		}
		if gap := data[i*beatN+clickN : (i+1)*beatN]; peakAbs(gap) != 0 {
			t.Errorf("noise between beat %d and %d", i, i+1)
		}
	}

	// Beat 0 sits on an accented segment.
	if accent, plain := peakAbs(data[:clickN]), peakAbs(data[beatN:beatN+clickN]); accent <= plain {
		t.Errorf("accented click %d not louder than plain click %d", accent, plain)
	}
}

func TestRenderClicksQuietTrackUsesFloor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quiet.wav")
	opts := DefaultClickOptions()
	a := &analysis.AudioAnalysis{
		Beats: []analysis.Beat{{Start: 0.1, Duration: 0.5}},
		Track: analysis.Track{Duration: 0.5},
	}
	if _, err := WriteClickFile(path, a, opts); err != nil {
		t.Fatal(err)
	}
	_, data := decode(t, path)
	want := opts.MinAmplitude * float64(math.MaxInt16)
	if got := float64(peakAbs(data)); got > want || got < want*0.5 {
		t.Errorf("peak %v, want close to the %v floor", got, want)
	}
}

func TestRenderClicksTail(t *testing.T) {
	opts := DefaultClickOptions()
	opts.Tail = 500 * time.Millisecond
	path := filepath.Join(t.TempDir(), "tail.wav")
	frames, err := WriteClickFile(path, analysis.Synthetic(120, 1), opts)
	if err != nil {
		t.Fatal(err)
	}
	if want := opts.SampleRate * 3 / 2; frames != want {
		t.Errorf("frames = %d, want %d", frames, want)
	}
}

func TestRenderClicksRejectsBadOptions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.wav")
	a := analysis.Synthetic(120, 1)

	opts := DefaultClickOptions()
	opts.BitDepth = 12
	if _, err := WriteClickFile(path, a, opts); err == nil {
		t.Error("12-bit output accepted")
	}
	if _, err := WriteClickFile(path, nil, DefaultClickOptions()); err == nil {
		t.Error("nil analysis accepted")
	}
}
