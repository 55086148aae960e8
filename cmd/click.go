// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"beatsync/internal/audio"
	"beatsync/internal/log"
)

func newClickCmd(opts *options) *cobra.Command {
	click := audio.DefaultClickOptions()
	var output string

	cmd := &cobra.Command{
		Use:   "click",
		Short: "Render a WAV click track with one click per beat",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.loadAnalysis()
			if err != nil {
				return err
			}
			if output == "" {
				output = "clicks-" + time.Now().UTC().Format("02-01-2006-150405") + ".wav"
			}

			frames, err := audio.WriteClickFile(output, a, click)
			if err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			log.Infof("click track saved to %s (%d beats, %.1fs)",
				output, len(a.Beats), float64(frames)/float64(click.SampleRate))
			return nil
		},
	}

	addAnalysisFlags(cmd, opts)
	cmd.Flags().StringVarP(&output, "output", "o", "",
		"Output file name. Default is clicks-DD-MM-YYYY-HHMMSS.wav")
	cmd.Flags().IntVarP(&click.SampleRate, "sample-rate", "s", click.SampleRate,
		"Sample rate, measured in Hertz (Hz)")
	cmd.Flags().IntVar(&click.BitDepth, "bit-depth", click.BitDepth, "Bits per sample (8, 16, 24 or 32)")
	cmd.Flags().Float64Var(&click.Frequency, "frequency", click.Frequency, "Click tone in Hz")
	cmd.Flags().DurationVar(&click.Tail, "tail", click.Tail, "Silence appended after the track")
	return cmd
}
