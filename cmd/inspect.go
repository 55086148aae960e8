// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"beatsync/internal/analysis"
)

func newInspectCmd(opts *options) *cobra.Command {
	var at []float64

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Summarise an analysis and query it at given positions",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.loadAnalysis()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "tempo:    %.2f bpm\n", a.Track.Tempo)
			fmt.Fprintf(out, "duration: %.2fs\n", a.Track.Duration)
			fmt.Fprintf(out, "beats:    %d\n", len(a.Beats))
			fmt.Fprintf(out, "segments: %d\n", len(a.Segments))
			if len(at) == 0 {
				return nil
			}

			maxScale := opts.cfg.Clip.MaxScale
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', tabwriter.AlignRight)
			fmt.Fprintln(tw, "\ntime (s)\tbeat\tlocal bpm\tloudness (dB)\tscale\t")
			for _, t := range at {
				db := analysis.LoudnessAt(a.Segments, t)
				fmt.Fprintf(tw, "%.3f\t%d\t%.1f\t%.2f\t%.3f\t\n",
					t,
					analysis.CurrentBeat(a.Beats, t),
					analysis.LocalBPM(a.Beats, t, analysis.DefaultBPMWindow),
					db,
					analysis.Scale(db, maxScale))
			}
			return tw.Flush()
		},
	}

	addAnalysisFlags(cmd, opts)
	cmd.Flags().Float64SliceVar(&at, "at", nil, "Positions in seconds to query (e.g. --at 10,42.5)")
	return cmd
}
