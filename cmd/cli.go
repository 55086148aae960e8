// SPDX-License-Identifier: MIT
package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"beatsync/internal/analysis"
	"beatsync/internal/config"
	"beatsync/internal/log"
	"beatsync/pkg/build"
)

// options collects flags shared by the subcommands.
type options struct {
	ConfigPath string
	Verbose    bool

	AnalysisPath  string
	Tempo         float64
	TrackDuration time.Duration

	cfg *config.Config
}

// Execute runs the command line against args.
func Execute(ctx context.Context, args []string) error {
	root := newRootCmd()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	buildInfo := build.GetBuildFlags()
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         buildInfo.Description,
		Version:       buildInfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load()
		},
	}

	// Display help message
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	rootCmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "f", "",
		"Path to a YAML configuration file. Defaults to ./beatsync.yaml or ./config.yaml when present.")
	rootCmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false,
		"Show verbose output")

	rootCmd.AddCommand(
		newRunCmd(opts),
		newInspectCmd(opts),
		newClickCmd(opts),
		newConfigCmd(opts),
	)
	return rootCmd
}

// addAnalysisFlags registers the flags that select a track analysis.
func addAnalysisFlags(cmd *cobra.Command, opts *options) {
	cmd.Flags().StringVarP(&opts.AnalysisPath, "analysis", "a", "",
		"Audio analysis JSON file. Without it a synthetic track is generated.")
	cmd.Flags().Float64VarP(&opts.Tempo, "tempo", "t", 120,
		"Tempo of the synthetic track, in BPM")
	cmd.Flags().DurationVar(&opts.TrackDuration, "track-duration", 3*time.Minute,
		"Length of the synthetic track")
}

func (o *options) load() error {
	cfg, err := config.LoadConfig(o.ConfigPath)
	if err != nil {
		return err
	}
	o.cfg = cfg

	level, _ := log.ParseLevel(cfg.LogLevel) // validated by LoadConfig
	if cfg.Debug || o.Verbose {
		level = log.LevelDebug
	}
	log.SetLevel(level)
	return nil
}

func (o *options) loadAnalysis() (*analysis.AudioAnalysis, error) {
	if o.AnalysisPath != "" {
		return analysis.LoadFile(o.AnalysisPath)
	}
	if o.Tempo <= 0 || o.TrackDuration <= 0 {
		return nil, fmt.Errorf("synthetic track needs a positive tempo and duration")
	}
	return analysis.Synthetic(o.Tempo, o.TrackDuration.Seconds()), nil
}

func newConfigCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := opts.cfg.Marshal()
			if err != nil {
				return fmt.Errorf("marshal config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}
