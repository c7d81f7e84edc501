// ABOUTME: Cobra command tree for tonieconv
// ABOUTME: Maps flags onto the configuration and starts the converter
package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tonietools/tonieconv/internal/app"
	"github.com/tonietools/tonieconv/internal/config"
	"github.com/tonietools/tonieconv/internal/version"
)

type rootFlags struct {
	add         []string
	comments    []string
	header      bool
	configPath  string
	format      string
	audioID     uint32
	quality     string
	flushTail   bool
	logLevel    string
	logFile     string
	progress    string
	metricsFile string
}

func newRootCmd() *cobra.Command {
	var flags rootFlags

	cmd := &cobra.Command{
		Use:   "tonieconv [flags] <input> [output]",
		Short: "Convert audio files into Toniefiles",
		Long: `Convert WAV, FLAC and MP3 files into a Toniefile.

The input becomes the first chapter; every --add source starts a new chapter.
With --header the Toniefile header of <input> is printed instead.`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.header {
				return app.DumpHeader(args[0], cmd.OutOrStdout())
			}
			if len(args) < 2 {
				return errors.New("output path is required")
			}

			cfg, err := buildConfig(cmd, &flags)
			if err != nil {
				return err
			}

			conv, err := app.New(app.Options{
				Input:      args[0],
				Output:     args[1],
				Add:        flags.add,
				Comments:   flags.comments,
				AudioID:    flags.audioID,
				HasAudioID: cmd.Flags().Changed("audio-id"),
				Config:     cfg,
				Stdin:      cmd.InOrStdin(),
				Stdout:     cmd.OutOrStdout(),
				Stderr:     cmd.ErrOrStderr(),
			})
			if err != nil {
				return err
			}
			return conv.Run()
		},
	}

	f := cmd.Flags()
	f.StringArrayVarP(&flags.add, "add", "a", nil, "Add a source as a new chapter (repeatable)")
	f.StringArrayVarP(&flags.comments, "comment", "c", nil, "Add a comment to the Opus tags (repeatable)")
	f.BoolVarP(&flags.header, "header", "d", false, "Print the header of a Toniefile and exit")
	f.StringVar(&flags.configPath, "config", "", "YAML configuration file")
	f.StringVar(&flags.format, "format", "", "Output format: tonie or wav")
	f.Uint32Var(&flags.audioID, "audio-id", 0, "Fixed audio id (default: random)")
	f.StringVar(&flags.quality, "quality", "", "Resampler quality: linear or hq")
	f.BoolVar(&flags.flushTail, "flush-tail", false, "Emit the trailing frames held by the resampler")
	f.StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	f.StringVar(&flags.logFile, "log-file", "", "Also write logs to this file")
	f.StringVar(&flags.progress, "progress", "", "Progress display: log, tui or off")
	f.StringVar(&flags.metricsFile, "metrics-file", "", "Write Prometheus metrics to this file")

	cmd.MarkFlagsMutuallyExclusive("header", "add")
	cmd.MarkFlagsMutuallyExclusive("header", "comment")

	cmd.AddCommand(newVersionCmd())
	return cmd
}

// buildConfig loads the optional config file and applies explicitly set flags on top.
func buildConfig(cmd *cobra.Command, flags *rootFlags) (*config.Config, error) {
	cfg := config.Default()
	if flags.configPath != "" {
		loaded, err := config.Load(flags.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	changed := cmd.Flags().Changed
	if changed("format") {
		cfg.Output.Format = flags.format
	}
	if changed("quality") {
		cfg.Resample.Quality = flags.quality
	}
	if changed("flush-tail") {
		cfg.Resample.FlushTail = flags.flushTail
	}
	if changed("log-level") {
		cfg.Logging.Level = flags.logLevel
	}
	if changed("log-file") {
		cfg.Logging.File = flags.logFile
	}
	if changed("progress") {
		cfg.Progress.Mode = flags.progress
	}
	if changed("metrics-file") {
		cfg.Metrics.Textfile = flags.metricsFile
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}
