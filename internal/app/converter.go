// ABOUTME: Converter application orchestration
// ABOUTME: Wires config, logging, metrics, container writer, pipeline and UI
package app

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"

	"github.com/tonietools/tonieconv/internal/config"
	"github.com/tonietools/tonieconv/internal/container"
	"github.com/tonietools/tonieconv/internal/logging"
	"github.com/tonietools/tonieconv/internal/metrics"
	"github.com/tonietools/tonieconv/internal/pipeline"
	"github.com/tonietools/tonieconv/internal/ui"
	"github.com/tonietools/tonieconv/pkg/audio/encode"
)

// IDSource yields stream identifiers for new Toniefiles
type IDSource interface {
	Uint32() uint32
}

// RandomIDs draws identifiers from the process-wide random source
type RandomIDs struct{}

func (RandomIDs) Uint32() uint32 {
	return rand.Uint32()
}

// Options holds one conversion request
type Options struct {
	Input    string
	Output   string
	Add      []string // secondary sources, one chapter each
	Comments []string

	// AudioID fixes the stream id when HasAudioID is set
	AudioID    uint32
	HasAudioID bool
	IDs        IDSource

	Config *config.Config

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Converter runs a single conversion
type Converter struct {
	opts    Options
	cfg     *config.Config
	log     *slog.Logger
	closer  io.Closer
	metrics *metrics.Metrics
}

// New creates a converter and its logger
func New(opts Options) (*Converter, error) {
	if opts.Config == nil {
		opts.Config = config.Default()
	}
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}
	if opts.IDs == nil {
		opts.IDs = RandomIDs{}
	}
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.Input == "" {
		return nil, errors.New("input path is required")
	}
	if opts.Output == "" {
		return nil, errors.New("output path is required")
	}

	log, closer, err := logging.New(opts.Config.Logging, opts.Stderr)
	if err != nil {
		return nil, err
	}

	return &Converter{
		opts:    opts,
		cfg:     opts.Config,
		log:     log,
		closer:  closer,
		metrics: metrics.New(),
	}, nil
}

// Metrics returns the metrics of this run
func (c *Converter) Metrics() *metrics.Metrics {
	return c.metrics
}

// Run converts every source into the output file
func (c *Converter) Run() (err error) {
	defer c.closer.Close()

	f, err := os.Create(c.opts.Output)
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close output: %w", cerr)
		}
	}()

	sink, err := c.newWriter(f)
	if err != nil {
		return err
	}

	sources := append([]string{c.opts.Input}, c.opts.Add...)
	var tui *ui.Program
	pcfg := pipeline.Config{
		TargetRate: c.cfg.Resample.TargetRate,
		Quality:    c.cfg.Resample.Quality,
		FlushTail:  c.cfg.Resample.FlushTail,
		Logger:     c.log,
		Metrics:    c.metrics,
	}
	switch c.cfg.Progress.Mode {
	case config.ProgressLog:
		pcfg.OnProgress = c.logProgress
	case config.ProgressTUI:
		tui = ui.Start(ui.NewModel(c.opts.Output, c.cfg.Output.Format, sources), c.opts.Stdin, c.opts.Stdout)
		pcfg.OnProgress = tui.Progress
		pcfg.OnSourceDone = tui.SourceDone
	}

	c.log.Info("Starting conversion",
		slog.String("output", c.opts.Output),
		slog.String("format", c.cfg.Output.Format),
		slog.Int("sources", len(sources)),
		slog.String("quality", c.cfg.Resample.Quality))

	orch := pipeline.NewOrchestrator(pipeline.New(sink, pcfg))
	summary, runErr := orch.Run(c.opts.Input, c.opts.Add)

	if tui != nil {
		if err := tui.Finish(summary, runErr); err != nil {
			c.log.Warn("Progress display failed", slog.Any("error", err))
		}
	}

	if path := c.cfg.Metrics.Textfile; path != "" {
		if err := c.metrics.WriteTextfile(path); err != nil {
			c.log.Warn("Failed to write metrics", slog.String("path", path), slog.Any("error", err))
		}
	}

	if runErr != nil {
		return runErr
	}

	c.log.Info("Conversion finished", slog.Int("chapters", summary.Chapters+1))
	switch c.cfg.Output.Format {
	case config.FormatWAV:
		fmt.Fprintf(c.opts.Stdout, "WAV file written to %s\n", c.opts.Output)
	default:
		fmt.Fprintf(c.opts.Stdout, "Toniefile written to %s\n", c.opts.Output)
	}
	return nil
}

func (c *Converter) newWriter(f io.WriteSeeker) (pipeline.Writer, error) {
	switch c.cfg.Output.Format {
	case config.FormatWAV:
		if len(c.opts.Comments) > 0 {
			c.log.Warn("Comments are not stored in WAV output", slog.Int("comments", len(c.opts.Comments)))
		}
		return container.NewWAVWriter(f, c.cfg.Resample.TargetRate, c.cfg.Output.Channels)
	default:
		id := c.opts.AudioID
		if !c.opts.HasAudioID {
			id = c.opts.IDs.Uint32()
		}
		c.log.Debug("Audio id", slog.Uint64("audio_id", uint64(id)))
		return container.NewTonieWriter(f, id, c.opts.Comments, encode.OpusOptions{
			Bitrate:    c.cfg.Opus.Bitrate,
			Complexity: c.cfg.Opus.Complexity,
		})
	}
}

// logProgress logs every tenth percent and sources of unknown length once.
func (c *Converter) logProgress(p pipeline.Progress) {
	if !p.Known {
		c.log.Info("Progress unknown", slog.String("source", p.Source))
		return
	}
	if p.Percent%10 == 0 {
		c.log.Info("Progress", slog.String("source", p.Source), slog.Int("percent", p.Percent))
	}
}

// DumpHeader prints the header of a Toniefile
func DumpHeader(path string, w io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	h, err := container.ParseHeader(f)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	_, err = fmt.Fprint(w, h.String())
	return err
}
