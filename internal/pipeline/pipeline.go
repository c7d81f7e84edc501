// ABOUTME: Packet pipeline driving one source from demuxer to container writer
// ABOUTME: Decodes, rate-converts and forwards blocks with per-packet error recovery
package pipeline

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/tonietools/tonieconv/internal/config"
	"github.com/tonietools/tonieconv/internal/logging"
	"github.com/tonietools/tonieconv/internal/metrics"
	"github.com/tonietools/tonieconv/pkg/audio"
	"github.com/tonietools/tonieconv/pkg/audio/decode"
	"github.com/tonietools/tonieconv/pkg/audio/resample"
)

// Writer receives converted blocks. It is owned by the caller for the whole
// run and never used concurrently.
type Writer interface {
	Encode(buf audio.Buffer) error
	NewChapter() error
	Finalize() error
}

// Config controls a pipeline.
type Config struct {
	TargetRate int
	Quality    string // config.QualityLinear or config.QualityHQ
	// FlushTail emits the frames held back by the converter at the end of
	// each source instead of dropping them.
	FlushTail  bool
	Logger     *slog.Logger
	Metrics    *metrics.Metrics
	OnProgress func(Progress)

	// OnSourceDone is called after each source, successful or not.
	OnSourceDone func(index int, stats Stats, err error)
}

// Progress reports how far a source has been read.
type Progress struct {
	Source  string
	Index   int // position of the source in the run
	Percent int
	Known   bool // false when the source length is unknown
}

// Stats counts what happened to one source.
type Stats struct {
	Source       string
	Format       audio.Format
	Packets      int // all demuxed packets
	Decoded      int
	Foreign      int // packets of other tracks
	IOErrors     int
	DecodeErrors int
	FramesIn     uint64
	FramesOut    uint64
	Blocks       int
	Truncated    bool
	Elapsed      time.Duration
}

// Skipped returns the number of packets that produced no audio.
func (s Stats) Skipped() int {
	return s.Foreign + s.IOErrors + s.DecodeErrors
}

// Pipeline converts sources into a single Writer.
type Pipeline struct {
	sink Writer
	cfg  Config
	log  *slog.Logger

	// Open probes a path. Replaced in tests.
	Open func(path string) (decode.Demuxer, error)
	// NewDecoder builds the decoder for the selected track.
	NewDecoder func(decode.Track) (decode.Decoder, error)
	// NewConverter builds a fresh converter per source.
	NewConverter func(format audio.Format, targetRate int) (resample.Converter, error)
}

// New creates a pipeline writing to sink.
func New(sink Writer, cfg Config) *Pipeline {
	if cfg.TargetRate == 0 {
		cfg.TargetRate = audio.TargetSampleRate
	}
	log := cfg.Logger
	if log == nil {
		log = logging.Discard()
	}

	p := &Pipeline{
		sink:       sink,
		cfg:        cfg,
		log:        log,
		Open:       openFile,
		NewDecoder: decode.NewDecoder,
	}
	p.NewConverter = p.newConverter
	return p
}

func openFile(path string) (decode.Demuxer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	d, err := decode.Probe(f, decode.HintFromPath(path))
	if err != nil {
		f.Close()
		return nil, err
	}
	return d, nil
}

func (p *Pipeline) newConverter(format audio.Format, targetRate int) (resample.Converter, error) {
	if p.cfg.Quality == config.QualityHQ {
		return resample.NewHQ(format, targetRate)
	}
	// room for the worst case carry of ceil(source/target) frames plus one
	hint := (format.SampleRate/targetRate + 2) * format.Channels
	return resample.New(format, targetRate, hint)
}

// Run converts one source. Errors are wrapped in a *SourceError.
func (p *Pipeline) Run(path string) (Stats, error) {
	return p.run(0, path)
}

func (p *Pipeline) run(index int, path string) (Stats, error) {
	start := time.Now()
	stats, err := p.convert(index, path)
	stats.Source = path
	stats.Elapsed = time.Since(start)
	p.cfg.Metrics.SourceDone(err, stats.Elapsed)
	if err != nil {
		err = &SourceError{Path: path, Err: err}
	}
	if p.cfg.OnSourceDone != nil {
		p.cfg.OnSourceDone(index, stats, err)
	}
	return stats, err
}

func (p *Pipeline) convert(index int, path string) (Stats, error) {
	var stats Stats
	log := p.log.With(slog.String("source", path))

	demux, err := p.Open(path)
	if err != nil {
		return stats, fmt.Errorf("open: %w", err)
	}
	defer demux.Close()

	track, ok := selectTrack(demux.Tracks())
	if !ok {
		return stats, ErrNoTrackFound
	}
	stats.Format = track.Format
	log.Info("Converting source",
		slog.Int("track", track.ID),
		slog.String("format", track.Format.String()),
		slog.Uint64("frames", track.Format.TotalFrames))

	dec, err := p.NewDecoder(track)
	if err != nil {
		return stats, err
	}
	defer dec.Close()

	conv, err := p.NewConverter(track.Format, p.cfg.TargetRate)
	if err != nil {
		return stats, fmt.Errorf("create converter: %w", err)
	}

	progress := newProgressTracker(path, index, track.Format.TotalFrames, p.cfg.OnProgress)

	for {
		pkt, err := demux.NextPacket()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			if errors.Is(err, io.ErrUnexpectedEOF) {
				log.Warn("Source ended early, keeping decoded audio")
				stats.Truncated = true
				break
			}
			return stats, fmt.Errorf("read packet: %w", err)
		}
		stats.Packets++

		if pkt.TrackID != track.ID {
			stats.Foreign++
			p.cfg.Metrics.Packet(metrics.OutcomeForeign)
			continue
		}

		buf, err := dec.Decode(pkt)
		switch outcome := decode.Classify(err); outcome {
		case decode.OutcomeOK:
			p.cfg.Metrics.Packet(metrics.OutcomeOK)
		case decode.OutcomeIOError:
			stats.IOErrors++
			p.cfg.Metrics.Packet(metrics.OutcomeIO)
			log.Warn("Skipping packet", slog.Uint64("ts", pkt.Timestamp), slog.String("outcome", outcome.String()), slog.Any("error", err))
			continue
		case decode.OutcomeDecodeError:
			stats.DecodeErrors++
			p.cfg.Metrics.Packet(metrics.OutcomeDecode)
			log.Warn("Skipping packet", slog.Uint64("ts", pkt.Timestamp), slog.String("outcome", outcome.String()), slog.Any("error", err))
			continue
		default:
			p.cfg.Metrics.Packet(metrics.OutcomeFatal)
			return stats, fmt.Errorf("%w: packet at %d: %w", ErrUnrecoverableDecode, pkt.Timestamp, err)
		}

		if buf.Channels != track.Format.Channels {
			return stats, fmt.Errorf("%w: got %d, want %d", ErrChannelMismatch, buf.Channels, track.Format.Channels)
		}
		stats.Decoded++
		stats.FramesIn += uint64(buf.Frames())

		if out, ok := conv.Convert(buf); ok {
			if err := p.write(&stats, out, buf.Frames()); err != nil {
				return stats, err
			}
		} else {
			if err := conv.Err(); err != nil {
				return stats, fmt.Errorf("%w: packet at %d: %w", ErrConversion, pkt.Timestamp, err)
			}
			p.cfg.Metrics.Frames(buf.Frames(), 0)
		}

		progress.update(pkt.Timestamp + pkt.Duration)
	}

	if p.cfg.FlushTail {
		if out, ok := conv.Flush(); ok {
			if err := p.write(&stats, out, 0); err != nil {
				return stats, err
			}
		} else if err := conv.Err(); err != nil {
			return stats, fmt.Errorf("%w: flush: %w", ErrConversion, err)
		}
	}
	progress.done()

	log.Info("Source done",
		slog.Int("packets", stats.Packets),
		slog.Int("skipped", stats.Skipped()),
		slog.Uint64("frames_in", stats.FramesIn),
		slog.Uint64("frames_out", stats.FramesOut))
	return stats, nil
}

func (p *Pipeline) write(stats *Stats, out audio.Buffer, framesIn int) error {
	if err := p.sink.Encode(out); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	stats.FramesOut += uint64(out.Frames())
	stats.Blocks++
	p.cfg.Metrics.Frames(framesIn, out.Frames())
	p.cfg.Metrics.Block()
	return nil
}

// selectTrack returns the first track with a known codec.
func selectTrack(tracks []decode.Track) (decode.Track, bool) {
	for _, t := range tracks {
		if t.Decodable() {
			return t, true
		}
	}
	return decode.Track{}, false
}

type progressTracker struct {
	source string
	index  int
	total  uint64
	last   int
	report func(Progress)
}

func newProgressTracker(source string, index int, total uint64, report func(Progress)) *progressTracker {
	t := &progressTracker{source: source, index: index, total: total, last: -1, report: report}
	if report != nil && total == 0 {
		report(Progress{Source: source, Index: index, Known: false})
	}
	return t
}

// update reports the percentage of the source read once it changes. Sources
// of unknown length report nothing.
func (t *progressTracker) update(position uint64) {
	if t.report == nil || t.total == 0 {
		return
	}
	pct := int(min(position, t.total) * 100 / t.total)
	if pct == t.last {
		return
	}
	t.last = pct
	t.report(Progress{Source: t.source, Index: t.index, Percent: pct, Known: true})
}

func (t *progressTracker) done() {
	if t.total == 0 {
		return
	}
	t.update(t.total)
}
