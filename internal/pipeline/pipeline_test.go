// ABOUTME: Tests for the packet pipeline
// ABOUTME: Covers error recovery, fatal aborts, track selection and progress
package pipeline

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonietools/tonieconv/internal/config"
	"github.com/tonietools/tonieconv/internal/container"
	"github.com/tonietools/tonieconv/internal/metrics"
	"github.com/tonietools/tonieconv/pkg/audio"
	"github.com/tonietools/tonieconv/pkg/audio/decode"
	"github.com/tonietools/tonieconv/pkg/audio/resample"
)

// writeSilenceWAV writes seconds of mono silence at rate to a temp file.
func writeSilenceWAV(t *testing.T, rate int, seconds float64) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "silence.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	ww, err := container.NewWAVWriter(f, rate, 1)
	require.NoError(t, err)
	frames := int(float64(rate) * seconds)
	require.NoError(t, ww.Encode(audio.Buffer{Samples: make([]int16, frames), Channels: 1}))
	require.NoError(t, ww.Finalize())
	return path
}

func TestPipeline_EndToEndSilence(t *testing.T) {
	path := writeSilenceWAV(t, 44100, 1)
	w := &recordingWriter{}
	m := metrics.New()

	o := NewOrchestrator(New(w, Config{TargetRate: 48000, Metrics: m}))
	summary, err := o.Run(path, nil)
	require.NoError(t, err)

	require.Len(t, summary.Sources, 1)
	stats := summary.Sources[0]
	assert.Equal(t, 0, stats.Skipped())
	assert.Equal(t, uint64(44100), stats.FramesIn)
	assert.Equal(t, 0, summary.Chapters)

	samples := w.samples()
	assert.InDelta(t, 48000, len(samples), 1)
	assert.Equal(t, uint64(len(samples)), stats.FramesOut)
	for i, s := range samples {
		if s != 0 {
			t.Fatalf("sample %d is %d, want silence", i, s)
		}
	}
	for _, b := range w.blocks {
		assert.Equal(t, 1, b.Channels)
		assert.NotEmpty(t, b.Samples)
	}
	assert.Equal(t, 1, w.finalized)
	assert.Equal(t, "finalize", w.events[len(w.events)-1])

	assert.Equal(t, 0.0, testutil.ToFloat64(m.Packets.WithLabelValues(metrics.OutcomeDecode)))
	assert.Equal(t, 44100.0, testutil.ToFloat64(m.FramesDecoded))
	assert.Equal(t, float64(len(samples)), testutil.ToFloat64(m.FramesConverted))
}

func TestPipeline_RecoverableErrors(t *testing.T) {
	demux := &fakeDemuxer{
		tracks:  []decode.Track{pcmTrack(0, 48000, 2, 0)},
		packets: pcmPackets(0, 2, 1000, 100, 5),
	}
	dec := &fakeDecoder{
		channels: 2,
		fail: func(call int) error {
			switch call % 3 {
			case 2:
				return fmt.Errorf("frame %d: %w", call, decode.ErrMalformed)
			case 1:
				if call == 4 {
					return fmt.Errorf("short read: %w", decode.ErrIO)
				}
			}
			return nil
		},
	}
	w := &recordingWriter{}
	m := metrics.New()
	p, _ := newFakePipeline(w, Config{Metrics: m}, map[string]*fakeDemuxer{"a": demux}, map[string]*fakeDecoder{"a": dec})

	stats, err := p.Run("a")
	require.NoError(t, err)

	// calls 2, 5, 8 malformed; call 4 i/o
	assert.Equal(t, 10, stats.Packets)
	assert.Equal(t, 3, stats.DecodeErrors)
	assert.Equal(t, 1, stats.IOErrors)
	assert.Equal(t, 6, stats.Decoded)
	assert.Equal(t, uint64(600), stats.FramesOut)
	assert.Len(t, w.samples(), 600*2)
	assert.True(t, demux.closed)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.Packets.WithLabelValues(metrics.OutcomeDecode)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Packets.WithLabelValues(metrics.OutcomeIO)))
	assert.Equal(t, 6.0, testutil.ToFloat64(m.Packets.WithLabelValues(metrics.OutcomeOK)))
}

func TestPipeline_FatalDecodeError(t *testing.T) {
	boom := errors.New("decoder state corrupted")
	demux := &fakeDemuxer{
		tracks:  []decode.Track{pcmTrack(0, 48000, 1, 0)},
		packets: pcmPackets(0, 1, 500, 100, 1),
	}
	dec := &fakeDecoder{
		channels: 1,
		fail: func(call int) error {
			if call == 2 {
				return boom
			}
			return nil
		},
	}
	w := &recordingWriter{}
	p, _ := newFakePipeline(w, Config{}, map[string]*fakeDemuxer{"a": demux}, map[string]*fakeDecoder{"a": dec})

	stats, err := p.Run("a")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnrecoverableDecode)
	assert.ErrorIs(t, err, boom)

	var srcErr *SourceError
	require.ErrorAs(t, err, &srcErr)
	assert.Equal(t, "a", srcErr.Path)

	assert.Equal(t, 3, dec.calls)
	assert.Equal(t, 3, stats.Packets)
	assert.Equal(t, uint64(200), stats.FramesOut)
	assert.True(t, demux.closed)
}

func TestPipeline_NoTrackFound(t *testing.T) {
	demux := &fakeDemuxer{
		tracks: []decode.Track{{ID: 0, Format: audio.Format{Codec: decode.CodecNull, SampleRate: 44100, Channels: 2}}},
	}
	w := &recordingWriter{}
	p, _ := newFakePipeline(w, Config{}, map[string]*fakeDemuxer{"a": demux}, nil)

	_, err := p.Run("a")
	assert.ErrorIs(t, err, ErrNoTrackFound)
	assert.Empty(t, w.events)
	assert.True(t, demux.closed)
}

func TestPipeline_SelectsFirstDecodableTrack(t *testing.T) {
	packets := append(pcmPackets(0, 1, 100, 50, 9), pcmPackets(1, 1, 100, 50, 3)...)
	demux := &fakeDemuxer{
		tracks: []decode.Track{
			{ID: 0, Format: audio.Format{Codec: decode.CodecNull, SampleRate: 48000, Channels: 1}},
			pcmTrack(1, 48000, 1, 0),
		},
		packets: packets,
	}
	w := &recordingWriter{}
	p, _ := newFakePipeline(w, Config{}, map[string]*fakeDemuxer{"a": demux}, nil)

	stats, err := p.Run("a")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Foreign)
	assert.Equal(t, 2, stats.Decoded)
	for _, s := range w.samples() {
		require.Equal(t, int16(3), s)
	}
}

func TestPipeline_DemuxEnd(t *testing.T) {
	tests := []struct {
		name      string
		end       error
		wantErr   bool
		truncated bool
	}{
		{"clean end", io.EOF, false, false},
		{"truncated file", io.ErrUnexpectedEOF, false, true},
		{"read failure", errors.New("permission denied"), true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			demux := &fakeDemuxer{
				tracks:  []decode.Track{pcmTrack(0, 48000, 1, 0)},
				packets: pcmPackets(0, 1, 200, 100, 1),
				end:     tt.end,
			}
			w := &recordingWriter{}
			p, _ := newFakePipeline(w, Config{}, map[string]*fakeDemuxer{"a": demux}, nil)

			stats, err := p.Run("a")
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.truncated, stats.Truncated)
			assert.Equal(t, uint64(200), stats.FramesOut)
		})
	}
}

func TestPipeline_ChannelMismatch(t *testing.T) {
	demux := &fakeDemuxer{
		tracks:  []decode.Track{pcmTrack(0, 48000, 2, 0)},
		packets: pcmPackets(0, 2, 100, 100, 1),
	}
	dec := &fakeDecoder{channels: 1}
	p, _ := newFakePipeline(&recordingWriter{}, Config{}, map[string]*fakeDemuxer{"a": demux}, map[string]*fakeDecoder{"a": dec})

	_, err := p.Run("a")
	assert.ErrorIs(t, err, ErrChannelMismatch)
}

func TestPipeline_FlushTail(t *testing.T) {
	for _, flush := range []bool{false, true} {
		t.Run(fmt.Sprintf("flush=%v", flush), func(t *testing.T) {
			demux := &fakeDemuxer{
				tracks:  []decode.Track{pcmTrack(0, 24000, 1, 0)},
				packets: pcmPackets(0, 1, 2400, 1000, 4),
			}
			w := &recordingWriter{}
			p, _ := newFakePipeline(w, Config{TargetRate: 48000, FlushTail: flush}, map[string]*fakeDemuxer{"a": demux}, nil)

			stats, err := p.Run("a")
			require.NoError(t, err)
			if flush {
				assert.Equal(t, uint64(4800), stats.FramesOut)
			} else {
				assert.Equal(t, uint64(4798), stats.FramesOut)
			}
		})
	}
}

func TestPipeline_ConverterFailureIsFatal(t *testing.T) {
	demux := &fakeDemuxer{
		tracks:  []decode.Track{pcmTrack(0, 44100, 2, 0)},
		packets: pcmPackets(0, 2, 4410, 441, 3),
	}
	w := &recordingWriter{}
	m := metrics.New()
	p, _ := newFakePipeline(w, Config{Metrics: m}, map[string]*fakeDemuxer{"a": demux}, nil)

	boom := errors.New("stage 1 processing error")
	p.NewConverter = func(f audio.Format, target int) (resample.Converter, error) {
		lin, err := resample.New(f, target, 0)
		if err != nil {
			return nil, err
		}
		return &failingConverter{Converter: lin, failAt: 4, err: boom}, nil
	}

	stats, err := p.Run("a")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConversion)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, stats.Blocks)
	assert.Len(t, w.blocks, 3)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Sources.WithLabelValues("failed")))
}

func TestPipeline_QualitySelectsConverter(t *testing.T) {
	format := audio.Format{SampleRate: 44100, Channels: 2}

	p := New(&recordingWriter{}, Config{Quality: config.QualityHQ})
	conv, err := p.NewConverter(format, 48000)
	require.NoError(t, err)
	assert.IsType(t, &resample.HQ{}, conv)

	p = New(&recordingWriter{}, Config{Quality: config.QualityLinear})
	conv, err = p.NewConverter(format, 48000)
	require.NoError(t, err)
	assert.IsType(t, &resample.Linear{}, conv)
}

func TestPipeline_Progress(t *testing.T) {
	t.Run("known length", func(t *testing.T) {
		demux := &fakeDemuxer{
			tracks:  []decode.Track{pcmTrack(0, 48000, 1, 1000)},
			packets: pcmPackets(0, 1, 1000, 100, 0),
		}
		var events []Progress
		cfg := Config{OnProgress: func(p Progress) { events = append(events, p) }}
		p, _ := newFakePipeline(&recordingWriter{}, cfg, map[string]*fakeDemuxer{"a": demux}, nil)

		_, err := p.Run("a")
		require.NoError(t, err)

		require.Len(t, events, 10)
		for i, e := range events {
			assert.True(t, e.Known)
			assert.Equal(t, "a", e.Source)
			assert.Equal(t, (i+1)*10, e.Percent)
		}
	})

	t.Run("unknown length", func(t *testing.T) {
		demux := &fakeDemuxer{
			tracks:  []decode.Track{pcmTrack(0, 48000, 1, 0)},
			packets: pcmPackets(0, 1, 1000, 100, 0),
		}
		var events []Progress
		cfg := Config{OnProgress: func(p Progress) { events = append(events, p) }}
		p, _ := newFakePipeline(&recordingWriter{}, cfg, map[string]*fakeDemuxer{"a": demux}, nil)

		_, err := p.Run("a")
		require.NoError(t, err)

		require.Len(t, events, 1)
		assert.False(t, events[0].Known)
	})

	t.Run("length shorter than stream", func(t *testing.T) {
		demux := &fakeDemuxer{
			tracks:  []decode.Track{pcmTrack(0, 48000, 1, 500)},
			packets: pcmPackets(0, 1, 1000, 250, 0),
		}
		var events []Progress
		cfg := Config{OnProgress: func(p Progress) { events = append(events, p) }}
		p, _ := newFakePipeline(&recordingWriter{}, cfg, map[string]*fakeDemuxer{"a": demux}, nil)

		_, err := p.Run("a")
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, 100, events[len(events)-1].Percent)
	})
}

func TestPipeline_OpenError(t *testing.T) {
	p := New(&recordingWriter{}, Config{})

	_, err := p.Run(filepath.Join(t.TempDir(), "missing.mp3"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	var srcErr *SourceError
	assert.ErrorAs(t, err, &srcErr)
}

func TestPipeline_UnsupportedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("not audio at all"), 0o644))

	_, err := New(&recordingWriter{}, Config{}).Run(path)
	assert.ErrorIs(t, err, decode.ErrUnsupportedFormat)
}
