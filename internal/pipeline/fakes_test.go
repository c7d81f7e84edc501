// ABOUTME: Test doubles for the pipeline
// ABOUTME: Scripted demuxer and decoder plus a writer recording every call
package pipeline

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/tonietools/tonieconv/pkg/audio"
	"github.com/tonietools/tonieconv/pkg/audio/decode"
	"github.com/tonietools/tonieconv/pkg/audio/resample"
)

type fakeDemuxer struct {
	tracks  []decode.Track
	packets []decode.Packet
	end     error // returned after the last packet, io.EOF when nil
	next    int
	closed  bool
}

func (d *fakeDemuxer) Tracks() []decode.Track { return d.tracks }

func (d *fakeDemuxer) NextPacket() (decode.Packet, error) {
	if d.next >= len(d.packets) {
		if d.end != nil {
			return decode.Packet{}, d.end
		}
		return decode.Packet{}, io.EOF
	}
	p := d.packets[d.next]
	d.next++
	return p, nil
}

func (d *fakeDemuxer) Close() error {
	d.closed = true
	return nil
}

// fakeDecoder decodes s16le packet data and fails where fail says so.
type fakeDecoder struct {
	channels int
	calls    int
	fail     func(call int) error
}

func (d *fakeDecoder) Decode(p decode.Packet) (audio.Buffer, error) {
	call := d.calls
	d.calls++
	if d.fail != nil {
		if err := d.fail(call); err != nil {
			return audio.Buffer{}, err
		}
	}
	samples := make([]int16, len(p.Data)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(p.Data[i*2:]))
	}
	return audio.Buffer{Samples: samples, Channels: d.channels}, nil
}

func (d *fakeDecoder) Close() error { return nil }

// recordingWriter logs every call in order.
type recordingWriter struct {
	events    []string
	blocks    []audio.Buffer
	finalized int
	chapters  int
}

func (w *recordingWriter) Encode(buf audio.Buffer) error {
	w.events = append(w.events, fmt.Sprintf("encode:%d", buf.Frames()))
	w.blocks = append(w.blocks, buf)
	return nil
}

func (w *recordingWriter) NewChapter() error {
	w.events = append(w.events, "chapter")
	w.chapters++
	return nil
}

func (w *recordingWriter) Finalize() error {
	w.events = append(w.events, "finalize")
	w.finalized++
	return nil
}

func (w *recordingWriter) samples() []int16 {
	var all []int16
	for _, b := range w.blocks {
		all = append(all, b.Samples...)
	}
	return all
}

// pcmPackets splits frames of constant value v into packets of size frames.
func pcmPackets(trackID, channels, frames, size int, v int16) []decode.Packet {
	var packets []decode.Packet
	for ts := 0; ts < frames; ts += size {
		n := min(size, frames-ts)
		data := make([]byte, n*channels*2)
		for i := 0; i < n*channels; i++ {
			binary.LittleEndian.PutUint16(data[i*2:], uint16(v))
		}
		packets = append(packets, decode.Packet{
			TrackID:   trackID,
			Timestamp: uint64(ts),
			Duration:  uint64(n),
			Data:      data,
		})
	}
	return packets
}

func pcmTrack(id, rate, channels int, total uint64) decode.Track {
	return decode.Track{
		ID: id,
		Format: audio.Format{
			Codec:       decode.CodecPCMS16LE,
			SampleRate:  rate,
			Channels:    channels,
			BitDepth:    16,
			TotalFrames: total,
		},
	}
}

// newFakePipeline wires demuxers by path and a fakeDecoder per source.
func newFakePipeline(w Writer, cfg Config, sources map[string]*fakeDemuxer, decoders map[string]*fakeDecoder) (*Pipeline, *[]string) {
	p := New(w, cfg)
	var opened []string
	var current string
	p.Open = func(path string) (decode.Demuxer, error) {
		opened = append(opened, path)
		d, ok := sources[path]
		if !ok {
			return nil, fmt.Errorf("no such source %q", path)
		}
		current = path
		return d, nil
	}
	p.NewDecoder = func(t decode.Track) (decode.Decoder, error) {
		if d, ok := decoders[current]; ok {
			return d, nil
		}
		return &fakeDecoder{channels: t.Format.Channels}, nil
	}
	return p, &opened
}

// failingConverter passes blocks through a real converter until failAt calls
// have been made, then reports err.
type failingConverter struct {
	resample.Converter
	calls  int
	failAt int
	err    error
}

func (c *failingConverter) Convert(in audio.Buffer) (audio.Buffer, bool) {
	c.calls++
	if c.calls >= c.failAt {
		return audio.Buffer{}, false
	}
	return c.Converter.Convert(in)
}

func (c *failingConverter) Err() error {
	if c.calls >= c.failAt {
		return c.err
	}
	return nil
}
