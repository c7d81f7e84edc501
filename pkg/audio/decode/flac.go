// ABOUTME: FLAC audio demuxer and decoder
// ABOUTME: Splits FLAC streams into frames and decodes them to int16 samples
package decode

import (
	"errors"
	"fmt"
	"io"

	"github.com/mewkiz/flac"

	"github.com/tonietools/tonieconv/pkg/audio"
)

type flacDemuxer struct {
	stream    *flac.Stream
	track     Track
	timestamp uint64
}

func openFLAC(r io.ReadSeeker) (Demuxer, error) {
	stream, err := flac.New(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode FLAC: %w", err)
	}

	info := stream.Info
	return &flacDemuxer{
		stream: stream,
		track: Track{
			ID: 0,
			Format: audio.Format{
				Codec:       CodecFLAC,
				SampleRate:  int(info.SampleRate),
				Channels:    int(info.NChannels),
				BitDepth:    int(info.BitsPerSample),
				TotalFrames: info.NSamples,
			},
		},
	}, nil
}

func (d *flacDemuxer) Tracks() []Track {
	return []Track{d.track}
}

// NextPacket reads the next frame header only; the samples are parsed by
// the decoder.
func (d *flacDemuxer) NextPacket() (Packet, error) {
	f, err := d.stream.Next()
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return Packet{}, err
		}
		return Packet{}, fmt.Errorf("flac: read frame header: %w", err)
	}

	blockSize := uint64(f.BlockSize)
	p := Packet{
		TrackID:   d.track.ID,
		Timestamp: d.timestamp,
		Duration:  blockSize,
		flacFrame: f,
	}
	d.timestamp += blockSize
	return p, nil
}

func (d *flacDemuxer) Close() error {
	return d.stream.Close()
}

// FLACDecoder decodes FLAC audio
type FLACDecoder struct {
	format audio.Format
}

// NewFLAC creates a new FLAC decoder
func NewFLAC(format audio.Format) (Decoder, error) {
	if format.Codec != CodecFLAC {
		return nil, fmt.Errorf("invalid codec for FLAC decoder: %s", format.Codec)
	}

	return &FLACDecoder{
		format: format,
	}, nil
}

// Decode parses the frame's subframes and interleaves them
func (d *FLACDecoder) Decode(p Packet) (audio.Buffer, error) {
	f := p.flacFrame
	if f == nil {
		return audio.Buffer{}, fmt.Errorf("%w: packet carries no FLAC frame", ErrMalformed)
	}

	if err := f.Parse(); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return audio.Buffer{}, fmt.Errorf("%w: %v", ErrIO, err)
		}
		return audio.Buffer{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	channels := len(f.Subframes)
	if channels != d.format.Channels {
		return audio.Buffer{}, fmt.Errorf("%w: frame has %d channels, stream has %d",
			ErrMalformed, channels, d.format.Channels)
	}

	bitDepth := d.format.BitDepth
	if f.BitsPerSample != 0 {
		bitDepth = int(f.BitsPerSample)
	}

	blockSize := int(f.BlockSize)
	samples := make([]int16, blockSize*channels)
	for i := 0; i < blockSize; i++ {
		for ch := 0; ch < channels; ch++ {
			samples[i*channels+ch] = audio.ScaleToInt16(f.Subframes[ch].Samples[i], bitDepth)
		}
	}

	return audio.Buffer{Samples: samples, Channels: channels}, nil
}

// Close releases decoder resources
func (d *FLACDecoder) Close() error {
	return nil
}
