// ABOUTME: Opus audio encoder
// ABOUTME: Encodes fixed-size int16 frames to Opus packets
package encode

import (
	"fmt"

	"gopkg.in/hraban/opus.v2"

	"github.com/tonietools/tonieconv/pkg/audio"
)

const (
	// maxOpusPacket is the largest packet libopus will produce.
	maxOpusPacket = 4000

	DefaultOpusBitrate    = 96000
	DefaultOpusComplexity = 10
)

// OpusOptions tunes the libopus encoder
type OpusOptions struct {
	Bitrate    int // bits per second
	Complexity int // 0-10
}

// DefaultOpusOptions returns the settings used for Toniefiles
func DefaultOpusOptions() OpusOptions {
	return OpusOptions{
		Bitrate:    DefaultOpusBitrate,
		Complexity: DefaultOpusComplexity,
	}
}

// OpusEncoder encodes Opus audio
type OpusEncoder struct {
	encoder    *opus.Encoder
	sampleRate int
	channels   int
	frameSize  int
}

// NewOpus creates a new Opus encoder
func NewOpus(format audio.Format, opts OpusOptions) (*OpusEncoder, error) {
	if format.Codec != CodecOpus {
		return nil, fmt.Errorf("invalid codec for Opus encoder: %s", format.Codec)
	}

	if opts.Complexity < 0 || opts.Complexity > 10 {
		return nil, fmt.Errorf("unsupported opus complexity: %d (supported: 0-10)", opts.Complexity)
	}

	encoder, err := opus.NewEncoder(format.SampleRate, format.Channels, opus.AppAudio)
	if err != nil {
		return nil, fmt.Errorf("failed to create opus encoder: %w", err)
	}

	if opts.Bitrate > 0 {
		if err := encoder.SetBitrate(opts.Bitrate); err != nil {
			return nil, fmt.Errorf("failed to set opus bitrate %d: %w", opts.Bitrate, err)
		}
	}
	if err := encoder.SetComplexity(opts.Complexity); err != nil {
		return nil, fmt.Errorf("failed to set opus complexity %d: %w", opts.Complexity, err)
	}

	// Opus frame size depends on sample rate
	frameSize := format.SampleRate / 50 // 20ms frame

	return &OpusEncoder{
		encoder:    encoder,
		sampleRate: format.SampleRate,
		channels:   format.Channels,
		frameSize:  frameSize,
	}, nil
}

// FrameSize returns the number of frames per channel each Encode call takes
func (e *OpusEncoder) FrameSize() int {
	return e.frameSize
}

// Channels returns the channel count the encoder was created with
func (e *OpusEncoder) Channels() int {
	return e.channels
}

// Encode converts exactly one frame of interleaved samples to an Opus packet
func (e *OpusEncoder) Encode(samples []int16) ([]byte, error) {
	if want := e.frameSize * e.channels; len(samples) != want {
		return nil, fmt.Errorf("opus frame has %d samples, want %d", len(samples), want)
	}

	data := make([]byte, maxOpusPacket)
	n, err := e.encoder.Encode(samples, data)
	if err != nil {
		return nil, fmt.Errorf("opus encode error: %w", err)
	}

	return data[:n], nil
}

// Close releases resources
func (e *OpusEncoder) Close() error {
	return nil
}
