// ABOUTME: PCM audio decoder
// ABOUTME: Decodes 8, 16, 24 and 32-bit little-endian PCM to int16 samples
package decode

import (
	"encoding/binary"
	"fmt"

	"github.com/tonietools/tonieconv/pkg/audio"
)

// PCMDecoder decodes PCM audio
type PCMDecoder struct {
	bitDepth int
	channels int
}

// NewPCM creates a new PCM decoder
func NewPCM(format audio.Format) (Decoder, error) {
	want, ok := pcmBitDepth[format.Codec]
	if !ok {
		return nil, fmt.Errorf("invalid codec for PCM decoder: %s", format.Codec)
	}
	if format.BitDepth != want {
		return nil, fmt.Errorf("unsupported bit depth: %d (codec %s expects %d)", format.BitDepth, format.Codec, want)
	}
	if format.Channels <= 0 {
		return nil, fmt.Errorf("unsupported channel count: %d", format.Channels)
	}

	return &PCMDecoder{
		bitDepth: format.BitDepth,
		channels: format.Channels,
	}, nil
}

var pcmBitDepth = map[string]int{
	CodecPCMU8:    8,
	CodecPCMS16LE: 16,
	CodecPCMS24LE: 24,
	CodecPCMS32LE: 32,
}

// pcmCodec returns the codec identity for an integer PCM bit depth.
func pcmCodec(bitDepth int) string {
	for codec, depth := range pcmBitDepth {
		if depth == bitDepth {
			return codec
		}
	}
	return CodecNull
}

// Decode converts PCM bytes to int16 samples
func (d *PCMDecoder) Decode(p Packet) (audio.Buffer, error) {
	width := d.bitDepth / 8
	data := p.Data
	if len(data)%(width*d.channels) != 0 {
		return audio.Buffer{}, fmt.Errorf("%w: %d bytes is not a whole number of %d-byte frames",
			ErrMalformed, len(data), width*d.channels)
	}

	numSamples := len(data) / width
	samples := make([]int16, numSamples)

	switch d.bitDepth {
	case 8:
		for i := 0; i < numSamples; i++ {
			samples[i] = audio.SampleFromUint8(data[i])
		}
	case 24:
		// 24-bit PCM: 3 bytes per sample
		for i := 0; i < numSamples; i++ {
			b := [3]byte{data[i*3], data[i*3+1], data[i*3+2]}
			samples[i] = audio.ScaleToInt16(audio.SampleFrom24Bit(b), 24)
		}
	case 32:
		for i := 0; i < numSamples; i++ {
			s := int32(binary.LittleEndian.Uint32(data[i*4:]))
			samples[i] = audio.ScaleToInt16(s, 32)
		}
	default:
		// 16-bit PCM: 2 bytes per sample
		for i := 0; i < numSamples; i++ {
			samples[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
		}
	}

	return audio.Buffer{Samples: samples, Channels: d.channels}, nil
}

// Close releases resources
func (d *PCMDecoder) Close() error {
	return nil
}
