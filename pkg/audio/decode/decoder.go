// ABOUTME: Decoder, Demuxer and Packet definitions
// ABOUTME: Common interfaces for all container and codec implementations
package decode

import (
	"fmt"

	"github.com/mewkiz/flac/frame"

	"github.com/tonietools/tonieconv/pkg/audio"
)

// Codec identities reported in audio.Format.Codec.
const (
	CodecNull     = ""
	CodecPCMU8    = "pcm_u8"
	CodecPCMS16LE = "pcm_s16le"
	CodecPCMS24LE = "pcm_s24le"
	CodecPCMS32LE = "pcm_s32le"
	CodecFLAC     = "flac"
	CodecMP3      = "mp3"
)

// Track is one elementary stream inside a probed file.
type Track struct {
	ID     int
	Format audio.Format
}

// Decodable reports whether the track has a known codec.
func (t Track) Decodable() bool {
	return t.Format.Codec != CodecNull
}

// Packet is the smallest unit a Demuxer yields. Timestamp and Duration are
// in source frames.
type Packet struct {
	TrackID   int
	Timestamp uint64
	Duration  uint64
	Data      []byte

	flacFrame *frame.Frame // header parsed, samples pending
	err       error        // demuxer-side failure reported at decode time
}

// Demuxer exposes the tracks of a probed file and its packets in file order.
type Demuxer interface {
	// Tracks returns every track found while probing.
	Tracks() []Track

	// NextPacket returns the next packet of any track, or io.EOF.
	NextPacket() (Packet, error)

	// Close releases the underlying file.
	Close() error
}

// Decoder decodes packets of one track to PCM int16 frames
type Decoder interface {
	// Decode converts one packet to interleaved samples
	Decode(p Packet) (audio.Buffer, error)

	// Close releases decoder resources
	Close() error
}

// NewDecoder creates the decoder for a track's codec.
func NewDecoder(t Track) (Decoder, error) {
	switch t.Format.Codec {
	case CodecPCMU8, CodecPCMS16LE, CodecPCMS24LE, CodecPCMS32LE:
		return NewPCM(t.Format)
	case CodecFLAC:
		return NewFLAC(t.Format)
	case CodecMP3:
		return NewMP3(t.Format)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedCodec, t.Format.Codec)
	}
}
