// ABOUTME: MP3 audio demuxer and decoder
// ABOUTME: Decodes MP3 audio to int16 samples in fixed-size packets
package decode

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/hajimehoshi/go-mp3"

	"github.com/tonietools/tonieconv/pkg/audio"
)

const (
	// go-mp3 always produces 16-bit stereo.
	mp3Channels   = 2
	mp3FrameBytes = 4
	// mp3PacketFrames matches one MPEG-1 Layer III frame.
	mp3PacketFrames = 1152
)

// mp3Source is the part of *mp3.Decoder the demuxer uses.
type mp3Source interface {
	io.Reader
	SampleRate() int
	Length() int64
}

var newMP3Source = func(r io.Reader) (mp3Source, error) {
	return mp3.NewDecoder(r)
}

// maxMP3ReadErrors bounds consecutive failed reads before the stream is
// considered unreadable.
const maxMP3ReadErrors = 32

type mp3Demuxer struct {
	decoder    mp3Source
	closer     io.Closer
	track      Track
	timestamp  uint64
	readErrors int
}

// openMP3 lets go-mp3 scan r for the stream length. If the scan trips over a
// damaged frame the stream is reopened without seeking, so bad frames surface
// as malformed packets and the length becomes unknown.
func openMP3(r io.ReadSeeker) (Demuxer, error) {
	start, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("failed to decode MP3: %w", err)
	}

	decoder, err := newMP3Source(r)
	if err != nil {
		if _, serr := r.Seek(start, io.SeekStart); serr != nil {
			return nil, fmt.Errorf("failed to decode MP3: %w", err)
		}
		var rerr error
		decoder, rerr = newMP3Source(struct{ io.Reader }{r})
		if rerr != nil {
			return nil, fmt.Errorf("failed to decode MP3: %w", errors.Join(err, rerr))
		}
	}

	var total uint64
	if length := decoder.Length(); length > 0 {
		total = uint64(length / mp3FrameBytes)
	}

	d := &mp3Demuxer{
		decoder: decoder,
		track: Track{
			ID: 0,
			Format: audio.Format{
				Codec:       CodecMP3,
				SampleRate:  decoder.SampleRate(),
				Channels:    mp3Channels,
				BitDepth:    16,
				TotalFrames: total,
			},
		},
	}
	if c, ok := r.(io.Closer); ok {
		d.closer = c
	}
	return d, nil
}

func (d *mp3Demuxer) Tracks() []Track {
	return []Track{d.track}
}

// NextPacket reads up to one MPEG frame worth of PCM from go-mp3, which
// decodes while reading. A failed read yields a packet that decodes to
// ErrMalformed; go-mp3 resyncs on the next read.
func (d *mp3Demuxer) NextPacket() (Packet, error) {
	buf := make([]byte, mp3PacketFrames*mp3FrameBytes)
	n, err := io.ReadFull(d.decoder, buf)
	n -= n % mp3FrameBytes

	var readErr error
	switch {
	case err == nil:
	case errors.Is(err, io.EOF):
		return Packet{}, io.EOF
	case errors.Is(err, io.ErrUnexpectedEOF):
		// short final packet
	default:
		if n == 0 {
			d.readErrors++
			if d.readErrors > maxMP3ReadErrors {
				return Packet{}, fmt.Errorf("mp3 decode error after %d failed reads: %w", maxMP3ReadErrors, err)
			}
		}
		readErr = fmt.Errorf("%w: mp3 frame: %v", ErrMalformed, err)
	}
	if readErr == nil || n > 0 {
		d.readErrors = 0
	}

	frames := uint64(n / mp3FrameBytes)
	p := Packet{
		TrackID:   d.track.ID,
		Timestamp: d.timestamp,
		Duration:  frames,
		Data:      buf[:n],
		err:       readErr,
	}
	d.timestamp += frames
	return p, nil
}

func (d *mp3Demuxer) Close() error {
	if d.closer != nil {
		return d.closer.Close()
	}
	return nil
}

// MP3Decoder converts the PCM carried by MP3 packets
type MP3Decoder struct{}

// NewMP3 creates a new MP3 decoder
func NewMP3(format audio.Format) (Decoder, error) {
	if format.Codec != CodecMP3 {
		return nil, fmt.Errorf("invalid codec for MP3 decoder: %s", format.Codec)
	}
	return &MP3Decoder{}, nil
}

// Decode converts little-endian int16 stereo bytes to samples
func (d *MP3Decoder) Decode(p Packet) (audio.Buffer, error) {
	if p.err != nil {
		return audio.Buffer{}, p.err
	}
	if len(p.Data)%mp3FrameBytes != 0 {
		return audio.Buffer{}, fmt.Errorf("%w: %d bytes is not a whole number of stereo frames",
			ErrMalformed, len(p.Data))
	}

	numSamples := len(p.Data) / 2
	samples := make([]int16, numSamples)
	for i := 0; i < numSamples; i++ {
		samples[i] = int16(binary.LittleEndian.Uint16(p.Data[i*2:]))
	}

	return audio.Buffer{Samples: samples, Channels: mp3Channels}, nil
}

// Close releases decoder resources
func (d *MP3Decoder) Close() error {
	return nil
}
