// ABOUTME: RIFF/WAVE demuxer
// ABOUTME: Parses the fmt and data chunks and slices the data into packets
package decode

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/tonietools/tonieconv/pkg/audio"
)

const (
	wavFormatPCM        = 0x0001
	wavFormatExtensible = 0xFFFE

	// wavPacketFrames is the number of frames per demuxed packet.
	wavPacketFrames = 4096
)

type wavDemuxer struct {
	r          io.Reader
	closer     io.Closer
	track      Track
	blockAlign int
	remaining  int64
	timestamp  uint64
	truncated  bool
}

type wavFormat struct {
	tag        uint16
	channels   int
	sampleRate int
	blockAlign int
	bitDepth   int
}

func openWAV(r io.ReadSeeker) (Demuxer, error) {
	var riff [12]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil {
		return nil, fmt.Errorf("wav: read riff header: %w", err)
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return nil, fmt.Errorf("%w: missing RIFF/WAVE signature", ErrUnsupportedFormat)
	}

	var fmtChunk *wavFormat
	for {
		var hdr [8]byte
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			return nil, fmt.Errorf("wav: no data chunk: %w", err)
		}
		id := string(hdr[0:4])
		size := int64(binary.LittleEndian.Uint32(hdr[4:8]))

		switch id {
		case "fmt ":
			body := make([]byte, size)
			if _, err := io.ReadFull(r, body); err != nil {
				return nil, fmt.Errorf("wav: read fmt chunk: %w", err)
			}
			f, err := parseWAVFormat(body)
			if err != nil {
				return nil, err
			}
			fmtChunk = f
			if size%2 == 1 {
				if _, err := r.Seek(1, io.SeekCurrent); err != nil {
					return nil, fmt.Errorf("wav: skip pad byte: %w", err)
				}
			}
		case "data":
			if fmtChunk == nil {
				return nil, errors.New("wav: data chunk before fmt chunk")
			}
			return newWAVDemuxer(r, fmtChunk, size), nil
		default:
			if _, err := r.Seek(size+size%2, io.SeekCurrent); err != nil {
				return nil, fmt.Errorf("wav: skip %q chunk: %w", id, err)
			}
		}
	}
}

func parseWAVFormat(body []byte) (*wavFormat, error) {
	if len(body) < 16 {
		return nil, fmt.Errorf("wav: fmt chunk too short (%d bytes)", len(body))
	}
	f := &wavFormat{
		tag:        binary.LittleEndian.Uint16(body[0:2]),
		channels:   int(binary.LittleEndian.Uint16(body[2:4])),
		sampleRate: int(binary.LittleEndian.Uint32(body[4:8])),
		blockAlign: int(binary.LittleEndian.Uint16(body[12:14])),
		bitDepth:   int(binary.LittleEndian.Uint16(body[14:16])),
	}
	// WAVE_FORMAT_EXTENSIBLE carries the real tag in the sub-format GUID.
	if f.tag == wavFormatExtensible && len(body) >= 26 {
		f.tag = binary.LittleEndian.Uint16(body[24:26])
	}
	if f.blockAlign <= 0 {
		return nil, fmt.Errorf("wav: invalid block align %d", f.blockAlign)
	}
	return f, nil
}

func newWAVDemuxer(r io.Reader, f *wavFormat, dataSize int64) *wavDemuxer {
	codec := CodecNull
	if f.tag == wavFormatPCM && f.blockAlign == f.channels*f.bitDepth/8 {
		codec = pcmCodec(f.bitDepth)
	}

	d := &wavDemuxer{
		r:          r,
		blockAlign: f.blockAlign,
		remaining:  dataSize,
		track: Track{
			ID: 0,
			Format: audio.Format{
				Codec:       codec,
				SampleRate:  f.sampleRate,
				Channels:    f.channels,
				BitDepth:    f.bitDepth,
				TotalFrames: uint64(dataSize / int64(f.blockAlign)),
			},
		},
	}
	if c, ok := r.(io.Closer); ok {
		d.closer = c
	}
	return d
}

func (d *wavDemuxer) Tracks() []Track {
	return []Track{d.track}
}

func (d *wavDemuxer) NextPacket() (Packet, error) {
	if d.truncated {
		return Packet{}, io.ErrUnexpectedEOF
	}
	if d.remaining < int64(d.blockAlign) {
		return Packet{}, io.EOF
	}

	size := min(int64(wavPacketFrames*d.blockAlign), d.remaining)
	size -= size % int64(d.blockAlign)
	buf := make([]byte, size)

	n, err := io.ReadFull(d.r, buf)
	switch {
	case err == nil:
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		// The data chunk claims more bytes than the file holds.
		d.truncated = true
		n -= n % d.blockAlign
		if n == 0 {
			return Packet{}, io.ErrUnexpectedEOF
		}
	default:
		return Packet{}, fmt.Errorf("wav: read data: %w", err)
	}
	d.remaining -= int64(n)

	frames := uint64(n / d.blockAlign)
	p := Packet{
		TrackID:   d.track.ID,
		Timestamp: d.timestamp,
		Duration:  frames,
		Data:      buf[:n],
	}
	d.timestamp += frames
	return p, nil
}

func (d *wavDemuxer) Close() error {
	if d.closer != nil {
		return d.closer.Close()
	}
	return nil
}
