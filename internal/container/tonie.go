// ABOUTME: Toniefile writer: Ogg Opus audio behind a 4096-byte header
// ABOUTME: Encodes 48kHz stereo frames, tracks chapter pages and hashes the stream
package container

import (
	"crypto/sha1"
	"errors"
	"fmt"
	"hash"
	"io"

	"github.com/tonietools/tonieconv/internal/ogg"
	"github.com/tonietools/tonieconv/internal/version"
	"github.com/tonietools/tonieconv/pkg/audio"
	"github.com/tonietools/tonieconv/pkg/audio/encode"
)

const (
	TonieSampleRate = audio.TargetSampleRate
	TonieChannels   = 2

	// opusPreSkip is the libopus encoder delay at 48kHz.
	opusPreSkip = 312
)

var ErrFinalized = errors.New("container: writer already finalized")

// frameEncoder encodes one fixed-size frame of interleaved samples.
type frameEncoder interface {
	Encode(samples []int16) ([]byte, error)
	FrameSize() int
	Close() error
}

// TonieWriter writes a Toniefile.
type TonieWriter struct {
	w       io.WriteSeeker
	hash    hash.Hash
	pages   *ogg.PageWriter
	enc     frameEncoder
	pending []int16
	granule uint64
	header  Header

	finalized bool
}

// NewTonieWriter writes the placeholder header and the Opus stream headers
// to w. audioID becomes both the header timestamp and the Ogg serial.
func NewTonieWriter(w io.WriteSeeker, audioID uint32, comments []string, opts encode.OpusOptions) (*TonieWriter, error) {
	enc, err := encode.NewOpus(audio.Format{
		Codec:      encode.CodecOpus,
		SampleRate: TonieSampleRate,
		Channels:   TonieChannels,
		BitDepth:   16,
	}, opts)
	if err != nil {
		return nil, err
	}
	return newTonieWriter(w, audioID, comments, enc)
}

func newTonieWriter(w io.WriteSeeker, audioID uint32, comments []string, enc frameEncoder) (*TonieWriter, error) {
	if _, err := w.Write(make([]byte, HeaderSize)); err != nil {
		return nil, fmt.Errorf("write header placeholder: %w", err)
	}

	h := sha1.New()
	tw := &TonieWriter{
		w:     w,
		hash:  h,
		pages: ogg.NewPageWriter(io.MultiWriter(w, h), audioID),
		enc:   enc,
		header: Header{
			Timestamp:    audioID,
			ChapterPages: []uint32{0},
		},
	}

	if err := tw.pages.WritePacket(ogg.OpusHead(TonieChannels, opusPreSkip, TonieSampleRate), 0, ogg.FlagBOS); err != nil {
		return nil, err
	}
	if err := tw.pages.WritePacket(ogg.OpusTags(version.String(), comments), 0, 0); err != nil {
		return nil, err
	}
	return tw, nil
}

// Encode appends a block of 48kHz samples. Blocks of any channel count are
// remixed to stereo.
func (tw *TonieWriter) Encode(buf audio.Buffer) error {
	if tw.finalized {
		return ErrFinalized
	}

	buf = Remix(buf, TonieChannels)
	tw.pending = append(tw.pending, buf.Samples...)

	frameLen := tw.enc.FrameSize() * TonieChannels
	n := 0
	for ; len(tw.pending)-n >= frameLen; n += frameLen {
		if err := tw.writeFrame(tw.pending[n : n+frameLen]); err != nil {
			return err
		}
	}
	tw.pending = append(tw.pending[:0], tw.pending[n:]...)
	return nil
}

func (tw *TonieWriter) writeFrame(frame []int16) error {
	packet, err := tw.enc.Encode(frame)
	if err != nil {
		return err
	}
	tw.granule += uint64(tw.enc.FrameSize())
	return tw.pages.WritePacket(packet, tw.granule, 0)
}

// flushPending pads a partial frame with silence and encodes it.
func (tw *TonieWriter) flushPending() error {
	if len(tw.pending) == 0 {
		return nil
	}
	frame := make([]int16, tw.enc.FrameSize()*TonieChannels)
	copy(frame, tw.pending)
	tw.pending = tw.pending[:0]
	return tw.writeFrame(frame)
}

// NewChapter starts a new chapter at the next Ogg page.
func (tw *TonieWriter) NewChapter() error {
	if tw.finalized {
		return ErrFinalized
	}
	if err := tw.flushPending(); err != nil {
		return err
	}
	tw.header.ChapterPages = append(tw.header.ChapterPages, tw.pages.NextSequence())
	return nil
}

// Finalize ends the Ogg stream and rewrites the header with the data hash
// and length. The writer is unusable afterwards.
func (tw *TonieWriter) Finalize() error {
	if tw.finalized {
		return ErrFinalized
	}
	tw.finalized = true

	if err := tw.flushPending(); err != nil {
		return err
	}
	if err := tw.pages.WritePacket(nil, tw.granule, ogg.FlagEOS); err != nil {
		return err
	}
	if err := tw.enc.Close(); err != nil {
		return err
	}

	tw.header.DataHash = tw.hash.Sum(nil)
	tw.header.DataLength = uint64(tw.pages.Written())
	block, err := tw.header.MarshalBinary()
	if err != nil {
		return err
	}

	if _, err := tw.w.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("seek to header: %w", err)
	}
	if _, err := tw.w.Write(block); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if _, err := tw.w.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("seek to end: %w", err)
	}
	return nil
}

// Header returns a copy of the current header.
func (tw *TonieWriter) Header() Header {
	h := tw.header
	h.ChapterPages = append([]uint32(nil), tw.header.ChapterPages...)
	h.DataHash = append([]byte(nil), tw.header.DataHash...)
	return h
}
