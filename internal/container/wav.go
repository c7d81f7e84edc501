// ABOUTME: WAV writer producing 16-bit PCM RIFF/WAVE files
// ABOUTME: Chapters become cue points, sizes are patched on finalize
package container

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/tonietools/tonieconv/pkg/audio"
	"github.com/tonietools/tonieconv/pkg/audio/encode"
)

const wavHeaderSize = 44

// WAVWriter writes interleaved int16 blocks as a RIFF/WAVE file.
type WAVWriter struct {
	w          io.WriteSeeker
	enc        encode.Encoder
	sampleRate int
	channels   int
	dataBytes  int64
	frames     uint32
	cues       []uint32

	finalized bool
}

// NewWAVWriter writes a placeholder header to w.
func NewWAVWriter(w io.WriteSeeker, sampleRate, channels int) (*WAVWriter, error) {
	format := audio.Format{
		Codec:      encode.CodecPCM,
		SampleRate: sampleRate,
		Channels:   channels,
		BitDepth:   16,
	}
	if err := format.Validate(); err != nil {
		return nil, err
	}
	enc, err := encode.NewPCM(format)
	if err != nil {
		return nil, err
	}

	ww := &WAVWriter{
		w:          w,
		enc:        enc,
		sampleRate: sampleRate,
		channels:   channels,
	}
	if _, err := w.Write(ww.header()); err != nil {
		return nil, fmt.Errorf("write wav header: %w", err)
	}
	return ww, nil
}

func (ww *WAVWriter) header() []byte {
	blockAlign := ww.channels * 2
	h := make([]byte, wavHeaderSize)
	copy(h[0:], "RIFF")
	binary.LittleEndian.PutUint32(h[4:], uint32(36+ww.dataBytes+int64(ww.cueChunkSize())))
	copy(h[8:], "WAVE")
	copy(h[12:], "fmt ")
	binary.LittleEndian.PutUint32(h[16:], 16)
	binary.LittleEndian.PutUint16(h[20:], 1) // PCM
	binary.LittleEndian.PutUint16(h[22:], uint16(ww.channels))
	binary.LittleEndian.PutUint32(h[24:], uint32(ww.sampleRate))
	binary.LittleEndian.PutUint32(h[28:], uint32(ww.sampleRate*blockAlign))
	binary.LittleEndian.PutUint16(h[32:], uint16(blockAlign))
	binary.LittleEndian.PutUint16(h[34:], 16)
	copy(h[36:], "data")
	binary.LittleEndian.PutUint32(h[40:], uint32(ww.dataBytes))
	return h
}

func (ww *WAVWriter) cueChunkSize() int {
	if len(ww.cues) == 0 {
		return 0
	}
	return 8 + 4 + 24*len(ww.cues)
}

// Encode appends a block, remixing it to the writer's channel count.
func (ww *WAVWriter) Encode(buf audio.Buffer) error {
	if ww.finalized {
		return ErrFinalized
	}

	buf = Remix(buf, ww.channels)
	data, err := ww.enc.Encode(buf.Samples)
	if err != nil {
		return err
	}
	if _, err := ww.w.Write(data); err != nil {
		return fmt.Errorf("write wav data: %w", err)
	}
	ww.dataBytes += int64(len(data))
	ww.frames += uint32(buf.Frames())
	return nil
}

// NewChapter records a cue point at the current frame.
func (ww *WAVWriter) NewChapter() error {
	if ww.finalized {
		return ErrFinalized
	}
	ww.cues = append(ww.cues, ww.frames)
	return nil
}

// Finalize writes the cue chunk and patches the RIFF and data sizes.
func (ww *WAVWriter) Finalize() error {
	if ww.finalized {
		return ErrFinalized
	}
	ww.finalized = true

	if len(ww.cues) > 0 {
		var b bytes.Buffer
		b.WriteString("cue ")
		binary.Write(&b, binary.LittleEndian, uint32(4+24*len(ww.cues)))
		binary.Write(&b, binary.LittleEndian, uint32(len(ww.cues)))
		for i, frame := range ww.cues {
			binary.Write(&b, binary.LittleEndian, uint32(i+1)) // id
			binary.Write(&b, binary.LittleEndian, frame)       // position
			b.WriteString("data")
			binary.Write(&b, binary.LittleEndian, uint32(0)) // chunk start
			binary.Write(&b, binary.LittleEndian, uint32(0)) // block start
			binary.Write(&b, binary.LittleEndian, frame)     // sample offset
		}
		if _, err := ww.w.Write(b.Bytes()); err != nil {
			return fmt.Errorf("write cue chunk: %w", err)
		}
	}

	if err := ww.enc.Close(); err != nil {
		return err
	}
	if _, err := ww.w.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("seek to wav header: %w", err)
	}
	if _, err := ww.w.Write(ww.header()); err != nil {
		return fmt.Errorf("rewrite wav header: %w", err)
	}
	if _, err := ww.w.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("seek to end: %w", err)
	}
	return nil
}

// Frames returns the number of frames written so far.
func (ww *WAVWriter) Frames() uint32 {
	return ww.frames
}
