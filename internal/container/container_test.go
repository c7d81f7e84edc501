// ABOUTME: Shared helpers for container writer tests
// ABOUTME: In-memory io.WriteSeeker and a deterministic frame encoder
package container

import (
	"encoding/binary"
	"errors"
	"io"
)

// seekBuffer is an in-memory io.WriteSeeker.
type seekBuffer struct {
	data []byte
	pos  int
}

func (b *seekBuffer) Write(p []byte) (int, error) {
	if end := b.pos + len(p); end > len(b.data) {
		b.data = append(b.data, make([]byte, end-len(b.data))...)
	}
	copy(b.data[b.pos:], p)
	b.pos += len(p)
	return len(p), nil
}

func (b *seekBuffer) Seek(offset int64, whence int) (int64, error) {
	var base int
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		base = b.pos
	case io.SeekEnd:
		base = len(b.data)
	}
	pos := base + int(offset)
	if pos < 0 {
		return 0, errors.New("negative position")
	}
	b.pos = pos
	return int64(pos), nil
}

// fakeEncoder emits the frame index and first sample of each frame.
type fakeEncoder struct {
	frameSize int
	frames    [][]int16
	closed    int
}

func (e *fakeEncoder) Encode(samples []int16) ([]byte, error) {
	e.frames = append(e.frames, append([]int16(nil), samples...))
	p := make([]byte, 6)
	binary.LittleEndian.PutUint32(p, uint32(len(e.frames)-1))
	binary.LittleEndian.PutUint16(p[4:], uint16(samples[0]))
	return p, nil
}

func (e *fakeEncoder) FrameSize() int { return e.frameSize }

func (e *fakeEncoder) Close() error {
	e.closed++
	return nil
}
