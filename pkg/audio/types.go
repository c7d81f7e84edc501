// ABOUTME: Audio type definitions
// ABOUTME: Defines stream descriptors and interleaved PCM buffers
package audio

import (
	"errors"
	"fmt"
)

const (
	// TargetSampleRate is the fixed output rate required by the container format.
	TargetSampleRate = 48000

	// 16-bit range constants
	MaxInt16 = 32767
	MinInt16 = -32768
)

// ErrInvalidFormat is returned when a descriptor cannot describe a PCM stream.
var ErrInvalidFormat = errors.New("audio: invalid format")

// Format describes one source stream. It is created once after probing and
// never changes for the lifetime of that source.
type Format struct {
	Codec       string // "" is the null codec (not decodable)
	SampleRate  int
	Channels    int
	BitDepth    int
	TotalFrames uint64 // 0 when unknown
}

// Validate reports whether the format has a positive rate and channel count.
func (f Format) Validate() error {
	if f.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate %d", ErrInvalidFormat, f.SampleRate)
	}
	if f.Channels <= 0 {
		return fmt.Errorf("%w: channel count %d", ErrInvalidFormat, f.Channels)
	}
	return nil
}

// LengthKnown reports whether the total frame count is available.
func (f Format) LengthKnown() bool {
	return f.TotalFrames > 0
}

func (f Format) String() string {
	codec := f.Codec
	if codec == "" {
		codec = "null"
	}
	return fmt.Sprintf("%s %dHz %dch %d-bit", codec, f.SampleRate, f.Channels, f.BitDepth)
}

// Buffer is a block of interleaved signed 16-bit samples.
// A frame is one sample per channel.
type Buffer struct {
	Samples  []int16
	Channels int
}

// Frames returns the number of whole frames in the buffer.
func (b Buffer) Frames() int {
	if b.Channels <= 0 {
		return 0
	}
	return len(b.Samples) / b.Channels
}

// Empty reports whether the buffer holds no whole frame.
func (b Buffer) Empty() bool {
	return b.Frames() == 0
}

// ScaleToInt16 converts a sample of the given bit depth to the 16-bit range.
// Samples wider than 16 bits are truncated, narrower ones are left-justified.
func ScaleToInt16(sample int32, bitDepth int) int16 {
	switch {
	case bitDepth == 16 || bitDepth <= 0:
		return ClampInt16(int64(sample))
	case bitDepth > 16:
		return ClampInt16(int64(sample >> (bitDepth - 16)))
	default:
		return ClampInt16(int64(sample) << (16 - bitDepth))
	}
}

// ClampInt16 truncates a wide intermediate value back into the 16-bit range.
func ClampInt16(v int64) int16 {
	if v > MaxInt16 {
		return MaxInt16
	}
	if v < MinInt16 {
		return MinInt16
	}
	return int16(v)
}

// SampleFromUint8 converts an unsigned 8-bit PCM sample to the 16-bit range.
func SampleFromUint8(b byte) int16 {
	return int16(int(b)-128) << 8
}

// SampleFrom24Bit converts 24-bit packed bytes (little-endian) to int32
func SampleFrom24Bit(b [3]byte) int32 {
	val := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
	// Sign extend from 24-bit to 32-bit
	if val&0x800000 != 0 {
		val |= ^0xFFFFFF
	}
	return val
}
