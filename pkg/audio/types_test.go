// ABOUTME: Tests for audio types
// ABOUTME: Tests sample scaling and descriptor validation
package audio

import (
	"errors"
	"testing"
)

func TestScaleToInt16(t *testing.T) {
	tests := []struct {
		name     string
		input    int32
		bitDepth int
		expected int16
	}{
		{"16bit zero", 0, 16, 0},
		{"16bit passthrough", -1234, 16, -1234},
		{"24bit positive", 0x123456, 24, 0x1234},
		{"24bit negative", -256, 24, -1},
		{"24bit max", 8388607, 24, 32767},
		{"32bit min", -2147483648, 32, -32768},
		{"8bit left justified", 100, 8, 100 << 8},
		{"12bit negative", -2048, 12, -32768},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ScaleToInt16(tt.input, tt.bitDepth)
			if result != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, result)
			}
		})
	}
}

func TestClampInt16(t *testing.T) {
	tests := []struct {
		name     string
		input    int64
		expected int16
	}{
		{"in range", 1000, 1000},
		{"above max", 40000, 32767},
		{"below min", -40000, -32768},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClampInt16(tt.input); got != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, got)
			}
		})
	}
}

func TestSampleFromUint8(t *testing.T) {
	if got := SampleFromUint8(128); got != 0 {
		t.Errorf("expected silence for 128, got %d", got)
	}
	if got := SampleFromUint8(0); got != -32768 {
		t.Errorf("expected -32768 for 0, got %d", got)
	}
	if got := SampleFromUint8(255); got != 127<<8 {
		t.Errorf("expected %d for 255, got %d", 127<<8, got)
	}
}

func TestSampleFrom24Bit(t *testing.T) {
	tests := []struct {
		name     string
		input    [3]byte
		expected int32
	}{
		{"zero", [3]byte{0, 0, 0}, 0},
		{"positive", [3]byte{0x56, 0x34, 0x12}, 0x123456},
		{"negative", [3]byte{0x00, 0xFF, 0xFF}, -256},
		{"max negative", [3]byte{0x00, 0x00, 0x80}, -8388608},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SampleFrom24Bit(tt.input)
			if result != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, result)
			}
		})
	}
}

func TestFormatValidate(t *testing.T) {
	if err := (Format{SampleRate: 44100, Channels: 2}).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := (Format{SampleRate: 0, Channels: 2}).Validate(); !errors.Is(err, ErrInvalidFormat) {
		t.Errorf("expected ErrInvalidFormat for zero rate, got %v", err)
	}
	if err := (Format{SampleRate: 44100, Channels: 0}).Validate(); !errors.Is(err, ErrInvalidFormat) {
		t.Errorf("expected ErrInvalidFormat for zero channels, got %v", err)
	}
}

func TestBufferFrames(t *testing.T) {
	b := Buffer{Samples: make([]int16, 7), Channels: 2}
	if b.Frames() != 3 {
		t.Errorf("expected 3 whole frames, got %d", b.Frames())
	}
	if (Buffer{}).Frames() != 0 {
		t.Error("expected zero frames for empty buffer")
	}
	if !(Buffer{Samples: []int16{1}, Channels: 2}).Empty() {
		t.Error("expected buffer with a partial frame to be empty")
	}
}
