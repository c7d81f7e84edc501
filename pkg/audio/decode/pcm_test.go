// ABOUTME: Tests for PCM decoder
// ABOUTME: Tests 8, 16, 24 and 32-bit PCM decoding and malformed packets
package decode

import (
	"errors"
	"testing"

	"github.com/tonietools/tonieconv/pkg/audio"
)

func TestNewPCM(t *testing.T) {
	format := audio.Format{
		Codec:      CodecPCMS16LE,
		SampleRate: 48000,
		Channels:   2,
		BitDepth:   16,
	}

	decoder, err := NewPCM(format)
	if err != nil {
		t.Fatalf("failed to create decoder: %v", err)
	}

	if decoder == nil {
		t.Fatal("expected decoder to be created")
	}
}

func TestNewPCM_InvalidCodec(t *testing.T) {
	format := audio.Format{
		Codec:      "opus",
		SampleRate: 48000,
		Channels:   2,
		BitDepth:   16,
	}

	decoder, err := NewPCM(format)
	if err == nil {
		t.Fatal("expected error for invalid codec, got nil")
	}
	if decoder != nil {
		t.Fatal("expected decoder to be nil for invalid codec")
	}

	expectedError := "invalid codec for PCM decoder: opus"
	if err.Error() != expectedError {
		t.Errorf("expected error %q, got %q", expectedError, err.Error())
	}
}

func TestNewPCM_BitDepthMismatch(t *testing.T) {
	format := audio.Format{
		Codec:      CodecPCMS24LE,
		SampleRate: 48000,
		Channels:   2,
		BitDepth:   16,
	}

	_, err := NewPCM(format)
	if err == nil {
		t.Fatal("expected error for mismatched bit depth")
	}

	expectedError := "unsupported bit depth: 16 (codec pcm_s24le expects 24)"
	if err.Error() != expectedError {
		t.Errorf("expected error %q, got %q", expectedError, err.Error())
	}
}

func TestPCMDecode(t *testing.T) {
	tests := []struct {
		name     string
		codec    string
		bitDepth int
		channels int
		input    []byte
		expected []int16
	}{
		{
			name:     "8-bit unsigned",
			codec:    CodecPCMU8,
			bitDepth: 8,
			channels: 1,
			input:    []byte{0x80, 0xFF, 0x00},
			expected: []int16{0, 127 << 8, -128 << 8},
		},
		{
			name:     "16-bit little-endian",
			codec:    CodecPCMS16LE,
			bitDepth: 16,
			channels: 2,
			input:    []byte{0x00, 0x01, 0x02, 0x03},
			expected: []int16{256, 770},
		},
		{
			name:     "16-bit negative",
			codec:    CodecPCMS16LE,
			bitDepth: 16,
			channels: 1,
			input:    []byte{0xFF, 0xFF, 0x00, 0x80},
			expected: []int16{-1, -32768},
		},
		{
			name:     "24-bit keeps top 16 bits",
			codec:    CodecPCMS24LE,
			bitDepth: 24,
			channels: 1,
			input:    []byte{0x00, 0x01, 0x02, 0xFF, 0xFF, 0xFF},
			expected: []int16{0x0201, -1},
		},
		{
			name:     "32-bit keeps top 16 bits",
			codec:    CodecPCMS32LE,
			bitDepth: 32,
			channels: 1,
			input:    []byte{0x00, 0x00, 0x00, 0x40},
			expected: []int16{0x4000},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoder, err := NewPCM(audio.Format{
				Codec:      tt.codec,
				SampleRate: 44100,
				Channels:   tt.channels,
				BitDepth:   tt.bitDepth,
			})
			if err != nil {
				t.Fatalf("failed to create decoder: %v", err)
			}

			buf, err := decoder.Decode(Packet{Data: tt.input})
			if err != nil {
				t.Fatalf("decode failed: %v", err)
			}

			if buf.Channels != tt.channels {
				t.Errorf("expected %d channels, got %d", tt.channels, buf.Channels)
			}
			if len(buf.Samples) != len(tt.expected) {
				t.Fatalf("expected %d samples, got %d", len(tt.expected), len(buf.Samples))
			}
			for i, want := range tt.expected {
				if buf.Samples[i] != want {
					t.Errorf("sample %d: expected %d, got %d", i, want, buf.Samples[i])
				}
			}
		})
	}
}

func TestPCMDecode_PartialFrame(t *testing.T) {
	decoder, err := NewPCM(audio.Format{
		Codec:      CodecPCMS16LE,
		SampleRate: 48000,
		Channels:   2,
		BitDepth:   16,
	})
	if err != nil {
		t.Fatalf("failed to create decoder: %v", err)
	}

	// 6 bytes is one and a half stereo frames
	_, err = decoder.Decode(Packet{Data: make([]byte, 6)})
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
	if Classify(err) != OutcomeDecodeError {
		t.Errorf("expected decode outcome, got %s", Classify(err))
	}
}

func TestPCMDecode_Empty(t *testing.T) {
	decoder, err := NewPCM(audio.Format{
		Codec:      CodecPCMS16LE,
		SampleRate: 48000,
		Channels:   1,
		BitDepth:   16,
	})
	if err != nil {
		t.Fatalf("failed to create decoder: %v", err)
	}

	buf, err := decoder.Decode(Packet{})
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if !buf.Empty() {
		t.Errorf("expected empty buffer, got %d samples", len(buf.Samples))
	}
}
