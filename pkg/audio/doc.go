// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines Format, Buffer types and sample scaling functions
// Package audio provides the fundamental audio types shared by the conversion pipeline.
//
// This package defines core types used throughout tonieconv:
//   - Format: Describes one source stream (codec, sample rate, channels, bit depth, length)
//   - Buffer: A block of interleaved signed 16-bit PCM frames
//
// It also provides utilities for scaling samples of any bit depth into the
// signed 16-bit range used by the rate converter and the container writers.
//
// Example:
//
//	format := audio.Format{
//	    Codec:       "flac",
//	    SampleRate:  44100,
//	    Channels:    2,
//	    BitDepth:    24,
//	    TotalFrames: 441000,
//	}
//
//	// Scale a 24-bit sample into the 16-bit range
//	sample16 := audio.ScaleToInt16(sample24, 24)
package audio
