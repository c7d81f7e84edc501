// ABOUTME: Audio encoder package for encoding PCM to output formats
// ABOUTME: Provides Encoder interface and implementations for PCM, Opus
// Package encode provides audio encoders for the output containers.
//
// Supports: PCM (16-bit and 24-bit), Opus
//
// All encoders accept interleaved int16 samples, the format produced by
// the resampler, and return one encoded unit per call.
//
// Example:
//
//	encoder, err := encode.NewOpus(format, encode.DefaultOpusOptions())
//	packet, err := encoder.Encode(frame)
package encode
