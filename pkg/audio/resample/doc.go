// ABOUTME: Audio resampling package using linear interpolation
// ABOUTME: Converts streamed audio from any source rate to one fixed target rate
// Package resample provides stateful sample rate conversion.
//
// A Linear converter is built once per source and fed every decoded buffer
// of that source in order. It keeps the source frames it could not use yet
// and an exact fractional phase across calls, so the output does not depend
// on how the input was chunked. Channel count is preserved.
//
// Example:
//
//	r, err := resample.New(format, audio.TargetSampleRate, 4096)
//	if out, ok := r.Convert(decoded); ok {
//	    writer.Encode(out)
//	}
package resample
