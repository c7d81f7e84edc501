// ABOUTME: Pipeline error sentinels and the per-source error wrapper
// ABOUTME: Fatal conditions a conversion run can end with
package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrNoTrackFound is returned when none of a source's tracks has a
	// supported codec.
	ErrNoTrackFound = errors.New("no track with a supported codec")

	// ErrUnrecoverableDecode wraps decode errors that abort the run.
	ErrUnrecoverableDecode = errors.New("unrecoverable decode error")

	// ErrChannelMismatch is returned when a decoded buffer disagrees with
	// the track's channel count.
	ErrChannelMismatch = errors.New("decoded channel count does not match track")

	// ErrConversion wraps rate converter failures. Audio already handed
	// to the converter is lost, so the run stops.
	ErrConversion = errors.New("rate conversion failed")
)

// SourceError attributes a failure to the input that caused it.
type SourceError struct {
	Path string
	Err  error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}
