// ABOUTME: Decode error sentinels and per-packet outcome classification
// ABOUTME: Separates recoverable packet failures from fatal ones
package decode

import "errors"

var (
	// ErrIO marks a packet that failed because of a transient read problem.
	ErrIO = errors.New("decode: i/o error")
	// ErrMalformed marks a packet whose data is invalid for its codec.
	ErrMalformed = errors.New("decode: malformed packet")
	// ErrUnsupportedFormat is returned by Probe for unknown containers.
	ErrUnsupportedFormat = errors.New("decode: unsupported format")
	// ErrUnsupportedCodec is returned by NewDecoder for unknown codecs.
	ErrUnsupportedCodec = errors.New("decode: unsupported codec")
)

// Outcome is the result class of one Decode call.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeIOError
	OutcomeDecodeError
	OutcomeFatal
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeIOError:
		return "io"
	case OutcomeDecodeError:
		return "decode"
	default:
		return "fatal"
	}
}

// Recoverable reports whether the stream may continue with the next packet.
func (o Outcome) Recoverable() bool {
	return o == OutcomeIOError || o == OutcomeDecodeError
}

// Classify maps a Decode error to its Outcome.
func Classify(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, ErrIO):
		return OutcomeIOError
	case errors.Is(err, ErrMalformed):
		return OutcomeDecodeError
	default:
		return OutcomeFatal
	}
}
