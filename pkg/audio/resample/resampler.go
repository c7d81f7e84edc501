// ABOUTME: Linear interpolating rate converter with cross-call carry-over
// ABOUTME: Converts interleaved int16 PCM from a source rate to a fixed target rate
package resample

import (
	"fmt"

	"github.com/tonietools/tonieconv/pkg/audio"
)

// Converter turns decoded buffers at the source rate into blocks at the target rate.
type Converter interface {
	// Convert consumes in and returns converted frames, or false when the
	// buffered input cannot complete a single output frame yet.
	Convert(in audio.Buffer) (audio.Buffer, bool)

	// Flush emits whatever the buffered input can still produce and resets
	// the converter.
	Flush() (audio.Buffer, bool)

	// Pending returns the number of source frames held between calls.
	Pending() int

	// Err reports a failure that made Convert or Flush return nothing.
	Err() error
}

// Linear performs linear interpolation between consecutive source frames.
//
// The phase is tracked as an integer numerator in units of 1/outputRate
// source frames, so the position of output frame k is exactly
// k*inputRate/outputRate no matter how the input is split.
type Linear struct {
	inputRate  int64
	outputRate int64
	channels   int

	carry []int16 // interleaved source frames not fully consumed
	pos   int64   // phase numerator relative to carry[0]
}

var _ Converter = (*Linear)(nil)

// New creates a converter for one source. capacityHint sizes the carry-over
// buffer in samples; it is not a limit.
func New(format audio.Format, outputRate, capacityHint int) (*Linear, error) {
	if err := format.Validate(); err != nil {
		return nil, err
	}
	if outputRate <= 0 {
		return nil, fmt.Errorf("%w: target rate %d", audio.ErrInvalidFormat, outputRate)
	}
	if capacityHint < format.Channels*2 {
		capacityHint = format.Channels * 2
	}

	return &Linear{
		inputRate:  int64(format.SampleRate),
		outputRate: int64(outputRate),
		channels:   format.Channels,
		carry:      make([]int16, 0, capacityHint),
	}, nil
}

// Channels returns the channel count fixed at construction.
func (r *Linear) Channels() int {
	return r.channels
}

// Ratio returns inputRate/outputRate.
func (r *Linear) Ratio() float64 {
	return float64(r.inputRate) / float64(r.outputRate)
}

// Convert appends in to the carried frames and emits every output frame whose
// two neighbouring source frames are available. Trailing samples that do not
// form a whole frame are ignored.
func (r *Linear) Convert(in audio.Buffer) (audio.Buffer, bool) {
	n := len(in.Samples) / r.channels * r.channels

	if r.inputRate == r.outputRate {
		if n == 0 {
			return audio.Buffer{}, false
		}
		out := make([]int16, n)
		copy(out, in.Samples[:n])
		return audio.Buffer{Samples: out, Channels: r.channels}, true
	}

	r.carry = append(r.carry, in.Samples[:n]...)
	return r.drain(false)
}

// Flush emits the frames that Convert keeps back at the end of a stream by
// treating the last source frame as its own successor.
func (r *Linear) Flush() (audio.Buffer, bool) {
	if r.inputRate == r.outputRate {
		return audio.Buffer{}, false
	}
	out, ok := r.drain(true)
	r.Reset()
	return out, ok
}

// Pending returns the number of source frames held between calls.
func (r *Linear) Pending() int {
	return len(r.carry) / r.channels
}

// Err is always nil; linear interpolation cannot fail.
func (r *Linear) Err() error {
	return nil
}

// Reset drops the carried frames and the phase.
func (r *Linear) Reset() {
	r.carry = r.carry[:0]
	r.pos = 0
}

func (r *Linear) drain(final bool) (audio.Buffer, bool) {
	frames := int64(len(r.carry) / r.channels)
	ch := r.channels

	limit := frames - 1 // index of the last frame that still has a successor
	if final {
		limit = frames
	}

	var out []int16
	if estimate := (frames*r.outputRate)/r.inputRate + 1; estimate > 0 {
		out = make([]int16, 0, int(estimate)*ch)
	}

	for {
		idx := r.pos / r.outputRate
		if idx >= limit {
			break
		}
		frac := r.pos % r.outputRate
		base := int(idx) * ch
		next := base + ch
		if idx+1 >= frames {
			next = base
		}
		for c := 0; c < ch; c++ {
			s0 := int64(r.carry[base+c])
			s1 := int64(r.carry[next+c])
			out = append(out, audio.ClampInt16(s0+(s1-s0)*frac/r.outputRate))
		}
		r.pos += r.inputRate
	}

	// Drop the source frames the phase has moved past. The frame under the
	// phase stays for interpolation with the next call's input.
	consumed := r.pos / r.outputRate
	if consumed > frames {
		consumed = frames
	}
	if consumed > 0 {
		r.carry = append(r.carry[:0], r.carry[int(consumed)*ch:]...)
		r.pos -= consumed * r.outputRate
	}

	if len(out) == 0 {
		return audio.Buffer{}, false
	}
	return audio.Buffer{Samples: out, Channels: ch}, true
}
