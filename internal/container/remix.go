// ABOUTME: Channel layout conversion for container writers
// ABOUTME: Duplicates mono and folds wider layouts into the target count
package container

import "github.com/tonietools/tonieconv/pkg/audio"

// Remix returns buf with its frames mapped to the given channel count. A
// buffer already in that layout is returned as is.
func Remix(buf audio.Buffer, channels int) audio.Buffer {
	if buf.Channels == channels || buf.Channels <= 0 || channels <= 0 {
		return buf
	}

	frames := buf.Frames()
	out := make([]int16, frames*channels)

	switch {
	case buf.Channels == 1:
		for i := 0; i < frames; i++ {
			for ch := 0; ch < channels; ch++ {
				out[i*channels+ch] = buf.Samples[i]
			}
		}
	default:
		// Source channel c contributes to output channel c % channels.
		counts := make([]int64, channels)
		for c := 0; c < buf.Channels; c++ {
			counts[c%channels]++
		}
		sums := make([]int64, channels)
		for i := 0; i < frames; i++ {
			clear(sums)
			frame := buf.Samples[i*buf.Channels : (i+1)*buf.Channels]
			for c, s := range frame {
				sums[c%channels] += int64(s)
			}
			for ch := 0; ch < channels; ch++ {
				if counts[ch] == 0 {
					continue
				}
				out[i*channels+ch] = audio.ClampInt16(sums[ch] / counts[ch])
			}
		}
	}

	return audio.Buffer{Samples: out, Channels: channels}
}
