// ABOUTME: Audio decoder package for multiple codec support
// ABOUTME: Provides probing, demuxing and decoding for WAV, FLAC and MP3
// Package decode adapts the third-party codec libraries to one packet model.
//
// Probe inspects a file and returns a Demuxer exposing its tracks and a
// packet sequence. NewDecoder binds a Decoder to one track; each Decode call
// turns one packet into interleaved signed 16-bit frames.
//
// Supports: PCM WAV (8, 16, 24 and 32-bit), FLAC (github.com/mewkiz/flac),
// MP3 (github.com/hajimehoshi/go-mp3)
//
// Decode errors carry one of the sentinels ErrIO or ErrMalformed when the
// stream can continue past the failed packet; Classify maps an error to its
// Outcome.
//
// Example:
//
//	demuxer, err := decode.Probe(file, decode.HintFromPath(path))
//	track := demuxer.Tracks()[0]
//	decoder, err := decode.NewDecoder(track)
//	packet, err := demuxer.NextPacket()
//	buf, err := decoder.Decode(packet)
package decode
