// ABOUTME: Opus identification and comment headers for Ogg streams
// ABOUTME: Builds and parses OpusHead and OpusTags packets
package ogg

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	opusHeadMagic = "OpusHead"
	opusTagsMagic = "OpusTags"
)

var ErrNotOpusTags = errors.New("ogg: not an OpusTags packet")

// OpusHead builds the 19-byte identification header for channel mapping
// family 0.
func OpusHead(channels int, preSkip uint16, inputRate uint32) []byte {
	h := make([]byte, 19)
	copy(h[0:], opusHeadMagic)
	h[8] = 1 // version
	h[9] = byte(channels)
	binary.LittleEndian.PutUint16(h[10:], preSkip)
	binary.LittleEndian.PutUint32(h[12:], inputRate)
	binary.LittleEndian.PutUint16(h[16:], 0) // output gain
	h[18] = 0                                // channel mapping family
	return h
}

// OpusTags builds the comment header.
func OpusTags(vendor string, comments []string) []byte {
	var b bytes.Buffer
	b.WriteString(opusTagsMagic)
	writeString(&b, vendor)
	binary.Write(&b, binary.LittleEndian, uint32(len(comments)))
	for _, c := range comments {
		writeString(&b, c)
	}
	return b.Bytes()
}

func writeString(b *bytes.Buffer, s string) {
	binary.Write(b, binary.LittleEndian, uint32(len(s)))
	b.WriteString(s)
}

// ParseOpusTags returns the vendor string and user comments of an
// OpusTags packet.
func ParseOpusTags(p []byte) (string, []string, error) {
	if !bytes.HasPrefix(p, []byte(opusTagsMagic)) {
		return "", nil, ErrNotOpusTags
	}
	rest := p[len(opusTagsMagic):]

	vendor, rest, err := readString(rest)
	if err != nil {
		return "", nil, fmt.Errorf("ogg: vendor: %w", err)
	}
	if len(rest) < 4 {
		return "", nil, fmt.Errorf("ogg: comment count: %w", ErrNotOpusTags)
	}
	count := binary.LittleEndian.Uint32(rest)
	rest = rest[4:]

	var comments []string
	for i := uint32(0); i < count; i++ {
		var c string
		c, rest, err = readString(rest)
		if err != nil {
			return "", nil, fmt.Errorf("ogg: comment %d: %w", i, err)
		}
		comments = append(comments, c)
	}
	return vendor, comments, nil
}

func readString(p []byte) (string, []byte, error) {
	if len(p) < 4 {
		return "", nil, ErrNotOpusTags
	}
	n := binary.LittleEndian.Uint32(p)
	p = p[4:]
	if uint64(len(p)) < uint64(n) {
		return "", nil, ErrNotOpusTags
	}
	return string(p[:n]), p[n:], nil
}
