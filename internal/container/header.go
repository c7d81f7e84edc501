// ABOUTME: Toniefile header block encoding and parsing
// ABOUTME: A 4096-byte block holding a length-prefixed protobuf message
package container

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"google.golang.org/protobuf/encoding/protowire"
)

const (
	// HeaderSize is the size of the block preceding the Ogg data.
	HeaderSize = 4096

	headerPayloadSize = HeaderSize - 4
)

// Protobuf field numbers of the header message.
const (
	fieldDataHash     protowire.Number = 1
	fieldDataLength   protowire.Number = 2
	fieldTimestamp    protowire.Number = 3
	fieldChapterPages protowire.Number = 4
	fieldPadding      protowire.Number = 5
)

var ErrInvalidHeader = errors.New("container: invalid Toniefile header")

// Header describes the audio stream of a Toniefile.
type Header struct {
	DataHash     []byte   // SHA-1 of the Ogg data
	DataLength   uint64   // size of the Ogg data in bytes
	Timestamp    uint32   // audio id
	ChapterPages []uint32 // first Ogg page of each chapter
}

// MarshalBinary encodes the header as a full HeaderSize block.
func (h *Header) MarshalBinary() ([]byte, error) {
	var msg []byte
	msg = protowire.AppendTag(msg, fieldDataHash, protowire.BytesType)
	msg = protowire.AppendBytes(msg, h.DataHash)
	msg = protowire.AppendTag(msg, fieldDataLength, protowire.VarintType)
	msg = protowire.AppendVarint(msg, h.DataLength)
	msg = protowire.AppendTag(msg, fieldTimestamp, protowire.VarintType)
	msg = protowire.AppendVarint(msg, uint64(h.Timestamp))

	var packed []byte
	for _, p := range h.ChapterPages {
		packed = protowire.AppendVarint(packed, uint64(p))
	}
	msg = protowire.AppendTag(msg, fieldChapterPages, protowire.BytesType)
	msg = protowire.AppendBytes(msg, packed)

	// The padding field fills the message to exactly headerPayloadSize.
	remaining := headerPayloadSize - len(msg) - protowire.SizeTag(fieldPadding)
	padLen := remaining - 1
	for padLen > 0 && padLen+protowire.SizeVarint(uint64(padLen)) > remaining {
		padLen--
	}
	if padLen < 0 || padLen+protowire.SizeVarint(uint64(padLen)) != remaining {
		return nil, fmt.Errorf("%w: %d chapters do not fit in %d bytes",
			ErrInvalidHeader, len(h.ChapterPages), HeaderSize)
	}
	msg = protowire.AppendTag(msg, fieldPadding, protowire.BytesType)
	msg = protowire.AppendBytes(msg, make([]byte, padLen))

	block := make([]byte, HeaderSize)
	binary.BigEndian.PutUint32(block, uint32(len(msg)))
	copy(block[4:], msg)
	return block, nil
}

// ParseHeader reads a header block from the start of a Toniefile.
func ParseHeader(r io.Reader) (*Header, error) {
	var prefix [4]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return nil, fmt.Errorf("%w: read length: %v", ErrInvalidHeader, err)
	}
	size := binary.BigEndian.Uint32(prefix[:])
	if size > headerPayloadSize {
		return nil, fmt.Errorf("%w: length %d exceeds %d", ErrInvalidHeader, size, headerPayloadSize)
	}

	msg := make([]byte, size)
	if _, err := io.ReadFull(r, msg); err != nil {
		return nil, fmt.Errorf("%w: read message: %v", ErrInvalidHeader, err)
	}

	h := &Header{}
	for len(msg) > 0 {
		num, typ, n := protowire.ConsumeTag(msg)
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrInvalidHeader, protowire.ParseError(n))
		}
		msg = msg[n:]

		switch {
		case num == fieldDataHash && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(msg)
			if n < 0 {
				return nil, fmt.Errorf("%w: data hash: %v", ErrInvalidHeader, protowire.ParseError(n))
			}
			h.DataHash = append([]byte(nil), v...)
			msg = msg[n:]
		case num == fieldDataLength && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(msg)
			if n < 0 {
				return nil, fmt.Errorf("%w: data length: %v", ErrInvalidHeader, protowire.ParseError(n))
			}
			h.DataLength = v
			msg = msg[n:]
		case num == fieldTimestamp && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(msg)
			if n < 0 {
				return nil, fmt.Errorf("%w: timestamp: %v", ErrInvalidHeader, protowire.ParseError(n))
			}
			h.Timestamp = uint32(v)
			msg = msg[n:]
		case num == fieldChapterPages && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(msg)
			if n < 0 {
				return nil, fmt.Errorf("%w: chapter pages: %v", ErrInvalidHeader, protowire.ParseError(n))
			}
			for len(v) > 0 {
				p, m := protowire.ConsumeVarint(v)
				if m < 0 {
					return nil, fmt.Errorf("%w: chapter page: %v", ErrInvalidHeader, protowire.ParseError(m))
				}
				h.ChapterPages = append(h.ChapterPages, uint32(p))
				v = v[m:]
			}
			msg = msg[n:]
		case num == fieldChapterPages && typ == protowire.VarintType:
			// unpacked encoding
			p, n := protowire.ConsumeVarint(msg)
			if n < 0 {
				return nil, fmt.Errorf("%w: chapter page: %v", ErrInvalidHeader, protowire.ParseError(n))
			}
			h.ChapterPages = append(h.ChapterPages, uint32(p))
			msg = msg[n:]
		default:
			// padding and unknown fields
			n := protowire.ConsumeFieldValue(num, typ, msg)
			if n < 0 {
				return nil, fmt.Errorf("%w: field %d: %v", ErrInvalidHeader, num, protowire.ParseError(n))
			}
			msg = msg[n:]
		}
	}
	return h, nil
}

func (h *Header) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Toniefile header\n")
	fmt.Fprintf(&b, "  audio id:     %d (0x%08x)\n", h.Timestamp, h.Timestamp)
	fmt.Fprintf(&b, "  data length:  %d bytes\n", h.DataLength)
	fmt.Fprintf(&b, "  data hash:    %s\n", hex.EncodeToString(h.DataHash))
	fmt.Fprintf(&b, "  chapters:     %d\n", len(h.ChapterPages))
	for i, p := range h.ChapterPages {
		fmt.Fprintf(&b, "    %2d: page %d\n", i+1, p)
	}
	return b.String()
}
