// ABOUTME: Ogg page framing with one packet per page
// ABOUTME: Writes and reads pages with lacing values and CRC-32 checksums
package ogg

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Header type flags.
const (
	FlagContinued = 0x01
	FlagBOS       = 0x02
	FlagEOS       = 0x04
)

const (
	pageSignature  = "OggS"
	pageHeaderSize = 27

	// MaxPacketSize is the largest packet a single page can carry.
	MaxPacketSize = 255*255 - 1
)

var (
	ErrPacketTooLarge = errors.New("ogg: packet does not fit in one page")
	ErrBadSignature   = errors.New("ogg: missing OggS capture pattern")
	ErrBadChecksum    = errors.New("ogg: page checksum mismatch")
)

var crcTable = generateChecksumTable()

// Page is one decoded Ogg page.
type Page struct {
	HeaderType byte
	Granule    uint64
	Serial     uint32
	Sequence   uint32
	Payload    []byte
}

// PageWriter writes a single logical stream as a sequence of pages.
type PageWriter struct {
	w       io.Writer
	serial  uint32
	seq     uint32
	written int64
}

// NewPageWriter returns a writer for the logical stream with the given
// serial number.
func NewPageWriter(w io.Writer, serial uint32) *PageWriter {
	return &PageWriter{w: w, serial: serial}
}

// WritePacket writes packet as a complete page.
func (pw *PageWriter) WritePacket(packet []byte, granule uint64, headerType byte) error {
	if len(packet) > MaxPacketSize {
		return fmt.Errorf("%w: %d bytes", ErrPacketTooLarge, len(packet))
	}

	page := buildPage(packet, headerType, granule, pw.seq, pw.serial)
	n, err := pw.w.Write(page)
	pw.written += int64(n)
	if err != nil {
		return fmt.Errorf("ogg: write page %d: %w", pw.seq, err)
	}
	pw.seq++
	return nil
}

// NextSequence returns the sequence number the next page will carry.
func (pw *PageWriter) NextSequence() uint32 {
	return pw.seq
}

// Written returns the number of bytes written so far.
func (pw *PageWriter) Written() int64 {
	return pw.written
}

func buildPage(payload []byte, headerType byte, granule uint64, seq, serial uint32) []byte {
	// A packet whose length is a multiple of 255 ends with a zero lacing value.
	nSegments := len(payload)/255 + 1

	page := make([]byte, pageHeaderSize+nSegments+len(payload))
	copy(page[0:], pageSignature)
	page[4] = 0 // version
	page[5] = headerType
	binary.LittleEndian.PutUint64(page[6:], granule)
	binary.LittleEndian.PutUint32(page[14:], serial)
	binary.LittleEndian.PutUint32(page[18:], seq)
	page[26] = byte(nSegments)

	for i := 0; i < nSegments-1; i++ {
		page[pageHeaderSize+i] = 255
	}
	page[pageHeaderSize+nSegments-1] = byte(len(payload) % 255)
	copy(page[pageHeaderSize+nSegments:], payload)

	binary.LittleEndian.PutUint32(page[22:], Checksum(page))
	return page
}

// ReadPage reads and verifies one page from r. It returns io.EOF when r is
// exhausted at a page boundary.
func ReadPage(r io.Reader) (*Page, error) {
	var hdr [pageHeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	if string(hdr[0:4]) != pageSignature {
		return nil, ErrBadSignature
	}

	segments := make([]byte, hdr[26])
	if _, err := io.ReadFull(r, segments); err != nil {
		return nil, fmt.Errorf("ogg: read segment table: %w", err)
	}
	size := 0
	for _, s := range segments {
		size += int(s)
	}
	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("ogg: read payload: %w", err)
	}

	raw := make([]byte, 0, pageHeaderSize+len(segments)+size)
	raw = append(raw, hdr[:]...)
	raw = append(raw, segments...)
	raw = append(raw, payload...)
	want := binary.LittleEndian.Uint32(raw[22:26])
	if Checksum(raw) != want {
		return nil, ErrBadChecksum
	}

	return &Page{
		HeaderType: hdr[5],
		Granule:    binary.LittleEndian.Uint64(hdr[6:14]),
		Serial:     binary.LittleEndian.Uint32(hdr[14:18]),
		Sequence:   binary.LittleEndian.Uint32(hdr[18:22]),
		Payload:    payload,
	}, nil
}

// Checksum computes the Ogg CRC-32 of a page with its checksum field
// treated as zero.
func Checksum(page []byte) uint32 {
	var crc uint32
	for i, b := range page {
		if i >= 22 && i < 26 {
			b = 0
		}
		crc = (crc << 8) ^ crcTable[byte(crc>>24)^b]
	}
	return crc
}

// generateChecksumTable generates the CRC32 lookup table for Ogg
// (polynomial 0x04c11db7, no reflection).
func generateChecksumTable() *[256]uint32 {
	var table [256]uint32
	const poly = 0x04c11db7

	for i := range table {
		r := uint32(i) << 24
		for j := 0; j < 8; j++ {
			if r&0x80000000 != 0 {
				r = (r << 1) ^ poly
			} else {
				r <<= 1
			}
		}
		table[i] = r
	}
	return &table
}
