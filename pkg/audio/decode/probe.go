// ABOUTME: Container detection for input files
// ABOUTME: Sniffs magic bytes and falls back to the file extension
package decode

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Hint carries side information that helps Probe pick a container.
type Hint struct {
	Extension string
}

// HintFromPath derives a Hint from a file name.
func HintFromPath(path string) Hint {
	return Hint{Extension: strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))}
}

type container int

const (
	containerUnknown container = iota
	containerWAV
	containerFLAC
	containerMP3
)

// Probe detects the container of r and returns a Demuxer positioned at the
// first packet.
func Probe(r io.ReadSeeker, hint Hint) (Demuxer, error) {
	var magic [12]byte
	n, err := io.ReadFull(r, magic[:])
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("probe: read magic: %w", err)
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("probe: rewind: %w", err)
	}

	kind := sniff(magic[:n])
	if kind == containerUnknown {
		kind = fromExtension(hint.Extension)
	}

	switch kind {
	case containerWAV:
		return openWAV(r)
	case containerFLAC:
		return openFLAC(r)
	case containerMP3:
		return openMP3(r)
	default:
		return nil, ErrUnsupportedFormat
	}
}

func sniff(b []byte) container {
	switch {
	case len(b) >= 12 && bytes.Equal(b[0:4], []byte("RIFF")) && bytes.Equal(b[8:12], []byte("WAVE")):
		return containerWAV
	case bytes.HasPrefix(b, []byte("fLaC")):
		return containerFLAC
	case bytes.HasPrefix(b, []byte("ID3")):
		return containerMP3
	case len(b) >= 2 && b[0] == 0xFF && b[1]&0xE0 == 0xE0:
		return containerMP3
	}
	return containerUnknown
}

func fromExtension(ext string) container {
	switch ext {
	case "wav", "wave":
		return containerWAV
	case "flac":
		return containerFLAC
	case "mp3":
		return containerMP3
	}
	return containerUnknown
}
