// ABOUTME: Encoder interface definition
// ABOUTME: Common interface for all audio encoders
package encode

// Codec identities accepted by the encoders.
const (
	CodecPCM  = "pcm"
	CodecOpus = "opus"
)

// Encoder encodes PCM int16 samples to various formats
type Encoder interface {
	// Encode converts PCM samples to encoded audio data
	Encode(samples []int16) ([]byte, error)

	// Close releases encoder resources
	Close() error
}
