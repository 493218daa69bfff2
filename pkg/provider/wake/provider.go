// Package wake defines the Listener interface for wake-word
// detection over the capture stream.
package wake

import "context"

// Listener blocks on an audio stream until the wake word is spoken.
type Listener interface {
	// Listen consumes raw 16 kHz mono int16 frames and returns nil as
	// soon as the wake word is detected. It returns ctx.Err if the
	// context ends first, or another error if the detector fails or the
	// frame channel closes without a detection.
	Listen(ctx context.Context, frames <-chan []byte) error

	// WakeWord is the word being listened for.
	WakeWord() string

	// ConfigString renders the detector configuration for log output.
	ConfigString() string

	// Close releases detector resources.
	Close() error
}
