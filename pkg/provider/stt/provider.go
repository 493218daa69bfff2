// Package stt defines the Provider interface for streaming
// speech-to-text backends.
//
// A provider consumes raw 16 kHz mono int16 PCM frames and emits text
// deltas: each value on the transcript channel is the new suffix of the
// recognizer's cumulative transcript, so concatenating all deltas of a
// session yields the full text.
package stt

import (
	"context"

	"github.com/voxmate/voxmate/pkg/provider"
)

// Callbacks carries optional session lifecycle hooks. Each hook fires
// at most once per session; nil hooks are skipped.
type Callbacks struct {
	// OnOpen fires once the transport is connected and audio may flow.
	OnOpen func()

	// OnClose fires once when the session ends, whatever the reason.
	OnClose func()
}

// Provider is the abstraction over a streaming transcription service.
type Provider interface {
	provider.Service

	// TranscribeStream opens a transcription session fed from audio and
	// returns the channel of text deltas. The session ends when audio is
	// closed, ctx is cancelled, or the transport fails; the delta
	// channel is closed in every case.
	TranscribeStream(ctx context.Context, audio <-chan []byte, cb Callbacks) (<-chan string, error)
}
