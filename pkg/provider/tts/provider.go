// Package tts defines the Provider interface for text-to-speech
// backends and the sentence queue they share.
//
// A TTS provider owns a background worker that synthesizes queued
// sentences one at a time and hands the audio to an [AudioSink]. The
// stop signal empties the queue and aborts the synthesis in flight so
// the assistant can be interrupted mid-answer.
package tts

import (
	"context"

	"github.com/voxmate/voxmate/pkg/provider"
)

// AudioSink is where synthesized audio ends up. The audio engine
// satisfies this.
type AudioSink interface {
	// PlayWAV queues a RIFF/WAVE byte stream for playback.
	PlayWAV(data []byte) error

	// StopPlayback discards everything queued and in flight.
	StopPlayback()
}

// Provider is the abstraction over a speech synthesis service.
type Provider interface {
	provider.Service

	// Speak queues a sentence for synthesis and playback. It never
	// blocks; while the stop signal is raised the sentence is dropped.
	Speak(sentence string)

	// SetStopSignal empties the sentence queue, aborts the synthesis in
	// flight, and stops playback.
	SetStopSignal()

	// ClearStopSignal re-arms the queue after a stop.
	ClearStopSignal()

	// WaitUntilDone blocks until the queue is empty and no sentence is
	// being synthesized, or ctx is cancelled.
	WaitUntilDone(ctx context.Context) error

	// RenderSentence synthesizes a sentence into the given file instead
	// of playing it. format is "mp3" or "wav".
	RenderSentence(ctx context.Context, sentence, path, format string) error
}
