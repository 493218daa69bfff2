// Package audio drives the local sound card: full-duplex 16 kHz mono
// int16 capture and playback over PortAudio.
//
// The playback side is a queue of pre-resampled PCM buffers consumed by
// the device callback; every finished buffer is followed by one second
// of silence before the next one starts. The capture side gates frames
// behind a recording flag so the microphone stream can stay open while
// nobody is listening.
//
// The callback state machines ([player], [recorder]) are kept separate
// from the PortAudio stream objects so their behaviour can be tested
// without a device.
package audio

import "errors"

// Engine format. Everything entering the playback queue is resampled to
// this rate; the capture stream delivers frames in this format as
// little-endian int16 bytes.
const (
	// SampleRate is the fixed engine sample rate in Hz.
	SampleRate = 16000

	// Channels is the fixed channel count (mono).
	Channels = 1

	// FramesPerBuffer is the device callback buffer size in frames.
	FramesPerBuffer = 1024
)

var (
	// ErrNoDevice indicates that no usable audio device was found for the
	// requested direction.
	ErrNoDevice = errors.New("audio: no usable device found")

	// ErrBadDevice indicates that an explicitly requested device index is
	// out of range or lacks the required channels.
	ErrBadDevice = errors.New("audio: requested device is not usable")

	// ErrEngineClosed is returned from operations on a closed engine.
	ErrEngineClosed = errors.New("audio: engine is closed")
)
