package audio

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// Engine owns the duplex PortAudio streams. Both streams run for the
// engine's whole lifetime; the playback queue and the capture gate
// decide what actually flows through them.
type Engine struct {
	log  *slog.Logger
	play *player
	rec  *recorder

	in  *portaudio.Stream
	out *portaudio.Stream

	mic Device
	spk Device

	closeOnce sync.Once
	closeErr  error
	closed    chan struct{}
}

// Option configures a new Engine.
type Option func(*engineOptions)

type engineOptions struct {
	log      *slog.Logger
	micIndex int
	spkIndex int
	depth    func(delta int)
}

// WithLogger sets the logger. Defaults to [slog.Default].
func WithLogger(l *slog.Logger) Option {
	return func(o *engineOptions) { o.log = l }
}

// WithMicrophoneDevice pins the capture device to an index from the
// device table. Negative means auto-select.
func WithMicrophoneDevice(index int) Option {
	return func(o *engineOptions) { o.micIndex = index }
}

// WithPlaybackDevice pins the playback device to an index from the
// device table. Negative means auto-select.
func WithPlaybackDevice(index int) Option {
	return func(o *engineOptions) { o.spkIndex = index }
}

// WithPlaybackDepthHook registers a callback observing playback queue
// depth changes: +1 per enqueued item, -1 when an item finishes playing
// or is discarded by a stop. The hook runs inside the device callback
// and must not block.
func WithPlaybackDepthHook(hook func(delta int)) Option {
	return func(o *engineOptions) { o.depth = hook }
}

// NewEngine initialises PortAudio, resolves the capture and playback
// devices, and starts both streams. Close must be called to release
// the host API.
func NewEngine(opts ...Option) (*Engine, error) {
	o := engineOptions{log: slog.Default(), micIndex: -1, spkIndex: -1}
	for _, opt := range opts {
		opt(&o)
	}

	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("audio: initialize: %w", err)
	}

	infos, err := portaudio.Devices()
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("audio: list devices: %w", err)
	}
	table := make([]Device, len(infos))
	for i, d := range infos {
		table[i] = Device{
			Index:             i,
			Name:              d.Name,
			MaxInputChannels:  d.MaxInputChannels,
			MaxOutputChannels: d.MaxOutputChannels,
			DefaultSampleRate: d.DefaultSampleRate,
		}
	}

	mic, err := selectDevice(table, o.micIndex, true)
	if err != nil {
		portaudio.Terminate()
		return nil, err
	}
	spk, err := selectDevice(table, o.spkIndex, false)
	if err != nil {
		portaudio.Terminate()
		return nil, err
	}

	e := &Engine{
		log:    o.log,
		play:   &player{depth: o.depth},
		rec:    newRecorder(),
		mic:    mic,
		spk:    spk,
		closed: make(chan struct{}),
	}

	inParams := portaudio.LowLatencyParameters(infos[mic.Index], nil)
	inParams.Input.Channels = Channels
	inParams.SampleRate = SampleRate
	inParams.FramesPerBuffer = FramesPerBuffer
	e.in, err = portaudio.OpenStream(inParams, func(in []int16) { e.rec.capture(in) })
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("audio: open capture stream on %q: %w", mic.Name, err)
	}

	outParams := portaudio.LowLatencyParameters(nil, infos[spk.Index])
	outParams.Output.Channels = Channels
	outParams.SampleRate = SampleRate
	outParams.FramesPerBuffer = FramesPerBuffer
	e.out, err = portaudio.OpenStream(outParams, func(out []int16) { e.play.fill(out) })
	if err != nil {
		e.in.Close()
		portaudio.Terminate()
		return nil, fmt.Errorf("audio: open playback stream on %q: %w", spk.Name, err)
	}

	if err := e.in.Start(); err != nil {
		e.cleanupStreams()
		return nil, fmt.Errorf("audio: start capture stream: %w", err)
	}
	if err := e.out.Start(); err != nil {
		e.cleanupStreams()
		return nil, fmt.Errorf("audio: start playback stream: %w", err)
	}

	e.log.Info("audio engine started",
		"microphone", mic.Name, "playback", spk.Name,
		"sampleRate", SampleRate, "framesPerBuffer", FramesPerBuffer)
	return e, nil
}

// Microphone returns the resolved capture device.
func (e *Engine) Microphone() Device { return e.mic }

// Playback returns the resolved playback device.
func (e *Engine) Playback() Device { return e.spk }

// PlayPCM queues mono int16 samples for playback, resampling from
// sampleRate to the engine rate. Queuing new audio lowers a pending
// stop signal.
func (e *Engine) PlayPCM(sampleRate int, samples []int16) {
	e.play.clearStop()
	e.play.enqueue(sampleRate, samples)
}

// PlayFloat32 queues normalised float samples for playback.
func (e *Engine) PlayFloat32(sampleRate int, samples []float32) {
	e.PlayPCM(sampleRate, Float32ToInt16(samples))
}

// PlayWAV decodes a RIFF/WAVE byte stream and queues it for playback.
func (e *Engine) PlayWAV(data []byte) error {
	rate, samples, err := DecodeWAV(data)
	if err != nil {
		return err
	}
	e.PlayPCM(rate, samples)
	return nil
}

// StopPlayback raises the stop signal: the queue and the buffer in
// flight are discarded and the output goes silent until the next Play
// call.
func (e *Engine) StopPlayback() { e.play.setStop() }

// PlaybackIdle reports whether nothing is queued or in flight.
func (e *Engine) PlaybackIdle() bool { return e.play.idle() }

// WaitUntilPlaybackFinished blocks until the playback queue has stayed
// empty for a full second, or ctx is cancelled.
func (e *Engine) WaitUntilPlaybackFinished(ctx context.Context) error {
	return e.play.waitFinished(ctx)
}

// RecordStream arms the capture gate and returns a channel of raw
// little-endian int16 frames. The stream ends when ctx is cancelled or
// StopRecording is called; the channel is then closed with the gate
// down and the capture queue drained.
func (e *Engine) RecordStream(ctx context.Context) <-chan []byte {
	return e.rec.stream(ctx)
}

// StopRecording signals the active record stream to end.
func (e *Engine) StopRecording() { e.rec.stop.Store(true) }

// Close stops both streams and releases PortAudio. Safe to call more
// than once.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		close(e.closed)
		e.play.setStop()
		e.rec.stop.Store(true)
		e.closeErr = e.cleanupStreams()
		e.log.Info("audio engine closed")
	})
	return e.closeErr
}

func (e *Engine) cleanupStreams() error {
	var first error
	for _, s := range []*portaudio.Stream{e.in, e.out} {
		if s == nil {
			continue
		}
		s.Stop()
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	if err := portaudio.Terminate(); err != nil && first == nil {
		first = err
	}
	return first
}
