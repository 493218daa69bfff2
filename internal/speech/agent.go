// Package speech combines the audio engine, the service registry, and
// the wake-word listener into the assistant's spoken surface: canned
// phrases from a pre-rendered cache, beeps, wake-word-gated speech
// input, and the interrupt watcher that aborts running speech when the
// wake word is heard.
package speech

import (
	"context"
	"crypto/md5"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/hajimehoshi/go-mp3"

	"github.com/voxmate/voxmate/internal/observe"
	"github.com/voxmate/voxmate/pkg/audio"
	"github.com/voxmate/voxmate/pkg/provider"
	"github.com/voxmate/voxmate/pkg/provider/stt"
	"github.com/voxmate/voxmate/pkg/provider/tts"
	"github.com/voxmate/voxmate/pkg/provider/wake"
)

// Sound asset files, relative to the sounds directory.
const (
	soundInputBeep    = "deskviewerbeep.mp3"
	soundPositiveBeep = "computerbeep_26.mp3"
	soundErrorBeep    = "denybeep1.mp3"
	soundProcessing   = "processing.mp3"
)

// Engine is the audio surface the agent drives. *audio.Engine
// satisfies it.
type Engine interface {
	PlayPCM(sampleRate int, samples []int16)
	PlayWAV(data []byte) error
	StopPlayback()
	WaitUntilPlaybackFinished(ctx context.Context) error
	RecordStream(ctx context.Context) <-chan []byte
	StopRecording()
}

// Registry is the service lookup the agent needs. The discovery
// registry satisfies it.
type Registry interface {
	Best(capability provider.Capability) (provider.Service, error)
}

// Option configures a new Agent.
type Option func(*Agent)

// WithLogger sets the logger. Defaults to [slog.Default].
func WithLogger(l *slog.Logger) Option {
	return func(a *Agent) { a.log = l }
}

// WithSoundsDir overrides the directory holding the beep assets.
func WithSoundsDir(dir string) Option {
	return func(a *Agent) { a.soundsDir = dir }
}

// WithCacheDir overrides the phrase cache directory.
func WithCacheDir(dir string) Option {
	return func(a *Agent) { a.cacheDir = dir }
}

// WithPhrasePicker replaces the random pool index picker, mainly for
// tests.
func WithPhrasePicker(pick func(n int) int) Option {
	return func(a *Agent) { a.pick = pick }
}

// WithMetrics injects the metric instruments. Defaults to
// [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(a *Agent) { a.metrics = m }
}

// Agent is the assistant's spoken surface.
type Agent struct {
	log      *slog.Logger
	engine   Engine
	registry Registry
	wake     wake.Listener

	soundsDir string
	cacheDir  string
	pick      func(n int) int
	metrics   *observe.Metrics

	mu              sync.Mutex
	interruptCancel context.CancelFunc
	interruptDone   chan struct{}
}

// NewAgent creates an Agent over the given audio engine, service
// registry, and wake-word listener.
func NewAgent(engine Engine, registry Registry, listener wake.Listener, opts ...Option) *Agent {
	a := &Agent{
		log:       slog.Default(),
		engine:    engine,
		registry:  registry,
		wake:      listener,
		soundsDir: "sounds",
		cacheDir:  "tts_cache",
		pick:      rand.IntN,
	}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}
	return a
}

func (a *Agent) bestTTS() (tts.Provider, error) {
	svc, err := a.registry.Best(provider.CapabilityTTS)
	if err != nil {
		return nil, err
	}
	t, ok := svc.(tts.Provider)
	if !ok {
		return nil, fmt.Errorf("speech: service %q does not synthesize", svc.Name())
	}
	return t, nil
}

func (a *Agent) bestSTT() (stt.Provider, error) {
	svc, err := a.registry.Best(provider.CapabilitySTT)
	if err != nil {
		return nil, err
	}
	s, ok := svc.(stt.Provider)
	if !ok {
		return nil, fmt.Errorf("speech: service %q does not transcribe", svc.Name())
	}
	return s, nil
}

// CacheFileName returns the deterministic cache path of a phrase:
// the first 8 hex digits of its MD5 under the cache directory.
func (a *Agent) CacheFileName(sentence string) string {
	sum := md5.Sum([]byte(sentence))
	return filepath.Join(a.cacheDir, fmt.Sprintf("%x", sum)[:8]+".mp3")
}

// WarmupCache renders every pooled phrase that is missing from the
// cache through the best available synthesizer. Individual render
// failures are logged and skipped so one bad sentence cannot block
// startup.
func (a *Agent) WarmupCache(ctx context.Context) error {
	if err := os.MkdirAll(a.cacheDir, 0o755); err != nil {
		return fmt.Errorf("speech: create cache dir: %w", err)
	}
	var t tts.Provider
	for _, sentence := range allPhrases() {
		path := a.CacheFileName(sentence)
		if _, err := os.Stat(path); err == nil {
			continue
		}
		if t == nil {
			var err error
			if t, err = a.bestTTS(); err != nil {
				return err
			}
		}
		started := time.Now()
		if err := t.RenderSentence(ctx, sentence, path, "mp3"); err != nil {
			a.log.Warn("phrase cache render failed", "sentence", sentence, "error", err)
			continue
		}
		a.metrics.SynthesisDuration.Record(ctx, time.Since(started).Seconds())
	}
	return nil
}

// ─── beeps ───

func (a *Agent) EngageInputBeep() { a.playAsset(soundInputBeep) }
func (a *Agent) BeepPositive()    { a.playAsset(soundPositiveBeep) }
func (a *Agent) BeepError()       { a.playAsset(soundErrorBeep) }
func (a *Agent) ProcessingSound() { a.playAsset(soundProcessing) }

func (a *Agent) playAsset(name string) {
	if err := a.playFile(filepath.Join(a.soundsDir, name)); err != nil {
		a.log.Warn("sound asset playback failed", "asset", name, "error", err)
	}
}

// playFile decodes an MP3 file and queues it on the engine.
func (a *Agent) playFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	rate, samples, err := decodeMP3(f)
	if err != nil {
		return fmt.Errorf("decode %q: %w", path, err)
	}
	a.engine.PlayPCM(rate, samples)
	return nil
}

// decodeMP3 decodes an MP3 stream to mono int16 samples. go-mp3 always
// emits 16-bit stereo.
func decodeMP3(r io.Reader) (sampleRate int, samples []int16, err error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return 0, nil, err
	}
	raw, err := io.ReadAll(dec)
	if err != nil {
		return 0, nil, err
	}
	return dec.SampleRate(), audio.StereoToMono(audio.BytesToInt16(raw)), nil
}

// playCachedOrSpeak plays the cached rendering of a phrase; when the
// cache misses it falls back to the live synthesizer.
func (a *Agent) playCachedOrSpeak(sentence string) {
	if err := a.playFile(a.CacheFileName(sentence)); err == nil {
		return
	}
	a.log.Warn("phrase cache miss, speaking live", "sentence", sentence)
	t, err := a.bestTTS()
	if err != nil {
		a.log.Error("no synthesizer for fallback phrase", "error", err)
		return
	}
	t.Speak(sentence)
}

func (a *Agent) pickFrom(pool []string) string {
	return pool[a.pick(len(pool))]
}

// ─── canned speech ───

// SayHi plays a random affirmation phrase.
func (a *Agent) SayHi() {
	phrase := a.pickFrom(hiChoices)
	a.log.Info("say hi", "phrase", phrase)
	a.playCachedOrSpeak(phrase)
}

// SayBye speaks an optional final message, drains the synthesizer, and
// plays a random farewell phrase.
func (a *Agent) SayBye(ctx context.Context, message string) {
	phrase := a.pickFrom(byeChoices)
	a.log.Info("say bye", "message", message, "phrase", phrase)
	if t, err := a.bestTTS(); err == nil {
		if message != "" {
			t.Speak(message)
		}
		if err := t.WaitUntilDone(ctx); err != nil {
			return
		}
	}
	a.playCachedOrSpeak(phrase)
}

// SayDidNotUnderstand plays the clarification phrase.
func (a *Agent) SayDidNotUnderstand() {
	a.playCachedOrSpeak(a.pickFrom(didNotUnderstandChoices))
}

// SayInitGreeting plays a cached greeting, then introduces the wake
// word through the live synthesizer and drains playback.
func (a *Agent) SayInitGreeting(ctx context.Context) error {
	a.playCachedOrSpeak(a.pickFrom(initGreetings))
	t, err := a.bestTTS()
	if err != nil {
		return err
	}
	t.Speak("Ich höre auf den Namen " + a.wake.WakeWord())
	if err := t.WaitUntilDone(ctx); err != nil {
		return err
	}
	return a.engine.WaitUntilPlaybackFinished(ctx)
}

// SayAbortSpeech aborts all running speech and tells the user the
// answer was cancelled.
func (a *Agent) SayAbortSpeech() {
	t, err := a.bestTTS()
	if err != nil {
		a.engine.StopPlayback()
	} else {
		t.SetStopSignal()
		t.ClearStopSignal()
	}
	a.playCachedOrSpeak(a.pickFrom(abortSpeechChoices))
}

// Say queues a dynamic sentence on the live synthesizer.
func (a *Agent) Say(message string) {
	t, err := a.bestTTS()
	if err != nil {
		a.log.Error("say failed", "error", err)
		return
	}
	t.Speak(message)
}

// SkipAllAndSay drops everything queued or in flight and speaks the
// new message instead.
func (a *Agent) SkipAllAndSay(ctx context.Context, message string) {
	t, err := a.bestTTS()
	if err != nil {
		a.log.Error("skip all and say failed", "error", err)
		return
	}
	t.SetStopSignal()
	if err := t.WaitUntilDone(ctx); err != nil {
		return
	}
	time.Sleep(200 * time.Millisecond)
	t.ClearStopSignal()
	t.Speak(message)
}

// WaitUntilTalkingFinished blocks until the synthesizer queue and the
// playback queue are both drained. The double round closes the gap
// where the last synthesized sentence has not reached the playback
// queue yet.
func (a *Agent) WaitUntilTalkingFinished(ctx context.Context) error {
	t, err := a.bestTTS()
	if err != nil {
		return a.engine.WaitUntilPlaybackFinished(ctx)
	}
	for range 2 {
		if err := t.WaitUntilDone(ctx); err != nil {
			return err
		}
		if err := a.engine.WaitUntilPlaybackFinished(ctx); err != nil {
			return err
		}
	}
	return nil
}

// ─── speech input ───

// listenForWake feeds a fresh capture stream into the wake-word
// listener and returns when the word is detected or ctx ends.
func (a *Agent) listenForWake(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	frames := a.engine.RecordStream(ctx)
	return a.wake.Listen(ctx, frames)
}

// GetHumanInput returns a stream of transcript deltas for one user
// utterance. When waitForWakeword is set the agent first drains
// playback, plays the input beep, and blocks until the wake word is
// heard.
func (a *Agent) GetHumanInput(ctx context.Context, waitForWakeword bool) (<-chan string, error) {
	if waitForWakeword {
		a.engine.StopRecording()
		if err := a.engine.WaitUntilPlaybackFinished(ctx); err != nil {
			return nil, err
		}
		a.EngageInputBeep()
		if err := a.listenForWake(ctx); err != nil {
			return nil, err
		}
		a.log.Info("wake word detected", "wakeword", a.wake.WakeWord())
		a.metrics.WakeDetections.Add(ctx, 1)
		a.BeepPositive()
	}

	s, err := a.bestSTT()
	if err != nil {
		return nil, err
	}

	// The capture stream has to end with the transcript stream, even
	// when the recognizer closes the session on its own; the session
	// gets its own cancel for that, like the wake listener does.
	streamCtx, cancel := context.WithCancel(ctx)
	frames := a.engine.RecordStream(streamCtx)
	deltas, err := s.TranscribeStream(streamCtx, frames, stt.Callbacks{
		OnOpen:  func() { a.log.Debug("transcription stream opened") },
		OnClose: func() { a.log.Debug("transcription stream closed") },
	})
	if err != nil {
		cancel()
		return nil, err
	}

	out := make(chan string, 16)
	go func() {
		defer cancel()
		defer close(out)
		for d := range deltas {
			a.metrics.RecordTranscriptDelta(streamCtx, s.Name())
			select {
			case out <- d:
			case <-streamCtx.Done():
				return
			}
		}
	}()
	return out, nil
}

// StopRecording ends the active capture stream, closing the
// transcription input.
func (a *Agent) StopRecording() { a.engine.StopRecording() }

// ─── interrupt watcher ───

// StartSpeechInterrupt launches a watcher that listens for the wake
// word while the assistant is talking. On detection it aborts all
// speech via SayAbortSpeech and exits. A second Start without a Stop
// in between is a no-op.
func (a *Agent) StartSpeechInterrupt(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.interruptCancel != nil {
		a.log.Warn("speech interrupt watcher already running")
		return
	}
	watchCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	a.interruptCancel = cancel
	a.interruptDone = done

	a.log.Info("starting speech interrupt watcher", "wakeword", a.wake.WakeWord())
	go func() {
		defer close(done)
		if err := a.listenForWake(watchCtx); err != nil {
			if !errors.Is(err, context.Canceled) {
				a.log.Debug("interrupt watcher ended without detection", "error", err)
			}
			return
		}
		a.log.Info("speech interrupted by wake word", "wakeword", a.wake.WakeWord())
		a.metrics.WakeDetections.Add(watchCtx, 1)
		a.SayAbortSpeech()
	}()
}

// StopSpeechInterrupt stops the watcher and waits for it to exit.
// Safe to call when no watcher is running.
func (a *Agent) StopSpeechInterrupt() {
	a.mu.Lock()
	cancel, done := a.interruptCancel, a.interruptDone
	a.interruptCancel, a.interruptDone = nil, nil
	a.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// WasInterrupted reports whether the running watcher has fired. It is
// false once StopSpeechInterrupt has cleaned the watcher up.
func (a *Agent) WasInterrupted() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.interruptDone == nil {
		return false
	}
	select {
	case <-a.interruptDone:
		return true
	default:
		return false
	}
}
