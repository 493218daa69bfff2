// Package openaispeech implements tts.Provider against an
// OpenAI-compatible /v1/audio/speech endpoint, as served by
// openedai-speech with Thorsten German voices.
package openaispeech

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/voxmate/voxmate/pkg/provider"
	"github.com/voxmate/voxmate/pkg/provider/tts"
)

const (
	defaultModel = "tts-1"
	defaultVoice = "thorsten-low"
	defaultSpeed = 1.0
)

// Option is a functional option for configuring the Provider.
type Option func(*Provider)

// WithLogger sets the logger. Defaults to [slog.Default].
func WithLogger(l *slog.Logger) Option {
	return func(p *Provider) { p.log = l }
}

// WithVoice sets the synthesis voice. Defaults to "thorsten-low".
func WithVoice(voice string) Option {
	return func(p *Provider) { p.voice = voice }
}

// WithModel sets the synthesis model. Defaults to "tts-1".
func WithModel(model string) Option {
	return func(p *Provider) { p.model = model }
}

// WithSpeed sets the playback speed factor. Defaults to 1.0.
func WithSpeed(speed float64) Option {
	return func(p *Provider) { p.speed = speed }
}

// Provider implements tts.Provider backed by an OpenAI-compatible
// speech endpoint.
type Provider struct {
	name     string
	endpoint string
	priority int
	voice    string
	model    string
	speed    float64

	client oai.Client
	sink   tts.AudioSink
	queue  *tts.Queue
	log    *slog.Logger
}

var _ tts.Provider = (*Provider)(nil)

// New creates a Provider. The endpoint is the API base URL (ending in
// /v1); sink receives the synthesized audio.
func New(name, endpoint string, priority int, sink tts.AudioSink, opts ...Option) (*Provider, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("openaispeech: endpoint must not be empty")
	}
	if sink == nil {
		return nil, fmt.Errorf("openaispeech: audio sink must not be nil")
	}
	p := &Provider{
		name:     name,
		endpoint: endpoint,
		priority: priority,
		voice:    defaultVoice,
		model:    defaultModel,
		speed:    defaultSpeed,
		sink:     sink,
		log:      slog.Default(),
	}
	for _, o := range opts {
		o(p)
	}
	// The openedai-speech server ignores the key but the client
	// requires one.
	p.client = oai.NewClient(
		option.WithAPIKey("sk-111111111"),
		option.WithBaseURL(endpoint),
	)
	p.queue = tts.NewQueue(p.speakSentence)
	return p, nil
}

func (p *Provider) Name() string                    { return p.name }
func (p *Provider) Capability() provider.Capability { return provider.CapabilityTTS }
func (p *Provider) Priority() int                   { return p.priority }

func (p *Provider) ConfigString() string {
	return fmt.Sprintf("endpoint: %s, voice: %s", p.endpoint, p.voice)
}

// CheckAvailability probes the endpoint's TCP port.
func (p *Provider) CheckAvailability(ctx context.Context) bool {
	return provider.ProbeTCP(ctx, p.endpoint)
}

// Speak queues a sentence for synthesis and playback.
func (p *Provider) Speak(sentence string) { p.queue.Speak(sentence) }

// SetStopSignal empties the queue, aborts the synthesis in flight, and
// silences the sink.
func (p *Provider) SetStopSignal() {
	p.queue.SetStop()
	p.sink.StopPlayback()
}

// ClearStopSignal re-arms the queue.
func (p *Provider) ClearStopSignal() { p.queue.ClearStop() }

// WaitUntilDone blocks until every queued sentence has been handed to
// the sink.
func (p *Provider) WaitUntilDone(ctx context.Context) error {
	return p.queue.WaitUntilDone(ctx)
}

// Close shuts down the background worker.
func (p *Provider) Close() { p.queue.Close() }

// speakSentence synthesizes one sentence as WAV and hands it to the
// sink. Runs on the queue worker.
func (p *Provider) speakSentence(ctx context.Context, sentence string) {
	data, err := p.synthesize(ctx, sentence, "wav")
	if err != nil {
		if ctx.Err() == nil {
			p.log.Error("speech synthesis failed", "service", p.name, "err", err)
		}
		return
	}
	if err := p.sink.PlayWAV(data); err != nil {
		p.log.Error("playback of synthesized audio failed", "service", p.name, "err", err)
	}
}

// RenderSentence synthesizes a sentence into a file for the phrase
// cache.
func (p *Provider) RenderSentence(ctx context.Context, sentence, path, format string) error {
	if format != "mp3" && format != "wav" {
		return fmt.Errorf("openaispeech: unsupported render format %q", format)
	}
	data, err := p.synthesize(ctx, sentence, format)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("openaispeech: write %s: %w", path, err)
	}
	return nil
}

func (p *Provider) synthesize(ctx context.Context, sentence, format string) ([]byte, error) {
	resp, err := p.client.Audio.Speech.New(ctx, oai.AudioSpeechNewParams{
		Model:          oai.SpeechModel(p.model),
		Voice:          oai.AudioSpeechNewParamsVoice(p.voice),
		Input:          sentence,
		ResponseFormat: oai.AudioSpeechNewParamsResponseFormat(format),
		Speed:          oai.Float(p.speed),
	})
	if err != nil {
		return nil, fmt.Errorf("openaispeech: synthesize: %w", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("openaispeech: read synthesis response: %w", err)
	}
	return data, nil
}
