// Package mock provides a test double for the tts.Provider interface.
package mock

import (
	"context"
	"sync"

	"github.com/voxmate/voxmate/pkg/provider"
	"github.com/voxmate/voxmate/pkg/provider/tts"
)

// RenderCall records a single invocation of RenderSentence.
type RenderCall struct {
	Sentence string
	Path     string
	Format   string
}

// Provider is a mock implementation of tts.Provider. Spoken sentences
// are recorded instead of synthesized.
type Provider struct {
	mu sync.Mutex

	// --- Configurable behaviour ---

	// ServiceName is returned by Name. Defaults to "mock-tts".
	ServiceName string

	// ServicePriority is returned by Priority.
	ServicePriority int

	// Available is returned by CheckAvailability.
	Available bool

	// RenderErr, if non-nil, is returned from RenderSentence.
	RenderErr error

	// --- Call records (read after test) ---

	// Spoken records every sentence passed to Speak, in order.
	Spoken []string

	// Dropped records sentences passed to Speak while stopped.
	Dropped []string

	// RenderCalls records every invocation of RenderSentence in order.
	RenderCalls []RenderCall

	// StopCalls counts SetStopSignal invocations.
	StopCalls int

	// ClearStopCalls counts ClearStopSignal invocations.
	ClearStopCalls int

	// WaitCalls counts WaitUntilDone invocations.
	WaitCalls int

	// AvailabilityCalls counts CheckAvailability invocations.
	AvailabilityCalls int

	stopped bool
}

var _ tts.Provider = (*Provider)(nil)

func (p *Provider) Name() string {
	if p.ServiceName == "" {
		return "mock-tts"
	}
	return p.ServiceName
}

func (p *Provider) Capability() provider.Capability { return provider.CapabilityTTS }
func (p *Provider) Priority() int                   { return p.ServicePriority }
func (p *Provider) ConfigString() string            { return "mock tts" }

func (p *Provider) CheckAvailability(context.Context) bool {
	p.mu.Lock()
	p.AvailabilityCalls++
	avail := p.Available
	p.mu.Unlock()
	return avail
}

func (p *Provider) Speak(sentence string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		p.Dropped = append(p.Dropped, sentence)
		return
	}
	p.Spoken = append(p.Spoken, sentence)
}

func (p *Provider) SetStopSignal() {
	p.mu.Lock()
	p.StopCalls++
	p.stopped = true
	p.mu.Unlock()
}

func (p *Provider) ClearStopSignal() {
	p.mu.Lock()
	p.ClearStopCalls++
	p.stopped = false
	p.mu.Unlock()
}

func (p *Provider) WaitUntilDone(context.Context) error {
	p.mu.Lock()
	p.WaitCalls++
	p.mu.Unlock()
	return nil
}

func (p *Provider) RenderSentence(_ context.Context, sentence, path, format string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.RenderCalls = append(p.RenderCalls, RenderCall{Sentence: sentence, Path: path, Format: format})
	return p.RenderErr
}

// SpokenSentences returns a copy of the recorded sentences.
func (p *Provider) SpokenSentences() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.Spoken...)
}
