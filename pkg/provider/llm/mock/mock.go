// Package mock provides a test double for the llm.Provider interface.
//
// Use Provider in unit tests to verify the history the orchestrator
// sends and to feed scripted response chunks without a live backend.
// All fields are safe to set before calling any method; mutating them
// during a concurrent call is the caller's responsibility.
package mock

import (
	"context"
	"sync"

	"github.com/voxmate/voxmate/pkg/provider"
	"github.com/voxmate/voxmate/pkg/provider/llm"
)

// ChatCall records a single invocation of ChatStream.
type ChatCall struct {
	// Ctx is the context passed to ChatStream.
	Ctx context.Context
	// History is the message slice passed to ChatStream.
	History []llm.Message
}

// Provider is a mock implementation of llm.Provider.
type Provider struct {
	mu sync.Mutex

	// --- Configurable behaviour ---

	// ServiceName is returned by Name. Defaults to "mock-llm".
	ServiceName string

	// ServicePriority is returned by Priority.
	ServicePriority int

	// Available is returned by CheckAvailability.
	Available bool

	// Chunks is the sequence of values emitted on the channel returned
	// by ChatStream. All chunks are sent before the channel is closed.
	Chunks []string

	// ChatErr, if non-nil, is returned from ChatStream instead of a
	// channel.
	ChatErr error

	// --- Call records (read after test) ---

	// ChatCalls records every invocation of ChatStream in order.
	ChatCalls []ChatCall

	// AvailabilityCalls counts CheckAvailability invocations.
	AvailabilityCalls int
}

var _ llm.Provider = (*Provider)(nil)

func (p *Provider) Name() string {
	if p.ServiceName == "" {
		return "mock-llm"
	}
	return p.ServiceName
}

func (p *Provider) Capability() provider.Capability { return provider.CapabilityLLM }
func (p *Provider) Priority() int                   { return p.ServicePriority }
func (p *Provider) ConfigString() string            { return "mock llm" }

func (p *Provider) CheckAvailability(context.Context) bool {
	p.mu.Lock()
	p.AvailabilityCalls++
	avail := p.Available
	p.mu.Unlock()
	return avail
}

// SetAvailable changes the probe result while probes may be running.
func (p *Provider) SetAvailable(ok bool) {
	p.mu.Lock()
	p.Available = ok
	p.mu.Unlock()
}

// ChatStream records the call and returns a channel that emits Chunks.
func (p *Provider) ChatStream(ctx context.Context, history []llm.Message) (<-chan string, error) {
	p.mu.Lock()
	p.ChatCalls = append(p.ChatCalls, ChatCall{Ctx: ctx, History: append([]llm.Message(nil), history...)})
	if p.ChatErr != nil {
		err := p.ChatErr
		p.mu.Unlock()
		return nil, err
	}
	chunks := append([]string(nil), p.Chunks...)
	p.mu.Unlock()

	out := make(chan string, len(chunks))
	for _, c := range chunks {
		out <- c
	}
	close(out)
	return out, nil
}

// LastHistory returns the history of the most recent ChatStream call,
// or nil if none was made.
func (p *Provider) LastHistory() []llm.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.ChatCalls) == 0 {
		return nil
	}
	return p.ChatCalls[len(p.ChatCalls)-1].History
}
