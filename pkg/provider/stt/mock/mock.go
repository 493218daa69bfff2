// Package mock provides a test double for the stt.Provider interface.
//
// Deltas are emitted on the returned channel as soon as a session
// starts; OnOpen and OnClose callbacks fire the way the real adapters
// fire them, exactly once per session.
package mock

import (
	"context"
	"sync"

	"github.com/voxmate/voxmate/pkg/provider"
	"github.com/voxmate/voxmate/pkg/provider/stt"
)

// StreamCall records a single invocation of TranscribeStream.
type StreamCall struct {
	// Ctx is the context passed to TranscribeStream.
	Ctx context.Context
	// Audio is the frame channel passed to TranscribeStream.
	Audio <-chan []byte
}

// Provider is a mock implementation of stt.Provider.
type Provider struct {
	mu sync.Mutex

	// --- Configurable behaviour ---

	// ServiceName is returned by Name. Defaults to "mock-stt".
	ServiceName string

	// ServicePriority is returned by Priority.
	ServicePriority int

	// Available is returned by CheckAvailability.
	Available bool

	// Deltas is the scripted sequence of text deltas for each session.
	Deltas []string

	// StreamErr, if non-nil, is returned from TranscribeStream instead
	// of a channel.
	StreamErr error

	// DrainAudio, when true, makes each session consume the audio
	// channel until it closes before emitting deltas and closing.
	DrainAudio bool

	// --- Call records (read after test) ---

	// StreamCalls records every invocation of TranscribeStream in order.
	StreamCalls []StreamCall

	// AvailabilityCalls counts CheckAvailability invocations.
	AvailabilityCalls int
}

var _ stt.Provider = (*Provider)(nil)

func (p *Provider) Name() string {
	if p.ServiceName == "" {
		return "mock-stt"
	}
	return p.ServiceName
}

func (p *Provider) Capability() provider.Capability { return provider.CapabilitySTT }
func (p *Provider) Priority() int                   { return p.ServicePriority }
func (p *Provider) ConfigString() string            { return "mock stt" }

func (p *Provider) CheckAvailability(context.Context) bool {
	p.mu.Lock()
	p.AvailabilityCalls++
	avail := p.Available
	p.mu.Unlock()
	return avail
}

// TranscribeStream records the call, fires OnOpen, emits the scripted
// deltas, fires OnClose, and closes the channel.
func (p *Provider) TranscribeStream(ctx context.Context, audio <-chan []byte, cb stt.Callbacks) (<-chan string, error) {
	p.mu.Lock()
	p.StreamCalls = append(p.StreamCalls, StreamCall{Ctx: ctx, Audio: audio})
	if p.StreamErr != nil {
		err := p.StreamErr
		p.mu.Unlock()
		return nil, err
	}
	deltas := append([]string(nil), p.Deltas...)
	drain := p.DrainAudio
	p.mu.Unlock()

	if cb.OnOpen != nil {
		cb.OnOpen()
	}
	out := make(chan string, len(deltas))
	go func() {
		defer close(out)
		defer func() {
			if cb.OnClose != nil {
				cb.OnClose()
			}
		}()
		if drain {
			for range audio {
			}
		}
		for _, d := range deltas {
			select {
			case out <- d:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
