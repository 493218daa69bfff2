// Package ollama implements llm.Provider against a remote Ollama
// server using its native API client: streaming chat over /api/chat
// and a model-presence check over /api/tags.
package ollama

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/ollama/ollama/api"
	"github.com/voxmate/voxmate/pkg/provider"
	"github.com/voxmate/voxmate/pkg/provider/llm"
)

// Option is a functional option for configuring the Provider.
type Option func(*Provider)

// WithLogger sets the logger. Defaults to [slog.Default].
func WithLogger(l *slog.Logger) Option {
	return func(p *Provider) { p.log = l }
}

// WithHTTPClient sets the HTTP client used for API calls.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) { p.http = c }
}

// Provider implements llm.Provider backed by an Ollama server.
type Provider struct {
	name     string
	endpoint string
	model    string
	priority int

	http   *http.Client
	client *api.Client
	log    *slog.Logger
}

var _ llm.Provider = (*Provider)(nil)

// New creates a Provider talking to the Ollama server at endpoint,
// always requesting the given model.
func New(name, endpoint, model string, priority int, opts ...Option) (*Provider, error) {
	base, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("ollama: parse endpoint %q: %w", endpoint, err)
	}
	if model == "" {
		return nil, fmt.Errorf("ollama: model must not be empty")
	}
	p := &Provider{
		name:     name,
		endpoint: endpoint,
		model:    model,
		priority: priority,
		http:     http.DefaultClient,
		log:      slog.Default(),
	}
	for _, o := range opts {
		o(p)
	}
	p.client = api.NewClient(base, p.http)
	return p, nil
}

func (p *Provider) Name() string                    { return p.name }
func (p *Provider) Capability() provider.Capability { return provider.CapabilityLLM }
func (p *Provider) Priority() int                   { return p.priority }

func (p *Provider) ConfigString() string {
	return fmt.Sprintf("Ollama %s: %s on %s", p.name, p.model, p.endpoint)
}

// CheckAvailability first probes the TCP port, then asks /api/tags
// whether the configured model is installed.
func (p *Provider) CheckAvailability(ctx context.Context) bool {
	if !provider.ProbeTCP(ctx, p.endpoint) {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, provider.ProbeTimeout)
	defer cancel()
	resp, err := p.client.List(ctx)
	if err != nil {
		p.log.Debug("model list request failed", "service", p.name, "err", err)
		return false
	}
	for _, m := range resp.Models {
		if m.Name == p.model {
			return true
		}
	}
	p.log.Warn("model not installed on server",
		"service", p.name, "model", p.model, "endpoint", p.endpoint)
	return false
}

// ChatStream sends the history to /api/chat and forwards the streamed
// response chunks.
func (p *Provider) ChatStream(ctx context.Context, history []llm.Message) (<-chan string, error) {
	msgs := make([]api.Message, len(history))
	for i, m := range history {
		msgs[i] = api.Message{Role: m.Role, Content: m.Content}
	}
	stream := true
	req := &api.ChatRequest{
		Model:    p.model,
		Messages: msgs,
		Stream:   &stream,
	}

	out := make(chan string, 16)
	go func() {
		defer close(out)
		err := p.client.Chat(ctx, req, func(resp api.ChatResponse) error {
			if resp.Message.Content == "" {
				return nil
			}
			select {
			case out <- resp.Message.Content:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		if err != nil && ctx.Err() == nil {
			p.log.Error("chat stream failed", "service", p.name, "err", err)
		}
	}()
	return out, nil
}
