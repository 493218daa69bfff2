// Package openrouter implements llm.Provider against the hosted
// OpenRouter chat completion API. It serves as a cloud fallback when
// no local Ollama server is reachable.
package openrouter

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/voxmate/voxmate/pkg/provider"
	"github.com/voxmate/voxmate/pkg/provider/llm"
)

const defaultBaseURL = "https://openrouter.ai/api/v1"

// Option is a functional option for configuring the Provider.
type Option func(*Provider)

// WithLogger sets the logger. Defaults to [slog.Default].
func WithLogger(l *slog.Logger) Option {
	return func(p *Provider) { p.log = l }
}

// WithBaseURL overrides the API base URL, mainly for tests against a
// local stub.
func WithBaseURL(baseURL string) Option {
	return func(p *Provider) { p.baseURL = baseURL }
}

// WithHTTPClient sets the HTTP client used for API calls.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) { p.http = c }
}

// Provider implements llm.Provider backed by OpenRouter.
type Provider struct {
	name     string
	baseURL  string
	model    string
	apiKey   string
	priority int

	http   *http.Client
	client oai.Client
	log    *slog.Logger
}

var _ llm.Provider = (*Provider)(nil)

// New creates a Provider requesting the given model through the
// OpenRouter API. An empty apiKey is allowed but the provider will
// never report as available.
func New(name, model, apiKey string, priority int, opts ...Option) (*Provider, error) {
	if model == "" {
		return nil, fmt.Errorf("openrouter: model must not be empty")
	}
	p := &Provider{
		name:     name,
		baseURL:  defaultBaseURL,
		model:    model,
		apiKey:   apiKey,
		priority: priority,
		http:     http.DefaultClient,
		log:      slog.Default(),
	}
	for _, o := range opts {
		o(p)
	}
	if p.apiKey == "" {
		p.log.Warn("OpenRouter API key not set", "service", p.name)
	}
	p.client = oai.NewClient(
		option.WithAPIKey(p.apiKey),
		option.WithBaseURL(p.baseURL),
		option.WithHTTPClient(p.http),
	)
	return p, nil
}

func (p *Provider) Name() string                    { return p.name }
func (p *Provider) Capability() provider.Capability { return provider.CapabilityLLM }
func (p *Provider) Priority() int                   { return p.priority }

func (p *Provider) ConfigString() string {
	return fmt.Sprintf("OpenRouter GPT: %s, API URL: %s", p.model, p.baseURL)
}

// CheckAvailability asks the /models listing whether the API accepts
// our key. Without a key the provider is never available.
func (p *Provider) CheckAvailability(ctx context.Context) bool {
	if p.apiKey == "" {
		p.log.Debug("OpenRouter API key not set", "service", p.name)
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, provider.ProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/models", nil)
	if err != nil {
		return false
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	resp, err := p.http.Do(req)
	if err != nil {
		p.log.Debug("OpenRouter probe failed", "service", p.name, "err", err)
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		p.log.Warn("OpenRouter API probe rejected",
			"service", p.name, "status", resp.StatusCode)
		return false
	}
	return true
}

// ChatStream sends the history as a streaming chat completion and
// forwards the delta chunks.
func (p *Provider) ChatStream(ctx context.Context, history []llm.Message) (<-chan string, error) {
	msgs := make([]oai.ChatCompletionMessageParamUnion, len(history))
	for i, m := range history {
		switch m.Role {
		case llm.RoleSystem:
			msgs[i] = oai.SystemMessage(m.Content)
		case llm.RoleAssistant:
			msgs[i] = oai.AssistantMessage(m.Content)
		default:
			msgs[i] = oai.UserMessage(m.Content)
		}
	}

	stream := p.client.Chat.Completions.NewStreaming(ctx, oai.ChatCompletionNewParams{
		Model:    oai.ChatModel(p.model),
		Messages: msgs,
	})

	out := make(chan string, 16)
	go func() {
		defer close(out)
		defer stream.Close()
		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
				continue
			}
			select {
			case out <- chunk.Choices[0].Delta.Content:
			case <-ctx.Done():
				return
			}
		}
		if err := stream.Err(); err != nil && ctx.Err() == nil {
			p.log.Error("chat stream failed", "service", p.name, "err", err)
		}
	}()
	return out, nil
}
