// Package llm defines the Provider interface for streaming chat
// language-model backends and the message type shared with the prompt
// manager.
package llm

import (
	"context"

	"github.com/voxmate/voxmate/pkg/provider"
)

// Chat roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry of a chat history.
type Message struct {
	Role    string
	Content string
}

// Provider is the abstraction over a streaming chat backend.
type Provider interface {
	provider.Service

	// ChatStream sends the full history and returns a channel of raw
	// response chunks in arrival order. The channel is closed when the
	// model finishes, ctx is cancelled, or the transport fails.
	ChatStream(ctx context.Context, history []Message) (<-chan string, error)
}
