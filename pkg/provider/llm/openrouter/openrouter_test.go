package openrouter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestProviderContract(t *testing.T) {
	t.Parallel()
	p, err := New("cloud-gpt", "openai/gpt-4o-mini", "sk-or-test", 10)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.Capability() != "LLM" {
		t.Errorf("capability: got %s", p.Capability())
	}
	if p.Priority() != 10 {
		t.Errorf("priority: got %d", p.Priority())
	}
	if !strings.Contains(p.ConfigString(), "openai/gpt-4o-mini") {
		t.Errorf("config string must carry the model: %q", p.ConfigString())
	}
}

func TestNew_RejectsEmptyModel(t *testing.T) {
	t.Parallel()
	if _, err := New("x", "", "key", 1); err == nil {
		t.Error("expected an error for an empty model")
	}
}

func TestCheckAvailability_FalseWithoutKey(t *testing.T) {
	t.Parallel()
	p, err := New("cloud-gpt", "openai/gpt-4o-mini", "", 10)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.CheckAvailability(context.Background()) {
		t.Error("a keyless provider must never be available")
	}
}

func TestCheckAvailability_ProbesModelsEndpoint(t *testing.T) {
	t.Parallel()
	var gotPath, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p, err := New("cloud-gpt", "openai/gpt-4o-mini", "sk-or-test", 10, WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !p.CheckAvailability(context.Background()) {
		t.Fatal("expected availability against a 200 endpoint")
	}
	if gotPath != "/models" {
		t.Errorf("probe path = %q, want /models", gotPath)
	}
	if gotAuth != "Bearer sk-or-test" {
		t.Errorf("auth header = %q", gotAuth)
	}
}

func TestCheckAvailability_FalseOnRejectedKey(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	p, err := New("cloud-gpt", "openai/gpt-4o-mini", "bad-key", 10, WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.CheckAvailability(context.Background()) {
		t.Error("a rejected key must not report availability")
	}
}

func TestChatStream_ForwardsDeltas(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		const events = `data: {"id":"1","choices":[{"index":0,"delta":{"content":"Hallo"}}]}` + "\n\n" +
			`data: {"id":"1","choices":[{"index":0,"delta":{"content":" Welt!"}}]}` + "\n\n" +
			"data: [DONE]\n\n"
		_, _ = w.Write([]byte(events))
	}))
	defer srv.Close()

	p, err := New("cloud-gpt", "openai/gpt-4o-mini", "sk-or-test", 10, WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	chunks, err := p.ChatStream(context.Background(), nil)
	if err != nil {
		t.Fatalf("ChatStream: %v", err)
	}
	var got strings.Builder
	for c := range chunks {
		got.WriteString(c)
	}
	if got.String() != "Hallo Welt!" {
		t.Errorf("streamed %q, want %q", got.String(), "Hallo Welt!")
	}
}
