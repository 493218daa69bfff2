package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/voxmate/voxmate/pkg/provider/llm"
	"github.com/voxmate/voxmate/pkg/provider/stt"
	"github.com/voxmate/voxmate/pkg/provider/tts"
)

// ErrAdapterNotRegistered is returned by Create* methods when no
// factory has been registered under the entry's base class.
var ErrAdapterNotRegistered = errors.New("config: adapter not registered")

// AdapterName reduces a manifest base_class path to the registry key:
// the last dotted segment, e.g.
// "mate.services.stt.stt_whisper_remote.STTWhisperRemote" →
// "STTWhisperRemote".
func AdapterName(baseClass string) string {
	if i := strings.LastIndexByte(baseClass, '.'); i >= 0 {
		return baseClass[i+1:]
	}
	return baseClass
}

// Registry maps adapter names to their constructor functions per
// capability. It is safe for concurrent use.
type Registry struct {
	mu  sync.RWMutex
	llm map[string]func(ServiceEntry) (llm.Provider, error)
	stt map[string]func(ServiceEntry) (stt.Provider, error)
	tts map[string]func(ServiceEntry) (tts.Provider, error)
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		llm: make(map[string]func(ServiceEntry) (llm.Provider, error)),
		stt: make(map[string]func(ServiceEntry) (stt.Provider, error)),
		tts: make(map[string]func(ServiceEntry) (tts.Provider, error)),
	}
}

// RegisterLLM registers an LLM adapter factory under name. Subsequent
// calls with the same name overwrite the previous registration.
func (r *Registry) RegisterLLM(name string, factory func(ServiceEntry) (llm.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.llm[name] = factory
}

// RegisterSTT registers an STT adapter factory under name.
func (r *Registry) RegisterSTT(name string, factory func(ServiceEntry) (stt.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stt[name] = factory
}

// RegisterTTS registers a TTS adapter factory under name.
func (r *Registry) RegisterTTS(name string, factory func(ServiceEntry) (tts.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tts[name] = factory
}

// CreateLLM instantiates the LLM adapter selected by entry.BaseClass.
// Returns [ErrAdapterNotRegistered] if none is registered.
func (r *Registry) CreateLLM(entry ServiceEntry) (llm.Provider, error) {
	r.mu.RLock()
	factory, ok := r.llm[AdapterName(entry.BaseClass)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: llm/%q", ErrAdapterNotRegistered, entry.BaseClass)
	}
	return factory(entry)
}

// CreateSTT instantiates the STT adapter selected by entry.BaseClass.
func (r *Registry) CreateSTT(entry ServiceEntry) (stt.Provider, error) {
	r.mu.RLock()
	factory, ok := r.stt[AdapterName(entry.BaseClass)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: stt/%q", ErrAdapterNotRegistered, entry.BaseClass)
	}
	return factory(entry)
}

// CreateTTS instantiates the TTS adapter selected by entry.BaseClass.
func (r *Registry) CreateTTS(entry ServiceEntry) (tts.Provider, error) {
	r.mu.RLock()
	factory, ok := r.tts[AdapterName(entry.BaseClass)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: tts/%q", ErrAdapterNotRegistered, entry.BaseClass)
	}
	return factory(entry)
}
