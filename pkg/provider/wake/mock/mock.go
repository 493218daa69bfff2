// Package mock provides a test double for the wake.Listener interface.
package mock

import (
	"context"
	"sync"

	"github.com/voxmate/voxmate/pkg/provider/wake"
)

// Listener is a mock implementation of wake.Listener. By default a
// detection is reported as soon as the first frame arrives; set Detect
// to script it.
type Listener struct {
	mu sync.Mutex

	// Word is returned by WakeWord. Defaults to "computer".
	Word string

	// Detect, if non-nil, is called with each incoming frame and
	// reports whether the wake word was heard.
	Detect func(frame []byte) bool

	// Err, if non-nil, is returned from Listen immediately.
	Err error

	// ListenCalls counts Listen invocations.
	ListenCalls int

	// CloseCalls counts Close invocations.
	CloseCalls int
}

var _ wake.Listener = (*Listener)(nil)

func (l *Listener) WakeWord() string {
	if l.Word == "" {
		return "computer"
	}
	return l.Word
}

func (l *Listener) ConfigString() string { return "mock wake listener" }

func (l *Listener) Listen(ctx context.Context, frames <-chan []byte) error {
	l.mu.Lock()
	l.ListenCalls++
	err := l.Err
	detect := l.Detect
	l.mu.Unlock()
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case frame, ok := <-frames:
			if !ok {
				return context.Canceled
			}
			if detect == nil || detect(frame) {
				return nil
			}
		}
	}
}

func (l *Listener) Close() error {
	l.mu.Lock()
	l.CloseCalls++
	l.mu.Unlock()
	return nil
}
