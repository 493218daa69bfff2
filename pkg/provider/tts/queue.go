package tts

import (
	"context"
	"sync"
	"time"
)

// Queue runs the background sentence worker shared by Provider
// implementations. The synth function does the actual work; it must
// respect its context, which is cancelled when the stop signal fires.
type Queue struct {
	mu       sync.Mutex
	cond     *sync.Cond
	pending  []string
	speaking bool
	stopped  bool
	closed   bool
	cancel   context.CancelFunc

	synth func(ctx context.Context, sentence string)
}

// NewQueue creates a queue and starts its worker goroutine.
func NewQueue(synth func(ctx context.Context, sentence string)) *Queue {
	q := &Queue{synth: synth}
	q.cond = sync.NewCond(&q.mu)
	go q.run()
	return q
}

func (q *Queue) run() {
	for {
		q.mu.Lock()
		for len(q.pending) == 0 && !q.closed {
			q.cond.Wait()
		}
		if q.closed {
			q.mu.Unlock()
			return
		}
		sentence := q.pending[0]
		q.pending = q.pending[1:]
		if q.stopped {
			q.mu.Unlock()
			continue
		}
		ctx, cancel := context.WithCancel(context.Background())
		q.cancel = cancel
		q.speaking = true
		q.mu.Unlock()

		q.synth(ctx, sentence)
		cancel()

		q.mu.Lock()
		q.speaking = false
		q.cancel = nil
		q.mu.Unlock()
	}
}

// Speak queues a sentence. Dropped while the stop signal is raised.
func (q *Queue) Speak(sentence string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.stopped || q.closed {
		return
	}
	q.pending = append(q.pending, sentence)
	q.cond.Broadcast()
}

// SetStop raises the stop signal: the queue is emptied and the
// synthesis in flight is cancelled.
func (q *Queue) SetStop() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.stopped = true
	q.pending = nil
	if q.cancel != nil {
		q.cancel()
	}
	q.cond.Broadcast()
}

// ClearStop lowers the stop signal so new sentences are accepted.
func (q *Queue) ClearStop() {
	q.mu.Lock()
	q.stopped = false
	q.mu.Unlock()
}

// WaitUntilDone blocks until the queue is empty and the worker idle.
func (q *Queue) WaitUntilDone(ctx context.Context) error {
	for {
		q.mu.Lock()
		idle := len(q.pending) == 0 && !q.speaking
		q.mu.Unlock()
		if idle {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(20 * time.Millisecond):
		}
	}
}

// Close shuts the worker down. The queue cannot be reused afterwards.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	if q.cancel != nil {
		q.cancel()
	}
	q.cond.Broadcast()
	q.mu.Unlock()
}
