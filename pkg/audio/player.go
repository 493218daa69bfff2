package audio

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// interItemSilence is the number of silent frames emitted after every
// finished playback buffer (one second at the engine rate).
const interItemSilence = SampleRate

// player is the playback half of the engine: a FIFO of mono int16
// buffers, already resampled to the engine rate, consumed by the device
// callback. The callback never blocks and never allocates.
type player struct {
	mu      sync.Mutex
	queue   [][]int16
	current []int16
	pos     int
	silence int // silent frames still owed after the last buffer

	stop atomic.Bool

	// depth, when set, observes queue depth changes: +1 per enqueued
	// item, -1 when an item finishes or is discarded. Must not block.
	depth func(delta int)
}

func (p *player) reportDepth(delta int) {
	if p.depth != nil {
		p.depth(delta)
	}
}

// enqueue appends a buffer to the playback queue, resampling it to the
// engine rate. Empty buffers are ignored.
func (p *player) enqueue(sampleRate int, samples []int16) {
	if len(samples) == 0 {
		return
	}
	samples = Resample(samples, sampleRate, SampleRate)
	p.mu.Lock()
	p.queue = append(p.queue, samples)
	p.mu.Unlock()
	p.reportDepth(1)
}

// setStop raises the stop signal. The next callback run discards the
// queue and the buffer in flight and outputs silence from then on.
func (p *player) setStop() { p.stop.Store(true) }

// clearStop lowers the stop signal so newly enqueued audio plays again.
func (p *player) clearStop() { p.stop.Store(false) }

// idle reports whether the queue is empty, no buffer is in flight, and
// no trailing inter-item silence is still owed.
func (p *player) idle() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue) == 0 && p.current == nil && p.silence == 0
}

// fill is the device callback. It drains the current buffer, owes one
// second of silence after it, then moves on to the next queued buffer;
// whatever cannot be filled is padded with silence.
func (p *player) fill(out []int16) {
	if p.stop.Load() {
		p.mu.Lock()
		discarded := len(p.queue)
		if p.current != nil {
			discarded++
		}
		p.queue = nil
		p.current = nil
		p.pos = 0
		p.silence = 0
		p.mu.Unlock()
		if discarded > 0 {
			p.reportDepth(-discarded)
		}
		zero(out)
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	i := 0
	for i < len(out) {
		switch {
		case p.current != nil:
			n := copy(out[i:], p.current[p.pos:])
			p.pos += n
			i += n
			if p.pos >= len(p.current) {
				p.current = nil
				p.pos = 0
				p.silence = interItemSilence
				p.reportDepth(-1)
			}
		case p.silence > 0:
			n := min(p.silence, len(out)-i)
			zero(out[i : i+n])
			i += n
			p.silence -= n
		case len(p.queue) > 0:
			p.current = p.queue[0]
			p.queue = p.queue[1:]
			p.pos = 0
		default:
			zero(out[i:])
			i = len(out)
		}
	}
}

// waitFinished blocks until the playback queue stays empty for a full
// one-second observation window. A buffer arriving inside the window
// restarts the wait.
func (p *player) waitFinished(ctx context.Context) error {
	const (
		drainPoll  = 100 * time.Millisecond
		windowPoll = 50 * time.Millisecond
		window     = time.Second
	)
	for {
		for !p.idle() {
			if err := sleep(ctx, drainPoll); err != nil {
				return err
			}
		}
		deadline := time.Now().Add(window)
		settled := true
		for time.Now().Before(deadline) {
			if !p.idle() {
				settled = false
				break
			}
			if err := sleep(ctx, windowPoll); err != nil {
				return err
			}
		}
		if settled {
			return nil
		}
	}
}

func zero(s []int16) {
	for i := range s {
		s[i] = 0
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
