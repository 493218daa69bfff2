package audio

import (
	"context"
	"sync/atomic"
	"time"
)

// recorder is the capture half of the engine. The device callback runs
// for the whole engine lifetime; frames are only forwarded while a
// record stream is active, everything else is dropped on the floor.
type recorder struct {
	active atomic.Bool
	stop   atomic.Bool
	queue  chan []byte
}

func newRecorder() *recorder {
	return &recorder{queue: make(chan []byte, 64)}
}

// capture is the device callback. It copies the frame out of the
// callback buffer (PortAudio reuses it) and enqueues it without ever
// blocking; a full queue drops the frame.
func (r *recorder) capture(in []int16) {
	if !r.active.Load() || r.stop.Load() {
		return
	}
	select {
	case r.queue <- Int16ToBytes(in):
	default:
	}
}

// begin arms the capture gate for a new record stream.
func (r *recorder) begin() {
	r.stop.Store(false)
	r.active.Store(true)
}

// end disarms the gate and empties the queue so the next stream starts
// clean.
func (r *recorder) end() {
	r.active.Store(false)
	r.drain()
}

func (r *recorder) drain() {
	for {
		select {
		case <-r.queue:
		default:
			return
		}
	}
}

// stream forwards captured frames to the returned channel until ctx is
// cancelled or the stop signal is raised. The channel is closed when
// the stream ends; by then the gate is down and the queue is empty.
func (r *recorder) stream(ctx context.Context) <-chan []byte {
	r.begin()
	out := make(chan []byte, 16)
	go func() {
		defer close(out)
		defer r.end()
		poll := time.NewTicker(10 * time.Millisecond)
		defer poll.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case chunk := <-r.queue:
				// The consumer may have stopped reading; a blocked
				// send must still honour the stop signal.
			send:
				for {
					select {
					case out <- chunk:
						break send
					case <-ctx.Done():
						return
					case <-poll.C:
						if r.stop.Load() {
							return
						}
					}
				}
			case <-poll.C:
				if r.stop.Load() {
					return
				}
			}
		}
	}()
	return out
}
