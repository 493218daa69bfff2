package audio

import (
	"context"
	"testing"
	"time"
)

// drainPlayer keeps running the device callback until the player goes
// idle or the deadline passes.
func drainPlayer(t *testing.T, p *player) {
	t.Helper()
	buf := make([]int16, FramesPerBuffer)
	deadline := time.Now().Add(5 * time.Second)
	for !p.idle() {
		if time.Now().After(deadline) {
			t.Fatal("player did not drain in time")
		}
		p.fill(buf)
	}
}

func allZero(s []int16) bool {
	for _, v := range s {
		if v != 0 {
			return false
		}
	}
	return true
}

func TestPlayerFill_PlaysQueuedBuffer(t *testing.T) {
	t.Parallel()
	p := &player{}
	p.enqueue(SampleRate, []int16{1, 2, 3, 4})

	out := make([]int16, 8)
	p.fill(out)
	want := []int16{1, 2, 3, 4, 0, 0, 0, 0}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("frame %d: got %d, want %d", i, out[i], want[i])
		}
	}
}

func TestPlayerFill_OneSecondSilenceBetweenItems(t *testing.T) {
	t.Parallel()
	p := &player{}
	p.enqueue(SampleRate, []int16{7, 7})
	p.enqueue(SampleRate, []int16{9, 9})

	out := make([]int16, 2)
	p.fill(out) // first item

	// The next full second of frames must be silence.
	silent := 0
	buf := make([]int16, FramesPerBuffer)
	for silent < SampleRate {
		n := min(FramesPerBuffer, SampleRate-silent)
		p.fill(buf[:n])
		if !allZero(buf[:n]) {
			t.Fatalf("expected silence %d frames after item end, got audio", silent)
		}
		silent += n
	}

	p.fill(out) // second item starts only now
	if out[0] != 9 || out[1] != 9 {
		t.Errorf("after silence window: got %v, want [9 9]", out)
	}
}

func TestPlayerIdle_CountsTrailingSilence(t *testing.T) {
	t.Parallel()
	p := &player{}
	p.enqueue(SampleRate, []int16{1, 2})

	out := make([]int16, 4)
	p.fill(out) // the buffer finishes, silence is now owed

	if p.idle() {
		t.Fatal("player reported idle while inter-item silence is still playing")
	}
	drainPlayer(t, p)
	p.mu.Lock()
	silence := p.silence
	p.mu.Unlock()
	if silence != 0 {
		t.Errorf("player went idle with %d silent frames left", silence)
	}
}

func TestPlayerFill_StopDiscardsEverything(t *testing.T) {
	t.Parallel()
	p := &player{}
	p.enqueue(SampleRate, make([]int16, 4*FramesPerBuffer))
	p.enqueue(SampleRate, make([]int16, 4*FramesPerBuffer))

	out := make([]int16, FramesPerBuffer)
	p.fill(out) // partially into the first item
	p.setStop()
	p.fill(out)
	if !allZero(out) {
		t.Error("output after stop must be silence")
	}
	if !p.idle() {
		t.Error("queue and current buffer must be discarded on stop")
	}
}

func TestPlayerFill_PadsSilenceWhenEmpty(t *testing.T) {
	t.Parallel()
	p := &player{}
	out := make([]int16, FramesPerBuffer)
	out[0] = 42
	p.fill(out)
	if !allZero(out) {
		t.Error("an empty player must emit silence")
	}
}

func TestPlayerDepthHook_TracksQueueChanges(t *testing.T) {
	t.Parallel()
	depth := 0
	p := &player{depth: func(d int) { depth += d }}

	p.enqueue(SampleRate, []int16{1, 2})
	p.enqueue(SampleRate, []int16{3, 4})
	if depth != 2 {
		t.Fatalf("depth after enqueues = %d, want 2", depth)
	}

	drainPlayer(t, p)
	if depth != 0 {
		t.Fatalf("depth after playback = %d, want 0", depth)
	}

	// A stop discards the queue and the buffer in flight in one go.
	p.enqueue(SampleRate, make([]int16, 4*FramesPerBuffer))
	p.enqueue(SampleRate, make([]int16, 4*FramesPerBuffer))
	buf := make([]int16, FramesPerBuffer)
	p.fill(buf) // partially into the first item
	p.setStop()
	p.fill(buf)
	if depth != 0 {
		t.Errorf("depth after stop = %d, want 0", depth)
	}
}

func TestPlayerEnqueue_ResamplesToEngineRate(t *testing.T) {
	t.Parallel()
	p := &player{}
	p.enqueue(8000, make([]int16, 100))
	p.mu.Lock()
	got := len(p.queue[0])
	p.mu.Unlock()
	if got != 200 {
		t.Errorf("resampled length: got %d, want 200", got)
	}
}

func TestPlayerWaitFinished_ReturnsAfterGraceWindow(t *testing.T) {
	t.Parallel()
	p := &player{}
	p.enqueue(SampleRate, []int16{1, 2, 3})
	go func() {
		buf := make([]int16, FramesPerBuffer)
		for !p.idle() {
			p.fill(buf)
			time.Sleep(time.Millisecond)
		}
	}()

	start := time.Now()
	if err := p.waitFinished(context.Background()); err != nil {
		t.Fatalf("waitFinished: %v", err)
	}
	if elapsed := time.Since(start); elapsed < time.Second {
		t.Errorf("returned after %v, want at least the 1s grace window", elapsed)
	}
}

func TestPlayerWaitFinished_CancelledContext(t *testing.T) {
	t.Parallel()
	p := &player{}
	p.enqueue(SampleRate, make([]int16, SampleRate)) // never drained
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := p.waitFinished(ctx); err == nil {
		t.Error("expected a context error while playback is stuck")
	}
}
