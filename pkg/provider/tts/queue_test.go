package tts_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/voxmate/voxmate/pkg/provider/tts"
)

// recordingSynth collects synthesized sentences.
type recordingSynth struct {
	mu        sync.Mutex
	sentences []string
}

func (r *recordingSynth) synth(_ context.Context, sentence string) {
	r.mu.Lock()
	r.sentences = append(r.sentences, sentence)
	r.mu.Unlock()
}

func (r *recordingSynth) got() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.sentences...)
}

func TestQueue_ProcessesInOrder(t *testing.T) {
	t.Parallel()
	rec := &recordingSynth{}
	q := tts.NewQueue(rec.synth)
	defer q.Close()

	q.Speak("eins")
	q.Speak("zwei")
	q.Speak("drei")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := q.WaitUntilDone(ctx); err != nil {
		t.Fatalf("WaitUntilDone: %v", err)
	}

	got := rec.got()
	want := []string{"eins", "zwei", "drei"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sentence %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestQueue_StopDropsPendingAndCancelsInFlight(t *testing.T) {
	t.Parallel()
	started := make(chan struct{})
	cancelled := make(chan struct{})
	q := tts.NewQueue(func(ctx context.Context, sentence string) {
		if sentence == "lang" {
			close(started)
			<-ctx.Done()
			close(cancelled)
		}
	})
	defer q.Close()

	q.Speak("lang")
	<-started
	q.Speak("nie gesprochen")
	q.SetStop()

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("in-flight synthesis was not cancelled on stop")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := q.WaitUntilDone(ctx); err != nil {
		t.Fatalf("WaitUntilDone after stop: %v", err)
	}
}

func TestQueue_SpeakWhileStoppedIsDropped(t *testing.T) {
	t.Parallel()
	rec := &recordingSynth{}
	q := tts.NewQueue(rec.synth)
	defer q.Close()

	q.SetStop()
	q.Speak("verworfen")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := q.WaitUntilDone(ctx); err != nil {
		t.Fatalf("WaitUntilDone: %v", err)
	}
	if len(rec.got()) != 0 {
		t.Errorf("sentence spoken despite stop signal: %v", rec.got())
	}
}

func TestQueue_ClearStopReArms(t *testing.T) {
	t.Parallel()
	rec := &recordingSynth{}
	q := tts.NewQueue(rec.synth)
	defer q.Close()

	q.SetStop()
	q.ClearStop()
	q.Speak("wieder da")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := q.WaitUntilDone(ctx); err != nil {
		t.Fatalf("WaitUntilDone: %v", err)
	}
	got := rec.got()
	if len(got) != 1 || got[0] != "wieder da" {
		t.Errorf("got %v, want [wieder da]", got)
	}
}
