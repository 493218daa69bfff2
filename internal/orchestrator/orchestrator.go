// Package orchestrator runs the outermost conversation loop: wake
// word, transcription, sanity gate, mode selection, streamed LLM
// answer, and sentence-by-sentence speech.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/voxmate/voxmate/internal/discovery"
	"github.com/voxmate/voxmate/internal/observe"
	"github.com/voxmate/voxmate/internal/prompt"
	"github.com/voxmate/voxmate/internal/textutil"
	"github.com/voxmate/voxmate/pkg/provider"
	"github.com/voxmate/voxmate/pkg/provider/llm"
)

// defaultHistoryLimit is the token budget one mode history may occupy
// before the reduction strategy kicks in.
const defaultHistoryLimit = 4096

// SpeechAgent is the spoken surface the orchestrator drives. The
// speech agent satisfies it.
type SpeechAgent interface {
	WarmupCache(ctx context.Context) error
	SayInitGreeting(ctx context.Context) error
	WaitUntilTalkingFinished(ctx context.Context) error
	GetHumanInput(ctx context.Context, waitForWakeword bool) (<-chan string, error)
	SayBye(ctx context.Context, message string)
	SayDidNotUnderstand()
	Say(message string)
	BeepError()
	ProcessingSound()
	StartSpeechInterrupt(ctx context.Context)
	StopSpeechInterrupt()
	WasInterrupted() bool
}

// Registry is the service lookup the orchestrator needs. The discovery
// registry satisfies it.
type Registry interface {
	Best(capability provider.Capability) (provider.Service, error)
}

// turnResult tells the loop how to continue after a turn.
type turnResult int

const (
	// turnContinue starts the next turn with the wake word required.
	turnContinue turnResult = iota
	// turnRetry re-opens recording immediately, no wake word needed.
	turnRetry
	// turnDone ends the conversation and shuts the assistant down.
	turnDone
)

// Option configures a new Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger. Defaults to [slog.Default].
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.log = l }
}

// WithHistoryLimit overrides the per-mode history token budget.
func WithHistoryLimit(limit int) Option {
	return func(o *Orchestrator) { o.historyLimit = limit }
}

// WithMetrics injects the metric instruments. Defaults to
// [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// Orchestrator owns the conversation loop.
type Orchestrator struct {
	log          *slog.Logger
	agent        SpeechAgent
	registry     Registry
	prompts      *prompt.Manager
	metrics      *observe.Metrics
	historyLimit int
}

// New creates an Orchestrator over the speech agent, the service
// registry, and the prompt manager.
func New(agent SpeechAgent, registry Registry, prompts *prompt.Manager, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		log:          slog.Default(),
		agent:        agent,
		registry:     registry,
		prompts:      prompts,
		historyLimit: defaultHistoryLimit,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.metrics == nil {
		o.metrics = observe.DefaultMetrics()
	}
	return o
}

func (o *Orchestrator) bestLLM() (llm.Provider, error) {
	svc, err := o.registry.Best(provider.CapabilityLLM)
	if err != nil {
		return nil, err
	}
	p, ok := svc.(llm.Provider)
	if !ok {
		return nil, fmt.Errorf("orchestrator: service %q does not chat", svc.Name())
	}
	return p, nil
}

// Run warms the phrase cache concurrently with the initial greeting,
// then loops over conversation turns until the user says goodbye, a
// required capability disappears for good, or ctx ends.
func (o *Orchestrator) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return o.agent.WarmupCache(gctx) })
	g.Go(func() error { return o.agent.SayInitGreeting(gctx) })
	if err := g.Wait(); err != nil {
		return fmt.Errorf("orchestrator: startup: %w", err)
	}
	if err := o.agent.WaitUntilTalkingFinished(ctx); err != nil {
		return err
	}

	o.log.Info("starting to listen")
	wakeRequired := true
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		res, err := o.turn(ctx, wakeRequired)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			if errors.Is(err, discovery.ErrNoProvider) {
				return err
			}
			o.log.Error("turn failed", "error", err)
			wakeRequired = true
			continue
		}
		switch res {
		case turnDone:
			return nil
		case turnRetry:
			wakeRequired = false
		default:
			wakeRequired = true
		}
	}
}

// turn handles one user utterance end to end.
func (o *Orchestrator) turn(ctx context.Context, wakeRequired bool) (turnResult, error) {
	deltas, err := o.agent.GetHumanInput(ctx, wakeRequired)
	if err != nil {
		return turnContinue, err
	}
	started := time.Now()
	var full strings.Builder
	for d := range deltas {
		o.log.Debug("transcript delta", "text", d)
		full.WriteString(d)
	}
	text := strings.TrimSpace(full.String())
	o.metrics.TranscriptionDuration.Record(ctx, time.Since(started).Seconds())
	o.log.Info("transcript complete", "text", text)

	if !textutil.IsSaneGermanInput(text) {
		o.log.Info("transcript rejected as garbage", "text", text)
		o.metrics.GarbageInputs.Add(ctx, 1)
		o.agent.BeepError()
		return turnRetry, nil
	}

	if textutil.IsConversationEnding(text) {
		o.agent.SayBye(ctx, "")
		_ = o.agent.WaitUntilTalkingFinished(ctx)
		return turnDone, nil
	}

	mode := o.selectMode(ctx, text)
	switch mode {
	case prompt.ModeExit:
		o.agent.SayBye(ctx, "")
		_ = o.agent.WaitUntilTalkingFinished(ctx)
		return turnDone, nil
	case prompt.ModeGarbageInput:
		o.agent.SayDidNotUnderstand()
		return turnContinue, nil
	default:
		if err := o.prompts.SetMode(mode); err != nil {
			return turnContinue, err
		}
	}

	o.agent.ProcessingSound()

	turnCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	o.agent.StartSpeechInterrupt(ctx)
	defer o.agent.StopSpeechInterrupt()

	sentences, err := o.askLLM(turnCtx, text)
	if err != nil {
		return turnContinue, err
	}
	for sentence := range sentences {
		if o.agent.WasInterrupted() {
			cancel()
			for range sentences {
			}
			o.log.Info("answer aborted by wake word")
			return turnContinue, nil
		}
		o.log.Info("speaking sentence", "sentence", sentence)
		o.agent.Say(sentence)
	}

	if err := o.agent.WaitUntilTalkingFinished(ctx); err != nil {
		return turnContinue, err
	}
	o.metrics.RecordTurn(ctx, string(o.prompts.Mode()))
	return turnContinue, nil
}

// selectMode runs the one-shot mode-selection round. Any failure falls
// back to CHAT so a flaky model cannot wedge the conversation.
func (o *Orchestrator) selectMode(ctx context.Context, text string) prompt.Mode {
	p, err := o.bestLLM()
	if err != nil {
		o.log.Warn("mode selection skipped", "error", err)
		return prompt.ModeChat
	}
	history := []llm.Message{
		{Role: llm.RoleSystem, Content: prompt.TemplateFor(prompt.ModeModusSelection).SystemPrompt},
		{Role: llm.RoleUser, Content: text},
	}
	chunks, err := p.ChatStream(ctx, history)
	if err != nil {
		o.log.Warn("mode selection failed", "error", err)
		return prompt.ModeChat
	}
	var reply strings.Builder
	for c := range chunks {
		reply.WriteString(c)
	}
	mode := prompt.ParseModeReply(reply.String())
	o.log.Info("mode selected", "mode", mode, "reply", strings.TrimSpace(reply.String()))
	return mode
}

// askLLM appends the user entry, streams the model's answer, and
// yields complete speakable sentences. The full accumulated response
// is appended as the assistant entry before the channel closes.
func (o *Orchestrator) askLLM(ctx context.Context, text string) (<-chan string, error) {
	o.prompts.AddUserEntry(text)
	o.prompts.ReduceHistory(o.historyLimit)

	p, err := o.bestLLM()
	if err != nil {
		return nil, err
	}
	chunks, err := p.ChatStream(ctx, o.prompts.History())
	if err != nil {
		return nil, err
	}

	out := make(chan string)
	started := time.Now()
	go func() {
		defer close(out)
		var response, buffer string
		emit := func(sentence string) bool {
			sentence = strings.TrimSpace(textutil.StripSymbols(sentence))
			if !textutil.HasSpeakableContent(sentence) {
				return true
			}
			select {
			case out <- sentence:
				return true
			case <-ctx.Done():
				return false
			}
		}
		for chunk := range chunks {
			chunk = textutil.CleanMarkdown(chunk)
			response += chunk
			buffer += chunk
			complete, rest := textutil.SplitCompleteSentences(buffer)
			buffer = rest
			for _, s := range complete {
				if !emit(s) {
					buffer = ""
					break
				}
			}
		}
		emit(buffer)
		o.metrics.LLMDuration.Record(context.WithoutCancel(ctx), time.Since(started).Seconds())
		o.prompts.AddAssistantEntry(response)
	}()
	return out, nil
}
