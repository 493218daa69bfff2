// Command voxmate is the German voice assistant: wake word in, spoken
// answer out.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/voxmate/voxmate/internal/config"
	"github.com/voxmate/voxmate/internal/discovery"
	"github.com/voxmate/voxmate/internal/observe"
	"github.com/voxmate/voxmate/internal/orchestrator"
	"github.com/voxmate/voxmate/internal/prompt"
	"github.com/voxmate/voxmate/internal/speech"
	"github.com/voxmate/voxmate/pkg/audio"
	"github.com/voxmate/voxmate/pkg/provider"
	"github.com/voxmate/voxmate/pkg/provider/llm"
	"github.com/voxmate/voxmate/pkg/provider/llm/ollama"
	"github.com/voxmate/voxmate/pkg/provider/llm/openrouter"
	"github.com/voxmate/voxmate/pkg/provider/stt"
	"github.com/voxmate/voxmate/pkg/provider/stt/whisperws"
	"github.com/voxmate/voxmate/pkg/provider/tts"
	"github.com/voxmate/voxmate/pkg/provider/tts/openaispeech"
	"github.com/voxmate/voxmate/pkg/provider/wake/porcupine"
)

// picovoiceModelDir holds the Porcupine keyword and language models.
const picovoiceModelDir = "picovoice"

var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	manifestPath := flag.String("services", config.DefaultManifestPath,
		"path to the YAML service manifest")
	flag.Parse()

	// ── Environment ────────────────────────────────────────────────────────────
	env, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "voxmate: %v\n", err)
		return 1
	}

	// ── Logger ─────────────────────────────────────────────────────────────────
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: env.LogLevel.SlogLevel(),
	}))
	slog.SetDefault(logger)

	slog.Info("voxmate starting",
		"version", version,
		"services", *manifestPath,
		"wake_word", env.WakeWord,
		"log_level", env.LogLevel,
	)

	// ── Service manifest ───────────────────────────────────────────────────────
	manifest, err := config.LoadManifest(*manifestPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "voxmate: service manifest %q not found — start from the shipped remote_services.yml\n", *manifestPath)
		} else {
			fmt.Fprintf(os.Stderr, "voxmate: %v\n", err)
		}
		return 1
	}

	// ── Signal context ─────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ──────────────────────────────────────────────────────────────
	shutdownTelemetry, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceVersion: version,
		MetricsAddr:    env.MetricsAddr,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Audio engine ───────────────────────────────────────────────────────────
	metrics := observe.DefaultMetrics()
	engine, err := audio.NewEngine(
		audio.WithMicrophoneDevice(env.MicrophoneDevice),
		audio.WithPlaybackDevice(env.PlaybackDevice),
		audio.WithPlaybackDepthHook(func(delta int) {
			metrics.PlaybackQueueDepth.Add(context.Background(), int64(delta))
		}),
	)
	if err != nil {
		slog.Error("failed to open audio devices", "err", err)
		return 1
	}
	defer func() {
		if err := engine.Close(); err != nil {
			slog.Warn("audio engine close error", "err", err)
		}
	}()

	// ── Service adapters ───────────────────────────────────────────────────────
	factories := config.NewRegistry()
	registerBuiltinAdapters(factories, env, engine)

	services, err := buildServices(manifest, factories)
	if err != nil {
		slog.Error("failed to build services", "err", err)
		return 1
	}
	defer closeServices(services)

	// ── Wake word detector ─────────────────────────────────────────────────────
	detector, err := porcupine.New(env.WakeWord, env.WakeWordThreshold,
		env.PicovoiceAccessKey, picovoiceModelDir)
	if err != nil {
		slog.Error("failed to initialise wake word detector", "err", err)
		return 1
	}
	defer func() {
		if err := detector.Close(); err != nil {
			slog.Warn("wake word detector close error", "err", err)
		}
	}()

	// ── Discovery, speech agent, prompt manager ────────────────────────────────
	registry := discovery.NewRegistry(services)
	registry.Start(ctx)
	defer registry.Stop()

	agent := speech.NewAgent(engine, registry, detector)

	prompts, err := prompt.NewManager(prompt.ModeChat)
	if err != nil {
		slog.Error("failed to initialise prompt manager", "err", err)
		return 1
	}

	printStartupSummary(env, manifest)

	// ── Conversation loop ──────────────────────────────────────────────────────
	o := orchestrator.New(agent, registry, prompts)

	slog.Info("assistant ready — press Ctrl+C to shut down")
	if err := o.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	engine.StopRecording()
	engine.StopPlayback()
	slog.Info("goodbye")
	return 0
}

// ── Adapter wiring ────────────────────────────────────────────────────────────

// registerBuiltinAdapters wires the shipped adapter constructors into
// the factory registry, keyed by the manifest base_class names.
func registerBuiltinAdapters(reg *config.Registry, env *config.Env, sink tts.AudioSink) {
	reg.RegisterLLM("LlmOllamaRemote", func(entry config.ServiceEntry) (llm.Provider, error) {
		endpoint := entry.Endpoint
		if endpoint == "" {
			endpoint = env.LLMEndpoint
		}
		return ollama.New(entry.Name, endpoint, entry.OllamaModel, entry.Priority)
	})

	reg.RegisterLLM("LlmOpenrouterGpt", func(entry config.ServiceEntry) (llm.Provider, error) {
		model := optString(entry.Extra, "model")
		if model == "" {
			model = entry.OllamaModel
		}
		var opts []openrouter.Option
		if entry.Endpoint != "" {
			opts = append(opts, openrouter.WithBaseURL(entry.Endpoint))
		}
		return openrouter.New(entry.Name, model, env.OpenRouterAPIKey, entry.Priority, opts...)
	})

	reg.RegisterSTT("STTWhisperRemote", func(entry config.ServiceEntry) (stt.Provider, error) {
		endpoint := entry.Endpoint
		if endpoint == "" {
			endpoint = env.STTEndpoint
		}
		return whisperws.New(entry.Name, endpoint, entry.Priority)
	})

	reg.RegisterTTS("TTSOpenedAISpeech", func(entry config.ServiceEntry) (tts.Provider, error) {
		endpoint := entry.Endpoint
		if endpoint == "" {
			endpoint = env.TTSEndpoint
		}
		var opts []openaispeech.Option
		if entry.Voice != "" {
			opts = append(opts, openaispeech.WithVoice(entry.Voice))
		}
		if model := optString(entry.Extra, "model"); model != "" {
			opts = append(opts, openaispeech.WithModel(model))
		}
		if speed := optFloat(entry.Extra, "speed"); speed > 0 {
			opts = append(opts, openaispeech.WithSpeed(speed))
		}
		return openaispeech.New(entry.Name, endpoint, entry.Priority, sink, opts...)
	})
}

// buildServices instantiates every manifest entry through the factory
// registry. Entries with an unknown base_class are skipped with a
// warning so an experimental manifest does not brick the assistant.
func buildServices(manifest *config.Manifest, reg *config.Registry) ([]provider.Service, error) {
	var services []provider.Service

	for _, entry := range manifest.LLM {
		p, err := reg.CreateLLM(entry)
		if errors.Is(err, config.ErrAdapterNotRegistered) {
			slog.Warn("unknown adapter — skipping", "kind", "llm", "name", entry.Name, "base_class", entry.BaseClass)
			continue
		} else if err != nil {
			return nil, fmt.Errorf("create llm service %q: %w", entry.Name, err)
		}
		slog.Info("service created", "kind", "llm", "name", entry.Name, "config", p.ConfigString())
		services = append(services, p)
	}

	for _, entry := range manifest.STT {
		p, err := reg.CreateSTT(entry)
		if errors.Is(err, config.ErrAdapterNotRegistered) {
			slog.Warn("unknown adapter — skipping", "kind", "stt", "name", entry.Name, "base_class", entry.BaseClass)
			continue
		} else if err != nil {
			return nil, fmt.Errorf("create stt service %q: %w", entry.Name, err)
		}
		slog.Info("service created", "kind", "stt", "name", entry.Name, "config", p.ConfigString())
		services = append(services, p)
	}

	for _, entry := range manifest.TTS {
		p, err := reg.CreateTTS(entry)
		if errors.Is(err, config.ErrAdapterNotRegistered) {
			slog.Warn("unknown adapter — skipping", "kind", "tts", "name", entry.Name, "base_class", entry.BaseClass)
			continue
		} else if err != nil {
			return nil, fmt.Errorf("create tts service %q: %w", entry.Name, err)
		}
		slog.Info("service created", "kind", "tts", "name", entry.Name, "config", p.ConfigString())
		services = append(services, p)
	}

	return services, nil
}

// closeServices shuts down every service that owns background workers,
// such as the TTS sentence queue.
func closeServices(services []provider.Service) {
	for _, svc := range services {
		if c, ok := svc.(interface{ Close() }); ok {
			c.Close()
		}
	}
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(env *config.Env, manifest *config.Manifest) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║          Voxmate — startup            ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	fmt.Printf("║  Wake word       : %-19s║\n", env.WakeWord)
	fmt.Printf("║  LLM services    : %-19d║\n", len(manifest.LLM))
	fmt.Printf("║  STT services    : %-19d║\n", len(manifest.STT))
	fmt.Printf("║  TTS services    : %-19d║\n", len(manifest.TTS))
	if env.MetricsAddr != "" {
		fmt.Printf("║  Metrics         : %-19s║\n", env.MetricsAddr)
	}
	fmt.Println("╚═══════════════════════════════════════╝")
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// optString extracts a string from a manifest Extra map. Returns "" if
// the map is nil, the key is absent, or the value is not a string.
func optString(extra map[string]any, key string) string {
	if extra == nil {
		return ""
	}
	s, _ := extra[key].(string)
	return s
}

// optFloat extracts a float from a manifest Extra map. YAML decodes
// whole numbers as int, so both shapes are accepted.
func optFloat(extra map[string]any, key string) float64 {
	if extra == nil {
		return 0
	}
	switch v := extra[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}
