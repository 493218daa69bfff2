package config

import (
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/voxmate/voxmate/pkg/provider/llm"
	llmmock "github.com/voxmate/voxmate/pkg/provider/llm/mock"
	sttmock "github.com/voxmate/voxmate/pkg/provider/stt/mock"
	"github.com/voxmate/voxmate/pkg/provider/stt"
)

// ─── environment ───

func TestFromEnv_Defaults(t *testing.T) {
	for _, key := range []string{
		"AUDIO_MICROPHONE_DEVICE", "AUDIO_PLAYBACK_DEVICE",
		"WAKEWORD", "WAKEWORD_THRESHOLD", "LOG_LEVEL", "METRICS_ADDR",
	} {
		t.Setenv(key, "")
	}
	env, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if env.MicrophoneDevice != -1 || env.PlaybackDevice != -1 {
		t.Errorf("device indices = %d, %d; want -1, -1", env.MicrophoneDevice, env.PlaybackDevice)
	}
	if env.WakeWord != "computer" {
		t.Errorf("wake word = %q, want computer", env.WakeWord)
	}
	if env.WakeWordThreshold != 250 {
		t.Errorf("threshold = %d, want 250", env.WakeWordThreshold)
	}
	if env.LogLevel != LogInfo {
		t.Errorf("log level = %q, want info", env.LogLevel)
	}
}

func TestFromEnv_ReadsValues(t *testing.T) {
	t.Setenv("AUDIO_MICROPHONE_DEVICE", "3")
	t.Setenv("AUDIO_PLAYBACK_DEVICE", "5")
	t.Setenv("WAKEWORD", "jarvis")
	t.Setenv("WAKEWORD_THRESHOLD", "400")
	t.Setenv("LLM_ENDPOINT", "http://brain:11434")
	t.Setenv("LOG_LEVEL", "debug")
	env, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if env.MicrophoneDevice != 3 || env.PlaybackDevice != 5 {
		t.Errorf("device indices = %d, %d", env.MicrophoneDevice, env.PlaybackDevice)
	}
	if env.WakeWord != "jarvis" || env.WakeWordThreshold != 400 {
		t.Errorf("wake word config = %q/%d", env.WakeWord, env.WakeWordThreshold)
	}
	if env.LLMEndpoint != "http://brain:11434" {
		t.Errorf("llm endpoint = %q", env.LLMEndpoint)
	}
	if env.LogLevel.SlogLevel() != slog.LevelDebug {
		t.Errorf("log level = %q", env.LogLevel)
	}
}

func TestFromEnv_AcceptsDocumentedLogLevels(t *testing.T) {
	cases := []struct {
		value string
		want  LogLevel
	}{
		{"DEBUG", LogDebug},
		{"INFO", LogInfo},
		{"WARNING", LogWarn},
		{"ERROR", LogError},
		{"CRITICAL", LogError},
		{"warn", LogWarn},
		{"Info", LogInfo},
	}
	for _, tc := range cases {
		t.Run(tc.value, func(t *testing.T) {
			t.Setenv("LOG_LEVEL", tc.value)
			env, err := FromEnv()
			if err != nil {
				t.Fatalf("FromEnv rejected LOG_LEVEL=%s: %v", tc.value, err)
			}
			if env.LogLevel != tc.want {
				t.Errorf("log level = %q, want %q", env.LogLevel, tc.want)
			}
		})
	}
}

func TestFromEnv_RejectsBadValues(t *testing.T) {
	cases := []struct{ key, value string }{
		{"AUDIO_MICROPHONE_DEVICE", "two"},
		{"WAKEWORD_THRESHOLD", "750"},
		{"WAKEWORD_THRESHOLD", "-1"},
		{"LOG_LEVEL", "verbose"},
	}
	for _, tc := range cases {
		t.Run(tc.key+"="+tc.value, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)
			if _, err := FromEnv(); err == nil {
				t.Errorf("FromEnv accepted %s=%s", tc.key, tc.value)
			}
		})
	}
}

// ─── manifest loader ───

const sampleManifest = `
LLM:
  - name: WorkstationLLMOllama
    priority: 100
    base_class: mate.services.llm.llm_ollama_remote.LlmOllamaRemote
    endpoint: http://brain:11434
    ollama_model: llama3.2
  - name: FallbackLLM
    priority: 0
    base_class: mate.services.llm.llm_ollama_remote.LlmOllamaRemote
    endpoint: http://backup:11434
    ollama_model: llama3.2
STT:
  - name: WorkstationSTTWhisper
    priority: 100
    base_class: mate.services.stt.stt_whisper_remote.STTWhisperRemote
    endpoint: http://brain:8126
TTS:
  - name: WorkstationTTS
    priority: 100
    base_class: mate.services.tts.tts_openedai_speech.TTSOpenedAISpeech
    endpoint: http://brain:8001/v1
    voice: thorsten-low
    speed: 1.25
`

func TestLoadManifestFromReader(t *testing.T) {
	t.Parallel()
	m, err := LoadManifestFromReader(strings.NewReader(sampleManifest))
	if err != nil {
		t.Fatalf("LoadManifestFromReader: %v", err)
	}
	if len(m.LLM) != 2 || len(m.STT) != 1 || len(m.TTS) != 1 {
		t.Fatalf("section sizes: %d/%d/%d", len(m.LLM), len(m.STT), len(m.TTS))
	}
	llmEntry := m.LLM[0]
	if llmEntry.Name != "WorkstationLLMOllama" || llmEntry.Priority != 100 {
		t.Errorf("llm entry: %+v", llmEntry)
	}
	if llmEntry.OllamaModel != "llama3.2" {
		t.Errorf("ollama model: %q", llmEntry.OllamaModel)
	}
	tts := m.TTS[0]
	if tts.Voice != "thorsten-low" {
		t.Errorf("voice: %q", tts.Voice)
	}
	if speed, ok := tts.Extra["speed"].(float64); !ok || speed != 1.25 {
		t.Errorf("extra key speed not passed through: %v", tts.Extra)
	}
}

func TestLoadManifestFromReader_RejectsUnknownTopLevelKey(t *testing.T) {
	t.Parallel()
	_, err := LoadManifestFromReader(strings.NewReader("VAD:\n  - name: x\n"))
	if err == nil {
		t.Error("unknown top-level section was accepted")
	}
}

func TestValidateManifest_DuplicateAndMissing(t *testing.T) {
	t.Parallel()
	m := &Manifest{
		LLM: []ServiceEntry{
			{Name: "dup", BaseClass: "a.B"},
			{Name: "dup", BaseClass: "a.B"},
		},
		STT: []ServiceEntry{{Name: "", BaseClass: ""}},
	}
	err := ValidateManifest(m)
	if err == nil {
		t.Fatal("invalid manifest was accepted")
	}
	for _, want := range []string{"duplicate", "name is required", "base_class is required"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q is missing %q", err, want)
		}
	}
}

// ─── factory registry ───

func TestAdapterName(t *testing.T) {
	t.Parallel()
	cases := map[string]string{
		"mate.services.stt.stt_whisper_remote.STTWhisperRemote": "STTWhisperRemote",
		"TTSOpenedAISpeech": "TTSOpenedAISpeech",
	}
	for in, want := range cases {
		if got := AdapterName(in); got != want {
			t.Errorf("AdapterName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRegistry_CreateUsesBaseClass(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	r.RegisterLLM("LlmOllamaRemote", func(e ServiceEntry) (llm.Provider, error) {
		return &llmmock.Provider{ServiceName: e.Name, ServicePriority: e.Priority}, nil
	})
	p, err := r.CreateLLM(ServiceEntry{
		Name:      "WorkstationLLMOllama",
		Priority:  100,
		BaseClass: "mate.services.llm.llm_ollama_remote.LlmOllamaRemote",
	})
	if err != nil {
		t.Fatalf("CreateLLM: %v", err)
	}
	if p.Name() != "WorkstationLLMOllama" || p.Priority() != 100 {
		t.Errorf("created provider: %s/%d", p.Name(), p.Priority())
	}
}

func TestRegistry_UnknownAdapter(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	_, err := r.CreateSTT(ServiceEntry{BaseClass: "x.Unknown"})
	if !errors.Is(err, ErrAdapterNotRegistered) {
		t.Errorf("error = %v, want ErrAdapterNotRegistered", err)
	}
	r.RegisterSTT("STTWhisperRemote", func(ServiceEntry) (stt.Provider, error) {
		return &sttmock.Provider{}, nil
	})
	if _, err := r.CreateSTT(ServiceEntry{BaseClass: "a.b.STTWhisperRemote"}); err != nil {
		t.Errorf("CreateSTT after registration: %v", err)
	}
}
