// Package config provides the environment schema, the YAML service
// manifest loader, and the adapter factory registry for Voxmate.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// ParseLogLevel normalises a LOG_LEVEL value. The documented set is
// DEBUG, INFO, WARNING, ERROR, and CRITICAL, matched case-insensitively;
// the slog-style names warn and error are accepted too. CRITICAL maps
// to error, the highest level slog carries.
func ParseLogLevel(v string) (LogLevel, bool) {
	switch strings.ToLower(v) {
	case "debug":
		return LogDebug, true
	case "info":
		return LogInfo, true
	case "warning", "warn":
		return LogWarn, true
	case "error", "critical":
		return LogError, true
	}
	return "", false
}

// SlogLevel maps l to the corresponding [slog.Level].
func (l LogLevel) SlogLevel() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	}
	return slog.LevelInfo
}

// Env holds the process-level settings read from environment variables.
type Env struct {
	// MicrophoneDevice and PlaybackDevice are PortAudio device
	// indices. -1 selects the first device named "default".
	MicrophoneDevice int
	PlaybackDevice   int

	// WakeWord is the Porcupine keyword the assistant listens for.
	WakeWord string

	// WakeWordThreshold is the detection threshold in [0, 500];
	// the Porcupine sensitivity is threshold/500.
	WakeWordThreshold int

	// LLMEndpoint, STTEndpoint, and TTSEndpoint are fallback
	// endpoints for manifest entries that omit their own.
	LLMEndpoint string
	STTEndpoint string
	TTSEndpoint string

	// PicovoiceAccessKey authenticates against the Porcupine engine.
	PicovoiceAccessKey string

	// OpenRouterAPIKey authenticates hosted LLM endpoints.
	OpenRouterAPIKey string

	LogLevel LogLevel

	// MetricsAddr is the optional Prometheus listen address. Empty
	// disables the metrics endpoint.
	MetricsAddr string
}

// FromEnv reads and validates the environment variables.
func FromEnv() (*Env, error) {
	env := &Env{
		WakeWord:           "computer",
		WakeWordThreshold:  250,
		LLMEndpoint:        os.Getenv("LLM_ENDPOINT"),
		STTEndpoint:        os.Getenv("STT_ENDPOINT"),
		TTSEndpoint:        os.Getenv("TTS_ENDPOINT"),
		PicovoiceAccessKey: os.Getenv("PICOVOICE_ACCESS_KEY"),
		OpenRouterAPIKey:   os.Getenv("OPENROUTER_API_KEY"),
		LogLevel:           LogInfo,
		MetricsAddr:        os.Getenv("METRICS_ADDR"),
	}

	var err error
	if env.MicrophoneDevice, err = deviceIndex("AUDIO_MICROPHONE_DEVICE"); err != nil {
		return nil, err
	}
	if env.PlaybackDevice, err = deviceIndex("AUDIO_PLAYBACK_DEVICE"); err != nil {
		return nil, err
	}

	if v := os.Getenv("WAKEWORD"); v != "" {
		env.WakeWord = v
	}
	if v := os.Getenv("WAKEWORD_THRESHOLD"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("config: WAKEWORD_THRESHOLD %q is not an integer", v)
		}
		if n < 0 || n > 500 {
			return nil, fmt.Errorf("config: WAKEWORD_THRESHOLD %d is out of range [0, 500]", n)
		}
		env.WakeWordThreshold = n
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		l, ok := ParseLogLevel(v)
		if !ok {
			return nil, fmt.Errorf("config: LOG_LEVEL %q is invalid; valid values: DEBUG, INFO, WARNING, ERROR, CRITICAL", v)
		}
		env.LogLevel = l
	}
	return env, nil
}

// deviceIndex parses an AUDIO_*_DEVICE variable. Unset means automatic
// selection (-1).
func deviceIndex(key string) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return -1, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s %q is not a device index", key, v)
	}
	return n, nil
}
