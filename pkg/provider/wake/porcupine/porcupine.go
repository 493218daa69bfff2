// Package porcupine implements wake.Listener with the Picovoice
// Porcupine engine and its German keyword models.
package porcupine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	pv "github.com/Picovoice/porcupine/binding/go/v3"

	"github.com/voxmate/voxmate/pkg/audio"
	"github.com/voxmate/voxmate/pkg/provider/wake"
)

// sensitivityDivisor maps the integer threshold from the environment
// onto Porcupine's [0, 1] sensitivity scale.
const sensitivityDivisor = 500.0

// ErrStreamEnded is returned when the frame channel closes before a
// detection.
var ErrStreamEnded = errors.New("porcupine: audio stream ended before detection")

// Option is a functional option for configuring the Detector.
type Option func(*Detector)

// WithLogger sets the logger. Defaults to [slog.Default].
func WithLogger(l *slog.Logger) Option {
	return func(d *Detector) { d.log = l }
}

// Detector implements wake.Listener backed by a Porcupine engine
// instance.
type Detector struct {
	wakeWord  string
	threshold int
	engine    pv.Porcupine
	log       *slog.Logger
}

var _ wake.Listener = (*Detector)(nil)

// New loads the German keyword and language models from modelDir and
// initialises the engine. The keyword file must be named
// <wakeword>_de_linux_v3_0_0.ppn; a missing model is a fatal
// configuration error pointing at https://picovoice.ai/.
func New(wakeWord string, threshold int, accessKey, modelDir string, opts ...Option) (*Detector, error) {
	keywordPath := filepath.Join(modelDir, fmt.Sprintf("%s_de_linux_v3_0_0.ppn", wakeWord))
	if _, err := os.Stat(keywordPath); err != nil {
		return nil, fmt.Errorf("porcupine: keyword model %s for wake word %q is missing; "+
			"make an account and download one at https://picovoice.ai/: %w", keywordPath, wakeWord, err)
	}
	paramsPath := filepath.Join(modelDir, "porcupine_params_de.pv")
	if _, err := os.Stat(paramsPath); err != nil {
		return nil, fmt.Errorf("porcupine: German language model %s is missing: %w", paramsPath, err)
	}

	d := &Detector{
		wakeWord:  wakeWord,
		threshold: threshold,
		engine: pv.Porcupine{
			AccessKey:     accessKey,
			KeywordPaths:  []string{keywordPath},
			ModelPath:     paramsPath,
			Sensitivities: []float32{float32(threshold) / sensitivityDivisor},
		},
		log: slog.Default(),
	}
	for _, o := range opts {
		o(d)
	}
	if err := d.engine.Init(); err != nil {
		return nil, fmt.Errorf("porcupine: init engine: %w", err)
	}
	return d, nil
}

// WakeWord returns the configured wake word.
func (d *Detector) WakeWord() string { return d.wakeWord }

// ConfigString renders the detector configuration.
func (d *Detector) ConfigString() string {
	return fmt.Sprintf("wakeword: %s, threshold: %d", d.wakeWord, d.threshold)
}

// Listen feeds capture frames into the engine until the wake word
// shows up. Frames are rebuffered to the engine's fixed frame length.
func (d *Detector) Listen(ctx context.Context, frames <-chan []byte) error {
	d.log.Info("listening for wake word", "wakeword", d.wakeWord)
	var buffer []int16
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case chunk, ok := <-frames:
			if !ok {
				return ErrStreamEnded
			}
			buffer = append(buffer, audio.BytesToInt16(chunk)...)
			for len(buffer) >= pv.FrameLength {
				frame := buffer[:pv.FrameLength]
				buffer = buffer[pv.FrameLength:]
				idx, err := d.engine.Process(frame)
				if err != nil {
					return fmt.Errorf("porcupine: process frame: %w", err)
				}
				if idx >= 0 {
					d.log.Info("wake word detected", "wakeword", d.wakeWord)
					return nil
				}
			}
		}
	}
}

// Close releases the engine.
func (d *Detector) Close() error {
	d.engine.Delete()
	return nil
}
