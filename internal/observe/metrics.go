// Package observe provides the OpenTelemetry metric instruments for
// the voice pipeline and the Prometheus scrape endpoint they are
// served on.
//
// Metrics are recorded through the OpenTelemetry Metrics API and
// exported via the Prometheus bridge set up by [InitProvider]. A
// package-level default [Metrics] instance ([DefaultMetrics]) is
// provided for convenience; tests should use [NewMetrics] with a
// custom [metric.MeterProvider] to avoid cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all metrics.
const meterName = "github.com/voxmate/voxmate"

// Metrics holds all OpenTelemetry metric instruments for the
// application. All fields are safe for concurrent use — the underlying
// OTel types handle their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// TranscriptionDuration tracks the span from recording start to
	// the final transcript of a turn.
	TranscriptionDuration metric.Float64Histogram

	// LLMDuration tracks the duration of one streamed chat response.
	LLMDuration metric.Float64Histogram

	// SynthesisDuration tracks per-sentence speech synthesis latency.
	SynthesisDuration metric.Float64Histogram

	// --- Counters ---

	// Turns counts completed conversation turns. Use with attribute:
	//   attribute.String("mode", ...)
	Turns metric.Int64Counter

	// GarbageInputs counts transcripts rejected by the sanity filter.
	GarbageInputs metric.Int64Counter

	// WakeDetections counts wake-word detections, including the ones
	// that interrupt running speech.
	WakeDetections metric.Int64Counter

	// TranscriptDeltas counts text deltas received from the
	// recognizer. Use with attribute: attribute.String("service", ...)
	TranscriptDeltas metric.Int64Counter

	// ProbeFailures counts failed availability probes. Use with
	// attributes: attribute.String("service", ...),
	// attribute.String("capability", ...)
	ProbeFailures metric.Int64Counter

	// --- Gauges ---

	// PlaybackQueueDepth tracks the number of queued playback items.
	PlaybackQueueDepth metric.Int64UpDownCounter
}

// latencyBuckets defines histogram bucket boundaries (in seconds)
// optimised for voice-pipeline latencies.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] struct using the
// given [metric.MeterProvider]. Returns an error if any instrument
// creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.TranscriptionDuration, err = m.Float64Histogram("voxmate.stt.duration",
		metric.WithDescription("Time from recording start to final transcript."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.LLMDuration, err = m.Float64Histogram("voxmate.llm.duration",
		metric.WithDescription("Duration of one streamed chat response."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.SynthesisDuration, err = m.Float64Histogram("voxmate.tts.duration",
		metric.WithDescription("Per-sentence speech synthesis latency."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.Turns, err = m.Int64Counter("voxmate.turns",
		metric.WithDescription("Completed conversation turns by mode."),
	); err != nil {
		return nil, err
	}
	if met.GarbageInputs, err = m.Int64Counter("voxmate.garbage_inputs",
		metric.WithDescription("Transcripts rejected by the sanity filter."),
	); err != nil {
		return nil, err
	}
	if met.WakeDetections, err = m.Int64Counter("voxmate.wake_detections",
		metric.WithDescription("Wake-word detections."),
	); err != nil {
		return nil, err
	}
	if met.TranscriptDeltas, err = m.Int64Counter("voxmate.stt.deltas",
		metric.WithDescription("Text deltas received from the recognizer by service."),
	); err != nil {
		return nil, err
	}
	if met.ProbeFailures, err = m.Int64Counter("voxmate.probe.failures",
		metric.WithDescription("Failed availability probes by service and capability."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.PlaybackQueueDepth, err = m.Int64UpDownCounter("voxmate.playback.queue_depth",
		metric.WithDescription("Number of queued playback items."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics
// instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance,
// creating it on first call using [otel.GetMeterProvider]. Subsequent
// calls return the same pointer. Panics if instrument creation fails
// (should not happen with the global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce
// verbosity at call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordTurn records one completed conversation turn.
func (m *Metrics) RecordTurn(ctx context.Context, mode string) {
	m.Turns.Add(ctx, 1, metric.WithAttributes(attribute.String("mode", mode)))
}

// RecordProbeFailure records one failed availability probe.
func (m *Metrics) RecordProbeFailure(ctx context.Context, service, capability string) {
	m.ProbeFailures.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("service", service),
			attribute.String("capability", capability),
		),
	)
}

// RecordTranscriptDelta records one recognizer text delta.
func (m *Metrics) RecordTranscriptDelta(ctx context.Context, service string) {
	m.TranscriptDeltas.Add(ctx, 1,
		metric.WithAttributes(attribute.String("service", service)),
	)
}
