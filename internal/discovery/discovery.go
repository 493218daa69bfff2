// Package discovery keeps track of the remote STT, TTS, and LLM
// services the assistant may use. Every service is probed on a fixed
// interval; selection always returns the highest-priority instance
// that answered its most recent probe.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/voxmate/voxmate/internal/observe"
	"github.com/voxmate/voxmate/pkg/provider"
)

// ErrNoProvider is returned by Best when no available service of the
// requested capability exists. Callers treat this as terminal: the
// assistant has no degraded mode without its remote brains.
var ErrNoProvider = errors.New("discovery: no available provider")

// defaultProbeInterval is the pause between background probe rounds.
const defaultProbeInterval = 3 * time.Second

// record pairs a service with its most recent probe result. Guarded by
// the registry mutex.
type record struct {
	service   provider.Service
	available bool
}

// Option configures a new Registry.
type Option func(*Registry)

// WithLogger sets the logger. Defaults to [slog.Default].
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) { r.log = l }
}

// WithProbeInterval overrides the 3 s background probe interval.
func WithProbeInterval(d time.Duration) Option {
	return func(r *Registry) { r.interval = d }
}

// WithMetrics injects the metric instruments. Defaults to
// [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(r *Registry) { r.metrics = m }
}

// Registry holds the known services in registration order. Safe for
// concurrent use.
type Registry struct {
	mu      sync.Mutex
	records []*record

	interval time.Duration
	log      *slog.Logger
	metrics  *observe.Metrics

	startOnce sync.Once
	stopOnce  sync.Once
	started   atomic.Bool
	stop      chan struct{}
	done      chan struct{}
}

// NewRegistry creates a Registry over the given services. Registration
// order breaks priority ties in Best.
func NewRegistry(services []provider.Service, opts ...Option) *Registry {
	r := &Registry{
		interval: defaultProbeInterval,
		log:      slog.Default(),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, svc := range services {
		r.records = append(r.records, &record{service: svc})
	}
	for _, o := range opts {
		o(r)
	}
	if r.metrics == nil {
		r.metrics = observe.DefaultMetrics()
	}
	return r
}

// Start runs one synchronous probe round, logs the status table, and
// launches the background scanner. Subsequent calls are no-ops.
func (r *Registry) Start(ctx context.Context) {
	r.startOnce.Do(func() {
		r.probeRound(ctx)
		r.log.Info("service discovery started\n" + r.StatusTable())
		r.started.Store(true)
		go r.scan(ctx)
	})
}

// Stop signals the scanner and awaits its exit. Idempotent. Safe to
// call even if Start never ran.
func (r *Registry) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
	if r.started.Load() {
		<-r.done
	}
}

func (r *Registry) scan(ctx context.Context) {
	defer close(r.done)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stop:
			return
		case <-ticker.C:
			r.probeRound(ctx)
		}
	}
}

// probeRound probes every service concurrently and applies each result
// as a single atomic write per service.
func (r *Registry) probeRound(ctx context.Context) {
	r.mu.Lock()
	records := append([]*record(nil), r.records...)
	r.mu.Unlock()

	g, ctx := errgroup.WithContext(ctx)
	for _, rec := range records {
		g.Go(func() error {
			probeCtx, cancel := context.WithTimeout(ctx, provider.ProbeTimeout)
			ok := rec.service.CheckAvailability(probeCtx)
			cancel()
			if !ok {
				r.metrics.RecordProbeFailure(ctx,
					rec.service.Name(), string(rec.service.Capability()))
			}

			r.mu.Lock()
			changed := rec.available != ok
			rec.available = ok
			r.mu.Unlock()
			if changed {
				r.log.Info("service availability changed",
					"name", rec.service.Name(),
					"capability", rec.service.Capability(),
					"available", ok)
			}
			return nil
		})
	}
	g.Wait()
}

// Best returns the available service of the given capability with the
// highest priority. Ties resolve to the earliest-registered service.
// When none is available the status table is logged and ErrNoProvider
// is returned with a bring-up hint.
func (r *Registry) Best(capability provider.Capability) (provider.Service, error) {
	r.mu.Lock()
	var best *record
	for _, rec := range r.records {
		if rec.service.Capability() != capability || !rec.available {
			continue
		}
		if best == nil || rec.service.Priority() > best.service.Priority() {
			best = rec
		}
	}
	r.mu.Unlock()

	if best == nil {
		r.log.Error("no available provider\n" + r.StatusTable())
		return nil, fmt.Errorf("%w for capability %s; start the local stack with ./docker/start_services.sh",
			ErrNoProvider, capability)
	}
	return best.service, nil
}

// Services returns the registered services in registration order.
func (r *Registry) Services() []provider.Service {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]provider.Service, len(r.records))
	for i, rec := range r.records {
		out[i] = rec.service
	}
	return out
}

// StatusTable renders the NAME/TYPE/PRIORITY/AVAILABLE overview used
// in startup logs and no-provider diagnostics.
func (r *Registry) StatusTable() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var b strings.Builder
	fmt.Fprintf(&b, "%-25s%-8s%-10s%s\n", "NAME", "TYPE", "PRIORITY", "AVAILABLE")
	for _, rec := range r.records {
		fmt.Fprintf(&b, "%-25s%-8s%-10d%t\n",
			rec.service.Name(), rec.service.Capability(), rec.service.Priority(), rec.available)
	}
	return strings.TrimRight(b.String(), "\n")
}
