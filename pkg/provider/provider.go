// Package provider defines the common contract every remote speech
// service fulfils: a name, a capability, a selection priority, and a
// liveness check. The discovery registry works exclusively against
// this contract; the concrete adapters live in the subpackages.
package provider

import (
	"context"
	"net"
	"net/url"
	"strings"
	"time"
)

// Capability classifies what a service does.
type Capability string

const (
	CapabilitySTT Capability = "STT"
	CapabilityTTS Capability = "TTS"
	CapabilityLLM Capability = "LLM"
)

// ProbeTimeout bounds a single liveness probe.
const ProbeTimeout = 2 * time.Second

// Service is the minimal surface the discovery registry needs from an
// adapter. Implementations must be safe for concurrent use;
// CheckAvailability is called from the background probe loop while the
// orchestrator may be using the service.
type Service interface {
	// Name is the unique service name from the manifest.
	Name() string

	// Capability reports what kind of service this is.
	Capability() Capability

	// Priority orders services of the same capability; higher wins.
	Priority() int

	// ConfigString renders the endpoint configuration for log output.
	ConfigString() string

	// CheckAvailability probes the remote endpoint. It must return
	// within [ProbeTimeout] plus a small constant and never panic on an
	// unreachable host.
	CheckAvailability(ctx context.Context) bool
}

// ProbeTCP reports whether a TCP connection to the endpoint's host can
// be established within [ProbeTimeout]. The endpoint may be a bare
// host:port or a URL of any scheme.
func ProbeTCP(ctx context.Context, endpoint string) bool {
	addr := endpoint
	if strings.Contains(endpoint, "://") {
		u, err := url.Parse(endpoint)
		if err != nil {
			return false
		}
		addr = u.Host
		if u.Port() == "" {
			switch u.Scheme {
			case "http", "ws":
				addr = net.JoinHostPort(u.Hostname(), "80")
			case "https", "wss":
				addr = net.JoinHostPort(u.Hostname(), "443")
			}
		}
	}
	d := net.Dialer{Timeout: ProbeTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
