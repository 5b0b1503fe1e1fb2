// Package metrics exposes the backend's Prometheus instrumentation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the backend's counters, bound to an injected registry so
// tests can construct isolated instances.
type Metrics struct {
	registry *prometheus.Registry

	// ChatTurns counts chat turns by outcome ("ok" or "error").
	ChatTurns *prometheus.CounterVec
	// StreamCapHits counts streams truncated by the read-iteration cap.
	StreamCapHits prometheus.Counter
	// CommitFailures counts turn commits that failed after the stream was
	// already delivered.
	CommitFailures prometheus.Counter
	// CreditsCharged counts credits debited from user balances.
	CreditsCharged prometheus.Counter
}

// New creates a Metrics instance on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		ChatTurns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lumenchat_chat_turns_total",
			Help: "Chat turns processed, by outcome.",
		}, []string{"outcome"}),
		StreamCapHits: f.NewCounter(prometheus.CounterOpts{
			Name: "lumenchat_stream_cap_hits_total",
			Help: "Upstream streams truncated by the read-iteration cap.",
		}),
		CommitFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "lumenchat_commit_failures_total",
			Help: "Turn commits that failed after stream delivery.",
		}),
		CreditsCharged: f.NewCounter(prometheus.CounterOpts{
			Name: "lumenchat_credits_charged_total",
			Help: "Credits debited from user balances.",
		}),
	}
}

// Handler returns the scrape endpoint handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
