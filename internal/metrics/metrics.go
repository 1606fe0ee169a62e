package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	forwardedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gatewarden_requests_forwarded_total",
		Help: "Total number of requests forwarded to a backend",
	})
	challengedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gatewarden_challenge_pages_total",
		Help: "Total number of interactive challenge pages served",
	})
	blockedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gatewarden_blocked_total",
		Help: "Total number of requests from blocked client identities",
	})
	actionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gatewarden_challenge_actions_total",
		Help: "Total number of challenge action invocations by type",
	}, []string{"challenge_type", "action"})
)

// Register registers Prometheus collectors. Call once at startup.
func Register(registry *prometheus.Registry) {
	registry.MustRegister(forwardedTotal, challengedTotal, blockedTotal, actionsTotal)
}

// IncForwarded increments the forwarded requests counter.
func IncForwarded() { forwardedTotal.Inc() }

// IncChallenged increments the challenge pages counter.
func IncChallenged() { challengedTotal.Inc() }

// IncBlocked increments the blocked requests counter.
func IncBlocked() { blockedTotal.Inc() }

// IncAction increments the action invocation counter.
func IncAction(challengeType, action string) {
	actionsTotal.WithLabelValues(challengeType, action).Inc()
}
