// Package metrics defines and registers all custom Prometheus metrics of the
// trust boundary services. It is the single source of truth for metric names,
// labels, and help strings.
//
// Metrics are registered with the default Prometheus registry on package
// initialisation and exposed by each service on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "trustboundary"

// ── Login metrics ─────────────────────────────────────────────────────────────

// LoginAttemptsTotal counts login attempts that reached the auth service.
// Label:
//   - outcome: "success" or "failure"
var LoginAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_attempts_total",
		Help:      "Total number of login attempts, by outcome.",
	},
	[]string{"outcome"},
)

// LoginThrottledTotal counts login requests rejected by the rate limiter
// before any credential check ran.
var LoginThrottledTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_throttled_total",
		Help:      "Total number of login attempts rejected by the rate limiter.",
	},
)

// ── Gateway metrics ───────────────────────────────────────────────────────────

// GatewayOutcomesTotal counts terminal gateway states.
// Labels:
//   - endpoint: the gated route (e.g. "authorization-protected", "authorize")
//   - outcome: "done" or the reject reason (e.g. "csrf_failed")
var GatewayOutcomesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "gateway_outcomes_total",
		Help:      "Total number of gated actions, by endpoint and terminal outcome.",
	},
	[]string{"endpoint", "outcome"},
)

// ── Policy engine metrics ─────────────────────────────────────────────────────

// PolicyRequestsTotal counts policy engine calls.
// Label:
//   - result: "allow", "deny" or "error"
var PolicyRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "policy_requests_total",
		Help:      "Total number of policy engine decisions requested, by result.",
	},
	[]string{"result"},
)

// PolicyRequestDuration measures the round trip to the policy engine.
var PolicyRequestDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "policy_request_duration_seconds",
		Help:      "Duration of policy engine requests.",
		Buckets:   prometheus.DefBuckets, // .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10
	},
)

// ObservePolicyRequest records one policy engine round trip.
func ObservePolicyRequest(result string, elapsed time.Duration) {
	PolicyRequestsTotal.WithLabelValues(result).Inc()
	PolicyRequestDuration.Observe(elapsed.Seconds())
}

// ObserveLogin records a login attempt outcome.
func ObserveLogin(success bool) {
	if success {
		LoginAttemptsTotal.WithLabelValues("success").Inc()
		return
	}
	LoginAttemptsTotal.WithLabelValues("failure").Inc()
}

// ObserveGatewayOutcome records a terminal gateway state. An empty reason
// means the action completed.
func ObserveGatewayOutcome(endpoint, reason string) {
	if reason == "" {
		reason = "done"
	}
	GatewayOutcomesTotal.WithLabelValues(endpoint, reason).Inc()
}
