// Package metrics records storefront business and dependency metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is implemented by the Prometheus recorder and by Noop.
type Metrics interface {
	RecordEntitlementDecision(plan, assetType string, allowed bool, reason string)
	RecordDownload(assetType, outcome string)
	RecordLedgerAppendFailure(assetType string)
	RecordSignedURL(duration time.Duration, err error)
	RecordPublish(assetType string, success bool)
	RecordWebhook(eventType string, status int)
	RecordMetadataFallback(trigger string)
	RecordCircuitBreakerStateChange(name, state string)
	RecordRateLimitExceeded(resource string)
}

// Prometheus implements Metrics using Prometheus collectors.
type Prometheus struct {
	entitlementDecisions *prometheus.CounterVec
	downloads            *prometheus.CounterVec
	ledgerAppendFailures *prometheus.CounterVec
	signedURLDuration    prometheus.Histogram
	signedURLErrors      prometheus.Counter
	publishes            *prometheus.CounterVec
	webhooks             *prometheus.CounterVec
	metadataFallbacks    *prometheus.CounterVec
	breakerStateChanges  *prometheus.CounterVec
	rateLimitExceeded    *prometheus.CounterVec
}

// NewPrometheus registers the collectors on reg.
func NewPrometheus(reg prometheus.Registerer, namespace string) *Prometheus {
	factory := promauto.With(reg)

	return &Prometheus{
		entitlementDecisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entitlement_decisions_total",
			Help:      "Entitlement evaluations by plan, asset type and outcome.",
		}, []string{"plan", "asset_type", "allowed", "reason"}),

		downloads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "downloads_total",
			Help:      "Download requests by asset type and outcome.",
		}, []string{"asset_type", "outcome"}),

		ledgerAppendFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_append_failures_total",
			Help:      "Downloads served without a usage ledger entry.",
		}, []string{"asset_type"}),

		signedURLDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "signed_url_duration_seconds",
			Help:      "Latency of signed URL generation.",
			Buckets:   prometheus.DefBuckets,
		}),

		signedURLErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signed_url_errors_total",
			Help:      "Signed URL generation failures.",
		}),

		publishes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "asset_publishes_total",
			Help:      "Publishing attempts by asset type and result.",
		}, []string{"asset_type", "success"}),

		webhooks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_webhooks_total",
			Help:      "Payment notifications by event type and response status.",
		}, []string{"event_type", "status"}),

		metadataFallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "metadata_fallbacks_total",
			Help:      "Generated metadata replaced by the default copy.",
		}, []string{"trigger"}),

		breakerStateChanges: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state_changes_total",
			Help:      "Total number of circuit breaker state changes.",
		}, []string{"name", "state"}),

		rateLimitExceeded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_exceeded_total",
			Help:      "Total number of rate limit exceeded events.",
		}, []string{"resource"}),
	}
}

func (m *Prometheus) RecordEntitlementDecision(plan, assetType string, allowed bool, reason string) {
	m.entitlementDecisions.WithLabelValues(plan, assetType, strconv.FormatBool(allowed), reason).Inc()
}

func (m *Prometheus) RecordDownload(assetType, outcome string) {
	m.downloads.WithLabelValues(assetType, outcome).Inc()
}

func (m *Prometheus) RecordLedgerAppendFailure(assetType string) {
	m.ledgerAppendFailures.WithLabelValues(assetType).Inc()
}

func (m *Prometheus) RecordSignedURL(duration time.Duration, err error) {
	m.signedURLDuration.Observe(duration.Seconds())
	if err != nil {
		m.signedURLErrors.Inc()
	}
}

func (m *Prometheus) RecordPublish(assetType string, success bool) {
	m.publishes.WithLabelValues(assetType, strconv.FormatBool(success)).Inc()
}

func (m *Prometheus) RecordWebhook(eventType string, status int) {
	m.webhooks.WithLabelValues(eventType, strconv.Itoa(status)).Inc()
}

func (m *Prometheus) RecordMetadataFallback(trigger string) {
	m.metadataFallbacks.WithLabelValues(trigger).Inc()
}

func (m *Prometheus) RecordCircuitBreakerStateChange(name, state string) {
	m.breakerStateChanges.WithLabelValues(name, state).Inc()
}

func (m *Prometheus) RecordRateLimitExceeded(resource string) {
	m.rateLimitExceeded.WithLabelValues(resource).Inc()
}

// Noop discards every measurement.
type Noop struct{}

func (Noop) RecordEntitlementDecision(string, string, bool, string) {}
func (Noop) RecordDownload(string, string)                          {}
func (Noop) RecordLedgerAppendFailure(string)                       {}
func (Noop) RecordSignedURL(time.Duration, error)                   {}
func (Noop) RecordPublish(string, bool)                             {}
func (Noop) RecordWebhook(string, int)                              {}
func (Noop) RecordMetadataFallback(string)                          {}
func (Noop) RecordCircuitBreakerStateChange(string, string)         {}
func (Noop) RecordRateLimitExceeded(string)                         {}
