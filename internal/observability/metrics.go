package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AnalysesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "flourish",
		Name:      "analyses_total",
		Help:      "Analysis pipeline runs by outcome code (ok or an error code)",
	}, []string{"outcome"})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "flourish",
		Name:      "stage_duration_seconds",
		Help:      "Duration of analysis pipeline stages",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
	}, []string{"stage"})

	ProviderRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "flourish",
		Name:      "provider_requests_total",
		Help:      "Outbound provider requests by provider and status class",
	}, []string{"provider", "status"})

	AdviceFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "flourish",
		Name:      "advice_fallbacks_total",
		Help:      "Advice requests answered with locally generated text",
	}, []string{"mode"})

	NotificationsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "flourish",
		Name:      "notifications_sent_total",
		Help:      "Care reminders delivered by notifier",
	}, []string{"notifier"})

	ArmedReminders = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "flourish",
		Name:      "armed_reminders",
		Help:      "Number of care reminder timers currently armed",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "flourish",
		Name:      "http_request_duration_seconds",
		Help:      "Web UI request duration",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})
)
