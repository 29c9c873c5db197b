// Package metrics provides Prometheus metrics for the meetings API.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Rejection reasons for RequestsRejected.
const (
	ReasonOrigin        = "origin"
	ReasonRateLimited   = "rate_limited"
	ReasonAPIKey        = "api_key"
	ReasonNotConfigured = "not_configured"
	ReasonInvalidBody   = "invalid_body"
	ReasonValidation    = "validation"
	ReasonUpstream      = "upstream"
)

var (
	// MeetingsCreated counts successful meeting issuances.
	MeetingsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "meetings_created_total",
			Help: "Total number of meetings created through the API",
		},
	)

	// TokensIssued counts platform tokens minted, by provider.
	TokensIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meeting_tokens_issued_total",
			Help: "Total number of platform tokens issued",
		},
		[]string{"provider"},
	)

	// RequestsRejected counts issuance requests turned away before success.
	RequestsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meeting_requests_rejected_total",
			Help: "Total number of credential requests rejected, by reason",
		},
		[]string{"reason"},
	)

	// PlatformCallDuration tracks upstream platform round-trips.
	PlatformCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "meeting_platform_call_duration_seconds",
			Help:    "Duration of calls to the call/chat platform",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	// RateLimiterErrors counts limiter backend failures (requests fail open).
	RateLimiterErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "meeting_rate_limiter_errors_total",
			Help: "Total number of rate limiter backend errors",
		},
	)
)

func RecordRejected(reason string) {
	RequestsRejected.WithLabelValues(reason).Inc()
}

func RecordTokens(provider string, n int) {
	TokensIssued.WithLabelValues(provider).Add(float64(n))
}

// ObservePlatform returns a func that records the elapsed time for op when called.
func ObservePlatform(op string) func() {
	start := time.Now()
	return func() {
		PlatformCallDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}
}
