package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records login attempts by result (success|failure|locked|pending_2fa).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realvista_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"result"},
	)

	// AccountLockouts counts lockouts tripped by repeated failed logins.
	AccountLockouts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "realvista_account_lockouts_total",
			Help: "Total number of account lockouts",
		},
	)

	// TwoFactorVerifications counts TOTP verification attempts by result (success|failure).
	TwoFactorVerifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realvista_two_factor_verifications_total",
			Help: "Total number of two-factor verification attempts",
		},
		[]string{"result"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "realvista_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
