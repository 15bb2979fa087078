package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the auth subsystem.
type Metrics struct {
	RegistrationsStarted prometheus.Counter
	UsersCreated         prometheus.Counter
	OTPsSent             prometheus.Counter
	OTPFailures          prometheus.Counter
	SessionsCreated      prometheus.Counter
	SessionsRevoked      prometheus.Counter
	RateLimited          prometheus.Counter

	SessionCheckDurationMs prometheus.Histogram
}

// New creates the metric set and registers it with reg. Production code
// passes prometheus.DefaultRegisterer; tests pass a fresh registry so suites
// do not collide on metric names.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RegistrationsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "folio_registrations_started_total",
			Help: "Registration submissions that produced a verification mail",
		}),
		UsersCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "folio_users_created_total",
			Help: "Durable user records created after email verification",
		}),
		OTPsSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "folio_otps_sent_total",
			Help: "Login OTP mails sent after a password match",
		}),
		OTPFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "folio_otp_failures_total",
			Help: "OTP submissions rejected as wrong or expired",
		}),
		SessionsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "folio_sessions_created_total",
			Help: "Sessions created by successful OTP verification",
		}),
		SessionsRevoked: factory.NewCounter(prometheus.CounterOpts{
			Name: "folio_sessions_revoked_total",
			Help: "Sessions destroyed by logout",
		}),
		RateLimited: factory.NewCounter(prometheus.CounterOpts{
			Name: "folio_rate_limited_total",
			Help: "Requests rejected by the fixed-window rate limiter",
		}),
		SessionCheckDurationMs: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "folio_session_liveness_check_duration_ms",
			Help:    "Latency of session liveness checks in milliseconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
		}),
	}
}
