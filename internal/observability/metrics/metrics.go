package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	AuthRegistrationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_registrations_total",
			Help: "Total number of registration attempts.",
		},
		[]string{"result"},
	)

	AuthLoginsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_logins_total",
			Help: "Total number of login attempts.",
		},
		[]string{"provider", "result"},
	)

	TokensIssuedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_tokens_issued_total",
			Help: "Total number of token pairs issued, refreshed or revoked.",
		},
		[]string{"flow", "result"},
	)

	OneTimeCodesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_one_time_codes_total",
			Help: "Issued and redeemed one-time codes by kind.",
		},
		[]string{"kind", "op", "result"},
	)

	OAuthCallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_oauth_callbacks_total",
			Help: "OAuth provider callbacks by outcome.",
		},
		[]string{"provider", "result"},
	)

	EmailsSentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_emails_sent_total",
			Help: "Outbound emails by template and result.",
		},
		[]string{"template", "result"},
	)
)

// MustRegister registers every collector on reg with a constant service label.
func MustRegister(reg prometheus.Registerer, serviceName string) {
	prometheus.WrapRegistererWith(prometheus.Labels{"service": serviceName}, reg).MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDurationSeconds,
		AuthRegistrationsTotal,
		AuthLoginsTotal,
		TokensIssuedTotal,
		OneTimeCodesTotal,
		OAuthCallbacksTotal,
		EmailsSentTotal,
	)
}

// Result maps an error to the result label used across counters.
func Result(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
