package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_http_requests_total",
			Help: "HTTP requests by method, path and status code",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "portal_http_request_duration_seconds",
			Help:    "HTTP request latency by method and path",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	LinksIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_links_issued_total",
			Help: "Magic links issued by outcome (created|reused)",
		},
		[]string{"outcome"},
	)

	LinkValidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_link_validations_total",
			Help: "Link validation attempts by result (ok or failure reason)",
		},
		[]string{"result"},
	)

	OTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_otp_requests_total",
			Help: "OTP requests by result (ok or failure reason)",
		},
		[]string{"result"},
	)

	OTPVerifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_otp_verifications_total",
			Help: "OTP verification attempts by result (ok or failure reason)",
		},
		[]string{"result"},
	)

	CleanupDeleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_cleanup_deleted_total",
			Help: "Rows removed by the retention sweep, by entity",
		},
		[]string{"entity"},
	)
)
