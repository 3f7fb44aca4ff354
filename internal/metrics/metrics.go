// internal/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedback_submissions_total",
			Help: "Total number of accepted feedback submissions",
		},
		[]string{"department", "semester"},
	)

	RejectedSubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedback_rejected_submissions_total",
			Help: "Submissions rejected as incomplete or invalid",
		},
		[]string{"reason"},
	)

	EligibilityFailOpenTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eligibility_fail_open_total",
			Help: "Eligibility resolutions that defaulted open after a storage failure",
		},
		[]string{"instrument"},
	)

	CumulativeRatingHistogram = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "feedback_cumulative_rating",
			Help:    "Distribution of per-record cumulative averages",
			Buckets: prometheus.LinearBuckets(1, 0.5, 9),
		},
		[]string{"department"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method", "status"},
	)
)
