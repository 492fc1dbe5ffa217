// internal/utils/metrics.go
package utils

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BatchesCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "agriqcert_batches_created_total",
		Help: "Total number of batches submitted for certification",
	})

	BatchesDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "agriqcert_batches_deleted_total",
		Help: "Total number of batches removed",
	})

	InspectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agriqcert_inspections_total",
		Help: "Total number of inspections recorded",
	}, []string{"result"})

	OrderTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agriqcert_order_transitions_total",
		Help: "Total number of order status changes",
	}, []string{"to"})

	TransitionConflictsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agriqcert_transition_conflicts_total",
		Help: "Total number of rejected lifecycle transitions",
	}, []string{"operation"})

	EventPublishFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "agriqcert_event_publish_failures_total",
		Help: "Total number of lifecycle events that could not be published",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
