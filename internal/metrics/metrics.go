// Package metrics provides Prometheus metrics for articledesk.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal counts handled HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "articledesk",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by route, method and status",
		},
		[]string{"route", "method", "status"},
	)

	// RequestDuration measures request latency.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "articledesk",
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	// ImageStoreOps counts image store calls by outcome.
	ImageStoreOps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "articledesk",
			Name:      "image_store_operations_total",
			Help:      "Total number of image store operations",
		},
		[]string{"operation", "status"},
	)

	// EventsPublished counts lifecycle events by outcome.
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "articledesk",
			Name:      "events_published_total",
			Help:      "Total number of article events handed to the publisher",
		},
		[]string{"type", "status"},
	)
)

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// RecordRequest records one served request.
func RecordRequest(route, method, code string, seconds float64) {
	RequestsTotal.WithLabelValues(route, method, code).Inc()
	RequestDuration.WithLabelValues(route, method).Observe(seconds)
}

// RecordImageOp records an image store call.
func RecordImageOp(operation string, err error) {
	ImageStoreOps.WithLabelValues(operation, status(err)).Inc()
}

// RecordEvent records a publish attempt.
func RecordEvent(eventType string, err error) {
	EventsPublished.WithLabelValues(eventType, status(err)).Inc()
}
