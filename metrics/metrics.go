package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ExchangesTotal tracks finished exchanges by kind (message, consequence) and status
	ExchangesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "firstcontact_exchanges_total",
			Help: "Total number of finished exchanges with world leaders",
		},
		[]string{"kind", "status"},
	)

	// ImagesTotal tracks image generation attempts by status
	ImagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "firstcontact_images_total",
			Help: "Total number of news image generation attempts",
		},
		[]string{"status"},
	)

	// LateResponsesDropped counts completions that arrived after their exchange was closed
	LateResponsesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "firstcontact_late_responses_dropped_total",
			Help: "Total number of service responses dropped because their exchange was no longer open",
		},
	)

	// ResourceCurrent is the current resource amount
	ResourceCurrent = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "firstcontact_resource_current",
			Help: "Current amount of the depleting resource",
		},
	)

	// ExchangeDuration tracks the latency of text service calls in seconds
	ExchangeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "firstcontact_exchange_duration_seconds",
			Help:    "Duration of text generation calls in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"kind"},
	)
)

const (
	StatusResolved = "resolved"
	StatusFailed   = "failed"
	StatusSuccess  = "success"
)

// RecordExchange records a finished exchange and the duration of its service call
func RecordExchange(kind, status string, durationSeconds float64) {
	ExchangesTotal.WithLabelValues(kind, status).Inc()
	ExchangeDuration.WithLabelValues(kind).Observe(durationSeconds)
}

// RecordImage records an image generation attempt
func RecordImage(status string) {
	ImagesTotal.WithLabelValues(status).Inc()
}

// RecordLateResponseDropped records a dropped late completion
func RecordLateResponseDropped() {
	LateResponsesDropped.Inc()
}

// SetResource sets the current resource amount
func SetResource(current float64) {
	ResourceCurrent.Set(current)
}

// Handler exposes the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}
