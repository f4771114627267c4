// Package metrics holds the Prometheus collectors shared by the console.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// API records calls made to the FilmHive REST API. A nil *API is a no-op.
type API struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewAPI(reg prometheus.Registerer) *API {
	m := &API{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "filmhive",
			Subsystem: "api_client",
			Name:      "requests_total",
			Help:      "FilmHive API requests by operation and status class.",
		}, []string{"op", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "filmhive",
			Subsystem: "api_client",
			Name:      "request_duration_seconds",
			Help:      "FilmHive API request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
	}
	if reg != nil {
		reg.MustRegister(m.requests, m.duration)
	}
	return m
}

// Observe records one call. status 0 means the request never got a response.
func (m *API) Observe(op string, status int, took time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(op, StatusClass(status)).Inc()
	m.duration.WithLabelValues(op).Observe(took.Seconds())
}

// StatusClass buckets an HTTP status into "2xx".."5xx", or "error".
func StatusClass(status int) string {
	if status < 100 || status > 599 {
		return "error"
	}
	return strconv.Itoa(status/100) + "xx"
}

// NewRegistry returns a registry preloaded with the Go and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
