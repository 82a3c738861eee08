// Package metrics defines the Prometheus collectors exported by the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Shivanand-hulikatti/seat-reservation/internal/model"
)

// Metrics groups the service's collectors.
type Metrics struct {
	// method, route, status_code
	HTTPRequestsTotal *prometheus.CounterVec
	// method, route
	HTTPRequestDuration *prometheus.HistogramVec
	// outcome
	ReservationsTotal *prometheus.CounterVec
	// outcome
	ReservationDuration *prometheus.HistogramVec
}

// NewWithRegistry registers the collectors with reg.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status_code"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "route"},
		),
		ReservationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reservations_total",
				Help: "Total number of reservation attempts by outcome",
			},
			[]string{"outcome"},
		),
		ReservationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "reservation_duration_seconds",
				Help:    "Time spent in the reservation transaction, including row lock waits",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"outcome"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.ReservationsTotal,
		m.ReservationDuration,
	)
	return m
}

// ObserveReservation records one reservation attempt.
func (m *Metrics) ObserveReservation(outcome model.Outcome, seconds float64) {
	m.ReservationsTotal.WithLabelValues(string(outcome)).Inc()
	m.ReservationDuration.WithLabelValues(string(outcome)).Observe(seconds)
}
