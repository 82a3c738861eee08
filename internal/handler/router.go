package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Shivanand-hulikatti/seat-reservation/internal/metrics"
)

// NewRouter builds the HTTP routing tree with the global middleware stack.
func NewRouter(bookings *BookingHandler, health *HealthHandler, m *metrics.Metrics, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID) // attach request IDs
	r.Use(chimiddleware.RealIP)    // trust X-Forwarded-For
	r.Use(Logger)                  // structured access log
	r.Use(chimiddleware.Recoverer) // recover from panics, return 500
	r.Use(Metrics(m))
	r.Use(CORS)

	r.Get("/health", health.Check)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Post("/bookings/reserve", bookings.Reserve)

		r.Route("/events", func(r chi.Router) {
			r.Post("/", bookings.CreateEvent)
			r.Get("/", bookings.ListEvents)
			r.Get("/{id}", bookings.GetEvent)
			r.Get("/{id}/bookings", bookings.ListBookings)
		})
	})

	return r
}
