// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups every collector the service records.
type Metrics struct {
	// HTTP requests by method, route and status code.
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTP latency by method and route.
	HTTPRequestDuration *prometheus.HistogramVec

	// Seat lock attempts by result (success, held_by_other, already_booked,
	// invalid, error).
	SeatLockAttempts *prometheus.CounterVec

	// Seats returned to the free pool by reason (release, sweep).
	SeatsReleased *prometheus.CounterVec

	// Booking commits by result.
	BookingCommits *prometheus.CounterVec

	// Open real-time subscriptions across all showtimes.
	RealtimeSubscribers prometheus.Gauge

	// Events not delivered because a subscriber's buffer was full.
	RealtimeDropped prometheus.Counter
}

// New creates the collectors and registers them with the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates the collectors and registers them with reg.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		SeatLockAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "seat_lock_attempts_total",
				Help: "Seat lock acquisition attempts by result",
			},
			[]string{"result"},
		),
		SeatsReleased: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "seat_releases_total",
				Help: "Seat locks removed by reason",
			},
			[]string{"reason"},
		),
		BookingCommits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "booking_commits_total",
				Help: "Booking commit attempts by result",
			},
			[]string{"result"},
		),
		RealtimeSubscribers: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "realtime_subscribers",
				Help: "Open seat status subscriptions",
			},
		),
		RealtimeDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "realtime_dropped_events_total",
				Help: "Seat status events dropped for slow subscribers",
			},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.SeatLockAttempts,
		m.SeatsReleased,
		m.BookingCommits,
		m.RealtimeSubscribers,
		m.RealtimeDropped,
	)

	return m
}

// NewNop returns collectors registered on a throwaway registry.  Tests and
// tools that do not export metrics use it to avoid nil checks.
func NewNop() *Metrics {
	return NewWithRegistry(prometheus.NewRegistry())
}
