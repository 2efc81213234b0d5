package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reservations_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "code", "method"},
	)

	HoldsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reservations_holds_created_total",
			Help: "Total holds created",
		},
	)

	ReservationsConfirmed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reservations_confirmed_total",
			Help: "Total reservations confirmed",
		},
	)

	ReservationsReleased = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reservations_released_total",
			Help: "Total reservations released by cancellation",
		},
	)

	ReservationsExpired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reservations_expired_total",
			Help: "Total holds expired by the sweep",
		},
	)

	SweepPasses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reservations_sweep_passes_total",
			Help: "Total expiration sweep passes",
		},
	)

	SweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "reservations_sweep_duration_seconds",
			Help:    "Duration of one expiration sweep pass",
			Buckets: prometheus.DefBuckets,
		},
	)

	SeatStatePushFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reservations_seat_state_push_failures_total",
			Help: "Total failed seat state updates against the inventory service",
		},
	)

	RateLimitExceeded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reservations_rate_limit_exceeded_total",
			Help: "Total requests rejected by the rate limiter",
		},
	)
)
