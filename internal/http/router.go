package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robertarktes/seat-reservations/internal/observability"
	"github.com/robertarktes/seat-reservations/internal/ratelimit"
)

func SetupRouter(h *Handlers, logger observability.Logger, rl *ratelimit.RateLimiter) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(LoggerMiddleware(logger))
	r.Use(TracingMiddleware)
	r.Use(RateLimitMiddleware(rl))
	r.Use(IdempotencyKeyMiddleware)

	r.Post("/v1/holds", h.CreateHold)
	r.Get("/v1/holds/active", h.ActiveHold)
	r.Post("/v1/reservations/{id}/confirm", h.Confirm)
	r.Post("/v1/reservations/{id}/cancel", h.Cancel)
	r.Get("/v1/reservations/{id}", h.GetReservation)
	r.Get("/v1/reservations", h.ListReservations)
	r.Get("/v1/users/{id}/reservations", h.GetUserReservations)
	r.Get("/v1/healthz", h.Healthz)
	r.Get("/v1/readyz", h.Readyz)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	return r
}
