package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/robertarktes/seat-reservation-engine/internal/idempotency"
	"github.com/robertarktes/seat-reservation-engine/internal/observability"
	"github.com/robertarktes/seat-reservation-engine/internal/rateLimit"
)

func SetupRouter(h *Handlers, logger observability.Logger, rl *rateLimit.RateLimiter, idemp *idempotency.Idempotency) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(LoggerMiddleware(logger))
	r.Use(TracingMiddleware)
	r.Use(MetricsMiddleware)
	r.Use(RateLimitMiddleware(rl))
	r.Use(IdempotencyMiddleware(idemp))

	r.Post("/v1/shows/{showID}/holds", h.CreateHold)
	r.Get("/v1/holds/{id}", h.GetHold)
	r.Post("/v1/holds/{id}/release", h.ReleaseHold)
	r.Post("/v1/orders", h.CreateOrder)
	r.Get("/v1/orders/{id}", h.GetOrder)
	r.Post("/v1/orders/{id}/confirm", h.ConfirmPayment)
	r.Get("/v1/shows/{showID}/availability", h.GetSeatAvailability)
	r.Get("/v1/healthz", h.Healthz)
	r.Get("/v1/readyz", h.Readyz)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	return r
}
