package api

import (
	"net/http"

	"roomreserve/internal/config"
	"roomreserve/internal/domain"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

type Dependencies struct {
	Service   domain.ReservationService
	API       config.APIConfig
	Exports   config.ExportConfig
	Readiness map[string]ReadinessCheck
	Logger    *zerolog.Logger
}

func NewRouter(deps Dependencies) http.Handler {
	logger := zerolog.Nop()
	if deps.Logger != nil {
		logger = deps.Logger.With().Str("component", "http").Logger()
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", handleReady(deps.Readiness))

	h := NewReservationHandlers(deps.Service, deps.Exports.MaxRangeDays, logger)
	limiter := newRateLimiter(deps.API.RateLimit)

	r.Route("/reservation", func(r chi.Router) {
		r.Use(limiter.Middleware)

		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Post("/availability/check", h.CheckAvailability)
		r.Get("/export", h.Export)

		r.Get("/{id}", h.Get)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}/cancel", h.Cancel)
		r.Post("/{id}/approve", h.Approve)
	})

	return r
}
