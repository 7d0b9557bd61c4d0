package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	redisclient "github.com/clinicstack/clinic-scheduling/internal/redis"
)

type RouterConfig struct {
	Services *Services
	Feed     *redisclient.ChangeFeed
	PgPool   *pgxpool.Pool
	Redis    *redis.Client
	Env      string
	Version  string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Everything else is clinic scoped.
	r.Group(func(r chi.Router) {
		r.Use(SessionMiddleware)

		// Availability
		r.Get("/doctors/{id}/slots", getSlotsHandler(cfg.Services))

		// Booking and queue lifecycle
		r.Post("/appointments", bookAppointmentHandler(cfg.Services))
		r.Post("/appointments/{id}/check-in", checkInHandler(cfg.Services))
		r.Put("/appointments/{id}/queue-number", setQueueNumberHandler(cfg.Services))
		r.Post("/appointments/{id}/call-in", callInHandler(cfg.Services))
		r.Post("/appointments/{id}/complete", completeHandler(cfg.Services))
		r.Post("/appointments/{id}/cancel", cancelHandler(cfg.Services))

		// Queue views
		r.Get("/queue/today", listTodayHandler(cfg.Services))
		r.Get("/queue/stream", queueStreamHandler(cfg.Feed))

		// Leave handling
		r.Get("/appointments/affected-by-leave", affectedByLeaveHandler(cfg.Services))
		r.Post("/appointments/{id}/reassign", reassignHandler(cfg.Services))

		// Reports
		r.Get("/reports/collection", collectionHandler(cfg.Services))

		// Schedule administration
		r.Put("/doctors/{id}/schedule", putDoctorScheduleHandler(cfg.Services))
		r.Post("/doctors/{id}/holidays", postDoctorHolidayHandler(cfg.Services))
		r.Put("/clinic/schedule", putClinicScheduleHandler(cfg.Services))
		r.Post("/clinic/holidays", postClinicHolidayHandler(cfg.Services))
	})

	return r
}
