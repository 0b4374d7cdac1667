package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
)

// healthCheckTimeout bounds the dependency probes behind GET /health.
const healthCheckTimeout = 2 * time.Second

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORS.AllowedOrigins,
		AllowedMethods:   s.cfg.CORS.AllowedMethods,
		AllowedHeaders:   s.cfg.CORS.AllowedHeaders,
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: s.cfg.CORS.AllowCredentials,
		MaxAge:           s.cfg.CORS.MaxAge,
	}))
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Handle("/metrics", s.metrics.handler())

		wsPath := s.wsCfg.Path
		if wsPath == "" {
			wsPath = "/ws"
		}
		r.Get(wsPath, s.handleWebSocket)

		r.Route("/auth", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(s.rateLimit(s.secCfg.RateLimit.AuthRequestsPerMinute, httprate.KeyByIP))
				r.Post("/register", s.handleRegister)
				r.Post("/login", s.handleLogin)
			})
			r.Group(func(r chi.Router) {
				r.Use(s.requireUser)
				r.Post("/test-token", s.handleTestToken)
				r.Post("/ws-ticket", s.handleWSTicket)
			})
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(s.requireUser)
			r.Get("/me", s.handleGetMe)
			r.Patch("/me", s.handleUpdateMe)

			r.Group(func(r chi.Router) {
				r.Use(s.requireSuperuser)
				r.Get("/", s.handleListUsers)
				r.Get("/{id}", s.handleGetUser)
				r.Patch("/{id}", s.handleUpdateUser)
				r.Delete("/{id}", s.handleDeleteUser)
			})
		})

		r.Route("/plants", func(r chi.Router) {
			// Catalog reads work anonymously
			r.Group(func(r chi.Router) {
				r.Use(s.optionalUser)
				r.Get("/", s.handleListSpecies)
				r.Get("/search", s.handleSearchSpecies)
				r.Get("/by-care-level/{level}", s.handleSpeciesByCareLevel)
				r.Get("/{species_id}", s.handleGetSpecies)
			})
			r.Group(func(r chi.Router) {
				r.Use(s.requireUser, s.requireSuperuser)
				r.Post("/", s.handleCreateSpecies)
				r.Patch("/{species_id}", s.handleUpdateSpecies)
			})
		})

		r.Route("/user-plants", func(r chi.Router) {
			r.Use(s.requireUser)
			r.Get("/", s.handleListUserPlants)
			r.Post("/", s.handleCreateUserPlant)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetUserPlant)
				r.Put("/", s.handleUpdateUserPlant)
				r.Patch("/", s.handleUpdateUserPlant)
				r.Delete("/", s.handleDeleteUserPlant)
				r.Post("/water", s.handleWaterUserPlant)
			})
		})

		r.Route("/sensors", func(r chi.Router) {
			// Device endpoint: authenticated by the sensor's own token
			r.With(s.rateLimit(s.secCfg.RateLimit.DeviceRequestsPerMinute, httprate.KeyByEndpoint)).
				Post("/{device_id}/readings", s.handleSubmitReading)

			r.Group(func(r chi.Router) {
				r.Use(s.requireUser)
				r.Get("/", s.handleListSensors)
				r.Post("/", s.handleCreateSensor)
				r.Get("/{device_id}", s.handleGetSensor)
				r.Put("/{device_id}", s.handleUpdateSensor)
				r.Delete("/{device_id}", s.handleDeleteSensor)
				r.Get("/{device_id}/readings", s.handleListReadings)
				r.Get("/{device_id}/readings/latest", s.handleLatestReading)
			})
		})

		r.Route("/watering", func(r chi.Router) {
			r.Use(s.requireUser)
			r.Patch("/events/{event_id}", s.handleUpdateWateringEvent)
			r.Delete("/{event_id}", s.handleDeleteWateringEvent)
			r.Post("/{plant_id}/trigger", s.handleTriggerWatering)
			r.Get("/{plant_id}/history", s.handleWateringHistory)
			r.Get("/{plant_id}/statistics", s.handleWateringStatistics)
		})

		r.Route("/alerts", func(r chi.Router) {
			r.Use(s.requireUser)
			r.Get("/", s.handleListAlerts)
			r.Post("/mark-all-read", s.handleMarkAllAlertsRead)
			r.Get("/{id}", s.handleGetAlert)
			r.Post("/{id}/mark-read", s.handleMarkAlertRead)
			r.Delete("/{id}", s.handleDeleteAlert)
		})
	})

	return r
}

// rateLimit returns a per-minute limiter keyed by key, or a pass-through
// when rate limiting is disabled.
func (s *Server) rateLimit(perMinute int, key httprate.KeyFunc) func(http.Handler) http.Handler {
	if !s.secCfg.RateLimit.Enabled || perMinute <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(perMinute, time.Minute,
		httprate.WithKeyFuncs(key),
		httprate.WithLimitHandler(rateLimitExceeded),
	)
}

// healthResponse is the body of GET /health.
type healthResponse struct {
	Status     string            `json:"status"`
	Version    string            `json:"version"`
	Components map[string]string `json:"components,omitempty"`
}

// handleHealth returns the server and dependency status.
// The database is required; other components only mark the status degraded.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	resp := healthResponse{Status: "ok", Version: s.version}
	status := http.StatusOK

	if s.db != nil {
		if err := s.db.HealthCheck(ctx); err != nil {
			s.logger.Error("database health check failed", "error", err)
			resp.Status = "unavailable"
			status = http.StatusServiceUnavailable
		}
	}

	if len(s.components) > 0 {
		resp.Components = make(map[string]string, len(s.components))
		for name, c := range s.components {
			if err := c.HealthCheck(ctx); err != nil {
				resp.Components[name] = err.Error()
				if resp.Status == "ok" {
					resp.Status = "degraded"
				}
				continue
			}
			resp.Components[name] = "ok"
		}
	}

	writeJSON(w, status, resp)
}
