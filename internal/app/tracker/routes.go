// Package tracker предоставляет маршруты и сборку основного приложения.
package tracker

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/glove-rehab-tracker/internal/http/handlers/auth/deleteuser"
	"github.com/magabrotheeeer/glove-rehab-tracker/internal/http/handlers/auth/login"
	"github.com/magabrotheeeer/glove-rehab-tracker/internal/http/handlers/auth/register"
	"github.com/magabrotheeeer/glove-rehab-tracker/internal/http/handlers/dashboard"
	"github.com/magabrotheeeer/glove-rehab-tracker/internal/http/handlers/patient/add"
	"github.com/magabrotheeeer/glove-rehab-tracker/internal/http/handlers/patient/detail"
	"github.com/magabrotheeeer/glove-rehab-tracker/internal/http/handlers/patient/list"
	"github.com/magabrotheeeer/glove-rehab-tracker/internal/http/handlers/patient/observation"
	"github.com/magabrotheeeer/glove-rehab-tracker/internal/http/middlewarectx"
	authservice "github.com/magabrotheeeer/glove-rehab-tracker/internal/services/auth"
	rosterservice "github.com/magabrotheeeer/glove-rehab-tracker/internal/services/roster"
	sessionservice "github.com/magabrotheeeer/glove-rehab-tracker/internal/services/session"
)

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger,
	authService *authservice.AuthService,
	sessionService *sessionservice.SessionService,
	rosterService *rosterservice.RosterService) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Post("/auth/register", register.New(logger, authService).ServeHTTP)
		r.Post("/auth/login", login.New(logger, authService).ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(authService, logger))
			r.Use(middlewarectx.RateLimitMiddleware(logger))
			r.Get("/dashboard", dashboard.New(logger, sessionService).ServeHTTP)
			r.Delete("/users/me", deleteuser.New(logger, authService).ServeHTTP)
			r.Post("/patients", add.New(logger, rosterService).ServeHTTP)
			r.Get("/patients", list.New(logger, rosterService).ServeHTTP)
			r.Get("/patients/{email}", detail.New(logger, rosterService).ServeHTTP)
			r.Post("/patients/observations", observation.New(logger, rosterService).ServeHTTP)
		})
	})

	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
