package appgate

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/nanacrew/appgate/internal/config"
	adminlogin "github.com/nanacrew/appgate/internal/http/handlers/admin/login"
	applogin "github.com/nanacrew/appgate/internal/http/handlers/app/login"
	"github.com/nanacrew/appgate/internal/http/handlers/app/me"
	"github.com/nanacrew/appgate/internal/http/handlers/app/register"
	"github.com/nanacrew/appgate/internal/http/handlers/app/resetpassword"
	"github.com/nanacrew/appgate/internal/http/handlers/session/validate"
	"github.com/nanacrew/appgate/internal/http/handlers/subscription/check"
	"github.com/nanacrew/appgate/internal/http/handlers/subscription/forcelogout"
	"github.com/nanacrew/appgate/internal/http/middlewarectx"
	"github.com/nanacrew/appgate/internal/lib/jwt"
	adminservice "github.com/nanacrew/appgate/internal/services/admin"
	authservice "github.com/nanacrew/appgate/internal/services/auth"
	entitlementservice "github.com/nanacrew/appgate/internal/services/entitlement"
	sessionservice "github.com/nanacrew/appgate/internal/services/session"
)

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, cfg *config.Config,
	entitlementService *entitlementservice.EntitlementService,
	sessionService *sessionservice.SessionService,
	authService *authservice.AuthService,
	adminService *adminservice.AdminService,
	jwtMaker jwt.Maker) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки мобильных приложений
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.RateLimitMiddleware(logger))
			r.Post("/subscriptions/check", check.New(logger, entitlementService).ServeHTTP)
			r.Post("/sessions/validate", validate.New(logger, sessionService).ServeHTTP)
			r.Post("/app/login", applogin.New(logger, authService).ServeHTTP)
			r.Post("/app/register", register.New(logger, authService).ServeHTTP)
			r.Post("/app/reset-password", resetpassword.New(logger, authService).ServeHTTP)
			r.Post("/admin/login", adminlogin.New(logger, adminService, cfg.AdminTokenTTL).ServeHTTP)
		})

		// Группа с bearer-токеном мобильного пользователя
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(jwtMaker, logger))
			r.Get("/app/me", me.New(logger, authService).ServeHTTP)
		})

		// Группа административных операций за cookie админки
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.AdminMiddleware(adminService, logger))
			r.Post("/subscriptions/{id}/logout", forcelogout.New(logger, sessionService).ServeHTTP)
		})
	})

	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
