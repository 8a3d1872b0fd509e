// Package appgate собирает сервис целиком: хранилище, миграции, кеш,
// RabbitMQ, бизнес-сервисы, маршруты и HTTP-сервер.
package appgate

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/nanacrew/appgate/internal/cache"
	"github.com/nanacrew/appgate/internal/config"
	"github.com/nanacrew/appgate/internal/lib/jwt"
	"github.com/nanacrew/appgate/internal/migrations"
	"github.com/nanacrew/appgate/internal/rabbitmq"
	adminservice "github.com/nanacrew/appgate/internal/services/admin"
	"github.com/nanacrew/appgate/internal/services/audit"
	authservice "github.com/nanacrew/appgate/internal/services/auth"
	entitlementservice "github.com/nanacrew/appgate/internal/services/entitlement"
	sessionservice "github.com/nanacrew/appgate/internal/services/session"
	"github.com/nanacrew/appgate/internal/storage/repository"
)

// App инкапсулирует запущенный сервис и его ресурсы.
type App struct {
	server     *http.Server
	logger     *slog.Logger
	db         *repository.Storage
	rabbitConn *amqp.Connection
}

// New создаёт App со всеми зависимостями.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	rabbitConn, err := rabbitmq.Connect(cfg.AddressRabbit, 5, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rabbitChannel, err := rabbitmq.SetupChannel(rabbitConn, cfg.Exchange)
	if err != nil {
		return nil, err
	}
	events := audit.NewRabbitPublisher(rabbitChannel, cfg.Exchange)

	jwtMaker := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.AppTokenTTL, cfg.AdminTokenTTL)

	sessionService := sessionservice.NewSessionService(db, cacheRedis, logger, cfg.SessionTTL)
	entitlementService := entitlementservice.NewEntitlementService(db, db, sessionService, events, logger)
	authService := authservice.NewAuthService(db, db, jwtMaker, logger)
	adminService := adminservice.NewAdminService(db, jwtMaker)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, cfg, entitlementService, sessionService, authService, adminService, jwtMaker)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server:     srv,
		logger:     logger,
		db:         db,
		rabbitConn: rabbitConn,
	}, nil
}

// Run запускает HTTP-сервер и останавливает его по отмене контекста.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		_ = a.db.DB.Close()
		_ = a.rabbitConn.Close()
		return err
	}
}
