package tracker

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/glove-rehab-tracker/internal/cache"
	"github.com/magabrotheeeer/glove-rehab-tracker/internal/config"
	"github.com/magabrotheeeer/glove-rehab-tracker/internal/docstore"
	"github.com/magabrotheeeer/glove-rehab-tracker/internal/identity"
	"github.com/magabrotheeeer/glove-rehab-tracker/internal/lib/jwt"
	librabbitmq "github.com/magabrotheeeer/glove-rehab-tracker/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/glove-rehab-tracker/internal/migrations"
	"github.com/magabrotheeeer/glove-rehab-tracker/internal/rabbitmq"
	authservice "github.com/magabrotheeeer/glove-rehab-tracker/internal/services/auth"
	authzservice "github.com/magabrotheeeer/glove-rehab-tracker/internal/services/authz"
	rosterservice "github.com/magabrotheeeer/glove-rehab-tracker/internal/services/roster"
	sessionservice "github.com/magabrotheeeer/glove-rehab-tracker/internal/services/session"
	"github.com/magabrotheeeer/glove-rehab-tracker/internal/storage/repository"
)

// App собирает HTTP-сервер трекера и его зависимости.
type App struct {
	server *http.Server
	logger *slog.Logger
	store  *docstore.Storage
	conn   *amqp.Connection
	ch     *amqp.Channel
}

// New инициализирует хранилище, кеш, брокер и сервисы приложения.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	store, err := docstore.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(store.DB, cfg.MigrationsPath); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	conn, err := rabbitmq.Connect(cfg.RabbitURL, cfg.RabbitRetries, cfg.RabbitRetryDelay)
	if err != nil {
		return nil, err
	}
	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetNotificationQueues())
	if err != nil {
		conn.Close()
		return nil, err
	}
	publisher := librabbitmq.NewPublisher(ch, rabbitmq.Exchange, rabbitmq.ObservationRoutingKey)

	repo := repository.New(store)
	identityService := identity.New(store)
	tokenMaker := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)

	authzService := authzservice.NewAuthzService(repo, logger)
	sessionService := sessionservice.NewSessionService(repo, authzService, logger)
	authService := authservice.NewAuthService(repo, identityService, tokenMaker, logger)
	rosterService := rosterservice.NewRosterService(repo, sessionService, cacheRedis, publisher, logger)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, authService, sessionService, rosterService)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		store:  store,
		conn:   conn,
		ch:     ch,
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
		if closeErr := a.ch.Close(); closeErr != nil {
			a.logger.Error("failed to close channel", slog.Any("err", closeErr))
		}
		if closeErr := a.conn.Close(); closeErr != nil {
			a.logger.Error("failed to close connection", slog.Any("err", closeErr))
		}
		if closeErr := a.store.DB.Close(); closeErr != nil {
			a.logger.Error("failed to close storage", slog.Any("err", closeErr))
		}
		return err
	}
}
