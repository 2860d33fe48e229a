// Package subscriptionbackend собирает сервис платёжного бэкенда:
// хранилище, кеш, клиент провайдера, бизнес-сервисы и HTTP-сервер.
package subscriptionbackend

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"

	"github.com/legalwise/subscription-backend/internal/cache"
	"github.com/legalwise/subscription-backend/internal/config"
	"github.com/legalwise/subscription-backend/internal/events"
	"github.com/legalwise/subscription-backend/internal/lib/sl"
	"github.com/legalwise/subscription-backend/internal/migrations"
	"github.com/legalwise/subscription-backend/internal/paymentprovider"
	paymentservice "github.com/legalwise/subscription-backend/internal/services/payment"
	subservice "github.com/legalwise/subscription-backend/internal/services/subscription"
	"github.com/legalwise/subscription-backend/internal/storage/repository"
)

type App struct {
	server    *http.Server
	logger    *slog.Logger
	db        *repository.Storage
	publisher *events.Publisher
}

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

	// Брокер не обязателен: без него события активации просто не публикуются.
	var publisher *events.Publisher
	if cfg.RabbitURL != "" {
		publisher, err = events.Connect(cfg.RabbitURL, 5, 2*time.Second)
		if err != nil {
			logger.Warn("rabbitmq unavailable, activation events disabled", sl.Err(err))
			publisher = nil
		}
	}

	providerClient := paymentprovider.NewClient(cfg.Provider.SecretKey, cfg.Provider.BaseURL)

	initiationService := paymentservice.NewInitiationService(providerClient, db, cfg.Provider.CallbackURL, logger)
	reconciler := paymentservice.NewReconciler(db, cacheRedis, publisher, logger)
	statusService := subservice.NewStatusService(db, cacheRedis, cfg.Provider.QueryTimeout, logger)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, cfg, initiationService, reconciler, statusService, providerClient)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server:    srv,
		logger:    logger,
		db:        db,
		publisher: publisher,
	}, nil
}

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
		a.publisher.Close()
		return err
	}
}
