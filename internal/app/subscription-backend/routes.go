package subscriptionbackend

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"golang.org/x/time/rate"

	"github.com/legalwise/subscription-backend/internal/config"
	"github.com/legalwise/subscription-backend/internal/http/handlers/payment/callback"
	"github.com/legalwise/subscription-backend/internal/http/handlers/payment/initiate"
	"github.com/legalwise/subscription-backend/internal/http/handlers/payment/webhook"
	"github.com/legalwise/subscription-backend/internal/http/handlers/subscription/health"
	"github.com/legalwise/subscription-backend/internal/http/handlers/subscription/status"
	"github.com/legalwise/subscription-backend/internal/http/middlewarectx"
	"github.com/legalwise/subscription-backend/internal/paymentprovider"
	paymentservice "github.com/legalwise/subscription-backend/internal/services/payment"
	subservice "github.com/legalwise/subscription-backend/internal/services/subscription"
)

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(
	r chi.Router,
	logger *slog.Logger,
	cfg *config.Config,
	initiationService *paymentservice.InitiationService,
	reconciler *paymentservice.Reconciler,
	statusService *subservice.StatusService,
	providerClient *paymentprovider.Client,
) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middlewarectx.CORSMiddleware,
	)

	// Группа с API-ключом: точки, которые вызывает клиентское приложение
	r.Group(func(r chi.Router) {
		r.Use(middlewarectx.APIKeyMiddleware(cfg.APIKey, logger))
		r.Use(middlewarectx.RateLimitMiddleware(rate.NewLimiter(20, 40), logger))
		r.Post("/payment/initiate", initiate.New(logger, initiationService).ServeHTTP)
		r.Post("/subscription/status", status.New(logger, statusService).ServeHTTP)
	})

	// Открытые точки: провайдер подписывает webhook сам, callback
	// приходит из браузера пользователя
	r.Get("/payment/callback", callback.New(logger, providerClient, reconciler,
		"/payment/success", "/payment/failure").ServeHTTP)
	r.Post("/payment/webhook", webhook.New(logger, reconciler, cfg.Provider.WebhookSecret).ServeHTTP)
	r.Get("/payment/success", callback.SuccessPage)
	r.Get("/payment/failure", callback.FailurePage)

	r.Get("/health", health.New(logger).ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
