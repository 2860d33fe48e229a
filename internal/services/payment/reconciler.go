package payment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/legalwise/subscription-backend/internal/lib/calendar"
	"github.com/legalwise/subscription-backend/internal/lib/sl"
	"github.com/legalwise/subscription-backend/internal/models"
)

// ReconcilerRepository определяет операции хранилища, нужные реконсиляции.
type ReconcilerRepository interface {
	UpsertSubscription(ctx context.Context, sub models.Subscription) error
	CompleteInitialization(ctx context.Context, reference string, completedAt time.Time) (bool, error)
}

// CacheInvalidator сбрасывает закешированный статус подписки.
type CacheInvalidator interface {
	Invalidate(key string) error
}

// EventPublisher публикует событие активации подписки.
type EventPublisher interface {
	PublishActivated(sub models.Subscription) error
}

// Reconciler превращает подтверждённое платёжное событие в актуальное
// состояние подписки. Оба пути подтверждения — верификация callback и
// webhook — сходятся сюда; повторное применение одного события даёт
// то же состояние.
type Reconciler struct {
	repo      ReconcilerRepository
	cache     CacheInvalidator
	publisher EventPublisher
	log       *slog.Logger
}

// NewReconciler создает новый экземпляр Reconciler.
func NewReconciler(repo ReconcilerRepository, cache CacheInvalidator, publisher EventPublisher, log *slog.Logger) *Reconciler {
	return &Reconciler{
		repo:      repo,
		cache:     cache,
		publisher: publisher,
		log:       log,
	}
}

// StatusCacheKey ключ кеша статуса подписки для нормализованного email.
func StatusCacheKey(email string) string {
	return "subscription:status:" + email
}

// Reconcile применяет событие к хранилищу. Все вычисляемые поля
// выводятся только из события, поэтому запись — полная замена одним
// атомарным upsert, без чтения-модификации-записи.
func (r *Reconciler) Reconcile(ctx context.Context, event models.PaymentEvent) (*models.Subscription, error) {
	const op = "services.payment.Reconcile"

	email := models.NormalizeEmail(event.Email)
	expiry := calendar.ExpiryFrom(event.Plan, event.OccurredAt)

	sub := models.Subscription{
		Email:      email,
		Plan:       event.Plan,
		Status:     models.StatusActive,
		ExpiryDate: expiry,
		LastPayment: models.LastPayment{
			Reference:      event.Reference,
			Amount:         float64(event.AmountMinor) / 100,
			Date:           event.OccurredAt,
			PaymentDetails: event.RawPayload,
		},
		CustomerCode: event.CustomerCode,
	}

	if err := r.repo.UpsertSubscription(ctx, sub); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	completed, err := r.repo.CompleteInitialization(ctx, event.Reference, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !completed {
		// Ренью через webhook может не иметь записи об инициализации,
		// либо она уже completed после повторной доставки. Это не ошибка.
		r.log.Info("no pending initialization for reference",
			slog.String("reference", event.Reference))
	}

	if r.cache != nil {
		if err := r.cache.Invalidate(StatusCacheKey(email)); err != nil {
			r.log.Warn("failed to invalidate status cache",
				slog.String("email", email), sl.Err(err))
		}
	}

	if r.publisher != nil {
		if err := r.publisher.PublishActivated(sub); err != nil {
			r.log.Warn("failed to publish activation event",
				slog.String("email", email), sl.Err(err))
		}
	}

	r.log.Info("subscription reconciled",
		slog.String("email", email),
		slog.String("plan", string(event.Plan)),
		slog.String("reference", event.Reference),
		slog.Time("expiry_date", expiry))

	return &sub, nil
}
