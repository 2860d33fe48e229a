// Package subscription отвечает на вопрос «активна ли подписка этого
// клиента сейчас». Актуальность всегда вычисляется по expiry_date на
// момент чтения, сохранённый статус сам по себе не является истиной.
package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/legalwise/subscription-backend/internal/apperrors"
	"github.com/legalwise/subscription-backend/internal/lib/sl"
	"github.com/legalwise/subscription-backend/internal/models"
)

// Repository определяет чтение подписки из хранилища.
type Repository interface {
	GetSubscriptionByEmail(ctx context.Context, email string) (*models.Subscription, error)
}

// Cache описывает методы кеширования статуса.
type Cache interface {
	Get(key string, result any) (bool, error)
	Set(key string, value any, expiration time.Duration) error
}

// Status результат проверки. Для неактивной подписки тариф и дата
// окончания не раскрываются.
type Status struct {
	Active     bool       `json:"active"`
	Plan       string     `json:"plan,omitempty"`
	ExpiryDate *time.Time `json:"expiry_date,omitempty"`
}

// StatusService проверяет статус подписки с ограничением времени
// обращения к хранилищу: зависшая база не должна вешать запрос.
type StatusService struct {
	repo         Repository
	cache        Cache
	queryTimeout time.Duration
	cacheTTL     time.Duration
	now          func() time.Time
	log          *slog.Logger
}

// NewStatusService создает новый экземпляр StatusService.
func NewStatusService(repo Repository, cache Cache, queryTimeout time.Duration, log *slog.Logger) *StatusService {
	return &StatusService{
		repo:         repo,
		cache:        cache,
		queryTimeout: queryTimeout,
		cacheTTL:     time.Minute,
		now:          time.Now,
		log:          log,
	}
}

func cacheKey(email string) string {
	return "subscription:status:" + email
}

// Check возвращает статус подписки для email. Неизвестный email — это
// валидный отрицательный результат, а не ошибка. Таймаут хранилища
// возвращается отдельной ошибкой apperrors.ErrStoreTimeout.
func (s *StatusService) Check(ctx context.Context, email string) (*Status, error) {
	const op = "services.subscription.Check"

	email = models.NormalizeEmail(email)
	if email == "" {
		return nil, fmt.Errorf("%s: email is required: %w", op, apperrors.ErrValidation)
	}

	if s.cache != nil {
		var cached Status
		found, err := s.cache.Get(cacheKey(email), &cached)
		if err != nil {
			s.log.Warn("status cache read failed", slog.String("email", email), sl.Err(err))
		}
		if found {
			return &cached, nil
		}
	}

	queryCtx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	sub, err := s.repo.GetSubscriptionByEmail(queryCtx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return &Status{Active: false}, nil
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%s: %w", op, apperrors.ErrStoreTimeout)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	status := &Status{Active: sub.Status == models.StatusActive && sub.ExpiryDate.After(s.now())}
	if status.Active {
		expiry := sub.ExpiryDate
		status.Plan = string(sub.Plan)
		status.ExpiryDate = &expiry
	}

	if s.cache != nil {
		if err := s.cache.Set(cacheKey(email), status, s.cacheTTL); err != nil {
			s.log.Warn("status cache write failed", slog.String("email", email), sl.Err(err))
		}
	}
	return status, nil
}
