package payment

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/legalwise/subscription-backend/internal/models"
)

// MockReconcilerRepo реализует интерфейс ReconcilerRepository
type MockReconcilerRepo struct {
	mock.Mock
}

func (m *MockReconcilerRepo) UpsertSubscription(ctx context.Context, sub models.Subscription) error {
	args := m.Called(ctx, sub)
	return args.Error(0)
}

func (m *MockReconcilerRepo) CompleteInitialization(ctx context.Context, reference string, completedAt time.Time) (bool, error) {
	args := m.Called(ctx, reference, completedAt)
	return args.Bool(0), args.Error(1)
}

// MockCache реализует интерфейс CacheInvalidator
type MockCache struct {
	mock.Mock
}

func (m *MockCache) Invalidate(key string) error {
	args := m.Called(key)
	return args.Error(0)
}

// MockPublisher реализует интерфейс EventPublisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishActivated(sub models.Subscription) error {
	args := m.Called(sub)
	return args.Error(0)
}

func testEvent() models.PaymentEvent {
	return models.PaymentEvent{
		Email:       "Foo@Example.com",
		Plan:        models.PlanMonthly,
		Reference:   "R1",
		AmountMinor: 9000,
		RawPayload:  json.RawMessage(`{"reference":"R1","amount":9000}`),
		OccurredAt:  time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
	}
}

func TestReconciler_Reconcile(t *testing.T) {
	t.Run("записывает вычисленное из события состояние", func(t *testing.T) {
		repo := new(MockReconcilerRepo)
		cache := new(MockCache)
		pub := new(MockPublisher)

		repo.On("UpsertSubscription", mock.Anything, mock.MatchedBy(func(sub models.Subscription) bool {
			return sub.Email == "foo@example.com" &&
				sub.Plan == models.PlanMonthly &&
				sub.Status == models.StatusActive &&
				sub.ExpiryDate.Equal(time.Date(2024, 2, 15, 10, 0, 0, 0, time.UTC)) &&
				sub.LastPayment.Reference == "R1" &&
				sub.LastPayment.Amount == 90.0 &&
				sub.LastPayment.Date.Equal(time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC))
		})).Return(nil)
		repo.On("CompleteInitialization", mock.Anything, "R1", mock.Anything).Return(true, nil)
		cache.On("Invalidate", "subscription:status:foo@example.com").Return(nil)
		pub.On("PublishActivated", mock.Anything).Return(nil)

		r := NewReconciler(repo, cache, pub, testLogger())
		sub, err := r.Reconcile(context.Background(), testEvent())

		require.NoError(t, err)
		assert.Equal(t, "foo@example.com", sub.Email)
		repo.AssertExpectations(t)
		cache.AssertExpectations(t)
		pub.AssertExpectations(t)
	})

	t.Run("повторное применение события даёт то же состояние", func(t *testing.T) {
		repo := new(MockReconcilerRepo)

		var first, second models.Subscription
		call := 0
		repo.On("UpsertSubscription", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
			call++
			if call == 1 {
				first = args.Get(1).(models.Subscription)
			} else {
				second = args.Get(1).(models.Subscription)
			}
		}).Return(nil)
		// вторая доставка находит уже завершённую запись
		repo.On("CompleteInitialization", mock.Anything, "R1", mock.Anything).Return(true, nil).Once()
		repo.On("CompleteInitialization", mock.Anything, "R1", mock.Anything).Return(false, nil)

		r := NewReconciler(repo, nil, nil, testLogger())
		_, err := r.Reconcile(context.Background(), testEvent())
		require.NoError(t, err)
		_, err = r.Reconcile(context.Background(), testEvent())
		require.NoError(t, err)

		// срок действия не продлевается второй раз
		assert.Equal(t, first, second)
	})

	t.Run("годовой тариф на 29 февраля", func(t *testing.T) {
		repo := new(MockReconcilerRepo)
		repo.On("UpsertSubscription", mock.Anything, mock.MatchedBy(func(sub models.Subscription) bool {
			return sub.ExpiryDate.Equal(time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC))
		})).Return(nil)
		repo.On("CompleteInitialization", mock.Anything, mock.Anything, mock.Anything).Return(false, nil)

		event := testEvent()
		event.Plan = models.PlanAnnual
		event.OccurredAt = time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)

		r := NewReconciler(repo, nil, nil, testLogger())
		_, err := r.Reconcile(context.Background(), event)
		require.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("отсутствие записи об инициализации не является ошибкой", func(t *testing.T) {
		repo := new(MockReconcilerRepo)
		repo.On("UpsertSubscription", mock.Anything, mock.Anything).Return(nil)
		repo.On("CompleteInitialization", mock.Anything, "R1", mock.Anything).Return(false, nil)

		r := NewReconciler(repo, nil, nil, testLogger())
		_, err := r.Reconcile(context.Background(), testEvent())
		assert.NoError(t, err)
	})

	t.Run("ошибка upsert прерывает реконсиляцию", func(t *testing.T) {
		repo := new(MockReconcilerRepo)
		repo.On("UpsertSubscription", mock.Anything, mock.Anything).Return(errors.New("db down"))

		r := NewReconciler(repo, nil, nil, testLogger())
		_, err := r.Reconcile(context.Background(), testEvent())
		require.Error(t, err)
		repo.AssertNotCalled(t, "CompleteInitialization", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("ошибка публикации события не роняет реконсиляцию", func(t *testing.T) {
		repo := new(MockReconcilerRepo)
		pub := new(MockPublisher)
		repo.On("UpsertSubscription", mock.Anything, mock.Anything).Return(nil)
		repo.On("CompleteInitialization", mock.Anything, mock.Anything, mock.Anything).Return(true, nil)
		pub.On("PublishActivated", mock.Anything).Return(errors.New("broker down"))

		r := NewReconciler(repo, nil, pub, testLogger())
		_, err := r.Reconcile(context.Background(), testEvent())
		assert.NoError(t, err)
	})
}
