package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/legalwise/subscription-backend/internal/apperrors"
	"github.com/legalwise/subscription-backend/internal/models"
)

// UpsertSubscription записывает состояние подписки целиком одним
// атомарным запросом. Конфликт по email разрешается полной заменой
// вычисленных из события полей, поэтому повторное применение того же
// события даёт тот же результат.
func (s *Storage) UpsertSubscription(ctx context.Context, sub models.Subscription) error {
	const op = "storage.UpsertSubscription"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO subscriptions (email, plan, status, expiry_date,
				  last_payment_reference, last_payment_amount, last_payment_date,
				  last_payment_details, customer_code, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
			  ON CONFLICT (email) DO UPDATE SET
				  plan = EXCLUDED.plan,
				  status = EXCLUDED.status,
				  expiry_date = EXCLUDED.expiry_date,
				  last_payment_reference = EXCLUDED.last_payment_reference,
				  last_payment_amount = EXCLUDED.last_payment_amount,
				  last_payment_date = EXCLUDED.last_payment_date,
				  last_payment_details = EXCLUDED.last_payment_details,
				  customer_code = COALESCE(NULLIF(EXCLUDED.customer_code, ''), subscriptions.customer_code),
				  updated_at = now()`
	_, err := s.DB.ExecContext(ctx, query,
		sub.Email, string(sub.Plan), sub.Status, sub.ExpiryDate,
		sub.LastPayment.Reference, sub.LastPayment.Amount, sub.LastPayment.Date,
		[]byte(sub.LastPayment.PaymentDetails), sub.CustomerCode)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GetSubscriptionByEmail возвращает подписку по нормализованному email.
// Отсутствие записи — apperrors.ErrNotFound.
func (s *Storage) GetSubscriptionByEmail(ctx context.Context, email string) (*models.Subscription, error) {
	const op = "storage.GetSubscriptionByEmail"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT email, plan, status, expiry_date,
				  last_payment_reference, last_payment_amount, last_payment_date,
				  last_payment_details, COALESCE(customer_code, '')
			  FROM subscriptions WHERE email = $1`
	row := s.DB.QueryRowContext(ctx, query, email)

	var (
		result  models.Subscription
		plan    string
		details []byte
	)
	err := row.Scan(&result.Email, &plan, &result.Status, &result.ExpiryDate,
		&result.LastPayment.Reference, &result.LastPayment.Amount, &result.LastPayment.Date,
		&details, &result.CustomerCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	result.Plan = models.Plan(plan)
	result.LastPayment.PaymentDetails = details
	return &result, nil
}
