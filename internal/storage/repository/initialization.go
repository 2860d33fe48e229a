package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/legalwise/subscription-backend/internal/apperrors"
	"github.com/legalwise/subscription-backend/internal/models"
)

// CreateInitialization сохраняет запись об инициализации платежа
// в статусе pending. Записи никогда не удаляются — это журнал попыток.
func (s *Storage) CreateInitialization(ctx context.Context, init models.PaymentInitialization) error {
	const op = "storage.CreateInitialization"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO payment_initializations (reference, email, plan, amount_minor, status, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := s.DB.ExecContext(ctx, query,
		init.Reference, init.Email, string(init.Plan), init.AmountMinor, init.Status, init.CreatedAt)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GetInitializationByReference возвращает запись по референсу провайдера.
func (s *Storage) GetInitializationByReference(ctx context.Context, reference string) (*models.PaymentInitialization, error) {
	const op = "storage.GetInitializationByReference"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT reference, email, plan, amount_minor, status, created_at, completed_at
			  FROM payment_initializations WHERE reference = $1`
	row := s.DB.QueryRowContext(ctx, query, reference)

	var (
		result models.PaymentInitialization
		plan   string
	)
	err := row.Scan(&result.Reference, &result.Email, &plan, &result.AmountMinor,
		&result.Status, &result.CreatedAt, &result.CompletedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	result.Plan = models.Plan(plan)
	return &result, nil
}

// CompleteInitialization переводит запись pending -> completed ровно
// один раз: условие по статусу в самом запросе исключает гонку двух
// конкурентных реконсиляций. Ноль затронутых строк — не ошибка.
func (s *Storage) CompleteInitialization(ctx context.Context, reference string, completedAt time.Time) (bool, error) {
	const op = "storage.CompleteInitialization"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE payment_initializations
			  SET status = $1, completed_at = $2
			  WHERE reference = $3 AND status = $4`
	result, err := s.DB.ExecContext(ctx, query,
		models.InitializationCompleted, completedAt, reference, models.InitializationPending)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return rowsAffected > 0, nil
}
