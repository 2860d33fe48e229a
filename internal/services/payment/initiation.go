// Package payment содержит бизнес-логику платёжного контура:
// инициализацию платежа и реконсиляцию подтверждённых событий
// в состояние подписки.
package payment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/legalwise/subscription-backend/internal/apperrors"
	"github.com/legalwise/subscription-backend/internal/models"
	"github.com/legalwise/subscription-backend/internal/paymentprovider"
	"github.com/legalwise/subscription-backend/internal/pricing"
)

// ProviderClient определяет операции внешнего платёжного провайдера.
type ProviderClient interface {
	Initialize(ctx context.Context, req paymentprovider.InitializeRequest) (*paymentprovider.InitializeResult, error)
	Verify(ctx context.Context, reference string) (*paymentprovider.VerifyResult, error)
}

// InitiationRepository определяет запись журнала инициализаций.
type InitiationRepository interface {
	CreateInitialization(ctx context.Context, init models.PaymentInitialization) error
}

// InitiationService валидирует запрос на оплату, вычисляет сумму по
// тарифу и создаёт транзакцию у провайдера. Сумма из клиентского
// запроса не принимается ни при каких условиях.
type InitiationService struct {
	provider    ProviderClient
	repo        InitiationRepository
	callbackURL string
	log         *slog.Logger
}

// NewInitiationService создает новый экземпляр InitiationService.
func NewInitiationService(provider ProviderClient, repo InitiationRepository, callbackURL string, log *slog.Logger) *InitiationService {
	return &InitiationService{
		provider:    provider,
		repo:        repo,
		callbackURL: callbackURL,
		log:         log,
	}
}

// InitiationResult ответ на запрос инициализации платежа.
type InitiationResult struct {
	Reference        string
	AuthorizationURL string
}

// Initiate начинает платёж: создаёт транзакцию у провайдера и после
// успешного ответа сохраняет pending-запись. При ошибке провайдера
// ничего не сохраняется — осиротевших записей не бывает.
func (s *InitiationService) Initiate(ctx context.Context, email string, planRaw string) (*InitiationResult, error) {
	const op = "services.payment.Initiate"

	email = models.NormalizeEmail(email)
	if email == "" {
		return nil, fmt.Errorf("%s: email is required: %w", op, apperrors.ErrValidation)
	}
	plan, err := models.ParsePlan(planRaw)
	if err != nil {
		return nil, fmt.Errorf("%s: %v: %w", op, err, apperrors.ErrValidation)
	}

	price, err := pricing.For(plan)
	if err != nil {
		return nil, fmt.Errorf("%s: %v: %w", op, err, apperrors.ErrValidation)
	}

	res, err := s.provider.Initialize(ctx, paymentprovider.InitializeRequest{
		Email:       email,
		Amount:      price.AmountMinor,
		Plan:        price.PlanCode,
		CallbackURL: s.callbackURL,
		Metadata: map[string]string{
			"plan":    string(plan),
			"init_id": uuid.New().String(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	init := models.PaymentInitialization{
		Reference:   res.Reference,
		Email:       email,
		Plan:        plan,
		AmountMinor: price.AmountMinor,
		Status:      models.InitializationPending,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.repo.CreateInitialization(ctx, init); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("payment initialized",
		slog.String("email", email),
		slog.String("plan", string(plan)),
		slog.String("reference", res.Reference))

	return &InitiationResult{
		Reference:        res.Reference,
		AuthorizationURL: res.AuthorizationURL,
	}, nil
}
