// Package initiate обрабатывает запрос на начало оплаты подписки.
package initiate

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/legalwise/subscription-backend/internal/apperrors"
	"github.com/legalwise/subscription-backend/internal/http/response"
	"github.com/legalwise/subscription-backend/internal/lib/sl"
	paymentservice "github.com/legalwise/subscription-backend/internal/services/payment"
)

// Request тело запроса. Суммы здесь нет и быть не может: цена
// вычисляется на сервере из тарифа.
type Request struct {
	Email string `json:"email" validate:"required,email"`
	Plan  string `json:"plan" validate:"required,oneof=monthly annual"`
}

// Service определяет интерфейс инициализации платежа.
type Service interface {
	Initiate(ctx context.Context, email, plan string) (*paymentservice.InitiationResult, error)
}

// Handler обрабатывает POST /payment/initiate.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Начать оплату подписки
// @Description Создает транзакцию у платёжного провайдера и возвращает URL страницы оплаты
// @Tags Payments
// @Accept  json
// @Produce  json
// @Param request body Request true "Email и тариф"
// @Success 200 {object} response.Response "Референс и URL оплаты"
// @Failure 400 {object} response.ErrorResponse "Некорректный запрос"
// @Failure 502 {object} response.ErrorResponse "Провайдер недоступен"
// @Router /payment/initiate [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.initiate"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	res, err := h.service.Initiate(r.Context(), req.Email, req.Plan)
	if err != nil {
		writeInitiateError(w, r, log, err)
		return
	}

	log.Info("payment initiated", slog.String("reference", res.Reference))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"reference":         res.Reference,
		"authorization_url": res.AuthorizationURL,
	}))
}

func writeInitiateError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	var pe *apperrors.ProviderError
	switch {
	case errors.Is(err, apperrors.ErrValidation):
		log.Error("invalid initiation request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request"))
	case errors.As(err, &pe) && !pe.Retryable:
		log.Error("provider rejected initiation", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("failed to initialize payment: "+pe.Message))
	case errors.As(err, &pe):
		log.Error("provider unavailable", sl.Err(err))
		w.WriteHeader(http.StatusBadGateway)
		render.JSON(w, r, response.Error("payment provider unavailable"))
	default:
		log.Error("failed to initiate payment", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
	}
}
