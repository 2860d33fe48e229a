// Package status отвечает на запрос «активна ли подписка клиента».
package status

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
	subservice "github.com/legalwise/subscription-backend/internal/services/subscription"
)

// Request тело запроса статуса.
type Request struct {
	Email string `json:"email" validate:"required,email"`
}

// Service определяет интерфейс проверки статуса подписки.
type Service interface {
	Check(ctx context.Context, email string) (*subservice.Status, error)
}

// Handler обрабатывает POST /subscription/status.
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
// @Summary Проверить статус подписки
// @Description Возвращает active и, для активной подписки, тариф и дату окончания
// @Tags Subscriptions
// @Accept  json
// @Produce  json
// @Param request body Request true "Email клиента"
// @Success 200 {object} subservice.Status
// @Failure 400 {object} response.ErrorResponse "Некорректный запрос"
// @Failure 504 {object} response.ErrorResponse "Хранилище не ответило вовремя"
// @Router /subscription/status [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.status"
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

	status, err := h.service.Check(r.Context(), req.Email)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrValidation):
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("invalid request"))
		case errors.Is(err, apperrors.ErrStoreTimeout):
			log.Error("store lookup timed out", sl.Err(err))
			w.WriteHeader(http.StatusGatewayTimeout)
			render.JSON(w, r, response.Error("subscription lookup timed out"))
		default:
			log.Error("failed to check subscription", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("internal error"))
		}
		return
	}

	render.JSON(w, r, status)
}
