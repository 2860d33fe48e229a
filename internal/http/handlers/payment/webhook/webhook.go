// Package webhook принимает асинхронные уведомления платёжного
// провайдера. Любая мутация состояния возможна только после проверки
// HMAC-SHA512 подписи сырого тела запроса.
package webhook

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/legalwise/subscription-backend/internal/http/response"
	"github.com/legalwise/subscription-backend/internal/lib/signature"
	"github.com/legalwise/subscription-backend/internal/lib/sl"
	"github.com/legalwise/subscription-backend/internal/models"
	"github.com/legalwise/subscription-backend/internal/pricing"
)

// SignatureHeader заголовок с подписью уведомления.
const SignatureHeader = "X-Paystack-Signature"

// EventChargeSuccess единственный тип события, меняющий состояние.
const EventChargeSuccess = "charge.success"

// Reconciler применяет подтверждённое событие к подписке.
type Reconciler interface {
	Reconcile(ctx context.Context, event models.PaymentEvent) (*models.Subscription, error)
}

// Handler обрабатывает POST /payment/webhook.
type Handler struct {
	log           *slog.Logger
	reconciler    Reconciler
	webhookSecret string
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, reconciler Reconciler, secret string) *Handler {
	return &Handler{
		log:           log,
		reconciler:    reconciler,
		webhookSecret: secret,
	}
}

// Payload тело уведомления провайдера.
type Payload struct {
	Event string `json:"event"`
	Data  struct {
		Reference string    `json:"reference"`
		Amount    int64     `json:"amount"`
		PaidAt    time.Time `json:"paid_at"`
		Customer  struct {
			Email        string `json:"email"`
			CustomerCode string `json:"customer_code"`
		} `json:"customer"`
		Plan struct {
			PlanCode string `json:"plan_code"`
		} `json:"plan"`
		Metadata map[string]string `json:"metadata"`
	} `json:"data"`
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.webhook"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	// Подпись считается по байтам с провода, до любого декодирования.
	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Error("failed to read webhook body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if !signature.Verify(h.webhookSecret, body, r.Header.Get(SignatureHeader)) {
		log.Error("invalid or missing webhook signature")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("invalid signature"))
		return
	}

	var payload Payload
	if err := json.Unmarshal(body, &payload); err != nil {
		log.Error("failed to unmarshal webhook payload", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if payload.Event != EventChargeSuccess {
		// незнакомые события подтверждаются, но не обрабатываются
		log.Info("ignored webhook event", slog.String("event", payload.Event))
		render.JSON(w, r, map[string]bool{"received": true})
		return
	}

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		log.Error("failed to extract webhook data", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	occurredAt := payload.Data.PaidAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}
	event := models.PaymentEvent{
		Email:        payload.Data.Customer.Email,
		Plan:         eventPlan(payload),
		Reference:    payload.Data.Reference,
		AmountMinor:  payload.Data.Amount,
		CustomerCode: payload.Data.Customer.CustomerCode,
		RawPayload:   envelope.Data,
		OccurredAt:   occurredAt,
	}

	// Ошибка реконсиляции должна вернуть 5xx: провайдер доставит
	// уведомление повторно, и событие не потеряется.
	if _, err := h.reconciler.Reconcile(r.Context(), event); err != nil {
		log.Error("failed to process webhook event", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	log.Info("webhook processed",
		slog.String("event", payload.Event),
		slog.String("reference", payload.Data.Reference))
	render.JSON(w, r, map[string]bool{"received": true})
}

// eventPlan выбирает тариф: metadata, код плана провайдера, иначе monthly.
func eventPlan(payload Payload) models.Plan {
	if raw, ok := payload.Data.Metadata["plan"]; ok {
		if plan, err := models.ParsePlan(raw); err == nil {
			return plan
		}
	}
	if plan, ok := pricing.PlanFromCode(payload.Data.Plan.PlanCode); ok {
		return plan
	}
	return models.PlanMonthly
}
