// Package callback обрабатывает возврат пользователя со страницы оплаты.
// Референс из query проверяется у провайдера, успешный платёж
// реконсилируется в состояние подписки.
package callback

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/legalwise/subscription-backend/internal/http/response"
	"github.com/legalwise/subscription-backend/internal/lib/sl"
	"github.com/legalwise/subscription-backend/internal/models"
	"github.com/legalwise/subscription-backend/internal/paymentprovider"
	"github.com/legalwise/subscription-backend/internal/pricing"
)

// Verifier определяет верификацию транзакции у провайдера.
type Verifier interface {
	Verify(ctx context.Context, reference string) (*paymentprovider.VerifyResult, error)
}

// Reconciler применяет подтверждённое событие к подписке.
type Reconciler interface {
	Reconcile(ctx context.Context, event models.PaymentEvent) (*models.Subscription, error)
}

// Handler обрабатывает GET /payment/callback.
type Handler struct {
	log        *slog.Logger
	verifier   Verifier
	reconciler Reconciler
	successURL string
	failureURL string
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, verifier Verifier, reconciler Reconciler, successURL, failureURL string) *Handler {
	return &Handler{
		log:        log,
		verifier:   verifier,
		reconciler: reconciler,
		successURL: successURL,
		failureURL: failureURL,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.callback"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	reference := r.URL.Query().Get("reference")
	if reference == "" {
		// провайдер дублирует референс в trxref
		reference = r.URL.Query().Get("trxref")
	}
	if reference == "" {
		log.Error("missing reference in callback")
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("missing reference"))
		return
	}

	res, err := h.verifier.Verify(r.Context(), reference)
	if err != nil {
		log.Error("failed to verify transaction", slog.String("reference", reference), sl.Err(err))
		http.Redirect(w, r, h.failureURL, http.StatusSeeOther)
		return
	}
	if !res.Success {
		log.Info("transaction not successful", slog.String("reference", reference))
		http.Redirect(w, r, h.failureURL, http.StatusSeeOther)
		return
	}

	event := models.PaymentEvent{
		Email:        res.Email,
		Plan:         eventPlan(res.Metadata, res.PlanCode),
		Reference:    res.Reference,
		AmountMinor:  res.AmountMinor,
		CustomerCode: res.CustomerCode,
		RawPayload:   res.RawPayload,
		OccurredAt:   paidAt(res.RawPayload),
	}
	if _, err := h.reconciler.Reconcile(r.Context(), event); err != nil {
		log.Error("failed to reconcile verified payment", slog.String("reference", reference), sl.Err(err))
		http.Redirect(w, r, h.failureURL, http.StatusSeeOther)
		return
	}

	log.Info("callback processed", slog.String("reference", reference))
	http.Redirect(w, r, h.successURL, http.StatusSeeOther)
}

// eventPlan выбирает тариф: из metadata, иначе по коду плана провайдера,
// иначе monthly, как вёл себя провайдер до ввода metadata.
func eventPlan(metadata map[string]string, planCode string) models.Plan {
	if raw, ok := metadata["plan"]; ok {
		if plan, err := models.ParsePlan(raw); err == nil {
			return plan
		}
	}
	if plan, ok := pricing.PlanFromCode(planCode); ok {
		return plan
	}
	return models.PlanMonthly
}

// paidAt достаёт время оплаты из сырого payload; если его нет,
// берётся текущее время.
func paidAt(raw []byte) time.Time {
	var body struct {
		PaidAt time.Time `json:"paid_at"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && !body.PaidAt.IsZero() {
		return body.PaidAt
	}
	return time.Now().UTC()
}
