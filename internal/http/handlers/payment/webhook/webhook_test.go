package webhook

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/legalwise/subscription-backend/internal/lib/signature"
	"github.com/legalwise/subscription-backend/internal/models"
)

type MockReconciler struct {
	mock.Mock
}

func (m *MockReconciler) Reconcile(ctx context.Context, event models.PaymentEvent) (*models.Subscription, error) {
	args := m.Called(ctx, event)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

const testSecret = "sk_test_secret"

const chargeSuccessBody = `{
	"event": "charge.success",
	"data": {
		"reference": "ref-123",
		"amount": 9000,
		"paid_at": "2025-03-15T10:30:00Z",
		"customer": {"email": "User@Example.com", "customer_code": "CUS_1"},
		"plan": {"plan_code": "PLN_monthly"},
		"metadata": {"plan": "monthly"}
	}
}`

func TestWebhookHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		signature      string
		setupMocks     func(*MockReconciler)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:      "успешная обработка charge.success",
			body:      chargeSuccessBody,
			signature: signature.Compute(testSecret, []byte(chargeSuccessBody)),
			setupMocks: func(r *MockReconciler) {
				r.On("Reconcile", mock.Anything, mock.MatchedBy(func(e models.PaymentEvent) bool {
					return e.Email == "User@Example.com" &&
						e.Plan == models.PlanMonthly &&
						e.Reference == "ref-123" &&
						e.AmountMinor == 9000 &&
						e.CustomerCode == "CUS_1" &&
						e.OccurredAt.Equal(time.Date(2025, 3, 15, 10, 30, 0, 0, time.UTC))
				})).Return(&models.Subscription{Email: "user@example.com"}, nil).Once()
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"received":true}`,
		},
		{
			name:           "неверная подпись",
			body:           chargeSuccessBody,
			signature:      "deadbeef",
			setupMocks:     func(*MockReconciler) {},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `{"status":"Error","error":"invalid signature"}`,
		},
		{
			name:           "подпись отсутствует",
			body:           chargeSuccessBody,
			signature:      "",
			setupMocks:     func(*MockReconciler) {},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `{"status":"Error","error":"invalid signature"}`,
		},
		{
			name:           "незнакомое событие подтверждается без обработки",
			body:           `{"event": "subscription.create", "data": {"reference": "ref-456"}}`,
			signature:      signature.Compute(testSecret, []byte(`{"event": "subscription.create", "data": {"reference": "ref-456"}}`)),
			setupMocks:     func(*MockReconciler) {},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"received":true}`,
		},
		{
			name:      "ошибка реконсиляции возвращает 500 для повторной доставки",
			body:      chargeSuccessBody,
			signature: signature.Compute(testSecret, []byte(chargeSuccessBody)),
			setupMocks: func(r *MockReconciler) {
				r.On("Reconcile", mock.Anything, mock.Anything).
					Return(nil, errors.New("storage unavailable")).Once()
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `{"status":"Error","error":"internal error"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reconciler := new(MockReconciler)
			handler := New(newNoopLogger(), reconciler, testSecret)

			tt.setupMocks(reconciler)

			req := httptest.NewRequest(http.MethodPost, "/payment/webhook", bytes.NewReader([]byte(tt.body)))
			if tt.signature != "" {
				req.Header.Set(SignatureHeader, tt.signature)
			}
			req = req.WithContext(context.WithValue(req.Context(), middleware.RequestIDKey, "req-id"))

			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.JSONEq(t, tt.expectedBody, w.Body.String())

			reconciler.AssertExpectations(t)
		})
	}
}

// Повторная доставка того же уведомления должна приводить к тому же
// вызову реконсиляции с тем же событием: идемпотентность обеспечивает
// сам Reconcile, обработчик лишь обязан каждый раз подтверждать приём.
func TestWebhookHandler_Redelivery(t *testing.T) {
	reconciler := new(MockReconciler)
	handler := New(newNoopLogger(), reconciler, testSecret)

	reconciler.On("Reconcile", mock.Anything, mock.MatchedBy(func(e models.PaymentEvent) bool {
		return e.Reference == "ref-123"
	})).Return(&models.Subscription{Email: "user@example.com"}, nil).Twice()

	sig := signature.Compute(testSecret, []byte(chargeSuccessBody))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/payment/webhook", bytes.NewReader([]byte(chargeSuccessBody)))
		req.Header.Set(SignatureHeader, sig)
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"received":true}`, w.Body.String())
	}

	reconciler.AssertExpectations(t)
}
