package middlewarectx

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAPIKeyMiddleware(t *testing.T) {
	tests := []struct {
		name           string
		headerName     string
		headerValue    string
		expectedStatus int
	}{
		{"верный ключ", "x-api-key", "secret-key", http.StatusOK},
		{"заголовок в другом регистре", "X-API-KEY", "secret-key", http.StatusOK},
		{"неверный ключ", "x-api-key", "wrong-key", http.StatusUnauthorized},
		{"ключ отсутствует", "", "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mw := APIKeyMiddleware("secret-key", newNoopLogger())

			req := httptest.NewRequest(http.MethodPost, "/subscription/status", nil)
			if tt.headerName != "" {
				req.Header.Set(tt.headerName, tt.headerValue)
			}
			w := httptest.NewRecorder()

			mw(okHandler()).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}

func TestCORSMiddleware(t *testing.T) {
	t.Run("preflight отвечает 204 без вызова обработчика", func(t *testing.T) {
		called := false
		next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true })

		req := httptest.NewRequest(http.MethodOptions, "/payment/initiate", nil)
		w := httptest.NewRecorder()

		CORSMiddleware(next).ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.False(t, called)
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("обычный запрос проходит с заголовками CORS", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/payment/initiate", nil)
		w := httptest.NewRecorder()

		CORSMiddleware(okHandler()).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "x-api-key")
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	mw := RateLimitMiddleware(rate.NewLimiter(0, 1), newNoopLogger())

	first := httptest.NewRecorder()
	mw(okHandler()).ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	mw(okHandler()).ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}
