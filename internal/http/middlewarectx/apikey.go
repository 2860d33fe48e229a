// Package middlewarectx содержит HTTP middleware сервиса.
package middlewarectx

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/legalwise/subscription-backend/internal/http/response"
)

// APIKeyMiddleware пропускает только запросы с верным ключом в
// заголовке x-api-key. Заголовок читается без учёта регистра,
// сравнение — константное по времени.
func APIKeyMiddleware(apiKey string, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get("x-api-key")
			if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(apiKey)) != 1 {
				log.Warn("invalid or missing api key", slog.String("path", r.URL.Path))
				w.WriteHeader(http.StatusUnauthorized)
				render.JSON(w, r, response.Error("invalid or missing api key"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
