// Package apperrors определяет ошибки доменного уровня, по которым
// HTTP-слой выбирает код ответа. Ошибки хранилища и провайдера
// оборачиваются в них на границе соответствующего слоя.
package apperrors

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation некорректные или отсутствующие входные данные.
	ErrValidation = errors.New("validation error")
	// ErrUnauthorized неверный API-ключ или подпись webhook.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound запись не найдена. Для запроса статуса подписки это
	// корректный отрицательный результат, а не ошибка.
	ErrNotFound = errors.New("not found")
	// ErrStoreTimeout хранилище не ответило в отведённое время.
	ErrStoreTimeout = errors.New("store timeout")
)

// ProviderError ошибка внешнего платёжного провайдера.
// Retryable=true для сетевых ошибок и 5xx, повтор безопасен.
// Retryable=false для 4xx — запрос отвергнут, повторять бессмысленно.
type ProviderError struct {
	StatusCode int
	Message    string
	Retryable  bool
}

func (e *ProviderError) Error() string {
	kind := "rejected"
	if e.Retryable {
		kind = "unavailable"
	}
	return fmt.Sprintf("payment provider %s: status %d: %s", kind, e.StatusCode, e.Message)
}

// IsProviderRetryable сообщает, является ли err повторяемой ошибкой провайдера.
func IsProviderRetryable(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Retryable
}
