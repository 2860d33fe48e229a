// Package models содержит доменные структуры подписки и платежа,
// используемые в бизнес-логике и хранилище.
package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Plan тариф подписки. Поддерживаются ровно два тарифа.
type Plan string

const (
	PlanMonthly Plan = "monthly"
	PlanAnnual  Plan = "annual"
)

// ParsePlan проверяет и нормализует название тарифа.
func ParsePlan(s string) (Plan, error) {
	switch Plan(strings.ToLower(strings.TrimSpace(s))) {
	case PlanMonthly:
		return PlanMonthly, nil
	case PlanAnnual:
		return PlanAnnual, nil
	default:
		return "", fmt.Errorf("unknown plan: %q", s)
	}
}

// Статусы подписки. Поле хранится в базе, но актуальность подписки
// всегда вычисляется по expiry_date на момент чтения.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// LastPayment данные последнего подтверждённого платежа по подписке.
// Amount хранится в основных единицах валюты (уже поделён на 100).
type LastPayment struct {
	Reference      string          `json:"reference"`
	Amount         float64         `json:"amount"`
	Date           time.Time       `json:"date"`
	PaymentDetails json.RawMessage `json:"payment_details,omitempty"`
}

// Subscription текущее состояние подписки клиента.
// На один email существует не больше одной записи, email хранится
// в нижнем регистре и служит естественным ключом.
type Subscription struct {
	Email        string      `json:"email"`
	Plan         Plan        `json:"plan"`
	Status       string      `json:"status"`
	ExpiryDate   time.Time   `json:"expiry_date"`
	LastPayment  LastPayment `json:"last_payment"`
	CustomerCode string      `json:"customer_code,omitempty"`
}

// Статусы записи об инициализации платежа.
const (
	InitializationPending   = "pending"
	InitializationCompleted = "completed"
)

// PaymentInitialization запись о попытке начать платёж. Создаётся после
// успешного ответа провайдера и переводится в completed ровно один раз,
// когда платёж подтверждён. Записи не удаляются.
type PaymentInitialization struct {
	Reference   string     `json:"reference"`
	Email       string     `json:"email"`
	Plan        Plan       `json:"plan"`
	AmountMinor int64      `json:"amount_minor"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// PaymentEvent подтверждённое платёжное событие, пришедшее из пути
// верификации callback либо из webhook. Единственный вход реконсиляции.
type PaymentEvent struct {
	Email        string
	Plan         Plan
	Reference    string
	AmountMinor  int64
	CustomerCode string
	RawPayload   json.RawMessage
	OccurredAt   time.Time
}

// NormalizeEmail приводит email к каноническому виду для поиска и записи.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
