// Package calendar содержит календарную арифметику для расчёта даты
// окончания подписки. time.AddDate переносит переполнение дня на
// следующий месяц (31 января + месяц = 2/3 марта), поэтому день
// явно ограничивается последним днём целевого месяца.
package calendar

import (
	"time"

	"github.com/legalwise/subscription-backend/internal/models"
)

// AddMonthsClamped прибавляет n календарных месяцев, ограничивая день
// последним днём целевого месяца: 31 января + 1 = 28/29 февраля.
func AddMonthsClamped(t time.Time, n int) time.Time {
	year, month, day := t.Date()
	first := time.Date(year, month+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	if last := lastDayOfMonth(first.Year(), first.Month()); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// AddYearsClamped прибавляет n календарных лет: 29 февраля високосного
// года + 1 = 28 февраля следующего.
func AddYearsClamped(t time.Time, n int) time.Time {
	return AddMonthsClamped(t, n*12)
}

// ExpiryFrom возвращает дату окончания подписки для события,
// произошедшего в occurredAt: год для годового тарифа, месяц для месячного.
func ExpiryFrom(plan models.Plan, occurredAt time.Time) time.Time {
	if plan == models.PlanAnnual {
		return AddYearsClamped(occurredAt, 1)
	}
	return AddMonthsClamped(occurredAt, 1)
}

func lastDayOfMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
