// Package pricing содержит единственную авторитетную таблицу тарифов.
// Сумма списания всегда вычисляется на сервере по тарифу — сумма из
// клиентского запроса никогда не используется.
package pricing

import (
	"fmt"

	"github.com/legalwise/subscription-backend/internal/models"
)

// Price стоимость тарифа и код плана у провайдера.
// AmountMinor — сумма в минимальных единицах валюты (копейки/kobo).
type Price struct {
	AmountMinor int64
	PlanCode    string
}

var table = map[models.Plan]Price{
	models.PlanMonthly: {AmountMinor: 9000, PlanCode: "PLN_monthly"},
	models.PlanAnnual:  {AmountMinor: 91800, PlanCode: "PLN_annual"},
}

// For возвращает цену для тарифа.
func For(plan models.Plan) (Price, error) {
	p, ok := table[plan]
	if !ok {
		return Price{}, fmt.Errorf("no price for plan %q", plan)
	}
	return p, nil
}

// AmountFor возвращает сумму списания в минимальных единицах.
func AmountFor(plan models.Plan) (int64, error) {
	p, err := For(plan)
	if err != nil {
		return 0, err
	}
	return p.AmountMinor, nil
}

// PlanFromCode возвращает тариф по коду плана провайдера.
func PlanFromCode(code string) (models.Plan, bool) {
	for plan, p := range table {
		if p.PlanCode == code {
			return plan, true
		}
	}
	return "", false
}
