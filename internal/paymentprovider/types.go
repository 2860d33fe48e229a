package paymentprovider

import "encoding/json"

// Запрос на инициализацию транзакции. Amount всегда в минимальных
// единицах валюты и всегда вычислен на сервере из тарифа.
type InitializeRequest struct {
	Email       string            `json:"email"`
	Amount      int64             `json:"amount"`
	Currency    string            `json:"currency,omitempty"`
	Plan        string            `json:"plan,omitempty"`
	CallbackURL string            `json:"callback_url,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type initializeResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	} `json:"data"`
}

// InitializeResult результат инициализации: референс транзакции
// и URL страницы оплаты, на которую уходит пользователь.
type InitializeResult struct {
	Reference        string
	AuthorizationURL string
}

type verifyResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Status    string `json:"status"`
		Reference string `json:"reference"`
		Amount    int64  `json:"amount"`
		PlanObj   struct {
			PlanCode string `json:"plan_code"`
		} `json:"plan_object"`
		Metadata map[string]string `json:"metadata"`
		Customer struct {
			Email        string `json:"email"`
			CustomerCode string `json:"customer_code"`
		} `json:"customer"`
	} `json:"data"`
}

// VerifyResult результат верификации транзакции по референсу.
// RawPayload содержит исходное поле data ответа целиком, для аудита.
type VerifyResult struct {
	Success      bool
	Reference    string
	AmountMinor  int64
	Email        string
	PlanCode     string
	Metadata     map[string]string
	CustomerCode string
	RawPayload   json.RawMessage
}
