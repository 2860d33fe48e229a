// Package paymentprovider реализует клиент внешнего платёжного
// провайдера: инициализация транзакции и её верификация по референсу.
package paymentprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/legalwise/subscription-backend/internal/apperrors"
)

type Client struct {
	secretKey  string
	apiURL     string
	httpClient *http.Client
}

// NewClient создаёт новый клиент провайдера с bearer-авторизацией.
func NewClient(secretKey, apiURL string) *Client {
	return &Client{
		secretKey:  secretKey,
		apiURL:     apiURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.apiURL+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// do выполняет запрос и разделяет ошибки провайдера на повторяемые
// (сеть, 5xx) и неповторяемые (4xx).
func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &apperrors.ProviderError{Message: err.Error(), Retryable: true}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &apperrors.ProviderError{StatusCode: resp.StatusCode, Message: err.Error(), Retryable: true}
	}

	if resp.StatusCode >= 500 {
		return nil, &apperrors.ProviderError{StatusCode: resp.StatusCode, Message: providerMessage(raw), Retryable: true}
	}
	if resp.StatusCode >= 400 {
		return nil, &apperrors.ProviderError{StatusCode: resp.StatusCode, Message: providerMessage(raw), Retryable: false}
	}
	return raw, nil
}

func providerMessage(raw []byte) string {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Message != "" {
		return body.Message
	}
	return string(raw)
}

// Initialize создаёт транзакцию у провайдера и возвращает референс
// вместе с URL страницы оплаты.
func (c *Client) Initialize(ctx context.Context, reqParams InitializeRequest) (*InitializeResult, error) {
	const op = "paymentprovider.Initialize"

	req, err := c.newRequest(ctx, http.MethodPost, "/transaction/initialize", reqParams)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	raw, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var initResp initializeResponse
	if err := json.Unmarshal(raw, &initResp); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !initResp.Status {
		return nil, fmt.Errorf("%s: %w", op, &apperrors.ProviderError{Message: initResp.Message, Retryable: false})
	}
	return &InitializeResult{
		Reference:        initResp.Data.Reference,
		AuthorizationURL: initResp.Data.AuthorizationURL,
	}, nil
}

// Verify запрашивает у провайдера состояние транзакции по референсу.
func (c *Client) Verify(ctx context.Context, reference string) (*VerifyResult, error) {
	const op = "paymentprovider.Verify"

	req, err := c.newRequest(ctx, http.MethodGet, "/transaction/verify/"+reference, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	raw, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var verResp verifyResponse
	if err := json.Unmarshal(raw, &verResp); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &VerifyResult{
		Success:      verResp.Status && verResp.Data.Status == "success",
		Reference:    verResp.Data.Reference,
		AmountMinor:  verResp.Data.Amount,
		Email:        verResp.Data.Customer.Email,
		PlanCode:     verResp.Data.PlanObj.PlanCode,
		Metadata:     verResp.Data.Metadata,
		CustomerCode: verResp.Data.Customer.CustomerCode,
		RawPayload:   envelope.Data,
	}, nil
}
