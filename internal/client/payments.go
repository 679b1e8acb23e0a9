package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// PaymentsClient talks to the hosted checkout service. The processor
// is a black box: we create sessions and receive confirmation
// webhooks, nothing more.
type PaymentsClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *zap.SugaredLogger
}

func NewPaymentsClient(baseURL, apiKey string, logger *zap.SugaredLogger) *PaymentsClient {
	return &PaymentsClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 10 * time.Second},
		logger:  logger,
	}
}

type PaymentSession struct {
	ID          string `json:"id"`
	CheckoutURL string `json:"checkout_url"`
}

type createSessionRequest struct {
	Reference   string `json:"reference"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	Description string `json:"description"`
}

// CreateSession opens a hosted checkout session for a voucher
// purchase. The idempotency key lets a retried request reuse the
// session instead of double-charging.
func (c *PaymentsClient) CreateSession(ctx context.Context, reference string, amount int64, curr, description, idempotencyKey string) (*PaymentSession, error) {
	body, err := json.Marshal(createSessionRequest{
		Reference:   reference,
		Amount:      amount,
		Currency:    curr,
		Description: description,
	})
	if err != nil {
		return nil, fmt.Errorf("payments: marshal session request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/checkout/sessions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("payments: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Idempotency-Key", idempotencyKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("payments: create session: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("payments: create session: status %d", resp.StatusCode)
	}

	var session PaymentSession
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, fmt.Errorf("payments: decode session: %w", err)
	}
	return &session, nil
}
