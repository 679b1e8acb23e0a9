package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/alpacafarm/booking-service/internal/models"
)

// DocumentsClient renders printable PDFs (gift vouchers, adoption
// certificates) through the document-generation service.
type DocumentsClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *zap.SugaredLogger
}

func NewDocumentsClient(baseURL, apiKey string, logger *zap.SugaredLogger) *DocumentsClient {
	return &DocumentsClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		// PDF rendering is slower than the JSON services
		http:   &http.Client{Timeout: 30 * time.Second},
		logger: logger,
	}
}

type renderVoucherRequest struct {
	Code      string `json:"code"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	BuyerName string `json:"buyer_name"`
	Message   string `json:"message,omitempty"`
	ExpiresAt string `json:"expires_at"`
}

// RenderVoucher returns the PDF bytes for a purchased voucher.
func (c *DocumentsClient) RenderVoucher(ctx context.Context, v *models.Voucher) ([]byte, error) {
	body, err := json.Marshal(renderVoucherRequest{
		Code:      v.Code,
		Amount:    v.OriginalAmount,
		Currency:  v.Currency,
		BuyerName: v.BuyerName,
		Message:   v.Message,
		ExpiresAt: v.ExpiresAt.Format("2006-01-02"),
	})
	if err != nil {
		return nil, fmt.Errorf("documents: marshal voucher: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/documents/voucher", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("documents: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("documents: render voucher: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("documents: render voucher: status %d", resp.StatusCode)
	}

	pdf, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("documents: read pdf: %w", err)
	}
	return pdf, nil
}
