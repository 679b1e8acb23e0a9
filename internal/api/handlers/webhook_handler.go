package handlers

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/alpacafarm/booking-service/internal/models"
	"github.com/alpacafarm/booking-service/internal/service"
)

type PaymentConfirmer interface {
	ConfirmPayment(ctx context.Context, code, paymentRef string) (*models.Voucher, error)
}

type VoucherRenderer interface {
	RenderVoucher(ctx context.Context, v *models.Voucher) ([]byte, error)
}

type VoucherMailer interface {
	SendVoucher(ctx context.Context, toEmail, toName, code string, pdf []byte) error
	SendSaleNotice(ctx context.Context, code string, amount int64, curr string) error
}

type WebhookHandler struct {
	service   PaymentConfirmer
	documents VoucherRenderer
	mailer    VoucherMailer
	secret    string
	logger    *zap.SugaredLogger
}

func NewWebhookHandler(svc PaymentConfirmer, documents VoucherRenderer, mailer VoucherMailer, secret string, logger *zap.SugaredLogger) *WebhookHandler {
	return &WebhookHandler{
		service:   svc,
		documents: documents,
		mailer:    mailer,
		secret:    secret,
		logger:    logger,
	}
}

type paymentEvent struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	Reference string `json:"reference"` // voucher code
}

// HandlePaymentEvent handles POST /webhooks/payment. The processor
// only needs a 2xx once the activation is persisted; fulfilment
// failures are logged and retried out of band, never surfaced back.
func (h *WebhookHandler) HandlePaymentEvent(w http.ResponseWriter, r *http.Request) {
	if subtle.ConstantTimeCompare([]byte(r.Header.Get("X-Webhook-Secret")), []byte(h.secret)) != 1 {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	var ev paymentEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_body"})
		return
	}

	if ev.Type != "checkout.paid" {
		// ack unrelated events so the processor stops redelivering them
		writeJSON(w, http.StatusOK, map[string]bool{"received": true})
		return
	}

	ctx := r.Context()
	v, err := h.service.ConfirmPayment(ctx, ev.Reference, ev.SessionID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) || errors.Is(err, service.ErrInvalidInput) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown reference"})
			return
		}
		// 5xx makes the processor redeliver; activation is idempotent
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "temporarily unavailable"})
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		pdf, err := h.documents.RenderVoucher(gctx, v)
		if err != nil {
			return err
		}
		return h.mailer.SendVoucher(gctx, v.BuyerEmail, v.BuyerName, v.Code, pdf)
	})
	g.Go(func() error {
		return h.mailer.SendSaleNotice(gctx, v.Code, v.OriginalAmount, v.Currency)
	})
	if err := g.Wait(); err != nil {
		h.logger.Errorw("voucher fulfilment failed", "code", v.Code, zap.Error(err))
	}

	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}
