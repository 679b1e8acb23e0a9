package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/alpacafarm/booking-service/internal/client"
	"github.com/alpacafarm/booking-service/internal/currency"
	"github.com/alpacafarm/booking-service/internal/models"
	"github.com/alpacafarm/booking-service/internal/service"
)

// --- Request / Response DTOs ---

type RedeemRequest struct {
	Code           string `json:"code"`
	AmountToRedeem *int64 `json:"amountToRedeem,omitempty"`
}

type PurchaseRequest struct {
	Amount     int64  `json:"amount"`
	Currency   string `json:"currency"`
	BuyerName  string `json:"buyerName"`
	BuyerEmail string `json:"buyerEmail"`
	Message    string `json:"message,omitempty"`
}

type VoucherOption struct {
	AmountEUR int64 `json:"amountEUR"`
	AmountPLN int64 `json:"amountPLN"`
}

// --- Service interfaces (concrete implementations injected) ---

type VoucherService interface {
	Validate(ctx context.Context, code string) (*models.Voucher, error)
	Redeem(ctx context.Context, code string, amount int64) (*service.RedeemResult, error)
	Purchase(ctx context.Context, in service.PurchaseInput) (*models.Voucher, error)
}

type PaymentSessions interface {
	CreateSession(ctx context.Context, reference string, amount int64, curr, description, idempotencyKey string) (*client.PaymentSession, error)
}

type VoucherHandler struct {
	service  VoucherService
	payments PaymentSessions
	logger   *zap.SugaredLogger
}

func NewVoucherHandler(svc VoucherService, payments PaymentSessions, logger *zap.SugaredLogger) *VoucherHandler {
	return &VoucherHandler{
		service:  svc,
		payments: payments,
		logger:   logger,
	}
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// errorMessage maps domain errors to the user-facing strings shown on
// the website.
func errorMessage(err error) string {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return "Voucher not found"
	case errors.Is(err, service.ErrExpired):
		return "Voucher has expired"
	case errors.Is(err, service.ErrAlreadyRedeemed):
		return "Voucher has been fully redeemed"
	case errors.Is(err, service.ErrNotYetActive):
		return "Voucher payment has not been confirmed yet"
	case errors.Is(err, service.ErrInsufficientBalance):
		return "Insufficient voucher balance"
	case errors.Is(err, service.ErrInvalidInput):
		return "Invalid request"
	}
	return "Service temporarily unavailable"
}

func writeVoucherError(w http.ResponseWriter, err error) {
	body := map[string]interface{}{
		"valid": false,
		"error": errorMessage(err),
	}

	// balance is surfaced on insufficient funds so the site can offer
	// a partial redemption
	var insufficient *service.InsufficientBalanceError
	if errors.As(err, &insufficient) {
		body["remainingAmount"] = insufficient.Remaining
		body["currency"] = insufficient.Currency
	}

	status := http.StatusOK
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrUnavailable):
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, body)
}

// --- Handlers ---

// Redeem handles POST /vouchers/redeem. Without amountToRedeem it is a
// side-effect-free validation; with it, a redemption.
func (h *VoucherHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	var req RedeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeVoucherError(w, service.ErrInvalidInput)
		return
	}

	ctx := r.Context()

	if req.AmountToRedeem == nil {
		v, err := h.service.Validate(ctx, req.Code)
		if err != nil {
			writeVoucherError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"valid": true,
			"voucher": map[string]interface{}{
				"code":            v.Code,
				"remainingAmount": v.RemainingAmount,
				"originalAmount":  v.OriginalAmount,
				"currency":        v.Currency,
				"expiresAt":       v.ExpiresAt.Format(time.RFC3339),
			},
		})
		return
	}

	res, err := h.service.Redeem(ctx, req.Code, *req.AmountToRedeem)
	if err != nil {
		writeVoucherError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"valid": true,
		"voucher": map[string]interface{}{
			"code":            res.Voucher.Code,
			"redeemedAmount":  res.RedeemedAmount,
			"remainingAmount": res.Voucher.RemainingAmount,
			"currency":        res.Voucher.Currency,
			"status":          res.Voucher.Status,
		},
	})
}

// Purchase handles POST /vouchers: creates a pending voucher and a
// hosted checkout session for it.
func (h *VoucherHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	var req PurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_body"})
		return
	}

	ctx := r.Context()
	v, err := h.service.Purchase(ctx, service.PurchaseInput{
		Amount:     req.Amount,
		Currency:   req.Currency,
		BuyerName:  req.BuyerName,
		BuyerEmail: req.BuyerEmail,
		Message:    req.Message,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid amount, currency or buyer email"})
			return
		}
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "could not create voucher"})
		return
	}

	session, err := h.payments.CreateSession(ctx,
		v.Code, v.OriginalAmount, v.Currency,
		"Alpaca farm gift voucher "+v.Code,
		uuid.NewString(),
	)
	if err != nil {
		// voucher stays pending; it activates only if payment lands
		h.logger.Errorw("payment session failed", "code", v.Code, zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "payment service unavailable"})
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"code":        v.Code,
		"expiresAt":   v.ExpiresAt.Format(time.RFC3339),
		"checkoutUrl": session.CheckoutURL,
	})
}

// voucher denominations offered on the site, EUR minor units
var voucherDenominations = []int64{5000, 10000, 15000, 25000, 50000}

// GetOptions handles GET /vouchers/options: the preset gift amounts
// with their PLN equivalents at the configured cross rate.
func (h *VoucherHandler) GetOptions(w http.ResponseWriter, r *http.Request) {
	options := make([]VoucherOption, 0, len(voucherDenominations))
	for _, amount := range voucherDenominations {
		options = append(options, VoucherOption{
			AmountEUR: amount,
			AmountPLN: currency.Convert(amount, currency.EUR, currency.PLN),
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"options": options})
}
