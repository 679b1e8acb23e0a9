package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/alpacafarm/booking-service/internal/codegen"
	"github.com/alpacafarm/booking-service/internal/currency"
	"github.com/alpacafarm/booking-service/internal/models"
	"github.com/alpacafarm/booking-service/internal/repository"
)

// VoucherStore is the record store for vouchers (use interfaces to
// allow test doubles).
type VoucherStore interface {
	GetByCode(ctx context.Context, code string) (*models.Voucher, error)
	Create(ctx context.Context, v *models.Voucher) error
	RedeemCAS(ctx context.Context, code string, expectedRemaining, newRemaining int64, status models.VoucherStatus) (bool, error)
	Activate(ctx context.Context, code, paymentRef string) (bool, error)
}

const (
	// validityMonths fixes expiry at purchase time; it is never extended.
	validityMonths = 12

	// maxPurchaseAmount caps a single voucher at 5000.00 in minor units.
	maxPurchaseAmount = 500000

	// redeemAttempts bounds the validate-then-redeem retry loop when a
	// concurrent redemption wins the conditional update.
	redeemAttempts = 3

	// createAttempts bounds code regeneration on insert collisions.
	createAttempts = 5
)

type VoucherService struct {
	store  VoucherStore
	logger *zap.SugaredLogger

	// injectable for tests
	now     func() time.Time
	newCode func() string
}

func NewVoucherService(store VoucherStore, logger *zap.SugaredLogger) *VoucherService {
	return &VoucherService{
		store:   store,
		logger:  logger,
		now:     time.Now,
		newCode: codegen.New,
	}
}

// NormalizeCode maps user input to the stored form: trimmed and
// uppercased. Normalization is idempotent.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Validate checks a code without side effects. Check order is fixed:
// not-found, expired, already-redeemed, not-yet-active.
func (s *VoucherService) Validate(ctx context.Context, code string) (*models.Voucher, error) {
	code = NormalizeCode(code)
	if code == "" {
		return nil, ErrInvalidInput
	}

	v, err := s.store.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNoVoucher) {
			return nil, ErrNotFound
		}
		s.logger.Errorw("voucher lookup failed", "code", code, zap.Error(err))
		return nil, ErrUnavailable
	}

	if err := s.checkRedeemable(v); err != nil {
		return nil, err
	}
	return v, nil
}

func (s *VoucherService) checkRedeemable(v *models.Voucher) error {
	// expiry wins over stored status: a stale 'active' row past its
	// date must still be rejected
	if s.now().After(v.ExpiresAt) {
		return ErrExpired
	}
	if v.Status == models.StatusFullyRedeemed || v.RemainingAmount <= 0 {
		return ErrAlreadyRedeemed
	}
	if v.Status == models.StatusPending {
		return ErrNotYetActive
	}
	return nil
}

type RedeemResult struct {
	Voucher        *models.Voucher
	RedeemedAmount int64
}

// Redeem decrements the remaining balance by amount. The update is a
// compare-and-swap on remaining_amount; on a lost race the whole
// validate-then-redeem sequence reruns against fresh state, so a loser
// that drained the balance gets the truthful domain error instead of a
// double decrement.
func (s *VoucherService) Redeem(ctx context.Context, code string, amount int64) (*RedeemResult, error) {
	if amount <= 0 {
		return nil, ErrInvalidInput
	}

	for attempt := 0; attempt < redeemAttempts; attempt++ {
		v, err := s.Validate(ctx, code)
		if err != nil {
			return nil, err
		}

		if amount > v.RemainingAmount {
			return nil, &InsufficientBalanceError{
				Remaining: v.RemainingAmount,
				Currency:  v.Currency,
			}
		}

		newRemaining := v.RemainingAmount - amount
		status := models.StatusActive
		if newRemaining == 0 {
			status = models.StatusFullyRedeemed
		}

		ok, err := s.store.RedeemCAS(ctx, v.Code, v.RemainingAmount, newRemaining, status)
		if err != nil {
			s.logger.Errorw("redeem update failed", "code", v.Code, zap.Error(err))
			return nil, ErrUnavailable
		}
		if !ok {
			s.logger.Infow("redeem conflict, retrying", "code", v.Code, "attempt", attempt+1)
			continue
		}

		v.RemainingAmount = newRemaining
		v.Status = status
		v.UpdatedAt = s.now()
		return &RedeemResult{Voucher: v, RedeemedAmount: amount}, nil
	}

	s.logger.Warnw("redeem conflict retries exhausted", "code", NormalizeCode(code))
	return nil, ErrUnavailable
}

type PurchaseInput struct {
	Amount     int64
	Currency   string
	BuyerName  string
	BuyerEmail string
	Message    string
}

// Purchase creates a voucher in pending status; it only becomes
// redeemable once the payment confirmation arrives. The generator
// gives no uniqueness guarantee, so a duplicate insert regenerates the
// code and retries.
func (s *VoucherService) Purchase(ctx context.Context, in PurchaseInput) (*models.Voucher, error) {
	if in.Amount <= 0 || in.Amount > maxPurchaseAmount {
		return nil, ErrInvalidInput
	}
	if !currency.Supported(currency.Currency(in.Currency)) {
		return nil, ErrInvalidInput
	}
	if !strings.Contains(in.BuyerEmail, "@") {
		return nil, ErrInvalidInput
	}

	now := s.now()
	for attempt := 0; attempt < createAttempts; attempt++ {
		v := &models.Voucher{
			Code:            s.newCode(),
			OriginalAmount:  in.Amount,
			RemainingAmount: in.Amount,
			Currency:        in.Currency,
			Status:          models.StatusPending,
			BuyerName:       strings.TrimSpace(in.BuyerName),
			BuyerEmail:      strings.TrimSpace(in.BuyerEmail),
			Message:         strings.TrimSpace(in.Message),
			ExpiresAt:       now.AddDate(0, validityMonths, 0),
		}

		err := s.store.Create(ctx, v)
		if errors.Is(err, repository.ErrDuplicateCode) {
			s.logger.Warnw("voucher code collision", "code", v.Code, "attempt", attempt+1)
			continue
		}
		if err != nil {
			s.logger.Errorw("voucher create failed", zap.Error(err))
			return nil, ErrUnavailable
		}
		return v, nil
	}

	s.logger.Errorw("voucher code generation exhausted retries")
	return nil, ErrUnavailable
}

// ConfirmPayment activates a pending voucher. Payment processors
// redeliver webhooks, so confirming an already-active voucher is a
// no-op success.
func (s *VoucherService) ConfirmPayment(ctx context.Context, code, paymentRef string) (*models.Voucher, error) {
	code = NormalizeCode(code)
	if code == "" {
		return nil, ErrInvalidInput
	}

	v, err := s.store.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNoVoucher) {
			return nil, ErrNotFound
		}
		s.logger.Errorw("voucher lookup failed", "code", code, zap.Error(err))
		return nil, ErrUnavailable
	}

	if v.Status != models.StatusPending {
		return v, nil
	}

	activated, err := s.store.Activate(ctx, code, paymentRef)
	if err != nil {
		s.logger.Errorw("voucher activation failed", "code", code, zap.Error(err))
		return nil, ErrUnavailable
	}
	if activated {
		v.Status = models.StatusActive
		v.PaymentRef = paymentRef
		v.UpdatedAt = s.now()
	}
	return v, nil
}
