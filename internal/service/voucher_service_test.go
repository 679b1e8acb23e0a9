package service

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/alpacafarm/booking-service/internal/models"
	"github.com/alpacafarm/booking-service/internal/repository"
)

var testNow = time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

// fakeStore implements VoucherStore in memory with the same CAS and
// duplicate-code semantics as the Postgres repo.
type fakeStore struct {
	vouchers map[string]*models.Voucher

	getErr    error
	createErr error
	casErr    error

	// onRedeemCAS runs before each conditional update; tests use it to
	// simulate a concurrent redemption winning the race.
	onRedeemCAS func(s *fakeStore)

	createCalls   int
	casCalls      int
	activateCalls int
}

func newFakeStore(vouchers ...*models.Voucher) *fakeStore {
	s := &fakeStore{vouchers: make(map[string]*models.Voucher)}
	for _, v := range vouchers {
		cp := *v
		s.vouchers[v.Code] = &cp
	}
	return s
}

func (s *fakeStore) GetByCode(_ context.Context, code string) (*models.Voucher, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	v, ok := s.vouchers[code]
	if !ok {
		return nil, repository.ErrNoVoucher
	}
	cp := *v
	return &cp, nil
}

func (s *fakeStore) Create(_ context.Context, v *models.Voucher) error {
	s.createCalls++
	if s.createErr != nil {
		return s.createErr
	}
	if _, ok := s.vouchers[v.Code]; ok {
		return repository.ErrDuplicateCode
	}
	cp := *v
	s.vouchers[v.Code] = &cp
	return nil
}

func (s *fakeStore) RedeemCAS(_ context.Context, code string, expectedRemaining, newRemaining int64, status models.VoucherStatus) (bool, error) {
	s.casCalls++
	if s.casErr != nil {
		return false, s.casErr
	}
	if s.onRedeemCAS != nil {
		s.onRedeemCAS(s)
	}
	v, ok := s.vouchers[code]
	if !ok || v.RemainingAmount != expectedRemaining {
		return false, nil
	}
	v.RemainingAmount = newRemaining
	v.Status = status
	v.UpdatedAt = testNow
	return true, nil
}

func (s *fakeStore) Activate(_ context.Context, code, paymentRef string) (bool, error) {
	s.activateCalls++
	v, ok := s.vouchers[code]
	if !ok || v.Status != models.StatusPending {
		return false, nil
	}
	v.Status = models.StatusActive
	v.PaymentRef = paymentRef
	v.UpdatedAt = testNow
	return true, nil
}

func newTestService(store *fakeStore) *VoucherService {
	svc := NewVoucherService(store, zap.NewNop().Sugar())
	svc.now = func() time.Time { return testNow }
	return svc
}

func activeVoucher(code string, remaining int64) *models.Voucher {
	return &models.Voucher{
		Code:            code,
		OriginalAmount:  5000,
		RemainingAmount: remaining,
		Currency:        "EUR",
		Status:          models.StatusActive,
		BuyerName:       "Anna",
		BuyerEmail:      "anna@example.com",
		ExpiresAt:       testNow.AddDate(1, 0, 0),
	}
}

// --- Validate ---

func TestValidateNotFound(t *testing.T) {
	svc := newTestService(newFakeStore())

	_, err := svc.Validate(context.Background(), "ALPACA-ZZZZZZ")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestValidateNormalizesCaseAndWhitespace(t *testing.T) {
	store := newFakeStore(activeVoucher("ALPACA-ABC234", 5000))
	svc := newTestService(store)

	for _, input := range []string{"ALPACA-ABC234", "alpaca-abc234", "  Alpaca-Abc234  ", "\talpaca-ABC234\n"} {
		v, err := svc.Validate(context.Background(), input)
		require.NoError(t, err, "input %q", input)
		assert.Equal(t, "ALPACA-ABC234", v.Code)
	}
}

func TestValidateEmptyCode(t *testing.T) {
	svc := newTestService(newFakeStore())

	_, err := svc.Validate(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestValidateExpiredEvenIfActive(t *testing.T) {
	v := activeVoucher("ALPACA-OLDONE", 5000)
	v.ExpiresAt = testNow.Add(-time.Hour)
	store := newFakeStore(v)
	svc := newTestService(store)

	_, err := svc.Validate(context.Background(), "ALPACA-OLDONE")
	assert.ErrorIs(t, err, ErrExpired)

	// the time check never mutates stored state
	stored := store.vouchers["ALPACA-OLDONE"]
	assert.Equal(t, models.StatusActive, stored.Status)
	assert.Equal(t, int64(5000), stored.RemainingAmount)
}

func TestValidateFullyRedeemed(t *testing.T) {
	v := activeVoucher("ALPACA-USEDUP", 0)
	v.Status = models.StatusFullyRedeemed
	svc := newTestService(newFakeStore(v))

	_, err := svc.Validate(context.Background(), "ALPACA-USEDUP")
	assert.ErrorIs(t, err, ErrAlreadyRedeemed)
}

func TestValidatePending(t *testing.T) {
	v := activeVoucher("ALPACA-WAITPM", 5000)
	v.Status = models.StatusPending
	svc := newTestService(newFakeStore(v))

	_, err := svc.Validate(context.Background(), "ALPACA-WAITPM")
	assert.ErrorIs(t, err, ErrNotYetActive)
}

func TestValidateCheckOrder(t *testing.T) {
	// expiry is checked before redeemed and pending states
	expiredDrained := activeVoucher("ALPACA-EXPDRN", 0)
	expiredDrained.Status = models.StatusFullyRedeemed
	expiredDrained.ExpiresAt = testNow.Add(-time.Hour)

	expiredPending := activeVoucher("ALPACA-EXPPND", 5000)
	expiredPending.Status = models.StatusPending
	expiredPending.ExpiresAt = testNow.Add(-time.Hour)

	// drained beats pending
	drainedPending := activeVoucher("ALPACA-DRNPND", 0)
	drainedPending.Status = models.StatusPending

	svc := newTestService(newFakeStore(expiredDrained, expiredPending, drainedPending))

	_, err := svc.Validate(context.Background(), "ALPACA-EXPDRN")
	assert.ErrorIs(t, err, ErrExpired)

	_, err = svc.Validate(context.Background(), "ALPACA-EXPPND")
	assert.ErrorIs(t, err, ErrExpired)

	_, err = svc.Validate(context.Background(), "ALPACA-DRNPND")
	assert.ErrorIs(t, err, ErrAlreadyRedeemed)
}

func TestValidateStorageFailure(t *testing.T) {
	store := newFakeStore()
	store.getErr = errors.New("connection refused")
	svc := newTestService(store)

	_, err := svc.Validate(context.Background(), "ALPACA-ABC234")
	assert.ErrorIs(t, err, ErrUnavailable)
}

// --- Redeem ---

func TestRedeemLifecycle(t *testing.T) {
	store := newFakeStore(activeVoucher("ALPACA-ABC123", 5000))
	svc := newTestService(store)
	ctx := context.Background()

	res, err := svc.Redeem(ctx, "ALPACA-ABC123", 2000)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), res.RedeemedAmount)
	assert.Equal(t, int64(3000), res.Voucher.RemainingAmount)
	assert.Equal(t, models.StatusActive, res.Voucher.Status)

	res, err = svc.Redeem(ctx, "ALPACA-ABC123", 3000)
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.Voucher.RemainingAmount)
	assert.Equal(t, models.StatusFullyRedeemed, res.Voucher.Status)

	_, err = svc.Redeem(ctx, "ALPACA-ABC123", 1)
	assert.ErrorIs(t, err, ErrAlreadyRedeemed)
}

func TestRedeemInsufficientBalance(t *testing.T) {
	store := newFakeStore(activeVoucher("ALPACA-ABC123", 3000))
	svc := newTestService(store)

	_, err := svc.Redeem(context.Background(), "ALPACA-ABC123", 3001)
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	var insufficient *InsufficientBalanceError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, int64(3000), insufficient.Remaining)
	assert.Equal(t, "EUR", insufficient.Currency)

	// stored state untouched
	stored := store.vouchers["ALPACA-ABC123"]
	assert.Equal(t, int64(3000), stored.RemainingAmount)
	assert.Equal(t, models.StatusActive, stored.Status)
	assert.Zero(t, store.casCalls)
}

func TestRedeemInvalidAmount(t *testing.T) {
	svc := newTestService(newFakeStore(activeVoucher("ALPACA-ABC123", 5000)))

	_, err := svc.Redeem(context.Background(), "ALPACA-ABC123", 0)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Redeem(context.Background(), "ALPACA-ABC123", -100)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRedeemRetriesAfterLostRace(t *testing.T) {
	store := newFakeStore(activeVoucher("ALPACA-ABC123", 5000))
	svc := newTestService(store)

	// a concurrent redemption of 1000 lands between our read and write
	fired := false
	store.onRedeemCAS = func(s *fakeStore) {
		if fired {
			return
		}
		fired = true
		s.vouchers["ALPACA-ABC123"].RemainingAmount = 4000
	}

	res, err := svc.Redeem(context.Background(), "ALPACA-ABC123", 2000)
	require.NoError(t, err)
	// the retry re-read fresh state: 4000 - 2000, not 5000 - 2000
	assert.Equal(t, int64(2000), res.Voucher.RemainingAmount)
	assert.Equal(t, 2, store.casCalls)
}

func TestRedeemLostRaceDrainsBalance(t *testing.T) {
	store := newFakeStore(activeVoucher("ALPACA-ABC123", 2000))
	svc := newTestService(store)

	// the concurrent winner takes everything; the retry must report
	// the truthful domain error, not double-decrement
	fired := false
	store.onRedeemCAS = func(s *fakeStore) {
		if fired {
			return
		}
		fired = true
		v := s.vouchers["ALPACA-ABC123"]
		v.RemainingAmount = 0
		v.Status = models.StatusFullyRedeemed
	}

	_, err := svc.Redeem(context.Background(), "ALPACA-ABC123", 2000)
	assert.ErrorIs(t, err, ErrAlreadyRedeemed)
	assert.Equal(t, int64(0), store.vouchers["ALPACA-ABC123"].RemainingAmount)
}

func TestRedeemConflictRetriesExhausted(t *testing.T) {
	store := newFakeStore(activeVoucher("ALPACA-ABC123", 5000))
	svc := newTestService(store)

	// every CAS attempt loses without the balance ever draining
	n := int64(5000)
	store.onRedeemCAS = func(s *fakeStore) {
		n -= 100
		s.vouchers["ALPACA-ABC123"].RemainingAmount = n
	}

	_, err := svc.Redeem(context.Background(), "ALPACA-ABC123", 200)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, redeemAttempts, store.casCalls)
}

// --- Purchase ---

func TestPurchaseCreatesPendingVoucher(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	v, err := svc.Purchase(context.Background(), PurchaseInput{
		Amount:     10000,
		Currency:   "EUR",
		BuyerName:  "Anna",
		BuyerEmail: "anna@example.com",
		Message:    "Happy birthday!",
	})
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^ALPACA-[A-HJ-NP-Z2-9]{6}$`), v.Code)
	assert.Equal(t, models.StatusPending, v.Status)
	assert.Equal(t, int64(10000), v.OriginalAmount)
	assert.Equal(t, int64(10000), v.RemainingAmount)
	assert.Equal(t, testNow.AddDate(0, 12, 0), v.ExpiresAt)
	assert.Contains(t, store.vouchers, v.Code)
}

func TestPurchaseRejectsBadInput(t *testing.T) {
	svc := newTestService(newFakeStore())
	ctx := context.Background()

	tests := []struct {
		name string
		in   PurchaseInput
	}{
		{"zero amount", PurchaseInput{Amount: 0, Currency: "EUR", BuyerEmail: "a@b.c"}},
		{"negative amount", PurchaseInput{Amount: -100, Currency: "EUR", BuyerEmail: "a@b.c"}},
		{"amount over cap", PurchaseInput{Amount: maxPurchaseAmount + 1, Currency: "EUR", BuyerEmail: "a@b.c"}},
		{"unsupported currency", PurchaseInput{Amount: 5000, Currency: "USD", BuyerEmail: "a@b.c"}},
		{"missing email", PurchaseInput{Amount: 5000, Currency: "EUR"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Purchase(ctx, tt.in)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestPurchaseRetriesOnCodeCollision(t *testing.T) {
	store := newFakeStore(activeVoucher("ALPACA-TAKEN2", 5000))
	svc := newTestService(store)

	codes := []string{"ALPACA-TAKEN2", "ALPACA-FRESH2"}
	svc.newCode = func() string {
		c := codes[0]
		if len(codes) > 1 {
			codes = codes[1:]
		}
		return c
	}

	v, err := svc.Purchase(context.Background(), PurchaseInput{
		Amount: 5000, Currency: "PLN", BuyerEmail: "anna@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "ALPACA-FRESH2", v.Code)
	assert.Equal(t, 2, store.createCalls)
}

func TestPurchaseCollisionRetriesBounded(t *testing.T) {
	store := newFakeStore(activeVoucher("ALPACA-TAKEN2", 5000))
	svc := newTestService(store)
	svc.newCode = func() string { return "ALPACA-TAKEN2" }

	_, err := svc.Purchase(context.Background(), PurchaseInput{
		Amount: 5000, Currency: "EUR", BuyerEmail: "anna@example.com",
	})
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, createAttempts, store.createCalls)
}

// --- ConfirmPayment ---

func TestConfirmPaymentActivates(t *testing.T) {
	v := activeVoucher("ALPACA-WAITPM", 5000)
	v.Status = models.StatusPending
	store := newFakeStore(v)
	svc := newTestService(store)

	got, err := svc.ConfirmPayment(context.Background(), "alpaca-waitpm", "sess_123")
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, got.Status)
	assert.Equal(t, "sess_123", got.PaymentRef)
	assert.Equal(t, models.StatusActive, store.vouchers["ALPACA-WAITPM"].Status)
}

func TestConfirmPaymentIdempotent(t *testing.T) {
	v := activeVoucher("ALPACA-WAITPM", 5000)
	v.Status = models.StatusPending
	store := newFakeStore(v)
	svc := newTestService(store)
	ctx := context.Background()

	_, err := svc.ConfirmPayment(ctx, "ALPACA-WAITPM", "sess_123")
	require.NoError(t, err)

	// redelivered webhook: no error, no second activation write
	got, err := svc.ConfirmPayment(ctx, "ALPACA-WAITPM", "sess_123")
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, got.Status)
	assert.Equal(t, 1, store.activateCalls)
}

func TestConfirmPaymentUnknownCode(t *testing.T) {
	svc := newTestService(newFakeStore())

	_, err := svc.ConfirmPayment(context.Background(), "ALPACA-ZZZZZZ", "sess_123")
	assert.ErrorIs(t, err, ErrNotFound)
}
