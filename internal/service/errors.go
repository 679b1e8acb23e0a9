package service

import "errors"

// Redemption failures are structured results for the caller, never
// surprises past the request boundary. ErrUnavailable covers storage
// and collaborator outages without leaking internals.
var (
	ErrNotFound            = errors.New("voucher not found")
	ErrExpired             = errors.New("voucher expired")
	ErrAlreadyRedeemed     = errors.New("voucher fully redeemed")
	ErrNotYetActive        = errors.New("voucher payment not confirmed")
	ErrInsufficientBalance = errors.New("insufficient voucher balance")
	ErrInvalidInput        = errors.New("invalid input")
	ErrUnavailable         = errors.New("service unavailable")
)

// InsufficientBalanceError carries the balance the caller may still
// redeem, so the API can surface it alongside the rejection.
type InsufficientBalanceError struct {
	Remaining int64
	Currency  string
}

func (e *InsufficientBalanceError) Error() string {
	return ErrInsufficientBalance.Error()
}

func (e *InsufficientBalanceError) Is(target error) bool {
	return target == ErrInsufficientBalance
}
