package models

import "time"

type VoucherStatus string

const (
	StatusPending       VoucherStatus = "pending"
	StatusActive        VoucherStatus = "active"
	StatusFullyRedeemed VoucherStatus = "fully_redeemed"
)

// Voucher is a prepaid credit instrument keyed by a human-entered code.
// Amounts are minor currency units (cents/grosze). Expiry is fixed at
// creation and never mutated; "expired" is a read-time check, not a
// stored status.
type Voucher struct {
	ID              int
	Code            string
	OriginalAmount  int64
	RemainingAmount int64
	Currency        string
	Status          VoucherStatus
	BuyerName       string
	BuyerEmail      string
	Message         string
	PaymentRef      string
	ExpiresAt       time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
