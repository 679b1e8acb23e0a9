package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"github.com/alpacafarm/booking-service/internal/models"
)

var (
	ErrNoVoucher     = errors.New("no voucher with that code")
	ErrDuplicateCode = errors.New("voucher code already exists")
)

const uniqueViolation = "23505"

type VoucherRepo struct {
	db *sql.DB
}

func NewVoucherRepo(db *sql.DB) *VoucherRepo {
	return &VoucherRepo{db: db}
}

const voucherColumns = `id, code, original_amount, remaining_amount, currency, status,
       buyer_name, buyer_email, message, payment_ref, expires_at, created_at, updated_at`

func (r *VoucherRepo) GetByCode(ctx context.Context, code string) (*models.Voucher, error) {
	query := `
		SELECT ` + voucherColumns + `
		FROM vouchers
		WHERE code = $1
	`

	var v models.Voucher
	err := r.db.QueryRowContext(ctx, query, code).Scan(
		&v.ID,
		&v.Code,
		&v.OriginalAmount,
		&v.RemainingAmount,
		&v.Currency,
		&v.Status,
		&v.BuyerName,
		&v.BuyerEmail,
		&v.Message,
		&v.PaymentRef,
		&v.ExpiresAt,
		&v.CreatedAt,
		&v.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoVoucher
		}
		return nil, err
	}
	return &v, nil
}

// Create inserts a new voucher record. A code collision surfaces as
// ErrDuplicateCode so the caller can regenerate and retry.
func (r *VoucherRepo) Create(ctx context.Context, v *models.Voucher) error {
	query := `
		INSERT INTO vouchers
		(code, original_amount, remaining_amount, currency, status,
		 buyer_name, buyer_email, message, expires_at, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,NOW(),NOW())
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		v.Code,
		v.OriginalAmount,
		v.RemainingAmount,
		v.Currency,
		v.Status,
		v.BuyerName,
		v.BuyerEmail,
		v.Message,
		v.ExpiresAt,
	).Scan(&v.ID, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return ErrDuplicateCode
		}
		return err
	}
	return nil
}

// RedeemCAS applies a redemption as a conditional update: the write
// only lands if remaining_amount still equals what the caller read.
// Returns false when the guard missed, meaning a concurrent redemption
// won and the caller must re-read and re-validate.
func (r *VoucherRepo) RedeemCAS(ctx context.Context, code string, expectedRemaining, newRemaining int64, status models.VoucherStatus) (bool, error) {
	query := `
		UPDATE vouchers
		SET remaining_amount = $1,
		    status = $2,
		    updated_at = NOW()
		WHERE code = $3 AND remaining_amount = $4
	`

	res, err := r.db.ExecContext(ctx, query, newRemaining, status, code, expectedRemaining)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Activate moves a pending voucher to active once payment is
// confirmed. Returns false when the voucher was not pending, which
// the caller treats as an already-delivered confirmation.
func (r *VoucherRepo) Activate(ctx context.Context, code, paymentRef string) (bool, error) {
	query := `
		UPDATE vouchers
		SET status = $1,
		    payment_ref = $2,
		    updated_at = NOW()
		WHERE code = $3 AND status = $4
	`

	res, err := r.db.ExecContext(ctx, query, models.StatusActive, paymentRef, code, models.StatusPending)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
