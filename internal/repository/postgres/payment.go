package postgres

import (
	"context"
	"database/sql"

	"rideshare/internal/domain"
)

// PaymentRepository is a PostgreSQL implementation of repository.PaymentRepository.
type PaymentRepository struct {
	q Querier
}

// NewPaymentRepository creates a new PostgreSQL payment repository.
func NewPaymentRepository(db *sql.DB) *PaymentRepository {
	return &PaymentRepository{q: db}
}

const paymentColumns = `id, booking_id, payer_id, driver_id, amount, platform_fee, driver_earnings, method, status, transaction_ref, created_at, updated_at, settled_at, refunded_at`

func scanPayment(row rowScanner) (*domain.Payment, error) {
	var p domain.Payment
	var settledAt, refundedAt sql.NullTime
	if err := row.Scan(
		&p.ID,
		&p.BookingID,
		&p.PayerID,
		&p.DriverID,
		&p.Amount,
		&p.PlatformFee,
		&p.DriverEarnings,
		&p.Method,
		&p.Status,
		&p.TransactionRef,
		&p.CreatedAt,
		&p.UpdatedAt,
		&settledAt,
		&refundedAt,
	); err != nil {
		return nil, err
	}
	p.SettledAt = fromNullTime(settledAt)
	p.RefundedAt = fromNullTime(refundedAt)
	return &p, nil
}

// Create persists a new payment.
func (r *PaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := r.q.ExecContext(ctx, query,
		payment.ID,
		payment.BookingID,
		payment.PayerID,
		payment.DriverID,
		payment.Amount,
		payment.PlatformFee,
		payment.DriverEarnings,
		payment.Method,
		payment.Status,
		payment.TransactionRef,
		payment.CreatedAt,
		payment.UpdatedAt,
		toNullTime(payment.SettledAt),
		toNullTime(payment.RefundedAt),
	)

	return err
}

// GetByID retrieves a payment by ID.
func (r *PaymentRepository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	p, err := scanPayment(r.q.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id))
	if err != nil {
		return nil, mapNoRows(err)
	}
	return p, nil
}

// GetByIDForUpdate retrieves a payment and locks its row.
func (r *PaymentRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Payment, error) {
	p, err := scanPayment(r.q.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, mapNoRows(err)
	}
	return p, nil
}

// ListByBooking retrieves every payment recorded for a booking.
func (r *PaymentRepository) ListByBooking(ctx context.Context, bookingID string) ([]*domain.Payment, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE booking_id = $1 ORDER BY created_at`, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []*domain.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// Update updates the mutable fields of a payment.
func (r *PaymentRepository) Update(ctx context.Context, payment *domain.Payment) error {
	query := `
		UPDATE payments
		SET status = $1, updated_at = $2, settled_at = $3, refunded_at = $4
		WHERE id = $5
	`

	result, err := r.q.ExecContext(ctx, query,
		payment.Status,
		payment.UpdatedAt,
		toNullTime(payment.SettledAt),
		toNullTime(payment.RefundedAt),
		payment.ID,
	)
	if err != nil {
		return err
	}

	return expectOneRow(result)
}
