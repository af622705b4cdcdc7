package postgres

import (
	"context"
	"database/sql"
	"errors"

	"driveshare-settlement/internal/domain"
	"driveshare-settlement/internal/repository"
)

type paymentRepository struct {
	db Querier
}

func NewPaymentRepository(db Querier) repository.PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) GetByID(ctx context.Context, id int32) (*domain.PaymentTransaction, error) {
	var p domain.PaymentTransaction
	query := `SELECT id, booking_id, reference, amount, status, created_at FROM payment_transactions WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.BookingID, &p.Reference, &p.Amount, &p.Status, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *paymentRepository) FindCompletedByBooking(ctx context.Context, bookingID int32) (*domain.PaymentTransaction, error) {
	var p domain.PaymentTransaction
	query := `SELECT id, booking_id, reference, amount, status, created_at FROM payment_transactions
	          WHERE booking_id = $1 AND status = 'completed' ORDER BY created_at DESC LIMIT 1`
	err := r.db.QueryRowContext(ctx, query, bookingID).Scan(&p.ID, &p.BookingID, &p.Reference, &p.Amount, &p.Status, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
