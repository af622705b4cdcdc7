package postgres

import (
	"context"
	"database/sql"

	"driveshare-settlement/internal/domain"
	"driveshare-settlement/internal/logger"
	"driveshare-settlement/internal/repository"

	"github.com/shopspring/decimal"
)

const bookingColumns = `id, vehicle_id, owner_id, renter_id, status, rental_amount, driver_amount,
	platform_fee, deposit_amount, currency, start_at, return_at, completed_at`

type bookingRepository struct {
	db Querier
}

func NewBookingRepository(db Querier) repository.BookingRepository {
	return &bookingRepository{db: db}
}

func scanBooking(row interface{ Scan(...any) error }) (*domain.Booking, error) {
	var b domain.Booking
	var completedAt sql.NullTime
	err := row.Scan(&b.ID, &b.VehicleID, &b.OwnerID, &b.RenterID, &b.Status, &b.RentalAmount, &b.DriverAmount,
		&b.PlatformFee, &b.DepositAmount, &b.Currency, &b.StartAt, &b.ReturnAt, &completedAt)
	if err != nil {
		return nil, err
	}
	if completedAt.Valid {
		b.CompletedAt = &completedAt.Time
	}
	return &b, nil
}

func (r *bookingRepository) GetByID(ctx context.Context, id int32) (*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	return scanBooking(r.db.QueryRowContext(ctx, query, id))
}

func (r *bookingRepository) GetForUpdate(ctx context.Context, id int32) (*domain.Booking, error) {
	logger.EnterMethod("bookingRepository.GetForUpdate", "bookingID", id)
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1 FOR UPDATE`
	b, err := scanBooking(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		logger.ExitMethodWithError("bookingRepository.GetForUpdate", err, "bookingID", id)
		return nil, err
	}
	logger.ExitMethod("bookingRepository.GetForUpdate", "bookingID", id, "deposit", b.DepositAmount.String())
	return b, nil
}

func (r *bookingRepository) UpdateDeposit(ctx context.Context, id int32, deposit decimal.Decimal) error {
	query := `UPDATE bookings SET deposit_amount = $1, updated_at = NOW() WHERE id = $2`
	logger.DatabaseCall("UPDATE", "bookings", "bookingID", id)
	result, err := r.db.ExecContext(ctx, query, deposit, id)
	if err != nil {
		logger.DatabaseResult("UPDATE", 0, err)
		return err
	}
	n, err := result.RowsAffected()
	logger.DatabaseResult("UPDATE", n, err)
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *bookingRepository) ListCompletedWithoutRefund(ctx context.Context, limit int32) ([]domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings b
	          WHERE b.status = 'completed' AND b.deposit_amount > 0
	            AND NOT EXISTS (SELECT 1 FROM deposit_refunds dr WHERE dr.booking_id = b.id)
	          ORDER BY b.id LIMIT $1`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

func (r *bookingRepository) SumCompletedOwnerEarnings(ctx context.Context, ownerID int32) (decimal.Decimal, error) {
	var total decimal.Decimal
	query := `SELECT COALESCE(SUM(rental_amount + driver_amount - platform_fee), 0)
	          FROM bookings WHERE owner_id = $1 AND status = 'completed'`
	err := r.db.QueryRowContext(ctx, query, ownerID).Scan(&total)
	return total, err
}
