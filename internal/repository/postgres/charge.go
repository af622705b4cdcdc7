package postgres

import (
	"context"
	"database/sql"
	"time"

	"driveshare-settlement/internal/domain"
	"driveshare-settlement/internal/logger"
	"driveshare-settlement/internal/repository"

	"github.com/lib/pq"
)

type chargeTypeRepository struct {
	db Querier
}

func NewChargeTypeRepository(db Querier) repository.ChargeTypeRepository {
	return &chargeTypeRepository{db: db}
}

const chargeTypeColumns = `id, code, name, default_amount, currency, recipient, is_active, created_at, updated_at`

func scanChargeType(row interface{ Scan(...any) error }) (*domain.ChargeType, error) {
	var ct domain.ChargeType
	err := row.Scan(&ct.ID, &ct.Code, &ct.Name, &ct.DefaultAmount, &ct.Currency, &ct.Recipient, &ct.IsActive, &ct.CreatedAt, &ct.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &ct, nil
}

func (r *chargeTypeRepository) GetByCode(ctx context.Context, code string) (*domain.ChargeType, error) {
	query := `SELECT ` + chargeTypeColumns + ` FROM charge_types WHERE code = $1`
	return scanChargeType(r.db.QueryRowContext(ctx, query, code))
}

func (r *chargeTypeRepository) List(ctx context.Context, includeInactive bool) ([]domain.ChargeType, error) {
	query := `SELECT ` + chargeTypeColumns + ` FROM charge_types WHERE is_active OR $1 ORDER BY code`
	rows, err := r.db.QueryContext(ctx, query, includeInactive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var types []domain.ChargeType
	for rows.Next() {
		ct, err := scanChargeType(rows)
		if err != nil {
			return nil, err
		}
		types = append(types, *ct)
	}
	return types, rows.Err()
}

func (r *chargeTypeRepository) Create(ctx context.Context, ct *domain.ChargeType) error {
	logger.EnterMethod("chargeTypeRepository.Create", "code", ct.Code)
	now := time.Now().UTC()
	query := `INSERT INTO charge_types (code, name, default_amount, currency, recipient, is_active, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
	err := r.db.QueryRowContext(ctx, query, ct.Code, ct.Name, ct.DefaultAmount, ct.Currency, ct.Recipient, ct.IsActive, now, now).Scan(&ct.ID)
	if err != nil {
		logger.ExitMethodWithError("chargeTypeRepository.Create", err, "code", ct.Code)
		return err
	}
	ct.CreatedAt, ct.UpdatedAt = now, now
	logger.ExitMethod("chargeTypeRepository.Create", "chargeTypeID", ct.ID)
	return nil
}

func (r *chargeTypeRepository) Update(ctx context.Context, ct *domain.ChargeType) error {
	ct.UpdatedAt = time.Now().UTC()
	query := `UPDATE charge_types SET name = $1, default_amount = $2, recipient = $3, is_active = $4, updated_at = $5 WHERE id = $6`
	result, err := r.db.ExecContext(ctx, query, ct.Name, ct.DefaultAmount, ct.Recipient, ct.IsActive, ct.UpdatedAt, ct.ID)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

type chargeRepository struct {
	db Querier
}

func NewChargeRepository(db Querier) repository.ChargeRepository {
	return &chargeRepository{db: db}
}

const chargeColumns = `id, booking_id, charge_type_id, charge_type_code, amount, currency, label, notes, evidence,
	status, origin, created_by, settled_from_deposit, settled_at, payment_transaction_id, created_at, updated_at`

func scanCharge(row interface{ Scan(...any) error }) (*domain.Charge, error) {
	var c domain.Charge
	var createdBy, paymentID sql.NullInt32
	var settledAt sql.NullTime
	err := row.Scan(&c.ID, &c.BookingID, &c.ChargeTypeID, &c.ChargeTypeCode, &c.Amount, &c.Currency, &c.Label, &c.Notes,
		pq.Array(&c.Evidence), &c.Status, &c.Origin, &createdBy, &c.SettledFromDeposit, &settledAt, &paymentID,
		&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.CreatedBy = int32Ptr(createdBy)
	c.PaymentTransactionID = int32Ptr(paymentID)
	c.SettledAt = timePtr(settledAt)
	return &c, nil
}

func (r *chargeRepository) Create(ctx context.Context, c *domain.Charge) error {
	logger.EnterMethod("chargeRepository.Create", "bookingID", c.BookingID, "code", c.ChargeTypeCode, "status", c.Status)

	now := time.Now().UTC()
	query := `INSERT INTO booking_charges (booking_id, charge_type_id, charge_type_code, amount, currency, label, notes,
	          evidence, status, origin, created_by, settled_from_deposit, settled_at, payment_transaction_id, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16) RETURNING id`
	logger.DatabaseCall("INSERT", "booking_charges", "bookingID", c.BookingID)
	err := r.db.QueryRowContext(ctx, query, c.BookingID, c.ChargeTypeID, c.ChargeTypeCode, c.Amount, c.Currency, c.Label,
		c.Notes, pq.Array(c.Evidence), c.Status, c.Origin, c.CreatedBy, c.SettledFromDeposit, c.SettledAt,
		c.PaymentTransactionID, now, now).Scan(&c.ID)
	logger.DatabaseResult("INSERT", 1, err, "chargeID", c.ID)
	if err != nil {
		logger.ExitMethodWithError("chargeRepository.Create", err, "bookingID", c.BookingID)
		return err
	}
	c.CreatedAt, c.UpdatedAt = now, now
	logger.ExitMethod("chargeRepository.Create", "chargeID", c.ID)
	return nil
}

func (r *chargeRepository) GetByID(ctx context.Context, id int32) (*domain.Charge, error) {
	query := `SELECT ` + chargeColumns + ` FROM booking_charges WHERE id = $1`
	return scanCharge(r.db.QueryRowContext(ctx, query, id))
}

func (r *chargeRepository) GetForUpdate(ctx context.Context, id int32) (*domain.Charge, error) {
	query := `SELECT ` + chargeColumns + ` FROM booking_charges WHERE id = $1 FOR UPDATE`
	return scanCharge(r.db.QueryRowContext(ctx, query, id))
}

func (r *chargeRepository) Update(ctx context.Context, c *domain.Charge) error {
	c.UpdatedAt = time.Now().UTC()
	query := `UPDATE booking_charges SET status = $1, notes = $2, settled_from_deposit = $3, settled_at = $4,
	          payment_transaction_id = $5, updated_at = $6 WHERE id = $7`
	result, err := r.db.ExecContext(ctx, query, c.Status, c.Notes, c.SettledFromDeposit, c.SettledAt,
		c.PaymentTransactionID, c.UpdatedAt, c.ID)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

func (r *chargeRepository) ListByBooking(ctx context.Context, bookingID int32) ([]domain.Charge, error) {
	query := `SELECT ` + chargeColumns + ` FROM booking_charges WHERE booking_id = $1 ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, query, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var charges []domain.Charge
	for rows.Next() {
		c, err := scanCharge(rows)
		if err != nil {
			return nil, err
		}
		charges = append(charges, *c)
	}
	return charges, rows.Err()
}

func (r *chargeRepository) ExistsForBooking(ctx context.Context, bookingID int32, codes []string, origin domain.ChargeOrigin) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM booking_charges WHERE booking_id = $1 AND charge_type_code = ANY($2) AND origin = $3)`
	err := r.db.QueryRowContext(ctx, query, bookingID, pq.Array(codes), origin).Scan(&exists)
	return exists, err
}

func requireAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func int32Ptr(n sql.NullInt32) *int32 {
	if !n.Valid {
		return nil
	}
	v := n.Int32
	return &v
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func stringOrEmpty(s sql.NullString) string {
	if !s.Valid {
		return ""
	}
	return s.String
}
