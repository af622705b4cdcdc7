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

type refundRepository struct {
	db Querier
}

func NewRefundRepository(db Querier) repository.RefundRepository {
	return &refundRepository{db: db}
}

const refundColumns = `id, booking_id, renter_id, amount, currency, status, due_date, processed_by, processed_at,
	completed_at, cancelled_by, cancelled_at, external_refund_id, error_message, notes, created_at, updated_at`

func scanRefund(row interface{ Scan(...any) error }) (*domain.DepositRefund, error) {
	var rf domain.DepositRefund
	var processedBy, cancelledBy sql.NullInt32
	var processedAt, completedAt, cancelledAt sql.NullTime
	var externalID, errMsg, notes sql.NullString
	err := row.Scan(&rf.ID, &rf.BookingID, &rf.RenterID, &rf.Amount, &rf.Currency, &rf.Status, &rf.DueDate,
		&processedBy, &processedAt, &completedAt, &cancelledBy, &cancelledAt, &externalID, &errMsg, &notes,
		&rf.CreatedAt, &rf.UpdatedAt)
	if err != nil {
		return nil, err
	}
	rf.ProcessedBy = int32Ptr(processedBy)
	rf.CancelledBy = int32Ptr(cancelledBy)
	rf.ProcessedAt = timePtr(processedAt)
	rf.CompletedAt = timePtr(completedAt)
	rf.CancelledAt = timePtr(cancelledAt)
	rf.ExternalRefundID = stringOrEmpty(externalID)
	rf.ErrorMessage = stringOrEmpty(errMsg)
	rf.Notes = stringOrEmpty(notes)
	return &rf, nil
}

func (r *refundRepository) Create(ctx context.Context, rf *domain.DepositRefund) error {
	logger.EnterMethod("refundRepository.Create", "bookingID", rf.BookingID, "amount", rf.Amount.String())

	now := time.Now().UTC()
	query := `INSERT INTO deposit_refunds (booking_id, renter_id, amount, currency, status, due_date, notes, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`
	logger.DatabaseCall("INSERT", "deposit_refunds", "bookingID", rf.BookingID)
	err := r.db.QueryRowContext(ctx, query, rf.BookingID, rf.RenterID, rf.Amount, rf.Currency, rf.Status, rf.DueDate,
		rf.Notes, now, now).Scan(&rf.ID)
	logger.DatabaseResult("INSERT", 1, err, "refundID", rf.ID)
	if err != nil {
		logger.ExitMethodWithError("refundRepository.Create", err, "bookingID", rf.BookingID)
		return err
	}
	rf.CreatedAt, rf.UpdatedAt = now, now
	logger.ExitMethod("refundRepository.Create", "refundID", rf.ID)
	return nil
}

func (r *refundRepository) GetByID(ctx context.Context, id int32) (*domain.DepositRefund, error) {
	query := `SELECT ` + refundColumns + ` FROM deposit_refunds WHERE id = $1`
	return scanRefund(r.db.QueryRowContext(ctx, query, id))
}

func (r *refundRepository) GetForUpdate(ctx context.Context, id int32) (*domain.DepositRefund, error) {
	query := `SELECT ` + refundColumns + ` FROM deposit_refunds WHERE id = $1 FOR UPDATE`
	return scanRefund(r.db.QueryRowContext(ctx, query, id))
}

func (r *refundRepository) ExistsForBooking(ctx context.Context, bookingID int32) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM deposit_refunds WHERE booking_id = $1)`
	err := r.db.QueryRowContext(ctx, query, bookingID).Scan(&exists)
	return exists, err
}

func (r *refundRepository) Update(ctx context.Context, rf *domain.DepositRefund) error {
	rf.UpdatedAt = time.Now().UTC()
	query := `UPDATE deposit_refunds SET status = $1, processed_by = $2, processed_at = $3, completed_at = $4,
	          cancelled_by = $5, cancelled_at = $6, external_refund_id = $7, error_message = $8, notes = $9, updated_at = $10
	          WHERE id = $11`
	logger.DatabaseCall("UPDATE", "deposit_refunds", "refundID", rf.ID, "status", rf.Status)
	result, err := r.db.ExecContext(ctx, query, rf.Status, rf.ProcessedBy, rf.ProcessedAt, rf.CompletedAt,
		rf.CancelledBy, rf.CancelledAt, rf.ExternalRefundID, rf.ErrorMessage, rf.Notes, rf.UpdatedAt, rf.ID)
	if err != nil {
		logger.DatabaseResult("UPDATE", 0, err)
		return err
	}
	return requireAffected(result)
}

func (r *refundRepository) ListByStatus(ctx context.Context, statuses []domain.RefundStatus) ([]domain.DepositRefund, error) {
	values := make([]string, len(statuses))
	for i, s := range statuses {
		values[i] = string(s)
	}
	query := `SELECT ` + refundColumns + ` FROM deposit_refunds WHERE status = ANY($1) ORDER BY due_date, id`
	return r.list(ctx, query, pq.Array(values))
}

func (r *refundRepository) ListOverdue(ctx context.Context, now time.Time) ([]domain.DepositRefund, error) {
	query := `SELECT ` + refundColumns + ` FROM deposit_refunds WHERE status = 'pending' AND due_date < $1 ORDER BY due_date, id`
	return r.list(ctx, query, now)
}

func (r *refundRepository) list(ctx context.Context, query string, args ...any) ([]domain.DepositRefund, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refunds []domain.DepositRefund
	for rows.Next() {
		rf, err := scanRefund(rows)
		if err != nil {
			return nil, err
		}
		refunds = append(refunds, *rf)
	}
	return refunds, rows.Err()
}

func (r *refundRepository) AppendAudit(ctx context.Context, entry *domain.RefundAuditLog) error {
	entry.CreatedAt = time.Now().UTC()
	var oldStatus any
	if entry.OldStatus != "" {
		oldStatus = string(entry.OldStatus)
	}
	query := `INSERT INTO deposit_refund_audit_logs (refund_id, old_status, new_status, action, actor_id, notes, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	return r.db.QueryRowContext(ctx, query, entry.RefundID, oldStatus, entry.NewStatus, entry.Action, entry.ActorID,
		entry.Notes, entry.CreatedAt).Scan(&entry.ID)
}

func (r *refundRepository) ListAudit(ctx context.Context, refundID int32) ([]domain.RefundAuditLog, error) {
	query := `SELECT id, refund_id, COALESCE(old_status, ''), new_status, action, actor_id, COALESCE(notes, ''), created_at
	          FROM deposit_refund_audit_logs WHERE refund_id = $1 ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, query, refundID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []domain.RefundAuditLog
	for rows.Next() {
		var l domain.RefundAuditLog
		var actorID sql.NullInt32
		if err := rows.Scan(&l.ID, &l.RefundID, &l.OldStatus, &l.NewStatus, &l.Action, &actorID, &l.Notes, &l.CreatedAt); err != nil {
			return nil, err
		}
		l.ActorID = int32Ptr(actorID)
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
