package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"driveshare-settlement/internal/domain"
	"driveshare-settlement/internal/logger"
	"driveshare-settlement/internal/repository"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

type payoutRepository struct {
	db Querier
}

func NewPayoutRepository(db Querier) repository.PayoutRepository {
	return &payoutRepository{db: db}
}

const payoutColumns = `id, owner_id, amount, currency, status, period_start, period_end, payment_method, payment_details,
	reference, failure_reason, completed_at, created_at`

func scanPayout(row interface{ Scan(...any) error }) (*domain.Payout, error) {
	var p domain.Payout
	var details []byte
	var failure sql.NullString
	var completedAt sql.NullTime
	err := row.Scan(&p.ID, &p.OwnerID, &p.Amount, &p.Currency, &p.Status, &p.PeriodStart, &p.PeriodEnd, &p.PaymentMethod,
		&details, &p.Reference, &failure, &completedAt, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	if len(details) > 0 {
		if err := json.Unmarshal(details, &p.PaymentDetails); err != nil {
			return nil, err
		}
	}
	p.FailureReason = stringOrEmpty(failure)
	p.CompletedAt = timePtr(completedAt)
	return &p, nil
}

func (r *payoutRepository) Create(ctx context.Context, p *domain.Payout) error {
	logger.EnterMethod("payoutRepository.Create", "ownerID", p.OwnerID, "amount", p.Amount.String())

	details, err := json.Marshal(p.PaymentDetails)
	if err != nil {
		logger.ExitMethodWithError("payoutRepository.Create", err, "reason", "failed to marshal payment details")
		return err
	}
	p.CreatedAt = time.Now().UTC()
	query := `INSERT INTO owner_payouts (owner_id, amount, currency, status, period_start, period_end, payment_method,
	          payment_details, reference, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`
	err = r.db.QueryRowContext(ctx, query, p.OwnerID, p.Amount, p.Currency, p.Status, p.PeriodStart, p.PeriodEnd,
		p.PaymentMethod, details, p.Reference, p.CreatedAt).Scan(&p.ID)
	if err != nil {
		logger.ExitMethodWithError("payoutRepository.Create", err, "ownerID", p.OwnerID)
		return err
	}
	logger.ExitMethod("payoutRepository.Create", "payoutID", p.ID)
	return nil
}

func (r *payoutRepository) GetForUpdate(ctx context.Context, id int32) (*domain.Payout, error) {
	query := `SELECT ` + payoutColumns + ` FROM owner_payouts WHERE id = $1 FOR UPDATE`
	return scanPayout(r.db.QueryRowContext(ctx, query, id))
}

func (r *payoutRepository) Update(ctx context.Context, p *domain.Payout) error {
	query := `UPDATE owner_payouts SET status = $1, failure_reason = $2, completed_at = $3 WHERE id = $4`
	result, err := r.db.ExecContext(ctx, query, p.Status, p.FailureReason, p.CompletedAt, p.ID)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

func (r *payoutRepository) SumByStatus(ctx context.Context, ownerID int32, statuses []domain.PayoutStatus) (decimal.Decimal, error) {
	values := make([]string, len(statuses))
	for i, s := range statuses {
		values[i] = string(s)
	}
	var total decimal.Decimal
	query := `SELECT COALESCE(SUM(amount), 0) FROM owner_payouts WHERE owner_id = $1 AND status = ANY($2)`
	err := r.db.QueryRowContext(ctx, query, ownerID, pq.Array(values)).Scan(&total)
	return total, err
}

func (r *payoutRepository) LastCompleted(ctx context.Context, ownerID int32) (*domain.Payout, error) {
	query := `SELECT ` + payoutColumns + ` FROM owner_payouts
	          WHERE owner_id = $1 AND status = 'completed' ORDER BY completed_at DESC LIMIT 1`
	p, err := scanPayout(r.db.QueryRowContext(ctx, query, ownerID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

type withdrawalRepository struct {
	db Querier
}

func NewWithdrawalRepository(db Querier) repository.WithdrawalRepository {
	return &withdrawalRepository{db: db}
}

const withdrawalColumns = `id, owner_id, amount, fee_percentage, fee_amount, net_amount, currency, status, reference,
	failure_reason, completed_at, created_at`

func (r *withdrawalRepository) Create(ctx context.Context, w *domain.InstantWithdrawal) error {
	logger.EnterMethod("withdrawalRepository.Create", "ownerID", w.OwnerID, "amount", w.Amount.String())
	w.CreatedAt = time.Now().UTC()
	query := `INSERT INTO instant_withdrawals (owner_id, amount, fee_percentage, fee_amount, net_amount, currency, status,
	          reference, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`
	err := r.db.QueryRowContext(ctx, query, w.OwnerID, w.Amount, w.FeePercentage, w.FeeAmount, w.NetAmount, w.Currency,
		w.Status, w.Reference, w.CreatedAt).Scan(&w.ID)
	if err != nil {
		logger.ExitMethodWithError("withdrawalRepository.Create", err, "ownerID", w.OwnerID)
		return err
	}
	logger.ExitMethod("withdrawalRepository.Create", "withdrawalID", w.ID)
	return nil
}

func (r *withdrawalRepository) GetForUpdate(ctx context.Context, id int32) (*domain.InstantWithdrawal, error) {
	var w domain.InstantWithdrawal
	var failure sql.NullString
	var completedAt sql.NullTime
	query := `SELECT ` + withdrawalColumns + ` FROM instant_withdrawals WHERE id = $1 FOR UPDATE`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&w.ID, &w.OwnerID, &w.Amount, &w.FeePercentage, &w.FeeAmount,
		&w.NetAmount, &w.Currency, &w.Status, &w.Reference, &failure, &completedAt, &w.CreatedAt)
	if err != nil {
		return nil, err
	}
	w.FailureReason = stringOrEmpty(failure)
	w.CompletedAt = timePtr(completedAt)
	return &w, nil
}

func (r *withdrawalRepository) Update(ctx context.Context, w *domain.InstantWithdrawal) error {
	query := `UPDATE instant_withdrawals SET status = $1, failure_reason = $2, completed_at = $3 WHERE id = $4`
	result, err := r.db.ExecContext(ctx, query, w.Status, w.FailureReason, w.CompletedAt, w.ID)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

func (r *withdrawalRepository) SumByStatus(ctx context.Context, ownerID int32, statuses []domain.WithdrawalStatus) (decimal.Decimal, error) {
	values := make([]string, len(statuses))
	for i, s := range statuses {
		values[i] = string(s)
	}
	var total decimal.Decimal
	query := `SELECT COALESCE(SUM(amount), 0) FROM instant_withdrawals WHERE owner_id = $1 AND status = ANY($2)`
	err := r.db.QueryRowContext(ctx, query, ownerID, pq.Array(values)).Scan(&total)
	return total, err
}
