package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"driveshare-settlement/internal/logger"
	"driveshare-settlement/internal/repository"

	_ "github.com/lib/pq"
)

// Querier is the subset of *sql.DB and *sql.Tx the repositories need.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Store struct {
	db *sql.DB
	repository.Repositories
	repository.SettingsRepository
	repository.NotificationRepository
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:                     db,
		Repositories:           newRepositories(db),
		SettingsRepository:     NewSettingsRepository(db),
		NotificationRepository: NewNotificationRepository(db),
	}
}

func newRepositories(q Querier) repository.Repositories {
	return repository.Repositories{
		Bookings:    NewBookingRepository(q),
		Inspections: NewInspectionRepository(q),
		Vehicles:    NewVehicleRepository(q),
		ChargeTypes: NewChargeTypeRepository(q),
		Charges:     NewChargeRepository(q),
		Payments:    NewPaymentRepository(q),
		Refunds:     NewRefundRepository(q),
		Owners:      NewOwnerRepository(q),
		Payouts:     NewPayoutRepository(q),
		Withdrawals: NewWithdrawalRepository(q),
	}
}

// WithinTx runs fn with every repository bound to one transaction.
// The transaction commits only when fn returns nil.
func (s *Store) WithinTx(ctx context.Context, fn func(repos repository.Repositories) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err = fn(newRepositories(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("Transaction rollback failed", "error", rbErr)
		}
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// DB exposes the pool for health checks.
func (s *Store) DB() *sql.DB {
	return s.db
}
