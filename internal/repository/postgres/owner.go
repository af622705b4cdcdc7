package postgres

import (
	"context"
	"encoding/json"
	"time"

	"driveshare-settlement/internal/domain"
	"driveshare-settlement/internal/logger"
	"driveshare-settlement/internal/repository"
)

type ownerRepository struct {
	db Querier
}

func NewOwnerRepository(db Querier) repository.OwnerRepository {
	return &ownerRepository{db: db}
}

const ownerSettingsColumns = `owner_id, frequency, minimum_payout_amount, instant_withdrawal_enabled, verification_status,
	payment_method, payment_details, account_created_at, updated_at`

func scanOwnerSettings(row interface{ Scan(...any) error }) (*domain.OwnerPayoutSettings, error) {
	var s domain.OwnerPayoutSettings
	var details []byte
	err := row.Scan(&s.OwnerID, &s.Frequency, &s.MinimumPayoutAmount, &s.InstantWithdrawalEnabled, &s.VerificationStatus,
		&s.PaymentMethod, &details, &s.AccountCreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(details) > 0 {
		if err := json.Unmarshal(details, &s.PaymentDetails); err != nil {
			return nil, err
		}
	}
	return &s, nil
}

func (r *ownerRepository) GetSettings(ctx context.Context, ownerID int32) (*domain.OwnerPayoutSettings, error) {
	query := `SELECT ` + ownerSettingsColumns + ` FROM owner_payout_settings WHERE owner_id = $1`
	return scanOwnerSettings(r.db.QueryRowContext(ctx, query, ownerID))
}

func (r *ownerRepository) LockSettings(ctx context.Context, ownerID int32) (*domain.OwnerPayoutSettings, error) {
	logger.EnterMethod("ownerRepository.LockSettings", "ownerID", ownerID)
	query := `SELECT ` + ownerSettingsColumns + ` FROM owner_payout_settings WHERE owner_id = $1 FOR UPDATE`
	s, err := scanOwnerSettings(r.db.QueryRowContext(ctx, query, ownerID))
	if err != nil {
		logger.ExitMethodWithError("ownerRepository.LockSettings", err, "ownerID", ownerID)
		return nil, err
	}
	logger.ExitMethod("ownerRepository.LockSettings", "ownerID", ownerID)
	return s, nil
}

func (r *ownerRepository) UpsertSettings(ctx context.Context, s *domain.OwnerPayoutSettings) error {
	details, err := json.Marshal(s.PaymentDetails)
	if err != nil {
		return err
	}
	s.UpdatedAt = time.Now().UTC()
	if s.AccountCreatedAt.IsZero() {
		s.AccountCreatedAt = s.UpdatedAt
	}
	query := `INSERT INTO owner_payout_settings (` + ownerSettingsColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	          ON CONFLICT (owner_id) DO UPDATE SET frequency = EXCLUDED.frequency,
	            minimum_payout_amount = EXCLUDED.minimum_payout_amount,
	            instant_withdrawal_enabled = EXCLUDED.instant_withdrawal_enabled,
	            verification_status = EXCLUDED.verification_status,
	            payment_method = EXCLUDED.payment_method,
	            payment_details = EXCLUDED.payment_details,
	            updated_at = EXCLUDED.updated_at`
	logger.DatabaseCall("UPSERT", "owner_payout_settings", "ownerID", s.OwnerID)
	_, err = r.db.ExecContext(ctx, query, s.OwnerID, s.Frequency, s.MinimumPayoutAmount, s.InstantWithdrawalEnabled,
		s.VerificationStatus, s.PaymentMethod, details, s.AccountCreatedAt, s.UpdatedAt)
	logger.DatabaseResult("UPSERT", 1, err, "ownerID", s.OwnerID)
	return err
}

func (r *ownerRepository) ListVerified(ctx context.Context) ([]domain.OwnerPayoutSettings, error) {
	query := `SELECT ` + ownerSettingsColumns + ` FROM owner_payout_settings WHERE verification_status = 'verified' ORDER BY owner_id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var owners []domain.OwnerPayoutSettings
	for rows.Next() {
		s, err := scanOwnerSettings(rows)
		if err != nil {
			return nil, err
		}
		owners = append(owners, *s)
	}
	return owners, rows.Err()
}
