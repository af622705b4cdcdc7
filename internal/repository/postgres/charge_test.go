package postgres_test

import (
	"context"
	"testing"
	"time"

	"driveshare-settlement/internal/domain"
	"driveshare-settlement/internal/repository/postgres"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

var chargeCols = []string{"id", "booking_id", "charge_type_id", "charge_type_code", "amount", "currency", "label", "notes",
	"evidence", "status", "origin", "created_by", "settled_from_deposit", "settled_at", "payment_transaction_id",
	"created_at", "updated_at"}

func TestChargeRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := postgres.NewChargeRepository(db)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		owner := int32(20)
		c := &domain.Charge{
			BookingID:      10,
			ChargeTypeID:   4,
			ChargeTypeCode: "cleaning",
			Amount:         decimal.NewFromInt(75),
			Currency:       "IDR",
			Label:          "Interior cleaning",
			Evidence:       []string{"photos/1.jpg", "photos/2.jpg"},
			Status:         domain.ChargeStatusPendingReview,
			Origin:         domain.ChargeOriginOwner,
			CreatedBy:      &owner,
		}

		mock.ExpectQuery("INSERT INTO booking_charges").
			WithArgs(c.BookingID, c.ChargeTypeID, c.ChargeTypeCode, c.Amount, c.Currency, c.Label, c.Notes,
				pq.Array(c.Evidence), c.Status, c.Origin, owner, false, nil, nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(55))

		err := repo.Create(ctx, c)
		assert.NoError(t, err)
		assert.Equal(t, int32(55), c.ID)
		assert.False(t, c.CreatedAt.IsZero())
	})
}

func TestChargeRepository_GetForUpdate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := postgres.NewChargeRepository(db)
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT (.+) FROM booking_charges WHERE id = \\$1 FOR UPDATE").
		WithArgs(int32(55)).
		WillReturnRows(sqlmock.NewRows(chargeCols).
			AddRow(55, 10, 1, "mileage_overage", "100.00", "IDR", "Mileage overage", "", "{}", "approved", "system",
				nil, true, now, nil, now, now))

	c, err := repo.GetForUpdate(context.Background(), 55)
	assert.NoError(t, err)
	assert.Equal(t, domain.ChargeStatusApproved, c.Status)
	assert.Equal(t, domain.ChargeOriginSystem, c.Origin)
	assert.Nil(t, c.CreatedBy)
	assert.True(t, c.SettledFromDeposit)
	assert.NotNil(t, c.SettledAt)
	assert.Empty(t, c.Evidence)
}

func TestChargeRepository_ExistsForBooking(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := postgres.NewChargeRepository(db)

	mock.ExpectQuery("SELECT EXISTS \\(SELECT 1 FROM booking_charges").
		WithArgs(int32(10), pq.Array(domain.MileageChargeCodes), domain.ChargeOriginSystem).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.ExistsForBooking(context.Background(), 10, domain.MileageChargeCodes, domain.ChargeOriginSystem)
	assert.NoError(t, err)
	assert.True(t, exists)
}

func TestChargeTypeRepository_GetByCode(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := postgres.NewChargeTypeRepository(db)
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT (.+) FROM charge_types WHERE code = \\$1").
		WithArgs("damage").
		WillReturnRows(sqlmock.NewRows([]string{"id", "code", "name", "default_amount", "currency", "recipient",
			"is_active", "created_at", "updated_at"}).
			AddRow(2, "damage", "Damage", "250.00", "IDR", "owner", true, now, now))

	ct, err := repo.GetByCode(context.Background(), "damage")
	assert.NoError(t, err)
	assert.Equal(t, domain.ChargeRecipientOwner, ct.Recipient)
	assert.Equal(t, "250.00", ct.DefaultAmount.StringFixed(2))
}
