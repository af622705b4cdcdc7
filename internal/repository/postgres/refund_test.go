package postgres_test

import (
	"context"
	"testing"
	"time"

	"driveshare-settlement/internal/domain"
	"driveshare-settlement/internal/repository/postgres"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

var refundCols = []string{"id", "booking_id", "renter_id", "amount", "currency", "status", "due_date", "processed_by",
	"processed_at", "completed_at", "cancelled_by", "cancelled_at", "external_refund_id", "error_message", "notes",
	"created_at", "updated_at"}

func TestRefundRepository_AppendAudit(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := postgres.NewRefundRepository(db)
	ctx := context.Background()

	t.Run("CreationHasNullOldStatus", func(t *testing.T) {
		entry := &domain.RefundAuditLog{
			RefundID:  3,
			NewStatus: domain.RefundStatusPending,
			Action:    domain.RefundActionCreated,
		}
		mock.ExpectQuery("INSERT INTO deposit_refund_audit_logs").
			WithArgs(int32(3), nil, domain.RefundStatusPending, domain.RefundActionCreated, nil, "", sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

		err := repo.AppendAudit(ctx, entry)
		assert.NoError(t, err)
		assert.Equal(t, int32(1), entry.ID)
	})

	t.Run("TransitionWithActor", func(t *testing.T) {
		admin := int32(1)
		entry := &domain.RefundAuditLog{
			RefundID:  3,
			OldStatus: domain.RefundStatusPending,
			NewStatus: domain.RefundStatusProcessing,
			Action:    domain.RefundActionProcessing,
			ActorID:   &admin,
		}
		mock.ExpectQuery("INSERT INTO deposit_refund_audit_logs").
			WithArgs(int32(3), "pending", domain.RefundStatusProcessing, domain.RefundActionProcessing, admin, "", sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))

		err := repo.AppendAudit(ctx, entry)
		assert.NoError(t, err)
	})
}

func TestRefundRepository_ListByStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := postgres.NewRefundRepository(db)
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT (.+) FROM deposit_refunds WHERE status = ANY\\(\\$1\\)").
		WithArgs(pq.Array([]string{"pending"})).
		WillReturnRows(sqlmock.NewRows(refundCols).
			AddRow(3, 10, 30, "400.00", "IDR", "pending", now, nil, nil, nil, nil, nil, nil, nil, "", now, now))

	refunds, err := repo.ListByStatus(context.Background(), []domain.RefundStatus{domain.RefundStatusPending})
	assert.NoError(t, err)
	assert.Len(t, refunds, 1)
	assert.Equal(t, "400.00", refunds[0].Amount.StringFixed(2))
	assert.Nil(t, refunds[0].ProcessedBy)
	assert.Empty(t, refunds[0].ExternalRefundID)
}

func TestRefundRepository_ListOverdue(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := postgres.NewRefundRepository(db)
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT (.+) FROM deposit_refunds WHERE status = 'pending' AND due_date < \\$1").
		WithArgs(now).
		WillReturnRows(sqlmock.NewRows(refundCols))

	refunds, err := repo.ListOverdue(context.Background(), now)
	assert.NoError(t, err)
	assert.Empty(t, refunds)
}
