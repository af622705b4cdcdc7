package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"driveshare-settlement/internal/config"
	"driveshare-settlement/internal/domain"
	"driveshare-settlement/internal/service"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockPayoutService struct {
	service.PayoutService
	mock.Mock
}

func (m *MockPayoutService) ListPayoutsDue(ctx context.Context, actor domain.Actor, targetDate time.Time) ([]domain.DueOwner, error) {
	args := m.Called(ctx, actor, targetDate)
	return args.Get(0).([]domain.DueOwner), args.Error(1)
}

func (m *MockPayoutService) ProcessPayouts(ctx context.Context, actor domain.Actor, ownerIDs []int32) (*domain.BatchPayoutResult, error) {
	args := m.Called(ctx, actor, ownerIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BatchPayoutResult), args.Error(1)
}

type MockRefundService struct {
	service.RefundService
	mock.Mock
}

func (m *MockRefundService) CreateRefundsForCompletedBookings(ctx context.Context, batchSize int32) (int, error) {
	args := m.Called(ctx, batchSize)
	return args.Int(0), args.Error(1)
}

func (m *MockRefundService) ListOverdueRefunds(ctx context.Context, actor domain.Actor, now time.Time) ([]domain.DepositRefund, error) {
	args := m.Called(ctx, actor, now)
	return args.Get(0).([]domain.DepositRefund), args.Error(1)
}

var jobNow = time.Date(2026, 3, 10, 1, 0, 0, 0, time.UTC)

func newTestRunner() (*JobRunner, *MockPayoutService, *MockRefundService) {
	payouts := new(MockPayoutService)
	refunds := new(MockRefundService)
	cfg := &config.Config{Settlement: config.SettlementConfig{RefundSweepBatchSize: 50}}
	jr := NewJobRunner(&Services{Refund: refunds, Payout: payouts}, cfg)
	jr.now = func() time.Time { return jobNow }
	return jr, payouts, refunds
}

func TestProcessDuePayouts(t *testing.T) {
	t.Run("ProcessesEveryDueOwner", func(t *testing.T) {
		jr, payouts, _ := newTestRunner()
		payouts.On("ListPayoutsDue", mock.Anything, domain.SystemActor, jobNow).
			Return([]domain.DueOwner{{OwnerID: 20}, {OwnerID: 21}}, nil)
		payouts.On("ProcessPayouts", mock.Anything, domain.SystemActor, []int32{20, 21}).
			Return(&domain.BatchPayoutResult{
				Succeeded: []domain.PayoutOutcome{{OwnerID: 20, Balance: decimal.NewFromInt(500)}},
				Failed:    []domain.PayoutOutcome{{OwnerID: 21, Reason: "below_minimum"}},
			}, nil)

		jr.ProcessDuePayouts()
		payouts.AssertExpectations(t)
	})

	t.Run("NothingDue", func(t *testing.T) {
		jr, payouts, _ := newTestRunner()
		payouts.On("ListPayoutsDue", mock.Anything, domain.SystemActor, jobNow).Return([]domain.DueOwner{}, nil)

		jr.ProcessDuePayouts()
		payouts.AssertNotCalled(t, "ProcessPayouts", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("ListFails", func(t *testing.T) {
		jr, payouts, _ := newTestRunner()
		payouts.On("ListPayoutsDue", mock.Anything, domain.SystemActor, jobNow).Return([]domain.DueOwner(nil), errors.New("db down"))

		assert.NotPanics(t, jr.ProcessDuePayouts)
		payouts.AssertNotCalled(t, "ProcessPayouts", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestCreatePendingRefunds(t *testing.T) {
	jr, _, refunds := newTestRunner()
	refunds.On("CreateRefundsForCompletedBookings", mock.Anything, int32(50)).Return(3, nil)

	jr.CreatePendingRefunds()
	refunds.AssertExpectations(t)
}

func TestReportOverdueRefunds(t *testing.T) {
	jr, _, refunds := newTestRunner()
	refunds.On("ListOverdueRefunds", mock.Anything, domain.SystemActor, jobNow).Return([]domain.DepositRefund{
		{ID: 3, BookingID: 10, Amount: decimal.NewFromInt(400), DueDate: jobNow.Add(-48 * time.Hour)},
	}, nil)

	jr.ReportOverdueRefunds()
	refunds.AssertExpectations(t)
}

func TestRunWithRecovery(t *testing.T) {
	jr, _, _ := newTestRunner()
	assert.NotPanics(t, func() {
		jr.runWithRecovery("Boom", func() { panic("boom") })
	})
}
