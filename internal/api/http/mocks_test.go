package http

import (
	"context"
	"time"

	"driveshare-settlement/internal/domain"
	"driveshare-settlement/internal/service"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockMileageService
type MockMileageService struct {
	mock.Mock
}

func (m *MockMileageService) OnReturnInspectionCompleted(ctx context.Context, bookingID int32) (*service.MileageOutcome, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.MileageOutcome), args.Error(1)
}

// MockChargeService
type MockChargeService struct {
	mock.Mock
}

func (m *MockChargeService) ProposeCharge(ctx context.Context, actor domain.Actor, in service.ProposeChargeInput) (*domain.Charge, error) {
	args := m.Called(ctx, actor, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Charge), args.Error(1)
}
func (m *MockChargeService) TransitionCharge(ctx context.Context, actor domain.Actor, chargeID int32, in service.TransitionChargeInput) (*domain.Charge, error) {
	args := m.Called(ctx, actor, chargeID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Charge), args.Error(1)
}
func (m *MockChargeService) ApplyDepositDeduction(ctx context.Context, actor domain.Actor, chargeID int32) (*service.DeductionResult, error) {
	args := m.Called(ctx, actor, chargeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.DeductionResult), args.Error(1)
}
func (m *MockChargeService) ListCharges(ctx context.Context, actor domain.Actor, bookingID int32) ([]domain.Charge, error) {
	args := m.Called(ctx, actor, bookingID)
	return args.Get(0).([]domain.Charge), args.Error(1)
}
func (m *MockChargeService) ListChargeTypes(ctx context.Context, actor domain.Actor, includeInactive bool) ([]domain.ChargeType, error) {
	args := m.Called(ctx, actor, includeInactive)
	return args.Get(0).([]domain.ChargeType), args.Error(1)
}
func (m *MockChargeService) CreateChargeType(ctx context.Context, actor domain.Actor, in service.ChargeTypeInput) (*domain.ChargeType, error) {
	args := m.Called(ctx, actor, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ChargeType), args.Error(1)
}
func (m *MockChargeService) UpdateChargeType(ctx context.Context, actor domain.Actor, code string, in service.ChargeTypeInput) (*domain.ChargeType, error) {
	args := m.Called(ctx, actor, code, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ChargeType), args.Error(1)
}
func (m *MockChargeService) DeactivateChargeType(ctx context.Context, actor domain.Actor, code string) (*domain.ChargeType, error) {
	args := m.Called(ctx, actor, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ChargeType), args.Error(1)
}

// MockRefundService
type MockRefundService struct {
	mock.Mock
}

func (m *MockRefundService) CreateRefund(ctx context.Context, actor domain.Actor, bookingID int32, notes string) (*domain.DepositRefund, error) {
	args := m.Called(ctx, actor, bookingID, notes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DepositRefund), args.Error(1)
}
func (m *MockRefundService) ProcessRefund(ctx context.Context, actor domain.Actor, refundID int32) (*domain.DepositRefund, error) {
	args := m.Called(ctx, actor, refundID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DepositRefund), args.Error(1)
}
func (m *MockRefundService) CancelRefund(ctx context.Context, actor domain.Actor, refundID int32, notes string) (*domain.DepositRefund, error) {
	args := m.Called(ctx, actor, refundID, notes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DepositRefund), args.Error(1)
}
func (m *MockRefundService) ListPendingRefunds(ctx context.Context, actor domain.Actor) ([]domain.DepositRefund, error) {
	args := m.Called(ctx, actor)
	return args.Get(0).([]domain.DepositRefund), args.Error(1)
}
func (m *MockRefundService) ListOverdueRefunds(ctx context.Context, actor domain.Actor, now time.Time) ([]domain.DepositRefund, error) {
	args := m.Called(ctx, actor, now)
	return args.Get(0).([]domain.DepositRefund), args.Error(1)
}
func (m *MockRefundService) GetAuditLog(ctx context.Context, actor domain.Actor, refundID int32) ([]domain.RefundAuditLog, error) {
	args := m.Called(ctx, actor, refundID)
	return args.Get(0).([]domain.RefundAuditLog), args.Error(1)
}
func (m *MockRefundService) CreateRefundsForCompletedBookings(ctx context.Context, batchSize int32) (int, error) {
	args := m.Called(ctx, batchSize)
	return args.Int(0), args.Error(1)
}

// MockPayoutService
type MockPayoutService struct {
	mock.Mock
}

func (m *MockPayoutService) AvailableBalance(ctx context.Context, actor domain.Actor, ownerID int32) (*domain.BalanceBreakdown, error) {
	args := m.Called(ctx, actor, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BalanceBreakdown), args.Error(1)
}
func (m *MockPayoutService) GetPayoutSettings(ctx context.Context, actor domain.Actor, ownerID int32) (*domain.OwnerPayoutSettings, error) {
	args := m.Called(ctx, actor, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.OwnerPayoutSettings), args.Error(1)
}
func (m *MockPayoutService) UpdatePayoutSettings(ctx context.Context, actor domain.Actor, ownerID int32, in service.PayoutSettingsInput) (*domain.OwnerPayoutSettings, error) {
	args := m.Called(ctx, actor, ownerID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.OwnerPayoutSettings), args.Error(1)
}
func (m *MockPayoutService) RequestInstantWithdrawal(ctx context.Context, actor domain.Actor, ownerID int32, amount decimal.Decimal) (*domain.InstantWithdrawal, error) {
	args := m.Called(ctx, actor, ownerID, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.InstantWithdrawal), args.Error(1)
}
func (m *MockPayoutService) CompleteWithdrawal(ctx context.Context, actor domain.Actor, withdrawalID int32) (*domain.InstantWithdrawal, error) {
	args := m.Called(ctx, actor, withdrawalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.InstantWithdrawal), args.Error(1)
}
func (m *MockPayoutService) FailWithdrawal(ctx context.Context, actor domain.Actor, withdrawalID int32, reason string) (*domain.InstantWithdrawal, error) {
	args := m.Called(ctx, actor, withdrawalID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.InstantWithdrawal), args.Error(1)
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
func (m *MockPayoutService) CompletePayout(ctx context.Context, actor domain.Actor, payoutID int32) (*domain.Payout, error) {
	args := m.Called(ctx, actor, payoutID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payout), args.Error(1)
}
func (m *MockPayoutService) FailPayout(ctx context.Context, actor domain.Actor, payoutID int32, reason string) (*domain.Payout, error) {
	args := m.Called(ctx, actor, payoutID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payout), args.Error(1)
}

// MockNotificationService
type MockNotificationService struct {
	mock.Mock
}

func (m *MockNotificationService) GetNotifications(ctx context.Context, userID int32, page, pageSize int32) ([]domain.Notification, int32, error) {
	args := m.Called(ctx, userID, page, pageSize)
	return args.Get(0).([]domain.Notification), args.Get(1).(int32), args.Error(2)
}
func (m *MockNotificationService) MarkAsRead(ctx context.Context, userID, notificationID int32) error {
	args := m.Called(ctx, userID, notificationID)
	return args.Error(0)
}
