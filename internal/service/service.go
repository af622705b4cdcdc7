package service

import (
	"context"
	"time"

	"driveshare-settlement/internal/domain"

	"github.com/shopspring/decimal"
)

type MileageService interface {
	// OnReturnInspectionCompleted runs once per booking when the return inspection is done.
	OnReturnInspectionCompleted(ctx context.Context, bookingID int32) (*MileageOutcome, error)
}

type ChargeService interface {
	ProposeCharge(ctx context.Context, actor domain.Actor, in ProposeChargeInput) (*domain.Charge, error)
	TransitionCharge(ctx context.Context, actor domain.Actor, chargeID int32, in TransitionChargeInput) (*domain.Charge, error)
	ApplyDepositDeduction(ctx context.Context, actor domain.Actor, chargeID int32) (*DeductionResult, error)
	ListCharges(ctx context.Context, actor domain.Actor, bookingID int32) ([]domain.Charge, error)

	ListChargeTypes(ctx context.Context, actor domain.Actor, includeInactive bool) ([]domain.ChargeType, error)
	CreateChargeType(ctx context.Context, actor domain.Actor, in ChargeTypeInput) (*domain.ChargeType, error)
	UpdateChargeType(ctx context.Context, actor domain.Actor, code string, in ChargeTypeInput) (*domain.ChargeType, error)
	DeactivateChargeType(ctx context.Context, actor domain.Actor, code string) (*domain.ChargeType, error)
}

type RefundService interface {
	CreateRefund(ctx context.Context, actor domain.Actor, bookingID int32, notes string) (*domain.DepositRefund, error)
	ProcessRefund(ctx context.Context, actor domain.Actor, refundID int32) (*domain.DepositRefund, error)
	CancelRefund(ctx context.Context, actor domain.Actor, refundID int32, notes string) (*domain.DepositRefund, error)
	ListPendingRefunds(ctx context.Context, actor domain.Actor) ([]domain.DepositRefund, error)
	ListOverdueRefunds(ctx context.Context, actor domain.Actor, now time.Time) ([]domain.DepositRefund, error)
	GetAuditLog(ctx context.Context, actor domain.Actor, refundID int32) ([]domain.RefundAuditLog, error)
	// CreateRefundsForCompletedBookings opens refunds for completed bookings that still hold a deposit.
	CreateRefundsForCompletedBookings(ctx context.Context, batchSize int32) (int, error)
}

type PayoutService interface {
	AvailableBalance(ctx context.Context, actor domain.Actor, ownerID int32) (*domain.BalanceBreakdown, error)
	GetPayoutSettings(ctx context.Context, actor domain.Actor, ownerID int32) (*domain.OwnerPayoutSettings, error)
	UpdatePayoutSettings(ctx context.Context, actor domain.Actor, ownerID int32, in PayoutSettingsInput) (*domain.OwnerPayoutSettings, error)

	RequestInstantWithdrawal(ctx context.Context, actor domain.Actor, ownerID int32, amount decimal.Decimal) (*domain.InstantWithdrawal, error)
	CompleteWithdrawal(ctx context.Context, actor domain.Actor, withdrawalID int32) (*domain.InstantWithdrawal, error)
	FailWithdrawal(ctx context.Context, actor domain.Actor, withdrawalID int32, reason string) (*domain.InstantWithdrawal, error)

	ListPayoutsDue(ctx context.Context, actor domain.Actor, targetDate time.Time) ([]domain.DueOwner, error)
	ProcessPayouts(ctx context.Context, actor domain.Actor, ownerIDs []int32) (*domain.BatchPayoutResult, error)
	CompletePayout(ctx context.Context, actor domain.Actor, payoutID int32) (*domain.Payout, error)
	FailPayout(ctx context.Context, actor domain.Actor, payoutID int32, reason string) (*domain.Payout, error)
}

type NotificationService interface {
	GetNotifications(ctx context.Context, userID int32, page, pageSize int32) ([]domain.Notification, int32, error)
	MarkAsRead(ctx context.Context, userID, notificationID int32) error
}

type ProposeChargeInput struct {
	BookingID      int32
	ChargeTypeCode string
	Label          string
	Notes          string
	Evidence       []string
}

type TransitionChargeInput struct {
	Status               string
	PaymentTransactionID *int32
	Notes                string
}

type ChargeTypeInput struct {
	Code          string
	Name          string
	DefaultAmount decimal.Decimal
	Recipient     string
}

type PayoutSettingsInput struct {
	Frequency                *string
	MinimumPayoutAmount      *decimal.Decimal
	InstantWithdrawalEnabled *bool
	VerificationStatus       *string
	PaymentMethod            *string
	PaymentDetails           map[string]string
}

// DeductionResult reports a deposit deduction and what is left of the deposit.
type DeductionResult struct {
	Charge           *domain.Charge  `json:"charge"`
	RemainingDeposit decimal.Decimal `json:"remaining_deposit"`
}
