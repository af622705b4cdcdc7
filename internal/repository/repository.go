package repository

import (
	"context"
	"time"

	"driveshare-settlement/internal/domain"

	"github.com/shopspring/decimal"
)

type BookingRepository interface {
	GetByID(ctx context.Context, id int32) (*domain.Booking, error)
	// GetForUpdate locks the booking row until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, id int32) (*domain.Booking, error)
	UpdateDeposit(ctx context.Context, id int32, deposit decimal.Decimal) error
	ListCompletedWithoutRefund(ctx context.Context, limit int32) ([]domain.Booking, error)
	SumCompletedOwnerEarnings(ctx context.Context, ownerID int32) (decimal.Decimal, error)
}

type InspectionRepository interface {
	GetByBookingAndType(ctx context.Context, bookingID int32, typ domain.InspectionType) (*domain.Inspection, error)
}

type VehicleRepository interface {
	GetMileagePolicy(ctx context.Context, vehicleID int32) (*domain.VehicleMileagePolicy, error)
}

type ChargeTypeRepository interface {
	GetByCode(ctx context.Context, code string) (*domain.ChargeType, error)
	List(ctx context.Context, includeInactive bool) ([]domain.ChargeType, error)
	Create(ctx context.Context, ct *domain.ChargeType) error
	Update(ctx context.Context, ct *domain.ChargeType) error
}

type ChargeRepository interface {
	Create(ctx context.Context, charge *domain.Charge) error
	GetByID(ctx context.Context, id int32) (*domain.Charge, error)
	GetForUpdate(ctx context.Context, id int32) (*domain.Charge, error)
	Update(ctx context.Context, charge *domain.Charge) error
	ListByBooking(ctx context.Context, bookingID int32) ([]domain.Charge, error)
	ExistsForBooking(ctx context.Context, bookingID int32, codes []string, origin domain.ChargeOrigin) (bool, error)
}

type PaymentRepository interface {
	GetByID(ctx context.Context, id int32) (*domain.PaymentTransaction, error)
	// FindCompletedByBooking returns nil, nil when the booking has no completed payment.
	FindCompletedByBooking(ctx context.Context, bookingID int32) (*domain.PaymentTransaction, error)
}

type RefundRepository interface {
	Create(ctx context.Context, refund *domain.DepositRefund) error
	GetByID(ctx context.Context, id int32) (*domain.DepositRefund, error)
	GetForUpdate(ctx context.Context, id int32) (*domain.DepositRefund, error)
	ExistsForBooking(ctx context.Context, bookingID int32) (bool, error)
	Update(ctx context.Context, refund *domain.DepositRefund) error
	ListByStatus(ctx context.Context, statuses []domain.RefundStatus) ([]domain.DepositRefund, error)
	ListOverdue(ctx context.Context, now time.Time) ([]domain.DepositRefund, error)

	AppendAudit(ctx context.Context, entry *domain.RefundAuditLog) error
	ListAudit(ctx context.Context, refundID int32) ([]domain.RefundAuditLog, error)
}

type OwnerRepository interface {
	GetSettings(ctx context.Context, ownerID int32) (*domain.OwnerPayoutSettings, error)
	// LockSettings locks the owner's settings row; every balance-consuming write holds it.
	LockSettings(ctx context.Context, ownerID int32) (*domain.OwnerPayoutSettings, error)
	UpsertSettings(ctx context.Context, settings *domain.OwnerPayoutSettings) error
	ListVerified(ctx context.Context) ([]domain.OwnerPayoutSettings, error)
}

type PayoutRepository interface {
	Create(ctx context.Context, payout *domain.Payout) error
	GetForUpdate(ctx context.Context, id int32) (*domain.Payout, error)
	Update(ctx context.Context, payout *domain.Payout) error
	SumByStatus(ctx context.Context, ownerID int32, statuses []domain.PayoutStatus) (decimal.Decimal, error)
	// LastCompleted returns nil, nil when the owner has never been paid out.
	LastCompleted(ctx context.Context, ownerID int32) (*domain.Payout, error)
}

type WithdrawalRepository interface {
	Create(ctx context.Context, w *domain.InstantWithdrawal) error
	GetForUpdate(ctx context.Context, id int32) (*domain.InstantWithdrawal, error)
	Update(ctx context.Context, w *domain.InstantWithdrawal) error
	SumByStatus(ctx context.Context, ownerID int32, statuses []domain.WithdrawalStatus) (decimal.Decimal, error)
}

type SettingsRepository interface {
	// GetAll returns the raw key-value platform settings.
	GetAll(ctx context.Context) (map[string]string, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, note *domain.Notification) error
	List(ctx context.Context, userID int32, limit, offset int32) ([]domain.Notification, int32, error)
	MarkAsRead(ctx context.Context, id, userID int32) error
	GetContact(ctx context.Context, userID int32) (*domain.Contact, error)
}

// Repositories groups the repositories that settlement operations write through.
// Inside Transactor.WithinTx every member is bound to the same transaction.
type Repositories struct {
	Bookings    BookingRepository
	Inspections InspectionRepository
	Vehicles    VehicleRepository
	ChargeTypes ChargeTypeRepository
	Charges     ChargeRepository
	Payments    PaymentRepository
	Refunds     RefundRepository
	Owners      OwnerRepository
	Payouts     PayoutRepository
	Withdrawals WithdrawalRepository
}

// Transactor runs fn as one atomic unit. fn's error rolls everything back.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(repos Repositories) error) error
}
