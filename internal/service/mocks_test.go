package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"driveshare-settlement/internal/domain"
	"driveshare-settlement/internal/gateway"
	"driveshare-settlement/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

var fixedNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func i64(v int64) *int64 { return &v }

func i32(v int32) *int32 { return &v }

var (
	adminActor  = domain.Actor{UserID: 1, Role: domain.RoleAdmin}
	ownerActor  = domain.Actor{UserID: 20, Role: domain.RoleOwner}
	renterActor = domain.Actor{UserID: 30, Role: domain.RoleRenter}
)

type MockBookingRepo struct {
	mock.Mock
}

func (m *MockBookingRepo) GetByID(ctx context.Context, id int32) (*domain.Booking, error) {
	args := m.Called(ctx, id)
	if v := args.Get(0); v != nil {
		return v.(*domain.Booking), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBookingRepo) GetForUpdate(ctx context.Context, id int32) (*domain.Booking, error) {
	args := m.Called(ctx, id)
	if v := args.Get(0); v != nil {
		return v.(*domain.Booking), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBookingRepo) UpdateDeposit(ctx context.Context, id int32, deposit decimal.Decimal) error {
	args := m.Called(ctx, id, deposit)
	return args.Error(0)
}

func (m *MockBookingRepo) ListCompletedWithoutRefund(ctx context.Context, limit int32) ([]domain.Booking, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]domain.Booking), args.Error(1)
}

func (m *MockBookingRepo) SumCompletedOwnerEarnings(ctx context.Context, ownerID int32) (decimal.Decimal, error) {
	args := m.Called(ctx, ownerID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

type MockInspectionRepo struct {
	mock.Mock
}

func (m *MockInspectionRepo) GetByBookingAndType(ctx context.Context, bookingID int32, typ domain.InspectionType) (*domain.Inspection, error) {
	args := m.Called(ctx, bookingID, typ)
	if v := args.Get(0); v != nil {
		return v.(*domain.Inspection), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockVehicleRepo struct {
	mock.Mock
}

func (m *MockVehicleRepo) GetMileagePolicy(ctx context.Context, vehicleID int32) (*domain.VehicleMileagePolicy, error) {
	args := m.Called(ctx, vehicleID)
	if v := args.Get(0); v != nil {
		return v.(*domain.VehicleMileagePolicy), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockChargeTypeRepo struct {
	mock.Mock
}

func (m *MockChargeTypeRepo) GetByCode(ctx context.Context, code string) (*domain.ChargeType, error) {
	args := m.Called(ctx, code)
	if v := args.Get(0); v != nil {
		return v.(*domain.ChargeType), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockChargeTypeRepo) List(ctx context.Context, includeInactive bool) ([]domain.ChargeType, error) {
	args := m.Called(ctx, includeInactive)
	return args.Get(0).([]domain.ChargeType), args.Error(1)
}

func (m *MockChargeTypeRepo) Create(ctx context.Context, ct *domain.ChargeType) error {
	args := m.Called(ctx, ct)
	return args.Error(0)
}

func (m *MockChargeTypeRepo) Update(ctx context.Context, ct *domain.ChargeType) error {
	args := m.Called(ctx, ct)
	return args.Error(0)
}

type MockChargeRepo struct {
	mock.Mock
}

func (m *MockChargeRepo) Create(ctx context.Context, charge *domain.Charge) error {
	args := m.Called(ctx, charge)
	return args.Error(0)
}

func (m *MockChargeRepo) GetByID(ctx context.Context, id int32) (*domain.Charge, error) {
	args := m.Called(ctx, id)
	if v := args.Get(0); v != nil {
		return v.(*domain.Charge), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockChargeRepo) GetForUpdate(ctx context.Context, id int32) (*domain.Charge, error) {
	args := m.Called(ctx, id)
	if v := args.Get(0); v != nil {
		return v.(*domain.Charge), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockChargeRepo) Update(ctx context.Context, charge *domain.Charge) error {
	args := m.Called(ctx, charge)
	return args.Error(0)
}

func (m *MockChargeRepo) ListByBooking(ctx context.Context, bookingID int32) ([]domain.Charge, error) {
	args := m.Called(ctx, bookingID)
	return args.Get(0).([]domain.Charge), args.Error(1)
}

func (m *MockChargeRepo) ExistsForBooking(ctx context.Context, bookingID int32, codes []string, origin domain.ChargeOrigin) (bool, error) {
	args := m.Called(ctx, bookingID, codes, origin)
	return args.Bool(0), args.Error(1)
}

type MockPaymentRepo struct {
	mock.Mock
}

func (m *MockPaymentRepo) GetByID(ctx context.Context, id int32) (*domain.PaymentTransaction, error) {
	args := m.Called(ctx, id)
	if v := args.Get(0); v != nil {
		return v.(*domain.PaymentTransaction), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPaymentRepo) FindCompletedByBooking(ctx context.Context, bookingID int32) (*domain.PaymentTransaction, error) {
	args := m.Called(ctx, bookingID)
	if v := args.Get(0); v != nil {
		return v.(*domain.PaymentTransaction), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockRefundRepo struct {
	mock.Mock
}

func (m *MockRefundRepo) Create(ctx context.Context, refund *domain.DepositRefund) error {
	args := m.Called(ctx, refund)
	return args.Error(0)
}

func (m *MockRefundRepo) GetByID(ctx context.Context, id int32) (*domain.DepositRefund, error) {
	args := m.Called(ctx, id)
	if v := args.Get(0); v != nil {
		return v.(*domain.DepositRefund), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRefundRepo) GetForUpdate(ctx context.Context, id int32) (*domain.DepositRefund, error) {
	args := m.Called(ctx, id)
	if v := args.Get(0); v != nil {
		return v.(*domain.DepositRefund), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRefundRepo) ExistsForBooking(ctx context.Context, bookingID int32) (bool, error) {
	args := m.Called(ctx, bookingID)
	return args.Bool(0), args.Error(1)
}

func (m *MockRefundRepo) Update(ctx context.Context, refund *domain.DepositRefund) error {
	args := m.Called(ctx, refund)
	return args.Error(0)
}

func (m *MockRefundRepo) ListByStatus(ctx context.Context, statuses []domain.RefundStatus) ([]domain.DepositRefund, error) {
	args := m.Called(ctx, statuses)
	return args.Get(0).([]domain.DepositRefund), args.Error(1)
}

func (m *MockRefundRepo) ListOverdue(ctx context.Context, now time.Time) ([]domain.DepositRefund, error) {
	args := m.Called(ctx, now)
	return args.Get(0).([]domain.DepositRefund), args.Error(1)
}

func (m *MockRefundRepo) AppendAudit(ctx context.Context, entry *domain.RefundAuditLog) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockRefundRepo) ListAudit(ctx context.Context, refundID int32) ([]domain.RefundAuditLog, error) {
	args := m.Called(ctx, refundID)
	return args.Get(0).([]domain.RefundAuditLog), args.Error(1)
}

type MockOwnerRepo struct {
	mock.Mock
}

func (m *MockOwnerRepo) GetSettings(ctx context.Context, ownerID int32) (*domain.OwnerPayoutSettings, error) {
	args := m.Called(ctx, ownerID)
	if v := args.Get(0); v != nil {
		return v.(*domain.OwnerPayoutSettings), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockOwnerRepo) LockSettings(ctx context.Context, ownerID int32) (*domain.OwnerPayoutSettings, error) {
	args := m.Called(ctx, ownerID)
	if v := args.Get(0); v != nil {
		return v.(*domain.OwnerPayoutSettings), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockOwnerRepo) UpsertSettings(ctx context.Context, settings *domain.OwnerPayoutSettings) error {
	args := m.Called(ctx, settings)
	return args.Error(0)
}

func (m *MockOwnerRepo) ListVerified(ctx context.Context) ([]domain.OwnerPayoutSettings, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.OwnerPayoutSettings), args.Error(1)
}

type MockPayoutRepo struct {
	mock.Mock
}

func (m *MockPayoutRepo) Create(ctx context.Context, payout *domain.Payout) error {
	args := m.Called(ctx, payout)
	return args.Error(0)
}

func (m *MockPayoutRepo) GetForUpdate(ctx context.Context, id int32) (*domain.Payout, error) {
	args := m.Called(ctx, id)
	if v := args.Get(0); v != nil {
		return v.(*domain.Payout), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPayoutRepo) Update(ctx context.Context, payout *domain.Payout) error {
	args := m.Called(ctx, payout)
	return args.Error(0)
}

func (m *MockPayoutRepo) SumByStatus(ctx context.Context, ownerID int32, statuses []domain.PayoutStatus) (decimal.Decimal, error) {
	args := m.Called(ctx, ownerID, statuses)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockPayoutRepo) LastCompleted(ctx context.Context, ownerID int32) (*domain.Payout, error) {
	args := m.Called(ctx, ownerID)
	if v := args.Get(0); v != nil {
		return v.(*domain.Payout), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockWithdrawalRepo struct {
	mock.Mock
}

func (m *MockWithdrawalRepo) Create(ctx context.Context, w *domain.InstantWithdrawal) error {
	args := m.Called(ctx, w)
	return args.Error(0)
}

func (m *MockWithdrawalRepo) GetForUpdate(ctx context.Context, id int32) (*domain.InstantWithdrawal, error) {
	args := m.Called(ctx, id)
	if v := args.Get(0); v != nil {
		return v.(*domain.InstantWithdrawal), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockWithdrawalRepo) Update(ctx context.Context, w *domain.InstantWithdrawal) error {
	args := m.Called(ctx, w)
	return args.Error(0)
}

func (m *MockWithdrawalRepo) SumByStatus(ctx context.Context, ownerID int32, statuses []domain.WithdrawalStatus) (decimal.Decimal, error) {
	args := m.Called(ctx, ownerID, statuses)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

type MockRefundGateway struct {
	mock.Mock
}

func (m *MockRefundGateway) Refund(ctx context.Context, paymentReference string, amount decimal.Decimal) (gateway.RefundResult, error) {
	args := m.Called(ctx, paymentReference, amount)
	return args.Get(0).(gateway.RefundResult), args.Error(1)
}

type testRepos struct {
	bookings    *MockBookingRepo
	inspections *MockInspectionRepo
	vehicles    *MockVehicleRepo
	chargeTypes *MockChargeTypeRepo
	charges     *MockChargeRepo
	payments    *MockPaymentRepo
	refunds     *MockRefundRepo
	owners      *MockOwnerRepo
	payouts     *MockPayoutRepo
	withdrawals *MockWithdrawalRepo
}

func newTestRepos() *testRepos {
	return &testRepos{
		bookings:    new(MockBookingRepo),
		inspections: new(MockInspectionRepo),
		vehicles:    new(MockVehicleRepo),
		chargeTypes: new(MockChargeTypeRepo),
		charges:     new(MockChargeRepo),
		payments:    new(MockPaymentRepo),
		refunds:     new(MockRefundRepo),
		owners:      new(MockOwnerRepo),
		payouts:     new(MockPayoutRepo),
		withdrawals: new(MockWithdrawalRepo),
	}
}

func (r *testRepos) Repositories() repository.Repositories {
	return repository.Repositories{
		Bookings:    r.bookings,
		Inspections: r.inspections,
		Vehicles:    r.vehicles,
		ChargeTypes: r.chargeTypes,
		Charges:     r.charges,
		Payments:    r.payments,
		Refunds:     r.refunds,
		Owners:      r.owners,
		Payouts:     r.payouts,
		Withdrawals: r.withdrawals,
	}
}

// fakeTx runs fn directly against the mocks and counts transactions.
// Like BeginTx, it refuses to start on a done context.
type fakeTx struct {
	repos repository.Repositories
	calls int
}

func (f *fakeTx) WithinTx(ctx context.Context, fn func(repos repository.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	f.calls++
	return fn(f.repos)
}

type recordingPublisher struct {
	mu   sync.Mutex
	sent []domain.Notification
}

func (p *recordingPublisher) Publish(ctx context.Context, n domain.Notification) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, n)
}

func (p *recordingPublisher) recipients() []int32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	ids := make([]int32, 0, len(p.sent))
	for _, n := range p.sent {
		ids = append(ids, n.UserID)
	}
	return ids
}

type staticPolicies struct {
	mileage domain.MileagePolicy
	payout  domain.PayoutPolicy
}

func (p staticPolicies) MileagePolicy(ctx context.Context) (domain.MileagePolicy, error) {
	return p.mileage, nil
}

func (p staticPolicies) PayoutPolicy(ctx context.Context) (domain.PayoutPolicy, error) {
	return p.payout, nil
}

func (p staticPolicies) Invalidate() {}

type busyLocker struct{}

func (busyLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	return nil, false, nil
}
