package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"driveshare-settlement/internal/domain"
	"driveshare-settlement/internal/lock"
	"driveshare-settlement/internal/logger"
	"driveshare-settlement/internal/notify"
	"driveshare-settlement/internal/policy"
	"driveshare-settlement/internal/repository"

	"github.com/shopspring/decimal"
)

type MileageResultKind string

const (
	MileageResultMissing   MileageResultKind = domain.ChargeCodeMileageMissing
	MileageResultTampering MileageResultKind = domain.ChargeCodeMileageTampering
	MileageResultOverage   MileageResultKind = domain.ChargeCodeMileageOverage
	MileageResultNoOverage MileageResultKind = "no_overage"
	MileageResultDisabled  MileageResultKind = "disabled"
)

type MileageInput struct {
	PickupMileage *int64
	ReturnMileage int64
	Vehicle       domain.VehicleMileagePolicy
}

type MileageResult struct {
	Kind           MileageResultKind `json:"kind"`
	Amount         decimal.Decimal   `json:"amount"`
	DrivenKm       int64             `json:"driven_km"`
	OverageKm      int64             `json:"overage_km"`
	ChargeTypeCode string            `json:"charge_type_code,omitempty"`
}

// ProposesCharge reports whether the result should become a charge.
// A zero penalty setting yields no charge.
func (r MileageResult) ProposesCharge() bool {
	switch r.Kind {
	case MileageResultMissing, MileageResultTampering, MileageResultOverage:
		return r.Amount.IsPositive()
	}
	return false
}

// CalculateMileageCharge decides the mileage charge for one booking.
// Precedence: missing pickup reading, then a negative delta, then overage.
func CalculateMileageCharge(in MileageInput, p domain.MileagePolicy) MileageResult {
	if !p.ChargingEnabledGlobally || !in.Vehicle.MileageChargingEnabled {
		return MileageResult{Kind: MileageResultDisabled, Amount: decimal.Zero}
	}

	if in.PickupMileage == nil {
		return MileageResult{
			Kind:           MileageResultMissing,
			Amount:         p.MissingMileagePenaltyAmount.Round(2),
			ChargeTypeCode: domain.ChargeCodeMileageMissing,
		}
	}

	driven := in.ReturnMileage - *in.PickupMileage
	if driven < 0 {
		return MileageResult{
			Kind:           MileageResultTampering,
			Amount:         p.TamperingPenaltyAmount.Round(2),
			DrivenKm:       driven,
			ChargeTypeCode: domain.ChargeCodeMileageTampering,
		}
	}

	if driven > in.Vehicle.IncludedKilometers {
		over := driven - in.Vehicle.IncludedKilometers
		amount := decimal.NewFromInt(over).Mul(in.Vehicle.PricePerExtraKm).Round(2)
		if !amount.IsPositive() {
			return MileageResult{Kind: MileageResultNoOverage, Amount: decimal.Zero, DrivenKm: driven, OverageKm: over}
		}
		return MileageResult{
			Kind:           MileageResultOverage,
			Amount:         amount,
			DrivenKm:       driven,
			OverageKm:      over,
			ChargeTypeCode: domain.ChargeCodeMileageOverage,
		}
	}

	return MileageResult{Kind: MileageResultNoOverage, Amount: decimal.Zero, DrivenKm: driven}
}

// MileageOutcome is what the return-inspection trigger did for a booking.
type MileageOutcome struct {
	BookingID        int32           `json:"booking_id"`
	Result           MileageResult   `json:"result"`
	Charge           *domain.Charge  `json:"charge,omitempty"`
	RemainingDeposit decimal.Decimal `json:"remaining_deposit"`
}

type mileageService struct {
	repos     repository.Repositories
	tx        repository.Transactor
	policies  policy.Provider
	locker    lock.Locker
	publisher notify.Publisher
	lockTTL   time.Duration
	currency  string
	now       func() time.Time
}

func NewMileageService(repos repository.Repositories, tx repository.Transactor, policies policy.Provider,
	locker lock.Locker, publisher notify.Publisher, lockTTL time.Duration, currency string) MileageService {
	return &mileageService{
		repos:     repos,
		tx:        tx,
		policies:  policies,
		locker:    locker,
		publisher: publisher,
		lockTTL:   lockTTL,
		currency:  currency,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *mileageService) OnReturnInspectionCompleted(ctx context.Context, bookingID int32) (*MileageOutcome, error) {
	logger.EnterMethod("mileageService.OnReturnInspectionCompleted", "bookingID", bookingID)

	release, ok, err := s.locker.Acquire(ctx, lock.BookingKey(bookingID), s.lockTTL)
	if err != nil {
		logger.ExitMethodWithError("mileageService.OnReturnInspectionCompleted", err, "bookingID", bookingID)
		return nil, err
	}
	if !ok {
		err := domain.NewStateConflictError("settlement_in_progress", "", "mileage settlement for booking %d is already running", bookingID)
		logger.ExitMethodWithError("mileageService.OnReturnInspectionCompleted", err, "bookingID", bookingID)
		return nil, err
	}
	defer release()

	outcome, err := s.settle(ctx, bookingID)
	if err != nil {
		logger.ExitMethodWithError("mileageService.OnReturnInspectionCompleted", err, "bookingID", bookingID)
		return nil, err
	}

	logger.ExitMethod("mileageService.OnReturnInspectionCompleted", "bookingID", bookingID,
		"kind", outcome.Result.Kind, "amount", outcome.Result.Amount.String())
	return outcome, nil
}

func (s *mileageService) settle(ctx context.Context, bookingID int32) (*MileageOutcome, error) {
	booking, err := s.repos.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, lookupErr(err, "booking_not_found", "booking", bookingID)
	}
	if booking.Status == domain.BookingStatusCancelled {
		return nil, domain.NewStateConflictError("invalid_booking_status", string(booking.Status),
			"booking %d is cancelled", bookingID)
	}

	charged, err := s.repos.Charges.ExistsForBooking(ctx, bookingID, domain.MileageChargeCodes, domain.ChargeOriginSystem)
	if err != nil {
		return nil, fmt.Errorf("check existing mileage charge: %w", err)
	}
	if charged {
		return nil, domain.NewStateConflictError("mileage_already_charged", "", "booking %d already has a mileage charge", bookingID)
	}

	in, err := s.mileageInput(ctx, booking)
	if err != nil {
		return nil, err
	}
	mp, err := s.policies.MileagePolicy(ctx)
	if err != nil {
		return nil, err
	}

	result := CalculateMileageCharge(*in, mp)
	outcome := &MileageOutcome{BookingID: bookingID, Result: result, RemainingDeposit: booking.DepositAmount}
	if !result.ProposesCharge() {
		logger.Info("No mileage charge", "bookingID", bookingID, "kind", result.Kind, "drivenKm", result.DrivenKm)
		return outcome, nil
	}

	err = s.tx.WithinTx(ctx, func(repos repository.Repositories) error {
		ct, err := ensureMileageChargeType(ctx, repos, result.ChargeTypeCode, result.Amount, s.currency)
		if err != nil {
			return err
		}

		locked, err := repos.Bookings.GetForUpdate(ctx, bookingID)
		if err != nil {
			return lookupErr(err, "booking_not_found", "booking", bookingID)
		}
		charged, err := repos.Charges.ExistsForBooking(ctx, bookingID, domain.MileageChargeCodes, domain.ChargeOriginSystem)
		if err != nil {
			return err
		}
		if charged {
			return domain.NewStateConflictError("mileage_already_charged", "", "booking %d already has a mileage charge", bookingID)
		}

		charge := &domain.Charge{
			BookingID:      bookingID,
			ChargeTypeID:   ct.ID,
			ChargeTypeCode: ct.Code,
			Amount:         result.Amount,
			Currency:       locked.Currency,
			Label:          mileageLabel(result),
			Notes:          mileageNotes(result, in),
			Evidence:       []string{},
			Status:         domain.ChargeStatusPendingReview,
			Origin:         domain.ChargeOriginSystem,
		}
		remaining, err := settleFromDeposit(ctx, repos, locked, charge, s.now())
		if err != nil && domain.KindOf(err) != domain.KindInsufficientFunds {
			return err
		}
		if err := repos.Charges.Create(ctx, charge); err != nil {
			return fmt.Errorf("create mileage charge: %w", err)
		}

		outcome.Charge = charge
		outcome.RemainingDeposit = remaining
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifyParticipants(ctx, booking, outcome)
	return outcome, nil
}

func (s *mileageService) mileageInput(ctx context.Context, booking *domain.Booking) (*MileageInput, error) {
	ret, err := s.repos.Inspections.GetByBookingAndType(ctx, booking.ID, domain.InspectionTypeReturn)
	if err != nil {
		return nil, lookupErr(err, "return_inspection_not_found", "return inspection for booking", booking.ID)
	}
	if ret.CompletedAt == nil {
		return nil, domain.NewStateConflictError("inspection_not_completed", "", "return inspection for booking %d is not completed", booking.ID)
	}
	if ret.Mileage == nil {
		return nil, domain.NewValidationError("return_mileage_missing", "return inspection for booking %d has no mileage reading", booking.ID)
	}

	in := &MileageInput{ReturnMileage: *ret.Mileage}
	pickup, err := s.repos.Inspections.GetByBookingAndType(ctx, booking.ID, domain.InspectionTypePickup)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return nil, fmt.Errorf("load pickup inspection: %w", err)
	default:
		in.PickupMileage = pickup.Mileage
	}

	vp, err := s.repos.Vehicles.GetMileagePolicy(ctx, booking.VehicleID)
	if err != nil {
		return nil, lookupErr(err, "vehicle_not_found", "vehicle", booking.VehicleID)
	}
	in.Vehicle = *vp
	return in, nil
}

func (s *mileageService) notifyParticipants(ctx context.Context, booking *domain.Booking, outcome *MileageOutcome) {
	c := outcome.Charge
	attrs := map[string]string{
		"booking_id": strconv.Itoa(int(booking.ID)),
		"charge_id":  strconv.Itoa(int(c.ID)),
		"status":     string(c.Status),
	}
	var msg string
	if c.SettledFromDeposit {
		msg = fmt.Sprintf("%s of %s %s was deducted from the deposit of booking #%d.",
			c.Label, c.Amount.StringFixed(2), c.Currency, booking.ID)
	} else {
		msg = fmt.Sprintf("%s of %s %s on booking #%d is awaiting review.",
			c.Label, c.Amount.StringFixed(2), c.Currency, booking.ID)
	}
	s.publisher.Publish(ctx, settlementNotice(booking.RenterID, "Mileage charge", msg, attrs))
	s.publisher.Publish(ctx, settlementNotice(booking.OwnerID, "Mileage charge", msg, attrs))
}

var mileageChargeTypeNames = map[string]string{
	domain.ChargeCodeMileageOverage:   "Mileage overage",
	domain.ChargeCodeMileageTampering: "Odometer tampering penalty",
	domain.ChargeCodeMileageMissing:   "Missing pickup mileage penalty",
}

// ensureMileageChargeType returns the catalog entry for a mileage code, creating it on first use.
func ensureMileageChargeType(ctx context.Context, repos repository.Repositories, code string, amount decimal.Decimal, currency string) (*domain.ChargeType, error) {
	ct, err := repos.ChargeTypes.GetByCode(ctx, code)
	if err == nil {
		return ct, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load charge type %s: %w", code, err)
	}

	recipient := domain.ChargeRecipientPlatform
	defaultAmount := amount
	if code == domain.ChargeCodeMileageOverage {
		recipient = domain.ChargeRecipientOwner
		defaultAmount = decimal.Zero
	}
	ct = &domain.ChargeType{
		Code:          code,
		Name:          mileageChargeTypeNames[code],
		DefaultAmount: defaultAmount,
		Currency:      currency,
		Recipient:     recipient,
		IsActive:      true,
	}
	if err := repos.ChargeTypes.Create(ctx, ct); err != nil {
		return nil, fmt.Errorf("create charge type %s: %w", code, err)
	}
	logger.Info("Charge type created on first use", "code", code)
	return ct, nil
}

func mileageLabel(r MileageResult) string {
	switch r.Kind {
	case MileageResultOverage:
		return fmt.Sprintf("Mileage overage (%d km)", r.OverageKm)
	case MileageResultTampering:
		return "Odometer tampering penalty"
	case MileageResultMissing:
		return "Missing pickup mileage penalty"
	}
	return string(r.Kind)
}

func mileageNotes(r MileageResult, in *MileageInput) string {
	switch r.Kind {
	case MileageResultOverage:
		return fmt.Sprintf("driven %d km, included %d km, rate %s per km",
			r.DrivenKm, in.Vehicle.IncludedKilometers, in.Vehicle.PricePerExtraKm.StringFixed(2))
	case MileageResultTampering:
		return fmt.Sprintf("pickup reading %d km, return reading %d km", *in.PickupMileage, in.ReturnMileage)
	case MileageResultMissing:
		return fmt.Sprintf("no pickup reading, return reading %d km", in.ReturnMileage)
	}
	return ""
}
