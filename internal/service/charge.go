package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"driveshare-settlement/internal/domain"
	"driveshare-settlement/internal/logger"
	"driveshare-settlement/internal/notify"
	"driveshare-settlement/internal/repository"
)

type chargeService struct {
	repos     repository.Repositories
	tx        repository.Transactor
	publisher notify.Publisher
	currency  string
	now       func() time.Time
}

func NewChargeService(repos repository.Repositories, tx repository.Transactor, publisher notify.Publisher, currency string) ChargeService {
	return &chargeService{
		repos:     repos,
		tx:        tx,
		publisher: publisher,
		currency:  currency,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *chargeService) ProposeCharge(ctx context.Context, actor domain.Actor, in ProposeChargeInput) (*domain.Charge, error) {
	logger.EnterMethod("chargeService.ProposeCharge", "bookingID", in.BookingID, "code", in.ChargeTypeCode, "actorID", actor.UserID)

	evidence := make([]string, 0, len(in.Evidence))
	for _, e := range in.Evidence {
		if e = strings.TrimSpace(e); e != "" {
			evidence = append(evidence, e)
		}
	}
	if len(evidence) == 0 {
		err := domain.NewValidationError("evidence_required", "a charge needs at least one evidence reference")
		logger.ExitMethodWithError("chargeService.ProposeCharge", err)
		return nil, err
	}

	var charge *domain.Charge
	var booking *domain.Booking
	err := s.tx.WithinTx(ctx, func(repos repository.Repositories) error {
		var err error
		booking, err = repos.Bookings.GetByID(ctx, in.BookingID)
		if err != nil {
			return lookupErr(err, "booking_not_found", "booking", in.BookingID)
		}

		origin := domain.ChargeOriginAdmin
		status := domain.ChargeStatusApproved
		if !actor.IsAdmin() {
			if actor.Role != domain.RoleOwner || booking.OwnerID != actor.UserID {
				return domain.NewPermissionError("not_booking_owner", "only the owner of booking %d may propose charges", booking.ID)
			}
			origin = domain.ChargeOriginOwner
			status = domain.ChargeStatusPendingReview
		}

		ct, err := repos.ChargeTypes.GetByCode(ctx, in.ChargeTypeCode)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("load charge type %s: %w", in.ChargeTypeCode, err)
		}
		if ct == nil || !ct.IsActive {
			return domain.NewValidationError("invalid_charge_type", "charge type %q does not exist or is inactive", in.ChargeTypeCode)
		}

		label := strings.TrimSpace(in.Label)
		if label == "" {
			label = ct.Name
		}
		charge = &domain.Charge{
			BookingID:      booking.ID,
			ChargeTypeID:   ct.ID,
			ChargeTypeCode: ct.Code,
			Amount:         ct.DefaultAmount.Round(2),
			Currency:       booking.Currency,
			Label:          label,
			Notes:          in.Notes,
			Evidence:       evidence,
			Status:         status,
			Origin:         origin,
			CreatedBy:      actor.AuditID(),
		}
		if err := repos.Charges.Create(ctx, charge); err != nil {
			return fmt.Errorf("create charge: %w", err)
		}
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("chargeService.ProposeCharge", err, "bookingID", in.BookingID)
		return nil, err
	}

	s.notifyRenter(ctx, booking.RenterID, charge,
		fmt.Sprintf("A charge \"%s\" of %s %s was added to booking #%d.", charge.Label, charge.Amount.StringFixed(2), charge.Currency, booking.ID))

	logger.ExitMethod("chargeService.ProposeCharge", "chargeID", charge.ID, "status", charge.Status)
	return charge, nil
}

func (s *chargeService) TransitionCharge(ctx context.Context, actor domain.Actor, chargeID int32, in TransitionChargeInput) (*domain.Charge, error) {
	logger.EnterMethod("chargeService.TransitionCharge", "chargeID", chargeID, "status", in.Status, "actorID", actor.UserID)

	if err := requireAdmin(actor); err != nil {
		logger.ExitMethodWithError("chargeService.TransitionCharge", err, "chargeID", chargeID)
		return nil, err
	}
	next, err := domain.ParseChargeStatus(in.Status)
	if err != nil {
		logger.ExitMethodWithError("chargeService.TransitionCharge", err, "chargeID", chargeID)
		return nil, err
	}

	var charge *domain.Charge
	err = s.tx.WithinTx(ctx, func(repos repository.Repositories) error {
		var err error
		charge, err = repos.Charges.GetForUpdate(ctx, chargeID)
		if err != nil {
			return lookupErr(err, "charge_not_found", "charge", chargeID)
		}
		if !charge.Status.CanTransitionTo(next) {
			return domain.NewStateConflictError("illegal_transition", string(charge.Status),
				"charge %d cannot move from %s to %s", chargeID, charge.Status, next)
		}

		switch next {
		case domain.ChargeStatusPaid:
			if charge.SettledFromDeposit {
				return domain.NewStateConflictError("deposit_already_deducted", string(charge.Status),
					"charge %d was already settled from the deposit", chargeID)
			}
			if err := s.checkPayment(ctx, repos, charge, in.PaymentTransactionID); err != nil {
				return err
			}
			settled := s.now()
			charge.SettledAt = &settled
			charge.PaymentTransactionID = in.PaymentTransactionID
		case domain.ChargeStatusRejected, domain.ChargeStatusWaived:
			settled := s.now()
			charge.SettledAt = &settled
			charge.PaymentTransactionID = nil
		case domain.ChargeStatusPendingReview:
			if charge.SettledFromDeposit {
				if err := restoreDeposit(ctx, repos, charge); err != nil {
					return err
				}
			}
			charge.SettledAt = nil
			charge.PaymentTransactionID = nil
		case domain.ChargeStatusApproved:
			charge.PaymentTransactionID = nil
		}

		charge.Status = next
		if notes := strings.TrimSpace(in.Notes); notes != "" {
			charge.Notes = appendNote(charge.Notes, notes)
		}
		if err := repos.Charges.Update(ctx, charge); err != nil {
			return fmt.Errorf("update charge %d: %w", chargeID, err)
		}
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("chargeService.TransitionCharge", err, "chargeID", chargeID)
		return nil, err
	}

	if booking, err := s.repos.Bookings.GetByID(ctx, charge.BookingID); err == nil {
		s.notifyRenter(ctx, booking.RenterID, charge,
			fmt.Sprintf("Charge \"%s\" on booking #%d is now %s.", charge.Label, charge.BookingID, charge.Status))
	}

	logger.ExitMethod("chargeService.TransitionCharge", "chargeID", chargeID, "status", charge.Status)
	return charge, nil
}

func (s *chargeService) checkPayment(ctx context.Context, repos repository.Repositories, charge *domain.Charge, paymentID *int32) error {
	if paymentID == nil {
		return domain.NewValidationError("payment_reference_required", "marking a charge paid needs a payment transaction")
	}
	payment, err := repos.Payments.GetByID(ctx, *paymentID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NewValidationError("payment_reference_required", "payment transaction %d does not exist", *paymentID)
	}
	if err != nil {
		return fmt.Errorf("load payment transaction %d: %w", *paymentID, err)
	}
	if payment.BookingID != charge.BookingID {
		return domain.NewValidationError("payment_reference_required",
			"payment transaction %d does not belong to booking %d", *paymentID, charge.BookingID)
	}
	if payment.Status != domain.PaymentStatusCompleted {
		return domain.NewValidationError("payment_not_completed", "payment transaction %d is %s", *paymentID, payment.Status)
	}
	return nil
}

func (s *chargeService) ApplyDepositDeduction(ctx context.Context, actor domain.Actor, chargeID int32) (*DeductionResult, error) {
	logger.EnterMethod("chargeService.ApplyDepositDeduction", "chargeID", chargeID, "actorID", actor.UserID)

	if err := requireAdmin(actor); err != nil {
		logger.ExitMethodWithError("chargeService.ApplyDepositDeduction", err, "chargeID", chargeID)
		return nil, err
	}

	var result DeductionResult
	var renterID int32
	err := s.tx.WithinTx(ctx, func(repos repository.Repositories) error {
		charge, err := repos.Charges.GetForUpdate(ctx, chargeID)
		if err != nil {
			return lookupErr(err, "charge_not_found", "charge", chargeID)
		}
		if charge.SettledFromDeposit {
			return domain.NewStateConflictError("deposit_already_deducted", string(charge.Status),
				"charge %d was already settled from the deposit", chargeID)
		}
		if charge.Status != domain.ChargeStatusPendingReview && charge.Status != domain.ChargeStatusApproved {
			return domain.NewStateConflictError("illegal_transition", string(charge.Status),
				"charge %d is %s and cannot be deducted", chargeID, charge.Status)
		}

		booking, err := repos.Bookings.GetForUpdate(ctx, charge.BookingID)
		if err != nil {
			return lookupErr(err, "booking_not_found", "booking", charge.BookingID)
		}
		remaining, err := settleFromDeposit(ctx, repos, booking, charge, s.now())
		if err != nil {
			return err
		}
		if err := repos.Charges.Update(ctx, charge); err != nil {
			return fmt.Errorf("update charge %d: %w", chargeID, err)
		}

		result = DeductionResult{Charge: charge, RemainingDeposit: remaining}
		renterID = booking.RenterID
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("chargeService.ApplyDepositDeduction", err, "chargeID", chargeID)
		return nil, err
	}

	c := result.Charge
	s.notifyRenter(ctx, renterID, c,
		fmt.Sprintf("%s %s for \"%s\" was deducted from the deposit of booking #%d.",
			c.Amount.StringFixed(2), c.Currency, c.Label, c.BookingID))

	logger.ExitMethod("chargeService.ApplyDepositDeduction", "chargeID", chargeID, "remainingDeposit", result.RemainingDeposit.String())
	return &result, nil
}

func (s *chargeService) ListCharges(ctx context.Context, actor domain.Actor, bookingID int32) ([]domain.Charge, error) {
	booking, err := s.repos.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, lookupErr(err, "booking_not_found", "booking", bookingID)
	}
	if !actor.IsPrivileged() && !booking.IsParticipant(actor.UserID) {
		return nil, domain.NewPermissionError("not_booking_participant", "user %d is not part of booking %d", actor.UserID, bookingID)
	}
	return s.repos.Charges.ListByBooking(ctx, bookingID)
}

func (s *chargeService) ListChargeTypes(ctx context.Context, actor domain.Actor, includeInactive bool) ([]domain.ChargeType, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.repos.ChargeTypes.List(ctx, includeInactive)
}

func (s *chargeService) CreateChargeType(ctx context.Context, actor domain.Actor, in ChargeTypeInput) (*domain.ChargeType, error) {
	logger.EnterMethod("chargeService.CreateChargeType", "code", in.Code)

	if err := requireAdmin(actor); err != nil {
		logger.ExitMethodWithError("chargeService.CreateChargeType", err, "code", in.Code)
		return nil, err
	}
	code := strings.TrimSpace(in.Code)
	if code == "" {
		return nil, domain.NewValidationError("invalid_charge_type", "charge type code is required")
	}
	ct := &domain.ChargeType{Code: code, Currency: s.currency, IsActive: true}
	if err := applyChargeTypeInput(ct, in); err != nil {
		logger.ExitMethodWithError("chargeService.CreateChargeType", err, "code", code)
		return nil, err
	}

	existing, err := s.repos.ChargeTypes.GetByCode(ctx, code)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load charge type %s: %w", code, err)
	}
	if existing != nil {
		err := domain.NewStateConflictError("charge_type_exists", "", "charge type %q already exists", code)
		logger.ExitMethodWithError("chargeService.CreateChargeType", err, "code", code)
		return nil, err
	}

	if err := s.repos.ChargeTypes.Create(ctx, ct); err != nil {
		logger.ExitMethodWithError("chargeService.CreateChargeType", err, "code", code)
		return nil, fmt.Errorf("create charge type %s: %w", code, err)
	}
	logger.ExitMethod("chargeService.CreateChargeType", "code", code, "id", ct.ID)
	return ct, nil
}

func (s *chargeService) UpdateChargeType(ctx context.Context, actor domain.Actor, code string, in ChargeTypeInput) (*domain.ChargeType, error) {
	logger.EnterMethod("chargeService.UpdateChargeType", "code", code)

	if err := requireAdmin(actor); err != nil {
		logger.ExitMethodWithError("chargeService.UpdateChargeType", err, "code", code)
		return nil, err
	}
	ct, err := s.repos.ChargeTypes.GetByCode(ctx, code)
	if err != nil {
		return nil, lookupErr(err, "charge_type_not_found", "charge type", code)
	}
	if err := applyChargeTypeInput(ct, in); err != nil {
		logger.ExitMethodWithError("chargeService.UpdateChargeType", err, "code", code)
		return nil, err
	}
	if err := s.repos.ChargeTypes.Update(ctx, ct); err != nil {
		logger.ExitMethodWithError("chargeService.UpdateChargeType", err, "code", code)
		return nil, fmt.Errorf("update charge type %s: %w", code, err)
	}
	logger.ExitMethod("chargeService.UpdateChargeType", "code", code)
	return ct, nil
}

func (s *chargeService) DeactivateChargeType(ctx context.Context, actor domain.Actor, code string) (*domain.ChargeType, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	ct, err := s.repos.ChargeTypes.GetByCode(ctx, code)
	if err != nil {
		return nil, lookupErr(err, "charge_type_not_found", "charge type", code)
	}
	if !ct.IsActive {
		return ct, nil
	}
	ct.IsActive = false
	if err := s.repos.ChargeTypes.Update(ctx, ct); err != nil {
		return nil, fmt.Errorf("deactivate charge type %s: %w", code, err)
	}
	logger.Info("Charge type deactivated", "code", code, "actorID", actor.UserID)
	return ct, nil
}

func applyChargeTypeInput(ct *domain.ChargeType, in ChargeTypeInput) error {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.NewValidationError("invalid_charge_type", "charge type name is required")
	}
	if in.DefaultAmount.IsNegative() {
		return domain.NewValidationError("invalid_amount", "default amount must not be negative")
	}
	recipient, err := domain.ParseChargeRecipient(in.Recipient)
	if err != nil {
		return err
	}
	ct.Name = name
	ct.DefaultAmount = in.DefaultAmount.Round(2)
	ct.Recipient = recipient
	return nil
}

func (s *chargeService) notifyRenter(ctx context.Context, renterID int32, c *domain.Charge, msg string) {
	s.publisher.Publish(ctx, settlementNotice(renterID, "Booking charge", msg, map[string]string{
		"booking_id": strconv.Itoa(int(c.BookingID)),
		"charge_id":  strconv.Itoa(int(c.ID)),
		"status":     string(c.Status),
	}))
}

func appendNote(existing, note string) string {
	if existing == "" {
		return note
	}
	return existing + "\n" + note
}
