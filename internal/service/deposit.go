package service

import (
	"context"
	"fmt"
	"time"

	"driveshare-settlement/internal/domain"
	"driveshare-settlement/internal/logger"
	"driveshare-settlement/internal/repository"

	"github.com/shopspring/decimal"
)

// settleFromDeposit deducts the charge from the booking deposit when the deposit covers it.
// booking must have been loaded with GetForUpdate in the same transaction. On success the
// charge becomes approved and settled; otherwise the charge and the deposit are untouched and
// an insufficient-funds error carrying the deposit is returned.
func settleFromDeposit(ctx context.Context, repos repository.Repositories, booking *domain.Booking,
	charge *domain.Charge, now time.Time) (decimal.Decimal, error) {
	if booking.DepositAmount.LessThan(charge.Amount) {
		return booking.DepositAmount, domain.NewInsufficientFundsError("deposit_insufficient", booking.DepositAmount,
			"deposit of booking %d does not cover %s", booking.ID, charge.Amount.StringFixed(2))
	}

	remaining := booking.DepositAmount.Sub(charge.Amount).Round(2)
	if err := repos.Bookings.UpdateDeposit(ctx, booking.ID, remaining); err != nil {
		return booking.DepositAmount, fmt.Errorf("update deposit of booking %d: %w", booking.ID, err)
	}
	booking.DepositAmount = remaining

	settled := now
	charge.Status = domain.ChargeStatusApproved
	charge.SettledFromDeposit = true
	charge.SettledAt = &settled
	charge.PaymentTransactionID = nil

	logger.Info("Charge settled from deposit", "bookingID", booking.ID, "amount", charge.Amount.String(),
		"remainingDeposit", remaining.String())
	return remaining, nil
}

// restoreDeposit gives a deposit-settled charge's amount back to the booking.
func restoreDeposit(ctx context.Context, repos repository.Repositories, charge *domain.Charge) error {
	booking, err := repos.Bookings.GetForUpdate(ctx, charge.BookingID)
	if err != nil {
		return lookupErr(err, "booking_not_found", "booking", charge.BookingID)
	}
	restored := booking.DepositAmount.Add(charge.Amount).Round(2)
	if err := repos.Bookings.UpdateDeposit(ctx, booking.ID, restored); err != nil {
		return fmt.Errorf("update deposit of booking %d: %w", booking.ID, err)
	}
	charge.SettledFromDeposit = false
	logger.Info("Deposit restored", "bookingID", booking.ID, "chargeID", charge.ID, "deposit", restored.String())
	return nil
}
