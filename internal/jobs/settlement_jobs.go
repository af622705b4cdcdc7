package jobs

import (
	"context"

	"driveshare-settlement/internal/domain"
	"driveshare-settlement/internal/logger"
)

// ProcessDuePayouts creates pending payouts for every owner whose scheduled payout date has arrived
func (jr *JobRunner) ProcessDuePayouts() {
	jr.runWithRecovery("ProcessDuePayouts", func() {
		ctx := context.Background()

		due, err := jr.services.Payout.ListPayoutsDue(ctx, domain.SystemActor, jr.now().UTC())
		if err != nil {
			logger.Error("Failed to list owners due for payout", "error", err)
			return
		}
		if len(due) == 0 {
			logger.Info("No owners due for payout")
			return
		}

		ownerIDs := make([]int32, 0, len(due))
		for _, d := range due {
			ownerIDs = append(ownerIDs, d.OwnerID)
		}

		result, err := jr.services.Payout.ProcessPayouts(ctx, domain.SystemActor, ownerIDs)
		if err != nil {
			logger.Error("Failed to process payouts", "owners", len(ownerIDs), "error", err)
			return
		}

		for _, f := range result.Failed {
			logger.Warn("Payout skipped for owner",
				"owner_id", f.OwnerID,
				"reason", f.Reason,
				"message", f.Message)
		}

		logger.Info("Processed scheduled payouts",
			"due", len(ownerIDs),
			"created", len(result.Succeeded),
			"failed", len(result.Failed))
	})
}

// CreatePendingRefunds opens deposit refunds for completed bookings that still hold a deposit
func (jr *JobRunner) CreatePendingRefunds() {
	jr.runWithRecovery("CreatePendingRefunds", func() {
		ctx := context.Background()

		created, err := jr.services.Refund.CreateRefundsForCompletedBookings(ctx, jr.config.Settlement.RefundSweepBatchSize)
		if err != nil {
			logger.Error("Failed to create pending refunds", "error", err)
			return
		}

		logger.Info("Created pending deposit refunds", "count", created)
	})
}

// ReportOverdueRefunds logs every pending refund that passed its due date
func (jr *JobRunner) ReportOverdueRefunds() {
	jr.runWithRecovery("ReportOverdueRefunds", func() {
		ctx := context.Background()

		overdue, err := jr.services.Refund.ListOverdueRefunds(ctx, domain.SystemActor, jr.now())
		if err != nil {
			logger.Error("Failed to list overdue refunds", "error", err)
			return
		}

		for _, r := range overdue {
			logger.Warn("Deposit refund is overdue",
				"refund_id", r.ID,
				"booking_id", r.BookingID,
				"amount", r.Amount.StringFixed(2),
				"due_date", r.DueDate)
		}

		logger.Info("Overdue refund report complete", "overdue", len(overdue))
	})
}
