package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"driveshare-settlement/internal/domain"
	"driveshare-settlement/internal/gateway"
	"driveshare-settlement/internal/logger"
	"driveshare-settlement/internal/notify"
	"driveshare-settlement/internal/repository"
)

type refundService struct {
	repos     repository.Repositories
	tx        repository.Transactor
	gateway   gateway.RefundGateway
	publisher notify.Publisher
	now       func() time.Time
}

// NewRefundService bounds every gateway call by timeout.
func NewRefundService(repos repository.Repositories, tx repository.Transactor, gw gateway.RefundGateway,
	timeout time.Duration, publisher notify.Publisher) RefundService {
	return &refundService{
		repos:     repos,
		tx:        tx,
		gateway:   gateway.WithTimeout(gw, timeout),
		publisher: publisher,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *refundService) CreateRefund(ctx context.Context, actor domain.Actor, bookingID int32, notes string) (*domain.DepositRefund, error) {
	logger.EnterMethod("refundService.CreateRefund", "bookingID", bookingID, "actorID", actor.UserID)

	if err := requireAdmin(actor); err != nil {
		logger.ExitMethodWithError("refundService.CreateRefund", err, "bookingID", bookingID)
		return nil, err
	}

	var refund *domain.DepositRefund
	err := s.tx.WithinTx(ctx, func(repos repository.Repositories) error {
		booking, err := repos.Bookings.GetForUpdate(ctx, bookingID)
		if err != nil {
			return lookupErr(err, "booking_not_found", "booking", bookingID)
		}
		if booking.Status != domain.BookingStatusCompleted {
			return domain.NewStateConflictError("booking_not_completed", string(booking.Status),
				"booking %d is %s", bookingID, booking.Status)
		}
		if !booking.DepositAmount.IsPositive() {
			return domain.NewValidationError("no_deposit_remaining", "booking %d has no deposit left to refund", bookingID)
		}
		exists, err := repos.Refunds.ExistsForBooking(ctx, bookingID)
		if err != nil {
			return fmt.Errorf("check existing refund: %w", err)
		}
		if exists {
			return domain.NewStateConflictError("refund_exists", "", "booking %d already has a deposit refund", bookingID)
		}

		refund = &domain.DepositRefund{
			BookingID: bookingID,
			RenterID:  booking.RenterID,
			Amount:    booking.DepositAmount.Round(2),
			Currency:  booking.Currency,
			Status:    domain.RefundStatusPending,
			DueDate:   refundDueDate(booking),
			Notes:     strings.TrimSpace(notes),
		}
		if err := repos.Refunds.Create(ctx, refund); err != nil {
			return fmt.Errorf("create refund: %w", err)
		}
		return appendRefundAudit(ctx, repos, refund, "", domain.RefundActionCreated, actor, refund.Notes)
	})
	if err != nil {
		logger.ExitMethodWithError("refundService.CreateRefund", err, "bookingID", bookingID)
		return nil, err
	}

	s.notifyRenter(ctx, refund, "Deposit refund scheduled",
		fmt.Sprintf("Your deposit of %s %s for booking #%d will be refunded by %s.",
			refund.Amount.StringFixed(2), refund.Currency, refund.BookingID, refund.DueDate.Format("2006-01-02")))

	logger.ExitMethod("refundService.CreateRefund", "refundID", refund.ID, "amount", refund.Amount.String())
	return refund, nil
}

// refundDueDate counts the grace period from the scheduled return, or from completion if unknown.
func refundDueDate(b *domain.Booking) time.Time {
	base := b.ReturnAt
	if base.IsZero() && b.CompletedAt != nil {
		base = *b.CompletedAt
	}
	return base.Add(domain.RefundGracePeriod)
}

func (s *refundService) ProcessRefund(ctx context.Context, actor domain.Actor, refundID int32) (*domain.DepositRefund, error) {
	logger.EnterMethod("refundService.ProcessRefund", "refundID", refundID, "actorID", actor.UserID)

	if err := requireAdmin(actor); err != nil {
		logger.ExitMethodWithError("refundService.ProcessRefund", err, "refundID", refundID)
		return nil, err
	}

	var refund *domain.DepositRefund
	err := s.tx.WithinTx(ctx, func(repos repository.Repositories) error {
		var err error
		refund, err = repos.Refunds.GetForUpdate(ctx, refundID)
		if err != nil {
			return lookupErr(err, "refund_not_found", "refund", refundID)
		}
		if !refund.Status.CanTransitionTo(domain.RefundStatusProcessing) {
			return domain.NewStateConflictError("illegal_transition", string(refund.Status),
				"refund %d cannot be processed while %s", refundID, refund.Status)
		}

		old := refund.Status
		processedAt := s.now()
		refund.Status = domain.RefundStatusProcessing
		refund.ProcessedBy = actor.AuditID()
		refund.ProcessedAt = &processedAt
		refund.ErrorMessage = ""
		if err := repos.Refunds.Update(ctx, refund); err != nil {
			return fmt.Errorf("update refund %d: %w", refundID, err)
		}
		return appendRefundAudit(ctx, repos, refund, old, domain.RefundActionProcessing, actor, "")
	})
	if err != nil {
		logger.ExitMethodWithError("refundService.ProcessRefund", err, "refundID", refundID)
		return nil, err
	}

	// Once claimed, the refund must reach completed or failed even if the caller goes away.
	ctx = context.WithoutCancel(ctx)

	payment, err := s.repos.Payments.FindCompletedByBooking(ctx, refund.BookingID)
	if err != nil {
		msg := fmt.Sprintf("payment lookup failed: %v", err)
		if _, ferr := s.finish(ctx, actor, refundID, nil, msg); ferr != nil {
			logger.Error("Failed to record refund failure", "refundID", refundID, "error", ferr)
		}
		logger.ExitMethodWithError("refundService.ProcessRefund", err, "refundID", refundID)
		return nil, fmt.Errorf("find payment for booking %d: %w", refund.BookingID, err)
	}
	if payment == nil {
		msg := fmt.Sprintf("no completed payment transaction found for booking %d", refund.BookingID)
		if _, ferr := s.finish(ctx, actor, refundID, nil, msg); ferr != nil {
			logger.ExitMethodWithError("refundService.ProcessRefund", ferr, "refundID", refundID)
			return nil, ferr
		}
		err := domain.NewExternalError("payment_not_found", nil, "%s", msg)
		logger.ExitMethodWithError("refundService.ProcessRefund", err, "refundID", refundID)
		return nil, err
	}

	logger.ExternalServiceCall("RefundGateway", "Refund", "refundID", refundID, "reference", payment.Reference, "amount", refund.Amount.String())
	res, gwErr := s.gateway.Refund(ctx, payment.Reference, refund.Amount)
	logger.ExternalServiceResult("RefundGateway", "Refund", gwErr, "refundID", refundID, "success", res.Success)

	var failure string
	switch {
	case gwErr != nil:
		failure = gwErr.Error()
	case !res.Success:
		failure = res.ErrorMessage
		if failure == "" {
			failure = "refund declined by gateway"
		}
	}

	var result *gatewayRefund
	if failure == "" {
		result = &gatewayRefund{externalID: res.RefundID}
	}
	refund, err = s.finish(ctx, actor, refundID, result, failure)
	if err != nil {
		logger.ExitMethodWithError("refundService.ProcessRefund", err, "refundID", refundID)
		return nil, err
	}

	logger.ExitMethod("refundService.ProcessRefund", "refundID", refundID, "status", refund.Status)
	return refund, nil
}

// gatewayRefund carries the gateway's id for a successful refund.
type gatewayRefund struct {
	externalID string
}

// finish records the outcome of a processing attempt: completed when ok is set, failed otherwise.
func (s *refundService) finish(ctx context.Context, actor domain.Actor, refundID int32, ok *gatewayRefund, failure string) (*domain.DepositRefund, error) {
	var refund *domain.DepositRefund
	err := s.tx.WithinTx(ctx, func(repos repository.Repositories) error {
		var err error
		refund, err = repos.Refunds.GetForUpdate(ctx, refundID)
		if err != nil {
			return lookupErr(err, "refund_not_found", "refund", refundID)
		}

		if refund.Status != domain.RefundStatusProcessing {
			logger.Warn("Refund left processing while the gateway was called",
				"refundID", refundID, "status", refund.Status, "gatewaySucceeded", ok != nil)
			if ok == nil {
				return nil
			}
			refund.ExternalRefundID = ok.externalID
			return repos.Refunds.Update(ctx, refund)
		}

		now := s.now()
		action := domain.RefundActionFailed
		if ok != nil {
			refund.Status = domain.RefundStatusCompleted
			refund.ExternalRefundID = ok.externalID
			refund.CompletedAt = &now
			refund.ErrorMessage = ""
			action = domain.RefundActionCompleted
		} else {
			refund.Status = domain.RefundStatusFailed
			refund.ErrorMessage = failure
		}
		if err := repos.Refunds.Update(ctx, refund); err != nil {
			return fmt.Errorf("update refund %d: %w", refundID, err)
		}
		return appendRefundAudit(ctx, repos, refund, domain.RefundStatusProcessing, action, actor, failure)
	})
	if err != nil {
		return nil, err
	}

	switch refund.Status {
	case domain.RefundStatusCompleted:
		s.notifyRenter(ctx, refund, "Deposit refunded",
			fmt.Sprintf("Your deposit of %s %s for booking #%d was refunded.",
				refund.Amount.StringFixed(2), refund.Currency, refund.BookingID))
	case domain.RefundStatusFailed:
		s.notifyRenter(ctx, refund, "Deposit refund delayed",
			fmt.Sprintf("The refund of your deposit for booking #%d could not be completed yet. Our team will retry.", refund.BookingID))
	}
	return refund, nil
}

func (s *refundService) CancelRefund(ctx context.Context, actor domain.Actor, refundID int32, notes string) (*domain.DepositRefund, error) {
	logger.EnterMethod("refundService.CancelRefund", "refundID", refundID, "actorID", actor.UserID)

	if err := requireAdmin(actor); err != nil {
		logger.ExitMethodWithError("refundService.CancelRefund", err, "refundID", refundID)
		return nil, err
	}
	notes = strings.TrimSpace(notes)

	var refund *domain.DepositRefund
	err := s.tx.WithinTx(ctx, func(repos repository.Repositories) error {
		var err error
		refund, err = repos.Refunds.GetForUpdate(ctx, refundID)
		if err != nil {
			return lookupErr(err, "refund_not_found", "refund", refundID)
		}
		switch refund.Status {
		case domain.RefundStatusCompleted:
			return domain.NewStateConflictError("refund_completed", string(refund.Status), "refund %d is already completed", refundID)
		case domain.RefundStatusCancelled:
			return domain.NewStateConflictError("refund_already_cancelled", string(refund.Status), "refund %d is already cancelled", refundID)
		}

		old := refund.Status
		cancelledAt := s.now()
		refund.Status = domain.RefundStatusCancelled
		refund.CancelledBy = actor.AuditID()
		refund.CancelledAt = &cancelledAt
		if notes != "" {
			refund.Notes = appendNote(refund.Notes, notes)
		}
		if err := repos.Refunds.Update(ctx, refund); err != nil {
			return fmt.Errorf("update refund %d: %w", refundID, err)
		}
		return appendRefundAudit(ctx, repos, refund, old, domain.RefundActionCancelled, actor, notes)
	})
	if err != nil {
		logger.ExitMethodWithError("refundService.CancelRefund", err, "refundID", refundID)
		return nil, err
	}

	s.notifyRenter(ctx, refund, "Deposit refund cancelled",
		fmt.Sprintf("The deposit refund for booking #%d was cancelled.", refund.BookingID))

	logger.ExitMethod("refundService.CancelRefund", "refundID", refundID)
	return refund, nil
}

func (s *refundService) ListPendingRefunds(ctx context.Context, actor domain.Actor) ([]domain.DepositRefund, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.repos.Refunds.ListByStatus(ctx, []domain.RefundStatus{domain.RefundStatusPending})
}

func (s *refundService) ListOverdueRefunds(ctx context.Context, actor domain.Actor, now time.Time) ([]domain.DepositRefund, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.repos.Refunds.ListOverdue(ctx, now)
}

func (s *refundService) GetAuditLog(ctx context.Context, actor domain.Actor, refundID int32) ([]domain.RefundAuditLog, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if _, err := s.repos.Refunds.GetByID(ctx, refundID); err != nil {
		return nil, lookupErr(err, "refund_not_found", "refund", refundID)
	}
	return s.repos.Refunds.ListAudit(ctx, refundID)
}

func (s *refundService) CreateRefundsForCompletedBookings(ctx context.Context, batchSize int32) (int, error) {
	logger.EnterMethod("refundService.CreateRefundsForCompletedBookings", "batchSize", batchSize)

	bookings, err := s.repos.Bookings.ListCompletedWithoutRefund(ctx, batchSize)
	if err != nil {
		logger.ExitMethodWithError("refundService.CreateRefundsForCompletedBookings", err)
		return 0, fmt.Errorf("list completed bookings: %w", err)
	}

	created := 0
	for _, b := range bookings {
		if _, err := s.CreateRefund(ctx, domain.SystemActor, b.ID, "opened by refund sweep"); err != nil {
			logger.Warn("Skipping refund for booking", "bookingID", b.ID, "reason", domain.ReasonOf(err), "error", err)
			continue
		}
		created++
	}

	logger.ExitMethod("refundService.CreateRefundsForCompletedBookings", "candidates", len(bookings), "created", created)
	return created, nil
}

func appendRefundAudit(ctx context.Context, repos repository.Repositories, refund *domain.DepositRefund,
	old domain.RefundStatus, action domain.RefundAction, actor domain.Actor, notes string) error {
	entry := &domain.RefundAuditLog{
		RefundID:  refund.ID,
		OldStatus: old,
		NewStatus: refund.Status,
		Action:    action,
		ActorID:   actor.AuditID(),
		Notes:     notes,
	}
	if err := repos.Refunds.AppendAudit(ctx, entry); err != nil {
		return fmt.Errorf("append refund audit: %w", err)
	}
	return nil
}

func (s *refundService) notifyRenter(ctx context.Context, r *domain.DepositRefund, title, msg string) {
	s.publisher.Publish(ctx, settlementNotice(r.RenterID, title, msg, map[string]string{
		"booking_id": strconv.Itoa(int(r.BookingID)),
		"refund_id":  strconv.Itoa(int(r.ID)),
		"status":     string(r.Status),
	}))
}
