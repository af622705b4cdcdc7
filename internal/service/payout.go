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
	"driveshare-settlement/internal/policy"
	"driveshare-settlement/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	inFlightPayoutStatuses     = []domain.PayoutStatus{domain.PayoutStatusPending, domain.PayoutStatusProcessing}
	inFlightWithdrawalStatuses = []domain.WithdrawalStatus{domain.WithdrawalStatusPending, domain.WithdrawalStatusProcessing}
)

type payoutService struct {
	repos     repository.Repositories
	tx        repository.Transactor
	policies  policy.Provider
	publisher notify.Publisher
	currency  string
	now       func() time.Time
	newRef    func(prefix string) string
}

func NewPayoutService(repos repository.Repositories, tx repository.Transactor, policies policy.Provider,
	publisher notify.Publisher, currency string) PayoutService {
	return &payoutService{
		repos:     repos,
		tx:        tx,
		policies:  policies,
		publisher: publisher,
		currency:  currency,
		now:       func() time.Time { return time.Now().UTC() },
		newRef: func(prefix string) string {
			return prefix + "-" + strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))
		},
	}
}

func requireOwnerOrAdmin(actor domain.Actor, ownerID int32) error {
	if actor.IsPrivileged() || actor.UserID == ownerID {
		return nil
	}
	return domain.NewPermissionError("not_account_owner", "user %d cannot act for owner %d", actor.UserID, ownerID)
}

// computeBalance recomputes the owner's available balance from rows; nothing is cached.
func computeBalance(ctx context.Context, repos repository.Repositories, ownerID int32) (*domain.BalanceBreakdown, error) {
	b := &domain.BalanceBreakdown{OwnerID: ownerID}
	var err error
	if b.Earnings, err = repos.Bookings.SumCompletedOwnerEarnings(ctx, ownerID); err != nil {
		return nil, fmt.Errorf("sum owner earnings: %w", err)
	}
	if b.CompletedPayouts, err = repos.Payouts.SumByStatus(ctx, ownerID, []domain.PayoutStatus{domain.PayoutStatusCompleted}); err != nil {
		return nil, fmt.Errorf("sum completed payouts: %w", err)
	}
	if b.InFlightPayouts, err = repos.Payouts.SumByStatus(ctx, ownerID, inFlightPayoutStatuses); err != nil {
		return nil, fmt.Errorf("sum in-flight payouts: %w", err)
	}
	if b.CompletedWithdrawals, err = repos.Withdrawals.SumByStatus(ctx, ownerID, []domain.WithdrawalStatus{domain.WithdrawalStatusCompleted}); err != nil {
		return nil, fmt.Errorf("sum completed withdrawals: %w", err)
	}
	if b.InFlightWithdrawals, err = repos.Withdrawals.SumByStatus(ctx, ownerID, inFlightWithdrawalStatuses); err != nil {
		return nil, fmt.Errorf("sum in-flight withdrawals: %w", err)
	}
	b.Compute()
	return b, nil
}

func (s *payoutService) AvailableBalance(ctx context.Context, actor domain.Actor, ownerID int32) (*domain.BalanceBreakdown, error) {
	logger.EnterMethod("payoutService.AvailableBalance", "ownerID", ownerID)

	if err := requireOwnerOrAdmin(actor, ownerID); err != nil {
		logger.ExitMethodWithError("payoutService.AvailableBalance", err, "ownerID", ownerID)
		return nil, err
	}
	b, err := computeBalance(ctx, s.repos, ownerID)
	if err != nil {
		logger.ExitMethodWithError("payoutService.AvailableBalance", err, "ownerID", ownerID)
		return nil, err
	}

	logger.ExitMethod("payoutService.AvailableBalance", "ownerID", ownerID, "available", b.Available.String())
	return b, nil
}

func (s *payoutService) GetPayoutSettings(ctx context.Context, actor domain.Actor, ownerID int32) (*domain.OwnerPayoutSettings, error) {
	if err := requireOwnerOrAdmin(actor, ownerID); err != nil {
		return nil, err
	}
	settings, err := s.repos.Owners.GetSettings(ctx, ownerID)
	if err != nil {
		return nil, lookupErr(err, "payout_settings_not_found", "payout settings of owner", ownerID)
	}
	return settings, nil
}

func (s *payoutService) UpdatePayoutSettings(ctx context.Context, actor domain.Actor, ownerID int32, in PayoutSettingsInput) (*domain.OwnerPayoutSettings, error) {
	logger.EnterMethod("payoutService.UpdatePayoutSettings", "ownerID", ownerID, "actorID", actor.UserID)

	if err := requireOwnerOrAdmin(actor, ownerID); err != nil {
		logger.ExitMethodWithError("payoutService.UpdatePayoutSettings", err, "ownerID", ownerID)
		return nil, err
	}
	if in.VerificationStatus != nil && !actor.IsPrivileged() {
		err := domain.NewPermissionError("admin_required", "only an administrator can change verification status")
		logger.ExitMethodWithError("payoutService.UpdatePayoutSettings", err, "ownerID", ownerID)
		return nil, err
	}

	var settings *domain.OwnerPayoutSettings
	err := s.tx.WithinTx(ctx, func(repos repository.Repositories) error {
		var err error
		settings, err = repos.Owners.LockSettings(ctx, ownerID)
		if errors.Is(err, sql.ErrNoRows) {
			settings = &domain.OwnerPayoutSettings{
				OwnerID:             ownerID,
				Frequency:           domain.PayoutFrequencyWeekly,
				MinimumPayoutAmount: decimal.Zero,
				VerificationStatus:  domain.VerificationStatusUnverified,
				PaymentDetails:      map[string]string{},
				AccountCreatedAt:    s.now(),
			}
		} else if err != nil {
			return fmt.Errorf("lock payout settings of owner %d: %w", ownerID, err)
		}

		if err := applyPayoutSettingsInput(settings, in); err != nil {
			return err
		}
		if err := repos.Owners.UpsertSettings(ctx, settings); err != nil {
			return fmt.Errorf("save payout settings of owner %d: %w", ownerID, err)
		}
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("payoutService.UpdatePayoutSettings", err, "ownerID", ownerID)
		return nil, err
	}

	logger.ExitMethod("payoutService.UpdatePayoutSettings", "ownerID", ownerID, "frequency", settings.Frequency)
	return settings, nil
}

func applyPayoutSettingsInput(settings *domain.OwnerPayoutSettings, in PayoutSettingsInput) error {
	if in.Frequency != nil {
		f, err := domain.ParsePayoutFrequency(*in.Frequency)
		if err != nil {
			return err
		}
		settings.Frequency = f
	}
	if in.MinimumPayoutAmount != nil {
		if in.MinimumPayoutAmount.IsNegative() {
			return domain.NewValidationError("invalid_minimum", "minimum payout amount must not be negative")
		}
		settings.MinimumPayoutAmount = in.MinimumPayoutAmount.Round(2)
	}
	if in.InstantWithdrawalEnabled != nil {
		settings.InstantWithdrawalEnabled = *in.InstantWithdrawalEnabled
	}
	if in.VerificationStatus != nil {
		v, err := domain.ParseVerificationStatus(*in.VerificationStatus)
		if err != nil {
			return err
		}
		settings.VerificationStatus = v
	}
	if in.PaymentMethod != nil {
		settings.PaymentMethod = strings.TrimSpace(*in.PaymentMethod)
	}
	if in.PaymentDetails != nil {
		settings.PaymentDetails = in.PaymentDetails
	}
	return nil
}

func (s *payoutService) RequestInstantWithdrawal(ctx context.Context, actor domain.Actor, ownerID int32, amount decimal.Decimal) (*domain.InstantWithdrawal, error) {
	logger.EnterMethod("payoutService.RequestInstantWithdrawal", "ownerID", ownerID, "amount", amount.String())

	if actor.UserID != ownerID || actor.Role != domain.RoleOwner {
		err := domain.NewPermissionError("not_account_owner", "only owner %d can withdraw from their balance", ownerID)
		logger.ExitMethodWithError("payoutService.RequestInstantWithdrawal", err, "ownerID", ownerID)
		return nil, err
	}
	amount = amount.Round(2)
	if !amount.IsPositive() {
		err := domain.NewValidationError("invalid_amount", "withdrawal amount must be positive")
		logger.ExitMethodWithError("payoutService.RequestInstantWithdrawal", err, "ownerID", ownerID)
		return nil, err
	}
	pp, err := s.policies.PayoutPolicy(ctx)
	if err != nil {
		logger.ExitMethodWithError("payoutService.RequestInstantWithdrawal", err, "ownerID", ownerID)
		return nil, err
	}

	var w *domain.InstantWithdrawal
	err = s.tx.WithinTx(ctx, func(repos repository.Repositories) error {
		settings, err := repos.Owners.LockSettings(ctx, ownerID)
		if err != nil {
			return lookupErr(err, "payout_settings_not_found", "payout settings of owner", ownerID)
		}
		if !settings.InstantWithdrawalEnabled {
			return domain.NewPermissionError("instant_withdrawal_disabled", "instant withdrawal is not enabled for owner %d", ownerID)
		}
		if settings.VerificationStatus != domain.VerificationStatusVerified {
			return domain.NewPermissionError("payout_not_verified", "payout account of owner %d is %s", ownerID, settings.VerificationStatus)
		}

		balance, err := computeBalance(ctx, repos, ownerID)
		if err != nil {
			return err
		}
		if amount.GreaterThan(balance.Available) {
			return domain.NewInsufficientFundsError("insufficient_balance", balance.Available,
				"withdrawal of %s exceeds available balance", amount.StringFixed(2))
		}

		fee, net := domain.WithdrawalFee(amount, pp.InstantWithdrawalFeePercentage)
		w = &domain.InstantWithdrawal{
			OwnerID:       ownerID,
			Amount:        amount,
			FeePercentage: pp.InstantWithdrawalFeePercentage,
			FeeAmount:     fee,
			NetAmount:     net,
			Currency:      s.currency,
			Status:        domain.WithdrawalStatusPending,
			Reference:     s.newRef("WD"),
		}
		if err := repos.Withdrawals.Create(ctx, w); err != nil {
			return fmt.Errorf("create withdrawal: %w", err)
		}
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("payoutService.RequestInstantWithdrawal", err, "ownerID", ownerID)
		return nil, err
	}

	s.notifyOwner(ctx, ownerID, "Instant withdrawal requested",
		fmt.Sprintf("Your withdrawal of %s %s is on its way. Fee %s, you receive %s.",
			w.Amount.StringFixed(2), w.Currency, w.FeeAmount.StringFixed(2), w.NetAmount.StringFixed(2)),
		map[string]string{"withdrawal_id": strconv.Itoa(int(w.ID)), "reference": w.Reference})

	logger.ExitMethod("payoutService.RequestInstantWithdrawal", "ownerID", ownerID, "withdrawalID", w.ID, "net", w.NetAmount.String())
	return w, nil
}

func (s *payoutService) CompleteWithdrawal(ctx context.Context, actor domain.Actor, withdrawalID int32) (*domain.InstantWithdrawal, error) {
	return s.finishWithdrawal(ctx, actor, withdrawalID, domain.WithdrawalStatusCompleted, "")
}

func (s *payoutService) FailWithdrawal(ctx context.Context, actor domain.Actor, withdrawalID int32, reason string) (*domain.InstantWithdrawal, error) {
	return s.finishWithdrawal(ctx, actor, withdrawalID, domain.WithdrawalStatusFailed, reason)
}

func (s *payoutService) finishWithdrawal(ctx context.Context, actor domain.Actor, id int32, next domain.WithdrawalStatus, reason string) (*domain.InstantWithdrawal, error) {
	logger.EnterMethod("payoutService.finishWithdrawal", "withdrawalID", id, "status", next)

	if err := requireAdmin(actor); err != nil {
		logger.ExitMethodWithError("payoutService.finishWithdrawal", err, "withdrawalID", id)
		return nil, err
	}

	var w *domain.InstantWithdrawal
	err := s.tx.WithinTx(ctx, func(repos repository.Repositories) error {
		var err error
		w, err = repos.Withdrawals.GetForUpdate(ctx, id)
		if err != nil {
			return lookupErr(err, "withdrawal_not_found", "withdrawal", id)
		}
		if !w.Status.IsInFlight() {
			return domain.NewStateConflictError("illegal_transition", string(w.Status), "withdrawal %d is already %s", id, w.Status)
		}
		w.Status = next
		if next == domain.WithdrawalStatusCompleted {
			now := s.now()
			w.CompletedAt = &now
		} else {
			w.FailureReason = strings.TrimSpace(reason)
		}
		if err := repos.Withdrawals.Update(ctx, w); err != nil {
			return fmt.Errorf("update withdrawal %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("payoutService.finishWithdrawal", err, "withdrawalID", id)
		return nil, err
	}

	s.notifyOwner(ctx, w.OwnerID, "Instant withdrawal "+string(w.Status),
		fmt.Sprintf("Your withdrawal %s of %s %s is %s.", w.Reference, w.NetAmount.StringFixed(2), w.Currency, w.Status),
		map[string]string{"withdrawal_id": strconv.Itoa(int(w.ID)), "status": string(w.Status)})

	logger.ExitMethod("payoutService.finishWithdrawal", "withdrawalID", id, "status", w.Status)
	return w, nil
}

// nextPayoutDate counts one frequency interval from the last completed payout, or from account creation.
func nextPayoutDate(settings *domain.OwnerPayoutSettings, last *domain.Payout) time.Time {
	base := settings.AccountCreatedAt
	if last != nil && last.CompletedAt != nil {
		base = *last.CompletedAt
	}
	return settings.Frequency.Next(base)
}

func (s *payoutService) ListPayoutsDue(ctx context.Context, actor domain.Actor, targetDate time.Time) ([]domain.DueOwner, error) {
	logger.EnterMethod("payoutService.ListPayoutsDue", "targetDate", targetDate)

	if err := requireAdmin(actor); err != nil {
		logger.ExitMethodWithError("payoutService.ListPayoutsDue", err)
		return nil, err
	}

	owners, err := s.repos.Owners.ListVerified(ctx)
	if err != nil {
		logger.ExitMethodWithError("payoutService.ListPayoutsDue", err)
		return nil, fmt.Errorf("list verified owners: %w", err)
	}

	due := []domain.DueOwner{}
	for i := range owners {
		settings := &owners[i]
		last, err := s.repos.Payouts.LastCompleted(ctx, settings.OwnerID)
		if err != nil {
			return nil, fmt.Errorf("last payout of owner %d: %w", settings.OwnerID, err)
		}
		next := nextPayoutDate(settings, last)
		if next.After(targetDate) {
			continue
		}

		balance, err := computeBalance(ctx, s.repos, settings.OwnerID)
		if err != nil {
			return nil, err
		}
		if !balance.Available.IsPositive() || balance.Available.LessThan(settings.MinimumPayoutAmount) {
			continue
		}
		due = append(due, domain.DueOwner{
			OwnerID:          settings.OwnerID,
			NextPayoutDate:   next,
			AvailableBalance: balance.Available,
			MinimumPayout:    settings.MinimumPayoutAmount,
			Frequency:        settings.Frequency,
		})
	}

	logger.ExitMethod("payoutService.ListPayoutsDue", "verified", len(owners), "due", len(due))
	return due, nil
}

func (s *payoutService) ProcessPayouts(ctx context.Context, actor domain.Actor, ownerIDs []int32) (*domain.BatchPayoutResult, error) {
	logger.EnterMethod("payoutService.ProcessPayouts", "owners", len(ownerIDs))

	if err := requireAdmin(actor); err != nil {
		logger.ExitMethodWithError("payoutService.ProcessPayouts", err)
		return nil, err
	}

	result := &domain.BatchPayoutResult{Succeeded: []domain.PayoutOutcome{}, Failed: []domain.PayoutOutcome{}}
	for _, ownerID := range ownerIDs {
		outcome, err := s.payoutOwner(ctx, ownerID)
		if err != nil {
			outcome.Reason = domain.ReasonOf(err)
			if outcome.Reason == "" {
				outcome.Reason = "internal_error"
			}
			outcome.Message = err.Error()
			logger.Warn("Payout not created", "ownerID", ownerID, "reason", outcome.Reason, "error", err)
			result.Failed = append(result.Failed, outcome)
			continue
		}
		result.Succeeded = append(result.Succeeded, outcome)

		p := outcome.Payout
		s.notifyOwner(ctx, ownerID, "Payout scheduled",
			fmt.Sprintf("A payout of %s %s for %s to %s is scheduled.",
				p.Amount.StringFixed(2), p.Currency, p.PeriodStart.Format("2006-01-02"), p.PeriodEnd.Format("2006-01-02")),
			map[string]string{"payout_id": strconv.Itoa(int(p.ID)), "reference": p.Reference})
	}

	logger.ExitMethod("payoutService.ProcessPayouts", "succeeded", len(result.Succeeded), "failed", len(result.Failed))
	return result, nil
}

// payoutOwner pays out one owner's full available balance under the owner's lock.
func (s *payoutService) payoutOwner(ctx context.Context, ownerID int32) (domain.PayoutOutcome, error) {
	outcome := domain.PayoutOutcome{OwnerID: ownerID, Balance: decimal.Zero}
	err := s.tx.WithinTx(ctx, func(repos repository.Repositories) error {
		settings, err := repos.Owners.LockSettings(ctx, ownerID)
		if err != nil {
			return lookupErr(err, "payout_settings_not_found", "payout settings of owner", ownerID)
		}
		if settings.VerificationStatus != domain.VerificationStatusVerified {
			return domain.NewPermissionError("payout_not_verified", "payout account of owner %d is %s", ownerID, settings.VerificationStatus)
		}

		balance, err := computeBalance(ctx, repos, ownerID)
		if err != nil {
			return err
		}
		outcome.Balance = balance.Available
		if !balance.Available.IsPositive() || balance.Available.LessThan(settings.MinimumPayoutAmount) {
			return domain.NewInsufficientFundsError("below_minimum", balance.Available,
				"balance is below the minimum payout of %s", settings.MinimumPayoutAmount.StringFixed(2))
		}

		last, err := repos.Payouts.LastCompleted(ctx, ownerID)
		if err != nil {
			return fmt.Errorf("last payout of owner %d: %w", ownerID, err)
		}
		periodStart := settings.AccountCreatedAt
		if last != nil && last.CompletedAt != nil {
			periodStart = *last.CompletedAt
		}

		details := make(map[string]string, len(settings.PaymentDetails))
		for k, v := range settings.PaymentDetails {
			details[k] = v
		}
		p := &domain.Payout{
			OwnerID:        ownerID,
			Amount:         balance.Available,
			Currency:       s.currency,
			Status:         domain.PayoutStatusPending,
			PeriodStart:    periodStart,
			PeriodEnd:      s.now(),
			PaymentMethod:  settings.PaymentMethod,
			PaymentDetails: details,
			Reference:      s.newRef("PO"),
		}
		if err := repos.Payouts.Create(ctx, p); err != nil {
			return fmt.Errorf("create payout: %w", err)
		}
		outcome.Payout = p
		return nil
	})
	return outcome, err
}

func (s *payoutService) CompletePayout(ctx context.Context, actor domain.Actor, payoutID int32) (*domain.Payout, error) {
	return s.finishPayout(ctx, actor, payoutID, domain.PayoutStatusCompleted, "")
}

func (s *payoutService) FailPayout(ctx context.Context, actor domain.Actor, payoutID int32, reason string) (*domain.Payout, error) {
	return s.finishPayout(ctx, actor, payoutID, domain.PayoutStatusFailed, reason)
}

func (s *payoutService) finishPayout(ctx context.Context, actor domain.Actor, id int32, next domain.PayoutStatus, reason string) (*domain.Payout, error) {
	logger.EnterMethod("payoutService.finishPayout", "payoutID", id, "status", next)

	if err := requireAdmin(actor); err != nil {
		logger.ExitMethodWithError("payoutService.finishPayout", err, "payoutID", id)
		return nil, err
	}

	var p *domain.Payout
	err := s.tx.WithinTx(ctx, func(repos repository.Repositories) error {
		var err error
		p, err = repos.Payouts.GetForUpdate(ctx, id)
		if err != nil {
			return lookupErr(err, "payout_not_found", "payout", id)
		}
		if !p.Status.IsInFlight() {
			return domain.NewStateConflictError("illegal_transition", string(p.Status), "payout %d is already %s", id, p.Status)
		}
		p.Status = next
		if next == domain.PayoutStatusCompleted {
			now := s.now()
			p.CompletedAt = &now
		} else {
			p.FailureReason = strings.TrimSpace(reason)
		}
		if err := repos.Payouts.Update(ctx, p); err != nil {
			return fmt.Errorf("update payout %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("payoutService.finishPayout", err, "payoutID", id)
		return nil, err
	}

	s.notifyOwner(ctx, p.OwnerID, "Payout "+string(p.Status),
		fmt.Sprintf("Your payout %s of %s %s is %s.", p.Reference, p.Amount.StringFixed(2), p.Currency, p.Status),
		map[string]string{"payout_id": strconv.Itoa(int(p.ID)), "status": string(p.Status)})

	logger.ExitMethod("payoutService.finishPayout", "payoutID", id, "status", p.Status)
	return p, nil
}

func (s *payoutService) notifyOwner(ctx context.Context, ownerID int32, title, msg string, attrs map[string]string) {
	attrs["owner_id"] = strconv.Itoa(int(ownerID))
	s.publisher.Publish(ctx, settlementNotice(ownerID, title, msg, attrs))
}
