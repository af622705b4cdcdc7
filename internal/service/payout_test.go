package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"driveshare-settlement/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newPayoutFixture() (*testRepos, *recordingPublisher, *payoutService) {
	repos := newTestRepos()
	pub := &recordingPublisher{}
	policies := staticPolicies{payout: domain.PayoutPolicy{InstantWithdrawalFeePercentage: dec("2.5")}}
	svc := NewPayoutService(repos.Repositories(), &fakeTx{repos: repos.Repositories()}, policies, pub, "IDR").(*payoutService)
	svc.now = fixedClock
	svc.newRef = func(prefix string) string { return prefix + "-TEST" }
	return repos, pub, svc
}

func expectBalance(repos *testRepos, ownerID int32, earnings, completedPayouts, inFlightPayouts, completedWithdrawals, inFlightWithdrawals string) {
	repos.bookings.On("SumCompletedOwnerEarnings", mock.Anything, ownerID).Return(dec(earnings), nil)
	repos.payouts.On("SumByStatus", mock.Anything, ownerID, []domain.PayoutStatus{domain.PayoutStatusCompleted}).Return(dec(completedPayouts), nil)
	repos.payouts.On("SumByStatus", mock.Anything, ownerID, inFlightPayoutStatuses).Return(dec(inFlightPayouts), nil)
	repos.withdrawals.On("SumByStatus", mock.Anything, ownerID, []domain.WithdrawalStatus{domain.WithdrawalStatusCompleted}).Return(dec(completedWithdrawals), nil)
	repos.withdrawals.On("SumByStatus", mock.Anything, ownerID, inFlightWithdrawalStatuses).Return(dec(inFlightWithdrawals), nil)
}

func verifiedSettings(ownerID int32, minimum string) *domain.OwnerPayoutSettings {
	return &domain.OwnerPayoutSettings{
		OwnerID:                  ownerID,
		Frequency:                domain.PayoutFrequencyWeekly,
		MinimumPayoutAmount:      dec(minimum),
		InstantWithdrawalEnabled: true,
		VerificationStatus:       domain.VerificationStatusVerified,
		PaymentMethod:            "bank_transfer",
		PaymentDetails:           map[string]string{"bank": "BCA", "account": "1234567890"},
		AccountCreatedAt:         time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestPayoutService_AvailableBalance(t *testing.T) {
	ctx := context.Background()

	t.Run("MixedStatuses", func(t *testing.T) {
		repos, _, svc := newPayoutFixture()
		expectBalance(repos, 20, "1000", "300", "100", "50", "25")

		b, err := svc.AvailableBalance(ctx, ownerActor, 20)

		require.NoError(t, err)
		assert.True(t, b.Available.Equal(dec("525")), "available %s", b.Available)
		assert.True(t, b.InFlightPayouts.Equal(dec("100")))
		assert.True(t, b.InFlightWithdrawals.Equal(dec("25")))
	})

	t.Run("OtherOwnerForbidden", func(t *testing.T) {
		_, _, svc := newPayoutFixture()

		_, err := svc.AvailableBalance(ctx, domain.Actor{UserID: 21, Role: domain.RoleOwner}, 20)

		assert.Equal(t, "not_account_owner", domain.ReasonOf(err))
	})
}

func TestPayoutService_RequestInstantWithdrawal(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		repos, pub, svc := newPayoutFixture()
		repos.owners.On("LockSettings", mock.Anything, int32(20)).Return(verifiedSettings(20, "0"), nil)
		expectBalance(repos, 20, "1000", "300", "100", "50", "25")
		repos.withdrawals.On("Create", mock.Anything, mock.AnythingOfType("*domain.InstantWithdrawal")).Return(nil)

		w, err := svc.RequestInstantWithdrawal(ctx, ownerActor, 20, dec("200"))

		require.NoError(t, err)
		assert.Equal(t, domain.WithdrawalStatusPending, w.Status)
		assert.True(t, w.FeeAmount.Equal(dec("5.00")))
		assert.True(t, w.NetAmount.Equal(dec("195.00")))
		assert.True(t, w.FeeAmount.Add(w.NetAmount).Equal(w.Amount))
		assert.Equal(t, "WD-TEST", w.Reference)
		assert.Equal(t, []int32{20}, pub.recipients())
	})

	t.Run("ExceedsBalance", func(t *testing.T) {
		repos, _, svc := newPayoutFixture()
		repos.owners.On("LockSettings", mock.Anything, int32(20)).Return(verifiedSettings(20, "0"), nil)
		expectBalance(repos, 20, "1000", "300", "100", "50", "25")

		_, err := svc.RequestInstantWithdrawal(ctx, ownerActor, 20, dec("600"))

		assert.Equal(t, domain.KindInsufficientFunds, domain.KindOf(err))
		assert.Equal(t, "insufficient_balance", domain.ReasonOf(err))
		var de *domain.Error
		require.ErrorAs(t, err, &de)
		assert.True(t, de.Quantity.Equal(dec("525")))
		repos.withdrawals.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("Disabled", func(t *testing.T) {
		repos, _, svc := newPayoutFixture()
		s := verifiedSettings(20, "0")
		s.InstantWithdrawalEnabled = false
		repos.owners.On("LockSettings", mock.Anything, int32(20)).Return(s, nil)

		_, err := svc.RequestInstantWithdrawal(ctx, ownerActor, 20, dec("10"))

		assert.Equal(t, domain.KindPermission, domain.KindOf(err))
		assert.Equal(t, "instant_withdrawal_disabled", domain.ReasonOf(err))
	})

	t.Run("NotVerified", func(t *testing.T) {
		repos, _, svc := newPayoutFixture()
		s := verifiedSettings(20, "0")
		s.VerificationStatus = domain.VerificationStatusPending
		repos.owners.On("LockSettings", mock.Anything, int32(20)).Return(s, nil)

		_, err := svc.RequestInstantWithdrawal(ctx, ownerActor, 20, dec("10"))

		assert.Equal(t, "payout_not_verified", domain.ReasonOf(err))
	})

	t.Run("NonPositiveAmount", func(t *testing.T) {
		_, _, svc := newPayoutFixture()

		_, err := svc.RequestInstantWithdrawal(ctx, ownerActor, 20, dec("0"))

		assert.Equal(t, domain.KindValidation, domain.KindOf(err))
	})

	t.Run("AdminCannotWithdrawForOwner", func(t *testing.T) {
		_, _, svc := newPayoutFixture()

		_, err := svc.RequestInstantWithdrawal(ctx, adminActor, 20, dec("10"))

		assert.Equal(t, "not_account_owner", domain.ReasonOf(err))
	})
}

func TestWithdrawalFeeIdentity(t *testing.T) {
	for _, tc := range []struct{ amount, pct string }{
		{"200", "2.5"},
		{"0.01", "2.5"},
		{"333.33", "1.75"},
		{"1000000", "0"},
		{"99.99", "100"},
	} {
		fee, net := domain.WithdrawalFee(dec(tc.amount), dec(tc.pct))
		assert.True(t, fee.Add(net).Equal(dec(tc.amount)), "amount %s pct %s", tc.amount, tc.pct)
		assert.True(t, fee.Equal(fee.Round(2)), "fee %s not at cent precision", fee)
	}
}

func TestPayoutService_UpdatePayoutSettings(t *testing.T) {
	ctx := context.Background()

	t.Run("OwnerUpdatesFrequency", func(t *testing.T) {
		repos, _, svc := newPayoutFixture()
		repos.owners.On("LockSettings", mock.Anything, int32(20)).Return(verifiedSettings(20, "0"), nil)
		repos.owners.On("UpsertSettings", mock.Anything, mock.AnythingOfType("*domain.OwnerPayoutSettings")).Return(nil)
		freq := "monthly"

		s, err := svc.UpdatePayoutSettings(ctx, ownerActor, 20, PayoutSettingsInput{Frequency: &freq})

		require.NoError(t, err)
		assert.Equal(t, domain.PayoutFrequencyMonthly, s.Frequency)
	})

	t.Run("CreatesDefaultsWhenMissing", func(t *testing.T) {
		repos, _, svc := newPayoutFixture()
		repos.owners.On("LockSettings", mock.Anything, int32(20)).Return(nil, sql.ErrNoRows)
		repos.owners.On("UpsertSettings", mock.Anything, mock.AnythingOfType("*domain.OwnerPayoutSettings")).Return(nil)
		method := "bank_transfer"

		s, err := svc.UpdatePayoutSettings(ctx, ownerActor, 20, PayoutSettingsInput{PaymentMethod: &method})

		require.NoError(t, err)
		assert.Equal(t, domain.PayoutFrequencyWeekly, s.Frequency)
		assert.Equal(t, domain.VerificationStatusUnverified, s.VerificationStatus)
		assert.Equal(t, fixedNow, s.AccountCreatedAt)
	})

	t.Run("OwnerCannotVerifyThemself", func(t *testing.T) {
		_, _, svc := newPayoutFixture()
		verified := "verified"

		_, err := svc.UpdatePayoutSettings(ctx, ownerActor, 20, PayoutSettingsInput{VerificationStatus: &verified})

		assert.Equal(t, "admin_required", domain.ReasonOf(err))
	})

	t.Run("RejectsUnknownFrequency", func(t *testing.T) {
		repos, _, svc := newPayoutFixture()
		repos.owners.On("LockSettings", mock.Anything, int32(20)).Return(verifiedSettings(20, "0"), nil)
		freq := "hourly"

		_, err := svc.UpdatePayoutSettings(ctx, ownerActor, 20, PayoutSettingsInput{Frequency: &freq})

		assert.Equal(t, domain.KindValidation, domain.KindOf(err))
		repos.owners.AssertNotCalled(t, "UpsertSettings", mock.Anything, mock.Anything)
	})

	t.Run("RejectsNegativeMinimum", func(t *testing.T) {
		repos, _, svc := newPayoutFixture()
		repos.owners.On("LockSettings", mock.Anything, int32(20)).Return(verifiedSettings(20, "0"), nil)
		minimum := dec("-1")

		_, err := svc.UpdatePayoutSettings(ctx, adminActor, 20, PayoutSettingsInput{MinimumPayoutAmount: &minimum})

		assert.Equal(t, "invalid_minimum", domain.ReasonOf(err))
	})
}

func TestPayoutService_ListPayoutsDue(t *testing.T) {
	ctx := context.Background()
	repos, _, svc := newPayoutFixture()

	lastPaid := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	weekly := verifiedSettings(20, "100")
	monthly := verifiedSettings(21, "100")
	monthly.Frequency = domain.PayoutFrequencyMonthly
	daily := verifiedSettings(22, "0")
	daily.Frequency = domain.PayoutFrequencyDaily

	repos.owners.On("ListVerified", mock.Anything).Return([]domain.OwnerPayoutSettings{*weekly, *monthly, *daily}, nil)
	repos.payouts.On("LastCompleted", mock.Anything, int32(20)).Return(&domain.Payout{CompletedAt: &lastPaid}, nil)
	repos.payouts.On("LastCompleted", mock.Anything, int32(21)).Return(&domain.Payout{CompletedAt: &lastPaid}, nil)
	repos.payouts.On("LastCompleted", mock.Anything, int32(22)).Return(nil, nil)
	expectBalance(repos, 20, "1000", "300", "100", "50", "25")
	expectBalance(repos, 22, "0", "0", "0", "0", "0")

	due, err := svc.ListPayoutsDue(ctx, adminActor, fixedNow)

	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, int32(20), due[0].OwnerID)
	assert.Equal(t, lastPaid.AddDate(0, 0, 7), due[0].NextPayoutDate)
	assert.True(t, due[0].AvailableBalance.Equal(dec("525")))
	repos.bookings.AssertNotCalled(t, "SumCompletedOwnerEarnings", mock.Anything, int32(21))
}

func TestPayoutService_ProcessPayouts(t *testing.T) {
	ctx := context.Background()
	repos, pub, svc := newPayoutFixture()

	lastPaid := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	repos.owners.On("LockSettings", mock.Anything, int32(20)).Return(verifiedSettings(20, "100"), nil)
	repos.owners.On("LockSettings", mock.Anything, int32(21)).Return(verifiedSettings(21, "100"), nil)
	repos.owners.On("LockSettings", mock.Anything, int32(22)).Return(nil, sql.ErrNoRows)
	expectBalance(repos, 20, "1000", "300", "100", "50", "25")
	expectBalance(repos, 21, "50", "0", "0", "0", "0")
	repos.payouts.On("LastCompleted", mock.Anything, int32(20)).Return(&domain.Payout{CompletedAt: &lastPaid}, nil)
	repos.payouts.On("Create", mock.Anything, mock.AnythingOfType("*domain.Payout")).Return(nil)

	result, err := svc.ProcessPayouts(ctx, adminActor, []int32{20, 21, 22})

	require.NoError(t, err)
	require.Len(t, result.Succeeded, 1)
	require.Len(t, result.Failed, 2)

	p := result.Succeeded[0].Payout
	assert.True(t, p.Amount.Equal(dec("525")))
	assert.Equal(t, domain.PayoutStatusPending, p.Status)
	assert.Equal(t, lastPaid, p.PeriodStart)
	assert.Equal(t, fixedNow, p.PeriodEnd)
	assert.Equal(t, "BCA", p.PaymentDetails["bank"])
	assert.Equal(t, "PO-TEST", p.Reference)

	assert.Equal(t, int32(21), result.Failed[0].OwnerID)
	assert.Equal(t, "below_minimum", result.Failed[0].Reason)
	assert.True(t, result.Failed[0].Balance.Equal(dec("50")))
	assert.Equal(t, int32(22), result.Failed[1].OwnerID)
	assert.Equal(t, "payout_settings_not_found", result.Failed[1].Reason)
	assert.Equal(t, []int32{20}, pub.recipients())
}

func TestPayoutService_FinishPayout(t *testing.T) {
	ctx := context.Background()

	t.Run("Complete", func(t *testing.T) {
		repos, _, svc := newPayoutFixture()
		repos.payouts.On("GetForUpdate", mock.Anything, int32(8)).Return(&domain.Payout{ID: 8, OwnerID: 20, Status: domain.PayoutStatusProcessing}, nil)
		repos.payouts.On("Update", mock.Anything, mock.AnythingOfType("*domain.Payout")).Return(nil)

		p, err := svc.CompletePayout(ctx, adminActor, 8)

		require.NoError(t, err)
		assert.Equal(t, domain.PayoutStatusCompleted, p.Status)
		assert.Equal(t, fixedNow, *p.CompletedAt)
	})

	t.Run("AlreadyFinished", func(t *testing.T) {
		repos, _, svc := newPayoutFixture()
		repos.payouts.On("GetForUpdate", mock.Anything, int32(8)).Return(&domain.Payout{ID: 8, OwnerID: 20, Status: domain.PayoutStatusCompleted}, nil)

		_, err := svc.FailPayout(ctx, adminActor, 8, "bank rejected")

		assert.Equal(t, domain.KindStateConflict, domain.KindOf(err))
	})

	t.Run("FailWithdrawal", func(t *testing.T) {
		repos, _, svc := newPayoutFixture()
		repos.withdrawals.On("GetForUpdate", mock.Anything, int32(4)).Return(&domain.InstantWithdrawal{ID: 4, OwnerID: 20, Status: domain.WithdrawalStatusPending}, nil)
		repos.withdrawals.On("Update", mock.Anything, mock.AnythingOfType("*domain.InstantWithdrawal")).Return(nil)

		w, err := svc.FailWithdrawal(ctx, adminActor, 4, "account closed")

		require.NoError(t, err)
		assert.Equal(t, domain.WithdrawalStatusFailed, w.Status)
		assert.Equal(t, "account closed", w.FailureReason)
	})
}
