package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type PayoutFrequency string

const (
	PayoutFrequencyDaily    PayoutFrequency = "daily"
	PayoutFrequencyWeekly   PayoutFrequency = "weekly"
	PayoutFrequencyBiweekly PayoutFrequency = "biweekly"
	PayoutFrequencyMonthly  PayoutFrequency = "monthly"
)

func ParsePayoutFrequency(s string) (PayoutFrequency, error) {
	switch f := PayoutFrequency(s); f {
	case PayoutFrequencyDaily, PayoutFrequencyWeekly, PayoutFrequencyBiweekly, PayoutFrequencyMonthly:
		return f, nil
	}
	return "", NewValidationError("invalid_frequency", "unknown payout frequency %q", s)
}

// Next returns the payout date following from.
func (f PayoutFrequency) Next(from time.Time) time.Time {
	switch f {
	case PayoutFrequencyDaily:
		return from.AddDate(0, 0, 1)
	case PayoutFrequencyWeekly:
		return from.AddDate(0, 0, 7)
	case PayoutFrequencyBiweekly:
		return from.AddDate(0, 0, 14)
	case PayoutFrequencyMonthly:
		return from.AddDate(0, 1, 0)
	}
	return from.AddDate(0, 0, 7)
}

type VerificationStatus string

const (
	VerificationStatusUnverified VerificationStatus = "unverified"
	VerificationStatusPending    VerificationStatus = "pending"
	VerificationStatusVerified   VerificationStatus = "verified"
	VerificationStatusRejected   VerificationStatus = "rejected"
)

func ParseVerificationStatus(s string) (VerificationStatus, error) {
	switch v := VerificationStatus(s); v {
	case VerificationStatusUnverified, VerificationStatusPending, VerificationStatusVerified, VerificationStatusRejected:
		return v, nil
	}
	return "", NewValidationError("invalid_verification_status", "unknown verification status %q", s)
}

type OwnerPayoutSettings struct {
	OwnerID                  int32              `json:"owner_id"`
	Frequency                PayoutFrequency    `json:"frequency"`
	MinimumPayoutAmount      decimal.Decimal    `json:"minimum_payout_amount"`
	InstantWithdrawalEnabled bool               `json:"instant_withdrawal_enabled"`
	VerificationStatus       VerificationStatus `json:"verification_status"`
	PaymentMethod            string             `json:"payment_method"`
	PaymentDetails           map[string]string  `json:"payment_details"`
	AccountCreatedAt         time.Time          `json:"account_created_at"`
	UpdatedAt                time.Time          `json:"updated_at"`
}

type PayoutStatus string

const (
	PayoutStatusPending    PayoutStatus = "pending"
	PayoutStatusProcessing PayoutStatus = "processing"
	PayoutStatusCompleted  PayoutStatus = "completed"
	PayoutStatusFailed     PayoutStatus = "failed"
	PayoutStatusCancelled  PayoutStatus = "cancelled"
)

// IsInFlight reports payouts that already reserve part of the balance but are not done.
func (s PayoutStatus) IsInFlight() bool {
	switch s {
	case PayoutStatusPending, PayoutStatusProcessing:
		return true
	case PayoutStatusCompleted, PayoutStatusFailed, PayoutStatusCancelled:
		return false
	}
	return false
}

type Payout struct {
	ID             int32             `json:"id"`
	OwnerID        int32             `json:"owner_id"`
	Amount         decimal.Decimal   `json:"amount"`
	Currency       string            `json:"currency"`
	Status         PayoutStatus      `json:"status"`
	PeriodStart    time.Time         `json:"period_start"`
	PeriodEnd      time.Time         `json:"period_end"`
	PaymentMethod  string            `json:"payment_method"`
	PaymentDetails map[string]string `json:"payment_details"`
	Reference      string            `json:"reference"`
	FailureReason  string            `json:"failure_reason,omitempty"`
	CompletedAt    *time.Time        `json:"completed_at,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}

type WithdrawalStatus string

const (
	WithdrawalStatusPending    WithdrawalStatus = "pending"
	WithdrawalStatusProcessing WithdrawalStatus = "processing"
	WithdrawalStatusCompleted  WithdrawalStatus = "completed"
	WithdrawalStatusFailed     WithdrawalStatus = "failed"
)

func (s WithdrawalStatus) IsInFlight() bool {
	switch s {
	case WithdrawalStatusPending, WithdrawalStatusProcessing:
		return true
	case WithdrawalStatusCompleted, WithdrawalStatusFailed:
		return false
	}
	return false
}

type InstantWithdrawal struct {
	ID            int32            `json:"id"`
	OwnerID       int32            `json:"owner_id"`
	Amount        decimal.Decimal  `json:"amount"`
	FeePercentage decimal.Decimal  `json:"fee_percentage"`
	FeeAmount     decimal.Decimal  `json:"fee_amount"`
	NetAmount     decimal.Decimal  `json:"net_amount"`
	Currency      string           `json:"currency"`
	Status        WithdrawalStatus `json:"status"`
	Reference     string           `json:"reference"`
	FailureReason string           `json:"failure_reason,omitempty"`
	CompletedAt   *time.Time       `json:"completed_at,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
}

// WithdrawalFee splits a requested amount into fee and net at the given percentage.
// The fee is rounded to currency precision; fee + net always equals amount.
func WithdrawalFee(amount, feePercentage decimal.Decimal) (fee, net decimal.Decimal) {
	fee = amount.Mul(feePercentage).Div(decimal.NewFromInt(100)).Round(2)
	net = amount.Sub(fee)
	return fee, net
}

// BalanceBreakdown holds the terms of an owner's available balance.
type BalanceBreakdown struct {
	OwnerID              int32           `json:"owner_id"`
	Earnings             decimal.Decimal `json:"earnings"`
	CompletedPayouts     decimal.Decimal `json:"completed_payouts"`
	InFlightPayouts      decimal.Decimal `json:"in_flight_payouts"`
	CompletedWithdrawals decimal.Decimal `json:"completed_withdrawals"`
	InFlightWithdrawals  decimal.Decimal `json:"in_flight_withdrawals"`
	Available            decimal.Decimal `json:"available"`
}

// Compute fills Available from the other terms and returns it.
func (b *BalanceBreakdown) Compute() decimal.Decimal {
	b.Available = b.Earnings.
		Sub(b.CompletedPayouts).
		Sub(b.InFlightPayouts).
		Sub(b.CompletedWithdrawals).
		Sub(b.InFlightWithdrawals)
	return b.Available
}

type PayoutOutcome struct {
	OwnerID int32           `json:"owner_id"`
	Payout  *Payout         `json:"payout,omitempty"`
	Balance decimal.Decimal `json:"balance"`
	Reason  string          `json:"reason,omitempty"`
	Message string          `json:"message,omitempty"`
}

type BatchPayoutResult struct {
	Succeeded []PayoutOutcome `json:"succeeded"`
	Failed    []PayoutOutcome `json:"failed"`
}

// DueOwner is an owner on the scheduled payout due-list.
type DueOwner struct {
	OwnerID          int32           `json:"owner_id"`
	NextPayoutDate   time.Time       `json:"next_payout_date"`
	AvailableBalance decimal.Decimal `json:"available_balance"`
	MinimumPayout    decimal.Decimal `json:"minimum_payout"`
	Frequency        PayoutFrequency `json:"frequency"`
}
