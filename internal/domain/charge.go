package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type ChargeStatus string

const (
	ChargeStatusPendingReview ChargeStatus = "pending_review"
	ChargeStatusApproved      ChargeStatus = "approved"
	ChargeStatusPaid          ChargeStatus = "paid"
	ChargeStatusRejected      ChargeStatus = "rejected"
	ChargeStatusWaived        ChargeStatus = "waived"
)

// ParseChargeStatus rejects anything outside the fixed enumeration.
func ParseChargeStatus(s string) (ChargeStatus, error) {
	switch st := ChargeStatus(s); st {
	case ChargeStatusPendingReview, ChargeStatusApproved, ChargeStatusPaid, ChargeStatusRejected, ChargeStatusWaived:
		return st, nil
	}
	return "", NewValidationError("invalid_status", "unknown charge status %q", s)
}

func (s ChargeStatus) IsTerminal() bool {
	switch s {
	case ChargeStatusPaid, ChargeStatusRejected, ChargeStatusWaived:
		return true
	case ChargeStatusPendingReview, ChargeStatusApproved:
		return false
	}
	return false
}

// CanTransitionTo encodes pending_review -> {approved, rejected, waived}, approved -> paid
// and the revert of any non-terminal status back to pending_review.
func (s ChargeStatus) CanTransitionTo(next ChargeStatus) bool {
	switch s {
	case ChargeStatusPendingReview:
		switch next {
		case ChargeStatusApproved, ChargeStatusRejected, ChargeStatusWaived:
			return true
		}
	case ChargeStatusApproved:
		switch next {
		case ChargeStatusPaid, ChargeStatusPendingReview:
			return true
		}
	case ChargeStatusPaid, ChargeStatusRejected, ChargeStatusWaived:
		return false
	}
	return false
}

type ChargeOrigin string

const (
	ChargeOriginSystem ChargeOrigin = "system"
	ChargeOriginOwner  ChargeOrigin = "owner"
	ChargeOriginAdmin  ChargeOrigin = "admin"
)

type ChargeRecipient string

const (
	ChargeRecipientPlatform ChargeRecipient = "platform"
	ChargeRecipientOwner    ChargeRecipient = "owner"
)

func ParseChargeRecipient(s string) (ChargeRecipient, error) {
	switch r := ChargeRecipient(s); r {
	case ChargeRecipientPlatform, ChargeRecipientOwner:
		return r, nil
	}
	return "", NewValidationError("invalid_recipient", "unknown charge recipient %q", s)
}

// Charge type codes raised by the mileage calculator.
const (
	ChargeCodeMileageOverage   = "mileage_overage"
	ChargeCodeMileageTampering = "mileage_tampering"
	ChargeCodeMileageMissing   = "mileage_missing"
)

// MileageChargeCodes lists the codes that count as a system mileage charge for a booking.
var MileageChargeCodes = []string{ChargeCodeMileageOverage, ChargeCodeMileageTampering, ChargeCodeMileageMissing}

type ChargeType struct {
	ID            int32           `json:"id"`
	Code          string          `json:"code"`
	Name          string          `json:"name"`
	DefaultAmount decimal.Decimal `json:"default_amount"`
	Currency      string          `json:"currency"`
	Recipient     ChargeRecipient `json:"recipient"`
	IsActive      bool            `json:"is_active"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

type Charge struct {
	ID                   int32           `json:"id"`
	BookingID            int32           `json:"booking_id"`
	ChargeTypeID         int32           `json:"charge_type_id"`
	ChargeTypeCode       string          `json:"charge_type_code"`
	Amount               decimal.Decimal `json:"amount"`
	Currency             string          `json:"currency"`
	Label                string          `json:"label"`
	Notes                string          `json:"notes"`
	Evidence             []string        `json:"evidence"`
	Status               ChargeStatus    `json:"status"`
	Origin               ChargeOrigin    `json:"origin"`
	CreatedBy            *int32          `json:"created_by,omitempty"`
	SettledFromDeposit   bool            `json:"settled_from_deposit"`
	SettledAt            *time.Time      `json:"settled_at,omitempty"`
	PaymentTransactionID *int32          `json:"payment_transaction_id,omitempty"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}
