package domain

import "github.com/shopspring/decimal"

// MileagePolicy is a typed snapshot of the platform-wide mileage charging settings.
type MileagePolicy struct {
	ChargingEnabledGlobally     bool            `json:"charging_enabled_globally"`
	TamperingPenaltyAmount      decimal.Decimal `json:"tampering_penalty_amount"`
	MissingMileagePenaltyAmount decimal.Decimal `json:"missing_mileage_penalty_amount"`
}

// PayoutPolicy is a typed snapshot of the platform-wide payout settings.
type PayoutPolicy struct {
	InstantWithdrawalFeePercentage decimal.Decimal `json:"instant_withdrawal_fee_percentage"`
}
