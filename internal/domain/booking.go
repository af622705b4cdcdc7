package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusOngoing   BookingStatus = "ongoing"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// Booking is the settlement view of a rental. Only DepositAmount is mutated here;
// the rest is owned by the booking lifecycle.
type Booking struct {
	ID            int32           `json:"id"`
	VehicleID     int32           `json:"vehicle_id"`
	OwnerID       int32           `json:"owner_id"`
	RenterID      int32           `json:"renter_id"`
	Status        BookingStatus   `json:"status"`
	RentalAmount  decimal.Decimal `json:"rental_amount"`
	DriverAmount  decimal.Decimal `json:"driver_amount"`
	PlatformFee   decimal.Decimal `json:"platform_fee"`
	DepositAmount decimal.Decimal `json:"deposit_amount"`
	Currency      string          `json:"currency"`
	StartAt       time.Time       `json:"start_at"`
	ReturnAt      time.Time       `json:"return_at"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`
}

// OwnerEarnings is what the owner is owed for a completed booking.
func (b *Booking) OwnerEarnings() decimal.Decimal {
	return b.RentalAmount.Add(b.DriverAmount).Sub(b.PlatformFee)
}

func (b *Booking) IsParticipant(userID int32) bool {
	return b.OwnerID == userID || b.RenterID == userID
}

type InspectionType string

const (
	InspectionTypePickup InspectionType = "pickup"
	InspectionTypeReturn InspectionType = "return"
)

type Inspection struct {
	ID          int32          `json:"id"`
	BookingID   int32          `json:"booking_id"`
	Type        InspectionType `json:"type"`
	Mileage     *int64         `json:"mileage,omitempty"` // odometer reading in km
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
}

// VehicleMileagePolicy is the per-vehicle half of the mileage charging policy.
type VehicleMileagePolicy struct {
	VehicleID              int32           `json:"vehicle_id"`
	IncludedKilometers     int64           `json:"included_kilometers"`
	PricePerExtraKm        decimal.Decimal `json:"price_per_extra_km"`
	MileageChargingEnabled bool            `json:"mileage_charging_enabled"`
}

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

// PaymentTransaction is a renter payment recorded by the checkout flow.
type PaymentTransaction struct {
	ID        int32           `json:"id"`
	BookingID int32           `json:"booking_id"`
	Reference string          `json:"reference"`
	Amount    decimal.Decimal `json:"amount"`
	Status    PaymentStatus   `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
}
