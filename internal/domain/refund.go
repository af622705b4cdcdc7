package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RefundGracePeriod is added to the booking return time to get a refund's due date.
const RefundGracePeriod = 48 * time.Hour

type RefundStatus string

const (
	RefundStatusPending    RefundStatus = "pending"
	RefundStatusProcessing RefundStatus = "processing"
	RefundStatusCompleted  RefundStatus = "completed"
	RefundStatusFailed     RefundStatus = "failed"
	RefundStatusCancelled  RefundStatus = "cancelled"
)

// CanTransitionTo: pending -> processing -> {completed, failed}, failed -> processing (retry),
// and anything not completed or already cancelled -> cancelled.
func (s RefundStatus) CanTransitionTo(next RefundStatus) bool {
	switch s {
	case RefundStatusPending:
		return next == RefundStatusProcessing || next == RefundStatusCancelled
	case RefundStatusProcessing:
		return next == RefundStatusCompleted || next == RefundStatusFailed || next == RefundStatusCancelled
	case RefundStatusFailed:
		return next == RefundStatusProcessing || next == RefundStatusCancelled
	case RefundStatusCompleted, RefundStatusCancelled:
		return false
	}
	return false
}

type DepositRefund struct {
	ID               int32           `json:"id"`
	BookingID        int32           `json:"booking_id"`
	RenterID         int32           `json:"renter_id"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency"`
	Status           RefundStatus    `json:"status"`
	DueDate          time.Time       `json:"due_date"`
	ProcessedBy      *int32          `json:"processed_by,omitempty"`
	ProcessedAt      *time.Time      `json:"processed_at,omitempty"`
	CompletedAt      *time.Time      `json:"completed_at,omitempty"`
	CancelledBy      *int32          `json:"cancelled_by,omitempty"`
	CancelledAt      *time.Time      `json:"cancelled_at,omitempty"`
	ExternalRefundID string          `json:"external_refund_id,omitempty"`
	ErrorMessage     string          `json:"error_message,omitempty"`
	Notes            string          `json:"notes,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// IsOverdue reports a refund still waiting for processing past its due date.
func (r *DepositRefund) IsOverdue(now time.Time) bool {
	return r.Status == RefundStatusPending && r.DueDate.Before(now)
}

type RefundAction string

const (
	RefundActionCreated    RefundAction = "created"
	RefundActionProcessing RefundAction = "processing_started"
	RefundActionCompleted  RefundAction = "completed"
	RefundActionFailed     RefundAction = "failed"
	RefundActionCancelled  RefundAction = "cancelled"
)

// RefundAuditLog rows are append-only: one per refund status transition.
type RefundAuditLog struct {
	ID        int32        `json:"id"`
	RefundID  int32        `json:"refund_id"`
	OldStatus RefundStatus `json:"old_status"` // empty on creation
	NewStatus RefundStatus `json:"new_status"`
	Action    RefundAction `json:"action"`
	ActorID   *int32       `json:"actor_id,omitempty"` // NULL for system actions
	Notes     string       `json:"notes"`
	CreatedAt time.Time    `json:"created_at"`
}
