package models

import "time"

// SwapStatus represents the lifecycle of a shift swap request.
type SwapStatus string

// Swap request states. Rejected and completed are terminal.
const (
	SwapStatusPending          SwapStatus = "PENDING"
	SwapStatusAccepted         SwapStatus = "ACCEPTED"
	SwapStatusAwaitingApproval SwapStatus = "AWAITING_APPROVAL"
	SwapStatusApproved         SwapStatus = "APPROVED"
	SwapStatusRejected         SwapStatus = "REJECTED"
	SwapStatusCompleted        SwapStatus = "COMPLETED"
)

// Terminal reports whether the status admits no further transitions.
func (s SwapStatus) Terminal() bool {
	return s == SwapStatusRejected || s == SwapStatusCompleted
}

// SwapRequest proposes transferring a class session's instructor assignment
// from the initiator to the recipient. RequiresApproval is derived from the
// studio staffing settings at creation time and fixed for the life of the
// request.
type SwapRequest struct {
	ID               string     `db:"id" json:"id"`
	ClassID          string     `db:"class_id" json:"class_id"`
	StudioID         string     `db:"studio_id" json:"studio_id"`
	InitiatorID      string     `db:"initiator_id" json:"initiator_id"`
	RecipientID      string     `db:"recipient_id" json:"recipient_id"`
	Status           SwapStatus `db:"status" json:"status"`
	RequiresApproval bool       `db:"requires_approval" json:"requires_approval"`
	DecisionReason   *string    `db:"decision_reason" json:"decision_reason,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}
