package models

import "time"

// EventType identifies an outbound side effect.
type EventType string

// Outbound event types. Notification and payment delivery is handled by
// external collaborators; the scheduler only emits these after the
// consistency-critical write has committed.
const (
	EventBookingConfirmed    EventType = "booking.confirmed"
	EventBookingWaitlisted   EventType = "booking.waitlisted"
	EventBookingCancelled    EventType = "booking.cancelled"
	EventWaitlistPromoted    EventType = "waitlist.promoted"
	EventPaymentCapture      EventType = "payment.capture"
	EventPaymentCredit       EventType = "payment.credit"
	EventNoShowPenalty       EventType = "payment.no_show_penalty"
	EventSwapRequested       EventType = "swap.requested"
	EventSwapAccepted        EventType = "swap.accepted"
	EventSwapAwaitingReview  EventType = "swap.awaiting_review"
	EventSwapResolved        EventType = "swap.resolved"
	EventCoveragePosted      EventType = "coverage.posted"
	EventCoverageApplication EventType = "coverage.application"
	EventCoverageFilled      EventType = "coverage.filled"
)

// OutboundEvent is a fire-and-forget side effect emitted by the scheduler.
type OutboundEvent struct {
	ID         string                 `json:"id"`
	Type       EventType              `json:"type"`
	StudioID   string                 `json:"studio_id,omitempty"`
	Recipients []string               `json:"recipients,omitempty"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
	EmittedAt  time.Time              `json:"emitted_at"`
}
