package models

import "time"

// BookingStatus represents the lifecycle of a booking.
type BookingStatus string

// Possible booking statuses.
const (
	BookingStatusConfirmed  BookingStatus = "CONFIRMED"
	BookingStatusWaitlisted BookingStatus = "WAITLISTED"
	BookingStatusCancelled  BookingStatus = "CANCELLED"
	BookingStatusNoShow     BookingStatus = "NO_SHOW"
)

// Booking captures a user's claim on a seat in a class session.
type Booking struct {
	ID            string        `db:"id" json:"id"`
	ClassID       string        `db:"class_id" json:"class_id"`
	UserID        string        `db:"user_id" json:"user_id"`
	Status        BookingStatus `db:"status" json:"status"`
	PaymentMethod string        `db:"payment_method" json:"payment_method"`
	Price         float64       `db:"price" json:"price"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updated_at"`
}

// Active reports whether the booking still holds or is waiting for a seat.
func (b *Booking) Active() bool {
	return b.Status == BookingStatusConfirmed || b.Status == BookingStatusWaitlisted
}

// Availability is a consistent snapshot of a class's seat state.
type Availability struct {
	ClassID           string `json:"class_id"`
	Capacity          int    `json:"capacity"`
	ConfirmedCount    int    `json:"confirmed_count"`
	AvailableSpots    int    `json:"available_spots"`
	WaitlistLength    int    `json:"waitlist_length"`
	CallerIsWaitlisted bool  `json:"caller_is_waitlisted"`
}

// AdmissionOutcome describes the result of a booking request: either a
// confirmed seat or a waitlist position.
type AdmissionOutcome struct {
	Booking          *Booking       `json:"booking,omitempty"`
	WaitlistEntry    *WaitlistEntry `json:"waitlist_entry,omitempty"`
	WaitlistPosition int            `json:"waitlist_position,omitempty"`
	Confirmed        bool           `json:"confirmed"`
}
