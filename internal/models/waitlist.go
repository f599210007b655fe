package models

import "time"

// WaitlistStatus represents the lifecycle of a waitlist entry.
type WaitlistStatus string

// Possible waitlist entry statuses.
const (
	WaitlistStatusActive    WaitlistStatus = "ACTIVE"
	WaitlistStatusPromoted  WaitlistStatus = "PROMOTED"
	WaitlistStatusCancelled WaitlistStatus = "CANCELLED"
)

// WaitlistEntry is an ordered claim for a class at capacity. Ordering is
// strictly joined_at ascending, then id ascending. Position is derived from
// the ordered active entries and never stored.
type WaitlistEntry struct {
	ID       string         `db:"id" json:"id"`
	ClassID  string         `db:"class_id" json:"class_id"`
	UserID   string         `db:"user_id" json:"user_id"`
	Status   WaitlistStatus `db:"status" json:"status"`
	JoinedAt time.Time      `db:"joined_at" json:"joined_at"`

	Position int `db:"-" json:"position,omitempty"`
}
