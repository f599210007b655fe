package models

import "time"

// Instructor is the scheduler's view of an instructor record. Profile data
// lives in an external service; only identity and activity matter here.
type Instructor struct {
	ID        string    `db:"id" json:"id"`
	FullName  string    `db:"full_name" json:"full_name"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
