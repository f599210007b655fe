package models

import "time"

// ClassSession represents one scheduled occurrence of a studio class.
type ClassSession struct {
	ID                   string    `db:"id" json:"id"`
	StudioID             string    `db:"studio_id" json:"studio_id"`
	Name                 string    `db:"name" json:"name"`
	StartTime            time.Time `db:"start_time" json:"start_time"`
	EndTime              time.Time `db:"end_time" json:"end_time"`
	Capacity             int       `db:"capacity" json:"capacity"`
	AssignedInstructorID *string   `db:"assigned_instructor_id" json:"assigned_instructor_id,omitempty"`
	NeedsCoverage        bool      `db:"needs_coverage" json:"needs_coverage"`
	CreatedAt            time.Time `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time `db:"updated_at" json:"updated_at"`
}

// AssignedTo reports whether the session is currently assigned to the instructor.
func (s *ClassSession) AssignedTo(instructorID string) bool {
	return s.AssignedInstructorID != nil && *s.AssignedInstructorID == instructorID
}

// SessionConflict describes an existing session that collides with a
// proposed instructor commitment.
type SessionConflict struct {
	SessionID    string    `json:"session_id"`
	Name         string    `json:"name"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
	InstructorID string    `json:"instructor_id"`
}

// SessionConflictError is returned when an instructor commitment overlaps
// existing assignments. It carries the conflicting sessions for display.
type SessionConflictError struct {
	Message   string            `json:"message"`
	Conflicts []SessionConflict `json:"conflicts"`
}

// Error implements the error interface for conflict errors.
func (e *SessionConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}
