package models

import "time"

// CoverageStatus represents the lifecycle of a coverage posting.
type CoverageStatus string

// Possible coverage request statuses.
const (
	CoverageStatusOpen      CoverageStatus = "OPEN"
	CoverageStatusFilled    CoverageStatus = "FILLED"
	CoverageStatusCancelled CoverageStatus = "CANCELLED"
)

// ApplicantStatus represents the state of a coverage application.
type ApplicantStatus string

// Possible applicant statuses. Non-selected applicants stay PENDING once the
// posting closes.
const (
	ApplicantStatusPending  ApplicantStatus = "PENDING"
	ApplicantStatusSelected ApplicantStatus = "SELECTED"
	ApplicantStatusRejected ApplicantStatus = "REJECTED"
)

// CoverageRequest is an open posting for an unstaffed or abandoned session.
type CoverageRequest struct {
	ID          string         `db:"id" json:"id"`
	ClassID     string         `db:"class_id" json:"class_id"`
	StudioID    string         `db:"studio_id" json:"studio_id"`
	RequesterID string         `db:"requester_id" json:"requester_id"`
	Urgent      bool           `db:"urgent" json:"urgent"`
	Status      CoverageStatus `db:"status" json:"status"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`

	Applicants []CoverageApplicant `db:"-" json:"applicants,omitempty"`
}

// CoverageApplicant records one instructor's application to a posting.
// An instructor appears at most once per coverage request.
type CoverageApplicant struct {
	ID           string          `db:"id" json:"id"`
	CoverageID   string          `db:"coverage_id" json:"coverage_id"`
	InstructorID string          `db:"instructor_id" json:"instructor_id"`
	Status       ApplicantStatus `db:"status" json:"status"`
	AppliedAt    time.Time       `db:"applied_at" json:"applied_at"`
}

// CoveragePoolItem is a coverage posting joined with its session for
// listing. The pool sorts urgent postings first, then by session start time.
type CoveragePoolItem struct {
	CoverageRequest
	SessionName      string    `db:"session_name" json:"session_name"`
	SessionStartTime time.Time `db:"session_start_time" json:"session_start_time"`
	SessionEndTime   time.Time `db:"session_end_time" json:"session_end_time"`
	ApplicantCount   int       `db:"applicant_count" json:"applicant_count"`
}
