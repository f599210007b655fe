package models

import "time"

// Default staffing policy values applied when a studio has no explicit
// settings row.
const (
	DefaultMaxWeeklyHours         = 40
	DefaultMinHoursBetweenClasses = 0
)

// StudioStaffingSettings is the per-studio staffing policy. It is a
// read-only input to the swap and coverage flows; defaults are resolved
// once at read time, never persisted back.
type StudioStaffingSettings struct {
	StudioID               string `db:"studio_id" json:"studio_id"`
	RequireApproval        bool   `db:"require_approval" json:"require_approval"`
	MaxWeeklyHours         int    `db:"max_weekly_hours" json:"max_weekly_hours"`
	MinHoursBetweenClasses int    `db:"min_hours_between_classes" json:"min_hours_between_classes"`
}

// ApplyDefaults fills unset numeric policy values.
func (s *StudioStaffingSettings) ApplyDefaults() {
	if s.MaxWeeklyHours <= 0 {
		s.MaxWeeklyHours = DefaultMaxWeeklyHours
	}
	if s.MinHoursBetweenClasses < 0 {
		s.MinHoursBetweenClasses = DefaultMinHoursBetweenClasses
	}
}

// StudioMembership links an instructor to a studio. Notification fan-out and
// coverage eligibility consult this relation.
type StudioMembership struct {
	StudioID     string    `db:"studio_id" json:"studio_id"`
	InstructorID string    `db:"instructor_id" json:"instructor_id"`
	Role         string    `db:"role" json:"role"`
	JoinedAt     time.Time `db:"joined_at" json:"joined_at"`
}

// Membership roles.
const (
	MembershipRoleOwner      = "OWNER"
	MembershipRoleStaff      = "STAFF"
	MembershipRoleInstructor = "INSTRUCTOR"
)
