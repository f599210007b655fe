package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/thryve/studio-scheduler-api/internal/models"
)

// ClassSessionRepository handles persistence of class sessions.
type ClassSessionRepository struct {
	db *sqlx.DB
}

// NewClassSessionRepository constructs the repository.
func NewClassSessionRepository(db *sqlx.DB) *ClassSessionRepository {
	return &ClassSessionRepository{db: db}
}

const classSessionColumns = `id, studio_id, name, start_time, end_time, capacity, assigned_instructor_id, needs_coverage, created_at, updated_at`

// FindByID returns a class session by its ID.
func (r *ClassSessionRepository) FindByID(ctx context.Context, id string) (*models.ClassSession, error) {
	query := fmt.Sprintf(`SELECT %s FROM class_sessions WHERE id = $1`, classSessionColumns)
	var session models.ClassSession
	if err := r.db.GetContext(ctx, &session, query, id); err != nil {
		return nil, err
	}
	return &session, nil
}

// ListByInstructorBetween returns sessions assigned to the instructor whose
// time span intersects the half-open window (from, to). Sessions touching
// the window boundary exactly are excluded.
func (r *ClassSessionRepository) ListByInstructorBetween(ctx context.Context, instructorID string, from, to time.Time) ([]models.ClassSession, error) {
	query := fmt.Sprintf(`SELECT %s FROM class_sessions
        WHERE assigned_instructor_id = $1 AND start_time < $3 AND end_time > $2
        ORDER BY start_time ASC, id ASC`, classSessionColumns)
	var sessions []models.ClassSession
	if err := r.db.SelectContext(ctx, &sessions, query, instructorID, from, to); err != nil {
		return nil, fmt.Errorf("list instructor sessions: %w", err)
	}
	return sessions, nil
}

// SumAssignedHoursBetween returns the total scheduled hours for the
// instructor across sessions starting within the window.
func (r *ClassSessionRepository) SumAssignedHoursBetween(ctx context.Context, instructorID string, from, to time.Time) (float64, error) {
	const query = `SELECT COALESCE(SUM(EXTRACT(EPOCH FROM (end_time - start_time)) / 3600.0), 0)
        FROM class_sessions
        WHERE assigned_instructor_id = $1 AND start_time >= $2 AND start_time < $3`
	var hours float64
	if err := r.db.GetContext(ctx, &hours, query, instructorID, from, to); err != nil {
		return 0, fmt.Errorf("sum assigned hours: %w", err)
	}
	return hours, nil
}

// AssignInstructor sets the session's assigned instructor and clears the
// coverage flag. The write is idempotent: re-applying the same assignment
// is a clean no-op.
func (r *ClassSessionRepository) AssignInstructor(ctx context.Context, id, instructorID string) error {
	const query = `UPDATE class_sessions
        SET assigned_instructor_id = $2, needs_coverage = FALSE, updated_at = NOW()
        WHERE id = $1 AND (assigned_instructor_id IS DISTINCT FROM $2 OR needs_coverage)`
	if _, err := r.db.ExecContext(ctx, query, id, instructorID); err != nil {
		return fmt.Errorf("assign instructor: %w", err)
	}
	return nil
}

// SetNeedsCoverage flips the coverage flag on a session.
func (r *ClassSessionRepository) SetNeedsCoverage(ctx context.Context, id string, needsCoverage bool) error {
	const query = `UPDATE class_sessions SET needs_coverage = $2, updated_at = NOW() WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, needsCoverage); err != nil {
		return fmt.Errorf("set needs coverage: %w", err)
	}
	return nil
}

// ListByStudio returns a studio's sessions ordered by start time.
func (r *ClassSessionRepository) ListByStudio(ctx context.Context, studioID string) ([]models.ClassSession, error) {
	query := fmt.Sprintf(`SELECT %s FROM class_sessions WHERE studio_id = $1 ORDER BY start_time ASC, id ASC`, classSessionColumns)
	var sessions []models.ClassSession
	if err := r.db.SelectContext(ctx, &sessions, query, studioID); err != nil {
		return nil, fmt.Errorf("list studio sessions: %w", err)
	}
	return sessions, nil
}
