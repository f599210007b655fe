package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/thryve/studio-scheduler-api/internal/models"
)

// StudioRepository reads studio staffing settings and memberships. Both are
// configured outside the scheduler and treated as read-only inputs here.
type StudioRepository struct {
	db *sqlx.DB
}

// NewStudioRepository constructs the repository.
func NewStudioRepository(db *sqlx.DB) *StudioRepository {
	return &StudioRepository{db: db}
}

// GetStaffingSettings returns the studio's staffing policy with defaults
// applied. A studio without a settings row gets the default policy.
func (r *StudioRepository) GetStaffingSettings(ctx context.Context, studioID string) (*models.StudioStaffingSettings, error) {
	const query = `SELECT studio_id, require_approval, max_weekly_hours, min_hours_between_classes
        FROM studio_staffing_settings WHERE studio_id = $1`
	var settings models.StudioStaffingSettings
	if err := r.db.GetContext(ctx, &settings, query, studioID); err != nil {
		if err == sql.ErrNoRows {
			settings = models.StudioStaffingSettings{StudioID: studioID}
		} else {
			return nil, fmt.Errorf("get staffing settings: %w", err)
		}
	}
	settings.ApplyDefaults()
	return &settings, nil
}

// ListMemberIDs returns the ids of the studio's member instructors.
func (r *StudioRepository) ListMemberIDs(ctx context.Context, studioID string) ([]string, error) {
	const query = `SELECT instructor_id FROM studio_memberships WHERE studio_id = $1 ORDER BY instructor_id ASC`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, studioID); err != nil {
		return nil, fmt.Errorf("list studio members: %w", err)
	}
	return ids, nil
}

// FindMembership returns the instructor's membership in the studio, or
// sql.ErrNoRows when the instructor is not a member.
func (r *StudioRepository) FindMembership(ctx context.Context, studioID, instructorID string) (*models.StudioMembership, error) {
	const query = `SELECT studio_id, instructor_id, role, joined_at
        FROM studio_memberships WHERE studio_id = $1 AND instructor_id = $2`
	var membership models.StudioMembership
	if err := r.db.GetContext(ctx, &membership, query, studioID, instructorID); err != nil {
		return nil, err
	}
	return &membership, nil
}
