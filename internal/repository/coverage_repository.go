package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/thryve/studio-scheduler-api/internal/models"
)

// CoverageRepository handles persistence of coverage postings and their
// applicants.
type CoverageRepository struct {
	db *sqlx.DB
}

// NewCoverageRepository constructs the repository.
func NewCoverageRepository(db *sqlx.DB) *CoverageRepository {
	return &CoverageRepository{db: db}
}

const coverageColumns = `id, class_id, studio_id, requester_id, urgent, status, created_at, updated_at`

// Create persists a new coverage posting.
func (r *CoverageRepository) Create(ctx context.Context, request *models.CoverageRequest) error {
	if request.ID == "" {
		request.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if request.CreatedAt.IsZero() {
		request.CreatedAt = now
	}
	request.UpdatedAt = now
	if request.Status == "" {
		request.Status = models.CoverageStatusOpen
	}
	const query = `INSERT INTO coverage_requests (id, class_id, studio_id, requester_id, urgent, status, created_at, updated_at)
        VALUES (:id, :class_id, :studio_id, :requester_id, :urgent, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, request); err != nil {
		return fmt.Errorf("create coverage request: %w", err)
	}
	return nil
}

// FindByID returns a coverage posting by its ID.
func (r *CoverageRepository) FindByID(ctx context.Context, id string) (*models.CoverageRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM coverage_requests WHERE id = $1`, coverageColumns)
	var request models.CoverageRequest
	if err := r.db.GetContext(ctx, &request, query, id); err != nil {
		return nil, err
	}
	return &request, nil
}

// FindOpenByClass returns the class's open posting, or sql.ErrNoRows.
// At most one open posting exists per class.
func (r *CoverageRepository) FindOpenByClass(ctx context.Context, classID string) (*models.CoverageRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM coverage_requests
        WHERE class_id = $1 AND status = $2 LIMIT 1`, coverageColumns)
	var request models.CoverageRequest
	if err := r.db.GetContext(ctx, &request, query, classID, models.CoverageStatusOpen); err != nil {
		return nil, err
	}
	return &request, nil
}

// UpdateStatus transitions a posting from an expected status. Returns
// sql.ErrNoRows when the posting was not in the expected status.
func (r *CoverageRepository) UpdateStatus(ctx context.Context, id string, from, to models.CoverageStatus) error {
	const query = `UPDATE coverage_requests SET status = $3, updated_at = NOW() WHERE id = $1 AND status = $2`
	result, err := r.db.ExecContext(ctx, query, id, from, to)
	if err != nil {
		return fmt.Errorf("update coverage status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update coverage status: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// AddApplicant appends an application. The (coverage_id, instructor_id)
// unique constraint makes concurrent duplicate applications lose cleanly;
// the conflict surfaces as a driver error the service maps to Conflict.
func (r *CoverageRepository) AddApplicant(ctx context.Context, applicant *models.CoverageApplicant) error {
	if applicant.ID == "" {
		applicant.ID = uuid.NewString()
	}
	if applicant.AppliedAt.IsZero() {
		applicant.AppliedAt = time.Now().UTC()
	}
	if applicant.Status == "" {
		applicant.Status = models.ApplicantStatusPending
	}
	const query = `INSERT INTO coverage_applicants (id, coverage_id, instructor_id, status, applied_at)
        VALUES (:id, :coverage_id, :instructor_id, :status, :applied_at)`
	if _, err := r.db.NamedExecContext(ctx, query, applicant); err != nil {
		return fmt.Errorf("add coverage applicant: %w", err)
	}
	return nil
}

// HasApplicant reports whether the instructor already applied.
func (r *CoverageRepository) HasApplicant(ctx context.Context, coverageID, instructorID string) (bool, error) {
	const query = `SELECT 1 FROM coverage_applicants WHERE coverage_id = $1 AND instructor_id = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, coverageID, instructorID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check coverage applicant: %w", err)
	}
	return true, nil
}

// ListApplicants returns a posting's applicants in application order.
func (r *CoverageRepository) ListApplicants(ctx context.Context, coverageID string) ([]models.CoverageApplicant, error) {
	const query = `SELECT id, coverage_id, instructor_id, status, applied_at
        FROM coverage_applicants WHERE coverage_id = $1 ORDER BY applied_at ASC, id ASC`
	var applicants []models.CoverageApplicant
	if err := r.db.SelectContext(ctx, &applicants, query, coverageID); err != nil {
		return nil, fmt.Errorf("list coverage applicants: %w", err)
	}
	return applicants, nil
}

// FindApplicant returns one applicant row, or sql.ErrNoRows.
func (r *CoverageRepository) FindApplicant(ctx context.Context, coverageID, instructorID string) (*models.CoverageApplicant, error) {
	const query = `SELECT id, coverage_id, instructor_id, status, applied_at
        FROM coverage_applicants WHERE coverage_id = $1 AND instructor_id = $2 LIMIT 1`
	var applicant models.CoverageApplicant
	if err := r.db.GetContext(ctx, &applicant, query, coverageID, instructorID); err != nil {
		return nil, err
	}
	return &applicant, nil
}

// UpdateApplicantStatus sets an applicant's status.
func (r *CoverageRepository) UpdateApplicantStatus(ctx context.Context, id string, status models.ApplicantStatus) error {
	const query = `UPDATE coverage_applicants SET status = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status); err != nil {
		return fmt.Errorf("update applicant status: %w", err)
	}
	return nil
}

// ListOpenByStudio returns the studio's open postings joined with their
// sessions: urgent first, then by session start time, then id for a stable
// order.
func (r *CoverageRepository) ListOpenByStudio(ctx context.Context, studioID string) ([]models.CoveragePoolItem, error) {
	const query = `SELECT cr.id, cr.class_id, cr.studio_id, cr.requester_id, cr.urgent, cr.status, cr.created_at, cr.updated_at,
        cs.name AS session_name, cs.start_time AS session_start_time, cs.end_time AS session_end_time,
        (SELECT COUNT(*) FROM coverage_applicants ca WHERE ca.coverage_id = cr.id) AS applicant_count
        FROM coverage_requests cr
        JOIN class_sessions cs ON cs.id = cr.class_id
        WHERE cr.studio_id = $1 AND cr.status = $2
        ORDER BY cr.urgent DESC, cs.start_time ASC, cr.id ASC`
	var items []models.CoveragePoolItem
	if err := r.db.SelectContext(ctx, &items, query, studioID, models.CoverageStatusOpen); err != nil {
		return nil, fmt.Errorf("list coverage pool: %w", err)
	}
	return items, nil
}
