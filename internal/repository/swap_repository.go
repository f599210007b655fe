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

// SwapRepository handles persistence of shift swap requests.
type SwapRepository struct {
	db *sqlx.DB
}

// NewSwapRepository constructs the repository.
func NewSwapRepository(db *sqlx.DB) *SwapRepository {
	return &SwapRepository{db: db}
}

const swapColumns = `id, class_id, studio_id, initiator_id, recipient_id, status, requires_approval, decision_reason, created_at, updated_at`

// Create persists a new swap request.
func (r *SwapRepository) Create(ctx context.Context, swap *models.SwapRequest) error {
	if swap.ID == "" {
		swap.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if swap.CreatedAt.IsZero() {
		swap.CreatedAt = now
	}
	swap.UpdatedAt = now
	if swap.Status == "" {
		swap.Status = models.SwapStatusPending
	}
	const query = `INSERT INTO swap_requests (id, class_id, studio_id, initiator_id, recipient_id, status, requires_approval, decision_reason, created_at, updated_at)
        VALUES (:id, :class_id, :studio_id, :initiator_id, :recipient_id, :status, :requires_approval, :decision_reason, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, swap); err != nil {
		return fmt.Errorf("create swap request: %w", err)
	}
	return nil
}

// FindByID returns a swap request by its ID.
func (r *SwapRepository) FindByID(ctx context.Context, id string) (*models.SwapRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM swap_requests WHERE id = $1`, swapColumns)
	var swap models.SwapRequest
	if err := r.db.GetContext(ctx, &swap, query, id); err != nil {
		return nil, err
	}
	return &swap, nil
}

// FindOpenByClass returns the class's non-terminal swap request, or
// sql.ErrNoRows. At most one exists at a time.
func (r *SwapRepository) FindOpenByClass(ctx context.Context, classID string) (*models.SwapRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM swap_requests
        WHERE class_id = $1 AND status IN ($2, $3, $4) LIMIT 1`, swapColumns)
	var swap models.SwapRequest
	err := r.db.GetContext(ctx, &swap, query, classID,
		models.SwapStatusPending, models.SwapStatusAccepted, models.SwapStatusAwaitingApproval)
	if err != nil {
		return nil, err
	}
	return &swap, nil
}

// UpdateStatus transitions a swap request from an expected status, recording
// an optional decision reason. Returns sql.ErrNoRows when the request was
// not in the expected status, which callers treat as a lost race.
func (r *SwapRepository) UpdateStatus(ctx context.Context, id string, from, to models.SwapStatus, reason *string) error {
	const query = `UPDATE swap_requests
        SET status = $3, decision_reason = COALESCE($4, decision_reason), updated_at = NOW()
        WHERE id = $1 AND status = $2`
	result, err := r.db.ExecContext(ctx, query, id, from, to, reason)
	if err != nil {
		return fmt.Errorf("update swap status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update swap status: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListByStudio returns a studio's swap requests, newest first.
func (r *SwapRepository) ListByStudio(ctx context.Context, studioID string) ([]models.SwapRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM swap_requests WHERE studio_id = $1 ORDER BY created_at DESC, id ASC`, swapColumns)
	var swaps []models.SwapRequest
	if err := r.db.SelectContext(ctx, &swaps, query, studioID); err != nil {
		return nil, fmt.Errorf("list swap requests: %w", err)
	}
	return swaps, nil
}
