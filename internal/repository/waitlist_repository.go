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

// WaitlistRepository handles persistence of waitlist entries.
type WaitlistRepository struct {
	db *sqlx.DB
}

// NewWaitlistRepository constructs the repository.
func NewWaitlistRepository(db *sqlx.DB) *WaitlistRepository {
	return &WaitlistRepository{db: db}
}

const waitlistColumns = `id, class_id, user_id, status, joined_at`

// Create persists a new waitlist entry.
func (r *WaitlistRepository) Create(ctx context.Context, entry *models.WaitlistEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.JoinedAt.IsZero() {
		entry.JoinedAt = time.Now().UTC()
	}
	if entry.Status == "" {
		entry.Status = models.WaitlistStatusActive
	}
	const query = `INSERT INTO waitlist_entries (id, class_id, user_id, status, joined_at)
        VALUES (:id, :class_id, :user_id, :status, :joined_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("create waitlist entry: %w", err)
	}
	return nil
}

// FindActiveByClassAndUser returns the user's active entry for the class,
// or sql.ErrNoRows.
func (r *WaitlistRepository) FindActiveByClassAndUser(ctx context.Context, classID, userID string) (*models.WaitlistEntry, error) {
	query := fmt.Sprintf(`SELECT %s FROM waitlist_entries
        WHERE class_id = $1 AND user_id = $2 AND status = $3 LIMIT 1`, waitlistColumns)
	var entry models.WaitlistEntry
	if err := r.db.GetContext(ctx, &entry, query, classID, userID, models.WaitlistStatusActive); err != nil {
		return nil, err
	}
	return &entry, nil
}

// FindOldestActive returns the head of the class's waitlist. Ordering is
// joined_at ascending with id as a deterministic tie-break.
func (r *WaitlistRepository) FindOldestActive(ctx context.Context, classID string) (*models.WaitlistEntry, error) {
	query := fmt.Sprintf(`SELECT %s FROM waitlist_entries
        WHERE class_id = $1 AND status = $2
        ORDER BY joined_at ASC, id ASC LIMIT 1`, waitlistColumns)
	var entry models.WaitlistEntry
	if err := r.db.GetContext(ctx, &entry, query, classID, models.WaitlistStatusActive); err != nil {
		return nil, err
	}
	return &entry, nil
}

// CountActiveBefore derives an entry's queue position: the number of active
// entries strictly ahead of it in (joined_at, id) order.
func (r *WaitlistRepository) CountActiveBefore(ctx context.Context, classID string, joinedAt time.Time, entryID string) (int, error) {
	const query = `SELECT COUNT(*) FROM waitlist_entries
        WHERE class_id = $1 AND status = $2 AND (joined_at < $3 OR (joined_at = $3 AND id < $4))`
	var count int
	if err := r.db.GetContext(ctx, &count, query, classID, models.WaitlistStatusActive, joinedAt, entryID); err != nil {
		return 0, fmt.Errorf("count earlier waitlist entries: %w", err)
	}
	return count, nil
}

// CountActive returns the length of a class's waitlist.
func (r *WaitlistRepository) CountActive(ctx context.Context, classID string) (int, error) {
	const query = `SELECT COUNT(*) FROM waitlist_entries WHERE class_id = $1 AND status = $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, classID, models.WaitlistStatusActive); err != nil {
		return 0, fmt.Errorf("count waitlist entries: %w", err)
	}
	return count, nil
}

// UpdateStatus transitions an entry, guarding against the entry having left
// the expected status. Returns sql.ErrNoRows when no row matched.
func (r *WaitlistRepository) UpdateStatus(ctx context.Context, id string, from, to models.WaitlistStatus) error {
	const query = `UPDATE waitlist_entries SET status = $3 WHERE id = $1 AND status = $2`
	result, err := r.db.ExecContext(ctx, query, id, from, to)
	if err != nil {
		return fmt.Errorf("update waitlist status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update waitlist status: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListActiveByClass returns the class's active entries in queue order.
func (r *WaitlistRepository) ListActiveByClass(ctx context.Context, classID string) ([]models.WaitlistEntry, error) {
	query := fmt.Sprintf(`SELECT %s FROM waitlist_entries
        WHERE class_id = $1 AND status = $2
        ORDER BY joined_at ASC, id ASC`, waitlistColumns)
	var entries []models.WaitlistEntry
	if err := r.db.SelectContext(ctx, &entries, query, classID, models.WaitlistStatusActive); err != nil {
		return nil, fmt.Errorf("list waitlist entries: %w", err)
	}
	return entries, nil
}
