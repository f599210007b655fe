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

// BookingRepository handles persistence of bookings.
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository constructs the repository.
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

const bookingColumns = `id, class_id, user_id, status, payment_method, price, created_at, updated_at`

// Create persists a new booking record.
func (r *BookingRepository) Create(ctx context.Context, booking *models.Booking) error {
	if booking.ID == "" {
		booking.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = now
	}
	booking.UpdatedAt = now
	const query = `INSERT INTO bookings (id, class_id, user_id, status, payment_method, price, created_at, updated_at)
        VALUES (:id, :class_id, :user_id, :status, :payment_method, :price, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, booking); err != nil {
		return fmt.Errorf("create booking: %w", err)
	}
	return nil
}

// FindByID returns a booking by its ID.
func (r *BookingRepository) FindByID(ctx context.Context, id string) (*models.Booking, error) {
	query := fmt.Sprintf(`SELECT %s FROM bookings WHERE id = $1`, bookingColumns)
	var booking models.Booking
	if err := r.db.GetContext(ctx, &booking, query, id); err != nil {
		return nil, err
	}
	return &booking, nil
}

// FindActiveByClassAndUser returns the user's confirmed or waitlisted
// booking for the class, or sql.ErrNoRows.
func (r *BookingRepository) FindActiveByClassAndUser(ctx context.Context, classID, userID string) (*models.Booking, error) {
	query := fmt.Sprintf(`SELECT %s FROM bookings
        WHERE class_id = $1 AND user_id = $2 AND status IN ($3, $4)
        LIMIT 1`, bookingColumns)
	var booking models.Booking
	err := r.db.GetContext(ctx, &booking, query, classID, userID,
		models.BookingStatusConfirmed, models.BookingStatusWaitlisted)
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// CountByClassAndStatus returns the number of bookings in a given status.
func (r *BookingRepository) CountByClassAndStatus(ctx context.Context, classID string, status models.BookingStatus) (int, error) {
	const query = `SELECT COUNT(*) FROM bookings WHERE class_id = $1 AND status = $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, classID, status); err != nil {
		return 0, fmt.Errorf("count bookings: %w", err)
	}
	return count, nil
}

// UpdateStatus transitions a booking, guarding against updates from a state
// the booking is no longer in. Returns sql.ErrNoRows when the booking was
// not in the expected status.
func (r *BookingRepository) UpdateStatus(ctx context.Context, id string, from, to models.BookingStatus) error {
	const query = `UPDATE bookings SET status = $3, updated_at = NOW() WHERE id = $1 AND status = $2`
	result, err := r.db.ExecContext(ctx, query, id, from, to)
	if err != nil {
		return fmt.Errorf("update booking status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update booking status: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListByClassAndStatus returns bookings for a class filtered by status,
// ordered by creation time.
func (r *BookingRepository) ListByClassAndStatus(ctx context.Context, classID string, status models.BookingStatus) ([]models.Booking, error) {
	query := fmt.Sprintf(`SELECT %s FROM bookings WHERE class_id = $1 AND status = $2 ORDER BY created_at ASC, id ASC`, bookingColumns)
	var bookings []models.Booking
	if err := r.db.SelectContext(ctx, &bookings, query, classID, status); err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return bookings, nil
}
