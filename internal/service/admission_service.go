package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/thryve/studio-scheduler-api/internal/locking"
	"github.com/thryve/studio-scheduler-api/internal/models"
	appErrors "github.com/thryve/studio-scheduler-api/pkg/errors"
)

type classSessionReader interface {
	FindByID(ctx context.Context, id string) (*models.ClassSession, error)
}

type bookingRepo interface {
	Create(ctx context.Context, booking *models.Booking) error
	FindByID(ctx context.Context, id string) (*models.Booking, error)
	FindActiveByClassAndUser(ctx context.Context, classID, userID string) (*models.Booking, error)
	CountByClassAndStatus(ctx context.Context, classID string, status models.BookingStatus) (int, error)
	UpdateStatus(ctx context.Context, id string, from, to models.BookingStatus) error
}

type waitlistRepo interface {
	Create(ctx context.Context, entry *models.WaitlistEntry) error
	FindActiveByClassAndUser(ctx context.Context, classID, userID string) (*models.WaitlistEntry, error)
	FindOldestActive(ctx context.Context, classID string) (*models.WaitlistEntry, error)
	CountActiveBefore(ctx context.Context, classID string, joinedAt time.Time, entryID string) (int, error)
	CountActive(ctx context.Context, classID string) (int, error)
	UpdateStatus(ctx context.Context, id string, from, to models.WaitlistStatus) error
}

type eventEmitter interface {
	Emit(event models.OutboundEvent)
}

// PaymentMethodPromotion marks seats granted through waitlist promotion;
// promoted seats carry no charge.
const PaymentMethodPromotion = "PROMOTION"

// RequestBookingRequest describes a booking attempt.
type RequestBookingRequest struct {
	ClassID       string  `json:"class_id" validate:"required"`
	UserID        string  `json:"user_id" validate:"required"`
	PaymentMethod string  `json:"payment_method" validate:"required"`
	Price         float64 `json:"price" validate:"gte=0"`
}

// AdmissionService admits or waitlists bookings against class capacity and
// performs waitlist promotion. The capacity check-and-increment is
// serialized per class through the keyring; classes never contend with each
// other.
type AdmissionService struct {
	sessions  classSessionReader
	bookings  bookingRepo
	waitlist  waitlistRepo
	studios   studioDirectory
	locks     *locking.Keyring
	events    eventEmitter
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAdmissionService creates a service instance.
func NewAdmissionService(
	sessions classSessionReader,
	bookings bookingRepo,
	waitlist waitlistRepo,
	studios studioDirectory,
	locks *locking.Keyring,
	events eventEmitter,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
) *AdmissionService {
	if locks == nil {
		locks = locking.NewKeyring()
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdmissionService{
		sessions:  sessions,
		bookings:  bookings,
		waitlist:  waitlist,
		studios:   studios,
		locks:     locks,
		events:    events,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
	}
}

// RequestBooking confirms a seat when capacity allows, otherwise appends the
// user to the class waitlist. Payment capture is requested only on the
// confirmed path.
func (s *AdmissionService) RequestBooking(ctx context.Context, req RequestBookingRequest) (*models.AdmissionOutcome, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid booking payload")
	}

	session, err := s.sessions.FindByID(ctx, req.ClassID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	unlock := s.locks.Lock(req.ClassID)
	defer unlock()

	if err := s.ensureNoActiveClaim(ctx, req.ClassID, req.UserID); err != nil {
		return nil, err
	}

	confirmed, err := s.bookings.CountByClassAndStatus(ctx, req.ClassID, models.BookingStatusConfirmed)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count confirmed bookings")
	}
	if confirmed > session.Capacity {
		// Should be unreachable given per-class serialization.
		s.logger.Error("confirmed bookings exceed capacity",
			zap.String("class_id", req.ClassID),
			zap.Int("confirmed", confirmed),
			zap.Int("capacity", session.Capacity),
		)
		return nil, appErrors.Clone(appErrors.ErrCapacityExceeded, "")
	}

	if confirmed < session.Capacity {
		return s.confirmBooking(ctx, session, req)
	}
	return s.joinWaitlist(ctx, session, req)
}

func (s *AdmissionService) confirmBooking(ctx context.Context, session *models.ClassSession, req RequestBookingRequest) (*models.AdmissionOutcome, error) {
	booking := &models.Booking{
		ClassID:       req.ClassID,
		UserID:        req.UserID,
		Status:        models.BookingStatusConfirmed,
		PaymentMethod: req.PaymentMethod,
		Price:         req.Price,
	}
	if err := s.bookings.Create(ctx, booking); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create booking")
	}

	if s.metrics != nil {
		s.metrics.BookingConfirmed()
	}
	s.emit(models.OutboundEvent{
		Type:       models.EventBookingConfirmed,
		StudioID:   session.StudioID,
		Recipients: []string{req.UserID},
		Payload:    map[string]interface{}{"booking_id": booking.ID, "class_id": req.ClassID},
	})
	if booking.Price > 0 {
		s.emit(models.OutboundEvent{
			Type:    models.EventPaymentCapture,
			Payload: map[string]interface{}{"booking_id": booking.ID, "user_id": req.UserID, "amount": booking.Price, "method": req.PaymentMethod},
		})
	}

	return &models.AdmissionOutcome{Confirmed: true, Booking: booking}, nil
}

func (s *AdmissionService) joinWaitlist(ctx context.Context, session *models.ClassSession, req RequestBookingRequest) (*models.AdmissionOutcome, error) {
	entry := &models.WaitlistEntry{
		ClassID: req.ClassID,
		UserID:  req.UserID,
		Status:  models.WaitlistStatusActive,
	}
	if err := s.waitlist.Create(ctx, entry); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to join waitlist")
	}

	earlier, err := s.waitlist.CountActiveBefore(ctx, req.ClassID, entry.JoinedAt, entry.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to derive waitlist position")
	}
	entry.Position = earlier + 1

	if s.metrics != nil {
		s.metrics.BookingWaitlisted()
	}
	s.emit(models.OutboundEvent{
		Type:       models.EventBookingWaitlisted,
		StudioID:   session.StudioID,
		Recipients: []string{req.UserID},
		Payload:    map[string]interface{}{"class_id": req.ClassID, "position": entry.Position},
	})

	return &models.AdmissionOutcome{Confirmed: false, WaitlistEntry: entry, WaitlistPosition: entry.Position}, nil
}

// CancelBooking cancels a confirmed booking on behalf of its owner and
// promotes the head of the waitlist into the freed seat.
func (s *AdmissionService) CancelBooking(ctx context.Context, bookingID, actingUserID string) error {
	booking, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load booking")
	}
	if booking.UserID != actingUserID {
		return appErrors.Clone(appErrors.ErrForbidden, "booking belongs to another user")
	}
	if booking.Status != models.BookingStatusConfirmed {
		return appErrors.Clone(appErrors.ErrInvalidState, "booking is not confirmed")
	}

	unlock := s.locks.Lock(booking.ClassID)
	defer unlock()

	if err := s.bookings.UpdateStatus(ctx, bookingID, models.BookingStatusConfirmed, models.BookingStatusCancelled); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrInvalidState, "booking is not confirmed")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel booking")
	}

	s.emit(models.OutboundEvent{
		Type:       models.EventBookingCancelled,
		Recipients: []string{booking.UserID},
		Payload:    map[string]interface{}{"booking_id": booking.ID, "class_id": booking.ClassID},
	})
	if booking.Price > 0 {
		s.emit(models.OutboundEvent{
			Type:    models.EventPaymentCredit,
			Payload: map[string]interface{}{"booking_id": booking.ID, "user_id": booking.UserID, "amount": booking.Price},
		})
	}

	if _, err := s.promoteLocked(ctx, booking.ClassID); err != nil {
		// The seat is freed; promotion is re-entrant and can be retried
		// via PromoteFromWaitlist without stranding capacity.
		s.logger.Error("waitlist promotion failed after cancellation",
			zap.String("class_id", booking.ClassID), zap.Error(err))
	}
	return nil
}

// MarkNoShow ends a confirmed booking without freeing the seat and requests
// the no-show penalty charge. Restricted to studio owners and staff.
func (s *AdmissionService) MarkNoShow(ctx context.Context, bookingID, actorID string) error {
	booking, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load booking")
	}

	session, err := s.sessions.FindByID(ctx, booking.ClassID)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	if err := s.ensureStudioStaff(ctx, session.StudioID, actorID); err != nil {
		return err
	}

	if err := s.bookings.UpdateStatus(ctx, bookingID, models.BookingStatusConfirmed, models.BookingStatusNoShow); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrInvalidState, "booking is not confirmed")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark no-show")
	}

	s.emit(models.OutboundEvent{
		Type:    models.EventNoShowPenalty,
		Payload: map[string]interface{}{"booking_id": booking.ID, "user_id": booking.UserID, "class_id": booking.ClassID},
	})
	return nil
}

// PromoteFromWaitlist promotes the oldest active waitlist entry into a free
// seat. It is a no-op when the class is still full or the waitlist is empty,
// which makes retries after partial failures safe.
func (s *AdmissionService) PromoteFromWaitlist(ctx context.Context, classID string) (*models.Booking, error) {
	unlock := s.locks.Lock(classID)
	defer unlock()
	return s.promoteLocked(ctx, classID)
}

// promoteLocked requires the class lock to be held by the caller.
func (s *AdmissionService) promoteLocked(ctx context.Context, classID string) (*models.Booking, error) {
	session, err := s.sessions.FindByID(ctx, classID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	confirmed, err := s.bookings.CountByClassAndStatus(ctx, classID, models.BookingStatusConfirmed)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count confirmed bookings")
	}
	if confirmed >= session.Capacity {
		return nil, nil
	}

	entry, err := s.waitlist.FindOldestActive(ctx, classID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read waitlist head")
	}

	// Claim the entry before creating the booking so a retried promotion can
	// never promote the same entry twice.
	if err := s.waitlist.UpdateStatus(ctx, entry.ID, models.WaitlistStatusActive, models.WaitlistStatusPromoted); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to claim waitlist entry")
	}

	booking := &models.Booking{
		ClassID:       classID,
		UserID:        entry.UserID,
		Status:        models.BookingStatusConfirmed,
		PaymentMethod: PaymentMethodPromotion,
		Price:         0,
	}
	if err := s.bookings.Create(ctx, booking); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create promoted booking")
	}

	if s.metrics != nil {
		s.metrics.WaitlistPromoted()
	}
	s.emit(models.OutboundEvent{
		Type:       models.EventWaitlistPromoted,
		StudioID:   session.StudioID,
		Recipients: []string{entry.UserID},
		Payload:    map[string]interface{}{"booking_id": booking.ID, "class_id": classID},
	})

	return booking, nil
}

// LeaveWaitlist cancels the user's active waitlist entry.
func (s *AdmissionService) LeaveWaitlist(ctx context.Context, classID, userID string) error {
	unlock := s.locks.Lock(classID)
	defer unlock()

	entry, err := s.waitlist.FindActiveByClassAndUser(ctx, classID, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "waitlist entry not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load waitlist entry")
	}
	if err := s.waitlist.UpdateStatus(ctx, entry.ID, models.WaitlistStatusActive, models.WaitlistStatusCancelled); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrInvalidState, "waitlist entry is no longer active")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel waitlist entry")
	}
	return nil
}

// GetAvailability returns a snapshot consistent with the latest committed
// booking and waitlist state.
func (s *AdmissionService) GetAvailability(ctx context.Context, classID, callerUserID string) (*models.Availability, error) {
	session, err := s.sessions.FindByID(ctx, classID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	confirmed, err := s.bookings.CountByClassAndStatus(ctx, classID, models.BookingStatusConfirmed)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count confirmed bookings")
	}
	waiting, err := s.waitlist.CountActive(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count waitlist entries")
	}

	available := session.Capacity - confirmed
	if available < 0 {
		available = 0
	}

	availability := &models.Availability{
		ClassID:        classID,
		Capacity:       session.Capacity,
		ConfirmedCount: confirmed,
		AvailableSpots: available,
		WaitlistLength: waiting,
	}
	if callerUserID != "" {
		if _, err := s.waitlist.FindActiveByClassAndUser(ctx, classID, callerUserID); err == nil {
			availability.CallerIsWaitlisted = true
		} else if err != sql.ErrNoRows {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check caller waitlist state")
		}
	}
	return availability, nil
}

func (s *AdmissionService) ensureNoActiveClaim(ctx context.Context, classID, userID string) error {
	if _, err := s.bookings.FindActiveByClassAndUser(ctx, classID, userID); err == nil {
		return appErrors.Clone(appErrors.ErrDuplicateBooking, "")
	} else if err != sql.ErrNoRows {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing bookings")
	}
	if _, err := s.waitlist.FindActiveByClassAndUser(ctx, classID, userID); err == nil {
		return appErrors.Clone(appErrors.ErrDuplicateBooking, "user is already on the waitlist for this class")
	} else if err != sql.ErrNoRows {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing waitlist entries")
	}
	return nil
}

func (s *AdmissionService) ensureStudioStaff(ctx context.Context, studioID, actorID string) error {
	if s.studios == nil {
		return appErrors.Clone(appErrors.ErrForbidden, "")
	}
	membership, err := s.studios.FindMembership(ctx, studioID, actorID)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrForbidden, "actor is not a member of this studio")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load studio membership")
	}
	if membership.Role != models.MembershipRoleOwner && membership.Role != models.MembershipRoleStaff {
		return appErrors.Clone(appErrors.ErrForbidden, "actor lacks studio staff privileges")
	}
	return nil
}

func (s *AdmissionService) emit(event models.OutboundEvent) {
	if s.events == nil {
		return
	}
	s.events.Emit(event)
}
