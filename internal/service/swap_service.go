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

type swapRepo interface {
	Create(ctx context.Context, swap *models.SwapRequest) error
	FindByID(ctx context.Context, id string) (*models.SwapRequest, error)
	FindOpenByClass(ctx context.Context, classID string) (*models.SwapRequest, error)
	UpdateStatus(ctx context.Context, id string, from, to models.SwapStatus, reason *string) error
}

type sessionAssigner interface {
	FindByID(ctx context.Context, id string) (*models.ClassSession, error)
	AssignInstructor(ctx context.Context, id, instructorID string) error
}

type instructorReader interface {
	FindByID(ctx context.Context, id string) (*models.Instructor, error)
}

type studioDirectory interface {
	FindMembership(ctx context.Context, studioID, instructorID string) (*models.StudioMembership, error)
	ListMemberIDs(ctx context.Context, studioID string) ([]string, error)
}

type staffingSettingsReader interface {
	Get(ctx context.Context, studioID string) (*models.StudioStaffingSettings, error)
}

// RequestSwapRequest describes a swap proposal payload.
type RequestSwapRequest struct {
	ClassID     string `json:"class_id" validate:"required"`
	RecipientID string `json:"recipient_id" validate:"required"`
}

// SwapService coordinates instructor shift swaps: proposal, acceptance with
// conflict detection, and the optional studio approval gate. The accept and
// approve paths share one reassignment step executed under the class lock.
type SwapService struct {
	swaps     swapRepo
	sessions  sessionAssigner
	trainers  instructorReader
	studios   studioDirectory
	settings  staffingSettingsReader
	conflicts *ConflictChecker
	locks     *locking.Keyring
	events    eventEmitter
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSwapService creates a service instance.
func NewSwapService(
	swaps swapRepo,
	sessions sessionAssigner,
	trainers instructorReader,
	studios studioDirectory,
	settings staffingSettingsReader,
	conflicts *ConflictChecker,
	locks *locking.Keyring,
	events eventEmitter,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
) *SwapService {
	if locks == nil {
		locks = locking.NewKeyring()
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SwapService{
		swaps:     swaps,
		sessions:  sessions,
		trainers:  trainers,
		studios:   studios,
		settings:  settings,
		conflicts: conflicts,
		locks:     locks,
		events:    events,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
	}
}

// RequestSwap proposes transferring the class to the recipient. At most one
// non-terminal swap request may exist per class.
func (s *SwapService) RequestSwap(ctx context.Context, initiatorID string, req RequestSwapRequest) (*models.SwapRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid swap payload")
	}
	if req.RecipientID == initiatorID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "cannot swap a class with yourself")
	}

	session, err := s.sessions.FindByID(ctx, req.ClassID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	if !session.AssignedTo(initiatorID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the assigned instructor can request a swap")
	}

	recipient, err := s.trainers.FindByID(ctx, req.RecipientID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "recipient instructor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load recipient")
	}
	if !recipient.Active {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "recipient instructor is inactive")
	}
	if _, err := s.studios.FindMembership(ctx, session.StudioID, req.RecipientID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "recipient is not a member of this studio")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load recipient membership")
	}

	settings, err := s.settings.Get(ctx, session.StudioID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load staffing settings")
	}

	unlock := s.locks.Lock(req.ClassID)
	defer unlock()

	if _, err := s.swaps.FindOpenByClass(ctx, req.ClassID); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "an open swap request already exists for this class")
	} else if err != sql.ErrNoRows {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check open swap requests")
	}

	swap := &models.SwapRequest{
		ClassID:          req.ClassID,
		StudioID:         session.StudioID,
		InitiatorID:      initiatorID,
		RecipientID:      req.RecipientID,
		Status:           models.SwapStatusPending,
		RequiresApproval: settings.RequireApproval,
	}
	if err := s.swaps.Create(ctx, swap); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create swap request")
	}

	s.emit(models.OutboundEvent{
		Type:       models.EventSwapRequested,
		StudioID:   session.StudioID,
		Recipients: []string{req.RecipientID},
		Payload:    map[string]interface{}{"swap_id": swap.ID, "class_id": req.ClassID, "initiator_id": initiatorID},
	})
	return swap, nil
}

// AcceptSwap lets the recipient take the class. Without an approval gate the
// accept, reassignment and completion happen as one transition under the
// class lock; with the gate the request parks in awaiting approval.
// Re-accepting an already completed swap is a no-op.
func (s *SwapService) AcceptSwap(ctx context.Context, swapID, recipientID string) (*models.SwapRequest, error) {
	swap, err := s.loadSwap(ctx, swapID)
	if err != nil {
		return nil, err
	}
	if swap.RecipientID != recipientID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "swap request is addressed to another instructor")
	}
	if swap.Status == models.SwapStatusCompleted {
		return swap, nil
	}
	if swap.Status != models.SwapStatusPending {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "swap request is not pending")
	}

	unlock := s.locks.Lock(swap.ClassID)
	defer unlock()

	// Re-validate under the lock: the conflict landscape or the request
	// state may have changed between read and write.
	swap, err = s.loadSwap(ctx, swapID)
	if err != nil {
		return nil, err
	}
	if swap.Status == models.SwapStatusCompleted {
		return swap, nil
	}
	if swap.Status != models.SwapStatusPending {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "swap request is not pending")
	}

	session, err := s.sessions.FindByID(ctx, swap.ClassID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	if err := s.ensureRecipientAvailable(ctx, swap, session, recipientID); err != nil {
		return nil, err
	}

	if swap.RequiresApproval {
		if err := s.swaps.UpdateStatus(ctx, swapID, models.SwapStatusPending, models.SwapStatusAwaitingApproval, nil); err != nil {
			return nil, s.mapTransitionErr(err, "failed to move swap to approval")
		}
		swap.Status = models.SwapStatusAwaitingApproval

		s.emit(models.OutboundEvent{
			Type:       models.EventSwapAwaitingReview,
			StudioID:   swap.StudioID,
			Recipients: s.studioStaffRecipients(ctx, swap.StudioID, swap.InitiatorID),
			Payload:    map[string]interface{}{"swap_id": swap.ID, "class_id": swap.ClassID},
		})
		return swap, nil
	}

	if err := s.swaps.UpdateStatus(ctx, swapID, models.SwapStatusPending, models.SwapStatusAccepted, nil); err != nil {
		return nil, s.mapTransitionErr(err, "failed to accept swap")
	}
	if err := s.completeReassignment(ctx, swap, models.SwapStatusAccepted, recipientID); err != nil {
		return nil, err
	}
	swap.Status = models.SwapStatusCompleted

	s.emit(models.OutboundEvent{
		Type:       models.EventSwapAccepted,
		StudioID:   swap.StudioID,
		Recipients: []string{swap.InitiatorID},
		Payload:    map[string]interface{}{"swap_id": swap.ID, "class_id": swap.ClassID, "new_instructor_id": recipientID},
	})
	return swap, nil
}

// ApproveSwap resolves an approval-gated swap. Approval re-checks the
// recipient's availability and reassigns the class; rejection leaves the
// assignment untouched.
func (s *SwapService) ApproveSwap(ctx context.Context, swapID, approverID string, approved bool, reason string) (*models.SwapRequest, error) {
	swap, err := s.loadSwap(ctx, swapID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureStudioStaff(ctx, swap.StudioID, approverID); err != nil {
		return nil, err
	}
	if swap.Status == models.SwapStatusCompleted && approved {
		return swap, nil
	}
	if swap.Status != models.SwapStatusAwaitingApproval {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no swap request awaiting approval")
	}

	unlock := s.locks.Lock(swap.ClassID)
	defer unlock()

	var decision *string
	if reason != "" {
		decision = &reason
	}

	if !approved {
		if err := s.swaps.UpdateStatus(ctx, swapID, models.SwapStatusAwaitingApproval, models.SwapStatusRejected, decision); err != nil {
			return nil, s.mapTransitionErr(err, "failed to reject swap")
		}
		swap.Status = models.SwapStatusRejected
		swap.DecisionReason = decision
	} else {
		session, err := s.sessions.FindByID(ctx, swap.ClassID)
		if err != nil {
			if err == sql.ErrNoRows {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
		}
		// The recipient may have taken other commitments while the request
		// waited for review; the availability check runs again at write time.
		if err := s.ensureRecipientAvailable(ctx, swap, session, swap.RecipientID); err != nil {
			return nil, err
		}
		if err := s.swaps.UpdateStatus(ctx, swapID, models.SwapStatusAwaitingApproval, models.SwapStatusApproved, decision); err != nil {
			return nil, s.mapTransitionErr(err, "failed to approve swap")
		}
		if err := s.completeReassignment(ctx, swap, models.SwapStatusApproved, swap.RecipientID); err != nil {
			return nil, err
		}
		swap.Status = models.SwapStatusCompleted
	}

	s.emit(models.OutboundEvent{
		Type:       models.EventSwapResolved,
		StudioID:   swap.StudioID,
		Recipients: []string{swap.InitiatorID, swap.RecipientID},
		Payload:    map[string]interface{}{"swap_id": swap.ID, "class_id": swap.ClassID, "approved": approved, "reason": reason},
	})
	return swap, nil
}

// completeReassignment is the single mutating step shared by the
// no-approval and approval paths. AssignInstructor is idempotent, so a
// retried completion is harmless.
func (s *SwapService) completeReassignment(ctx context.Context, swap *models.SwapRequest, from models.SwapStatus, instructorID string) error {
	if err := s.sessions.AssignInstructor(ctx, swap.ClassID, instructorID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reassign class")
	}
	if err := s.swaps.UpdateStatus(ctx, swap.ID, from, models.SwapStatusCompleted, nil); err != nil {
		return s.mapTransitionErr(err, "failed to complete swap")
	}
	if s.metrics != nil {
		s.metrics.SwapCompleted()
	}
	return nil
}

func (s *SwapService) ensureRecipientAvailable(ctx context.Context, swap *models.SwapRequest, session *models.ClassSession, recipientID string) error {
	settings, err := s.settings.Get(ctx, swap.StudioID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load staffing settings")
	}
	minGap := time.Duration(settings.MinHoursBetweenClasses) * time.Hour
	if err := s.conflicts.Check(ctx, recipientID, session, minGap); err != nil {
		return err
	}
	return s.conflicts.CheckWeeklyLoad(ctx, recipientID, session, settings.MaxWeeklyHours)
}

func (s *SwapService) loadSwap(ctx context.Context, swapID string) (*models.SwapRequest, error) {
	swap, err := s.swaps.FindByID(ctx, swapID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "swap request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load swap request")
	}
	return swap, nil
}

func (s *SwapService) ensureStudioStaff(ctx context.Context, studioID, actorID string) error {
	membership, err := s.studios.FindMembership(ctx, studioID, actorID)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrForbidden, "approver is not a member of this studio")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load approver membership")
	}
	if membership.Role != models.MembershipRoleOwner && membership.Role != models.MembershipRoleStaff {
		return appErrors.Clone(appErrors.ErrForbidden, "approver lacks studio staff privileges")
	}
	return nil
}

func (s *SwapService) studioStaffRecipients(ctx context.Context, studioID, initiatorID string) []string {
	members, err := s.studios.ListMemberIDs(ctx, studioID)
	if err != nil {
		s.logger.Warn("failed to list studio members for notification", zap.String("studio_id", studioID), zap.Error(err))
		return []string{initiatorID}
	}
	return append(members, initiatorID)
}

func (s *SwapService) mapTransitionErr(err error, message string) error {
	if err == sql.ErrNoRows {
		return appErrors.Clone(appErrors.ErrInvalidState, "swap request changed state concurrently")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func (s *SwapService) emit(event models.OutboundEvent) {
	if s.events == nil {
		return
	}
	s.events.Emit(event)
}
