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

type coverageRepo interface {
	Create(ctx context.Context, request *models.CoverageRequest) error
	FindByID(ctx context.Context, id string) (*models.CoverageRequest, error)
	FindOpenByClass(ctx context.Context, classID string) (*models.CoverageRequest, error)
	UpdateStatus(ctx context.Context, id string, from, to models.CoverageStatus) error
	AddApplicant(ctx context.Context, applicant *models.CoverageApplicant) error
	HasApplicant(ctx context.Context, coverageID, instructorID string) (bool, error)
	ListApplicants(ctx context.Context, coverageID string) ([]models.CoverageApplicant, error)
	FindApplicant(ctx context.Context, coverageID, instructorID string) (*models.CoverageApplicant, error)
	UpdateApplicantStatus(ctx context.Context, id string, status models.ApplicantStatus) error
	ListOpenByStudio(ctx context.Context, studioID string) ([]models.CoveragePoolItem, error)
}

type coverageSessionRepo interface {
	FindByID(ctx context.Context, id string) (*models.ClassSession, error)
	AssignInstructor(ctx context.Context, id, instructorID string) error
	SetNeedsCoverage(ctx context.Context, id string, needsCoverage bool) error
}

// RequestCoverageRequest opens a coverage posting for a class.
type RequestCoverageRequest struct {
	ClassID string `json:"class_id" validate:"required"`
	Urgent  bool   `json:"urgent"`
}

// CoverageService runs the substitute-instructor marketplace: posting
// unstaffed sessions, collecting applications, and selecting a substitute.
type CoverageService struct {
	coverage  coverageRepo
	sessions  coverageSessionRepo
	studios   studioDirectory
	settings  staffingSettingsReader
	conflicts *ConflictChecker
	locks     *locking.Keyring
	events    eventEmitter
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCoverageService creates a service instance.
func NewCoverageService(
	coverage coverageRepo,
	sessions coverageSessionRepo,
	studios studioDirectory,
	settings staffingSettingsReader,
	conflicts *ConflictChecker,
	locks *locking.Keyring,
	events eventEmitter,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
) *CoverageService {
	if locks == nil {
		locks = locking.NewKeyring()
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CoverageService{
		coverage:  coverage,
		sessions:  sessions,
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

// RequestCoverage posts a class to the studio's coverage pool. The assigned
// instructor or studio staff may post; at most one open posting exists per
// class.
func (s *CoverageService) RequestCoverage(ctx context.Context, requesterID string, req RequestCoverageRequest) (*models.CoverageRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid coverage payload")
	}

	session, err := s.loadSession(ctx, req.ClassID)
	if err != nil {
		return nil, err
	}
	if !session.AssignedTo(requesterID) {
		if err := s.ensureStudioStaff(ctx, session.StudioID, requesterID); err != nil {
			return nil, err
		}
	}

	unlock := s.locks.Lock(req.ClassID)
	defer unlock()

	if _, err := s.coverage.FindOpenByClass(ctx, req.ClassID); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "an open coverage request already exists for this class")
	} else if err != sql.ErrNoRows {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check open coverage requests")
	}

	request := &models.CoverageRequest{
		ClassID:     req.ClassID,
		StudioID:    session.StudioID,
		RequesterID: requesterID,
		Urgent:      req.Urgent,
		Status:      models.CoverageStatusOpen,
	}
	if err := s.coverage.Create(ctx, request); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create coverage request")
	}
	if err := s.sessions.SetNeedsCoverage(ctx, req.ClassID, true); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to flag class for coverage")
	}

	s.emit(models.OutboundEvent{
		Type:       models.EventCoveragePosted,
		StudioID:   session.StudioID,
		Recipients: s.memberRecipients(ctx, session.StudioID, requesterID),
		Payload: map[string]interface{}{
			"coverage_id": request.ID,
			"class_id":    req.ClassID,
			"urgent":      req.Urgent,
		},
	})
	return request, nil
}

// ApplyForCoverage registers the instructor as a candidate for an open
// posting. The application is rejected up front when the session would
// collide with the applicant's schedule or push them over the weekly cap.
func (s *CoverageService) ApplyForCoverage(ctx context.Context, coverageID, instructorID string) (*models.CoverageApplicant, error) {
	request, err := s.loadRequest(ctx, coverageID)
	if err != nil {
		return nil, err
	}
	if request.Status != models.CoverageStatusOpen {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "coverage request is no longer open")
	}
	if request.RequesterID == instructorID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "cannot apply to cover your own request")
	}
	if _, err := s.studios.FindMembership(ctx, request.StudioID, instructorID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "applicant is not a member of this studio")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load applicant membership")
	}

	unlock := s.locks.Lock(request.ClassID)
	defer unlock()

	request, err = s.loadRequest(ctx, coverageID)
	if err != nil {
		return nil, err
	}
	if request.Status != models.CoverageStatusOpen {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "coverage request is no longer open")
	}

	applied, err := s.coverage.HasApplicant(ctx, coverageID, instructorID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing application")
	}
	if applied {
		return nil, appErrors.Clone(appErrors.ErrConflict, "already applied for this coverage request")
	}

	session, err := s.loadSession(ctx, request.ClassID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureApplicantAvailable(ctx, request.StudioID, session, instructorID); err != nil {
		return nil, err
	}

	applicant := &models.CoverageApplicant{
		CoverageID:   coverageID,
		InstructorID: instructorID,
		Status:       models.ApplicantStatusPending,
	}
	if err := s.coverage.AddApplicant(ctx, applicant); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record application")
	}

	s.emit(models.OutboundEvent{
		Type:       models.EventCoverageApplication,
		StudioID:   request.StudioID,
		Recipients: []string{request.RequesterID},
		Payload: map[string]interface{}{
			"coverage_id":   coverageID,
			"class_id":      request.ClassID,
			"instructor_id": instructorID,
		},
	})
	return applicant, nil
}

// SelectCoverageApplicant fills the posting with one of its applicants and
// reassigns the class. Re-selecting the already selected applicant is a
// no-op; selecting a different applicant after the posting filled fails.
func (s *CoverageService) SelectCoverageApplicant(ctx context.Context, coverageID, selectorID, instructorID string) (*models.CoverageRequest, error) {
	request, err := s.loadRequest(ctx, coverageID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureCanSelect(ctx, request, selectorID); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(request.ClassID)
	defer unlock()

	request, err = s.loadRequest(ctx, coverageID)
	if err != nil {
		return nil, err
	}

	applicant, err := s.coverage.FindApplicant(ctx, coverageID, instructorID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "instructor has not applied for this coverage request")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load application")
	}

	if request.Status == models.CoverageStatusFilled {
		if applicant.Status == models.ApplicantStatusSelected {
			return request, nil
		}
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "coverage request is already filled")
	}
	if request.Status != models.CoverageStatusOpen {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "coverage request is not open")
	}

	session, err := s.loadSession(ctx, request.ClassID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureApplicantAvailable(ctx, request.StudioID, session, instructorID); err != nil {
		return nil, err
	}

	if err := s.coverage.UpdateStatus(ctx, coverageID, models.CoverageStatusOpen, models.CoverageStatusFilled); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "coverage request changed state concurrently")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fill coverage request")
	}
	if err := s.coverage.UpdateApplicantStatus(ctx, applicant.ID, models.ApplicantStatusSelected); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark applicant selected")
	}
	if err := s.sessions.AssignInstructor(ctx, request.ClassID, instructorID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reassign class")
	}
	if err := s.sessions.SetNeedsCoverage(ctx, request.ClassID, false); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear coverage flag")
	}
	request.Status = models.CoverageStatusFilled
	if s.metrics != nil {
		s.metrics.CoverageFilled()
	}

	s.emit(models.OutboundEvent{
		Type:       models.EventCoverageFilled,
		StudioID:   request.StudioID,
		Recipients: []string{request.RequesterID, instructorID},
		Payload: map[string]interface{}{
			"coverage_id":   coverageID,
			"class_id":      request.ClassID,
			"instructor_id": instructorID,
		},
	})
	return request, nil
}

// GetCoveragePool lists the studio's open postings, urgent first.
func (s *CoverageService) GetCoveragePool(ctx context.Context, studioID, viewerID string) ([]models.CoveragePoolItem, error) {
	if _, err := s.studios.FindMembership(ctx, studioID, viewerID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "viewer is not a member of this studio")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load viewer membership")
	}
	items, err := s.coverage.ListOpenByStudio(ctx, studioID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list coverage pool")
	}
	return items, nil
}

// GetCoverageRequest returns one posting with its applicants.
func (s *CoverageService) GetCoverageRequest(ctx context.Context, coverageID, viewerID string) (*models.CoverageRequest, error) {
	request, err := s.loadRequest(ctx, coverageID)
	if err != nil {
		return nil, err
	}
	if _, err := s.studios.FindMembership(ctx, request.StudioID, viewerID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "viewer is not a member of this studio")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load viewer membership")
	}
	applicants, err := s.coverage.ListApplicants(ctx, coverageID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list applicants")
	}
	request.Applicants = applicants
	return request, nil
}

func (s *CoverageService) ensureApplicantAvailable(ctx context.Context, studioID string, session *models.ClassSession, instructorID string) error {
	settings, err := s.settings.Get(ctx, studioID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load staffing settings")
	}
	minGap := time.Duration(settings.MinHoursBetweenClasses) * time.Hour
	if err := s.conflicts.Check(ctx, instructorID, session, minGap); err != nil {
		return err
	}
	return s.conflicts.CheckWeeklyLoad(ctx, instructorID, session, settings.MaxWeeklyHours)
}

// ensureCanSelect allows the requester or studio staff to pick a substitute.
func (s *CoverageService) ensureCanSelect(ctx context.Context, request *models.CoverageRequest, selectorID string) error {
	if request.RequesterID == selectorID {
		return nil
	}
	return s.ensureStudioStaff(ctx, request.StudioID, selectorID)
}

func (s *CoverageService) ensureStudioStaff(ctx context.Context, studioID, actorID string) error {
	membership, err := s.studios.FindMembership(ctx, studioID, actorID)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrForbidden, "not a member of this studio")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load membership")
	}
	if membership.Role != models.MembershipRoleOwner && membership.Role != models.MembershipRoleStaff {
		return appErrors.Clone(appErrors.ErrForbidden, "studio staff privileges required")
	}
	return nil
}

func (s *CoverageService) memberRecipients(ctx context.Context, studioID, requesterID string) []string {
	members, err := s.studios.ListMemberIDs(ctx, studioID)
	if err != nil {
		s.logger.Warn("failed to list studio members for notification", zap.String("studio_id", studioID), zap.Error(err))
		return nil
	}
	recipients := make([]string, 0, len(members))
	for _, id := range members {
		if id != requesterID {
			recipients = append(recipients, id)
		}
	}
	return recipients
}

func (s *CoverageService) loadRequest(ctx context.Context, coverageID string) (*models.CoverageRequest, error) {
	request, err := s.coverage.FindByID(ctx, coverageID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "coverage request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load coverage request")
	}
	return request, nil
}

func (s *CoverageService) loadSession(ctx context.Context, classID string) (*models.ClassSession, error) {
	session, err := s.sessions.FindByID(ctx, classID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	return session, nil
}

func (s *CoverageService) emit(event models.OutboundEvent) {
	if s.events == nil {
		return
	}
	s.events.Emit(event)
}
