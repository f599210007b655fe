package service

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/thryve/studio-scheduler-api/internal/locking"
	"github.com/thryve/studio-scheduler-api/internal/models"
	appErrors "github.com/thryve/studio-scheduler-api/pkg/errors"
)

type memSwapRepo struct {
	mu    sync.Mutex
	seq   int
	swaps map[string]models.SwapRequest
}

func newMemSwapRepo() *memSwapRepo {
	return &memSwapRepo{swaps: make(map[string]models.SwapRequest)}
}

func (m *memSwapRepo) Create(ctx context.Context, swap *models.SwapRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	swap.ID = fmt.Sprintf("swap-%02d", m.seq)
	swap.CreatedAt = time.Now().UTC()
	m.swaps[swap.ID] = *swap
	return nil
}

func (m *memSwapRepo) FindByID(ctx context.Context, id string) (*models.SwapRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.swaps[id]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *memSwapRepo) FindOpenByClass(ctx context.Context, classID string) (*models.SwapRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.swaps {
		if s.ClassID == classID && !s.Status.Terminal() && s.Status != models.SwapStatusRejected {
			return &s, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memSwapRepo) UpdateStatus(ctx context.Context, id string, from, to models.SwapStatus, reason *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.swaps[id]
	if !ok || s.Status != from {
		return sql.ErrNoRows
	}
	s.Status = to
	if reason != nil {
		s.DecisionReason = reason
	}
	m.swaps[id] = s
	return nil
}

type memAssignableSessions struct {
	mu       sync.Mutex
	sessions map[string]models.ClassSession
}

func (m *memAssignableSessions) FindByID(ctx context.Context, id string) (*models.ClassSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *memAssignableSessions) AssignInstructor(ctx context.Context, id, instructorID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return sql.ErrNoRows
	}
	s.AssignedInstructorID = &instructorID
	s.NeedsCoverage = false
	m.sessions[id] = s
	return nil
}

func (m *memAssignableSessions) SetNeedsCoverage(ctx context.Context, id string, needsCoverage bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return sql.ErrNoRows
	}
	s.NeedsCoverage = needsCoverage
	m.sessions[id] = s
	return nil
}

type mockInstructors struct {
	instructors map[string]models.Instructor
}

func (m *mockInstructors) FindByID(ctx context.Context, id string) (*models.Instructor, error) {
	if i, ok := m.instructors[id]; ok {
		return &i, nil
	}
	return nil, sql.ErrNoRows
}

type staticSettings struct {
	settings models.StudioStaffingSettings
}

func (s *staticSettings) Get(ctx context.Context, studioID string) (*models.StudioStaffingSettings, error) {
	out := s.settings
	out.StudioID = studioID
	out.ApplyDefaults()
	return &out, nil
}

type swapFixture struct {
	svc      *SwapService
	swaps    *memSwapRepo
	sessions *memAssignableSessions
	schedule *mockSchedule
	emitter  *captureEmitter
}

func newSwapFixture(t *testing.T, requireApproval bool) *swapFixture {
	t.Helper()
	start := time.Date(2026, 9, 7, 10, 0, 0, 0, time.UTC)
	sessions := &memAssignableSessions{sessions: map[string]models.ClassSession{
		"class-1": {ID: "class-1", StudioID: "studio-1", Name: "Evening Power", Capacity: 10,
			StartTime: start, EndTime: start.Add(time.Hour),
			AssignedInstructorID: assigned("inst-1")},
	}}
	swaps := newMemSwapRepo()
	trainers := &mockInstructors{instructors: map[string]models.Instructor{
		"inst-1": {ID: "inst-1", Active: true},
		"inst-2": {ID: "inst-2", Active: true},
		"inst-3": {ID: "inst-3", Active: false},
	}}
	directory := &mockDirectory{
		memberships: map[string]models.StudioMembership{
			"studio-1/owner-1": {Role: models.MembershipRoleOwner},
			"studio-1/inst-1":  {Role: models.MembershipRoleInstructor},
			"studio-1/inst-2":  {Role: models.MembershipRoleInstructor},
		},
		members: map[string][]string{"studio-1": {"owner-1", "inst-1", "inst-2"}},
	}
	schedule := &mockSchedule{hours: map[string]float64{}}
	emitter := &captureEmitter{}
	svc := NewSwapService(swaps, sessions, trainers, directory,
		&staticSettings{settings: models.StudioStaffingSettings{RequireApproval: requireApproval}},
		NewConflictChecker(schedule, time.Hour), locking.NewKeyring(), emitter, nil,
		validator.New(), zap.NewNop())
	return &swapFixture{svc: svc, swaps: swaps, sessions: sessions, schedule: schedule, emitter: emitter}
}

func TestRequestSwapValidations(t *testing.T) {
	f := newSwapFixture(t, false)
	ctx := context.Background()

	_, err := f.svc.RequestSwap(ctx, "inst-1", RequestSwapRequest{ClassID: "class-1", RecipientID: "inst-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, errCode(t, err))

	_, err = f.svc.RequestSwap(ctx, "inst-2", RequestSwapRequest{ClassID: "class-1", RecipientID: "inst-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, errCode(t, err))

	_, err = f.svc.RequestSwap(ctx, "inst-1", RequestSwapRequest{ClassID: "class-1", RecipientID: "inst-3"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, errCode(t, err))

	_, err = f.svc.RequestSwap(ctx, "inst-1", RequestSwapRequest{ClassID: "missing", RecipientID: "inst-2"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, errCode(t, err))
}

func TestRequestSwapSingleOpenRequestPerClass(t *testing.T) {
	f := newSwapFixture(t, false)
	ctx := context.Background()

	swap, err := f.svc.RequestSwap(ctx, "inst-1", RequestSwapRequest{ClassID: "class-1", RecipientID: "inst-2"})
	require.NoError(t, err)
	assert.Equal(t, models.SwapStatusPending, swap.Status)
	assert.False(t, swap.RequiresApproval)

	_, err = f.svc.RequestSwap(ctx, "inst-1", RequestSwapRequest{ClassID: "class-1", RecipientID: "inst-2"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, errCode(t, err))

	requested := f.emitter.byType(models.EventSwapRequested)
	require.Len(t, requested, 1)
	assert.Equal(t, []string{"inst-2"}, requested[0].Recipients)
}

func TestAcceptSwapWithoutApprovalReassignsImmediately(t *testing.T) {
	f := newSwapFixture(t, false)
	ctx := context.Background()

	swap, err := f.svc.RequestSwap(ctx, "inst-1", RequestSwapRequest{ClassID: "class-1", RecipientID: "inst-2"})
	require.NoError(t, err)

	accepted, err := f.svc.AcceptSwap(ctx, swap.ID, "inst-2")
	require.NoError(t, err)
	assert.Equal(t, models.SwapStatusCompleted, accepted.Status)

	session, err := f.sessions.FindByID(ctx, "class-1")
	require.NoError(t, err)
	assert.True(t, session.AssignedTo("inst-2"))

	// Re-accepting a completed swap is a no-op.
	again, err := f.svc.AcceptSwap(ctx, swap.ID, "inst-2")
	require.NoError(t, err)
	assert.Equal(t, models.SwapStatusCompleted, again.Status)
	assert.Len(t, f.emitter.byType(models.EventSwapAccepted), 1)
}

func TestAcceptSwapWrongRecipient(t *testing.T) {
	f := newSwapFixture(t, false)
	ctx := context.Background()

	swap, err := f.svc.RequestSwap(ctx, "inst-1", RequestSwapRequest{ClassID: "class-1", RecipientID: "inst-2"})
	require.NoError(t, err)

	_, err = f.svc.AcceptSwap(ctx, swap.ID, "inst-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, errCode(t, err))
}

func TestAcceptSwapRejectsScheduleConflict(t *testing.T) {
	f := newSwapFixture(t, false)
	ctx := context.Background()

	// inst-2 already teaches a class 30 minutes before class-1 starts.
	busyStart := time.Date(2026, 9, 7, 8, 45, 0, 0, time.UTC)
	f.schedule.sessions = append(f.schedule.sessions,
		scheduleSession("other-class", "inst-2", busyStart, time.Hour))

	swap, err := f.svc.RequestSwap(ctx, "inst-1", RequestSwapRequest{ClassID: "class-1", RecipientID: "inst-2"})
	require.NoError(t, err)

	_, err = f.svc.AcceptSwap(ctx, swap.ID, "inst-2")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrSchedulingConflict.Code, errCode(t, err))

	session, err := f.sessions.FindByID(ctx, "class-1")
	require.NoError(t, err)
	assert.True(t, session.AssignedTo("inst-1"))
}

func TestAcceptSwapAllowsExactlyOneHourGap(t *testing.T) {
	f := newSwapFixture(t, false)
	ctx := context.Background()

	// inst-2's other class ends exactly one hour before class-1 starts.
	busyStart := time.Date(2026, 9, 7, 8, 0, 0, 0, time.UTC)
	f.schedule.sessions = append(f.schedule.sessions,
		scheduleSession("other-class", "inst-2", busyStart, time.Hour))

	swap, err := f.svc.RequestSwap(ctx, "inst-1", RequestSwapRequest{ClassID: "class-1", RecipientID: "inst-2"})
	require.NoError(t, err)

	accepted, err := f.svc.AcceptSwap(ctx, swap.ID, "inst-2")
	require.NoError(t, err)
	assert.Equal(t, models.SwapStatusCompleted, accepted.Status)
}

func TestRequestSwapConcurrentSingleWinner(t *testing.T) {
	const attempts = 10
	f := newSwapFixture(t, false)
	ctx := context.Background()

	var wg sync.WaitGroup
	swaps := make([]*models.SwapRequest, attempts)
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			swaps[i], errs[i] = f.svc.RequestSwap(ctx, "inst-1", RequestSwapRequest{ClassID: "class-1", RecipientID: "inst-2"})
		}(i)
	}
	wg.Wait()

	created, conflicts := 0, 0
	for i := 0; i < attempts; i++ {
		if errs[i] == nil {
			created++
			assert.Equal(t, models.SwapStatusPending, swaps[i].Status)
			continue
		}
		assert.Equal(t, appErrors.ErrConflict.Code, errCode(t, errs[i]))
		conflicts++
	}
	assert.Equal(t, 1, created)
	assert.Equal(t, attempts-1, conflicts)
	assert.Len(t, f.emitter.byType(models.EventSwapRequested), 1)
}

func TestAcceptSwapWithApprovalParksUntilReview(t *testing.T) {
	f := newSwapFixture(t, true)
	ctx := context.Background()

	swap, err := f.svc.RequestSwap(ctx, "inst-1", RequestSwapRequest{ClassID: "class-1", RecipientID: "inst-2"})
	require.NoError(t, err)
	assert.True(t, swap.RequiresApproval)

	accepted, err := f.svc.AcceptSwap(ctx, swap.ID, "inst-2")
	require.NoError(t, err)
	assert.Equal(t, models.SwapStatusAwaitingApproval, accepted.Status)

	// The class must not change hands before the studio decides.
	session, err := f.sessions.FindByID(ctx, "class-1")
	require.NoError(t, err)
	assert.True(t, session.AssignedTo("inst-1"))
	assert.Len(t, f.emitter.byType(models.EventSwapAwaitingReview), 1)
}

func TestApproveSwapReassignsAndCompletes(t *testing.T) {
	f := newSwapFixture(t, true)
	ctx := context.Background()

	swap, err := f.svc.RequestSwap(ctx, "inst-1", RequestSwapRequest{ClassID: "class-1", RecipientID: "inst-2"})
	require.NoError(t, err)
	_, err = f.svc.AcceptSwap(ctx, swap.ID, "inst-2")
	require.NoError(t, err)

	resolved, err := f.svc.ApproveSwap(ctx, swap.ID, "owner-1", true, "")
	require.NoError(t, err)
	assert.Equal(t, models.SwapStatusCompleted, resolved.Status)

	session, err := f.sessions.FindByID(ctx, "class-1")
	require.NoError(t, err)
	assert.True(t, session.AssignedTo("inst-2"))

	// Re-approving the completed swap is a no-op.
	again, err := f.svc.ApproveSwap(ctx, swap.ID, "owner-1", true, "")
	require.NoError(t, err)
	assert.Equal(t, models.SwapStatusCompleted, again.Status)
}

func TestApproveSwapRechecksRecipientAvailability(t *testing.T) {
	f := newSwapFixture(t, true)
	ctx := context.Background()

	swap, err := f.svc.RequestSwap(ctx, "inst-1", RequestSwapRequest{ClassID: "class-1", RecipientID: "inst-2"})
	require.NoError(t, err)
	_, err = f.svc.AcceptSwap(ctx, swap.ID, "inst-2")
	require.NoError(t, err)

	// While the request waited for review, inst-2 picked up a class that
	// overlaps class-1.
	lateStart := time.Date(2026, 9, 7, 10, 30, 0, 0, time.UTC)
	f.schedule.sessions = append(f.schedule.sessions,
		scheduleSession("late-commitment", "inst-2", lateStart, time.Hour))

	_, err = f.svc.ApproveSwap(ctx, swap.ID, "owner-1", true, "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrSchedulingConflict.Code, errCode(t, err))

	session, err := f.sessions.FindByID(ctx, "class-1")
	require.NoError(t, err)
	assert.True(t, session.AssignedTo("inst-1"))

	// The request stays parked; the studio can still reject it cleanly.
	parked, err := f.svc.loadSwap(ctx, swap.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SwapStatusAwaitingApproval, parked.Status)
}

func TestApproveSwapRejectionKeepsAssignment(t *testing.T) {
	f := newSwapFixture(t, true)
	ctx := context.Background()

	swap, err := f.svc.RequestSwap(ctx, "inst-1", RequestSwapRequest{ClassID: "class-1", RecipientID: "inst-2"})
	require.NoError(t, err)
	_, err = f.svc.AcceptSwap(ctx, swap.ID, "inst-2")
	require.NoError(t, err)

	resolved, err := f.svc.ApproveSwap(ctx, swap.ID, "owner-1", false, "peak slot needs a senior instructor")
	require.NoError(t, err)
	assert.Equal(t, models.SwapStatusRejected, resolved.Status)
	require.NotNil(t, resolved.DecisionReason)
	assert.Equal(t, "peak slot needs a senior instructor", *resolved.DecisionReason)

	session, err := f.sessions.FindByID(ctx, "class-1")
	require.NoError(t, err)
	assert.True(t, session.AssignedTo("inst-1"))
}

func TestApproveSwapAuthorization(t *testing.T) {
	f := newSwapFixture(t, true)
	ctx := context.Background()

	swap, err := f.svc.RequestSwap(ctx, "inst-1", RequestSwapRequest{ClassID: "class-1", RecipientID: "inst-2"})
	require.NoError(t, err)
	_, err = f.svc.AcceptSwap(ctx, swap.ID, "inst-2")
	require.NoError(t, err)

	_, err = f.svc.ApproveSwap(ctx, swap.ID, "inst-2", true, "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, errCode(t, err))

	// A pending swap has nothing to approve yet.
	f2 := newSwapFixture(t, true)
	pending, err := f2.svc.RequestSwap(ctx, "inst-1", RequestSwapRequest{ClassID: "class-1", RecipientID: "inst-2"})
	require.NoError(t, err)
	_, err = f2.svc.ApproveSwap(ctx, pending.ID, "owner-1", true, "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, errCode(t, err))
}
