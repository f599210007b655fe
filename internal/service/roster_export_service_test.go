package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/thryve/studio-scheduler-api/internal/models"
	appErrors "github.com/thryve/studio-scheduler-api/pkg/errors"
)

func newRosterFixture(t *testing.T) (*RosterExportService, *memBookingRepo, *memWaitlistRepo) {
	t.Helper()
	sessions := &memSessionRepo{sessions: map[string]models.ClassSession{
		"class-1": {ID: "class-1", StudioID: "studio-1", Name: "Sunrise Yoga", Capacity: 2,
			StartTime: time.Date(2026, 9, 7, 7, 0, 0, 0, time.UTC),
			EndTime:   time.Date(2026, 9, 7, 8, 0, 0, 0, time.UTC)},
	}}
	bookings := newMemBookingRepo()
	waitlist := newMemWaitlistRepo()
	directory := &mockDirectory{memberships: map[string]models.StudioMembership{
		"studio-1/owner-1": {Role: models.MembershipRoleOwner},
		"studio-1/inst-1":  {Role: models.MembershipRoleInstructor},
	}}
	svc := NewRosterExportService(sessions, bookings, waitlist, directory, zap.NewNop())
	return svc, bookings, waitlist
}

func TestRosterExportCSV(t *testing.T) {
	svc, bookings, waitlist := newRosterFixture(t)
	ctx := context.Background()

	require.NoError(t, bookings.Create(ctx, &models.Booking{ClassID: "class-1", UserID: "u1", Status: models.BookingStatusConfirmed, PaymentMethod: "CARD"}))
	require.NoError(t, bookings.Create(ctx, &models.Booking{ClassID: "class-1", UserID: "u2", Status: models.BookingStatusConfirmed, PaymentMethod: "CREDITS"}))
	require.NoError(t, bookings.Create(ctx, &models.Booking{ClassID: "class-1", UserID: "u3", Status: models.BookingStatusCancelled, PaymentMethod: "CARD"}))
	require.NoError(t, waitlist.Create(ctx, &models.WaitlistEntry{ClassID: "class-1", UserID: "u4", Status: models.WaitlistStatusActive}))

	result, err := svc.Export(ctx, "class-1", "owner-1", ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", result.ContentType)
	assert.True(t, strings.HasSuffix(result.FileName, ".csv"))

	lines := strings.Split(strings.TrimSpace(string(result.Data)), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "User ID,Standing,Payment Method,Since", lines[0])
	assert.Contains(t, lines[1], "u1,Confirmed,CARD")
	assert.Contains(t, lines[2], "u2,Confirmed,CREDITS")
	assert.Contains(t, lines[3], "u4,Waitlist #1")
}

func TestRosterExportPDF(t *testing.T) {
	svc, bookings, _ := newRosterFixture(t)
	ctx := context.Background()

	require.NoError(t, bookings.Create(ctx, &models.Booking{ClassID: "class-1", UserID: "u1", Status: models.BookingStatusConfirmed, PaymentMethod: "CARD"}))

	result, err := svc.Export(ctx, "class-1", "owner-1", ExportFormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", result.ContentType)
	assert.True(t, strings.HasPrefix(string(result.Data), "%PDF"))
}

func TestRosterExportAuthorization(t *testing.T) {
	svc, _, _ := newRosterFixture(t)
	ctx := context.Background()

	_, err := svc.Export(ctx, "class-1", "inst-1", ExportFormatCSV)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, errCode(t, err))

	_, err = svc.Export(ctx, "missing", "owner-1", ExportFormatCSV)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, errCode(t, err))

	_, err = svc.Export(ctx, "class-1", "owner-1", ExportFormat("xml"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, errCode(t, err))
}
