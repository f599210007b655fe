package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/thryve/studio-scheduler-api/internal/models"
)

func TestStudioRepositoryGetStaffingSettings(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudioRepository(db)

	rows := sqlmock.NewRows([]string{"studio_id", "require_approval", "max_weekly_hours", "min_hours_between_classes"}).
		AddRow("studio-1", true, 30, 2)
	mock.ExpectQuery(`FROM studio_staffing_settings WHERE studio_id = \$1`).
		WithArgs("studio-1").
		WillReturnRows(rows)

	settings, err := repo.GetStaffingSettings(context.Background(), "studio-1")
	require.NoError(t, err)
	require.True(t, settings.RequireApproval)
	require.Equal(t, 30, settings.MaxWeeklyHours)
	require.Equal(t, 2, settings.MinHoursBetweenClasses)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudioRepositoryGetStaffingSettingsDefaultsWhenMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudioRepository(db)

	mock.ExpectQuery(`FROM studio_staffing_settings WHERE studio_id = \$1`).
		WithArgs("studio-9").
		WillReturnError(sql.ErrNoRows)

	settings, err := repo.GetStaffingSettings(context.Background(), "studio-9")
	require.NoError(t, err)
	require.Equal(t, "studio-9", settings.StudioID)
	require.False(t, settings.RequireApproval)
	require.Equal(t, models.DefaultMaxWeeklyHours, settings.MaxWeeklyHours)
	require.Equal(t, models.DefaultMinHoursBetweenClasses, settings.MinHoursBetweenClasses)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudioRepositoryFindMembership(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudioRepository(db)

	joined := time.Date(2025, 11, 4, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM studio_memberships WHERE studio_id = $1 AND instructor_id = $2`)).
		WithArgs("studio-1", "inst-1").
		WillReturnRows(sqlmock.NewRows([]string{"studio_id", "instructor_id", "role", "joined_at"}).
			AddRow("studio-1", "inst-1", models.MembershipRoleInstructor, joined))

	membership, err := repo.FindMembership(context.Background(), "studio-1", "inst-1")
	require.NoError(t, err)
	require.Equal(t, models.MembershipRoleInstructor, membership.Role)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM studio_memberships WHERE studio_id = $1 AND instructor_id = $2`)).
		WithArgs("studio-1", "inst-99").
		WillReturnError(sql.ErrNoRows)

	_, err = repo.FindMembership(context.Background(), "studio-1", "inst-99")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudioRepositoryListMemberIDs(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudioRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT instructor_id FROM studio_memberships WHERE studio_id = $1 ORDER BY instructor_id ASC`)).
		WithArgs("studio-1").
		WillReturnRows(sqlmock.NewRows([]string{"instructor_id"}).AddRow("inst-1").AddRow("inst-2"))

	ids, err := repo.ListMemberIDs(context.Background(), "studio-1")
	require.NoError(t, err)
	require.Equal(t, []string{"inst-1", "inst-2"}, ids)
	require.NoError(t, mock.ExpectationsWereMet())
}
