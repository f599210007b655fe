package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/thryve/studio-scheduler-api/internal/models"
)

func TestCoverageRepositoryCreateDefaultsToOpen(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCoverageRepository(db)

	mock.ExpectExec("INSERT INTO coverage_requests").
		WithArgs(sqlmock.AnyArg(), "class-1", "studio-1", "inst-1", true,
			models.CoverageStatusOpen, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	request := &models.CoverageRequest{ClassID: "class-1", StudioID: "studio-1", RequesterID: "inst-1", Urgent: true}
	require.NoError(t, repo.Create(context.Background(), request))
	require.NotEmpty(t, request.ID)
	require.Equal(t, models.CoverageStatusOpen, request.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCoverageRepositoryHasApplicant(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCoverageRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT 1 FROM coverage_applicants WHERE coverage_id = $1 AND instructor_id = $2 LIMIT 1`)).
		WithArgs("cov-1", "inst-2").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	applied, err := repo.HasApplicant(context.Background(), "cov-1", "inst-2")
	require.NoError(t, err)
	require.True(t, applied)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT 1 FROM coverage_applicants WHERE coverage_id = $1 AND instructor_id = $2 LIMIT 1`)).
		WithArgs("cov-1", "inst-9").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))

	applied, err = repo.HasApplicant(context.Background(), "cov-1", "inst-9")
	require.NoError(t, err)
	require.False(t, applied)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCoverageRepositoryListOpenByStudioOrdering(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCoverageRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "class_id", "studio_id", "requester_id", "urgent", "status", "created_at", "updated_at",
		"session_name", "session_start_time", "session_end_time", "applicant_count",
	}).
		AddRow("cov-2", "class-2", "studio-1", "inst-1", true, models.CoverageStatusOpen, now, now, "Spin", now, now.Add(time.Hour), 2).
		AddRow("cov-1", "class-1", "studio-1", "inst-2", false, models.CoverageStatusOpen, now, now, "Yoga", now, now.Add(time.Hour), 0)
	mock.ExpectQuery(`ORDER BY cr.urgent DESC, cs.start_time ASC, cr.id ASC`).
		WithArgs("studio-1", models.CoverageStatusOpen).
		WillReturnRows(rows)

	items, err := repo.ListOpenByStudio(context.Background(), "studio-1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.True(t, items[0].Urgent)
	require.Equal(t, 2, items[0].ApplicantCount)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCoverageRepositoryUpdateApplicantStatus(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCoverageRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE coverage_applicants SET status = $2 WHERE id = $1`)).
		WithArgs("app-1", models.ApplicantStatusSelected).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateApplicantStatus(context.Background(), "app-1", models.ApplicantStatusSelected))
	require.NoError(t, mock.ExpectationsWereMet())
}
