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

func TestSwapRepositoryCreateDefaultsToPending(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSwapRepository(db)

	mock.ExpectExec("INSERT INTO swap_requests").
		WithArgs(sqlmock.AnyArg(), "class-1", "studio-1", "inst-1", "inst-2",
			models.SwapStatusPending, true, nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	swap := &models.SwapRequest{ClassID: "class-1", StudioID: "studio-1", InitiatorID: "inst-1", RecipientID: "inst-2", RequiresApproval: true}
	require.NoError(t, repo.Create(context.Background(), swap))
	require.NotEmpty(t, swap.ID)
	require.Equal(t, models.SwapStatusPending, swap.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSwapRepositoryFindOpenByClass(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSwapRepository(db)

	rows := sqlmock.NewRows([]string{"id", "class_id", "studio_id", "initiator_id", "recipient_id", "status", "requires_approval", "decision_reason", "created_at", "updated_at"}).
		AddRow("swap-1", "class-1", "studio-1", "inst-1", "inst-2", models.SwapStatusPending, false, nil, time.Now(), time.Now())
	mock.ExpectQuery(`SELECT (.+) FROM swap_requests\s+WHERE class_id = \$1 AND status IN \(\$2, \$3, \$4\) LIMIT 1`).
		WithArgs("class-1", models.SwapStatusPending, models.SwapStatusAccepted, models.SwapStatusAwaitingApproval).
		WillReturnRows(rows)

	swap, err := repo.FindOpenByClass(context.Background(), "class-1")
	require.NoError(t, err)
	require.Equal(t, "swap-1", swap.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSwapRepositoryUpdateStatusRecordsReason(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSwapRepository(db)

	reason := "needs senior instructor"
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE swap_requests`)).
		WithArgs("swap-1", models.SwapStatusAwaitingApproval, models.SwapStatusRejected, reason).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateStatus(context.Background(), "swap-1", models.SwapStatusAwaitingApproval, models.SwapStatusRejected, &reason))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSwapRepositoryUpdateStatusLostRace(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSwapRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE swap_requests`)).
		WithArgs("swap-1", models.SwapStatusPending, models.SwapStatusAccepted, nil).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), "swap-1", models.SwapStatusPending, models.SwapStatusAccepted, nil)
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}
