package sweep

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verdantlabs/verdant/internal/loggy"
)

func TestStartAndCompleteLog(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewSQLLogRepository(db, loggy.NewNoopLogger())
	ctx := context.Background()

	mock.ExpectExec("INSERT INTO sweep_logs").
		WillReturnResult(sqlmock.NewResult(0, 1))

	log, err := repo.StartLog(ctx, TriggerOnline)
	require.NoError(t, err)
	assert.NotEmpty(t, log.ID)
	assert.Equal(t, TriggerOnline, log.TriggerKind)
	assert.Nil(t, log.FinishedAt)

	log.Pushed = 4
	log.Failed = 1

	mock.ExpectExec("UPDATE sweep_logs").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.CompleteLog(ctx, log))
	assert.NotNil(t, log.FinishedAt)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecentLogs(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewSQLLogRepository(db, loggy.NewNoopLogger())

	started := time.Now().Add(-time.Minute)
	finished := time.Now()

	rows := sqlmock.NewRows([]string{
		"id", "trigger_kind", "started_at", "finished_at", "pushed", "failed", "skipped", "error",
	}).AddRow("swp_01HR30", string(TriggerInterval), started, finished, 3, 0, 1, "")

	mock.ExpectQuery("SELECT id, trigger_kind, started_at, finished_at, pushed, failed, skipped, error FROM sweep_logs").
		WillReturnRows(rows)

	logs, err := repo.RecentLogs(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, 3, logs[0].Pushed)
	assert.NotNil(t, logs[0].FinishedAt)

	assert.NoError(t, mock.ExpectationsWereMet())
}
