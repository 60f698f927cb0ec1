package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWorkloadRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestWorkloadRepositoryGetDefaultsToZero(t *testing.T) {
	db, mock, cleanup := newWorkloadRepoMock(t)
	defer cleanup()
	repo := NewWorkloadRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT count FROM workload_counters")).
		WithArgs("T404", "all").
		WillReturnError(sql.ErrNoRows)

	count, err := repo.Get(context.Background(), "T404", "all")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWorkloadRepositoryIncrement(t *testing.T) {
	db, mock, cleanup := newWorkloadRepoMock(t)
	defer cleanup()
	repo := NewWorkloadRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SET count = workload_counters.count + EXCLUDED.count")).
		WithArgs("T010", "all", 1, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	count, err := repo.Increment(context.Background(), nil, "T010", "all", 1)
	require.NoError(t, err)
	assert.Equal(t, 4, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWorkloadRepositoryApplyDeltasOrdered(t *testing.T) {
	db, mock, cleanup := newWorkloadRepoMock(t)
	defer cleanup()
	repo := NewWorkloadRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO workload_counters").
		WithArgs("T010", "2026-10-16", 2, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery("INSERT INTO workload_counters").
		WithArgs("T020", "2026-10-16", 1, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectCommit()

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	require.NoError(t, repo.ApplyDeltas(context.Background(), tx, "2026-10-16", map[string]int{"T020": 1, "T010": 2, "T030": 0}))
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWorkloadRepositoryCountsByWindow(t *testing.T) {
	db, mock, cleanup := newWorkloadRepoMock(t)
	defer cleanup()
	repo := NewWorkloadRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM workload_counters WHERE window_key = $1")).
		WithArgs("all").
		WillReturnRows(sqlmock.NewRows([]string{"teacher_id", "window_key", "count", "updated_at"}).
			AddRow("T010", "all", 3, time.Now()).
			AddRow("T011", "all", 5, time.Now()))

	counts, err := repo.CountsByWindow(context.Background(), "all")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"T010": 3, "T011": 5}, counts)
	assert.NoError(t, mock.ExpectationsWereMet())
}
