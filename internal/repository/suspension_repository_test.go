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

	"github.com/noah-isme/sma-arrangement-api/internal/models"
)

func newSuspensionRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestSuspensionRepositoryLifecycle(t *testing.T) {
	db, mock, cleanup := newSuspensionRepoMock(t)
	defer cleanup()
	repo := NewSuspensionRepository(db)
	date := time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC)
	admin := "admin-1"

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO arrangement_suspensions")).
		WithArgs(date, &admin, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS (SELECT 1 FROM arrangement_suspensions WHERE date = $1)")).
		WithArgs(date).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM arrangement_suspensions WHERE date = $1")).
		WithArgs(date).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Suspend(context.Background(), date, &admin))
	suspended, err := repo.IsSuspended(context.Background(), date)
	require.NoError(t, err)
	assert.True(t, suspended)
	existed, err := repo.Resume(context.Background(), date)
	require.NoError(t, err)
	assert.True(t, existed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSettingsRepositoryRoundTrip(t *testing.T) {
	db, mock, cleanup := newSuspensionRepoMock(t)
	defer cleanup()
	repo := NewSettingsRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM auto_mark_settings WHERE id = 1")).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO auto_mark_settings")).
		WithArgs(9, 30, true, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	_, err := repo.GetAutoMark(context.Background())
	assert.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, repo.SaveAutoMark(context.Background(), &models.AutoMarkSettings{Hour: 9, Minute: 30, Enabled: true}))
	assert.NoError(t, mock.ExpectationsWereMet())
}
