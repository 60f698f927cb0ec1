package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-arrangement-api/internal/models"
)

func newScheduleRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestScheduleRepositoryGetDayPadsPeriods(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM teacher_schedules WHERE teacher_id = $1 AND weekday = $2")).
		WithArgs("T001", 1).
		WillReturnRows(sqlmock.NewRows([]string{"teacher_id", "weekday", "periods", "updated_at"}).
			AddRow("T001", 1, `{"XI-A MATHS",free,""}`, time.Now()))

	day, err := repo.GetDay(context.Background(), "T001", time.Monday)
	require.NoError(t, err)
	assert.Equal(t, pq.StringArray{"XI-A MATHS", "FREE", "FREE", "FREE", "FREE", "FREE", "FREE"}, day.Periods)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryGetDayNotFound(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectQuery("FROM teacher_schedules").
		WithArgs("T404", 2).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetDay(context.Background(), "T404", time.Tuesday)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestScheduleRepositoryListFree(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("UPPER(TRIM(COALESCE(s.periods[$2], ''))) IN ('', 'FREE')")).
		WithArgs(3, 4).
		WillReturnRows(sqlmock.NewRows([]string{"teacher_id", "full_name", "category", "subjects"}).
			AddRow("T010", "Kiran Das", "PGT", "{MATH}"))

	free, err := repo.ListFree(context.Background(), time.Wednesday, 4)
	require.NoError(t, err)
	require.Len(t, free, 1)
	assert.Equal(t, "T010", free[0].TeacherID)
	assert.NoError(t, mock.ExpectationsWereMet())

	_, err = repo.ListFree(context.Background(), time.Wednesday, 8)
	assert.Error(t, err)
}

func TestScheduleRepositoryUpsert(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO teacher_schedules")).
		WithArgs("T001", 1, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	day := &models.DaySchedule{TeacherID: "T001", Weekday: 1, Periods: pq.StringArray{"MATH (XI-A)"}}
	require.NoError(t, repo.Upsert(context.Background(), nil, day))
	assert.Len(t, day.Periods, models.PeriodsPerDay)
	assert.NoError(t, mock.ExpectationsWereMet())
}
