package repository

import (
	"context"
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

func newTeacherRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var teacherRowColumns = []string{"id", "full_name", "category", "subjects", "email", "phone", "active", "created_at", "updated_at"}

func TestTeacherRepositoryList(t *testing.T) {
	db, mock, cleanup := newTeacherRepoMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)

	rows := sqlmock.NewRows(teacherRowColumns).
		AddRow("T001", "Asha Rao", "PGT", "{MATHS,PHYSICS}", nil, nil, true, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + teacherColumns + " FROM teachers WHERE 1=1 AND category = $1 ORDER BY id ASC LIMIT 50 OFFSET 0")).
		WithArgs(models.CategoryPGT).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM teachers WHERE 1=1 AND category = $1")).
		WithArgs(models.CategoryPGT).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	list, total, err := repo.List(context.Background(), models.TeacherFilter{Category: models.CategoryPGT})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, pq.StringArray{"MATHS", "PHYSICS"}, list[0].Subjects)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherRepositoryCreateAndDeactivate(t *testing.T) {
	db, mock, cleanup := newTeacherRepoMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)

	mock.ExpectExec("INSERT INTO teachers").
		WithArgs("T002", "Vikram Sen", models.CategoryTGT, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), true, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Create(context.Background(), &models.Teacher{ID: "T002", FullName: "Vikram Sen", Category: models.CategoryTGT, Subjects: pq.StringArray{"ENGLISH"}, Active: true})
	require.NoError(t, err)

	mock.ExpectExec("UPDATE teachers SET active = FALSE").
		WithArgs("T002", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.Deactivate(context.Background(), "T002"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherRepositoryUpsertInTx(t *testing.T) {
	db, mock, cleanup := newTeacherRepoMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO teachers (id, full_name, category, subjects, active, created_at, updated_at)")).
		WithArgs("T003", "Meera Iyer", models.CategoryPRT, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	require.NoError(t, repo.Upsert(context.Background(), tx, &models.Teacher{ID: "T003", FullName: "Meera Iyer", Category: models.CategoryPRT}))
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherRepositoryListActive(t *testing.T) {
	db, mock, cleanup := newTeacherRepoMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM teachers WHERE active = TRUE ORDER BY id ASC")).
		WillReturnRows(sqlmock.NewRows(teacherRowColumns).
			AddRow("T001", "Asha Rao", "PGT", "{MATH}", nil, nil, true, time.Now(), time.Now()).
			AddRow("T010", "Kiran Das", "PGT", "{MATHEMATICS}", nil, nil, true, time.Now(), time.Now()))

	teachers, err := repo.ListActive(context.Background())
	require.NoError(t, err)
	assert.Len(t, teachers, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}
