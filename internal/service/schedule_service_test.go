package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-arrangement-api/internal/dto"
	"github.com/noah-isme/sma-arrangement-api/internal/models"
	appErrors "github.com/noah-isme/sma-arrangement-api/pkg/errors"
)

type memScheduleRepo struct {
	days      map[string]models.DaySchedule
	listCalls int
	upserts   int
}

func newMemScheduleRepo() *memScheduleRepo {
	return &memScheduleRepo{days: map[string]models.DaySchedule{}}
}

func scheduleKey(teacherID string, weekday int) string {
	return teacherID + "|" + time.Weekday(weekday).String()
}

func (m *memScheduleRepo) GetDay(ctx context.Context, teacherID string, weekday time.Weekday) (*models.DaySchedule, error) {
	day, ok := m.days[scheduleKey(teacherID, int(weekday))]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &day, nil
}

func (m *memScheduleRepo) ListByWeekday(ctx context.Context, weekday time.Weekday) ([]models.DaySchedule, error) {
	m.listCalls++
	var out []models.DaySchedule
	for _, day := range m.days {
		if day.Weekday == int(weekday) {
			out = append(out, day)
		}
	}
	return out, nil
}

func (m *memScheduleRepo) ListFree(ctx context.Context, weekday time.Weekday, period int) ([]models.FreeTeacher, error) {
	return nil, nil
}

func (m *memScheduleRepo) Upsert(ctx context.Context, exec sqlx.ExtContext, day *models.DaySchedule) error {
	m.upserts++
	m.days[scheduleKey(day.TeacherID, day.Weekday)] = *day
	return nil
}

func (m *memScheduleRepo) DeleteDay(ctx context.Context, teacherID string, weekday time.Weekday) error {
	delete(m.days, scheduleKey(teacherID, int(weekday)))
	return nil
}

type memScheduleTeachers struct {
	items map[string]models.Teacher
	err   error
}

func (m *memScheduleTeachers) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	t, ok := m.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &t, nil
}

func (m *memScheduleTeachers) Upsert(ctx context.Context, exec sqlx.ExtContext, teacher *models.Teacher) error {
	if m.err != nil {
		return m.err
	}
	if m.items == nil {
		m.items = map[string]models.Teacher{}
	}
	m.items[teacher.ID] = *teacher
	return nil
}

func TestScheduleServiceSundayUsesMonday(t *testing.T) {
	repo := newMemScheduleRepo()
	repo.days[scheduleKey("T001", int(time.Monday))] = rosterDay("T001", "XI-A MATH", freeSlot, freeSlot, freeSlot, freeSlot, freeSlot, freeSlot)
	svc := NewScheduleService(repo, &memScheduleTeachers{}, nil, nil, time.Minute, nil, nil)

	day, err := svc.GetDay(context.Background(), "T001", time.Sunday)
	require.NoError(t, err)
	assert.Equal(t, "XI-A MATH", day.Label(1))

	_, err = svc.GetDay(context.Background(), "T404", time.Monday)
	assert.True(t, errors.Is(err, appErrors.ErrMissingSchedule))
}

func TestScheduleServiceUpsertDay(t *testing.T) {
	repo := newMemScheduleRepo()
	teachers := &memScheduleTeachers{items: map[string]models.Teacher{"T001": {ID: "T001"}}}
	svc := NewScheduleService(repo, teachers, nil, nil, time.Minute, nil, nil)

	day, err := svc.UpsertDay(context.Background(), "T001", time.Tuesday, dto.UpsertDayScheduleRequest{Periods: []string{"XI-A MATH", " ", "free"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"XI-A MATH", "FREE", "FREE", "FREE", "FREE", "FREE", "FREE"}, []string(day.Periods))

	_, err = svc.UpsertDay(context.Background(), "T001", time.Sunday, dto.UpsertDayScheduleRequest{Periods: []string{"X"}})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.UpsertDay(context.Background(), "T404", time.Tuesday, dto.UpsertDayScheduleRequest{Periods: []string{"X"}})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestScheduleServiceImportCSV(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	repo := newMemScheduleRepo()
	teachers := &memScheduleTeachers{}
	svc := NewScheduleService(repo, teachers, tx, nil, time.Minute, nil, nil)

	csvData := strings.Join([]string{
		"\ufeffTeacher_ID,Name,Subject,Category,Period1,Period2,Period3,Period4,Period5,Period6,Period7",
		"T001,Asha Verma,\"Maths, Physics\",pgt,XI-A MATH,,XI-B MATH,XII-A PHYSICS,XI-C MATH,FREE,FREE",
		"T002,Ravi Kumar,English,TGT,free,IX-A ENGLISH",
		",Nobody,English,TGT",
		"T001,Again,Maths,PGT",
		"T003,Unknown,Music,HOD",
	}, "\n")

	result, err := svc.ImportCSV(context.Background(), time.Monday, strings.NewReader(csvData))
	require.NoError(t, err)
	assert.Equal(t, 2, result.Imported)
	require.Len(t, result.Errors, 3)
	assert.Equal(t, 4, result.Errors[0].Row)
	assert.Contains(t, result.Errors[1].Message, "row 2")
	assert.Equal(t, 6, result.Errors[2].Row)

	assert.Equal(t, models.CategoryPGT, teachers.items["T001"].Category)
	assert.Equal(t, []string{"Maths", "Physics"}, []string(teachers.items["T001"].Subjects))
	day := repo.days[scheduleKey("T002", int(time.Monday))]
	assert.Equal(t, "IX-A ENGLISH", day.Label(2))
	assert.True(t, day.IsFree(1))
	assert.True(t, day.IsFree(7))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleServiceImportCSVRollsBack(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	teachers := &memScheduleTeachers{err: errors.New("boom")}
	svc := NewScheduleService(newMemScheduleRepo(), teachers, tx, nil, time.Minute, nil, nil)

	_, err := svc.ImportCSV(context.Background(), time.Monday, strings.NewReader("teacher_id,name,subject,category\nT001,A,Maths,PGT\n"))
	assert.True(t, errors.Is(err, appErrors.ErrInternal))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleServiceImportCSVRequiresColumns(t *testing.T) {
	svc := NewScheduleService(newMemScheduleRepo(), &memScheduleTeachers{}, nil, nil, time.Minute, nil, nil)

	_, err := svc.ImportCSV(context.Background(), time.Monday, strings.NewReader("teacher_id,name\nT001,A\n"))
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.ImportCSV(context.Background(), time.Sunday, strings.NewReader(""))
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestParseWeekday(t *testing.T) {
	cases := map[string]time.Weekday{
		"monday": time.Monday,
		"Tue":    time.Tuesday,
		"0":      time.Sunday,
		" 6 ":    time.Saturday,
	}
	for raw, want := range cases {
		got, err := ParseWeekday(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}
	_, err := ParseWeekday("7")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}
