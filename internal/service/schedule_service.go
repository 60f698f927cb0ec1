package service

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-arrangement-api/internal/dto"
	"github.com/noah-isme/sma-arrangement-api/internal/models"
	appErrors "github.com/noah-isme/sma-arrangement-api/pkg/errors"
)

type scheduleRepository interface {
	GetDay(ctx context.Context, teacherID string, weekday time.Weekday) (*models.DaySchedule, error)
	ListByWeekday(ctx context.Context, weekday time.Weekday) ([]models.DaySchedule, error)
	ListFree(ctx context.Context, weekday time.Weekday, period int) ([]models.FreeTeacher, error)
	Upsert(ctx context.Context, exec sqlx.ExtContext, day *models.DaySchedule) error
	DeleteDay(ctx context.Context, teacherID string, weekday time.Weekday) error
}

type scheduleTeacherStore interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
	Upsert(ctx context.Context, exec sqlx.ExtContext, teacher *models.Teacher) error
}

// ScheduleService manages weekday timetables and the cached day rosters built from them.
type ScheduleService struct {
	repo      scheduleRepository
	teachers  scheduleTeacherStore
	tx        txProvider
	cache     *CacheService
	cacheTTL  time.Duration
	validator *validator.Validate
	logger    *zap.Logger
}

// NewScheduleService constructs the service. cache may be nil.
func NewScheduleService(repo scheduleRepository, teachers scheduleTeacherStore, tx txProvider, cache *CacheService, cacheTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{repo: repo, teachers: teachers, tx: tx, cache: cache, cacheTTL: cacheTTL, validator: validate, logger: logger}
}

func scheduleCacheKey(weekday time.Weekday) string {
	return fmt.Sprintf("schedules:weekday:%d", int(weekday))
}

// timetableWeekday maps Sunday, which has no timetable, onto Monday.
func timetableWeekday(weekday time.Weekday) time.Weekday {
	if weekday == time.Sunday {
		return time.Monday
	}
	return weekday
}

// GetDay returns one teacher's periods for a weekday.
func (s *ScheduleService) GetDay(ctx context.Context, teacherID string, weekday time.Weekday) (*models.DaySchedule, error) {
	day, err := s.repo.GetDay(ctx, teacherID, timetableWeekday(weekday))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrMissingSchedule, "no schedule found for teacher "+teacherID)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	return day, nil
}

// DaySchedules returns every timetable row for the weekday, served from cache when possible.
func (s *ScheduleService) DaySchedules(ctx context.Context, weekday time.Weekday) ([]models.DaySchedule, error) {
	weekday = timetableWeekday(weekday)
	key := scheduleCacheKey(weekday)
	var cached []models.DaySchedule
	if s.cache.Get(ctx, key, &cached) {
		return cached, nil
	}
	days, err := s.repo.ListByWeekday(ctx, weekday)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedules")
	}
	s.cache.Set(ctx, key, days, s.cacheTTL)
	return days, nil
}

// ListFree returns active teachers without a class on date at period.
func (s *ScheduleService) ListFree(ctx context.Context, date time.Time, period int) ([]models.FreeTeacher, error) {
	if period < 1 || period > models.PeriodsPerDay {
		return nil, appErrors.Clone(appErrors.ErrValidation, "period must be between 1 and 7")
	}
	free, err := s.repo.ListFree(ctx, models.ScheduleWeekday(date), period)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list free teachers")
	}
	return free, nil
}

// UpsertDay replaces a teacher's timetable for a weekday.
func (s *ScheduleService) UpsertDay(ctx context.Context, teacherID string, weekday time.Weekday, req dto.UpsertDayScheduleRequest) (*models.DaySchedule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}
	if weekday == time.Sunday {
		return nil, appErrors.Clone(appErrors.ErrValidation, "sunday has no timetable")
	}
	if _, err := s.teachers.FindByID(ctx, teacherID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	day := &models.DaySchedule{TeacherID: teacherID, Weekday: int(weekday), Periods: models.NormalizePeriods(req.Periods)}
	if err := s.repo.Upsert(ctx, nil, day); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save schedule")
	}
	s.cache.Invalidate(ctx, scheduleCacheKey(weekday))
	return day, nil
}

// DeleteDay removes a teacher's timetable for a weekday.
func (s *ScheduleService) DeleteDay(ctx context.Context, teacherID string, weekday time.Weekday) error {
	if err := s.repo.DeleteDay(ctx, teacherID, weekday); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete schedule")
	}
	s.cache.Invalidate(ctx, scheduleCacheKey(weekday))
	return nil
}

var requiredImportColumns = []string{"teacher_id", "name", "subject", "category"}

// ImportCSV loads a weekday timetable in the teacher_id,name,subject,category,period1..period7
// layout. Teachers and their periods are upserted in one transaction; malformed rows are
// skipped and reported.
func (s *ScheduleService) ImportCSV(ctx context.Context, weekday time.Weekday, src io.Reader) (result *models.ScheduleImportResult, err error) {
	if weekday == time.Sunday {
		return nil, appErrors.Clone(appErrors.ErrValidation, "sunday has no timetable")
	}
	reader := csv.NewReader(src)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "failed to read csv header")
	}
	columns := make(map[string]int, len(header))
	for i, h := range header {
		columns[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, name := range requiredImportColumns {
		if _, ok := columns[name]; !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, "csv is missing column "+name)
		}
	}
	cell := func(record []string, name string) string {
		idx, ok := columns[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	if s.tx == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	result = &models.ScheduleImportResult{Weekday: int(weekday)}
	seen := make(map[string]int)
	for row := 2; ; row++ {
		record, readErr := reader.Read()
		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			result.Errors = append(result.Errors, models.ScheduleImportError{Row: row, Message: readErr.Error()})
			continue
		}
		teacherID := cell(record, "teacher_id")
		if teacherID == "" {
			result.Errors = append(result.Errors, models.ScheduleImportError{Row: row, Message: "teacher_id is required"})
			continue
		}
		if first, dup := seen[teacherID]; dup {
			result.Errors = append(result.Errors, models.ScheduleImportError{Row: row, Message: fmt.Sprintf("duplicate teacher_id, first seen on row %d", first)})
			continue
		}
		category := models.ParseCategory(cell(record, "category"))
		if !category.Valid() {
			result.Errors = append(result.Errors, models.ScheduleImportError{Row: row, Message: "category must be PGT, TGT or PRT"})
			continue
		}
		seen[teacherID] = row

		teacher := &models.Teacher{
			ID:       teacherID,
			FullName: cell(record, "name"),
			Category: category,
			Subjects: splitSubjects(cell(record, "subject")),
		}
		if teacher.FullName == "" {
			teacher.FullName = teacherID
		}
		if err = s.teachers.Upsert(ctx, tx, teacher); err != nil {
			err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to import teacher")
			return nil, err
		}

		periods := make([]string, models.PeriodsPerDay)
		for p := 1; p <= models.PeriodsPerDay; p++ {
			periods[p-1] = cell(record, fmt.Sprintf("period%d", p))
		}
		day := &models.DaySchedule{TeacherID: teacherID, Weekday: int(weekday), Periods: models.NormalizePeriods(periods)}
		if err = s.repo.Upsert(ctx, tx, day); err != nil {
			err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to import schedule")
			return nil, err
		}
		result.Imported++
	}

	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit schedule import")
		return nil, err
	}
	s.cache.Invalidate(ctx, scheduleCacheKey(weekday))
	s.logger.Info("schedule imported", zap.Int("weekday", int(weekday)), zap.Int("imported", result.Imported), zap.Int("errors", len(result.Errors)))
	return result, nil
}

func splitSubjects(raw string) pq.StringArray {
	out := pq.StringArray{}
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ParseWeekday accepts an English day name, its three letter abbreviation, or 0-6 with 0 as Sunday.
func ParseWeekday(raw string) (time.Weekday, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if len(raw) == 1 && raw[0] >= '0' && raw[0] <= '6' {
		return time.Weekday(raw[0] - '0'), nil
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if raw == name || raw == name[:3] {
			return d, nil
		}
	}
	return 0, appErrors.Clone(appErrors.ErrValidation, "invalid weekday "+raw)
}
