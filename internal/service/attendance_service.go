package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-arrangement-api/internal/dto"
	"github.com/noah-isme/sma-arrangement-api/internal/models"
	appErrors "github.com/noah-isme/sma-arrangement-api/pkg/errors"
)

type attendanceStore interface {
	Upsert(ctx context.Context, record *models.TeacherAttendance) error
	MarkAbsentIfUnmarked(ctx context.Context, teacherID string, date, markedAt time.Time) (bool, error)
	ListByDate(ctx context.Context, date time.Time) ([]models.TeacherAttendanceRecord, error)
	UnmarkedActiveTeacherIDs(ctx context.Context, date time.Time) ([]string, error)
}

type teacherLookup interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

// AttendanceService records teacher attendance and triggers planning for absences.
type AttendanceService struct {
	repo      attendanceStore
	teachers  teacherLookup
	planner   absencePlanner
	queue     jobDispatcher
	metrics   *MetricsService
	loc       *time.Location
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewAttendanceService builds the service. When queue is nil absences are planned inline.
func NewAttendanceService(repo attendanceStore, teachers teacherLookup, planner absencePlanner, queue jobDispatcher, metrics *MetricsService, loc *time.Location, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &AttendanceService{
		repo:      repo,
		teachers:  teachers,
		planner:   planner,
		queue:     queue,
		metrics:   metrics,
		loc:       loc,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *AttendanceService) today() time.Time {
	return dateOnly(s.now().In(s.loc))
}

// Mark stores a teacher's attendance. Marking someone absent plans their cover inline; a
// repeated absent mark returns the arrangements already planned. When another instance
// holds the planning lock the absence is handed to the queue, which returns that plan once stored.
func (s *AttendanceService) Mark(ctx context.Context, req dto.MarkAttendanceRequest) (*models.MarkAttendanceResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}
	date := s.today()
	if req.Date != "" {
		parsed, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "date must be formatted as YYYY-MM-DD")
		}
		date = parsed
	}

	if _, err := s.teachers.FindByID(ctx, req.TeacherID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}

	record := models.TeacherAttendance{
		TeacherID: req.TeacherID,
		Date:      date,
		Status:    models.AttendanceStatus(strings.ToUpper(req.Status)),
		MarkedAt:  s.now().UTC(),
	}
	if err := s.repo.Upsert(ctx, &record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record attendance")
	}
	s.logger.Info("attendance marked", zap.String("teacher_id", record.TeacherID), zap.String("status", string(record.Status)))

	result := &models.MarkAttendanceResult{Attendance: record}
	if record.Status != models.AttendanceAbsent {
		return result, nil
	}

	plan, err := s.planner.PlanForAbsence(ctx, record.TeacherID, date)
	switch {
	case err == nil:
	case errors.Is(err, appErrors.ErrArrangementsSuspended):
		return result, nil
	case s.queue != nil && errors.Is(err, appErrors.ErrPlanningInProgress):
		if qerr := dispatchPlan(s.queue, record.TeacherID, date); qerr != nil {
			return nil, appErrors.Wrap(qerr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to queue planning")
		}
		s.logger.Warn("planning deferred to queue", zap.String("teacher_id", record.TeacherID), zap.Error(err))
		result.Queued = true
		return result, nil
	default:
		return nil, err
	}
	result.Plan = plan
	return result, nil
}

// ListByDate returns every mark for date.
func (s *AttendanceService) ListByDate(ctx context.Context, date time.Time) ([]models.TeacherAttendanceRecord, error) {
	records, err := s.repo.ListByDate(ctx, dateOnly(date))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance")
	}
	return records, nil
}

// AutoMarkAbsent marks every active teacher without a mark on date as absent and
// plans their cover. Teachers marked concurrently by an operator keep that mark.
func (s *AttendanceService) AutoMarkAbsent(ctx context.Context, date time.Time) (int, error) {
	date = dateOnly(date)
	ids, err := s.repo.UnmarkedActiveTeacherIDs(ctx, date)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list unmarked teachers")
	}

	marked := 0
	for _, id := range ids {
		inserted, err := s.repo.MarkAbsentIfUnmarked(ctx, id, date, s.now().UTC())
		if err != nil {
			s.logger.Warn("auto mark failed", zap.String("teacher_id", id), zap.Error(err))
			continue
		}
		if !inserted {
			continue
		}
		marked++
		s.planAbsence(ctx, id, date)
	}
	s.metrics.RecordAutoMarked(marked)
	s.logger.Info("auto marked absences", zap.String("date", date.Format("2006-01-02")), zap.Int("marked", marked))
	return marked, nil
}

func (s *AttendanceService) planAbsence(ctx context.Context, teacherID string, date time.Time) {
	if s.queue != nil {
		if err := dispatchPlan(s.queue, teacherID, date); err != nil {
			s.logger.Warn("failed to queue planning", zap.String("teacher_id", teacherID), zap.Error(err))
		}
		return
	}
	if _, err := s.planner.PlanForAbsence(ctx, teacherID, date); err != nil && !errors.Is(err, appErrors.ErrArrangementsSuspended) {
		s.logger.Warn("planning failed", zap.String("teacher_id", teacherID), zap.Error(err))
	}
}
