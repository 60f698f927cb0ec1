package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-arrangement-api/internal/dto"
	"github.com/noah-isme/sma-arrangement-api/internal/models"
	"github.com/noah-isme/sma-arrangement-api/internal/repository"
	"github.com/noah-isme/sma-arrangement-api/pkg/cache"
	appErrors "github.com/noah-isme/sma-arrangement-api/pkg/errors"
	"github.com/noah-isme/sma-arrangement-api/pkg/export"
)

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type arrangementStore interface {
	AppendBatch(ctx context.Context, exec sqlx.ExtContext, records []models.Arrangement) error
	ListByAbsence(ctx context.Context, teacherID string, date time.Time) ([]models.Arrangement, error)
	List(ctx context.Context, filter models.ArrangementFilter) ([]models.Arrangement, int, error)
	ListUncovered(ctx context.Context, date time.Time) ([]models.Arrangement, error)
	OccupiedSlots(ctx context.Context, date time.Time) ([]models.ArrangementSlot, error)
	CoverageTotals(ctx context.Context, from, to time.Time) (*repository.CoverageTotals, error)
	CoverageByPeriod(ctx context.Context, from, to time.Time) ([]models.PeriodCoverage, error)
	CountByQuality(ctx context.Context, from, to time.Time) ([]models.QualityCount, error)
}

type teacherDirectory interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
	ListActive(ctx context.Context) ([]models.Teacher, error)
}

type daySchedulesProvider interface {
	DaySchedules(ctx context.Context, weekday time.Weekday) ([]models.DaySchedule, error)
}

type absenceLookup interface {
	AbsentTeacherIDs(ctx context.Context, date time.Time) ([]string, error)
}

type suspensionChecker interface {
	IsSuspended(ctx context.Context, date time.Time) (bool, error)
}

type workloadLedger interface {
	Counts(ctx context.Context, date time.Time) (map[string]int, error)
	ApplyDeltas(ctx context.Context, exec sqlx.ExtContext, date time.Time, deltas map[string]int) error
	Increment(ctx context.Context, exec sqlx.ExtContext, teacherID string, date time.Time, by int) (int, error)
	Tracker(date time.Time) WorkloadTracker
}

type distributedLocker interface {
	Acquire(ctx context.Context, key string) (func(), error)
}

type datasetRenderer interface {
	Render(data export.Dataset) ([]byte, error)
	ContentType() string
	Extension() string
}

// ArrangementDeps groups the collaborators of ArrangementService.
type ArrangementDeps struct {
	Store       arrangementStore
	Teachers    teacherDirectory
	Schedules   daySchedulesProvider
	Absences    absenceLookup
	Suspensions suspensionChecker
	Workload    workloadLedger
	Locker      distributedLocker
	LockWait    time.Duration
	Tx          txProvider
	Metrics     *MetricsService
	CSV         datasetRenderer
	PDF         datasetRenderer
	Location    *time.Location
}

// ArrangementService plans substitutes for absences and records the results.
type ArrangementService struct {
	store       arrangementStore
	teachers    teacherDirectory
	schedules   daySchedulesProvider
	absences    absenceLookup
	suspensions suspensionChecker
	workload    workloadLedger
	locker      distributedLocker
	lockWait    time.Duration
	tx          txProvider
	metrics     *MetricsService
	csv         datasetRenderer
	pdf         datasetRenderer
	loc         *time.Location
	matcher     *ReplacementMatcher
	locks       *keyedMutex
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewArrangementService wires the planner.
func NewArrangementService(deps ArrangementDeps, validate *validator.Validate, logger *zap.Logger) *ArrangementService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	if deps.CSV == nil {
		deps.CSV = export.NewCSVExporter()
	}
	if deps.PDF == nil {
		deps.PDF = export.NewPDFExporter()
	}
	return &ArrangementService{
		store:       deps.Store,
		teachers:    deps.Teachers,
		schedules:   deps.Schedules,
		absences:    deps.Absences,
		suspensions: deps.Suspensions,
		workload:    deps.Workload,
		locker:      deps.Locker,
		lockWait:    deps.LockWait,
		tx:          deps.Tx,
		metrics:     deps.Metrics,
		csv:         deps.CSV,
		pdf:         deps.PDF,
		loc:         deps.Location,
		matcher:     NewReplacementMatcher(),
		locks:       newKeyedMutex(),
		validator:   validate,
		logger:      logger,
		now:         time.Now,
	}
}

// Today returns the current school-local date.
func (s *ArrangementService) Today() time.Time {
	return dateOnly(s.now().In(s.loc))
}

// ParseDate reads a YYYY-MM-DD date; empty means today.
func (s *ArrangementService) ParseDate(raw string) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return s.Today(), nil
	}
	d, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(raw), time.UTC)
	if err != nil {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, "date must be formatted as YYYY-MM-DD")
	}
	return d, nil
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func planKey(teacherID string, date time.Time) string {
	return teacherID + "|" + date.Format("2006-01-02")
}

const (
	// planAttempts bounds re-planning after a unique violation from a concurrent writer.
	planAttempts     = 3
	lockPollInterval = 50 * time.Millisecond
)

// lockDate serialises every read-then-write of a school day's arrangements, in-process
// and across instances. Two absences on the same date compete for the same substitutes,
// so the lock is per date rather than per absence.
func (s *ArrangementService) lockDate(ctx context.Context, date time.Time) (func(), error) {
	key := date.Format("2006-01-02")
	unlock := s.locks.Lock(key)
	if s.locker == nil {
		return unlock, nil
	}
	release, err := s.acquireDistributed(ctx, "arrangement:"+key)
	if err != nil {
		unlock()
		if errors.Is(err, cache.ErrLockHeld) {
			return nil, appErrors.ErrPlanningInProgress
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to acquire planning lock")
	}
	return func() {
		release()
		unlock()
	}, nil
}

// acquireDistributed polls the shared lock for up to lockWait before giving up.
func (s *ArrangementService) acquireDistributed(ctx context.Context, key string) (func(), error) {
	release, err := s.locker.Acquire(ctx, key)
	if !errors.Is(err, cache.ErrLockHeld) || s.lockWait <= 0 {
		return release, err
	}
	deadline := time.NewTimer(s.lockWait)
	defer deadline.Stop()
	ticker := time.NewTicker(lockPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil, err
		case <-deadline.C:
			return nil, err
		case <-ticker.C:
		}
		release, err = s.locker.Acquire(ctx, key)
		if !errors.Is(err, cache.ErrLockHeld) {
			return release, err
		}
	}
}

// loadRoster snapshots schedules, directory, absences and existing cover for a date.
func (s *ArrangementService) loadRoster(ctx context.Context, date time.Time) (*dayRoster, error) {
	weekday := models.ScheduleWeekday(date)
	days, err := s.schedules.DaySchedules(ctx, weekday)
	if err != nil {
		return nil, err
	}
	teachers, err := s.teachers.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teachers")
	}
	roster := newDayRoster(date, days, teachers)

	if s.absences != nil {
		absent, err := s.absences.AbsentTeacherIDs(ctx, date)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load absences")
		}
		roster.markUnavailable(absent...)
	}
	slots, err := s.store.OccupiedSlots(ctx, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load existing arrangements")
	}
	for _, slot := range slots {
		roster.markBusy(slot.Period, slot.TeacherID)
	}
	return roster, nil
}

// PlanForAbsence assigns substitutes to every scheduled period of an absent teacher.
// Planning is idempotent per teacher and date: when automatic rows already exist they are
// returned unchanged. Periods an operator already covered by hand are left alone. The
// records and the workload increments commit together.
func (s *ArrangementService) PlanForAbsence(ctx context.Context, teacherID string, date time.Time) (*models.PlanResult, error) {
	start := time.Now()
	date = dateOnly(date)
	outcome := "failed"
	defer func() { s.metrics.ObservePlan(outcome, time.Since(start)) }()

	if s.suspensions != nil {
		suspended, err := s.suspensions.IsSuspended(ctx, date)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check suspension")
		}
		if suspended {
			return nil, appErrors.ErrArrangementsSuspended
		}
	}

	unlock, err := s.lockDate(ctx, date)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var result *models.PlanResult
	for attempt := 1; ; attempt++ {
		result, outcome, err = s.planDay(ctx, teacherID, date)
		if err == nil || !repository.IsUniqueViolation(err) || attempt == planAttempts {
			break
		}
		s.logger.Warn("arrangements conflicted with a concurrent write, replanning",
			zap.String("teacher_id", teacherID),
			zap.String("date", date.Format("2006-01-02")),
			zap.Int("attempt", attempt),
		)
	}
	if err != nil {
		outcome = "failed"
		s.logger.Error("failed to persist arrangements", zap.String("teacher_id", teacherID), zap.Time("date", date), zap.Error(err))
		return nil, err
	}
	return result, nil
}

// planDay runs one planning pass. Callers hold the date lock.
func (s *ArrangementService) planDay(ctx context.Context, teacherID string, date time.Time) (*models.PlanResult, string, error) {
	existing, err := s.store.ListByAbsence(ctx, teacherID, date)
	if err != nil {
		return nil, "failed", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load arrangements")
	}
	var manual []models.Arrangement
	handled := make(map[int]bool, len(existing))
	for _, rec := range existing {
		if rec.Status != models.ArrangementManuallyAssigned {
			return &models.PlanResult{TeacherID: teacherID, Date: date, OK: true, Existing: true, Arrangements: existing}, "existing", nil
		}
		manual = append(manual, rec)
		handled[rec.Period] = true
	}

	roster, err := s.loadRoster(ctx, date)
	if err != nil {
		return nil, "failed", err
	}
	counts, err := s.workload.Counts(ctx, date)
	if err != nil {
		return nil, "failed", err
	}
	tracker := newSnapshotTracker(counts)

	records := make([]models.Arrangement, 0, models.PeriodsPerDay)
	for period := 1; period <= models.PeriodsPerDay; period++ {
		if handled[period] {
			continue
		}
		rep, err := s.matcher.Match(ctx, roster, tracker, teacherID, period)
		if err != nil {
			return nil, "failed", err
		}
		if rep.NotNeeded {
			continue
		}
		records = append(records, arrangementFromReplacement(date, rep))
		if rep.Found {
			roster.markBusy(period, rep.TeacherID)
		}
	}

	if len(records) == 0 {
		return &models.PlanResult{TeacherID: teacherID, Date: date, OK: len(manual) > 0, Existing: len(manual) > 0, Arrangements: manual}, "empty", nil
	}
	if err := s.persistPlan(ctx, date, records, tracker.Deltas()); err != nil {
		return nil, "failed", err
	}

	s.metrics.RecordArrangements(records)
	s.logger.Info("arrangements planned",
		zap.String("teacher_id", teacherID),
		zap.String("date", date.Format("2006-01-02")),
		zap.Int("records", len(records)),
		zap.Int("uncovered", countUncovered(records)),
		zap.Int("manual", len(manual)),
	)

	all := append(records, manual...)
	sort.SliceStable(all, func(i, j int) bool { return all[i].Period < all[j].Period })
	return &models.PlanResult{TeacherID: teacherID, Date: date, OK: true, Arrangements: all}, "created", nil
}

// persistPlan writes records and workload deltas all-or-nothing.
func (s *ArrangementService) persistPlan(ctx context.Context, date time.Time, records []models.Arrangement, deltas map[string]int) (err error) {
	if s.tx == nil {
		return appErrors.Clone(appErrors.ErrPersistenceFailure, "transaction provider missing")
	}
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrPersistenceFailure.Code, appErrors.ErrPersistenceFailure.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.store.AppendBatch(ctx, tx, records); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrPersistenceFailure.Code, appErrors.ErrPersistenceFailure.Status, "failed to append arrangements")
		return err
	}
	if err = s.workload.ApplyDeltas(ctx, tx, date, deltas); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrPersistenceFailure.Code, appErrors.ErrPersistenceFailure.Status, "failed to commit arrangements")
		return err
	}
	return nil
}

func arrangementFromReplacement(date time.Time, rep models.Replacement) models.Arrangement {
	rec := models.Arrangement{
		Date:            date,
		AbsentTeacherID: rep.AbsentTeacherID,
		AbsentName:      rep.AbsentName,
		AbsentCategory:  rep.AbsentCategory,
		ClassLabel:      rep.ClassLabel,
		Subject:         rep.Subject,
		Period:          rep.Period,
		MatchQuality:    models.QualityNone,
		Status:          models.ArrangementUncovered,
	}
	if rep.Found {
		id, name, category := rep.TeacherID, rep.Name, rep.Category
		rec.ReplacementTeacherID = &id
		rec.ReplacementName = &name
		rec.ReplacementCategory = &category
		rec.MatchQuality = rep.Quality
		rec.Status = models.ArrangementAssigned
	}
	return rec
}

func countUncovered(records []models.Arrangement) int {
	n := 0
	for _, r := range records {
		if !r.Covered() {
			n++
		}
	}
	return n
}

// FindReplacement runs the matcher for one period and increments the chosen teacher's
// workload counter. No arrangement row is written.
func (s *ArrangementService) FindReplacement(ctx context.Context, teacherID string, date time.Time, period int) (*models.Replacement, error) {
	return s.findReplacement(ctx, teacherID, date, period, false)
}

// PreviewReplacement answers who FindReplacement would pick without touching any counter.
func (s *ArrangementService) PreviewReplacement(ctx context.Context, teacherID string, date time.Time, period int) (*models.Replacement, error) {
	return s.findReplacement(ctx, teacherID, date, period, true)
}

func (s *ArrangementService) findReplacement(ctx context.Context, teacherID string, date time.Time, period int, preview bool) (*models.Replacement, error) {
	if period < 1 || period > models.PeriodsPerDay {
		return nil, appErrors.Clone(appErrors.ErrValidation, "period must be between 1 and 7")
	}
	date = dateOnly(date)
	if !preview {
		unlock, err := s.lockDate(ctx, date)
		if err != nil {
			return nil, err
		}
		defer unlock()
	}
	roster, err := s.loadRoster(ctx, date)
	if err != nil {
		return nil, err
	}

	var tracker WorkloadTracker
	if preview {
		counts, err := s.workload.Counts(ctx, date)
		if err != nil {
			return nil, err
		}
		tracker = newSnapshotTracker(counts)
	} else {
		tracker = s.workload.Tracker(date)
	}

	rep, err := s.matcher.Match(ctx, roster, tracker, teacherID, period)
	if err != nil {
		return nil, err
	}
	return &rep, nil
}

// ManualQuality grades a hand-picked substitute by category alone.
func ManualQuality(absent, replacement models.TeacherCategory) models.MatchQuality {
	switch {
	case absent.Valid() && absent == replacement:
		return models.QualityIdeal
	case adjacentCategories(absent, replacement):
		return models.QualityAcceptable
	default:
		return models.QualitySuboptimal
	}
}

func adjacentCategories(a, b models.TeacherCategory) bool {
	pair := func(x, y models.TeacherCategory) bool { return (a == x && b == y) || (a == y && b == x) }
	return pair(models.CategoryPGT, models.CategoryTGT) || pair(models.CategoryTGT, models.CategoryPRT)
}

// CreateManualArrangement records an operator's choice of substitute without running the
// matcher. The replacement must be free and not already covering another class then.
func (s *ArrangementService) CreateManualArrangement(ctx context.Context, req dto.ManualArrangementRequest) (*models.Arrangement, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid manual arrangement payload")
	}
	date, err := s.ParseDate(req.Date)
	if err != nil {
		return nil, err
	}

	absent, err := s.loadTeacher(ctx, req.AbsentTeacherID, "absent teacher not found")
	if err != nil {
		return nil, err
	}
	replacement, err := s.loadTeacher(ctx, req.ReplacementTeacherID, "replacement teacher not found")
	if err != nil {
		return nil, err
	}
	if !replacement.Active {
		return nil, appErrors.Clone(appErrors.ErrValidation, "replacement teacher is inactive")
	}

	unlock, err := s.lockDate(ctx, date)
	if err != nil {
		return nil, err
	}
	defer unlock()

	roster, err := s.loadRoster(ctx, date)
	if err != nil {
		return nil, err
	}
	if _, away := roster.unavailable[replacement.ID]; away {
		return nil, appErrors.Clone(appErrors.ErrConflict, "replacement teacher is absent on this date")
	}
	if day, ok := roster.schedules[replacement.ID]; ok && !day.IsFree(req.Period) {
		return nil, appErrors.Clone(appErrors.ErrConflict, "replacement teacher has a class in this period")
	}
	if roster.isBusy(req.Period, replacement.ID) {
		return nil, appErrors.Clone(appErrors.ErrConflict, "replacement teacher already covers a class in this period")
	}

	label := strings.TrimSpace(req.ClassLabel)
	if label == "" {
		if day, ok := roster.schedules[absent.ID]; ok && !day.IsFree(req.Period) {
			label = day.Label(req.Period)
		}
	}
	if label == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "class_label is required when the absent teacher has no class in this period")
	}

	replacementID, replacementName, replacementCategory := replacement.ID, replacement.FullName, replacement.Category
	record := models.Arrangement{
		Date:                 date,
		AbsentTeacherID:      absent.ID,
		AbsentName:           absent.FullName,
		AbsentCategory:       absent.Category,
		ReplacementTeacherID: &replacementID,
		ReplacementName:      &replacementName,
		ReplacementCategory:  &replacementCategory,
		ClassLabel:           label,
		Subject:              string(NormalizeSubject(label)),
		Period:               req.Period,
		MatchQuality:         ManualQuality(absent.Category, replacement.Category),
		Status:               models.ArrangementManuallyAssigned,
	}

	if err := s.persistManual(ctx, &record); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "replacement teacher already covers a class in this period")
		}
		return nil, err
	}
	s.metrics.RecordArrangements([]models.Arrangement{record})
	s.logger.Info("manual arrangement created",
		zap.String("absent_teacher_id", absent.ID),
		zap.String("replacement_teacher_id", replacement.ID),
		zap.Int("period", req.Period),
	)
	return &record, nil
}

func (s *ArrangementService) persistManual(ctx context.Context, record *models.Arrangement) (err error) {
	if s.tx == nil {
		return appErrors.Clone(appErrors.ErrPersistenceFailure, "transaction provider missing")
	}
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrPersistenceFailure.Code, appErrors.ErrPersistenceFailure.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	records := []models.Arrangement{*record}
	if err = s.store.AppendBatch(ctx, tx, records); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrPersistenceFailure.Code, appErrors.ErrPersistenceFailure.Status, "failed to append arrangement")
		return err
	}
	*record = records[0]
	if _, err = s.workload.Increment(ctx, tx, *record.ReplacementTeacherID, record.Date, 1); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrPersistenceFailure.Code, appErrors.ErrPersistenceFailure.Status, "failed to commit arrangement")
		return err
	}
	return nil
}

func (s *ArrangementService) loadTeacher(ctx context.Context, id, notFound string) (*models.Teacher, error) {
	teacher, err := s.teachers.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, notFound)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	return teacher, nil
}

// List returns arrangements plus pagination data.
func (s *ArrangementService) List(ctx context.Context, filter models.ArrangementFilter) ([]models.Arrangement, *models.Pagination, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown arrangement status")
	}
	records, total, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list arrangements")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 500 {
		size = 100
	}
	return records, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// ListUncovered returns the periods of date still needing a substitute.
func (s *ArrangementService) ListUncovered(ctx context.Context, date time.Time) ([]models.Arrangement, error) {
	records, err := s.store.ListUncovered(ctx, dateOnly(date))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list uncovered arrangements")
	}
	return records, nil
}

// Coverage summarises how many vacated periods were covered between from and to inclusive.
func (s *ArrangementService) Coverage(ctx context.Context, from, to time.Time) (*models.CoverageSummary, error) {
	from, to = dateOnly(from), dateOnly(to)
	if to.Before(from) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "to must not be before from")
	}
	totals, err := s.store.CoverageTotals(ctx, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute coverage")
	}
	byPeriod, err := s.store.CoverageByPeriod(ctx, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute coverage")
	}
	byQuality, err := s.store.CountByQuality(ctx, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute coverage")
	}
	return &models.CoverageSummary{
		From:      from,
		To:        to,
		Total:     totals.Total,
		Covered:   totals.Covered,
		Uncovered: totals.Total - totals.Covered,
		Manual:    totals.Manual,
		Rate:      coverageRate(totals.Covered, totals.Total),
		ByQuality: byQuality,
		ByPeriod:  byPeriod,
	}, nil
}

// coverageRate returns covered/total as a percentage rounded to two places.
func coverageRate(covered, total int) decimal.Decimal {
	if total <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(covered)).
		Mul(decimal.NewFromInt(100)).
		DivRound(decimal.NewFromInt(int64(total)), 2)
}

// ExportFile is a rendered arrangement sheet.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

var arrangementExportHeaders = []string{"Period", "Class", "Subject", "Absent Teacher", "Replacement", "Category", "Quality", "Status"}

// Export renders a day's arrangements as csv or pdf.
func (s *ArrangementService) Export(ctx context.Context, date time.Time, format string) (*ExportFile, error) {
	var renderer datasetRenderer
	switch strings.ToLower(format) {
	case "", "csv":
		renderer = s.csv
	case "pdf":
		renderer = s.pdf
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	date = dateOnly(date)
	records, _, err := s.store.List(ctx, models.ArrangementFilter{Date: &date, PageSize: 500})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load arrangements")
	}

	dataset := export.Dataset{
		Title:    "Substitute Arrangements",
		Subtitle: date.Format("Monday, 02 January 2006"),
		Headers:  arrangementExportHeaders,
		Widths:   map[string]float64{"Period": 0.6, "Absent Teacher": 1.6, "Replacement": 1.6, "Class": 1.4},
	}
	for _, r := range records {
		row := map[string]string{
			"Period":         strconv.Itoa(r.Period),
			"Class":          r.ClassLabel,
			"Subject":        r.Subject,
			"Absent Teacher": fmt.Sprintf("%s (%s)", r.AbsentName, r.AbsentTeacherID),
			"Replacement":    "-",
			"Category":       "-",
			"Quality":        string(r.MatchQuality),
			"Status":         string(r.Status),
		}
		if r.Covered() {
			row["Replacement"] = fmt.Sprintf("%s (%s)", deref(r.ReplacementName), *r.ReplacementTeacherID)
			if r.ReplacementCategory != nil {
				row["Category"] = string(*r.ReplacementCategory)
			}
		}
		dataset.Rows = append(dataset.Rows, row)
	}

	body, err := renderer.Render(dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	return &ExportFile{
		Filename:    fmt.Sprintf("arrangements-%s.%s", date.Format("2006-01-02"), renderer.Extension()),
		ContentType: renderer.ContentType(),
		Body:        body,
	}, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
