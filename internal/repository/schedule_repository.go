package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-arrangement-api/internal/models"
)

// ScheduleRepository provides persistence for per-weekday teacher timetables.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository creates a new schedule repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

func (r *ScheduleRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// GetDay returns the timetable of one teacher for a weekday.
func (r *ScheduleRepository) GetDay(ctx context.Context, teacherID string, weekday time.Weekday) (*models.DaySchedule, error) {
	const query = `SELECT teacher_id, weekday, periods, updated_at FROM teacher_schedules WHERE teacher_id = $1 AND weekday = $2`
	var day models.DaySchedule
	if err := r.db.GetContext(ctx, &day, query, teacherID, int(weekday)); err != nil {
		return nil, err
	}
	day.Periods = models.NormalizePeriods(day.Periods)
	return &day, nil
}

// ListByWeekday returns every timetable row for the weekday ordered by teacher id.
func (r *ScheduleRepository) ListByWeekday(ctx context.Context, weekday time.Weekday) ([]models.DaySchedule, error) {
	const query = `SELECT teacher_id, weekday, periods, updated_at FROM teacher_schedules WHERE weekday = $1 ORDER BY teacher_id ASC`
	var days []models.DaySchedule
	if err := r.db.SelectContext(ctx, &days, query, int(weekday)); err != nil {
		return nil, fmt.Errorf("list schedules by weekday: %w", err)
	}
	for i := range days {
		days[i].Periods = models.NormalizePeriods(days[i].Periods)
	}
	return days, nil
}

// ListFree returns active teachers with no class in the given weekday/period.
func (r *ScheduleRepository) ListFree(ctx context.Context, weekday time.Weekday, period int) ([]models.FreeTeacher, error) {
	if period < 1 || period > models.PeriodsPerDay {
		return nil, fmt.Errorf("period %d out of range", period)
	}
	const query = `SELECT t.id AS teacher_id, t.full_name, t.category, t.subjects
FROM teacher_schedules s
JOIN teachers t ON t.id = s.teacher_id
WHERE s.weekday = $1 AND t.active = TRUE
  AND UPPER(TRIM(COALESCE(s.periods[$2], ''))) IN ('', 'FREE')
ORDER BY t.id ASC`
	var free []models.FreeTeacher
	if err := r.db.SelectContext(ctx, &free, query, int(weekday), period); err != nil {
		return nil, fmt.Errorf("list free teachers: %w", err)
	}
	return free, nil
}

// Upsert stores a day timetable, replacing any previous periods.
func (r *ScheduleRepository) Upsert(ctx context.Context, exec sqlx.ExtContext, day *models.DaySchedule) error {
	day.Periods = models.NormalizePeriods(day.Periods)
	day.UpdatedAt = time.Now().UTC()
	const query = `INSERT INTO teacher_schedules (teacher_id, weekday, periods, updated_at)
VALUES (:teacher_id, :weekday, :periods, :updated_at)
ON CONFLICT (teacher_id, weekday) DO UPDATE
SET periods = EXCLUDED.periods,
    updated_at = EXCLUDED.updated_at`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, day); err != nil {
		return fmt.Errorf("upsert schedule: %w", err)
	}
	return nil
}

// DeleteDay removes a teacher's timetable for a weekday.
func (r *ScheduleRepository) DeleteDay(ctx context.Context, teacherID string, weekday time.Weekday) error {
	const query = `DELETE FROM teacher_schedules WHERE teacher_id = $1 AND weekday = $2`
	if _, err := r.db.ExecContext(ctx, query, teacherID, int(weekday)); err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	return nil
}
