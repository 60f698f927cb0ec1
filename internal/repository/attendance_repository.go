package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-arrangement-api/internal/models"
)

// AttendanceRepository persists daily teacher attendance marks.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// Upsert records a mark, overwriting any earlier mark for the same teacher and day.
func (r *AttendanceRepository) Upsert(ctx context.Context, record *models.TeacherAttendance) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.MarkedAt.IsZero() {
		record.MarkedAt = time.Now().UTC()
	}
	const query = `INSERT INTO teacher_attendance (id, teacher_id, date, status, is_auto, marked_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (teacher_id, date) DO UPDATE
SET status = EXCLUDED.status,
    is_auto = EXCLUDED.is_auto,
    marked_at = EXCLUDED.marked_at
RETURNING id`
	if err := r.db.GetContext(ctx, &record.ID, query,
		record.ID, record.TeacherID, record.Date, record.Status, record.IsAuto, record.MarkedAt,
	); err != nil {
		return fmt.Errorf("upsert teacher attendance: %w", err)
	}
	return nil
}

// MarkAbsentIfUnmarked inserts an automatic absence unless the teacher already has a
// mark for the date. It reports whether a row was written.
func (r *AttendanceRepository) MarkAbsentIfUnmarked(ctx context.Context, teacherID string, date, markedAt time.Time) (bool, error) {
	const query = `INSERT INTO teacher_attendance (id, teacher_id, date, status, is_auto, marked_at)
VALUES ($1, $2, $3, $4, TRUE, $5)
ON CONFLICT (teacher_id, date) DO NOTHING`
	res, err := r.db.ExecContext(ctx, query, uuid.NewString(), teacherID, date, models.AttendanceAbsent, markedAt)
	if err != nil {
		return false, fmt.Errorf("auto mark attendance: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("auto mark attendance rows: %w", err)
	}
	return affected > 0, nil
}

// FindByTeacherDate returns a single mark.
func (r *AttendanceRepository) FindByTeacherDate(ctx context.Context, teacherID string, date time.Time) (*models.TeacherAttendance, error) {
	const query = `SELECT id, teacher_id, date, status, is_auto, marked_at FROM teacher_attendance WHERE teacher_id = $1 AND date = $2`
	var record models.TeacherAttendance
	if err := r.db.GetContext(ctx, &record, query, teacherID, date); err != nil {
		return nil, err
	}
	return &record, nil
}

// ListByDate returns all marks of a day joined with teacher names.
func (r *AttendanceRepository) ListByDate(ctx context.Context, date time.Time) ([]models.TeacherAttendanceRecord, error) {
	const query = `SELECT a.id, a.teacher_id, a.date, a.status, a.is_auto, a.marked_at, t.full_name, t.category
FROM teacher_attendance a
JOIN teachers t ON t.id = a.teacher_id
WHERE a.date = $1
ORDER BY a.teacher_id ASC`
	var records []models.TeacherAttendanceRecord
	if err := r.db.SelectContext(ctx, &records, query, date); err != nil {
		return nil, fmt.Errorf("list teacher attendance: %w", err)
	}
	return records, nil
}

// AbsentTeacherIDs returns the teachers marked absent on the date.
func (r *AttendanceRepository) AbsentTeacherIDs(ctx context.Context, date time.Time) ([]string, error) {
	const query = `SELECT teacher_id FROM teacher_attendance WHERE date = $1 AND status = $2 ORDER BY teacher_id ASC`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, date, models.AttendanceAbsent); err != nil {
		return nil, fmt.Errorf("list absent teachers: %w", err)
	}
	return ids, nil
}

// UnmarkedActiveTeacherIDs returns active teachers with no mark for the date.
func (r *AttendanceRepository) UnmarkedActiveTeacherIDs(ctx context.Context, date time.Time) ([]string, error) {
	const query = `SELECT t.id FROM teachers t
WHERE t.active = TRUE
  AND NOT EXISTS (SELECT 1 FROM teacher_attendance a WHERE a.teacher_id = t.id AND a.date = $1)
ORDER BY t.id ASC`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, date); err != nil {
		return nil, fmt.Errorf("list unmarked teachers: %w", err)
	}
	return ids, nil
}
