package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sma-arrangement-api/internal/models"
)

const arrangementColumns = `id, date, absent_teacher_id, absent_name, absent_category, replacement_teacher_id, replacement_name,
replacement_category, class_label, subject, period, match_quality, status, created_at`

// IsUniqueViolation reports whether err is a PostgreSQL unique constraint violation.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// ArrangementRepository is the append-only store of substitute arrangements.
type ArrangementRepository struct {
	db *sqlx.DB
}

// NewArrangementRepository builds the repository.
func NewArrangementRepository(db *sqlx.DB) *ArrangementRepository {
	return &ArrangementRepository{db: db}
}

func (r *ArrangementRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// AppendBatch inserts records; callers pass a transaction to make the batch atomic.
func (r *ArrangementRepository) AppendBatch(ctx context.Context, exec sqlx.ExtContext, records []models.Arrangement) error {
	if len(records) == 0 {
		return nil
	}
	target := r.exec(exec)
	now := time.Now().UTC()

	const query = `INSERT INTO arrangements (id, date, absent_teacher_id, absent_name, absent_category, replacement_teacher_id,
replacement_name, replacement_category, class_label, subject, period, match_quality, status, created_at)
VALUES (:id, :date, :absent_teacher_id, :absent_name, :absent_category, :replacement_teacher_id,
:replacement_name, :replacement_category, :class_label, :subject, :period, :match_quality, :status, :created_at)`

	for i := range records {
		rec := &records[i]
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = now
		}
		if _, err := sqlx.NamedExecContext(ctx, target, query, rec); err != nil {
			return fmt.Errorf("append arrangement: %w", err)
		}
	}
	return nil
}

// ListByAbsence returns every row recorded for an absent teacher on a date.
func (r *ArrangementRepository) ListByAbsence(ctx context.Context, teacherID string, date time.Time) ([]models.Arrangement, error) {
	query := fmt.Sprintf(`SELECT %s FROM arrangements WHERE absent_teacher_id = $1 AND date = $2 ORDER BY period ASC, created_at ASC`, arrangementColumns)
	var records []models.Arrangement
	if err := r.db.SelectContext(ctx, &records, query, teacherID, date); err != nil {
		return nil, fmt.Errorf("list arrangements by absence: %w", err)
	}
	return records, nil
}

// List returns arrangements matching the filter with a total count.
func (r *ArrangementRepository) List(ctx context.Context, filter models.ArrangementFilter) ([]models.Arrangement, int, error) {
	where := []string{"1=1"}
	var args []interface{}
	if filter.Date != nil {
		where = append(where, fmt.Sprintf("date = $%d", len(args)+1))
		args = append(args, *filter.Date)
	}
	if filter.From != nil {
		where = append(where, fmt.Sprintf("date >= $%d", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		where = append(where, fmt.Sprintf("date <= $%d", len(args)+1))
		args = append(args, *filter.To)
	}
	if filter.TeacherID != "" {
		where = append(where, fmt.Sprintf("(absent_teacher_id = $%d OR replacement_teacher_id = $%d)", len(args)+1, len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.Status != "" {
		where = append(where, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	whereClause := strings.Join(where, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 500 {
		size = 100
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s FROM arrangements WHERE %s ORDER BY date DESC, period ASC, absent_teacher_id ASC LIMIT %d OFFSET %d",
		arrangementColumns, whereClause, size, offset)
	var records []models.Arrangement
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list arrangements: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) FROM arrangements WHERE %s", whereClause), args...); err != nil {
		return nil, 0, fmt.Errorf("count arrangements: %w", err)
	}
	return records, total, nil
}

// ListUncovered returns uncovered rows of a day that no manual arrangement has filled.
func (r *ArrangementRepository) ListUncovered(ctx context.Context, date time.Time) ([]models.Arrangement, error) {
	query := fmt.Sprintf(`SELECT %s FROM arrangements a
WHERE a.date = $1 AND a.status = $2
  AND NOT EXISTS (
    SELECT 1 FROM arrangements m
    WHERE m.absent_teacher_id = a.absent_teacher_id AND m.date = a.date AND m.period = a.period
      AND m.replacement_teacher_id IS NOT NULL)
ORDER BY a.period ASC, a.absent_teacher_id ASC`, arrangementColumns)
	var records []models.Arrangement
	if err := r.db.SelectContext(ctx, &records, query, date, models.ArrangementUncovered); err != nil {
		return nil, fmt.Errorf("list uncovered arrangements: %w", err)
	}
	return records, nil
}

// OccupiedSlots returns the replacement teachers already placed on a date.
func (r *ArrangementRepository) OccupiedSlots(ctx context.Context, date time.Time) ([]models.ArrangementSlot, error) {
	const query = `SELECT replacement_teacher_id, period FROM arrangements
WHERE date = $1 AND replacement_teacher_id IS NOT NULL
ORDER BY period ASC`
	var slots []models.ArrangementSlot
	if err := r.db.SelectContext(ctx, &slots, query, date); err != nil {
		return nil, fmt.Errorf("list occupied slots: %w", err)
	}
	return slots, nil
}

// CoverageTotals holds slot-level coverage counts for a date range.
type CoverageTotals struct {
	Total   int `db:"total"`
	Covered int `db:"covered"`
	Manual  int `db:"manual"`
}

const coverageSlots = `WITH slots AS (
  SELECT absent_teacher_id, date, period,
         BOOL_OR(replacement_teacher_id IS NOT NULL) AS covered,
         BOOL_OR(status = 'MANUALLY_ASSIGNED') AS manual
  FROM arrangements
  WHERE date BETWEEN $1 AND $2
  GROUP BY absent_teacher_id, date, period)
`

// CoverageTotals counts vacated slots in the range, collapsing manual fixes onto the
// uncovered row they resolve.
func (r *ArrangementRepository) CoverageTotals(ctx context.Context, from, to time.Time) (*CoverageTotals, error) {
	query := coverageSlots + `SELECT COUNT(*) AS total,
       COUNT(*) FILTER (WHERE covered) AS covered,
       COUNT(*) FILTER (WHERE manual) AS manual
FROM slots`
	var totals CoverageTotals
	if err := r.db.GetContext(ctx, &totals, query, from, to); err != nil {
		return nil, fmt.Errorf("coverage totals: %w", err)
	}
	return &totals, nil
}

// CoverageByPeriod breaks slot coverage down per period.
func (r *ArrangementRepository) CoverageByPeriod(ctx context.Context, from, to time.Time) ([]models.PeriodCoverage, error) {
	query := coverageSlots + `SELECT period, COUNT(*) AS total, COUNT(*) FILTER (WHERE covered) AS covered
FROM slots GROUP BY period ORDER BY period ASC`
	var rows []models.PeriodCoverage
	if err := r.db.SelectContext(ctx, &rows, query, from, to); err != nil {
		return nil, fmt.Errorf("coverage by period: %w", err)
	}
	return rows, nil
}

// CountByQuality counts rows per match quality.
func (r *ArrangementRepository) CountByQuality(ctx context.Context, from, to time.Time) ([]models.QualityCount, error) {
	const query = `SELECT match_quality, COUNT(*) AS count FROM arrangements
WHERE date BETWEEN $1 AND $2
GROUP BY match_quality ORDER BY match_quality ASC`
	var rows []models.QualityCount
	if err := r.db.SelectContext(ctx, &rows, query, from, to); err != nil {
		return nil, fmt.Errorf("count arrangements by quality: %w", err)
	}
	return rows, nil
}
