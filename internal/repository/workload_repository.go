package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-arrangement-api/internal/models"
)

// WorkloadRepository stores substitution counters per teacher and window.
type WorkloadRepository struct {
	db *sqlx.DB
}

// NewWorkloadRepository builds the repository.
func NewWorkloadRepository(db *sqlx.DB) *WorkloadRepository {
	return &WorkloadRepository{db: db}
}

func (r *WorkloadRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Get returns a teacher's count for the window, zero when unseen.
func (r *WorkloadRepository) Get(ctx context.Context, teacherID, windowKey string) (int, error) {
	const query = `SELECT count FROM workload_counters WHERE teacher_id = $1 AND window_key = $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, teacherID, windowKey); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("get workload: %w", err)
	}
	return count, nil
}

// CountsByWindow returns every non-zero counter of the window keyed by teacher.
func (r *WorkloadRepository) CountsByWindow(ctx context.Context, windowKey string) (map[string]int, error) {
	const query = `SELECT teacher_id, window_key, count, updated_at FROM workload_counters WHERE window_key = $1`
	var rows []models.WorkloadCounter
	if err := r.db.SelectContext(ctx, &rows, query, windowKey); err != nil {
		return nil, fmt.Errorf("list workload counters: %w", err)
	}
	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.TeacherID] = row.Count
	}
	return counts, nil
}

// Increment adds by to the counter atomically and returns the new value.
func (r *WorkloadRepository) Increment(ctx context.Context, exec sqlx.ExtContext, teacherID, windowKey string, by int) (int, error) {
	const query = `INSERT INTO workload_counters (teacher_id, window_key, count, updated_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (teacher_id, window_key) DO UPDATE
SET count = workload_counters.count + EXCLUDED.count,
    updated_at = EXCLUDED.updated_at
RETURNING count`
	var count int
	if err := sqlx.GetContext(ctx, r.exec(exec), &count, query, teacherID, windowKey, by, time.Now().UTC()); err != nil {
		return 0, fmt.Errorf("increment workload: %w", err)
	}
	return count, nil
}

// ApplyDeltas increments several counters in teacher id order.
func (r *WorkloadRepository) ApplyDeltas(ctx context.Context, exec sqlx.ExtContext, windowKey string, deltas map[string]int) error {
	ids := make([]string, 0, len(deltas))
	for id, delta := range deltas {
		if delta > 0 {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	for _, id := range ids {
		if _, err := r.Increment(ctx, exec, id, windowKey, deltas[id]); err != nil {
			return err
		}
	}
	return nil
}

// List returns the counters of a window joined with teacher names, busiest first.
func (r *WorkloadRepository) List(ctx context.Context, windowKey string) ([]models.WorkloadEntry, error) {
	const query = `SELECT w.teacher_id, w.window_key, w.count, w.updated_at, t.full_name, t.category
FROM workload_counters w
JOIN teachers t ON t.id = w.teacher_id
WHERE w.window_key = $1
ORDER BY w.count DESC, w.teacher_id ASC`
	var entries []models.WorkloadEntry
	if err := r.db.SelectContext(ctx, &entries, query, windowKey); err != nil {
		return nil, fmt.Errorf("list workloads: %w", err)
	}
	return entries, nil
}
