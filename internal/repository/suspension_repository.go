package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-arrangement-api/internal/models"
)

// SuspensionRepository tracks dates on which automatic arrangements are paused.
type SuspensionRepository struct {
	db *sqlx.DB
}

// NewSuspensionRepository builds the repository.
func NewSuspensionRepository(db *sqlx.DB) *SuspensionRepository {
	return &SuspensionRepository{db: db}
}

// IsSuspended reports whether arrangements are paused for the date.
func (r *SuspensionRepository) IsSuspended(ctx context.Context, date time.Time) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM arrangement_suspensions WHERE date = $1)`
	var suspended bool
	if err := r.db.GetContext(ctx, &suspended, query, date); err != nil {
		return false, fmt.Errorf("check suspension: %w", err)
	}
	return suspended, nil
}

// Suspend pauses the date; suspending twice is a no-op.
func (r *SuspensionRepository) Suspend(ctx context.Context, date time.Time, createdBy *string) error {
	const query = `INSERT INTO arrangement_suspensions (date, created_by, created_at) VALUES ($1, $2, $3)
ON CONFLICT (date) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, date, createdBy, time.Now().UTC()); err != nil {
		return fmt.Errorf("suspend arrangements: %w", err)
	}
	return nil
}

// Resume lifts a suspension and reports whether one existed.
func (r *SuspensionRepository) Resume(ctx context.Context, date time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM arrangement_suspensions WHERE date = $1`, date)
	if err != nil {
		return false, fmt.Errorf("resume arrangements: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("resume arrangements rows: %w", err)
	}
	return n > 0, nil
}

// List returns suspensions from the given date onwards.
func (r *SuspensionRepository) List(ctx context.Context, from time.Time) ([]models.Suspension, error) {
	const query = `SELECT date, created_by, created_at FROM arrangement_suspensions WHERE date >= $1 ORDER BY date ASC`
	var rows []models.Suspension
	if err := r.db.SelectContext(ctx, &rows, query, from); err != nil {
		return nil, fmt.Errorf("list suspensions: %w", err)
	}
	return rows, nil
}
