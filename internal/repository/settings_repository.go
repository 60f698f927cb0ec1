package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-arrangement-api/internal/models"
)

// SettingsRepository persists the auto-mark timing row.
type SettingsRepository struct {
	db *sqlx.DB
}

// NewSettingsRepository builds the repository.
func NewSettingsRepository(db *sqlx.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// GetAutoMark returns the stored settings or sql.ErrNoRows when never saved.
func (r *SettingsRepository) GetAutoMark(ctx context.Context) (*models.AutoMarkSettings, error) {
	const query = `SELECT hour, minute, enabled, updated_at FROM auto_mark_settings WHERE id = 1`
	var settings models.AutoMarkSettings
	if err := r.db.GetContext(ctx, &settings, query); err != nil {
		return nil, err
	}
	return &settings, nil
}

// SaveAutoMark upserts the single settings row.
func (r *SettingsRepository) SaveAutoMark(ctx context.Context, settings *models.AutoMarkSettings) error {
	settings.UpdatedAt = time.Now().UTC()
	const query = `INSERT INTO auto_mark_settings (id, hour, minute, enabled, updated_at)
VALUES (1, $1, $2, $3, $4)
ON CONFLICT (id) DO UPDATE
SET hour = EXCLUDED.hour, minute = EXCLUDED.minute, enabled = EXCLUDED.enabled, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.ExecContext(ctx, query, settings.Hour, settings.Minute, settings.Enabled, settings.UpdatedAt); err != nil {
		return fmt.Errorf("save auto mark settings: %w", err)
	}
	return nil
}
