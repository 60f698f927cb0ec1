package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-arrangement-api/internal/dto"
	"github.com/noah-isme/sma-arrangement-api/internal/models"
	"github.com/noah-isme/sma-arrangement-api/pkg/config"
	appErrors "github.com/noah-isme/sma-arrangement-api/pkg/errors"
)

type memSettingsStore struct {
	stored *models.AutoMarkSettings
}

func (m *memSettingsStore) GetAutoMark(ctx context.Context) (*models.AutoMarkSettings, error) {
	if m.stored == nil {
		return nil, sql.ErrNoRows
	}
	cp := *m.stored
	return &cp, nil
}

func (m *memSettingsStore) SaveAutoMark(ctx context.Context, settings *models.AutoMarkSettings) error {
	cp := *settings
	m.stored = &cp
	return nil
}

type memSuspensionStore struct {
	dates map[string]models.Suspension
}

func (m *memSuspensionStore) IsSuspended(ctx context.Context, date time.Time) (bool, error) {
	_, ok := m.dates[date.Format("2006-01-02")]
	return ok, nil
}

func (m *memSuspensionStore) Suspend(ctx context.Context, date time.Time, createdBy *string) error {
	m.dates[date.Format("2006-01-02")] = models.Suspension{Date: date, CreatedBy: createdBy}
	return nil
}

func (m *memSuspensionStore) Resume(ctx context.Context, date time.Time) (bool, error) {
	key := date.Format("2006-01-02")
	_, ok := m.dates[key]
	delete(m.dates, key)
	return ok, nil
}

func (m *memSuspensionStore) List(ctx context.Context, from time.Time) ([]models.Suspension, error) {
	var out []models.Suspension
	for _, s := range m.dates {
		if !s.Date.Before(from) {
			out = append(out, s)
		}
	}
	return out, nil
}

func TestAutoMarkSettingsFallBackToConfig(t *testing.T) {
	store := &memSettingsStore{}
	svc := NewSettingsService(store, &memSuspensionStore{dates: map[string]models.Suspension{}}, nil, nil,
		config.AutoMarkConfig{Enabled: true, Hour: 10, Minute: 15}, nil, nil)

	got, err := svc.AutoMark(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, got.Hour)
	assert.True(t, got.Enabled)

	hour, minute, enabled := 7, 45, false
	_, err = svc.UpdateAutoMark(context.Background(), dto.AutoMarkSettingsRequest{Hour: &hour, Minute: &minute, Enabled: &enabled})
	require.NoError(t, err)

	got, err = svc.AutoMark(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, got.Hour)
	assert.False(t, got.Enabled)

	bad := 25
	_, err = svc.UpdateAutoMark(context.Background(), dto.AutoMarkSettingsRequest{Hour: &bad, Minute: &minute, Enabled: &enabled})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestResumeQueuesPlanningForAbsentTeachers(t *testing.T) {
	date := time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC)
	suspensions := &memSuspensionStore{dates: map[string]models.Suspension{}}
	queue := &recordingQueue{}
	svc := NewSettingsService(&memSettingsStore{}, suspensions, &stubAbsences{ids: []string{"T001", "T002"}}, queue, config.AutoMarkConfig{}, nil, nil)

	require.NoError(t, svc.Suspend(context.Background(), date, "admin-1"))
	suspended, err := svc.IsSuspended(context.Background(), date)
	require.NoError(t, err)
	assert.True(t, suspended)

	queued, err := svc.Resume(context.Background(), date)
	require.NoError(t, err)
	assert.Equal(t, 2, queued)
	assert.Len(t, queue.jobs, 2)

	_, err = svc.Resume(context.Background(), date)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}
