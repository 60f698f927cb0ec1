package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-arrangement-api/internal/models"
	"github.com/noah-isme/sma-arrangement-api/pkg/cache"
)

type staticSettings struct {
	settings models.AutoMarkSettings
}

func (s *staticSettings) AutoMark(ctx context.Context) (*models.AutoMarkSettings, error) {
	cp := s.settings
	return &cp, nil
}

type countingMarker struct {
	dates []time.Time
}

func (c *countingMarker) AutoMarkAbsent(ctx context.Context, date time.Time) (int, error) {
	c.dates = append(c.dates, date)
	return 3, nil
}

type heldLocker struct{}

func (heldLocker) Acquire(ctx context.Context, key string) (func(), error) {
	return nil, cache.ErrLockHeld
}

func TestAutoMarkerRunsOncePerDayAfterDueTime(t *testing.T) {
	marker := &countingMarker{}
	a := NewAutoMarker(&staticSettings{settings: models.AutoMarkSettings{Hour: 9, Minute: 30, Enabled: true}}, marker, nil, time.Minute, time.UTC, nil)

	a.now = func() time.Time { return time.Date(2026, 10, 12, 9, 29, 0, 0, time.UTC) }
	ran, err := a.Tick(context.Background())
	require.NoError(t, err)
	assert.False(t, ran)

	a.now = func() time.Time { return time.Date(2026, 10, 12, 9, 31, 0, 0, time.UTC) }
	ran, err = a.Tick(context.Background())
	require.NoError(t, err)
	assert.True(t, ran)

	ran, err = a.Tick(context.Background())
	require.NoError(t, err)
	assert.False(t, ran)

	a.now = func() time.Time { return time.Date(2026, 10, 13, 10, 0, 0, 0, time.UTC) }
	ran, err = a.Tick(context.Background())
	require.NoError(t, err)
	assert.True(t, ran)

	require.Len(t, marker.dates, 2)
	assert.Equal(t, time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC), marker.dates[0])
}

func TestAutoMarkerSkipsDisabledAndSunday(t *testing.T) {
	marker := &countingMarker{}
	settings := &staticSettings{settings: models.AutoMarkSettings{Hour: 0, Minute: 0, Enabled: false}}
	a := NewAutoMarker(settings, marker, nil, time.Minute, time.UTC, nil)
	a.now = func() time.Time { return time.Date(2026, 10, 12, 12, 0, 0, 0, time.UTC) }

	ran, err := a.Tick(context.Background())
	require.NoError(t, err)
	assert.False(t, ran)

	settings.settings.Enabled = true
	a.now = func() time.Time { return time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC) }
	ran, err = a.Tick(context.Background())
	require.NoError(t, err)
	assert.False(t, ran)
	assert.Empty(t, marker.dates)
}

func TestAutoMarkerDefersToOtherInstance(t *testing.T) {
	marker := &countingMarker{}
	a := NewAutoMarker(&staticSettings{settings: models.AutoMarkSettings{Hour: 8, Enabled: true}}, marker, heldLocker{}, time.Minute, time.UTC, nil)
	a.now = func() time.Time { return time.Date(2026, 10, 12, 9, 0, 0, 0, time.UTC) }

	ran, err := a.Tick(context.Background())
	require.NoError(t, err)
	assert.False(t, ran)
	assert.Empty(t, marker.dates)
}
