package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-arrangement-api/internal/models"
	"github.com/noah-isme/sma-arrangement-api/pkg/cache"
)

type autoMarkSettingsReader interface {
	AutoMark(ctx context.Context) (*models.AutoMarkSettings, error)
}

type absenceAutoMarker interface {
	AutoMarkAbsent(ctx context.Context, date time.Time) (int, error)
}

// AutoMarker marks unmarked teachers absent once a day at the configured time.
type AutoMarker struct {
	settings autoMarkSettingsReader
	marker   absenceAutoMarker
	locker   distributedLocker
	interval time.Duration
	loc      *time.Location
	logger   *zap.Logger
	now      func() time.Time

	mu      sync.Mutex
	lastRun time.Time
}

// NewAutoMarker builds the marker. locker may be nil on single instance deployments.
func NewAutoMarker(settings autoMarkSettingsReader, marker absenceAutoMarker, locker distributedLocker, interval time.Duration, loc *time.Location, logger *zap.Logger) *AutoMarker {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AutoMarker{settings: settings, marker: marker, locker: locker, interval: interval, loc: loc, logger: logger, now: time.Now}
}

// Start polls until ctx is cancelled.
func (a *AutoMarker) Start(ctx context.Context) {
	ticker := time.NewTicker(a.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := a.Tick(ctx); err != nil {
					a.logger.Sugar().Warnw("auto mark tick failed", "error", err)
				}
			}
		}
	}()
}

// Tick runs the daily pass when it is due and reports whether it ran.
func (a *AutoMarker) Tick(ctx context.Context) (bool, error) {
	settings, err := a.settings.AutoMark(ctx)
	if err != nil {
		return false, err
	}
	if !settings.Enabled {
		return false, nil
	}

	now := a.now().In(a.loc)
	today := dateOnly(now)
	if now.Weekday() == time.Sunday {
		return false, nil
	}
	due := time.Date(now.Year(), now.Month(), now.Day(), settings.Hour, settings.Minute, 0, 0, a.loc)
	if now.Before(due) {
		return false, nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.lastRun.Equal(today) {
		return false, nil
	}

	if a.locker != nil {
		release, err := a.locker.Acquire(ctx, "automark:"+today.Format("2006-01-02"))
		if err != nil {
			if errors.Is(err, cache.ErrLockHeld) {
				a.lastRun = today
				return false, nil
			}
			return false, err
		}
		defer release()
	}

	marked, err := a.marker.AutoMarkAbsent(ctx, today)
	if err != nil {
		return false, err
	}
	a.lastRun = today
	a.logger.Sugar().Infow("auto mark finished", "date", today.Format("2006-01-02"), "marked", marked)
	return true, nil
}
