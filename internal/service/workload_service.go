package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-arrangement-api/internal/models"
	"github.com/noah-isme/sma-arrangement-api/pkg/config"
	appErrors "github.com/noah-isme/sma-arrangement-api/pkg/errors"
)

const lifetimeWindowKey = "all"

type workloadRepository interface {
	Get(ctx context.Context, teacherID, windowKey string) (int, error)
	CountsByWindow(ctx context.Context, windowKey string) (map[string]int, error)
	Increment(ctx context.Context, exec sqlx.ExtContext, teacherID, windowKey string, by int) (int, error)
	ApplyDeltas(ctx context.Context, exec sqlx.ExtContext, windowKey string, deltas map[string]int) error
	List(ctx context.Context, windowKey string) ([]models.WorkloadEntry, error)
}

// WorkloadTracker is the counter view the replacement matcher reads and bumps.
type WorkloadTracker interface {
	Get(ctx context.Context, teacherID string) (int, error)
	Increment(ctx context.Context, teacherID string, by int) error
}

// WorkloadService keeps substitution counters under a configurable window.
type WorkloadService struct {
	repo   workloadRepository
	window string
	locks  *keyedMutex
	logger *zap.Logger
}

// NewWorkloadService builds the service. Unknown windows fall back to lifetime counting.
func NewWorkloadService(repo workloadRepository, window string, logger *zap.Logger) *WorkloadService {
	switch window {
	case config.WorkloadWindowDaily, config.WorkloadWindowWeekly:
	default:
		window = config.WorkloadWindowLifetime
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WorkloadService{repo: repo, window: window, locks: newKeyedMutex(), logger: logger}
}

// Window returns the configured window policy.
func (s *WorkloadService) Window() string {
	return s.window
}

// WindowKey returns the counter bucket that an arrangement on date falls into.
func (s *WorkloadService) WindowKey(date time.Time) string {
	switch s.window {
	case config.WorkloadWindowDaily:
		return date.Format("2006-01-02")
	case config.WorkloadWindowWeekly:
		year, week := date.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", year, week)
	default:
		return lifetimeWindowKey
	}
}

// Get returns the current count for the teacher in date's window.
func (s *WorkloadService) Get(ctx context.Context, teacherID string, date time.Time) (int, error) {
	count, err := s.repo.Get(ctx, teacherID, s.WindowKey(date))
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load workload")
	}
	return count, nil
}

// Increment bumps a teacher's counter, serialised per teacher and window.
func (s *WorkloadService) Increment(ctx context.Context, exec sqlx.ExtContext, teacherID string, date time.Time, by int) (int, error) {
	key := s.WindowKey(date)
	unlock := s.locks.Lock(teacherID + "|" + key)
	defer unlock()
	count, err := s.repo.Increment(ctx, exec, teacherID, key, by)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrPersistenceFailure.Code, appErrors.ErrPersistenceFailure.Status, "failed to update workload")
	}
	s.logger.Debug("workload incremented", zap.String("teacher_id", teacherID), zap.String("window", key), zap.Int("count", count))
	return count, nil
}

// Counts snapshots every counter of date's window.
func (s *WorkloadService) Counts(ctx context.Context, date time.Time) (map[string]int, error) {
	counts, err := s.repo.CountsByWindow(ctx, s.WindowKey(date))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load workloads")
	}
	return counts, nil
}

// ApplyDeltas persists buffered increments, normally inside the planning transaction.
func (s *WorkloadService) ApplyDeltas(ctx context.Context, exec sqlx.ExtContext, date time.Time, deltas map[string]int) error {
	if len(deltas) == 0 {
		return nil
	}
	if err := s.repo.ApplyDeltas(ctx, exec, s.WindowKey(date), deltas); err != nil {
		return appErrors.Wrap(err, appErrors.ErrPersistenceFailure.Code, appErrors.ErrPersistenceFailure.Status, "failed to update workloads")
	}
	return nil
}

// List returns the leaderboard for date's window.
func (s *WorkloadService) List(ctx context.Context, date time.Time) ([]models.WorkloadEntry, error) {
	entries, err := s.repo.List(ctx, s.WindowKey(date))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list workloads")
	}
	return entries, nil
}

// Tracker returns a WorkloadTracker that writes straight through to storage.
func (s *WorkloadService) Tracker(date time.Time) WorkloadTracker {
	return &persistentTracker{svc: s, date: date}
}

type persistentTracker struct {
	svc  *WorkloadService
	date time.Time
}

func (t *persistentTracker) Get(ctx context.Context, teacherID string) (int, error) {
	return t.svc.Get(ctx, teacherID, t.date)
}

func (t *persistentTracker) Increment(ctx context.Context, teacherID string, by int) error {
	_, err := t.svc.Increment(ctx, nil, teacherID, t.date, by)
	return err
}

// snapshotTracker buffers increments on top of a loaded snapshot so a whole plan can
// be committed, or discarded, at once.
type snapshotTracker struct {
	base   map[string]int
	deltas map[string]int
}

func newSnapshotTracker(base map[string]int) *snapshotTracker {
	if base == nil {
		base = map[string]int{}
	}
	return &snapshotTracker{base: base, deltas: map[string]int{}}
}

func (t *snapshotTracker) Get(_ context.Context, teacherID string) (int, error) {
	return t.base[teacherID] + t.deltas[teacherID], nil
}

func (t *snapshotTracker) Increment(_ context.Context, teacherID string, by int) error {
	t.deltas[teacherID] += by
	return nil
}

// Deltas returns the buffered increments.
func (t *snapshotTracker) Deltas() map[string]int {
	return t.deltas
}
