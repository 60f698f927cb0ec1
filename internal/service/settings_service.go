package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-arrangement-api/internal/dto"
	"github.com/noah-isme/sma-arrangement-api/internal/models"
	"github.com/noah-isme/sma-arrangement-api/pkg/config"
	appErrors "github.com/noah-isme/sma-arrangement-api/pkg/errors"
)

type autoMarkSettingsStore interface {
	GetAutoMark(ctx context.Context) (*models.AutoMarkSettings, error)
	SaveAutoMark(ctx context.Context, settings *models.AutoMarkSettings) error
}

type suspensionStore interface {
	IsSuspended(ctx context.Context, date time.Time) (bool, error)
	Suspend(ctx context.Context, date time.Time, createdBy *string) error
	Resume(ctx context.Context, date time.Time) (bool, error)
	List(ctx context.Context, from time.Time) ([]models.Suspension, error)
}

// SettingsService manages the auto-absence schedule and per-date planning suspensions.
type SettingsService struct {
	settings    autoMarkSettingsStore
	suspensions suspensionStore
	absences    absenceLookup
	queue       jobDispatcher
	defaults    config.AutoMarkConfig
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewSettingsService wires the settings service. defaults apply until settings are saved.
func NewSettingsService(settings autoMarkSettingsStore, suspensions suspensionStore, absences absenceLookup, queue jobDispatcher, defaults config.AutoMarkConfig, validate *validator.Validate, logger *zap.Logger) *SettingsService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettingsService{
		settings:    settings,
		suspensions: suspensions,
		absences:    absences,
		queue:       queue,
		defaults:    defaults,
		validator:   validate,
		logger:      logger,
	}
}

// AutoMark returns the stored schedule or the configured defaults.
func (s *SettingsService) AutoMark(ctx context.Context) (*models.AutoMarkSettings, error) {
	stored, err := s.settings.GetAutoMark(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &models.AutoMarkSettings{Hour: s.defaults.Hour, Minute: s.defaults.Minute, Enabled: s.defaults.Enabled}, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load auto mark settings")
	}
	return stored, nil
}

// UpdateAutoMark saves a new schedule.
func (s *SettingsService) UpdateAutoMark(ctx context.Context, req dto.AutoMarkSettingsRequest) (*models.AutoMarkSettings, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid auto mark settings")
	}
	settings := &models.AutoMarkSettings{Hour: *req.Hour, Minute: *req.Minute, Enabled: *req.Enabled}
	if err := s.settings.SaveAutoMark(ctx, settings); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save auto mark settings")
	}
	s.logger.Info("auto mark settings updated", zap.Int("hour", settings.Hour), zap.Int("minute", settings.Minute), zap.Bool("enabled", settings.Enabled))
	return settings, nil
}

// Suspend stops automatic planning for date.
func (s *SettingsService) Suspend(ctx context.Context, date time.Time, actorID string) error {
	var createdBy *string
	if actorID != "" {
		createdBy = &actorID
	}
	if err := s.suspensions.Suspend(ctx, dateOnly(date), createdBy); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to suspend arrangements")
	}
	s.logger.Info("arrangements suspended", zap.String("date", date.Format("2006-01-02")), zap.String("actor_id", actorID))
	return nil
}

// Resume lifts a suspension and queues planning for every teacher already marked absent
// on that date. Planning is idempotent so absences planned before the suspension are kept.
func (s *SettingsService) Resume(ctx context.Context, date time.Time) (int, error) {
	date = dateOnly(date)
	removed, err := s.suspensions.Resume(ctx, date)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resume arrangements")
	}
	if !removed {
		return 0, appErrors.Clone(appErrors.ErrNotFound, "date is not suspended")
	}
	if s.absences == nil || s.queue == nil {
		return 0, nil
	}

	ids, err := s.absences.AbsentTeacherIDs(ctx, date)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load absences")
	}
	queued := 0
	for _, id := range ids {
		if err := dispatchPlan(s.queue, id, date); err != nil {
			s.logger.Warn("failed to queue planning", zap.String("teacher_id", id), zap.Error(err))
			continue
		}
		queued++
	}
	s.logger.Info("arrangements resumed", zap.String("date", date.Format("2006-01-02")), zap.Int("queued", queued))
	return queued, nil
}

// IsSuspended reports whether planning is suspended for date.
func (s *SettingsService) IsSuspended(ctx context.Context, date time.Time) (bool, error) {
	return s.suspensions.IsSuspended(ctx, dateOnly(date))
}

// ListSuspensions returns suspensions on or after from.
func (s *SettingsService) ListSuspensions(ctx context.Context, from time.Time) ([]models.Suspension, error) {
	items, err := s.suspensions.List(ctx, dateOnly(from))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list suspensions")
	}
	return items, nil
}
