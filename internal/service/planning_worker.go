package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-arrangement-api/internal/models"
	appErrors "github.com/noah-isme/sma-arrangement-api/pkg/errors"
	"github.com/noah-isme/sma-arrangement-api/pkg/jobs"
)

// PlanJobType tags queue jobs that plan cover for an absence.
const PlanJobType = "plan_absence"

// PlanJobPayload identifies the absence a planning job covers.
type PlanJobPayload struct {
	TeacherID string
	Date      time.Time
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

type absencePlanner interface {
	PlanForAbsence(ctx context.Context, teacherID string, date time.Time) (*models.PlanResult, error)
}

// NewPlanJob builds the queue job for an absence. The job ID doubles as the dedupe key.
func NewPlanJob(teacherID string, date time.Time) jobs.Job {
	date = dateOnly(date)
	return jobs.Job{
		ID:      planKey(teacherID, date),
		Type:    PlanJobType,
		Payload: PlanJobPayload{TeacherID: teacherID, Date: date},
	}
}

// dispatchPlan queues planning for an absence. A job already pending for the same
// absence counts as queued.
func dispatchPlan(queue jobDispatcher, teacherID string, date time.Time) error {
	if err := queue.Enqueue(NewPlanJob(teacherID, date)); err != nil && !errors.Is(err, jobs.ErrDuplicate) {
		return err
	}
	return nil
}

// PlanningWorker drains planning jobs from the queue.
type PlanningWorker struct {
	planner absencePlanner
	metrics *MetricsService
	logger  *zap.Logger
}

// NewPlanningWorker constructs a worker.
func NewPlanningWorker(planner absencePlanner, metrics *MetricsService, logger *zap.Logger) *PlanningWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PlanningWorker{planner: planner, metrics: metrics, logger: logger}
}

// Handle processes a queue job. Outcomes that retrying cannot change are logged and
// swallowed so the queue does not retry them.
func (w *PlanningWorker) Handle(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(PlanJobPayload)
	if !ok || job.Type != PlanJobType {
		w.metrics.RecordQueueJob("rejected")
		w.logger.Sugar().Warnw("discarding unknown job", "job_id", job.ID, "type", job.Type)
		return nil
	}

	result, err := w.planner.PlanForAbsence(ctx, payload.TeacherID, payload.Date)
	switch {
	case err == nil:
		w.metrics.RecordQueueJob("succeeded")
		w.logger.Sugar().Infow("planning job finished",
			"job_id", job.ID,
			"records", len(result.Arrangements),
			"existing", result.Existing,
		)
		return nil
	case errors.Is(err, appErrors.ErrArrangementsSuspended):
		w.metrics.RecordQueueJob("suspended")
		w.logger.Sugar().Infow("planning skipped, arrangements suspended", "job_id", job.ID)
		return nil
	case errors.Is(err, appErrors.ErrMissingSchedule):
		w.metrics.RecordQueueJob("failed")
		w.logger.Sugar().Warnw("planning skipped, no schedule", "job_id", job.ID, "error", err)
		return nil
	default:
		w.metrics.RecordQueueJob("retried")
		return fmt.Errorf("plan %s: %w", job.ID, err)
	}
}
