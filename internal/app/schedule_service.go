package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"group_task_scheduler/internal/domain/execution"
	"group_task_scheduler/internal/domain/schedule"

	"github.com/sirupsen/logrus"
)

// ScheduleService exposes schedule administration to external collaborators:
// creation with early pattern validation, pause/resume, the admin dashboard
// views, and execution history.
type ScheduleService struct {
	schedules schedule.Repository
	recorder  execution.Recorder
	clock     Clock
	logger    *logrus.Entry
}

func NewScheduleService(
	schedules schedule.Repository,
	recorder execution.Recorder,
	clock Clock,
	logger *logrus.Entry,
) *ScheduleService {
	return &ScheduleService{
		schedules: schedules,
		recorder:  recorder,
		clock:     clock,
		logger:    logger,
	}
}

// Create validates and persists a new schedule. Malformed patterns and
// inverted active periods are rejected here, never at run time.
func (s *ScheduleService) Create(ctx context.Context, def *schedule.Definition) error {
	if err := def.Validate(); err != nil {
		return err
	}
	def.IsActive = true
	def.PausedAt = sql.NullTime{}

	if err := s.schedules.Create(ctx, def); err != nil {
		return fmt.Errorf("failed to create schedule: %w", err)
	}
	s.logger.WithFields(logrus.Fields{
		"schedule_id": def.ID,
		"group_id":    def.GroupID,
	}).Info("Schedule created")
	return nil
}

// Update validates and persists edits to an existing schedule.
func (s *ScheduleService) Update(ctx context.Context, def *schedule.Definition) error {
	if err := def.Validate(); err != nil {
		return err
	}
	if err := s.schedules.Update(ctx, def); err != nil {
		return fmt.Errorf("failed to update schedule: %w", err)
	}
	return nil
}

// Delete retires a schedule with a soft delete.
func (s *ScheduleService) Delete(ctx context.Context, id int64) error {
	if err := s.schedules.SoftDelete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete schedule %d: %w", id, err)
	}
	s.logger.WithField("schedule_id", id).Info("Schedule deleted")
	return nil
}

// Pause deactivates a schedule. IsActive and PausedAt toggle together in a
// single update.
func (s *ScheduleService) Pause(ctx context.Context, id int64) (*schedule.Definition, error) {
	def, err := s.schedules.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get schedule %d for pause: %w", id, err)
	}
	if err := def.Pause(s.clock.Now()); err != nil {
		return def, err
	}
	if err := s.schedules.Update(ctx, def); err != nil {
		return nil, fmt.Errorf("failed to pause schedule %d: %w", id, err)
	}
	s.logger.WithField("schedule_id", id).Info("Schedule paused")
	return def, nil
}

// Resume reactivates a paused schedule.
func (s *ScheduleService) Resume(ctx context.Context, id int64) (*schedule.Definition, error) {
	def, err := s.schedules.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get schedule %d for resume: %w", id, err)
	}
	if err := def.Resume(); err != nil {
		return def, err
	}
	if err := s.schedules.Update(ctx, def); err != nil {
		return nil, fmt.Errorf("failed to resume schedule %d: %w", id, err)
	}
	s.logger.WithField("schedule_id", id).Info("Schedule resumed")
	return def, nil
}

// ListDueToday returns the schedules that would fire on today's date, for
// admin dashboards. It applies the same filter and match the runner uses.
func (s *ScheduleService) ListDueToday(ctx context.Context) ([]*schedule.Definition, error) {
	now := s.clock.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	candidates, err := s.schedules.ListRunCandidates(ctx, today)
	if err != nil {
		return nil, fmt.Errorf("failed to list run candidates: %w", err)
	}

	due := make([]*schedule.Definition, 0, len(candidates))
	for _, def := range candidates {
		if def.ShouldRunOn(today) {
			due = append(due, def)
		}
	}
	return due, nil
}

// ExecutionHistory returns a schedule's audit log, newest first, optionally
// filtered by terminal status.
func (s *ScheduleService) ExecutionHistory(ctx context.Context, scheduleID int64, status *execution.Status, limit int) ([]*execution.Record, error) {
	records, err := s.recorder.ListBySchedule(ctx, scheduleID, status, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list execution history for schedule %d: %w", scheduleID, err)
	}
	return records, nil
}
