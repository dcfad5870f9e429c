package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"group_task_scheduler/internal/domain/calendar"
	"group_task_scheduler/internal/domain/execution"
	"group_task_scheduler/internal/domain/group"
	"group_task_scheduler/internal/domain/schedule"
	"group_task_scheduler/internal/domain/task"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	noteHolidaySkip       = "run date is a holiday or weekend"
	noteNoEligibleUsers   = "no eligible assignee"
	noteDeletedPreviously = "retired open instances from a previous run"
)

// MaterializeOutcome is the non-error result of materializing one due
// schedule: either a batch of created instances or a recorded skip reason.
type MaterializeOutcome struct {
	Status  execution.Status
	Note    string
	Result  *task.RunResult
	UserIDs []int64
	DueDate *time.Time
}

// Materializer converts a due schedule into concrete task instances. All
// mutations for one run happen inside a single transaction in the task
// writer; any failure rolls back entirely.
type Materializer struct {
	tasks    task.Writer
	groups   group.Directory
	calendar *calendar.BusinessCalendar
	dueDates *DueDateCalculator
	logger   *logrus.Entry
}

func NewMaterializer(
	tasks task.Writer,
	groups group.Directory,
	cal *calendar.BusinessCalendar,
	dueDates *DueDateCalculator,
	logger *logrus.Entry,
) *Materializer {
	return &Materializer{
		tasks:    tasks,
		groups:   groups,
		calendar: cal,
		dueDates: dueDates,
		logger:   logger,
	}
}

// Materialize runs the lifecycle for one (schedule, runDate) pair. Skip
// conditions return a skipped outcome with no mutation; persistence errors
// return an error and the caller records the run as failed.
func (m *Materializer) Materialize(ctx context.Context, def *schedule.Definition, runDate time.Time) (*MaterializeOutcome, error) {
	log := m.logger.WithFields(logrus.Fields{
		"schedule_id": def.ID,
		"run_date":    runDate.Format("2006-01-02"),
	})

	if def.SkipHolidays && !m.calendar.IsBusinessDay(runDate) {
		log.Info("Skipping run: holiday or weekend")
		return &MaterializeOutcome{Status: execution.StatusSkipped, Note: noteHolidaySkip}, nil
	}

	userIDs, err := m.resolveAssignees(ctx, def)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve assignees for schedule %d: %w", def.ID, err)
	}
	if len(userIDs) == 0 {
		log.Info("Skipping run: no eligible assignee")
		return &MaterializeOutcome{Status: execution.StatusSkipped, Note: noteNoEligibleUsers}, nil
	}

	var dueDate sql.NullTime
	var duePtr *time.Time
	if def.DueDurationDays != 0 || def.DueDurationHours != 0 {
		due := m.dueDates.Compute(runDate, def.DueDurationDays, def.DueDurationHours, def.MoveToNextBusinessDay)
		dueDate = sql.NullTime{Time: due, Valid: true}
		duePtr = &due
	}

	runID := uuid.NewString()
	instances := make([]*task.Instance, 0, len(userIDs))
	for _, userID := range userIDs {
		instances = append(instances, &task.Instance{
			UserID:           userID,
			GroupID:          def.GroupID,
			ScheduleID:       def.ID,
			RunID:            runID,
			Title:            def.Title,
			Description:      def.Description,
			DueDate:          dueDate,
			Reward:           def.Reward,
			RequiresApproval: def.RequiresApproval,
			RequiresImage:    def.RequiresImage,
		})
	}

	result, err := m.tasks.ApplyRun(ctx, task.RunMutation{
		ScheduleID:         def.ID,
		DeleteOpenPrevious: def.DeleteIncompletePrevious,
		TagNames:           def.TagNames,
		Instances:          instances,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to apply run mutation for schedule %d: %w", def.ID, err)
	}

	note := ""
	if len(result.DeletedTaskIDs) > 0 {
		note = noteDeletedPreviously
	}
	log.WithFields(logrus.Fields{
		"run_id":  runID,
		"created": len(result.CreatedTaskIDs),
		"deleted": len(result.DeletedTaskIDs),
	}).Info("Schedule materialized")

	return &MaterializeOutcome{
		Status:  execution.StatusSuccess,
		Note:    note,
		Result:  result,
		UserIDs: userIDs,
		DueDate: duePtr,
	}, nil
}

// resolveAssignees returns the explicit assignee when one is set, otherwise
// fans out to every eligible group member when auto-assign is enabled.
func (m *Materializer) resolveAssignees(ctx context.Context, def *schedule.Definition) ([]int64, error) {
	if def.AssignedUserID.Valid {
		return []int64{def.AssignedUserID.Int64}, nil
	}
	if !def.AutoAssign {
		return nil, nil
	}
	return m.groups.ListEligibleAssignees(ctx, def.GroupID)
}
