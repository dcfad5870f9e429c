package scheduler

import (
	"context"
	"time"

	"group_task_scheduler/internal/app"
	"group_task_scheduler/internal/domain/calendar"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const dailyRunTimeout = 10 * time.Minute

// TaskScheduler wires the daily batch run and the yearly holiday cache
// refresh onto cron. The batch is idempotent per day, so an extra trigger is
// harmless.
type TaskScheduler struct {
	cronEngine             *cron.Cron
	runner                 *app.Runner
	calendar               *calendar.BusinessCalendar
	clock                  app.Clock
	logger                 *logrus.Entry
	cronSpecDaily          string
	cronSpecHolidayRefresh string
}

func NewTaskScheduler(
	runner *app.Runner,
	cal *calendar.BusinessCalendar,
	clock app.Clock,
	cronSpecDaily string, // e.g., "0 6 * * *" (6:00 AM daily)
	cronSpecHolidayRefresh string, // e.g., "0 4 1 1 *" (once a year)
	logger *logrus.Entry,
) *TaskScheduler {
	return &TaskScheduler{
		cronEngine:             cron.New(cron.WithLocation(time.Local)), // Use server's local time for cron
		runner:                 runner,
		calendar:               cal,
		clock:                  clock,
		logger:                 logger,
		cronSpecDaily:          cronSpecDaily,
		cronSpecHolidayRefresh: cronSpecHolidayRefresh,
	}
}

func (s *TaskScheduler) Start() {
	s.logger.Info("Starting task scheduler...")

	_, err := s.cronEngine.AddFunc(s.cronSpecDaily, func() {
		s.logger.Info("Cron job triggered for daily schedule run")
		ctx, cancel := context.WithTimeout(context.Background(), dailyRunTimeout)
		defer cancel()
		if _, err := s.runner.RunDaily(ctx); err != nil {
			// Setup-level failure: the whole batch aborted.
			s.logger.WithError(err).Error("Daily schedule run aborted")
		}
	})
	if err != nil {
		s.logger.WithError(err).Fatal("Could not add daily run cron job")
	}

	_, err = s.cronEngine.AddFunc(s.cronSpecHolidayRefresh, func() {
		s.logger.Info("Cron job triggered for holiday cache refresh")
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
		defer cancel()
		year := s.clock.Now().Year()
		for _, y := range []int{year, year + 1} {
			if err := s.calendar.WarmYear(ctx, y); err != nil {
				s.logger.WithError(err).WithField("year", y).Error("Holiday cache refresh failed")
			}
		}
	})
	if err != nil {
		s.logger.WithError(err).Fatal("Could not add holiday refresh cron job")
	}

	s.cronEngine.Start()
	s.logger.Info("Task scheduler started with jobs")
}

func (s *TaskScheduler) Stop() {
	s.logger.Info("Stopping task scheduler...")
	ctx := s.cronEngine.Stop() // Stops the scheduler from adding new jobs, waits for running jobs.
	<-ctx.Done()               // Wait for graceful shutdown
	s.logger.Info("Task scheduler gracefully stopped")
}
