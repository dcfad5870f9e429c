package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"group_task_scheduler/internal/domain/execution"
	"group_task_scheduler/internal/domain/notify"
	"group_task_scheduler/internal/domain/schedule"
	idb "group_task_scheduler/internal/infra/database"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Summary aggregates per-status counts for one batch run.
type Summary struct {
	Total      int
	NotDue     int
	Succeeded  int
	Skipped    int
	Failed     int
	Duplicates int
}

type disposition int

const (
	dispositionNotDue disposition = iota
	dispositionSucceeded
	dispositionSkipped
	dispositionFailed
	dispositionDuplicate
)

// Runner is the daily batch orchestrator. It loads the day's candidate
// schedules, claims the per-(schedule, day) execution record as a cooperative
// lock, materializes each due schedule inside an isolated failure boundary,
// and always finalizes the record with the resulting outcome. One schedule's
// failure never aborts the rest of the batch; only a setup-level failure
// (loading candidates) does.
type Runner struct {
	schedules    schedule.Repository
	recorder     execution.Recorder
	materializer *Materializer
	notifier     notify.Dispatcher
	clock        Clock
	workers      int
	logger       *logrus.Entry
}

func NewRunner(
	schedules schedule.Repository,
	recorder execution.Recorder,
	materializer *Materializer,
	notifier notify.Dispatcher,
	clock Clock,
	workers int,
	logger *logrus.Entry,
) *Runner {
	if workers < 1 {
		workers = 1
	}
	return &Runner{
		schedules:    schedules,
		recorder:     recorder,
		materializer: materializer,
		notifier:     notifier,
		clock:        clock,
		workers:      workers,
		logger:       logger,
	}
}

// RunDaily evaluates every candidate schedule against today's date.
func (r *Runner) RunDaily(ctx context.Context) (*Summary, error) {
	now := r.clock.Now()
	runDate := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	log := r.logger.WithField("run_date", runDate.Format("2006-01-02"))

	candidates, err := r.schedules.ListRunCandidates(ctx, runDate)
	if err != nil {
		return nil, fmt.Errorf("failed to load run candidates: %w", err)
	}
	log.WithField("candidates", len(candidates)).Info("Starting daily schedule run")

	summary := &Summary{Total: len(candidates)}
	var mu sync.Mutex

	g := new(errgroup.Group)
	g.SetLimit(r.workers)
	for _, def := range candidates {
		def := def
		g.Go(func() error {
			d := r.processSchedule(ctx, def, runDate)
			mu.Lock()
			switch d {
			case dispositionNotDue:
				summary.NotDue++
			case dispositionSucceeded:
				summary.Succeeded++
			case dispositionSkipped:
				summary.Skipped++
			case dispositionFailed:
				summary.Failed++
			case dispositionDuplicate:
				summary.Duplicates++
			}
			mu.Unlock()
			return nil
		})
	}
	// Workers never return errors; failures are isolated per schedule.
	_ = g.Wait()

	log.WithFields(logrus.Fields{
		"total":      summary.Total,
		"not_due":    summary.NotDue,
		"succeeded":  summary.Succeeded,
		"skipped":    summary.Skipped,
		"failed":     summary.Failed,
		"duplicates": summary.Duplicates,
	}).Info("Daily schedule run finished")
	return summary, nil
}

func (r *Runner) processSchedule(ctx context.Context, def *schedule.Definition, runDate time.Time) (d disposition) {
	log := r.logger.WithFields(logrus.Fields{
		"schedule_id": def.ID,
		"run_date":    runDate.Format("2006-01-02"),
	})

	if !def.ShouldRunOn(runDate) {
		return dispositionNotDue
	}

	// Claim before materializing: the unique (schedule_id, run_date) insert
	// is the cooperative lock against concurrent or repeated triggering.
	rec, err := r.recorder.Claim(ctx, def.ID, runDate)
	if err != nil {
		if errors.Is(err, idb.ErrDuplicateRunAttempt) {
			log.Debug("Run already attempted today")
			return dispositionDuplicate
		}
		log.WithError(err).Error("Failed to claim execution record")
		return dispositionFailed
	}

	defer func() {
		if p := recover(); p != nil {
			log.WithField("panic", p).Error("Recovered from panic while materializing schedule")
			r.finalize(ctx, log, rec, execution.StatusFailed, "", fmt.Sprintf("panic: %v", p), nil, nil)
			d = dispositionFailed
		}
	}()

	outcome, err := r.materializer.Materialize(ctx, def, runDate)
	if err != nil {
		log.WithError(err).Error("Failed to materialize schedule")
		r.finalize(ctx, log, rec, execution.StatusFailed, "", err.Error(), nil, nil)
		return dispositionFailed
	}

	var created, deleted []int64
	if outcome.Result != nil {
		created = outcome.Result.CreatedTaskIDs
		deleted = outcome.Result.DeletedTaskIDs
	}
	r.finalize(ctx, log, rec, outcome.Status, outcome.Note, "", created, deleted)

	if outcome.Status != execution.StatusSuccess {
		return dispositionSkipped
	}

	// Best-effort: a dispatch failure never fails a recorded run.
	event := notify.TaskCreatedEvent{
		ScheduleID: def.ID,
		GroupID:    def.GroupID,
		Title:      def.Title,
		UserIDs:    outcome.UserIDs,
		DueDate:    outcome.DueDate,
	}
	if err := r.notifier.TaskCreated(ctx, event); err != nil {
		log.WithError(err).Warn("Failed to dispatch task-created notification")
	}
	return dispositionSucceeded
}

func (r *Runner) finalize(
	ctx context.Context,
	log *logrus.Entry,
	rec *execution.Record,
	status execution.Status,
	note, errorMessage string,
	created, deleted []int64,
) {
	rec.Status = status
	rec.ExecutedAt = r.clock.Now()
	rec.CreatedTaskIDs = created
	rec.DeletedTaskIDs = deleted
	rec.Note = sql.NullString{String: note, Valid: note != ""}
	rec.ErrorMessage = sql.NullString{String: errorMessage, Valid: errorMessage != ""}

	if err := r.recorder.Finalize(ctx, rec); err != nil {
		log.WithError(err).Error("Failed to finalize execution record")
	}
}
