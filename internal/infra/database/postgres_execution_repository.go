package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"group_task_scheduler/internal/domain/execution"

	"github.com/lib/pq"
)

// Custom errors specific to the execution recorder
var (
	ErrDuplicateRunAttempt     = fmt.Errorf("execution record already exists for this schedule and day")
	ErrExecutionRecordNotFound = fmt.Errorf("execution record not found")
	ErrRecordAlreadyFinalized  = fmt.Errorf("execution record already finalized")
)

const pqUniqueViolation = "23505"

const defaultHistoryLimit = 50

type PostgresExecutionRepository struct {
	db *sql.DB
}

func NewPostgresExecutionRepository(db *sql.DB) *PostgresExecutionRepository {
	return &PostgresExecutionRepository{db: db}
}

// Claim inserts the (schedule_id, run_date) row in the transient RUNNING
// state. The unique index on the pair turns a concurrent or repeated attempt
// into ErrDuplicateRunAttempt, which is the cooperative lock the runner
// relies on.
func (r *PostgresExecutionRepository) Claim(ctx context.Context, scheduleID int64, runDate time.Time) (*execution.Record, error) {
	day := time.Date(runDate.Year(), runDate.Month(), runDate.Day(), 0, 0, 0, 0, runDate.Location())

	query := `INSERT INTO scheduled_task_executions (scheduled_task_id, run_date, status, executed_at)
               VALUES ($1, $2, $3, NOW())
               RETURNING id, executed_at`
	rec := &execution.Record{
		ScheduleID: scheduleID,
		RunDate:    day,
		Status:     execution.StatusRunning,
	}
	err := r.db.QueryRowContext(ctx, query, scheduleID, day, execution.StatusRunning).Scan(&rec.ID, &rec.ExecutedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return nil, ErrDuplicateRunAttempt
		}
		return nil, fmt.Errorf("error claiming execution record: %w", err)
	}
	return rec, nil
}

// Finalize writes the terminal outcome of a claimed record. The status guard
// makes finalized records immutable.
func (r *PostgresExecutionRepository) Finalize(ctx context.Context, rec *execution.Record) error {
	query := `UPDATE scheduled_task_executions
               SET status = $1, created_task_ids = $2, deleted_task_ids = $3,
                   executed_at = $4, note = $5, error_message = $6
               WHERE id = $7 AND status = $8`
	res, err := r.db.ExecContext(ctx, query,
		rec.Status, pq.Array(rec.CreatedTaskIDs), pq.Array(rec.DeletedTaskIDs),
		rec.ExecutedAt, rec.Note, rec.ErrorMessage, rec.ID, execution.StatusRunning,
	)
	if err != nil {
		return fmt.Errorf("error finalizing execution record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error checking finalize result: %w", err)
	}
	if affected == 0 {
		return ErrRecordAlreadyFinalized
	}
	return nil
}

func (r *PostgresExecutionRepository) ListBySchedule(ctx context.Context, scheduleID int64, status *execution.Status, limit int) ([]*execution.Record, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	query := `SELECT id, scheduled_task_id, run_date, created_task_ids, deleted_task_ids,
                      executed_at, status, note, error_message
               FROM scheduled_task_executions
               WHERE scheduled_task_id = $1 AND status != $2`
	args := []any{scheduleID, execution.StatusRunning}
	if status != nil {
		query += ` AND status = $3`
		args = append(args, *status)
	}
	query += fmt.Sprintf(` ORDER BY executed_at DESC LIMIT %d`, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying execution history: %w", err)
	}
	defer rows.Close()

	records := make([]*execution.Record, 0)
	for rows.Next() {
		rec := &execution.Record{}
		var created, deleted pq.Int64Array
		if err := rows.Scan(
			&rec.ID, &rec.ScheduleID, &rec.RunDate, &created, &deleted,
			&rec.ExecutedAt, &rec.Status, &rec.Note, &rec.ErrorMessage,
		); err != nil {
			return nil, fmt.Errorf("error scanning execution record: %w", err)
		}
		rec.CreatedTaskIDs = created
		rec.DeletedTaskIDs = deleted
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating execution records: %w", err)
	}
	return records, nil
}
