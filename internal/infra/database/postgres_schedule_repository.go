package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"group_task_scheduler/internal/domain/schedule"

	"github.com/lib/pq"
)

// Custom errors
var ErrScheduleNotFound = fmt.Errorf("schedule not found")

type PostgresScheduleRepository struct {
	db *sql.DB
}

func NewPostgresScheduleRepository(db *sql.DB) *PostgresScheduleRepository {
	return &PostgresScheduleRepository{db: db}
}

const scheduleColumns = `id, group_id, created_by, title, description, requires_image, requires_approval, reward,
	assigned_user_id, auto_assign, pattern_type, pattern_weekdays, pattern_month_days, pattern_last_day,
	pattern_interval_days, pattern_anchor_date, due_duration_days, due_duration_hours, start_date, end_date,
	skip_holidays, move_to_next_business_day, delete_incomplete_previous, is_active, paused_at,
	created_at, updated_at, deleted_at`

func (r *PostgresScheduleRepository) Create(ctx context.Context, def *schedule.Definition) error {
	txn, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for schedule create: %w", err)
	}
	defer txn.Rollback() // Rollback if not committed

	query := `INSERT INTO scheduled_group_tasks (group_id, created_by, title, description, requires_image,
               requires_approval, reward, assigned_user_id, auto_assign, pattern_type, pattern_weekdays,
               pattern_month_days, pattern_last_day, pattern_interval_days, pattern_anchor_date,
               due_duration_days, due_duration_hours, start_date, end_date, skip_holidays,
               move_to_next_business_day, delete_incomplete_previous, is_active, paused_at)
               VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24)
               RETURNING id, created_at, updated_at`
	err = txn.QueryRowContext(ctx, query,
		def.GroupID, def.CreatorID, def.Title, def.Description, def.RequiresImage,
		def.RequiresApproval, def.Reward, def.AssignedUserID, def.AutoAssign, def.Pattern.Type,
		pq.Array(weekdaysToInts(def.Pattern.Weekdays)), pq.Array(intsToInt64s(def.Pattern.MonthDays)),
		def.Pattern.LastDay, def.Pattern.EveryNDays, nullableDate(def.Pattern.Anchor),
		def.DueDurationDays, def.DueDurationHours, def.StartDate, def.EndDate, def.SkipHolidays,
		def.MoveToNextBusinessDay, def.DeleteIncompletePrevious, def.IsActive, def.PausedAt,
	).Scan(&def.ID, &def.CreatedAt, &def.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error creating schedule: %w", err)
	}

	if err := syncTagNames(ctx, txn, def.ID, def.TagNames); err != nil {
		return err
	}
	return txn.Commit()
}

func (r *PostgresScheduleRepository) GetByID(ctx context.Context, id int64) (*schedule.Definition, error) {
	query := `SELECT ` + scheduleColumns + ` FROM scheduled_group_tasks WHERE id = $1 AND deleted_at IS NULL`
	def, err := scanSchedule(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrScheduleNotFound
		}
		return nil, fmt.Errorf("error getting schedule by ID: %w", err)
	}
	if err := r.loadTags(ctx, []*schedule.Definition{def}); err != nil {
		return nil, err
	}
	return def, nil
}

func (r *PostgresScheduleRepository) Update(ctx context.Context, def *schedule.Definition) error {
	txn, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for schedule update: %w", err)
	}
	defer txn.Rollback()

	query := `UPDATE scheduled_group_tasks
               SET title = $1, description = $2, requires_image = $3, requires_approval = $4, reward = $5,
                   assigned_user_id = $6, auto_assign = $7, pattern_type = $8, pattern_weekdays = $9,
                   pattern_month_days = $10, pattern_last_day = $11, pattern_interval_days = $12,
                   pattern_anchor_date = $13, due_duration_days = $14, due_duration_hours = $15,
                   start_date = $16, end_date = $17, skip_holidays = $18, move_to_next_business_day = $19,
                   delete_incomplete_previous = $20, is_active = $21, paused_at = $22, updated_at = NOW()
               WHERE id = $23 AND deleted_at IS NULL
               RETURNING updated_at`
	err = txn.QueryRowContext(ctx, query,
		def.Title, def.Description, def.RequiresImage, def.RequiresApproval, def.Reward,
		def.AssignedUserID, def.AutoAssign, def.Pattern.Type,
		pq.Array(weekdaysToInts(def.Pattern.Weekdays)), pq.Array(intsToInt64s(def.Pattern.MonthDays)),
		def.Pattern.LastDay, def.Pattern.EveryNDays, nullableDate(def.Pattern.Anchor),
		def.DueDurationDays, def.DueDurationHours, def.StartDate, def.EndDate, def.SkipHolidays,
		def.MoveToNextBusinessDay, def.DeleteIncompletePrevious, def.IsActive, def.PausedAt, def.ID,
	).Scan(&def.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return ErrScheduleNotFound
		}
		return fmt.Errorf("error updating schedule: %w", err)
	}

	if _, err := txn.ExecContext(ctx, `DELETE FROM scheduled_task_tags WHERE scheduled_task_id = $1`, def.ID); err != nil {
		return fmt.Errorf("error clearing schedule tags: %w", err)
	}
	if err := syncTagNames(ctx, txn, def.ID, def.TagNames); err != nil {
		return err
	}
	return txn.Commit()
}

func (r *PostgresScheduleRepository) SoftDelete(ctx context.Context, id int64) error {
	query := `UPDATE scheduled_group_tasks SET deleted_at = NOW(), is_active = FALSE, updated_at = NOW()
               WHERE id = $1 AND deleted_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("error soft-deleting schedule: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error checking soft-delete result: %w", err)
	}
	if affected == 0 {
		return ErrScheduleNotFound
	}
	return nil
}

func (r *PostgresScheduleRepository) ListRunCandidates(ctx context.Context, date time.Time) ([]*schedule.Definition, error) {
	query := `SELECT ` + scheduleColumns + `
               FROM scheduled_group_tasks
               WHERE is_active = TRUE
                 AND paused_at IS NULL
                 AND deleted_at IS NULL
                 AND start_date <= $1
                 AND (end_date IS NULL OR end_date >= $1)
               ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, date)
	if err != nil {
		return nil, fmt.Errorf("error querying run candidates: %w", err)
	}
	defer rows.Close()

	defs := make([]*schedule.Definition, 0)
	for rows.Next() {
		def, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning run candidate: %w", err)
		}
		defs = append(defs, def)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating run candidates: %w", err)
	}
	if err := r.loadTags(ctx, defs); err != nil {
		return nil, err
	}
	return defs, nil
}

// loadTags fetches tag names for the given schedules in one query.
func (r *PostgresScheduleRepository) loadTags(ctx context.Context, defs []*schedule.Definition) error {
	if len(defs) == 0 {
		return nil
	}
	byID := make(map[int64]*schedule.Definition, len(defs))
	ids := make([]int64, 0, len(defs))
	for _, def := range defs {
		byID[def.ID] = def
		ids = append(ids, def.ID)
	}

	query := `SELECT scheduled_task_id, tag_name FROM scheduled_task_tags
               WHERE scheduled_task_id = ANY($1) ORDER BY tag_name`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("error querying schedule tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var scheduleID int64
		var name string
		if err := rows.Scan(&scheduleID, &name); err != nil {
			return fmt.Errorf("error scanning schedule tag: %w", err)
		}
		if def, ok := byID[scheduleID]; ok {
			def.TagNames = append(def.TagNames, name)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating schedule tags: %w", err)
	}
	return nil
}

func syncTagNames(ctx context.Context, txn *sql.Tx, scheduleID int64, names []string) error {
	if len(names) == 0 {
		return nil
	}
	stmt, err := txn.PrepareContext(ctx, `INSERT INTO scheduled_task_tags (scheduled_task_id, tag_name) VALUES ($1, $2)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement for schedule tags: %w", err)
	}
	defer stmt.Close()

	for _, name := range names {
		if _, err := stmt.ExecContext(ctx, scheduleID, name); err != nil {
			return fmt.Errorf("error inserting schedule tag %q: %w", name, err)
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSchedule(row rowScanner) (*schedule.Definition, error) {
	def := &schedule.Definition{}
	var weekdays, monthDays pq.Int64Array
	var anchor sql.NullTime

	err := row.Scan(
		&def.ID, &def.GroupID, &def.CreatorID, &def.Title, &def.Description,
		&def.RequiresImage, &def.RequiresApproval, &def.Reward,
		&def.AssignedUserID, &def.AutoAssign, &def.Pattern.Type, &weekdays, &monthDays,
		&def.Pattern.LastDay, &def.Pattern.EveryNDays, &anchor,
		&def.DueDurationDays, &def.DueDurationHours, &def.StartDate, &def.EndDate,
		&def.SkipHolidays, &def.MoveToNextBusinessDay, &def.DeleteIncompletePrevious,
		&def.IsActive, &def.PausedAt, &def.CreatedAt, &def.UpdatedAt, &def.DeletedAt,
	)
	if err != nil {
		return nil, err
	}

	def.Pattern.Weekdays = make([]time.Weekday, 0, len(weekdays))
	for _, wd := range weekdays {
		def.Pattern.Weekdays = append(def.Pattern.Weekdays, time.Weekday(wd))
	}
	def.Pattern.MonthDays = make([]int, 0, len(monthDays))
	for _, d := range monthDays {
		def.Pattern.MonthDays = append(def.Pattern.MonthDays, int(d))
	}
	if anchor.Valid {
		def.Pattern.Anchor = anchor.Time
	}
	return def, nil
}

func weekdaysToInts(weekdays []time.Weekday) []int64 {
	out := make([]int64, 0, len(weekdays))
	for _, wd := range weekdays {
		out = append(out, int64(wd))
	}
	return out
}

func intsToInt64s(values []int) []int64 {
	out := make([]int64, 0, len(values))
	for _, v := range values {
		out = append(out, int64(v))
	}
	return out
}

func nullableDate(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
