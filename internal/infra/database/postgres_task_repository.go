package database

import (
	"context"
	"database/sql"
	"fmt"

	"group_task_scheduler/internal/domain/task"

	"github.com/lib/pq"
)

type PostgresTaskRepository struct {
	db *sql.DB
}

func NewPostgresTaskRepository(db *sql.DB) *PostgresTaskRepository {
	return &PostgresTaskRepository{db: db}
}

// ApplyRun performs one schedule run's task mutations in a single
// transaction: soft-delete of stale open instances, find-or-create tag
// resolution, instance inserts, and tag links. Any failure rolls the whole
// run back so a partial fan-out can never be observed.
func (r *PostgresTaskRepository) ApplyRun(ctx context.Context, m task.RunMutation) (*task.RunResult, error) {
	txn, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction for run mutation: %w", err)
	}
	defer txn.Rollback() // Rollback if not committed

	result := &task.RunResult{}

	if m.DeleteOpenPrevious {
		deleted, err := deleteOpenInstances(ctx, txn, m)
		if err != nil {
			return nil, err
		}
		result.DeletedTaskIDs = deleted
	}

	tagIDs, err := findOrCreateTagIDs(ctx, txn, m.TagNames)
	if err != nil {
		return nil, err
	}

	created, err := insertInstances(ctx, txn, m.Instances)
	if err != nil {
		return nil, err
	}
	result.CreatedTaskIDs = created

	if err := linkTags(ctx, txn, created, tagIDs); err != nil {
		return nil, err
	}

	if err := txn.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit run mutation: %w", err)
	}
	return result, nil
}

// deleteOpenInstances soft-deletes open prior instances of the schedule for
// the users being assigned, keeping at most one open instance per
// (schedule, user) pair.
func deleteOpenInstances(ctx context.Context, txn *sql.Tx, m task.RunMutation) ([]int64, error) {
	userIDs := make([]int64, 0, len(m.Instances))
	for _, inst := range m.Instances {
		userIDs = append(userIDs, inst.UserID)
	}

	query := `UPDATE tasks SET deleted_at = NOW(), updated_at = NOW()
               WHERE scheduled_task_id = $1
                 AND user_id = ANY($2)
                 AND is_completed = FALSE
                 AND deleted_at IS NULL
               RETURNING id`
	rows, err := txn.QueryContext(ctx, query, m.ScheduleID, pq.Array(userIDs))
	if err != nil {
		return nil, fmt.Errorf("error deleting open previous instances: %w", err)
	}
	defer rows.Close()

	deleted := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("error scanning deleted instance id: %w", err)
		}
		deleted = append(deleted, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating deleted instance ids: %w", err)
	}
	return deleted, nil
}

// findOrCreateTagIDs resolves tag names to ids, creating missing tags. The
// no-op update makes RETURNING yield the id for existing rows too.
func findOrCreateTagIDs(ctx context.Context, txn *sql.Tx, names []string) ([]int64, error) {
	if len(names) == 0 {
		return nil, nil
	}

	stmt, err := txn.PrepareContext(ctx, `INSERT INTO tags (name)
               VALUES ($1)
               ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
               RETURNING id`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement for tag resolution: %w", err)
	}
	defer stmt.Close()

	ids := make([]int64, 0, len(names))
	for _, name := range names {
		var id int64
		if err := stmt.QueryRowContext(ctx, name).Scan(&id); err != nil {
			return nil, fmt.Errorf("error resolving tag %q: %w", name, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func insertInstances(ctx context.Context, txn *sql.Tx, instances []*task.Instance) ([]int64, error) {
	stmt, err := txn.PrepareContext(ctx, `INSERT INTO tasks (user_id, group_id, scheduled_task_id, run_id,
               title, description, due_date, reward, requires_approval, requires_image, is_completed)
               VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, FALSE)
               RETURNING id, created_at, updated_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement for instance insert: %w", err)
	}
	defer stmt.Close()

	created := make([]int64, 0, len(instances))
	for _, inst := range instances {
		err := stmt.QueryRowContext(ctx,
			inst.UserID, inst.GroupID, inst.ScheduleID, inst.RunID,
			inst.Title, inst.Description, inst.DueDate, inst.Reward,
			inst.RequiresApproval, inst.RequiresImage,
		).Scan(&inst.ID, &inst.CreatedAt, &inst.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("error creating task instance for user %d: %w", inst.UserID, err)
		}
		created = append(created, inst.ID)
	}
	return created, nil
}

func linkTags(ctx context.Context, txn *sql.Tx, taskIDs, tagIDs []int64) error {
	if len(taskIDs) == 0 || len(tagIDs) == 0 {
		return nil
	}

	stmt, err := txn.PrepareContext(ctx, `INSERT INTO task_tags (task_id, tag_id) VALUES ($1, $2)
               ON CONFLICT DO NOTHING`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement for tag links: %w", err)
	}
	defer stmt.Close()

	for _, taskID := range taskIDs {
		for _, tagID := range tagIDs {
			if _, err := stmt.ExecContext(ctx, taskID, tagID); err != nil {
				return fmt.Errorf("error linking tag %d to task %d: %w", tagID, taskID, err)
			}
		}
	}
	return nil
}
