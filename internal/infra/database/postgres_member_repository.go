package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

// Roles with edit rights over the group; they never receive fanned-out
// instances.
var privilegedRoles = []string{"admin", "editor"}

type PostgresMemberRepository struct {
	db *sql.DB
}

func NewPostgresMemberRepository(db *sql.DB) *PostgresMemberRepository {
	return &PostgresMemberRepository{db: db}
}

// ListEligibleAssignees returns the ids of group members without edit or
// admin permission, ordered for deterministic fan-out.
func (r *PostgresMemberRepository) ListEligibleAssignees(ctx context.Context, groupID int64) ([]int64, error) {
	query := `SELECT user_id FROM group_members
               WHERE group_id = $1 AND role != ALL($2)
               ORDER BY user_id`
	rows, err := r.db.QueryContext(ctx, query, groupID, pq.Array(privilegedRoles))
	if err != nil {
		return nil, fmt.Errorf("error querying eligible assignees: %w", err)
	}
	defer rows.Close()

	userIDs := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("error scanning eligible assignee: %w", err)
		}
		userIDs = append(userIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating eligible assignees: %w", err)
	}
	return userIDs, nil
}
