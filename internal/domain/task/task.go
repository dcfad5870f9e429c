package task

import (
	"database/sql"
	"time"
)

// Instance is one concrete task produced by materializing a due schedule.
// Ownership passes to the ordinary task workflow after creation; this module
// only creates instances and retires stale open ones.
// Corresponds to the 'tasks' table.
type Instance struct {
	ID         int64
	UserID     int64
	GroupID    int64
	ScheduleID int64

	// RunID correlates all instances fanned out by a single run.
	RunID string

	Title            string
	Description      string
	DueDate          sql.NullTime
	Reward           int
	RequiresApproval bool
	RequiresImage    bool

	IsCompleted bool
	CompletedAt sql.NullTime

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt sql.NullTime
}
