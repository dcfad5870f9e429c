package execution

import (
	"database/sql"
	"time"
)

// Status represents the state of one schedule run attempt.
type Status string

const (
	// StatusRunning is the transient state a record is claimed in before the
	// run's mutations are applied. It never appears in finalized history.
	StatusRunning Status = "RUNNING"

	StatusSuccess Status = "SUCCESS"
	StatusFailed  Status = "FAILED"
	StatusSkipped Status = "SKIPPED"
)

// Record is one append-only audit entry for a (schedule, calendar day) run
// attempt. At most one record exists per pair; the unique insert doubles as
// the cooperative lock that keeps concurrent runners off the same schedule.
// Corresponds to the 'scheduled_task_executions' table.
type Record struct {
	ID             int64
	ScheduleID     int64
	RunDate        time.Time // calendar day, midnight
	CreatedTaskIDs []int64
	DeletedTaskIDs []int64
	ExecutedAt     time.Time
	Status         Status
	Note           sql.NullString
	ErrorMessage   sql.NullString
}
