package execution

import (
	"context"
	"time"
)

// Recorder defines the append-only execution audit log.
type Recorder interface {
	// Claim inserts the record for (scheduleID, runDate) in the transient
	// RUNNING state and returns it. A second claim for the same pair fails
	// with the duplicate-run sentinel, which callers treat as "someone else
	// already ran this schedule today".
	Claim(ctx context.Context, scheduleID int64, runDate time.Time) (*Record, error)

	// Finalize writes the terminal status, task ids, note and error message
	// of a claimed record. It succeeds exactly once per record; finalized
	// records are immutable.
	Finalize(ctx context.Context, rec *Record) error

	// ListBySchedule returns records newest first, optionally filtered by
	// terminal status. limit <= 0 applies the default page size.
	ListBySchedule(ctx context.Context, scheduleID int64, status *Status, limit int) ([]*Record, error)
}
