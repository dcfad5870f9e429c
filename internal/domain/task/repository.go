package task

import "context"

// RunMutation describes every write a single schedule run performs. The
// writer applies it atomically: either all instances (and tag links, and
// prior-instance deletions) land, or none do.
type RunMutation struct {
	ScheduleID int64

	// DeleteOpenPrevious retires open (not completed, not deleted) instances
	// of this schedule for the users being assigned, so at most one open
	// instance exists per (schedule, user) pair at any time.
	DeleteOpenPrevious bool

	// TagNames are resolved to tag ids with a find-or-create lookup and
	// linked to every created instance.
	TagNames []string

	Instances []*Instance
}

// RunResult reports the ids touched by an applied mutation.
type RunResult struct {
	CreatedTaskIDs []int64
	DeletedTaskIDs []int64
}

// Writer applies one run's task mutations inside a single transaction.
type Writer interface {
	ApplyRun(ctx context.Context, m RunMutation) (*RunResult, error)
}
