package schedule

import (
	"context"
	"time"
)

// Repository defines the operations for persisting and retrieving schedule
// definitions. Tag names are stored alongside the definition and synced on
// create/update.
type Repository interface {
	Create(ctx context.Context, def *Definition) error
	GetByID(ctx context.Context, id int64) (*Definition, error)
	Update(ctx context.Context, def *Definition) error
	SoftDelete(ctx context.Context, id int64) error

	// ListRunCandidates returns schedules that are active, not paused, not
	// deleted, and whose active period covers the given date. Pattern
	// matching is evaluated by the caller.
	ListRunCandidates(ctx context.Context, date time.Time) ([]*Definition, error)
}
