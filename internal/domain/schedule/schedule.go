package schedule

import (
	"database/sql"
	"fmt"
	"time"
)

var (
	ErrInvalidActivePeriod = fmt.Errorf("active period start must not be after end")
	ErrAlreadyPaused       = fmt.Errorf("schedule is already paused")
	ErrNotPaused           = fmt.Errorf("schedule is not paused")
)

// Definition is a recurring group-task template. One row per schedule; runs
// never duplicate it, they only produce task instances and execution records.
// Corresponds to the 'scheduled_group_tasks' table.
type Definition struct {
	ID               int64
	GroupID          int64
	CreatorID        int64
	Title            string
	Description      string
	RequiresImage    bool
	RequiresApproval bool
	Reward           int

	// AssignedUserID, when set, receives every created instance. When null
	// and AutoAssign is true, the run fans out to all eligible group members.
	AssignedUserID sql.NullInt64
	AutoAssign     bool

	Pattern          Pattern
	DueDurationDays  int
	DueDurationHours int

	// Active period. EndDate null means open-ended.
	StartDate time.Time
	EndDate   sql.NullTime

	SkipHolidays             bool
	MoveToNextBusinessDay    bool
	DeleteIncompletePrevious bool

	// Invariant: IsActive is false whenever PausedAt is set. Pause and
	// Resume toggle both fields together.
	IsActive bool
	PausedAt sql.NullTime

	TagNames []string

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt sql.NullTime
}

// Validate checks the creation-time invariants: a well-formed pattern and an
// ordered active period.
func (d *Definition) Validate() error {
	if err := d.Pattern.Validate(); err != nil {
		return err
	}
	if d.EndDate.Valid && d.StartDate.After(d.EndDate.Time) {
		return ErrInvalidActivePeriod
	}
	return nil
}

// Pause deactivates the schedule and stamps PausedAt.
func (d *Definition) Pause(now time.Time) error {
	if d.PausedAt.Valid {
		return ErrAlreadyPaused
	}
	d.IsActive = false
	d.PausedAt = sql.NullTime{Time: now, Valid: true}
	return nil
}

// Resume reactivates a paused schedule and clears PausedAt.
func (d *Definition) Resume() error {
	if !d.PausedAt.Valid {
		return ErrNotPaused
	}
	d.IsActive = true
	d.PausedAt = sql.NullTime{}
	return nil
}

// ShouldRunOn reports whether the schedule is due on the given calendar date:
// active, not paused, not deleted, inside the active period, and matching the
// recurrence pattern.
func (d *Definition) ShouldRunOn(date time.Time) bool {
	if !d.IsActive || d.PausedAt.Valid || d.DeletedAt.Valid {
		return false
	}
	if !d.withinActivePeriod(date) {
		return false
	}
	return d.Pattern.Matches(date)
}

func (d *Definition) withinActivePeriod(date time.Time) bool {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	start := time.Date(d.StartDate.Year(), d.StartDate.Month(), d.StartDate.Day(), 0, 0, 0, 0, date.Location())
	if day.Before(start) {
		return false
	}
	if d.EndDate.Valid {
		end := time.Date(d.EndDate.Time.Year(), d.EndDate.Time.Month(), d.EndDate.Time.Day(), 0, 0, 0, 0, date.Location())
		if day.After(end) {
			return false
		}
	}
	return true
}
