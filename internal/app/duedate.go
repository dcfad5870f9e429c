package app

import (
	"time"

	"group_task_scheduler/internal/domain/calendar"
)

// DueDateCalculator derives concrete due timestamps from a schedule's
// duration offsets and its business-day adjustment policy.
type DueDateCalculator struct {
	calendar *calendar.BusinessCalendar
}

func NewDueDateCalculator(cal *calendar.BusinessCalendar) *DueDateCalculator {
	return &DueDateCalculator{calendar: cal}
}

// Compute returns runDate + days + hours. When moveToNextBusinessDay is set
// and the base lands on a holiday or weekend, the date advances to the next
// business day starting from the base (not from runDate), keeping the
// computed clock time. The skip-holidays flag is orthogonal: it governs
// whether a schedule fires at all on a holiday run date and never alters
// due-date arithmetic.
func (c *DueDateCalculator) Compute(runDate time.Time, days, hours int, moveToNextBusinessDay bool) time.Time {
	due := runDate.AddDate(0, 0, days).Add(time.Duration(hours) * time.Hour)
	if moveToNextBusinessDay && !c.calendar.IsBusinessDay(due) {
		adjusted := c.calendar.NextBusinessDay(due)
		due = time.Date(adjusted.Year(), adjusted.Month(), adjusted.Day(),
			due.Hour(), due.Minute(), due.Second(), 0, due.Location())
	}
	return due
}
