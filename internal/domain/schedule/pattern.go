package schedule

import (
	"fmt"
	"time"
)

// Custom validation errors for recurrence patterns. Malformed patterns are
// rejected when a schedule is created or updated, never at run time.
var ErrInvalidPattern = fmt.Errorf("invalid schedule pattern")

// PatternType discriminates the closed set of recurrence variants.
type PatternType string

const (
	PatternWeekly   PatternType = "WEEKLY"
	PatternMonthly  PatternType = "MONTHLY"
	PatternInterval PatternType = "INTERVAL"
)

// Pattern is a recurrence definition. Exactly one variant's fields are
// meaningful, selected by Type; use the New* constructors to build a valid
// value.
type Pattern struct {
	Type PatternType

	// Weekly: the set of weekdays the schedule fires on.
	Weekdays []time.Weekday

	// Monthly: the set of days of month (1..31), plus an optional
	// last-day-of-month marker. A day that does not exist in a given month
	// (e.g. 31 in February) never matches that month.
	MonthDays []int
	LastDay   bool

	// Interval: fires every EveryNDays days counted from Anchor.
	EveryNDays int
	Anchor     time.Time
}

// NewWeekly builds a weekly pattern firing on the given weekdays.
func NewWeekly(weekdays []time.Weekday) (Pattern, error) {
	p := Pattern{Type: PatternWeekly, Weekdays: weekdays}
	if err := p.Validate(); err != nil {
		return Pattern{}, err
	}
	return p, nil
}

// NewMonthly builds a monthly pattern firing on the given days of month.
// lastDay additionally matches the final calendar day of every month.
func NewMonthly(days []int, lastDay bool) (Pattern, error) {
	p := Pattern{Type: PatternMonthly, MonthDays: days, LastDay: lastDay}
	if err := p.Validate(); err != nil {
		return Pattern{}, err
	}
	return p, nil
}

// NewInterval builds a pattern firing every n days counted from anchor.
// Only the date part of anchor is significant.
func NewInterval(everyNDays int, anchor time.Time) (Pattern, error) {
	p := Pattern{Type: PatternInterval, EveryNDays: everyNDays, Anchor: anchor}
	if err := p.Validate(); err != nil {
		return Pattern{}, err
	}
	return p, nil
}

// Validate checks the variant invariants.
func (p Pattern) Validate() error {
	switch p.Type {
	case PatternWeekly:
		if len(p.Weekdays) == 0 {
			return fmt.Errorf("%w: weekly pattern requires at least one weekday", ErrInvalidPattern)
		}
		for _, wd := range p.Weekdays {
			if wd < time.Sunday || wd > time.Saturday {
				return fmt.Errorf("%w: weekday %d out of range", ErrInvalidPattern, wd)
			}
		}
	case PatternMonthly:
		if len(p.MonthDays) == 0 && !p.LastDay {
			return fmt.Errorf("%w: monthly pattern requires days of month or the last-day marker", ErrInvalidPattern)
		}
		for _, d := range p.MonthDays {
			if d < 1 || d > 31 {
				return fmt.Errorf("%w: day of month %d out of range", ErrInvalidPattern, d)
			}
		}
	case PatternInterval:
		if p.EveryNDays < 1 {
			return fmt.Errorf("%w: interval must be at least one day", ErrInvalidPattern)
		}
		if p.Anchor.IsZero() {
			return fmt.Errorf("%w: interval pattern requires an anchor date", ErrInvalidPattern)
		}
	default:
		return fmt.Errorf("%w: unknown pattern type %q", ErrInvalidPattern, p.Type)
	}
	return nil
}

// Matches reports whether the pattern fires on the given calendar date.
// Only the date part of target is considered.
func (p Pattern) Matches(target time.Time) bool {
	switch p.Type {
	case PatternWeekly:
		for _, wd := range p.Weekdays {
			if target.Weekday() == wd {
				return true
			}
		}
		return false
	case PatternMonthly:
		day := target.Day()
		for _, d := range p.MonthDays {
			// No clamping: 31 in a 30-day month simply never matches.
			if day == d {
				return true
			}
		}
		if p.LastDay && day == lastDayOfMonth(target) {
			return true
		}
		return false
	case PatternInterval:
		elapsed := daysBetween(p.Anchor, target)
		return elapsed >= 0 && elapsed%p.EveryNDays == 0
	default:
		return false
	}
}

func lastDayOfMonth(t time.Time) int {
	firstOfNext := time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, t.Location())
	return firstOfNext.AddDate(0, 0, -1).Day()
}

// daysBetween counts whole calendar days from a to b, ignoring clock time.
func daysBetween(a, b time.Time) int {
	au := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	bu := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(bu.Sub(au).Hours() / 24)
}
