package calendar

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// HolidayRepository provides the registered holidays for a year.
type HolidayRepository interface {
	ListByYear(ctx context.Context, year int) ([]time.Time, error)
}

// BusinessCalendar answers holiday and business-day questions against a
// per-year in-memory holiday set. Years are warmed out-of-band (at startup
// and on the yearly refresh job); during a batch run the cache is read-only.
// A year that was never warmed degrades to weekend-only checks.
type BusinessCalendar struct {
	repo   HolidayRepository
	logger *logrus.Entry

	mu     sync.RWMutex
	years  map[int]map[string]struct{} // "2006-01-02" keys
	warned map[int]bool
}

func NewBusinessCalendar(repo HolidayRepository, logger *logrus.Entry) *BusinessCalendar {
	return &BusinessCalendar{
		repo:   repo,
		logger: logger,
		years:  make(map[int]map[string]struct{}),
		warned: make(map[int]bool),
	}
}

// WarmYear loads the holiday set for a year into the cache. An empty result
// is a valid warm (a year with no registered holidays); a query failure is a
// setup-level error the caller must treat as fatal.
func (c *BusinessCalendar) WarmYear(ctx context.Context, year int) error {
	holidays, err := c.repo.ListByYear(ctx, year)
	if err != nil {
		return fmt.Errorf("failed to load holidays for year %d: %w", year, err)
	}

	set := make(map[string]struct{}, len(holidays))
	for _, h := range holidays {
		set[h.Format("2006-01-02")] = struct{}{}
	}

	c.mu.Lock()
	c.years[year] = set
	delete(c.warned, year)
	c.mu.Unlock()

	c.logger.WithFields(logrus.Fields{
		"year":     year,
		"holidays": len(set),
	}).Info("Holiday cache warmed")
	return nil
}

// IsHoliday reports whether the date is in the cached holiday set for its
// year. Weekends are evaluated separately by callers.
func (c *BusinessCalendar) IsHoliday(date time.Time) bool {
	c.mu.RLock()
	set, ok := c.years[date.Year()]
	c.mu.RUnlock()

	if !ok {
		c.warnMissingYear(date.Year())
		return false
	}
	_, found := set[date.Format("2006-01-02")]
	return found
}

// IsBusinessDay reports whether the date is a weekday that is not a
// registered holiday.
func (c *BusinessCalendar) IsBusinessDay(date time.Time) bool {
	return !isWeekend(date) && !c.IsHoliday(date)
}

// NextBusinessDay advances one day at a time while the candidate is a
// holiday or a weekend. A date that already is a business day is returned
// unchanged.
func (c *BusinessCalendar) NextBusinessDay(date time.Time) time.Time {
	candidate := date
	for !c.IsBusinessDay(candidate) {
		candidate = candidate.AddDate(0, 0, 1)
	}
	return candidate
}

func (c *BusinessCalendar) warnMissingYear(year int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.warned[year] {
		return
	}
	c.warned[year] = true
	c.logger.WithField("year", year).Warn("No holiday data cached for year, degrading to weekend-only checks")
}

func isWeekend(date time.Time) bool {
	wd := date.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
