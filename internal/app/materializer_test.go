package app

import (
	"context"
	"database/sql"
	"io"
	"sync"
	"testing"
	"time"

	"group_task_scheduler/internal/domain/calendar"
	"group_task_scheduler/internal/domain/execution"
	"group_task_scheduler/internal/domain/schedule"
	"group_task_scheduler/internal/domain/task"

	"github.com/sirupsen/logrus"
)

// --- shared test helpers and fakes ---

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type fakeHolidayRepo struct {
	holidays map[int][]time.Time
}

func (r *fakeHolidayRepo) ListByYear(_ context.Context, year int) ([]time.Time, error) {
	return r.holidays[year], nil
}

type fakeDirectory struct {
	members map[int64][]int64
	err     error
}

func (d *fakeDirectory) ListEligibleAssignees(_ context.Context, groupID int64) ([]int64, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.members[groupID], nil
}

// fakeTaskWriter applies run mutations against an in-memory instance store,
// mirroring the transactional writer's delete-then-create behavior.
type fakeTaskWriter struct {
	mu      sync.Mutex
	nextID  int64
	open    map[int64]*task.Instance
	failFor map[int64]error // by schedule id
	applied int
}

func newFakeTaskWriter() *fakeTaskWriter {
	return &fakeTaskWriter{open: make(map[int64]*task.Instance), failFor: make(map[int64]error)}
}

func (w *fakeTaskWriter) ApplyRun(_ context.Context, m task.RunMutation) (*task.RunResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.failFor[m.ScheduleID]; err != nil {
		return nil, err
	}

	result := &task.RunResult{}
	if m.DeleteOpenPrevious {
		users := make(map[int64]bool, len(m.Instances))
		for _, inst := range m.Instances {
			users[inst.UserID] = true
		}
		for id, inst := range w.open {
			if inst.ScheduleID == m.ScheduleID && users[inst.UserID] && !inst.IsCompleted {
				delete(w.open, id)
				result.DeletedTaskIDs = append(result.DeletedTaskIDs, id)
			}
		}
	}

	for _, inst := range m.Instances {
		w.nextID++
		inst.ID = w.nextID
		stored := *inst
		w.open[stored.ID] = &stored
		result.CreatedTaskIDs = append(result.CreatedTaskIDs, stored.ID)
	}
	w.applied++
	return result, nil
}

func (w *fakeTaskWriter) openCount(scheduleID, userID int64) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := 0
	for _, inst := range w.open {
		if inst.ScheduleID == scheduleID && inst.UserID == userID && !inst.IsCompleted {
			n++
		}
	}
	return n
}

func (w *fakeTaskWriter) appliedRuns() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.applied
}

func newTestCalendar(t *testing.T, holidays map[int][]time.Time) *calendar.BusinessCalendar {
	t.Helper()
	cal := calendar.NewBusinessCalendar(&fakeHolidayRepo{holidays: holidays}, quietLogger())
	for year := range holidays {
		if err := cal.WarmYear(context.Background(), year); err != nil {
			t.Fatalf("WarmYear(%d) error: %v", year, err)
		}
	}
	return cal
}

func newTestMaterializer(writer task.Writer, dir *fakeDirectory, cal *calendar.BusinessCalendar) *Materializer {
	return NewMaterializer(writer, dir, cal, NewDueDateCalculator(cal), quietLogger())
}

func autoAssignDef(id, groupID int64) *schedule.Definition {
	return &schedule.Definition{
		ID:         id,
		GroupID:    groupID,
		CreatorID:  1,
		Title:      "Water the plants",
		Reward:     10,
		AutoAssign: true,
		Pattern: schedule.Pattern{Type: schedule.PatternWeekly, Weekdays: []time.Weekday{
			time.Sunday, time.Monday, time.Tuesday, time.Wednesday,
			time.Thursday, time.Friday, time.Saturday,
		}},
		DueDurationDays: 1,
		StartDate:       date(2024, time.January, 1),
		IsActive:        true,
	}
}

// --- tests ---

func TestMaterializeFansOutToEligibleMembers(t *testing.T) {
	t.Parallel()
	writer := newFakeTaskWriter()
	dir := &fakeDirectory{members: map[int64][]int64{7: {2, 3, 4}}}
	m := newTestMaterializer(writer, dir, newTestCalendar(t, nil))

	def := autoAssignDef(1, 7)
	runDate := date(2024, time.January, 1) // Monday

	outcome, err := m.Materialize(context.Background(), def, runDate)
	if err != nil {
		t.Fatalf("Materialize error: %v", err)
	}
	if outcome.Status != execution.StatusSuccess {
		t.Fatalf("Status = %s, want SUCCESS", outcome.Status)
	}
	if len(outcome.Result.CreatedTaskIDs) != 3 {
		t.Fatalf("created %d instances, want 3", len(outcome.Result.CreatedTaskIDs))
	}
	for _, userID := range []int64{2, 3, 4} {
		if writer.openCount(def.ID, userID) != 1 {
			t.Fatalf("user %d has %d open instances, want 1", userID, writer.openCount(def.ID, userID))
		}
	}
	if outcome.DueDate == nil || !outcome.DueDate.Equal(date(2024, time.January, 2)) {
		t.Fatalf("DueDate = %v, want 2024-01-02 00:00", outcome.DueDate)
	}
}

func TestMaterializeSharedRunID(t *testing.T) {
	t.Parallel()
	writer := newFakeTaskWriter()
	dir := &fakeDirectory{members: map[int64][]int64{7: {2, 3}}}
	m := newTestMaterializer(writer, dir, newTestCalendar(t, nil))

	if _, err := m.Materialize(context.Background(), autoAssignDef(1, 7), date(2024, time.January, 1)); err != nil {
		t.Fatalf("Materialize error: %v", err)
	}

	writer.mu.Lock()
	defer writer.mu.Unlock()
	runIDs := make(map[string]bool)
	for _, inst := range writer.open {
		if inst.RunID == "" {
			t.Fatal("instance has empty run id")
		}
		runIDs[inst.RunID] = true
	}
	if len(runIDs) != 1 {
		t.Fatalf("instances carry %d distinct run ids, want 1", len(runIDs))
	}
}

func TestMaterializeExplicitAssignee(t *testing.T) {
	t.Parallel()
	writer := newFakeTaskWriter()
	// Directory would fan out to three members, but the explicit assignee
	// takes precedence.
	dir := &fakeDirectory{members: map[int64][]int64{7: {2, 3, 4}}}
	m := newTestMaterializer(writer, dir, newTestCalendar(t, nil))

	def := autoAssignDef(1, 7)
	def.AssignedUserID = sql.NullInt64{Int64: 9, Valid: true}

	outcome, err := m.Materialize(context.Background(), def, date(2024, time.January, 1))
	if err != nil {
		t.Fatalf("Materialize error: %v", err)
	}
	if len(outcome.Result.CreatedTaskIDs) != 1 {
		t.Fatalf("created %d instances, want 1", len(outcome.Result.CreatedTaskIDs))
	}
	if writer.openCount(def.ID, 9) != 1 {
		t.Fatal("explicit assignee did not receive the instance")
	}
}

func TestMaterializeHolidaySkip(t *testing.T) {
	t.Parallel()
	holidays := map[int][]time.Time{2024: {date(2024, time.January, 8)}}

	tests := []struct {
		name         string
		skipHolidays bool
		runDate      time.Time
		wantStatus   execution.Status
	}{
		{name: "saturday skipped", skipHolidays: true, runDate: date(2024, time.January, 6), wantStatus: execution.StatusSkipped},
		{name: "holiday monday skipped", skipHolidays: true, runDate: date(2024, time.January, 8), wantStatus: execution.StatusSkipped},
		{name: "business day runs", skipHolidays: true, runDate: date(2024, time.January, 9), wantStatus: execution.StatusSuccess},
		{name: "flag unset runs on saturday", skipHolidays: false, runDate: date(2024, time.January, 6), wantStatus: execution.StatusSuccess},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			writer := newFakeTaskWriter()
			dir := &fakeDirectory{members: map[int64][]int64{7: {2}}}
			m := newTestMaterializer(writer, dir, newTestCalendar(t, holidays))

			def := autoAssignDef(1, 7)
			def.SkipHolidays = tt.skipHolidays

			outcome, err := m.Materialize(context.Background(), def, tt.runDate)
			if err != nil {
				t.Fatalf("Materialize error: %v", err)
			}
			if outcome.Status != tt.wantStatus {
				t.Fatalf("Status = %s, want %s", outcome.Status, tt.wantStatus)
			}
			if tt.wantStatus == execution.StatusSkipped && writer.appliedRuns() != 0 {
				t.Fatal("skipped run must not mutate tasks")
			}
		})
	}
}

func TestMaterializeNoEligibleAssignee(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		mutate func(*schedule.Definition)
	}{
		{name: "auto-assign with empty group", mutate: func(*schedule.Definition) {}},
		{name: "no assignee and auto-assign off", mutate: func(d *schedule.Definition) { d.AutoAssign = false }},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			writer := newFakeTaskWriter()
			dir := &fakeDirectory{members: map[int64][]int64{}}
			m := newTestMaterializer(writer, dir, newTestCalendar(t, nil))

			def := autoAssignDef(1, 7)
			tt.mutate(def)

			outcome, err := m.Materialize(context.Background(), def, date(2024, time.January, 1))
			if err != nil {
				t.Fatalf("Materialize error: %v", err)
			}
			if outcome.Status != execution.StatusSkipped {
				t.Fatalf("Status = %s, want SKIPPED", outcome.Status)
			}
			if writer.appliedRuns() != 0 {
				t.Fatal("skipped run must not mutate tasks")
			}
		})
	}
}

func TestMaterializeDeleteIncompletePrevious(t *testing.T) {
	t.Parallel()
	writer := newFakeTaskWriter()
	dir := &fakeDirectory{members: map[int64][]int64{7: {2, 3}}}
	m := newTestMaterializer(writer, dir, newTestCalendar(t, nil))

	def := autoAssignDef(1, 7)
	def.DeleteIncompletePrevious = true

	first, err := m.Materialize(context.Background(), def, date(2024, time.January, 1))
	if err != nil {
		t.Fatalf("first Materialize error: %v", err)
	}
	second, err := m.Materialize(context.Background(), def, date(2024, time.January, 2))
	if err != nil {
		t.Fatalf("second Materialize error: %v", err)
	}

	if len(second.Result.DeletedTaskIDs) != len(first.Result.CreatedTaskIDs) {
		t.Fatalf("second run deleted %d instances, want %d",
			len(second.Result.DeletedTaskIDs), len(first.Result.CreatedTaskIDs))
	}
	for _, userID := range []int64{2, 3} {
		if writer.openCount(def.ID, userID) != 1 {
			t.Fatalf("user %d has %d open instances after two runs, want 1", userID, writer.openCount(def.ID, userID))
		}
	}
}

func TestMaterializeNoDueDurationLeavesDueDateUnset(t *testing.T) {
	t.Parallel()
	writer := newFakeTaskWriter()
	dir := &fakeDirectory{members: map[int64][]int64{7: {2}}}
	m := newTestMaterializer(writer, dir, newTestCalendar(t, nil))

	def := autoAssignDef(1, 7)
	def.DueDurationDays = 0
	def.DueDurationHours = 0

	outcome, err := m.Materialize(context.Background(), def, date(2024, time.January, 1))
	if err != nil {
		t.Fatalf("Materialize error: %v", err)
	}
	if outcome.DueDate != nil {
		t.Fatalf("DueDate = %v, want nil", outcome.DueDate)
	}

	writer.mu.Lock()
	defer writer.mu.Unlock()
	for _, inst := range writer.open {
		if inst.DueDate.Valid {
			t.Fatal("instance due date set, want unset")
		}
	}
}

func TestMaterializeWriterFailure(t *testing.T) {
	t.Parallel()
	writer := newFakeTaskWriter()
	writer.failFor[1] = context.DeadlineExceeded
	dir := &fakeDirectory{members: map[int64][]int64{7: {2}}}
	m := newTestMaterializer(writer, dir, newTestCalendar(t, nil))

	if _, err := m.Materialize(context.Background(), autoAssignDef(1, 7), date(2024, time.January, 1)); err == nil {
		t.Fatal("expected error when writer fails")
	}
}
