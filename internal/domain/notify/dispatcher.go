package notify

import (
	"context"
	"time"
)

// TaskCreatedEvent describes one run's batch of created task instances.
type TaskCreatedEvent struct {
	ScheduleID int64
	GroupID    int64
	Title      string
	UserIDs    []int64
	DueDate    *time.Time
}

// Dispatcher delivers assignment notifications for created task instances.
// Delivery is best-effort: a dispatch failure never fails the run that
// produced the tasks.
type Dispatcher interface {
	TaskCreated(ctx context.Context, event TaskCreatedEvent) error
}

// Nop is a Dispatcher that drops every event. Used when no notification
// transport is configured.
type Nop struct{}

func (Nop) TaskCreated(context.Context, TaskCreatedEvent) error { return nil }
