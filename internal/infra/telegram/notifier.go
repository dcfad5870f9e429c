package telegram

import (
	"context"
	"fmt"
	"strings"

	"group_task_scheduler/internal/domain/notify"

	"gopkg.in/telebot.v3"
)

// TelebotDispatcher implements the notify.Dispatcher interface using the
// gopkg.in/telebot.v3 library, posting task-created announcements to the
// group's announcement chat.
type TelebotDispatcher struct {
	bot    *telebot.Bot
	chatID int64
}

func NewTelebotDispatcher(b *telebot.Bot, chatID int64) *TelebotDispatcher {
	return &TelebotDispatcher{bot: b, chatID: chatID}
}

// TaskCreated announces one run's batch of created task instances.
func (d *TelebotDispatcher) TaskCreated(_ context.Context, event notify.TaskCreatedEvent) error {
	var text strings.Builder
	fmt.Fprintf(&text, "New group task: %s", event.Title)
	if len(event.UserIDs) > 1 {
		fmt.Fprintf(&text, " (assigned to %d members)", len(event.UserIDs))
	}
	if event.DueDate != nil {
		fmt.Fprintf(&text, ", due %s", event.DueDate.Format("2006-01-02 15:04"))
	}
	text.WriteString(". Check your task list.")

	_, err := d.bot.Send(&telebot.Chat{ID: d.chatID}, text.String())
	return err
}
