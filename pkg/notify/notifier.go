// Package notify pushes task-state-change events to connected clients on a
// best-effort basis. Delivery failures are logged and swallowed; nothing in
// here may affect pipeline control flow.
package notify

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Event names published by the pipeline.
const (
	EventTaskCreated    = "task.created"
	EventTaskScheduled  = "task.scheduled"
	EventTaskSent       = "task.sent"
	EventTaskSkipped    = "task.skipped"
	EventTaskFailed     = "task.failed"
	EventCycleCompleted = "cycle.completed"
)

// Notifier is the best-effort side channel. Implementations must never
// panic and never block the caller beyond the context deadline; there is no
// error return on purpose.
type Notifier interface {
	Notify(ctx context.Context, userID, event string, payload interface{})
}

// LogNotifier writes events to the log only. Used when no fan-out backend
// is configured.
type LogNotifier struct {
	logger *logrus.Logger
}

func NewLogNotifier(logger *logrus.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, userID, event string, payload interface{}) {
	n.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"event":   event,
		"payload": payload,
	}).Debug("Task event")
}
