package notifier

import (
	"context"

	"github.com/google/uuid"

	"github.com/planweave/core/internal/domain/entities"
	"github.com/planweave/core/internal/infrastructure/logger"
)

// LogNotifier is the default ports.ReminderNotifier: it records reminder
// intents in the log. Delivery itself belongs to a platform notification
// pipeline outside this service; callers already treat scheduling as
// best-effort.
type LogNotifier struct {
	logger *logger.Logger
}

// NewLogNotifier creates a new log-backed notifier.
func NewLogNotifier(log *logger.Logger) *LogNotifier {
	return &LogNotifier{logger: log.WithComponent("notifier")}
}

// ScheduleReminder records the reminder intent for one occurrence.
func (n *LogNotifier) ScheduleReminder(_ context.Context, occ entities.ScheduleOccurrence) error {
	rule := ""
	if occ.AlarmRule != nil {
		rule = *occ.AlarmRule
	}
	n.logger.Infow("reminder scheduled",
		"occurrence_id", occ.ID,
		"start_date", occ.StartDate,
		"alarm_rule", rule,
	)
	return nil
}

// CancelReminder records the cancellation of a reminder.
func (n *LogNotifier) CancelReminder(_ context.Context, occurrenceID uuid.UUID) error {
	n.logger.Infow("reminder cancelled", "occurrence_id", occurrenceID)
	return nil
}
