package recurrence

import (
	"time"

	"github.com/google/uuid"

	"github.com/planweave/core/internal/domain/entities"
)

// Materialize expands a schedule template into concrete occurrences. Every
// occurrence shares one freshly minted series id and carries its 0-based
// position in the series. The template's duration is applied verbatim to
// each start, so a 90-minute entry stays 90 minutes even when an occurrence
// crosses a DST boundary.
//
// A template without a repeat rule materializes as a series of one. The
// caller is expected to have validated the template; degenerate inputs
// simply yield what the generator yields.
func Materialize(template entities.ScheduleTemplate, cap int) []entities.ScheduleOccurrence {
	duration := template.Duration()
	seriesID := uuid.New()
	now := time.Now()

	var starts []time.Time
	if template.Repeat == nil {
		starts = []time.Time{template.StartDate}
	} else {
		starts = Generate(template.StartDate, template.RepeatUntil(), *template.Repeat, cap)
	}

	occurrences := make([]entities.ScheduleOccurrence, 0, len(starts))
	for i, start := range starts {
		occurrences = append(occurrences, entities.ScheduleOccurrence{
			ID:               uuid.New(),
			SeriesID:         seriesID,
			OccurrenceIndex:  i,
			Title:            template.Title,
			Location:         template.Location,
			Detail:           template.Detail,
			StartDate:        start,
			EndDate:          start.Add(duration),
			IsAllDay:         template.IsAllDay,
			IsCompleted:      template.IsCompleted,
			ColorTag:         template.ColorTag,
			Repeat:           template.Repeat,
			HasRepeatEndDate: template.HasRepeatEndDate,
			RepeatEndDate:    template.RepeatEndDate,
			AlarmRule:        template.AlarmRule,
			IsAlarmEnabled:   template.IsAlarmEnabled,
			CreatedAt:        now,
			UpdatedAt:        now,
		})
	}
	return occurrences
}
