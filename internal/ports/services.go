package ports

import (
	"time"

	"github.com/planweave/core/internal/domain/entities"
)

// CreateScheduleRequest is the payload for creating a schedule template.
// A repeating template materializes into a full series in one call.
type CreateScheduleRequest struct {
	Title            string     `json:"title" validate:"required,max=200"`
	Location         *string    `json:"location,omitempty" validate:"omitempty,max=200"`
	Detail           *string    `json:"detail,omitempty" validate:"omitempty,max=2000"`
	StartDate        time.Time  `json:"start_date" validate:"required"`
	EndDate          time.Time  `json:"end_date" validate:"required"`
	IsAllDay         bool       `json:"is_all_day"`
	ColorTag         string     `json:"color_tag,omitempty"`
	Repeat           *string    `json:"repeat,omitempty" validate:"omitempty,oneof=daily weekly monthly yearly"`
	HasRepeatEndDate bool       `json:"has_repeat_end_date"`
	RepeatEndDate    *time.Time `json:"repeat_end_date,omitempty"`
	AlarmRule        *string    `json:"alarm_rule,omitempty"`
	IsAlarmEnabled   bool       `json:"is_alarm_enabled"`
}

// Template converts the request into a domain template.
func (r CreateScheduleRequest) Template() entities.ScheduleTemplate {
	color := entities.ColorTag(r.ColorTag)
	if color == "" {
		color = entities.ColorDefault
	}
	var repeat *entities.RepeatFrequency
	if r.Repeat != nil {
		f := entities.RepeatFrequency(*r.Repeat)
		repeat = &f
	}
	return entities.ScheduleTemplate{
		Title:            r.Title,
		Location:         r.Location,
		Detail:           r.Detail,
		StartDate:        r.StartDate,
		EndDate:          r.EndDate,
		IsAllDay:         r.IsAllDay,
		ColorTag:         color,
		Repeat:           repeat,
		HasRepeatEndDate: r.HasRepeatEndDate,
		RepeatEndDate:    r.RepeatEndDate,
		AlarmRule:        r.AlarmRule,
		IsAlarmEnabled:   r.IsAlarmEnabled,
	}
}

// UpdateScheduleRequest carries a partial occurrence (or series) edit.
type UpdateScheduleRequest struct {
	Title       *string    `json:"title,omitempty" validate:"omitempty,max=200"`
	Location    *string    `json:"location,omitempty" validate:"omitempty,max=200"`
	Detail      *string    `json:"detail,omitempty" validate:"omitempty,max=2000"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	IsAllDay    *bool      `json:"is_all_day,omitempty"`
	IsCompleted *bool      `json:"is_completed,omitempty"`
	ColorTag    *string    `json:"color_tag,omitempty"`
	AlarmRule   *string    `json:"alarm_rule,omitempty"`
}

// Fields converts the request into repository field changes.
func (r UpdateScheduleRequest) Fields() ScheduleFields {
	fields := ScheduleFields{
		Title:       r.Title,
		Location:    r.Location,
		Detail:      r.Detail,
		StartDate:   r.StartDate,
		EndDate:     r.EndDate,
		IsAllDay:    r.IsAllDay,
		IsCompleted: r.IsCompleted,
		AlarmRule:   r.AlarmRule,
	}
	if r.ColorTag != nil {
		tag := entities.ColorTag(*r.ColorTag)
		fields.ColorTag = &tag
	}
	return fields
}

// DeleteFollowingRequest is the payload for anchor-based range deletes.
type DeleteFollowingRequest struct {
	Anchor        time.Time `json:"anchor" validate:"required"`
	IncludeAnchor bool      `json:"include_anchor"`
}
