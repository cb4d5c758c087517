package entities

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrScheduleNotFound  = errors.New("schedule not found")
	ErrSeriesNotFound    = errors.New("series not found")
	ErrInvalidTimeRange  = errors.New("end date must be after start date")
	ErrInvalidRepeatRule = errors.New("invalid repeat rule")
	ErrEmptyTitle        = errors.New("title must not be empty")
	ErrStoreFailure      = errors.New("schedule store failure")
)

// Enums and types
type RepeatFrequency string

const (
	RepeatDaily   RepeatFrequency = "daily"
	RepeatWeekly  RepeatFrequency = "weekly"
	RepeatMonthly RepeatFrequency = "monthly"
	RepeatYearly  RepeatFrequency = "yearly"
)

type ColorTag string

const (
	ColorDefault ColorTag = "default"
	ColorRed     ColorTag = "red"
	ColorOrange  ColorTag = "orange"
	ColorYellow  ColorTag = "yellow"
	ColorGreen   ColorTag = "green"
	ColorBlue    ColorTag = "blue"
	ColorPurple  ColorTag = "purple"
)

// ItemKind marks the origin of a merged day-view item.
type ItemKind string

const (
	ItemKindLocal    ItemKind = "local"
	ItemKindExternal ItemKind = "external"
)

// ScheduleTemplate is the user-authored input from which a series of
// concrete occurrences is materialized. Duration (EndDate - StartDate)
// is held constant across every generated occurrence.
type ScheduleTemplate struct {
	Title            string
	Location         *string
	Detail           *string
	StartDate        time.Time
	EndDate          time.Time
	IsAllDay         bool
	ColorTag         ColorTag
	Repeat           *RepeatFrequency
	HasRepeatEndDate bool
	RepeatEndDate    *time.Time
	AlarmRule        *string
	IsAlarmEnabled   bool
	IsCompleted      bool
}

// ScheduleOccurrence is one persisted, individually editable instance of a
// schedule. Occurrences created from one template share a SeriesID; a
// non-repeating entry is a series of one.
type ScheduleOccurrence struct {
	ID               uuid.UUID        `json:"id" db:"id"`
	SeriesID         uuid.UUID        `json:"series_id" db:"series_id"`
	OccurrenceIndex  int              `json:"occurrence_index" db:"occurrence_index"`
	Title            string           `json:"title" db:"title"`
	Location         *string          `json:"location" db:"location"`
	Detail           *string          `json:"detail" db:"detail"`
	StartDate        time.Time        `json:"start_date" db:"start_date"`
	EndDate          time.Time        `json:"end_date" db:"end_date"`
	IsAllDay         bool             `json:"is_all_day" db:"is_all_day"`
	IsCompleted      bool             `json:"is_completed" db:"is_completed"`
	ColorTag         ColorTag         `json:"color_tag" db:"color_tag"`
	Repeat           *RepeatFrequency `json:"repeat" db:"repeat"`
	HasRepeatEndDate bool             `json:"has_repeat_end_date" db:"has_repeat_end_date"`
	RepeatEndDate    *time.Time       `json:"repeat_end_date" db:"repeat_end_date"`
	AlarmRule        *string          `json:"alarm_rule" db:"alarm_rule"`
	IsAlarmEnabled   bool             `json:"is_alarm_enabled" db:"is_alarm_enabled"`
	CreatedAt        time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at" db:"updated_at"`
}

// ExternalEvent is a read-only event sourced from the external calendar
// provider. It is never mutated locally, only fetched and cached.
type ExternalEvent struct {
	ExternalID string    `json:"external_id"`
	Title      string    `json:"title"`
	StartDate  time.Time `json:"start_date"`
	EndDate    time.Time `json:"end_date"`
	IsAllDay   bool      `json:"is_all_day"`
}

// MergedItem is one entry of the combined day view.
type MergedItem struct {
	Kind        ItemKind  `json:"kind"`
	DedupeKey   string    `json:"-"`
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	IsAllDay    bool      `json:"is_all_day"`
	IsCompleted bool      `json:"is_completed,omitempty"`
	ColorTag    ColorTag  `json:"color_tag,omitempty"`
}

// Business logic methods for ScheduleTemplate
func (t *ScheduleTemplate) Duration() time.Duration {
	return t.EndDate.Sub(t.StartDate)
}

func (t *ScheduleTemplate) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return ErrEmptyTitle
	}
	if !t.EndDate.After(t.StartDate) {
		return ErrInvalidTimeRange
	}
	if t.Repeat != nil && !t.Repeat.IsValid() {
		return ErrInvalidRepeatRule
	}
	return nil
}

// RepeatUntil returns the end bound for occurrence generation, or nil when
// the template repeats without an explicit end date.
func (t *ScheduleTemplate) RepeatUntil() *time.Time {
	if !t.HasRepeatEndDate {
		return nil
	}
	return t.RepeatEndDate
}

// Business logic methods for ScheduleOccurrence
func (o *ScheduleOccurrence) Duration() time.Duration {
	return o.EndDate.Sub(o.StartDate)
}

func (o *ScheduleOccurrence) IsRepeating() bool {
	return o.Repeat != nil
}

// OccursOn reports whether the occurrence touches the calendar day that
// contains day (in day's location).
func (o *ScheduleOccurrence) OccursOn(day time.Time) bool {
	dayStart := DayStart(day)
	dayEnd := dayStart.AddDate(0, 0, 1)
	return o.StartDate.Before(dayEnd) && o.EndDate.After(dayStart)
}

// Utility methods
func (f RepeatFrequency) IsValid() bool {
	switch f {
	case RepeatDaily, RepeatWeekly, RepeatMonthly, RepeatYearly:
		return true
	default:
		return false
	}
}

func (c ColorTag) IsValid() bool {
	switch c {
	case ColorDefault, ColorRed, ColorOrange, ColorYellow, ColorGreen, ColorBlue, ColorPurple:
		return true
	default:
		return false
	}
}

// DayStart truncates t to midnight in its own location.
func DayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// MonthStart truncates t to the first of its month, midnight, in its own
// location.
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}
