package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/planweave/core/internal/domain/entities"
)

// ScheduleRepository defines the interface for schedule persistence. All
// occurrence ids and series ids are opaque uuids.
type ScheduleRepository interface {
	// CreateBatch persists all occurrences of one materialized series as a
	// single logical batch: either every write commits or none do.
	CreateBatch(ctx context.Context, occurrences []entities.ScheduleOccurrence) error

	GetByID(ctx context.Context, id uuid.UUID) (*entities.ScheduleOccurrence, error)
	GetBySeries(ctx context.Context, seriesID uuid.UUID) ([]entities.ScheduleOccurrence, error)

	// GetByDay returns occurrences whose span touches the calendar day
	// containing day.
	GetByDay(ctx context.Context, day time.Time) ([]entities.ScheduleOccurrence, error)
	GetByRange(ctx context.Context, start, end time.Time) ([]entities.ScheduleOccurrence, error)
	CountByDay(ctx context.Context, day time.Time) (int64, error)

	// Update mutates one occurrence. With updateDates false the stored
	// start/end dates are left untouched regardless of the fields given.
	Update(ctx context.Context, id uuid.UUID, fields ScheduleFields, updateDates bool) error

	// UpdateSeries applies the same non-date field changes to every
	// occurrence sharing seriesID.
	UpdateSeries(ctx context.Context, seriesID uuid.UUID, fields ScheduleFields) error

	Delete(ctx context.Context, id uuid.UUID) error
	DeleteSeries(ctx context.Context, seriesID uuid.UUID) error

	// DeleteFollowing removes occurrences of the series starting after
	// anchor (or at anchor too, when includeAnchor) in one bounded query.
	DeleteFollowing(ctx context.Context, seriesID uuid.UUID, anchor time.Time, includeAnchor bool) (int64, error)
}

// ScheduleFields carries the mutable fields of an occurrence; nil members
// are left unchanged.
type ScheduleFields struct {
	Title       *string
	Location    *string
	Detail      *string
	StartDate   *time.Time
	EndDate     *time.Time
	IsAllDay    *bool
	IsCompleted *bool
	ColorTag    *entities.ColorTag
	AlarmRule   *string
}

// CalendarProvider defines the interface to the read-only external
// calendar source.
type CalendarProvider interface {
	// FetchEvents returns the provider's events for the calendar day
	// containing day.
	FetchEvents(ctx context.Context, day time.Time) ([]entities.ExternalEvent, error)

	// Changes emits a signal whenever the provider's data may have
	// changed; consumers treat every signal as a full invalidation.
	Changes() <-chan struct{}
}

// DayFetcher is the single-day fetch function handed to the month cache.
type DayFetcher func(ctx context.Context, day time.Time) ([]entities.ExternalEvent, error)

// ReminderNotifier schedules local reminders for alarm-enabled
// occurrences. Implementations are best-effort: a failed reminder must not
// block persistence.
type ReminderNotifier interface {
	ScheduleReminder(ctx context.Context, occurrence entities.ScheduleOccurrence) error
	CancelReminder(ctx context.Context, occurrenceID uuid.UUID) error
}
