package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/planweave/core/internal/domain/entities"
	"github.com/planweave/core/internal/domain/recurrence"
	"github.com/planweave/core/internal/infrastructure/logger"
	"github.com/planweave/core/internal/ports"
)

// Invalidator receives a signal whenever persisted schedules changed and
// any derived day view may be stale.
type Invalidator interface {
	Invalidate()
}

// ScheduleService handles the lifecycle of schedule series: materialization
// from templates, single-occurrence and whole-series edits, and the
// anchor-based range deletes behind "this and following" editing flows.
type ScheduleService struct {
	repo          ports.ScheduleRepository
	notifier      ports.ReminderNotifier
	invalidator   Invalidator
	logger        *logger.Logger
	metrics       *Metrics
	generationCap int
}

// NewScheduleService creates a new schedule service. notifier, invalidator
// and metrics may be nil; generationCap <= 0 selects the default.
func NewScheduleService(repo ports.ScheduleRepository, notifier ports.ReminderNotifier, invalidator Invalidator, log *logger.Logger, metrics *Metrics, generationCap int) *ScheduleService {
	if generationCap <= 0 {
		generationCap = recurrence.DefaultCap
	}
	return &ScheduleService{
		repo:          repo,
		notifier:      notifier,
		invalidator:   invalidator,
		logger:        log.WithComponent("schedule_service"),
		metrics:       metrics,
		generationCap: generationCap,
	}
}

// CreateSeries validates the template, materializes its occurrences and
// persists them as one batch. Reminders for alarm-enabled templates are
// scheduled best-effort after the batch commits; a reminder failure never
// fails the create.
func (s *ScheduleService) CreateSeries(ctx context.Context, req ports.CreateScheduleRequest) ([]uuid.UUID, error) {
	template := req.Template()
	if err := template.Validate(); err != nil {
		return nil, err
	}

	occurrences := recurrence.Materialize(template, s.generationCap)
	if len(occurrences) == 0 {
		// Repeat end date before the start: nothing to persist.
		return []uuid.UUID{}, nil
	}
	if err := s.repo.CreateBatch(ctx, occurrences); err != nil {
		return nil, fmt.Errorf("failed to persist series: %w", err)
	}

	if template.IsAlarmEnabled && s.notifier != nil {
		for _, occ := range occurrences {
			if err := s.notifier.ScheduleReminder(ctx, occ); err != nil {
				s.logger.Warnw("failed to schedule reminder",
					"occurrence_id", occ.ID, "error", err)
			}
		}
	}

	if s.metrics != nil {
		s.metrics.SeriesCreated.Inc()
		s.metrics.OccurrencesCreated.Add(float64(len(occurrences)))
	}

	ids := make([]uuid.UUID, len(occurrences))
	for i, occ := range occurrences {
		ids[i] = occ.ID
	}

	s.logger.Infow("series created",
		"series_id", occurrences[0].SeriesID,
		"occurrences", len(occurrences),
		"repeating", template.Repeat != nil,
	)

	s.invalidate()
	return ids, nil
}

// GetSchedule retrieves one occurrence by id.
func (s *ScheduleService) GetSchedule(ctx context.Context, id uuid.UUID) (*entities.ScheduleOccurrence, error) {
	occ, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return occ, nil
}

// GetSeries retrieves every occurrence of a series ordered by start date.
func (s *ScheduleService) GetSeries(ctx context.Context, seriesID uuid.UUID) ([]entities.ScheduleOccurrence, error) {
	return s.repo.GetBySeries(ctx, seriesID)
}

// UpdateSchedule mutates one occurrence. With updateDates false the stored
// start/end are left untouched, which is how series metadata edits avoid
// shifting individual occurrence times. The occurrence keeps its series id,
// so later whole-series edits still reach it.
func (s *ScheduleService) UpdateSchedule(ctx context.Context, id uuid.UUID, req ports.UpdateScheduleRequest, updateDates bool) error {
	fields := req.Fields()
	if updateDates && fields.StartDate != nil && fields.EndDate != nil {
		if !fields.EndDate.After(*fields.StartDate) {
			return entities.ErrInvalidTimeRange
		}
	}

	if err := s.repo.Update(ctx, id, fields, updateDates); err != nil {
		return err
	}

	s.logger.Infow("schedule updated", "occurrence_id", id, "update_dates", updateDates)
	s.invalidate()
	return nil
}

// UpdateSeries applies the same non-date field changes to every occurrence
// of the series.
func (s *ScheduleService) UpdateSeries(ctx context.Context, seriesID uuid.UUID, req ports.UpdateScheduleRequest) error {
	fields := req.Fields()
	// Series-wide edits never move individual occurrence times.
	fields.StartDate = nil
	fields.EndDate = nil

	if err := s.repo.UpdateSeries(ctx, seriesID, fields); err != nil {
		return err
	}

	s.logger.Infow("series updated", "series_id", seriesID)
	s.invalidate()
	return nil
}

// DeleteSchedule removes exactly one occurrence and cancels its reminder.
func (s *ScheduleService) DeleteSchedule(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	if s.notifier != nil {
		if err := s.notifier.CancelReminder(ctx, id); err != nil {
			s.logger.Warnw("failed to cancel reminder", "occurrence_id", id, "error", err)
		}
	}

	s.logger.Infow("schedule deleted", "occurrence_id", id)
	s.invalidate()
	return nil
}

// DeleteSeries removes every occurrence of the series.
func (s *ScheduleService) DeleteSeries(ctx context.Context, seriesID uuid.UUID) error {
	if err := s.repo.DeleteSeries(ctx, seriesID); err != nil {
		return err
	}

	s.logger.Infow("series deleted", "series_id", seriesID)
	s.invalidate()
	return nil
}

// DeleteFollowing removes occurrences of the series after anchor (at anchor
// too when includeAnchor), leaving earlier occurrences untouched. Changing
// a series "from here on" is this delete followed by materializing a new
// template; the engine does not re-expand an existing series in place.
func (s *ScheduleService) DeleteFollowing(ctx context.Context, seriesID uuid.UUID, anchor time.Time, includeAnchor bool) (int64, error) {
	deleted, err := s.repo.DeleteFollowing(ctx, seriesID, anchor, includeAnchor)
	if err != nil {
		return 0, err
	}

	s.logger.Infow("series tail deleted",
		"series_id", seriesID,
		"anchor", anchor,
		"include_anchor", includeAnchor,
		"deleted", deleted,
	)
	s.invalidate()
	return deleted, nil
}

func (s *ScheduleService) invalidate() {
	if s.invalidator != nil {
		s.invalidator.Invalidate()
	}
}
