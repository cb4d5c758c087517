package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/planweave/core/internal/domain/entities"
	"github.com/planweave/core/internal/ports"
)

// MemoryScheduleRepository is an in-memory ports.ScheduleRepository used by
// tests and by development setups without a database.
type MemoryScheduleRepository struct {
	mu   sync.RWMutex
	byID map[uuid.UUID]entities.ScheduleOccurrence
}

// NewMemoryScheduleRepository creates an empty in-memory repository.
func NewMemoryScheduleRepository() *MemoryScheduleRepository {
	return &MemoryScheduleRepository{
		byID: make(map[uuid.UUID]entities.ScheduleOccurrence),
	}
}

func (r *MemoryScheduleRepository) CreateBatch(_ context.Context, occurrences []entities.ScheduleOccurrence) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, occ := range occurrences {
		r.byID[occ.ID] = occ
	}
	return nil
}

func (r *MemoryScheduleRepository) GetByID(_ context.Context, id uuid.UUID) (*entities.ScheduleOccurrence, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	occ, ok := r.byID[id]
	if !ok {
		return nil, entities.ErrScheduleNotFound
	}
	return &occ, nil
}

func (r *MemoryScheduleRepository) GetBySeries(_ context.Context, seriesID uuid.UUID) ([]entities.ScheduleOccurrence, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []entities.ScheduleOccurrence{}
	for _, occ := range r.byID {
		if occ.SeriesID == seriesID {
			out = append(out, occ)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out, nil
}

func (r *MemoryScheduleRepository) GetByDay(_ context.Context, day time.Time) ([]entities.ScheduleOccurrence, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []entities.ScheduleOccurrence{}
	for _, occ := range r.byID {
		if occ.OccursOn(day) {
			out = append(out, occ)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartDate.Equal(out[j].StartDate) {
			return out[i].StartDate.Before(out[j].StartDate)
		}
		return out[i].OccurrenceIndex < out[j].OccurrenceIndex
	})
	return out, nil
}

func (r *MemoryScheduleRepository) GetByRange(_ context.Context, start, end time.Time) ([]entities.ScheduleOccurrence, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []entities.ScheduleOccurrence{}
	for _, occ := range r.byID {
		if occ.StartDate.Before(end) && occ.EndDate.After(start) {
			out = append(out, occ)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartDate.Equal(out[j].StartDate) {
			return out[i].StartDate.Before(out[j].StartDate)
		}
		return out[i].OccurrenceIndex < out[j].OccurrenceIndex
	})
	return out, nil
}

func (r *MemoryScheduleRepository) CountByDay(ctx context.Context, day time.Time) (int64, error) {
	occurrences, err := r.GetByDay(ctx, day)
	if err != nil {
		return 0, err
	}
	return int64(len(occurrences)), nil
}

func (r *MemoryScheduleRepository) Update(_ context.Context, id uuid.UUID, fields ports.ScheduleFields, updateDates bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	occ, ok := r.byID[id]
	if !ok {
		return entities.ErrScheduleNotFound
	}
	applyFields(&occ, fields, updateDates)
	r.byID[id] = occ
	return nil
}

func (r *MemoryScheduleRepository) UpdateSeries(_ context.Context, seriesID uuid.UUID, fields ports.ScheduleFields) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	found := false
	for id, occ := range r.byID {
		if occ.SeriesID != seriesID {
			continue
		}
		found = true
		applyFields(&occ, fields, false)
		r.byID[id] = occ
	}
	if !found {
		return entities.ErrSeriesNotFound
	}
	return nil
}

func (r *MemoryScheduleRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[id]; !ok {
		return entities.ErrScheduleNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *MemoryScheduleRepository) DeleteSeries(_ context.Context, seriesID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	found := false
	for id, occ := range r.byID {
		if occ.SeriesID == seriesID {
			delete(r.byID, id)
			found = true
		}
	}
	if !found {
		return entities.ErrSeriesNotFound
	}
	return nil
}

func (r *MemoryScheduleRepository) DeleteFollowing(_ context.Context, seriesID uuid.UUID, anchor time.Time, includeAnchor bool) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var deleted int64
	for id, occ := range r.byID {
		if occ.SeriesID != seriesID {
			continue
		}
		if occ.StartDate.After(anchor) || (includeAnchor && occ.StartDate.Equal(anchor)) {
			delete(r.byID, id)
			deleted++
		}
	}
	return deleted, nil
}

func applyFields(occ *entities.ScheduleOccurrence, fields ports.ScheduleFields, updateDates bool) {
	if fields.Title != nil {
		occ.Title = *fields.Title
	}
	if fields.Location != nil {
		occ.Location = fields.Location
	}
	if fields.Detail != nil {
		occ.Detail = fields.Detail
	}
	if updateDates {
		if fields.StartDate != nil {
			occ.StartDate = *fields.StartDate
		}
		if fields.EndDate != nil {
			occ.EndDate = *fields.EndDate
		}
	}
	if fields.IsAllDay != nil {
		occ.IsAllDay = *fields.IsAllDay
	}
	if fields.IsCompleted != nil {
		occ.IsCompleted = *fields.IsCompleted
	}
	if fields.ColorTag != nil {
		occ.ColorTag = *fields.ColorTag
	}
	if fields.AlarmRule != nil {
		occ.AlarmRule = fields.AlarmRule
	}
	occ.UpdatedAt = time.Now()
}
