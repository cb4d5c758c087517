package services

import (
	"context"
	"sync"
	"time"

	"github.com/planweave/core/internal/domain/entities"
	"github.com/planweave/core/internal/domain/planview"
	"github.com/planweave/core/internal/infrastructure/logger"
	"github.com/planweave/core/internal/ports"
)

const (
	defaultRecalcDebounce  = 50 * time.Millisecond
	defaultPreloadDebounce = 120 * time.Millisecond
)

// PlannerService owns the merged day view: it combines locally persisted
// occurrences with cached external events for the selected day, debounces
// bursts of invalidation into a single recompute, and keeps the previous,
// current and next months of the external cache warm.
//
// All mutation of the selected day, the pending-recompute slot and the
// subscriber list happens under one mutex; the cache itself is safe for the
// concurrent month fills the preloader fans out.
type PlannerService struct {
	repo     ports.ScheduleRepository
	provider ports.CalendarProvider
	cache    *MonthCache
	logger   *logger.Logger
	metrics  *Metrics

	recalcDebounce  time.Duration
	preloadDebounce time.Duration

	mu            sync.Mutex
	selectedDay   time.Time
	current       []entities.MergedItem
	subscribers   map[int]chan []entities.MergedItem
	nextSubID     int
	pendingCancel context.CancelFunc
	preloadCancel context.CancelFunc
	closed        bool
}

// NewPlannerService creates a planner over the given collaborators. metrics
// may be nil; zero debounce durations select the defaults.
func NewPlannerService(repo ports.ScheduleRepository, provider ports.CalendarProvider, cache *MonthCache, log *logger.Logger, metrics *Metrics, recalcDebounce, preloadDebounce time.Duration) *PlannerService {
	if recalcDebounce <= 0 {
		recalcDebounce = defaultRecalcDebounce
	}
	if preloadDebounce <= 0 {
		preloadDebounce = defaultPreloadDebounce
	}
	return &PlannerService{
		repo:            repo,
		provider:        provider,
		cache:           cache,
		logger:          log.WithComponent("planner"),
		metrics:         metrics,
		recalcDebounce:  recalcDebounce,
		preloadDebounce: preloadDebounce,
		selectedDay:     entities.DayStart(time.Now()),
		subscribers:     make(map[int]chan []entities.MergedItem),
	}
}

// Start subscribes to the provider's change notifications until ctx ends.
// Every change signal invalidates the merged view and refreshes the
// neighbor months.
func (s *PlannerService) Start(ctx context.Context) {
	go func() {
		changes := s.provider.Changes()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-changes:
				if !ok {
					return
				}
				s.logger.Debugw("external calendar change notification")
				s.cache.Invalidate()
				s.PreloadNeighbors(s.SelectedDay())
				s.Invalidate()
			}
		}
	}()
}

// SelectedDay returns the currently selected day.
func (s *PlannerService) SelectedDay() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedDay
}

// SelectDay moves the selection, schedules a neighbor preload and a
// recompute. Rapid navigation collapses into one preload and one recompute
// per debounce window.
func (s *PlannerService) SelectDay(day time.Time) {
	day = entities.DayStart(day)

	s.mu.Lock()
	s.selectedDay = day
	s.mu.Unlock()

	s.PreloadNeighbors(day)
	s.Invalidate()
}

// Invalidate schedules a recompute of the selected day's merged view. A
// call arriving while a recompute is still pending abandons the pending one
// entirely and starts a fresh wait, so N invalidations inside the window
// produce exactly one recompute.
func (s *PlannerService) Invalidate() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if s.pendingCancel != nil {
		s.pendingCancel()
		if s.metrics != nil {
			s.metrics.CoalescedInvalidates.Inc()
		}
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.pendingCancel = cancel
	s.mu.Unlock()

	go func() {
		timer := time.NewTimer(s.recalcDebounce)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		s.mu.Lock()
		if ctx.Err() != nil {
			// A newer invalidation owns the pending slot now.
			s.mu.Unlock()
			return
		}
		s.pendingCancel = nil
		day := s.selectedDay
		s.mu.Unlock()

		s.recompute(context.Background(), day)
	}()
}

// recompute re-runs the merge for day and publishes the result as a silent
// state replacement.
func (s *PlannerService) recompute(ctx context.Context, day time.Time) {
	items, err := s.MergedDay(ctx, day)
	if err != nil {
		s.logger.Errorw("recompute failed", "day", day.Format(dayKeyLayout), "error", err)
		return
	}
	if s.metrics != nil {
		s.metrics.MergeRecomputes.Inc()
	}

	// Publishing under the mutex keeps sends ordered against the
	// close(ch) in Subscribe's cancel func and in Close.
	s.mu.Lock()
	s.current = items
	for _, ch := range s.subscribers {
		select {
		case ch <- items:
		default:
			// Slow consumer keeps only the freshest view.
		}
	}
	s.mu.Unlock()
}

// MergedDay combines the repository's occurrences for day with the cached
// external events. When the cache has no entry for the selected day yet, a
// single direct fetch fills it; for any other uncached day the external
// half is treated as empty.
func (s *PlannerService) MergedDay(ctx context.Context, day time.Time) ([]entities.MergedItem, error) {
	local, err := s.repo.GetByDay(ctx, day)
	if err != nil {
		return nil, err
	}

	external, cached := s.cache.Get(day)
	if cached {
		if s.metrics != nil {
			s.metrics.CacheHits.Inc()
		}
	} else {
		if s.metrics != nil {
			s.metrics.CacheMisses.Inc()
		}
		if entities.DayStart(day).Equal(s.SelectedDay()) {
			events, err := s.provider.FetchEvents(ctx, day)
			if err != nil {
				s.logger.Warnw("selected-day fetch failed",
					"day", day.Format(dayKeyLayout), "error", err)
			} else {
				s.cache.Put(day, events)
				external = events
			}
		}
	}

	return planview.MergeDay(local, external), nil
}

// CurrentView returns the last published merged view of the selected day.
func (s *PlannerService) CurrentView() []entities.MergedItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]entities.MergedItem, len(s.current))
	copy(out, s.current)
	return out
}

// HasSchedule reports whether any local occurrence exists on day.
func (s *PlannerService) HasSchedule(ctx context.Context, day time.Time) (bool, error) {
	n, err := s.repo.CountByDay(ctx, day)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// PurgeExternalEvent drops one external event from the day's cache entry,
// used when the app learns the provider deleted it.
func (s *PlannerService) PurgeExternalEvent(day time.Time, externalID string) {
	s.cache.Purge(day, externalID)
	s.Invalidate()
}

// Subscribe registers a consumer of published day views. The returned
// cancel function removes the subscription.
func (s *PlannerService) Subscribe() (<-chan []entities.MergedItem, func()) {
	ch := make(chan []entities.MergedItem, 1)

	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = ch
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[id]; ok {
			delete(s.subscribers, id)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

// PreloadNeighbors fills the previous, current and next months of the
// cache around day. The fill itself is debounced and the three month fills
// run concurrently; a newer preload replaces a pending one wholesale, which
// is what keeps fast month-swiping from stacking up fetches.
//
// The fill deliberately lives on the service's own lifetime rather than any
// caller's: a short-lived request context would end before the debounce
// fires. Close or a newer preload are what cancel it.
func (s *PlannerService) PreloadNeighbors(day time.Time) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if s.preloadCancel != nil {
		s.preloadCancel()
	}
	preloadCtx, cancel := context.WithCancel(context.Background())
	s.preloadCancel = cancel
	s.mu.Unlock()

	month := entities.MonthStart(day)

	go func() {
		timer := time.NewTimer(s.preloadDebounce)
		defer timer.Stop()
		select {
		case <-preloadCtx.Done():
			return
		case <-timer.C:
		}

		var wg sync.WaitGroup
		changedAny := false
		var changedMu sync.Mutex

		for _, m := range []time.Time{month.AddDate(0, -1, 0), month, month.AddDate(0, 1, 0)} {
			m := m
			wg.Add(1)
			go func() {
				defer wg.Done()
				changed, err := s.cache.Fill(preloadCtx, m, s.fetchDay)
				if err != nil {
					return
				}
				if changed {
					changedMu.Lock()
					changedAny = true
					changedMu.Unlock()
				}
			}()
		}
		wg.Wait()

		if changedAny {
			s.Invalidate()
		}
	}()
}

func (s *PlannerService) fetchDay(ctx context.Context, day time.Time) ([]entities.ExternalEvent, error) {
	events, err := s.provider.FetchEvents(ctx, day)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.CacheFillDays.Inc()
	}
	return events, nil
}

// Close cancels any pending recompute or preload and closes all
// subscriptions.
func (s *PlannerService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if s.pendingCancel != nil {
		s.pendingCancel()
		s.pendingCancel = nil
	}
	if s.preloadCancel != nil {
		s.preloadCancel()
		s.preloadCancel = nil
	}
	for id, ch := range s.subscribers {
		delete(s.subscribers, id)
		close(ch)
	}
}
