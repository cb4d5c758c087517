package services

import (
	"context"
	"sync"
	"time"

	"github.com/planweave/core/internal/domain/entities"
	"github.com/planweave/core/internal/infrastructure/logger"
	"github.com/planweave/core/internal/ports"
)

const dayKeyLayout = "2006-01-02"

// MonthCache is a month-keyed, day-keyed cache of external calendar events.
//
// A day present with an empty slice is a confirmed-empty entry: the provider
// has been asked about that day and had nothing. An absent day key means
// unknown. The distinction is what lets Fill skip days it already knows
// about instead of refetching them.
type MonthCache struct {
	mu     sync.RWMutex
	days   map[string][]entities.ExternalEvent
	logger *logger.Logger
}

// NewMonthCache creates an empty cache owned by the caller. There is no
// global instance; construct one per session and drop it on sign-out.
func NewMonthCache(log *logger.Logger) *MonthCache {
	return &MonthCache{
		days:   make(map[string][]entities.ExternalEvent),
		logger: log.WithComponent("month_cache"),
	}
}

// Fill queries the provider for every day of the month starting at
// monthStart that is not yet cached, storing results even when empty. It
// reports whether any day was newly populated.
//
// A failed fetch leaves that day un-cached and moves on, so one bad day
// does not block the rest of the month.
func (c *MonthCache) Fill(ctx context.Context, monthStart time.Time, fetch ports.DayFetcher) (bool, error) {
	monthStart = entities.MonthStart(monthStart)
	nextMonth := monthStart.AddDate(0, 1, 0)

	changed := false
	for day := monthStart; day.Before(nextMonth); day = day.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			return changed, err
		}

		key := day.Format(dayKeyLayout)
		c.mu.RLock()
		_, cached := c.days[key]
		c.mu.RUnlock()
		if cached {
			continue
		}

		events, err := fetch(ctx, day)
		if err != nil {
			c.logger.Warnw("day fetch failed, leaving day uncached",
				"day", key, "error", err)
			continue
		}

		c.mu.Lock()
		if _, raced := c.days[key]; !raced {
			if events == nil {
				events = []entities.ExternalEvent{}
			}
			c.days[key] = events
			changed = true
		}
		c.mu.Unlock()
	}

	return changed, nil
}

// Get returns the cached events for the day containing day. The second
// result distinguishes confirmed-empty (true with an empty slice) from
// not-yet-fetched (false).
func (c *MonthCache) Get(day time.Time) ([]entities.ExternalEvent, bool) {
	key := entities.DayStart(day).Format(dayKeyLayout)

	c.mu.RLock()
	defer c.mu.RUnlock()
	events, ok := c.days[key]
	if !ok {
		return nil, false
	}
	out := make([]entities.ExternalEvent, len(events))
	copy(out, events)
	return out, true
}

// Put stores a single day's events directly, used when a selected-day fetch
// completes before its month fill does.
func (c *MonthCache) Put(day time.Time, events []entities.ExternalEvent) {
	key := entities.DayStart(day).Format(dayKeyLayout)
	if events == nil {
		events = []entities.ExternalEvent{}
	}

	c.mu.Lock()
	c.days[key] = events
	c.mu.Unlock()
}

// Purge removes the event with externalID from the day's cached list,
// leaving other entries intact. A no-op when the id is empty or absent.
func (c *MonthCache) Purge(day time.Time, externalID string) {
	if externalID == "" {
		return
	}
	key := entities.DayStart(day).Format(dayKeyLayout)

	c.mu.Lock()
	defer c.mu.Unlock()
	events, ok := c.days[key]
	if !ok {
		return
	}
	kept := events[:0]
	for _, ev := range events {
		if ev.ExternalID != externalID {
			kept = append(kept, ev)
		}
	}
	c.days[key] = kept
}

// Invalidate drops every cached day, starting a fresh cache generation.
func (c *MonthCache) Invalidate() {
	c.mu.Lock()
	c.days = make(map[string][]entities.ExternalEvent)
	c.mu.Unlock()
}

// Len returns the number of cached day entries.
func (c *MonthCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.days)
}
