package planview

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/planweave/core/internal/domain/entities"
)

// MergeDay combines locally owned schedule occurrences with externally
// sourced events into one deduplicated, ordered day view.
//
// Dedupe scans local items first, then external ones, keeping the first
// holder of each key: a locally created copy of an event wins over a
// later-arriving external duplicate. Ordering puts all-day items before
// timed ones, then ascends by start time, then by lowercase title; the sort
// is stable so equal items keep scan order.
func MergeDay(local []entities.ScheduleOccurrence, external []entities.ExternalEvent) []entities.MergedItem {
	items := make([]entities.MergedItem, 0, len(local)+len(external))
	seen := make(map[string]bool, len(local)+len(external))

	for _, occ := range local {
		item := fromOccurrence(occ)
		if seen[item.DedupeKey] {
			continue
		}
		seen[item.DedupeKey] = true
		items = append(items, item)
	}
	for _, ev := range external {
		item := fromExternal(ev)
		if seen[item.DedupeKey] {
			continue
		}
		seen[item.DedupeKey] = true
		items = append(items, item)
	}

	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.IsAllDay != b.IsAllDay {
			return a.IsAllDay
		}
		if !a.StartDate.Equal(b.StartDate) {
			return a.StartDate.Before(b.StartDate)
		}
		return strings.ToLower(a.Title) < strings.ToLower(b.Title)
	})

	return items
}

func fromOccurrence(occ entities.ScheduleOccurrence) entities.MergedItem {
	return entities.MergedItem{
		Kind:        entities.ItemKindLocal,
		DedupeKey:   heuristicKey(occ.Title, occ.StartDate, occ.EndDate, occ.IsAllDay),
		ID:          occ.ID.String(),
		Title:       occ.Title,
		StartDate:   occ.StartDate,
		EndDate:     occ.EndDate,
		IsAllDay:    occ.IsAllDay,
		IsCompleted: occ.IsCompleted,
		ColorTag:    occ.ColorTag,
	}
}

func fromExternal(ev entities.ExternalEvent) entities.MergedItem {
	item := entities.MergedItem{
		Kind:      entities.ItemKindExternal,
		ID:        ev.ExternalID,
		Title:     ev.Title,
		StartDate: ev.StartDate,
		EndDate:   ev.EndDate,
		IsAllDay:  ev.IsAllDay,
	}
	if ev.ExternalID != "" {
		item.DedupeKey = "ext:" + ev.ExternalID
	} else {
		item.DedupeKey = heuristicKey(ev.Title, ev.StartDate, ev.EndDate, ev.IsAllDay)
	}
	return item
}

// heuristicKey is the conservative dedupe key for items that carry no
// external id: lowercase title plus minute-rounded bounds plus all-day flag.
func heuristicKey(title string, start, end time.Time, allDay bool) string {
	return fmt.Sprintf("%s|%s|%s|%t",
		strings.ToLower(strings.TrimSpace(title)),
		start.Truncate(time.Minute).UTC().Format(time.RFC3339),
		end.Truncate(time.Minute).UTC().Format(time.RFC3339),
		allDay,
	)
}
