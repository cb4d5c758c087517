package calendar

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/planweave/core/internal/infrastructure/config"
	"github.com/planweave/core/internal/infrastructure/logger"
)

const sampleFeed = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//Test//Test//EN
BEGIN:VEVENT
UID:single-1
SUMMARY:Dentist
DTSTART:20250710T140000Z
DTEND:20250710T150000Z
END:VEVENT
BEGIN:VEVENT
UID:allday-1
SUMMARY:Conference
DTSTART;VALUE=DATE:20250710
DTEND;VALUE=DATE:20250711
END:VEVENT
BEGIN:VEVENT
UID:weekly-1
SUMMARY:Standup
DTSTART:20250707T090000Z
DTEND:20250707T091500Z
RRULE:FREQ=WEEKLY;BYDAY=MO,TH
END:VEVENT
END:VCALENDAR
`

func writeFeed(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "feed.ics")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write feed: %v", err)
	}
	return path
}

func newTestProvider(t *testing.T, body string) *ICSProvider {
	t.Helper()
	return NewICSProvider(config.ProviderConfig{
		ICSURL:       writeFeed(t, body),
		FetchTimeout: time.Second,
	}, logger.NewNop())
}

func TestFetchEventsReturnsDayIntersection(t *testing.T) {
	t.Parallel()

	provider := newTestProvider(t, sampleFeed)

	// Thursday July 10: the timed event, the all-day event and the
	// BYDAY=TH expansion of the weekly rule.
	day := time.Date(2025, time.July, 10, 0, 0, 0, 0, time.UTC)
	events, err := provider.FetchEvents(context.Background(), day)
	if err != nil {
		t.Fatalf("FetchEvents: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d: %+v", len(events), events)
	}

	byTitle := map[string]int{}
	for _, ev := range events {
		byTitle[ev.Title]++
		if ev.ExternalID == "" {
			t.Fatalf("event %q has no external id", ev.Title)
		}
	}
	for _, title := range []string{"Dentist", "Conference", "Standup"} {
		if byTitle[title] != 1 {
			t.Fatalf("expected one %q event, got %d", title, byTitle[title])
		}
	}

	for _, ev := range events {
		if ev.Title == "Conference" && !ev.IsAllDay {
			t.Fatalf("all-day event not flagged: %+v", ev)
		}
		if ev.Title != "Conference" && ev.IsAllDay {
			t.Fatalf("timed event flagged all-day: %+v", ev)
		}
	}
}

func TestFetchEventsExpandsRecurringInstances(t *testing.T) {
	t.Parallel()

	provider := newTestProvider(t, sampleFeed)

	// Monday July 14: only the weekly rule fires.
	day := time.Date(2025, time.July, 14, 0, 0, 0, 0, time.UTC)
	events, err := provider.FetchEvents(context.Background(), day)
	if err != nil {
		t.Fatalf("FetchEvents: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d: %+v", len(events), events)
	}

	ev := events[0]
	if ev.Title != "Standup" {
		t.Fatalf("unexpected event %q", ev.Title)
	}
	wantStart := time.Date(2025, time.July, 14, 9, 0, 0, 0, time.UTC)
	if !ev.StartDate.Equal(wantStart) {
		t.Fatalf("instance starts %v, want %v", ev.StartDate, wantStart)
	}
	if ev.EndDate.Sub(ev.StartDate) != 15*time.Minute {
		t.Fatalf("instance duration %v, want 15m", ev.EndDate.Sub(ev.StartDate))
	}
}

func TestFetchEventsDistinctInstanceIDs(t *testing.T) {
	t.Parallel()

	provider := newTestProvider(t, sampleFeed)
	ctx := context.Background()

	monday := time.Date(2025, time.July, 14, 0, 0, 0, 0, time.UTC)
	thursday := time.Date(2025, time.July, 17, 0, 0, 0, 0, time.UTC)

	monEvents, err := provider.FetchEvents(ctx, monday)
	if err != nil {
		t.Fatalf("FetchEvents monday: %v", err)
	}
	thuEvents, err := provider.FetchEvents(ctx, thursday)
	if err != nil {
		t.Fatalf("FetchEvents thursday: %v", err)
	}
	if len(monEvents) != 1 || len(thuEvents) != 1 {
		t.Fatalf("expected one instance per day, got %d and %d", len(monEvents), len(thuEvents))
	}
	if monEvents[0].ExternalID == thuEvents[0].ExternalID {
		t.Fatalf("instances share external id %q", monEvents[0].ExternalID)
	}
}

func TestFetchEventsEmptyDay(t *testing.T) {
	t.Parallel()

	provider := newTestProvider(t, sampleFeed)

	// A Tuesday with nothing scheduled.
	day := time.Date(2025, time.July, 15, 0, 0, 0, 0, time.UTC)
	events, err := provider.FetchEvents(context.Background(), day)
	if err != nil {
		t.Fatalf("FetchEvents: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("expected no events, got %+v", events)
	}
}
