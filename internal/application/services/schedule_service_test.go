package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/planweave/core/internal/adapters/repository"
	"github.com/planweave/core/internal/domain/entities"
	"github.com/planweave/core/internal/infrastructure/logger"
	"github.com/planweave/core/internal/ports"
)

type failingNotifier struct {
	scheduled int
}

func (n *failingNotifier) ScheduleReminder(ctx context.Context, occurrence entities.ScheduleOccurrence) error {
	n.scheduled++
	return errors.New("notification service down")
}

func (n *failingNotifier) CancelReminder(ctx context.Context, occurrenceID uuid.UUID) error {
	return errors.New("notification service down")
}

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }

func newTestScheduleService(t *testing.T, repo ports.ScheduleRepository, notifier ports.ReminderNotifier) *ScheduleService {
	t.Helper()
	return NewScheduleService(repo, notifier, nil, logger.NewNop(), nil, 0)
}

func weeklyRequest(start time.Time, weeks int) ports.CreateScheduleRequest {
	end := start.AddDate(0, 0, 7*(weeks-1))
	return ports.CreateScheduleRequest{
		Title:            "Team sync",
		StartDate:        start,
		EndDate:          start.Add(time.Hour),
		Repeat:           strPtr("weekly"),
		HasRepeatEndDate: true,
		RepeatEndDate:    timePtr(time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, end.Location())),
	}
}

func TestCreateSeriesMaterializesWeekly(t *testing.T) {
	t.Parallel()

	repo := repository.NewMemoryScheduleRepository()
	svc := newTestScheduleService(t, repo, nil)
	start := time.Date(2025, time.January, 6, 9, 0, 0, 0, time.UTC)

	ids, err := svc.CreateSeries(context.Background(), weeklyRequest(start, 5))
	if err != nil {
		t.Fatalf("CreateSeries: %v", err)
	}
	if len(ids) != 5 {
		t.Fatalf("expected 5 occurrences, got %d", len(ids))
	}

	first, err := svc.GetSchedule(context.Background(), ids[0])
	if err != nil {
		t.Fatalf("GetSchedule: %v", err)
	}

	series, err := svc.GetSeries(context.Background(), first.SeriesID)
	if err != nil {
		t.Fatalf("GetSeries: %v", err)
	}
	if len(series) != 5 {
		t.Fatalf("series holds %d occurrences, want 5", len(series))
	}
	for i, occ := range series {
		if occ.SeriesID != first.SeriesID {
			t.Fatalf("occurrence %d has series %s, want %s", i, occ.SeriesID, first.SeriesID)
		}
		if occ.OccurrenceIndex != i {
			t.Fatalf("occurrence at position %d has index %d", i, occ.OccurrenceIndex)
		}
		wantStart := start.AddDate(0, 0, 7*i)
		if !occ.StartDate.Equal(wantStart) {
			t.Fatalf("occurrence %d starts %v, want %v", i, occ.StartDate, wantStart)
		}
		if occ.EndDate.Sub(occ.StartDate) != time.Hour {
			t.Fatalf("occurrence %d duration %v, want 1h", i, occ.EndDate.Sub(occ.StartDate))
		}
	}
}

func TestCreateSeriesRejectsInvalidTemplate(t *testing.T) {
	t.Parallel()

	repo := repository.NewMemoryScheduleRepository()
	svc := newTestScheduleService(t, repo, nil)
	start := time.Date(2025, time.January, 6, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		mutate  func(*ports.CreateScheduleRequest)
		wantErr error
	}{
		{
			name:    "empty title",
			mutate:  func(r *ports.CreateScheduleRequest) { r.Title = "   " },
			wantErr: entities.ErrEmptyTitle,
		},
		{
			name: "end before start",
			mutate: func(r *ports.CreateScheduleRequest) {
				r.EndDate = r.StartDate.Add(-time.Hour)
			},
			wantErr: entities.ErrInvalidTimeRange,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := weeklyRequest(start, 3)
			tt.mutate(&req)
			if _, err := svc.CreateSeries(context.Background(), req); !errors.Is(err, tt.wantErr) {
				t.Fatalf("got error %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateSeriesSurvivesReminderFailure(t *testing.T) {
	t.Parallel()

	repo := repository.NewMemoryScheduleRepository()
	notifier := &failingNotifier{}
	svc := newTestScheduleService(t, repo, notifier)
	start := time.Date(2025, time.January, 6, 9, 0, 0, 0, time.UTC)

	req := weeklyRequest(start, 3)
	req.IsAlarmEnabled = true
	req.AlarmRule = strPtr("10m")

	ids, err := svc.CreateSeries(context.Background(), req)
	if err != nil {
		t.Fatalf("CreateSeries failed on reminder error: %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("expected 3 occurrences, got %d", len(ids))
	}
	if notifier.scheduled != 3 {
		t.Fatalf("notifier saw %d reminders, want 3", notifier.scheduled)
	}
}

func TestDeleteFollowingKeepsEarlierOccurrences(t *testing.T) {
	t.Parallel()

	repo := repository.NewMemoryScheduleRepository()
	svc := newTestScheduleService(t, repo, nil)
	start := time.Date(2025, time.March, 3, 14, 0, 0, 0, time.UTC)

	req := ports.CreateScheduleRequest{
		Title:            "Daily review",
		StartDate:        start,
		EndDate:          start.Add(30 * time.Minute),
		Repeat:           strPtr("daily"),
		HasRepeatEndDate: true,
		RepeatEndDate:    timePtr(time.Date(2025, time.March, 12, 0, 0, 0, 0, time.UTC)),
	}

	ids, err := svc.CreateSeries(context.Background(), req)
	if err != nil {
		t.Fatalf("CreateSeries: %v", err)
	}
	if len(ids) != 10 {
		t.Fatalf("expected 10 occurrences, got %d", len(ids))
	}

	first, err := svc.GetSchedule(context.Background(), ids[0])
	if err != nil {
		t.Fatalf("GetSchedule: %v", err)
	}

	anchor := start.AddDate(0, 0, 5)
	deleted, err := svc.DeleteFollowing(context.Background(), first.SeriesID, anchor, true)
	if err != nil {
		t.Fatalf("DeleteFollowing: %v", err)
	}
	if deleted != 5 {
		t.Fatalf("deleted %d occurrences, want 5", deleted)
	}

	remaining, err := svc.GetSeries(context.Background(), first.SeriesID)
	if err != nil {
		t.Fatalf("GetSeries: %v", err)
	}
	if len(remaining) != 5 {
		t.Fatalf("%d occurrences remain, want 5", len(remaining))
	}
	for i, occ := range remaining {
		if occ.OccurrenceIndex != i {
			t.Fatalf("remaining occurrence %d has index %d", i, occ.OccurrenceIndex)
		}
		if !occ.StartDate.Before(anchor) {
			t.Fatalf("occurrence at %v survived a delete anchored at %v", occ.StartDate, anchor)
		}
	}
}

func TestDeleteFollowingExcludingAnchor(t *testing.T) {
	t.Parallel()

	repo := repository.NewMemoryScheduleRepository()
	svc := newTestScheduleService(t, repo, nil)
	start := time.Date(2025, time.March, 3, 14, 0, 0, 0, time.UTC)

	req := ports.CreateScheduleRequest{
		Title:            "Daily review",
		StartDate:        start,
		EndDate:          start.Add(30 * time.Minute),
		Repeat:           strPtr("daily"),
		HasRepeatEndDate: true,
		RepeatEndDate:    timePtr(time.Date(2025, time.March, 7, 0, 0, 0, 0, time.UTC)),
	}

	ids, err := svc.CreateSeries(context.Background(), req)
	if err != nil {
		t.Fatalf("CreateSeries: %v", err)
	}
	first, err := svc.GetSchedule(context.Background(), ids[0])
	if err != nil {
		t.Fatalf("GetSchedule: %v", err)
	}

	anchor := start.AddDate(0, 0, 2)
	deleted, err := svc.DeleteFollowing(context.Background(), first.SeriesID, anchor, false)
	if err != nil {
		t.Fatalf("DeleteFollowing: %v", err)
	}
	if deleted != 2 {
		t.Fatalf("deleted %d occurrences, want 2", deleted)
	}

	remaining, err := svc.GetSeries(context.Background(), first.SeriesID)
	if err != nil {
		t.Fatalf("GetSeries: %v", err)
	}
	if len(remaining) != 3 {
		t.Fatalf("%d occurrences remain, want 3", len(remaining))
	}
	last := remaining[len(remaining)-1]
	if !last.StartDate.Equal(anchor) {
		t.Fatalf("anchor occurrence missing, last start %v", last.StartDate)
	}
}

func TestUpdateScheduleWithoutDatesPreservesTimes(t *testing.T) {
	t.Parallel()

	repo := repository.NewMemoryScheduleRepository()
	svc := newTestScheduleService(t, repo, nil)
	start := time.Date(2025, time.April, 1, 10, 0, 0, 0, time.UTC)

	ids, err := svc.CreateSeries(context.Background(), ports.CreateScheduleRequest{
		Title:     "Dentist",
		StartDate: start,
		EndDate:   start.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("CreateSeries: %v", err)
	}

	shifted := start.Add(2 * time.Hour)
	err = svc.UpdateSchedule(context.Background(), ids[0], ports.UpdateScheduleRequest{
		Title:     strPtr("Dentist (moved)"),
		StartDate: &shifted,
	}, false)
	if err != nil {
		t.Fatalf("UpdateSchedule: %v", err)
	}

	occ, err := svc.GetSchedule(context.Background(), ids[0])
	if err != nil {
		t.Fatalf("GetSchedule: %v", err)
	}
	if occ.Title != "Dentist (moved)" {
		t.Fatalf("title not updated: %q", occ.Title)
	}
	if !occ.StartDate.Equal(start) {
		t.Fatalf("start moved to %v despite update_dates=false", occ.StartDate)
	}
}

func TestUpdateScheduleRejectsInvertedDates(t *testing.T) {
	t.Parallel()

	repo := repository.NewMemoryScheduleRepository()
	svc := newTestScheduleService(t, repo, nil)
	start := time.Date(2025, time.April, 1, 10, 0, 0, 0, time.UTC)

	ids, err := svc.CreateSeries(context.Background(), ports.CreateScheduleRequest{
		Title:     "Dentist",
		StartDate: start,
		EndDate:   start.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("CreateSeries: %v", err)
	}

	newStart := start.Add(4 * time.Hour)
	newEnd := start.Add(3 * time.Hour)
	err = svc.UpdateSchedule(context.Background(), ids[0], ports.UpdateScheduleRequest{
		StartDate: &newStart,
		EndDate:   &newEnd,
	}, true)
	if !errors.Is(err, entities.ErrInvalidTimeRange) {
		t.Fatalf("got error %v, want ErrInvalidTimeRange", err)
	}
}

func TestUpdateSeriesNeverMovesDates(t *testing.T) {
	t.Parallel()

	repo := repository.NewMemoryScheduleRepository()
	svc := newTestScheduleService(t, repo, nil)
	start := time.Date(2025, time.May, 5, 9, 0, 0, 0, time.UTC)

	ids, err := svc.CreateSeries(context.Background(), weeklyRequest(start, 3))
	if err != nil {
		t.Fatalf("CreateSeries: %v", err)
	}
	first, err := svc.GetSchedule(context.Background(), ids[0])
	if err != nil {
		t.Fatalf("GetSchedule: %v", err)
	}

	shifted := start.Add(6 * time.Hour)
	err = svc.UpdateSeries(context.Background(), first.SeriesID, ports.UpdateScheduleRequest{
		Title:     strPtr("Weekly sync"),
		StartDate: &shifted,
	})
	if err != nil {
		t.Fatalf("UpdateSeries: %v", err)
	}

	series, err := svc.GetSeries(context.Background(), first.SeriesID)
	if err != nil {
		t.Fatalf("GetSeries: %v", err)
	}
	for i, occ := range series {
		if occ.Title != "Weekly sync" {
			t.Fatalf("occurrence %d title %q not updated", i, occ.Title)
		}
		wantStart := start.AddDate(0, 0, 7*i)
		if !occ.StartDate.Equal(wantStart) {
			t.Fatalf("occurrence %d start moved to %v", i, occ.StartDate)
		}
	}
}

func TestDeleteSeriesRemovesEverything(t *testing.T) {
	t.Parallel()

	repo := repository.NewMemoryScheduleRepository()
	svc := newTestScheduleService(t, repo, nil)
	start := time.Date(2025, time.June, 2, 9, 0, 0, 0, time.UTC)

	ids, err := svc.CreateSeries(context.Background(), weeklyRequest(start, 4))
	if err != nil {
		t.Fatalf("CreateSeries: %v", err)
	}
	first, err := svc.GetSchedule(context.Background(), ids[0])
	if err != nil {
		t.Fatalf("GetSchedule: %v", err)
	}

	if err := svc.DeleteSeries(context.Background(), first.SeriesID); err != nil {
		t.Fatalf("DeleteSeries: %v", err)
	}

	if _, err := svc.GetSchedule(context.Background(), ids[0]); !errors.Is(err, entities.ErrScheduleNotFound) {
		t.Fatalf("deleted occurrence still retrievable, err %v", err)
	}
	series, err := svc.GetSeries(context.Background(), first.SeriesID)
	if err != nil {
		t.Fatalf("GetSeries after delete: %v", err)
	}
	if len(series) != 0 {
		t.Fatalf("deleted series still holds %d occurrences", len(series))
	}
}
