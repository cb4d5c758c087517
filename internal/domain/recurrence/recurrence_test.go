package recurrence

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/planweave/core/internal/domain/entities"
)

func date(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, time.UTC)
}

func TestGenerate_WeeklyUntilMidnightEnd(t *testing.T) {
	t.Parallel()

	start := date(2025, time.January, 6, 9, 0)
	end := date(2025, time.January, 27, 0, 0)

	got := Generate(start, &end, entities.RepeatWeekly, 0)

	want := []time.Time{
		date(2025, time.January, 6, 9, 0),
		date(2025, time.January, 13, 9, 0),
		date(2025, time.January, 20, 9, 0),
		date(2025, time.January, 27, 9, 0),
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d occurrences, got %d", len(want), len(got))
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Fatalf("occurrence %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestGenerate_AlwaysStartsWithStart(t *testing.T) {
	t.Parallel()

	start := date(2025, time.March, 15, 14, 30)
	for _, freq := range []entities.RepeatFrequency{
		entities.RepeatDaily, entities.RepeatWeekly, entities.RepeatMonthly, entities.RepeatYearly,
	} {
		got := Generate(start, nil, freq, 0)
		if len(got) == 0 {
			t.Fatalf("%s: expected at least one occurrence", freq)
		}
		if !got[0].Equal(start) {
			t.Fatalf("%s: first occurrence %v, expected start %v", freq, got[0], start)
		}
	}
}

func TestGenerate_EndBeforeStartYieldsEmpty(t *testing.T) {
	t.Parallel()

	start := date(2025, time.March, 15, 14, 30)
	end := date(2025, time.March, 14, 0, 0)

	for _, freq := range []entities.RepeatFrequency{
		entities.RepeatDaily, entities.RepeatWeekly, entities.RepeatMonthly, entities.RepeatYearly,
	} {
		got := Generate(start, &end, freq, 0)
		if len(got) != 0 {
			t.Fatalf("%s: expected no occurrences when end precedes start, got %d", freq, len(got))
		}
	}
}

func TestGenerate_CapBoundsExpansion(t *testing.T) {
	t.Parallel()

	start := date(2020, time.January, 1, 8, 0)

	got := Generate(start, nil, entities.RepeatDaily, 50)
	if len(got) != 50 {
		t.Fatalf("expected cap of 50 occurrences, got %d", len(got))
	}

	// Default cap applies when unset; a 3-year daily horizon exceeds 1000 days.
	got = Generate(start, nil, entities.RepeatDaily, 0)
	if len(got) != DefaultCap {
		t.Fatalf("expected %d occurrences at default cap, got %d", DefaultCap, len(got))
	}
}

func TestGenerate_NeverExceedsEffectiveEnd(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		end  time.Time
		freq entities.RepeatFrequency
		want int
	}{
		{"daily two days inclusive", date(2025, time.August, 10, 0, 0), entities.RepeatDaily, 3},
		{"weekly end before next step", date(2025, time.August, 9, 12, 0), entities.RepeatWeekly, 1},
		{"monthly four months", date(2025, time.December, 8, 9, 0), entities.RepeatMonthly, 5},
	}

	start := date(2025, time.August, 8, 9, 0)
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			end := tc.end
			got := Generate(start, &end, tc.freq, 0)
			if len(got) != tc.want {
				t.Fatalf("expected %d occurrences, got %d", tc.want, len(got))
			}
			for _, d := range got {
				if d.After(date(2025, time.December, 31, 23, 59)) {
					t.Fatalf("occurrence %v beyond effective end", d)
				}
			}
		})
	}
}

func TestGenerate_MonotonicallyIncreasing(t *testing.T) {
	t.Parallel()

	start := date(2024, time.January, 31, 10, 0)
	got := Generate(start, nil, entities.RepeatMonthly, 0)
	for i := 1; i < len(got); i++ {
		if !got[i].After(got[i-1]) {
			t.Fatalf("occurrence %d (%v) not after %v", i, got[i], got[i-1])
		}
	}
}

func TestGenerate_YearlyHorizon(t *testing.T) {
	t.Parallel()

	start := date(2025, time.February, 1, 0, 30)
	got := Generate(start, nil, entities.RepeatYearly, 0)
	// +10 years inclusive of the start year.
	if len(got) != 11 {
		t.Fatalf("expected 11 yearly occurrences, got %d", len(got))
	}
}

func TestMaterialize_WeeklySeries(t *testing.T) {
	t.Parallel()

	weekly := entities.RepeatWeekly
	end := date(2025, time.January, 27, 0, 0)
	template := entities.ScheduleTemplate{
		Title:            "Standup",
		StartDate:        date(2025, time.January, 6, 9, 0),
		EndDate:          date(2025, time.January, 6, 10, 0),
		ColorTag:         entities.ColorBlue,
		Repeat:           &weekly,
		HasRepeatEndDate: true,
		RepeatEndDate:    &end,
	}

	occurrences := Materialize(template, 0)
	if len(occurrences) != 4 {
		t.Fatalf("expected 4 occurrences, got %d", len(occurrences))
	}

	seriesID := occurrences[0].SeriesID
	for i, occ := range occurrences {
		if occ.SeriesID != seriesID {
			t.Fatalf("occurrence %d has series id %s, expected %s", i, occ.SeriesID, seriesID)
		}
		if occ.OccurrenceIndex != i {
			t.Fatalf("occurrence %d has index %d", i, occ.OccurrenceIndex)
		}
		if occ.Duration() != time.Hour {
			t.Fatalf("occurrence %d duration %v, expected 1h", i, occ.Duration())
		}
		if occ.Title != "Standup" || occ.ColorTag != entities.ColorBlue {
			t.Fatalf("occurrence %d lost template fields: %+v", i, occ)
		}
	}

	if want := date(2025, time.January, 27, 9, 0); !occurrences[3].StartDate.Equal(want) {
		t.Fatalf("last occurrence starts %v, expected %v", occurrences[3].StartDate, want)
	}
}

func TestMaterialize_NonRepeatingIsSeriesOfOne(t *testing.T) {
	t.Parallel()

	template := entities.ScheduleTemplate{
		Title:     "Dentist",
		StartDate: date(2025, time.June, 3, 15, 0),
		EndDate:   date(2025, time.June, 3, 15, 45),
	}

	occurrences := Materialize(template, 0)
	if len(occurrences) != 1 {
		t.Fatalf("expected a single occurrence, got %d", len(occurrences))
	}
	occ := occurrences[0]
	if occ.OccurrenceIndex != 0 {
		t.Fatalf("expected index 0, got %d", occ.OccurrenceIndex)
	}
	if occ.SeriesID == uuid.Nil {
		t.Fatal("expected a series id on a non-repeating occurrence")
	}
	if occ.Duration() != 45*time.Minute {
		t.Fatalf("expected 45m duration, got %v", occ.Duration())
	}
}

func TestMaterialize_DurationPreservedAcrossDST(t *testing.T) {
	t.Parallel()

	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	daily := entities.RepeatDaily
	end := time.Date(2025, time.March, 10, 0, 0, 0, 0, loc)
	template := entities.ScheduleTemplate{
		Title:            "Workout",
		StartDate:        time.Date(2025, time.March, 8, 22, 0, 0, 0, loc),
		EndDate:          time.Date(2025, time.March, 8, 23, 30, 0, 0, loc),
		Repeat:           &daily,
		HasRepeatEndDate: true,
		RepeatEndDate:    &end,
	}

	for i, occ := range Materialize(template, 0) {
		if occ.Duration() != 90*time.Minute {
			t.Fatalf("occurrence %d duration %v, expected 90m across DST", i, occ.Duration())
		}
	}
}
