package recurrence

import (
	"time"

	"github.com/planweave/core/internal/domain/entities"
)

// DefaultCap is the hard upper bound on generated occurrences per series,
// a safety stop for misconfigured rules.
const DefaultCap = 1000

// Default horizons applied when a repeating template has no end date.
const (
	defaultHorizon       = 3  // years, for daily/weekly/monthly
	defaultYearlyHorizon = 10 // years
)

// Next returns the start of the occurrence following t for the given
// frequency. Month and year steps use calendar arithmetic, so stepping from
// Jan 31 by one month lands per time.AddDate normalization rather than a
// fixed duration add.
func Next(t time.Time, freq entities.RepeatFrequency) time.Time {
	switch freq {
	case entities.RepeatDaily:
		return t.AddDate(0, 0, 1)
	case entities.RepeatWeekly:
		return t.AddDate(0, 0, 7)
	case entities.RepeatMonthly:
		return t.AddDate(0, 1, 0)
	case entities.RepeatYearly:
		return t.AddDate(1, 0, 0)
	default:
		return t
	}
}

// Generate expands a repeat rule into the ordered list of occurrence start
// dates, strictly increasing and beginning with start. An end bound that
// precedes start yields an empty list rather than an error.
//
// When end is nil a default horizon bounds the expansion; an end date that
// falls exactly on midnight is treated as an inclusive calendar day, so
// "repeat until August 10" includes the 10th. cap <= 0 selects DefaultCap.
func Generate(start time.Time, end *time.Time, freq entities.RepeatFrequency, cap int) []time.Time {
	if cap <= 0 {
		cap = DefaultCap
	}

	effectiveEnd := effectiveEnd(start, end, freq)

	dates := make([]time.Time, 0, 8)
	current := start
	for i := 0; i < cap; i++ {
		if current.After(effectiveEnd) {
			break
		}
		dates = append(dates, current)
		current = Next(current, freq)
	}
	return dates
}

func effectiveEnd(start time.Time, end *time.Time, freq entities.RepeatFrequency) time.Time {
	if end == nil {
		years := defaultHorizon
		if freq == entities.RepeatYearly {
			years = defaultYearlyHorizon
		}
		return start.AddDate(years, 0, 0)
	}

	e := *end
	if isMidnight(e) {
		// Inclusive calendar day.
		e = time.Date(e.Year(), e.Month(), e.Day(), 23, 59, 59, 0, e.Location())
	}
	return e
}

func isMidnight(t time.Time) bool {
	h, m, s := t.Clock()
	return h == 0 && m == 0 && s == 0 && t.Nanosecond() == 0
}
