package services

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the schedule engine's Prometheus instruments.
type Metrics struct {
	CacheFillDays        prometheus.Counter
	CacheHits            prometheus.Counter
	CacheMisses          prometheus.Counter
	MergeRecomputes      prometheus.Counter
	CoalescedInvalidates prometheus.Counter
	SeriesCreated        prometheus.Counter
	OccurrencesCreated   prometheus.Counter
}

// NewMetrics registers the engine metrics on reg and returns them.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CacheFillDays: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "planweave_month_cache_fill_days_total",
			Help: "Days newly fetched into the external event month cache",
		}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "planweave_month_cache_hits_total",
			Help: "Day lookups served from the month cache",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "planweave_month_cache_misses_total",
			Help: "Day lookups that found no cache entry",
		}),
		MergeRecomputes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "planweave_merge_recomputes_total",
			Help: "Merged day view recomputations",
		}),
		CoalescedInvalidates: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "planweave_coalesced_invalidations_total",
			Help: "Invalidations absorbed by an already-pending recompute",
		}),
		SeriesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "planweave_series_created_total",
			Help: "Schedule series materialized and persisted",
		}),
		OccurrencesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "planweave_occurrences_created_total",
			Help: "Individual schedule occurrences persisted",
		}),
	}

	reg.MustRegister(
		m.CacheFillDays,
		m.CacheHits,
		m.CacheMisses,
		m.MergeRecomputes,
		m.CoalescedInvalidates,
		m.SeriesCreated,
		m.OccurrencesCreated,
	)
	return m
}
