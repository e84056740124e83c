package businessflow

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Banner selections partitioned by render context
	selectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promotion_selections_total",
			Help: "Total number of banner selections",
		},
		[]string{"context"},
	)

	// Promotions returned to viewers
	servedItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promotion_served_items_total",
			Help: "Total number of promotions served",
		},
		[]string{"context"},
	)

	// Selections suppressed entirely by the viewer global cooldown
	globalCooldownTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "promotion_global_cooldown_total",
			Help: "Selections suppressed by the viewer global cooldown",
		},
	)

	// Candidates removed by each eligibility rule
	excludedItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promotion_excluded_items_total",
			Help: "Candidates removed by eligibility filtering",
		},
		[]string{"reason"},
	)

	// Exposure writes that did not persist
	exposureWriteFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "promotion_exposure_write_failures_total",
			Help: "Selections whose exposure history could not be recorded",
		},
	)

	// Candidate loads cut short by the configured pool cap
	candidatePoolTruncatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "allocation_candidate_pool_truncated_total",
			Help: "Candidate loads that hit the configured pool cap",
		},
		[]string{"pool"},
	)

	// Ranking requests partitioned by endpoint
	rankingRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "business_ranking_requests_total",
			Help: "Total number of business ranking requests",
		},
		[]string{"kind"},
	)
)
