package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pollsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "astrojournal",
			Subsystem: "poller",
			Name:      "polls_total",
			Help:      "Completed polls by outcome.",
		},
		[]string{"outcome"},
	)

	eventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "astrojournal",
			Subsystem: "poller",
			Name:      "events_total",
			Help:      "Change events persisted, by kind.",
		},
		[]string{"kind"},
	)

	fallbacksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "astrojournal",
			Subsystem: "poller",
			Name:      "enrichment_fallbacks_total",
			Help:      "Polls that fell back to the local calculator.",
		},
	)

	skippedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "astrojournal",
			Subsystem: "poller",
			Name:      "skipped_total",
			Help:      "Polls refused because another poll was in flight.",
		},
	)

	pollDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "astrojournal",
			Subsystem: "poller",
			Name:      "poll_duration_seconds",
			Help:      "Poll latency including enrichment and storage.",
			Buckets:   prometheus.DefBuckets,
		},
	)
)
