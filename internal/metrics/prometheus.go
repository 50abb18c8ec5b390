package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	SessionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "weaver_sessions_total",
		Help: "Total number of search sessions by outcome.",
	}, []string{"outcome"})

	SessionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "weaver_session_seconds",
		Help:    "Wall time of one search session.",
		Buckets: prometheus.ExponentialBuckets(0.1, 4, 8),
	})

	ArticlesVisitedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "weaver_articles_visited_total",
		Help: "Total number of articles expanded by searches.",
	})

	NewArticlesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "weaver_new_articles_total",
		Help: "Total number of articles whose links were fetched rather than read from the database.",
	})

	PathsFoundTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "weaver_paths_found_total",
		Help: "Total number of shortest paths found.",
	})

	PagesFetchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "weaver_pages_fetched_total",
		Help: "Total number of page requests by result.",
	}, []string{"result"})

	FetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "weaver_fetch_seconds",
		Help:    "Latency of a single page request.",
		Buckets: prometheus.DefBuckets,
	})

	BacklogDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "weaver_backlog_depth",
		Help: "Current number of start titles waiting in the backlog.",
	})
)
