package feed

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feedmill_cache_hits_total",
		Help: "The total number of feed requests answered from the page cache",
	})

	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feedmill_cache_misses_total",
		Help: "The total number of feed requests that had to build a page",
	})

	feedBuilds = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feedmill_feed_builds_total",
		Help: "The total number of feed page builds",
	})

	feedBuildErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feedmill_feed_build_errors_total",
		Help: "The total number of failed feed page builds",
	})

	feedBuildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "feedmill_feed_build_duration_seconds",
		Help:    "Duration of feed page builds, aggregation and ranking included",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // Start at 1ms, double each bucket, 12 buckets
	})
)
