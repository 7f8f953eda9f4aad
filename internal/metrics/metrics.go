// Package metrics exposes Prometheus counters for the cache and tool layer.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheLookups counts semantic cache lookups by resulting status
	// (CACHE_HIT, CACHE_STALE, CACHE_MISS).
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ragcache_lookups_total",
		Help: "Semantic cache lookups by status.",
	}, []string{"status"})

	// CacheInserts counts semantic cache insert/refresh attempts by outcome.
	CacheInserts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ragcache_inserts_total",
		Help: "Semantic cache insert attempts by outcome.",
	}, []string{"outcome"})

	// CachePersists counts snapshot writes by outcome.
	CachePersists = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ragcache_persists_total",
		Help: "Semantic cache snapshot writes by outcome.",
	}, []string{"outcome"})

	// SummaryRequests counts website summary requests by source
	// (cache_hit, web_search, error).
	SummaryRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webexplorer_summaries_total",
		Help: "Website summary requests by source.",
	}, []string{"source"})
)

// Outcome labels for CacheInserts and CachePersists.
const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
)
