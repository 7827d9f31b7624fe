package extract

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	extractAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scribe_extract_attempts_total",
		Help: "Extraction attempts per strategy.",
	}, []string{"strategy"})

	extractFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scribe_extract_failures_total",
		Help: "Extraction attempts that returned an error, per strategy.",
	}, []string{"strategy"})

	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scribe_extract_cache_hits_total",
		Help: "Extractions served from the cache.",
	})
)
