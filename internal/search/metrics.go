package search

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	searchAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scribe_search_attempts_total",
		Help: "Search attempts per provider.",
	}, []string{"provider"})

	searchFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scribe_search_failures_total",
		Help: "Absorbed search provider failures per provider.",
	}, []string{"provider"})
)
