package research

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sectionsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scribe_report_sections_total",
		Help: "Report sections run through the pipeline.",
	})

	sectionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "scribe_section_duration_seconds",
		Help:    "Wall-clock time to research and synthesize one section.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10),
	})

	reportsBuilt = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scribe_reports_built_total",
		Help: "Complete reports assembled.",
	})
)
