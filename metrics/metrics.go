// Package metrics defines the Prometheus collectors for this engine's
// own storage-layer operations (segment flushes, cleaner sweeps,
// handle-pool pressure, fuzzy-automaton cache hits). Grounded on
// Adithya-Monish-Kumar-K-Distributed-Search-Analytics-Platform's
// pkg/metrics: a constructor building and registering every collector
// once, plus an HTTP scrape handler a host process can mount if it
// wants to. This is instrumentation of the engine's own behavior, not
// the ranking-model or expression-language telemetry the Non-goals
// exclude.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector this engine exposes.
type Metrics struct {
	SegmentsFlushedTotal prometheus.Counter
	BytesFlushedTotal    prometheus.Counter
	DocsFlushedTotal     prometheus.Counter

	CleanerFilesRemovedTotal prometheus.Counter
	CleanerRunsTotal         *prometheus.CounterVec

	HandlePoolExhaustedTotal prometheus.Counter

	FuzzyDescriptionCacheHitsTotal   prometheus.Counter
	FuzzyDescriptionCacheMissesTotal prometheus.Counter
}

// New builds and registers a fresh set of collectors against reg. Pass
// prometheus.DefaultRegisterer for the process-wide registry, or a
// fresh prometheus.NewRegistry() in tests that construct more than one
// Metrics instance in the same process.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SegmentsFlushedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "iresearch_segments_flushed_total",
			Help: "Total number of segments flushed to durable storage.",
		}),
		BytesFlushedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "iresearch_bytes_flushed_total",
			Help: "Total bytes written across all segment files flushed.",
		}),
		DocsFlushedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "iresearch_docs_flushed_total",
			Help: "Total documents included in flushed segments.",
		}),
		CleanerFilesRemovedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "iresearch_cleaner_files_removed_total",
			Help: "Total files removed by the directory cleaner.",
		}),
		CleanerRunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "iresearch_cleaner_runs_total",
			Help: "Total cleaner runs, labeled by whether anything was removed.",
		}, []string{"result"}),
		HandlePoolExhaustedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "iresearch_handle_pool_exhausted_total",
			Help: "Total times a handle pool was exhausted and a fresh OS handle was opened.",
		}),
		FuzzyDescriptionCacheHitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "iresearch_fuzzy_description_cache_hits_total",
			Help: "Total parametric Levenshtein description cache hits.",
		}),
		FuzzyDescriptionCacheMissesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "iresearch_fuzzy_description_cache_misses_total",
			Help: "Total parametric Levenshtein description cache misses (built fresh).",
		}),
	}

	reg.MustRegister(
		m.SegmentsFlushedTotal,
		m.BytesFlushedTotal,
		m.DocsFlushedTotal,
		m.CleanerFilesRemovedTotal,
		m.CleanerRunsTotal,
		m.HandlePoolExhaustedTotal,
		m.FuzzyDescriptionCacheHitsTotal,
		m.FuzzyDescriptionCacheMissesTotal,
	)
	return m
}

// Default is the process-wide instance every package in this module
// reports to unless a caller wires its own via New, the same
// package-level-default idiom this module's logging follows.
var Default = New(prometheus.DefaultRegisterer)

// Handler returns the Prometheus scrape HTTP handler for whichever
// registry Default reports to.
func Handler() http.Handler {
	return promhttp.Handler()
}
