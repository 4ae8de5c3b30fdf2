// Package metrics exposes Prometheus collectors for the crawl engine.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Task kinds observed by ObserveTask.
const (
	TaskFetch   = "fetch"
	TaskExtract = "extract"
)

var (
	crawlerTasksTotal          *prometheus.CounterVec
	crawlerRecordsTotal        *prometheus.CounterVec
	crawlerTaskDurationSeconds *prometheus.HistogramVec
	crawlerWavesTotal          prometheus.Counter
	crawlerHandlesInUse        prometheus.Gauge
	crawlerFrontierSize        prometheus.Gauge

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		crawlerTasksTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_tasks_total",
				Help: "Total crawl tasks run, labeled by kind and outcome.",
			},
			[]string{"kind", "outcome"},
		)

		crawlerRecordsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_records_total",
				Help: "Total extracted records, labeled by persistence outcome.",
			},
			[]string{"outcome"},
		)

		crawlerTaskDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "crawler_task_duration_seconds",
				Help:    "Histogram of crawl task latencies, labeled by kind.",
				Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
			},
			[]string{"kind"},
		)

		crawlerWavesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "crawler_waves_total",
				Help: "Total frontier waves completed.",
			},
		)

		crawlerHandlesInUse = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "crawler_handles_in_use",
				Help: "Browser handles currently checked out of the pool.",
			},
		)

		crawlerFrontierSize = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "crawler_frontier_size",
				Help: "Targets queued for the next wave.",
			},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveTask records one completed crawl task.
func ObserveTask(kind, outcome string, duration time.Duration) {
	crawlerTasksTotal.WithLabelValues(kind, outcome).Inc()
	crawlerTaskDurationSeconds.WithLabelValues(kind).Observe(duration.Seconds())
}

// ObserveRecord increments the record counter for the given outcome.
func ObserveRecord(outcome string) {
	crawlerRecordsTotal.WithLabelValues(outcome).Inc()
}

// ObserveWave increments the completed-wave counter.
func ObserveWave() {
	crawlerWavesTotal.Inc()
}

// SetHandlesInUse sets the checked-out handles gauge.
func SetHandlesInUse(n int) {
	crawlerHandlesInUse.Set(float64(n))
}

// SetFrontierSize sets the frontier gauge.
func SetFrontierSize(n int) {
	crawlerFrontierSize.Set(float64(n))
}
