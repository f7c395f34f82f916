// Package metrics provides Prometheus metrics for green-area runs
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics contains Prometheus metrics for composite tasks
type PipelineMetrics struct {
	registry *prometheus.Registry

	tasksTotal      *prometheus.CounterVec
	taskDuration    *prometheus.HistogramVec
	retriesTotal    *prometheus.CounterVec
	scenesTotal     *prometheus.CounterVec
	emptyTotal      *prometheus.CounterVec
	runsInFlight    prometheus.Gauge
	recordsExported *prometheus.CounterVec
}

// NewPipelineMetrics creates and registers new pipeline metrics
func NewPipelineMetrics(registry *prometheus.Registry) (*PipelineMetrics, error) {
	m := &PipelineMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *PipelineMetrics) initMetrics() {
	m.tasksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "greenarea_tasks_total",
			Help: "Total number of (sensor, year) tasks by outcome",
		},
		[]string{"sensor", "status"}, // status: completed, failed
	)

	m.taskDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "greenarea_task_duration_seconds",
			Help:    "Time taken to composite, classify and aggregate one task",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 14), // 10ms to ~80s
		},
		[]string{"sensor"},
	)

	m.retriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "greenarea_archive_retries_total",
			Help: "Total number of retried archive queries",
		},
		[]string{"sensor"},
	)

	m.scenesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "greenarea_scenes_composited_total",
			Help: "Total number of scenes that entered a composite",
		},
		[]string{"sensor"},
	)

	m.emptyTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "greenarea_empty_windows_total",
			Help: "Total number of observation windows without eligible scenes",
		},
		[]string{"sensor"},
	)

	m.runsInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "greenarea_runs_in_flight",
		Help: "Number of runs currently executing",
	})

	m.recordsExported = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "greenarea_records_total",
			Help: "Total number of area records produced",
		},
		[]string{"sensor"},
	)
}

// Describe implements prometheus.Collector
func (m *PipelineMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.tasksTotal.Describe(ch)
	m.taskDuration.Describe(ch)
	m.retriesTotal.Describe(ch)
	m.scenesTotal.Describe(ch)
	m.emptyTotal.Describe(ch)
	m.runsInFlight.Describe(ch)
	m.recordsExported.Describe(ch)
}

// Collect implements prometheus.Collector
func (m *PipelineMetrics) Collect(ch chan<- prometheus.Metric) {
	m.tasksTotal.Collect(ch)
	m.taskDuration.Collect(ch)
	m.retriesTotal.Collect(ch)
	m.scenesTotal.Collect(ch)
	m.emptyTotal.Collect(ch)
	m.runsInFlight.Collect(ch)
	m.recordsExported.Collect(ch)
}

// RecordTask records a finished task
func (m *PipelineMetrics) RecordTask(sensor string, ok bool, d time.Duration) {
	status := "completed"
	if !ok {
		status = "failed"
	}
	m.tasksTotal.WithLabelValues(sensor, status).Inc()
	m.taskDuration.WithLabelValues(sensor).Observe(d.Seconds())
}

// RecordRetry records a retried archive query
func (m *PipelineMetrics) RecordRetry(sensor string) {
	m.retriesTotal.WithLabelValues(sensor).Inc()
}

// RecordScenes records the scenes of a composite; zero counts as an empty window
func (m *PipelineMetrics) RecordScenes(sensor string, n int) {
	if n == 0 {
		m.emptyTotal.WithLabelValues(sensor).Inc()
		return
	}
	m.scenesTotal.WithLabelValues(sensor).Add(float64(n))
}

// RecordRecords records produced area rows
func (m *PipelineMetrics) RecordRecords(sensor string, n int) {
	m.recordsExported.WithLabelValues(sensor).Add(float64(n))
}

// RunStarted increments the in-flight gauge
func (m *PipelineMetrics) RunStarted() {
	m.runsInFlight.Inc()
}

// RunFinished decrements the in-flight gauge
func (m *PipelineMetrics) RunFinished() {
	m.runsInFlight.Dec()
}
