// Package metrics provides Prometheus metrics for corpus builds
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Failure stages
const (
	StageDecode = "decode"
	StageMerge  = "merge"
)

// Metrics holds the build metrics, registered on a registry private to
// the instance.
type Metrics struct {
	Registry *prometheus.Registry

	BuildsTotal     *prometheus.CounterVec
	GroupsTotal     prometheus.Counter
	FragmentsTotal  prometheus.Counter
	FailuresTotal   *prometheus.CounterVec
	MergeDuration   prometheus.Histogram
	BuildDuration   prometheus.Histogram
	CorpusSymbols   prometheus.Gauge
	StoredFragments prometheus.Gauge
	ToolCallsTotal  *prometheus.CounterVec
}

// New creates and registers all metrics on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Metrics{Registry: reg}

	m.BuildsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "doccorpus_builds_total",
			Help: "Total number of corpus builds",
		},
		[]string{"status"},
	)

	m.GroupsTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "doccorpus_groups_total",
			Help: "Total number of symbol groups processed",
		},
	)

	m.FragmentsTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "doccorpus_fragments_total",
			Help: "Total number of fragments decoded",
		},
	)

	m.FailuresTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "doccorpus_group_failures_total",
			Help: "Total number of symbol groups that failed, by stage",
		},
		[]string{"stage"},
	)

	m.MergeDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "doccorpus_merge_duration_seconds",
			Help:    "Time spent decoding and merging one symbol group",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
		},
	)

	m.BuildDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "doccorpus_build_duration_seconds",
			Help:    "Duration of whole corpus builds",
			Buckets: prometheus.DefBuckets,
		},
	)

	m.CorpusSymbols = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "doccorpus_corpus_symbols",
			Help: "Number of symbols in the last built corpus",
		},
	)

	m.StoredFragments = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "doccorpus_stored_fragments",
			Help: "Number of fragments in the fragment store",
		},
	)

	m.ToolCallsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "doccorpus_mcp_tool_calls_total",
			Help: "Total number of MCP tool calls",
		},
		[]string{"tool", "status"},
	)

	return m
}

// RecordGroup records one merged symbol group
func (m *Metrics) RecordGroup(fragments int, duration time.Duration) {
	m.GroupsTotal.Inc()
	m.FragmentsTotal.Add(float64(fragments))
	m.MergeDuration.Observe(duration.Seconds())
}

// RecordFailure records a symbol group that failed at stage
func (m *Metrics) RecordFailure(stage string) {
	m.FailuresTotal.WithLabelValues(stage).Inc()
}

// RecordBuild records the outcome of a whole build
func (m *Metrics) RecordBuild(symbols int, duration time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	} else {
		m.CorpusSymbols.Set(float64(symbols))
	}
	m.BuildsTotal.WithLabelValues(status).Inc()
	m.BuildDuration.Observe(duration.Seconds())
}

// RecordToolCall records one MCP tool invocation
func (m *Metrics) RecordToolCall(tool string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.ToolCallsTotal.WithLabelValues(tool, status).Inc()
}
