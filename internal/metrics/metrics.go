// Package metrics provides Prometheus metrics for the summarization pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "newssummarizer"

// Pipeline groups the counters updated during a run. A nil *Pipeline is
// valid and records nothing.
type Pipeline struct {
	// ArticlesFetched counts articles returned by the content API.
	ArticlesFetched prometheus.Counter
	// ArticlesFiltered counts articles dropped for a missing title.
	ArticlesFiltered prometheus.Counter
	// FetchFailures counts fail-soft fetches by reason.
	FetchFailures *prometheus.CounterVec
	// Summaries counts summarization attempts by status.
	Summaries *prometheus.CounterVec
	// SummariesStored counts rows committed to the store.
	SummariesStored prometheus.Counter
	// Runs counts finished runs by terminal stage.
	Runs *prometheus.CounterVec
	// RunDuration measures whole runs.
	RunDuration prometheus.Histogram
}

// New registers the pipeline collectors on reg.
func New(reg prometheus.Registerer) *Pipeline {
	m := &Pipeline{
		ArticlesFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "articles_fetched_total",
			Help:      "Total number of articles returned by the content API",
		}),
		ArticlesFiltered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "articles_filtered_total",
			Help:      "Total number of articles discarded before summarization",
		}),
		FetchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_failures_total",
			Help:      "Total number of failed article fetches",
		}, []string{"reason"}),
		Summaries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summaries_total",
			Help:      "Total number of summarization attempts",
		}, []string{"status"}),
		SummariesStored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summaries_stored_total",
			Help:      "Total number of summaries committed to storage",
		}),
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total number of pipeline runs",
		}, []string{"stage"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of pipeline runs in seconds",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.ArticlesFetched,
			m.ArticlesFiltered,
			m.FetchFailures,
			m.Summaries,
			m.SummariesStored,
			m.Runs,
			m.RunDuration,
		)
	}
	return m
}

// RecordFetched adds n fetched articles.
func (m *Pipeline) RecordFetched(n int) {
	if m == nil {
		return
	}
	m.ArticlesFetched.Add(float64(n))
}

// RecordFetchFailure records a fail-soft fetch.
func (m *Pipeline) RecordFetchFailure(reason string) {
	if m == nil {
		return
	}
	m.FetchFailures.WithLabelValues(reason).Inc()
}

// RecordFiltered adds n discarded articles.
func (m *Pipeline) RecordFiltered(n int) {
	if m == nil {
		return
	}
	m.ArticlesFiltered.Add(float64(n))
}

// RecordSummary records one summarization attempt.
func (m *Pipeline) RecordSummary(ok bool) {
	if m == nil {
		return
	}
	status := "ok"
	if !ok {
		status = "failed"
	}
	m.Summaries.WithLabelValues(status).Inc()
}

// RecordStored adds n committed rows.
func (m *Pipeline) RecordStored(n int) {
	if m == nil {
		return
	}
	m.SummariesStored.Add(float64(n))
}

// RecordRun records a finished run.
func (m *Pipeline) RecordRun(stage string, seconds float64) {
	if m == nil {
		return
	}
	m.Runs.WithLabelValues(stage).Inc()
	m.RunDuration.Observe(seconds)
}
