// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package metrics defines the Prometheus collectors reported by the engine,
// its query planner and its scheduler. A nil *Metrics is valid and records
// nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels
const (
	OutcomeOK         = "ok"
	OutcomeError      = "error"
	OutcomeTerminated = "terminated"
)

// Metrics holds all Prometheus collectors for the engine.
type Metrics struct {
	QueriesTotal      *prometheus.CounterVec
	QueryLatency      *prometheus.HistogramVec
	CacheHitsTotal    prometheus.Counter
	CacheMissesTotal  prometheus.Counter
	TasksTotal        *prometheus.CounterVec
	RunningTasks      prometheus.Gauge
	ExecutionContexts *prometheus.GaugeVec
	IndexBuildsTotal  prometheus.Counter
	IndexedDocuments  prometheus.Gauge
}

// New creates the collectors and registers them with reg. A nil reg leaves
// them unregistered, which is convenient in tests.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		QueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "haystack_queries_total",
				Help: "Total queries executed by mode (sync, async) and outcome (ok, error).",
			},
			[]string{"mode", "outcome"},
		),
		QueryLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "haystack_query_latency_seconds",
				Help:    "Query execution latency in seconds.",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
			[]string{"mode"},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "haystack_query_cache_hits_total",
				Help: "Total number of query result cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "haystack_query_cache_misses_total",
				Help: "Total number of query result cache misses.",
			},
		),
		TasksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "haystack_scheduler_tasks_total",
				Help: "Total scheduler tasks by strategy and outcome (ok, error, terminated).",
			},
			[]string{"strategy", "outcome"},
		),
		RunningTasks: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "haystack_scheduler_running_tasks",
				Help: "Number of tasks currently executing.",
			},
		),
		ExecutionContexts: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "haystack_scheduler_free_contexts",
				Help: "Number of idle execution contexts per strategy.",
			},
			[]string{"strategy"},
		),
		IndexBuildsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "haystack_index_builds_total",
				Help: "Total number of full index builds.",
			},
		),
		IndexedDocuments: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "haystack_indexed_documents",
				Help: "Number of documents in the index.",
			},
		),
	}

	if reg != nil {
		for _, c := range []prometheus.Collector{
			m.QueriesTotal,
			m.QueryLatency,
			m.CacheHitsTotal,
			m.CacheMissesTotal,
			m.TasksTotal,
			m.RunningTasks,
			m.ExecutionContexts,
			m.IndexBuildsTotal,
			m.IndexedDocuments,
		} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

// ObserveQuery records one executed query.
func (m *Metrics) ObserveQuery(mode string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	m.QueriesTotal.WithLabelValues(mode, outcome).Inc()
	m.QueryLatency.WithLabelValues(mode).Observe(elapsed.Seconds())
}

// CacheHit records a query answered from the result cache.
func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.CacheHitsTotal.Inc()
}

// CacheMiss records a query that had to be evaluated.
func (m *Metrics) CacheMiss() {
	if m == nil {
		return
	}
	m.CacheMissesTotal.Inc()
}

// TaskFinished records a scheduler task leaving the system.
func (m *Metrics) TaskFinished(strategy, outcome string) {
	if m == nil {
		return
	}
	m.TasksTotal.WithLabelValues(strategy, outcome).Inc()
}

// SetRunning records the number of executing tasks.
func (m *Metrics) SetRunning(n int) {
	if m == nil {
		return
	}
	m.RunningTasks.Set(float64(n))
}

// SetFreeContexts records the idle execution contexts of a strategy.
func (m *Metrics) SetFreeContexts(strategy string, n int) {
	if m == nil {
		return
	}
	m.ExecutionContexts.WithLabelValues(strategy).Set(float64(n))
}

// IndexBuilt records a full index build over n documents.
func (m *Metrics) IndexBuilt(n int) {
	if m == nil {
		return
	}
	m.IndexBuildsTotal.Inc()
	m.IndexedDocuments.Set(float64(n))
}

// SetIndexedDocuments records the index size after an incremental update.
func (m *Metrics) SetIndexedDocuments(n int) {
	if m == nil {
		return
	}
	m.IndexedDocuments.Set(float64(n))
}
