// Package metrics exposes learning loop run metrics in Prometheus format.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/TobiSchelling/learnloop/internal/bucket"
	"github.com/TobiSchelling/learnloop/internal/learnings"
)

const namespace = "learnloop"

// Manager owns a dedicated registry and the run metrics registered in it.
type Manager struct {
	registry *prometheus.Registry

	activitiesProcessed prometheus.Counter
	bucketSalience      *prometheus.GaugeVec
	bucketEvidence      *prometheus.GaugeVec
	learningsUpserted   *prometheus.CounterVec
	learningsTotal      prometheus.Gauge
	lastRun             prometheus.Gauge
}

// NewManager creates the metrics and registers them in a fresh registry.
func NewManager() *Manager {
	reg := prometheus.NewRegistry()
	m := &Manager{
		registry: reg,
		activitiesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "activities_processed_total",
			Help:      "Outreach activities folded into bucket statistics.",
		}),
		bucketSalience: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "bucket_salience",
			Help:      "Salience of a hook for an audience segment as of the last run.",
		}, []string{"hook", "audience"}),
		bucketEvidence: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "bucket_evidence",
			Help:      "Activities contributing to a bucket.",
		}, []string{"hook", "audience"}),
		learningsUpserted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "learnings_upserted_total",
			Help:      "Learning records written, by operation.",
		}, []string{"op"}),
		learningsTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "learnings",
			Help:      "Rows in the learning store after the last run.",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time of the last completed recalc.",
		}),
	}

	reg.MustRegister(
		m.activitiesProcessed,
		m.bucketSalience,
		m.bucketEvidence,
		m.learningsUpserted,
		m.learningsTotal,
		m.lastRun,
		collectors.NewGoCollector(),
	)
	return m
}

// Registry returns the registry backing the manager.
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveBuckets records per bucket gauges. Buckets from a previous run that
// were not observed again are dropped.
func (m *Manager) ObserveBuckets(agg *bucket.Aggregator, activities int, today time.Time) {
	m.activitiesProcessed.Add(float64(activities))
	m.bucketSalience.Reset()
	m.bucketEvidence.Reset()
	for _, k := range agg.Keys() {
		s := agg.Get(k)
		labels := prometheus.Labels{"hook": string(k.Hook), "audience": string(k.Audience)}
		m.bucketSalience.With(labels).Set(s.Salience(today))
		m.bucketEvidence.With(labels).Set(float64(s.N))
	}
}

// ObserveReconcile records the outcome of a store reconciliation.
func (m *Manager) ObserveReconcile(sum learnings.Summary, at time.Time) {
	m.learningsUpserted.WithLabelValues("inserted").Add(float64(sum.Inserted))
	m.learningsUpserted.WithLabelValues("updated").Add(float64(sum.Updated))
	m.learningsTotal.Set(float64(sum.Total))
	m.lastRun.Set(float64(at.Unix()))
}

// WriteTextfile writes the registry for node_exporter's textfile collector.
// It is a no-op when path is empty.
func (m *Manager) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}
