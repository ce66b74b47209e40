// Package metrics provides Prometheus metrics for synchronization runs.
//
// Metrics live in a private registry and are written to a node-exporter
// textfile after each command, since the CLI has no long-running endpoint.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/iudanet/schoolsync/internal/models"
)

const namespace = "schoolsync"

// Outcome labels of reconciled records.
const (
	OutcomeAdded   = "added"
	OutcomeUpdated = "updated"
	OutcomeDeleted = "deleted"
)

// Registry holds all application metrics.
// A nil *Registry is valid and records nothing.
type Registry struct {
	registry *prometheus.Registry

	RecordsTotal  *prometheus.CounterVec
	RowErrors     *prometheus.CounterVec
	ExportRows    *prometheus.CounterVec
	LastReconcile prometheus.Gauge
	LastExport    prometheus.Gauge
}

// NewRegistry creates a new metrics registry.
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
		RecordsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "records_total",
			Help:      "Records added, updated or deleted by reconciliation.",
		}, []string{"type", "outcome"}),
		RowErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "row_errors_total",
			Help:      "Bundle rows skipped by reconciliation.",
		}, []string{"kind"}),
		ExportRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "export",
			Name:      "rows_total",
			Help:      "Rows written to bundles.",
		}, []string{"member"}),
		LastReconcile: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_reconcile_timestamp_seconds",
			Help:      "Unix time of the last applied reconciliation.",
		}),
		LastExport: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_export_timestamp_seconds",
			Help:      "Unix time of the last export.",
		}),
	}

	r.registry.MustRegister(r.RecordsTotal, r.RowErrors, r.ExportRows, r.LastReconcile, r.LastExport)
	return r
}

// Gatherer exposes the underlying registry.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// ObserveReconcile records the outcome of one applied run.
// Dry runs are not recorded.
func (r *Registry) ObserveReconcile(res *models.ReconciliationResult, at time.Time) {
	if r == nil || res == nil || res.DryRun {
		return
	}
	for t, s := range res.PerType {
		r.RecordsTotal.WithLabelValues(string(t), OutcomeAdded).Add(float64(s.Added))
		r.RecordsTotal.WithLabelValues(string(t), OutcomeUpdated).Add(float64(s.Updated))
		r.RecordsTotal.WithLabelValues(string(t), OutcomeDeleted).Add(float64(s.Deleted))
	}
	for _, e := range res.RowErrors {
		r.RowErrors.WithLabelValues(e.KindLabel()).Inc()
	}
	r.LastReconcile.Set(float64(at.Unix()))
}

// ObserveExport records the rows written per member.
func (r *Registry) ObserveExport(counts map[string]int, at time.Time) {
	if r == nil {
		return
	}
	for member, n := range counts {
		r.ExportRows.WithLabelValues(member).Add(float64(n))
	}
	r.LastExport.Set(float64(at.Unix()))
}

// WriteTextfile writes all metrics in the text exposition format to path.
func (r *Registry) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.registry)
}
