// Package metrics exposes run progress as Prometheus metrics.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tunogya/saliency/pkg/model"
	"github.com/tunogya/saliency/pkg/pipeline"
)

const namespace = "saliency"

// Collector is a pipeline observer backed by Prometheus collectors
type Collector struct {
	registry *prometheus.Registry

	units        *prometheus.CounterVec
	unitDuration *prometheus.HistogramVec
	batches      *prometheus.CounterVec
	artifacts    prometheus.Counter
	rows         prometheus.Counter
	inFlight     prometheus.Gauge
}

// NewCollector creates a collector registered on its own registry
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		units: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "units_total",
			Help:      "Work units processed, by metric and outcome.",
		}, []string{"metric", "outcome"}),
		unitDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "unit_duration_seconds",
			Help:      "Time to shape one exogenous feature.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"metric"}),
		batches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_total",
			Help:      "Window/metric batches finished, by metric and outcome.",
		}, []string{"metric", "outcome"}),
		artifacts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "artifacts_written_total",
			Help:      "Artifacts persisted.",
		}),
		rows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "artifact_rows_total",
			Help:      "Rows persisted across all artifacts.",
		}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "batch_units_pending",
			Help:      "Units of the running batch not finished yet.",
		}),
	}

	c.registry.MustRegister(c.units, c.unitDuration, c.batches, c.artifacts, c.rows, c.inFlight)
	return c
}

// Registry returns the registry holding the collectors
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) BatchStarted(_ pipeline.BatchKey, units int) {
	c.inFlight.Set(float64(units))
}

func (c *Collector) UnitDone(key pipeline.BatchKey, _ model.WorkUnit, elapsed time.Duration, err error) {
	c.inFlight.Dec()
	c.units.WithLabelValues(key.Metric, outcome(err)).Inc()
	c.unitDuration.WithLabelValues(key.Metric).Observe(elapsed.Seconds())
}

func (c *Collector) BatchFinished(key pipeline.BatchKey, err error) {
	c.inFlight.Set(0)
	c.batches.WithLabelValues(key.Metric, outcome(err)).Inc()
}

func (c *Collector) ArtifactWritten(_ string, rows int) {
	c.artifacts.Inc()
	c.rows.Add(float64(rows))
}

// WriteTextfile dumps the current values in the node-exporter textfile format
func (c *Collector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}

func outcome(err error) string {
	if err != nil {
		return "failed"
	}
	return "ok"
}
