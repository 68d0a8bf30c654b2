// Package prompush implements a Prometheus Pushgateway backend for the
// metrics package.
//
// This package adapts the generic metrics.Backend interface to Prometheus by:
//
//   - Using client_golang CounterVec and SummaryVec collectors.
//   - Mapping the dmart labels (stage, status, entity, kind, engine, query)
//     onto Prometheus labels.
//   - Pushing collected metrics to a Pushgateway grouped by job and run_id,
//     since a batch run ends before any scraper would see it.
package prompush

import (
	"fmt"

	"dmart/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Backend is a Prometheus Pushgateway metrics backend.
type Backend struct {
	gatewayURL string // e.g. http://pushgateway:9091
	jobName    string // Pushgateway "job" group
	runID      string // Pushgateway "run_id" group; empty means job only
	reg        *prometheus.Registry

	stageCounter  *prometheus.CounterVec // dmart_stage_total
	stageDuration *prometheus.SummaryVec // dmart_stage_duration_seconds
	rowCounter    *prometheus.CounterVec // dmart_rows_total
	queryDuration *prometheus.SummaryVec // dmart_query_duration_seconds
}

// NewBackend constructs a Prometheus Pushgateway backend.
// jobName: the Pushgateway "job" name.
// gatewayURL: base URL of the Pushgateway server.
// runID: identifies this run in the grouping key.
func NewBackend(jobName, gatewayURL, runID string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: gateway URL is required")
	}
	if jobName == "" {
		jobName = "dmart"
	}

	reg := prometheus.NewRegistry()
	objectives := map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001}

	stageCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metrics.StageTotal,
			Help: "Pipeline stage executions, partitioned by stage and status.",
		},
		[]string{"stage", "status"},
	)
	stageDuration := prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       metrics.StageDuration,
			Help:       "Duration of pipeline stages in seconds.",
			Objectives: objectives,
		},
		[]string{"stage", "status"},
	)
	rowCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metrics.RowsTotal,
			Help: "Row counts per entity and kind (loaded, joined, dropped).",
		},
		[]string{"entity", "kind"},
	)
	queryDuration := prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       metrics.QueryDuration,
			Help:       "Duration of aggregation queries in seconds.",
			Objectives: objectives,
		},
		[]string{"engine", "query"},
	)

	for _, c := range []prometheus.Collector{stageCounter, stageDuration, rowCounter, queryDuration} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("prompush: register collector: %w", err)
		}
	}

	return &Backend{
		gatewayURL:    gatewayURL,
		jobName:       jobName,
		runID:         runID,
		reg:           reg,
		stageCounter:  stageCounter,
		stageDuration: stageDuration,
		rowCounter:    rowCounter,
		queryDuration: queryDuration,
	}, nil
}

func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case metrics.StageTotal:
		if b.stageCounter == nil {
			return
		}
		b.stageCounter.WithLabelValues(labels["stage"], labels["status"]).Add(delta)

	case metrics.RowsTotal:
		if b.rowCounter == nil {
			return
		}
		b.rowCounter.WithLabelValues(labels["entity"], labels["kind"]).Add(delta)

	default:
		// unknown metric name: ignore
	}
}

func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	switch name {
	case metrics.StageDuration:
		if b.stageDuration == nil {
			return
		}
		b.stageDuration.WithLabelValues(labels["stage"], labels["status"]).Observe(value)

	case metrics.QueryDuration:
		if b.queryDuration == nil {
			return
		}
		b.queryDuration.WithLabelValues(labels["engine"], labels["query"]).Observe(value)
	}
}

// Flush pushes the current registry to the Pushgateway.
func (b *Backend) Flush() error {
	p := push.New(b.gatewayURL, b.jobName).Gatherer(b.reg)
	if b.runID != "" {
		p = p.Grouping("run_id", b.runID)
	}
	return p.Push()
}
