package pipeline

import (
	"dmart/internal/config"
	"dmart/internal/metrics"
	"dmart/internal/metrics/datadog"
	"dmart/internal/metrics/prompush"
)

// Test seams for the metrics backends.
var (
	newPushBackendFn = func(job, url, runID string) (metrics.Backend, error) {
		return prompush.NewBackend(job, url, runID)
	}
	newDatadogBackendFn = func(cfg datadog.Config) (metrics.Backend, error) {
		return datadog.NewBackend(cfg)
	}
)

// InitMetrics installs the backend named by m and returns a function that
// flushes it. A backend that cannot be built is logged and the nop backend
// stays in place; metrics never fail a run.
func InitMetrics(m config.Metrics, runID string) (flush func()) {
	noop := func() {}

	var (
		b   metrics.Backend
		err error
	)
	switch m.Backend {
	case "pushgateway":
		b, err = newPushBackendFn(m.Job, m.PushgatewayURL, runID)
	case "datadog":
		b, err = newDatadogBackendFn(datadog.Config{
			Addr:       m.DatadogAddr,
			GlobalTags: []string{"service:dmart", "job:" + m.Job},
			RunID:      runID,
		})
	case "", "none":
		log.Debugf("metrics: disabled (backend=%q)", m.Backend)
		return noop
	default:
		log.Warningf("metrics: unknown backend %q; metrics disabled", m.Backend)
		return noop
	}
	if err != nil {
		log.Warningf("metrics: failed to init %s backend: %v; using nop", m.Backend, err)
		return noop
	}

	log.Infof("metrics: backend=%s job=%s run_id=%s", m.Backend, m.Job, runID)
	metrics.SetBackend(b)
	return func() {
		if err := metrics.Flush(); err != nil {
			log.Warningf("metrics: flush error: %v", err)
		}
	}
}
