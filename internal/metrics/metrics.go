// Package metrics holds the process-wide Prometheus collectors for ambient
// instrumentation (probe latency, process spawns, plugin script execution)
// — no component is required to use it, but every component that does
// shares one registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds this process's collectors, separate from the default
// global registry so a future metrics endpoint only exposes what's below.
var Registry = prometheus.NewRegistry()

var (
	probesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "isolate",
			Subsystem: "probe",
			Name:      "runs_total",
			Help:      "Total number of probes run, by kind and outcome.",
		},
		[]string{"kind", "success"},
	)

	probeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "isolate",
			Subsystem: "probe",
			Name:      "duration_seconds",
			Help:      "Duration of individual probes.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10), // 10ms to ~5s
		},
		[]string{"kind"},
	)

	processSpawns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "isolate",
			Subsystem: "process",
			Name:      "spawns_total",
			Help:      "Total number of managed processes spawned, by outcome.",
		},
		[]string{"outcome"},
	)

	pluginScriptDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "isolate",
			Subsystem: "plugin",
			Name:      "check_duration_seconds",
			Help:      "Duration of plugin check() script executions.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
		},
		[]string{"plugin_id", "success"},
	)
)

func init() {
	Registry.MustRegister(
		probesTotal,
		probeDuration,
		processSpawns,
		pluginScriptDuration,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
}

// Handler exposes the registered collectors for scraping.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RecordProbe records one probe's outcome and duration.
func RecordProbe(kind string, success bool, duration time.Duration) {
	probesTotal.WithLabelValues(kind, boolLabel(success)).Inc()
	probeDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordSpawn records one managed-process spawn attempt's outcome.
func RecordSpawn(outcome string) {
	processSpawns.WithLabelValues(outcome).Inc()
}

// RecordPluginCheck records one plugin check() script execution.
func RecordPluginCheck(pluginID string, success bool, duration time.Duration) {
	pluginScriptDuration.WithLabelValues(pluginID, boolLabel(success)).Observe(duration.Seconds())
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
