package metrics

import (
	"net/http"
	"time"
)

// Collector records forge's pipeline and gateway metrics
type Collector interface {
	IncrementCounter(name string, labels map[string]string)
	SetGauge(name string, value float64, labels map[string]string)
	ObserveDuration(name string, start time.Time, labels map[string]string)

	// Handler serves the scrape endpoint
	Handler() http.Handler
}

// Metric represents a metric definition
type Metric struct {
	Name    string
	Type    MetricType
	Help    string
	Labels  []string
	Buckets []float64 // histograms only
}

// MetricType represents the type of metric
type MetricType string

const (
	CounterType   MetricType = "counter"
	GaugeType     MetricType = "gauge"
	HistogramType MetricType = "histogram"
)

// Standard forge metrics
var (
	PipelineRuns = Metric{
		Name:   "forge_pipeline_runs_total",
		Type:   CounterType,
		Help:   "Total number of pipeline runs by outcome",
		Labels: []string{"mode", "status"},
	}

	PipelineStepDuration = Metric{
		Name:    "forge_pipeline_step_duration_seconds",
		Type:    HistogramType,
		Help:    "Duration of a single role step including the provider call",
		Labels:  []string{"role", "mode"},
		Buckets: []float64{.5, 1, 2.5, 5, 10, 20, 40, 80, 160},
	}

	PipelineActive = Metric{
		Name:   "forge_pipeline_active",
		Type:   GaugeType,
		Help:   "1 while a pipeline run is executing, 0 otherwise",
		Labels: []string{},
	}

	GatewayCalls = Metric{
		Name:   "forge_gateway_calls_total",
		Type:   CounterType,
		Help:   "Total number of generation gateway calls",
		Labels: []string{"operation", "status"},
	}

	GatewayFallbacks = Metric{
		Name:   "forge_gateway_fallbacks_total",
		Type:   CounterType,
		Help:   "Gateway failures recovered with a fallback value",
		Labels: []string{"operation"},
	}

	WorkspaceSyncs = Metric{
		Name:   "forge_workspace_syncs_total",
		Type:   CounterType,
		Help:   "Code-writer outputs mirrored into the workspace",
		Labels: []string{"mode"},
	}
)

// StandardMetrics lists every forge metric
func StandardMetrics() []Metric {
	return []Metric{
		PipelineRuns,
		PipelineStepDuration,
		PipelineActive,
		GatewayCalls,
		GatewayFallbacks,
		WorkspaceSyncs,
	}
}

// Labels creates a labels map from key-value pairs
func Labels(kvs ...string) map[string]string {
	labels := make(map[string]string)
	for i := 0; i < len(kvs)-1; i += 2 {
		labels[kvs[i]] = kvs[i+1]
	}
	return labels
}

// NopCollector discards every observation
type NopCollector struct{}

func (NopCollector) IncrementCounter(string, map[string]string)           {}
func (NopCollector) SetGauge(string, float64, map[string]string)          {}
func (NopCollector) ObserveDuration(string, time.Time, map[string]string) {}
func (NopCollector) Handler() http.Handler                                { return http.NotFoundHandler() }
