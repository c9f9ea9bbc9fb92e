package metrics

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/syntor/forge/pkg/logging"
)

// PrometheusCollector implements Collector on a private Prometheus registry
type PrometheusCollector struct {
	registry   *prometheus.Registry
	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
	histograms map[string]*prometheus.HistogramVec
	mu         sync.RWMutex
}

// NewPrometheusCollector creates a collector that also exports Go runtime
// and process metrics
func NewPrometheusCollector() *PrometheusCollector {
	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewGoCollector())
	registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	return &PrometheusCollector{
		registry:   registry,
		counters:   make(map[string]*prometheus.CounterVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
		histograms: make(map[string]*prometheus.HistogramVec),
	}
}

// Register adds a metric. Names are unique across types.
func (c *PrometheusCollector) Register(metric Metric) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.registeredLocked(metric.Name) {
		return fmt.Errorf("metric %s already registered", metric.Name)
	}

	switch metric.Type {
	case CounterType:
		counter := prometheus.NewCounterVec(prometheus.CounterOpts{Name: metric.Name, Help: metric.Help}, metric.Labels)
		if err := c.registry.Register(counter); err != nil {
			return fmt.Errorf("failed to register counter %s: %w", metric.Name, err)
		}
		c.counters[metric.Name] = counter

	case GaugeType:
		gauge := prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: metric.Name, Help: metric.Help}, metric.Labels)
		if err := c.registry.Register(gauge); err != nil {
			return fmt.Errorf("failed to register gauge %s: %w", metric.Name, err)
		}
		c.gauges[metric.Name] = gauge

	case HistogramType:
		buckets := metric.Buckets
		if len(buckets) == 0 {
			buckets = prometheus.DefBuckets
		}
		histogram := prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    metric.Name,
			Help:    metric.Help,
			Buckets: buckets,
		}, metric.Labels)
		if err := c.registry.Register(histogram); err != nil {
			return fmt.Errorf("failed to register histogram %s: %w", metric.Name, err)
		}
		c.histograms[metric.Name] = histogram

	default:
		return fmt.Errorf("unknown metric type: %s", metric.Type)
	}
	return nil
}

func (c *PrometheusCollector) registeredLocked(name string) bool {
	_, counter := c.counters[name]
	_, gauge := c.gauges[name]
	_, histogram := c.histograms[name]
	return counter || gauge || histogram
}

// IncrementCounter increments a counter by 1. Unknown names are ignored.
func (c *PrometheusCollector) IncrementCounter(name string, labels map[string]string) {
	c.mu.RLock()
	counter, exists := c.counters[name]
	c.mu.RUnlock()

	if !exists {
		return
	}
	counter.With(prometheus.Labels(labels)).Inc()
}

// SetGauge sets the value of a gauge
func (c *PrometheusCollector) SetGauge(name string, value float64, labels map[string]string) {
	c.mu.RLock()
	gauge, exists := c.gauges[name]
	c.mu.RUnlock()

	if !exists {
		return
	}
	gauge.With(prometheus.Labels(labels)).Set(value)
}

// ObserveDuration records the time since start, in seconds, in a histogram
func (c *PrometheusCollector) ObserveDuration(name string, start time.Time, labels map[string]string) {
	c.mu.RLock()
	histogram, exists := c.histograms[name]
	c.mu.RUnlock()

	if !exists {
		return
	}
	histogram.With(prometheus.Labels(labels)).Observe(time.Since(start).Seconds())
}

// Handler returns an HTTP handler for Prometheus scraping
func (c *PrometheusCollector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// RegisterStandardMetrics registers all standard forge metrics
func (c *PrometheusCollector) RegisterStandardMetrics() error {
	var errs []string
	for _, metric := range StandardMetrics() {
		if err := c.Register(metric); err != nil {
			errs = append(errs, err.Error())
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("failed to register some metrics: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Serve binds addr and exposes the collector at /metrics in the background.
// Bind failures are returned; later serve errors are logged.
func Serve(addr string, collector Collector, logger logging.Logger) (*http.Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics endpoint: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())
	srv := &http.Server{Addr: ln.Addr().String(), Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics endpoint stopped", logging.String("addr", srv.Addr), logging.Err(err))
		}
	}()
	return srv, nil
}
