package metrics

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syntor/forge/pkg/logging"
)

func scrape(t *testing.T, h http.Handler) string {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestPrometheusCollector(t *testing.T) {
	c := NewPrometheusCollector()
	require.NoError(t, c.RegisterStandardMetrics())
	assert.Error(t, c.Register(PipelineRuns), "duplicate registration")
	assert.Error(t, c.Register(Metric{Name: "forge_other", Type: "summary"}))

	c.IncrementCounter(PipelineRuns.Name, Labels("mode", "website", "status", "completed"))
	c.IncrementCounter(GatewayCalls.Name, Labels("operation", "run_step", "status", "ok"))
	c.ObserveDuration(PipelineStepDuration.Name, time.Now().Add(-time.Second), Labels("role", "SYNTHESIZER", "mode", "website"))
	c.SetGauge(PipelineActive.Name, 1, nil)
	c.IncrementCounter("unknown_metric", nil)

	body := scrape(t, c.Handler())
	assert.Contains(t, body, `forge_pipeline_runs_total{mode="website",status="completed"} 1`)
	assert.Contains(t, body, "forge_pipeline_step_duration_seconds_bucket")
	assert.Contains(t, body, "forge_pipeline_active 1")

	c.SetGauge(PipelineActive.Name, 0, nil)
	assert.Contains(t, scrape(t, c.Handler()), "forge_pipeline_active 0")
}

func TestLabels(t *testing.T) {
	assert.Equal(t, map[string]string{"a": "1", "b": "2"}, Labels("a", "1", "b", "2", "dangling"))
}

func TestNopCollector(t *testing.T) {
	var c Collector = NopCollector{}
	c.IncrementCounter(PipelineRuns.Name, nil)
	c.SetGauge(PipelineActive.Name, 1, nil)
	c.ObserveDuration(PipelineStepDuration.Name, time.Now(), nil)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServe(t *testing.T) {
	c := NewPrometheusCollector()
	require.NoError(t, c.RegisterStandardMetrics())
	c.IncrementCounter(WorkspaceSyncs.Name, Labels("mode", "chatbot"))

	srv, err := Serve("127.0.0.1:0", c, logging.NewNop())
	require.NoError(t, err)
	defer srv.Shutdown(context.Background())

	resp, err := http.Get("http://" + srv.Addr + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `forge_workspace_syncs_total{mode="chatbot"} 1`)
}

func TestServeReportsBusyAddress(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	srv, err := Serve(ln.Addr().String(), NopCollector{}, logging.NewNop())
	assert.Error(t, err)
	assert.Nil(t, srv)
}
