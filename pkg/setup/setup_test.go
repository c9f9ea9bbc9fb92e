package setup

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syntor/forge/pkg/config"
	"github.com/syntor/forge/pkg/inference"
	"github.com/syntor/forge/pkg/logging"
	"github.com/syntor/forge/pkg/metrics"
	"github.com/syntor/forge/pkg/models"
	"github.com/syntor/forge/pkg/pipeline"
)

func testConfig(t *testing.T) *config.ForgeConfig {
	t.Helper()
	for _, k := range []string{"GEMINI_API_KEY", "API_KEY", "ANTHROPIC_API_KEY", "DEEPSEEK_API_KEY"} {
		t.Setenv(k, "")
	}
	cfg := config.DefaultForgeConfig()
	return &cfg
}

func TestInitializeInference(t *testing.T) {
	cfg := testConfig(t)
	registry, err := InitializeInference(&cfg.Inference, logging.NewNop())
	require.NoError(t, err)

	assert.Equal(t, []string{"anthropic", "deepseek", "gemini", "ollama"}, registry.ListProviders())
	provider, ok := registry.GetDefaultProvider()
	require.True(t, ok)
	assert.Equal(t, inference.ProviderGemini, provider.Name())
	assert.Equal(t, "gemini-2.5-pro", registry.GetDefaultModel())

	cfg.Inference.Provider = "skynet"
	_, err = InitializeInference(&cfg.Inference, logging.NewNop())
	assert.Error(t, err)
}

func TestGatewayReadyFollowsCredential(t *testing.T) {
	cfg := testConfig(t)
	registry, err := InitializeInference(&cfg.Inference, logging.NewNop())
	require.NoError(t, err)
	gw, err := NewGateway(&cfg.Inference, registry, logging.NewNop(), nil)
	require.NoError(t, err)
	assert.True(t, errors.Is(gw.Ready(), inference.ErrMissingCredential))

	cfg.Inference.GeminiAPIKey = "key"
	registry, err = InitializeInference(&cfg.Inference, logging.NewNop())
	require.NoError(t, err)
	gw, err = NewGateway(&cfg.Inference, registry, logging.NewNop(), nil)
	require.NoError(t, err)
	assert.NoError(t, gw.Ready())
}

func TestSessionConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Pipeline.Mode = "bot"
	cfg.Pipeline.BotLanguage = "py"
	cfg.Pipeline.StepDelay = 0
	cfg.Pipeline.Clarify = false

	sc, err := SessionConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, models.ModeChatbot, sc.Mode)
	assert.Equal(t, models.BotPython, sc.BotLanguage)
	assert.Zero(t, sc.StepDelay)
	assert.False(t, sc.Clarify)

	cfg.Pipeline.Mode = "movie"
	_, err = SessionConfig(cfg)
	assert.Error(t, err)
}

func TestQuickCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"models":[]}`))
	}))
	defer srv.Close()

	cfg := testConfig(t)
	cfg.Inference.Provider = inference.ProviderOllama
	cfg.Inference.OllamaHost = srv.URL
	registry, err := InitializeInference(&cfg.Inference, logging.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, QuickCheck(ctx, registry))

	cfg.Inference.Provider = inference.ProviderGemini
	registry, err = InitializeInference(&cfg.Inference, logging.NewNop())
	require.NoError(t, err)
	assert.ErrorIs(t, QuickCheck(ctx, registry), inference.ErrMissingCredential)
}

type countingObserver struct {
	pipeline.NopObserver
	states int
}

func (c *countingObserver) StateChanged(models.PipelineState) { c.states++ }

func TestNewRuntime(t *testing.T) {
	cfg := testConfig(t)
	cfg.Pipeline.Mode = "prompt-refiner"
	obs := &countingObserver{}

	rt, err := NewRuntime(cfg, Options{Logger: logging.NewNop(), Observers: []pipeline.Observer{obs}})
	require.NoError(t, err)
	defer rt.Close()

	require.NotNil(t, rt.Session)
	assert.Equal(t, models.ModePromptRefiner, rt.Session.Mode())

	// no credential: the run is refused before any state change
	rt.Session.SetIdea("x")
	_, err = rt.Session.Start(context.Background())
	assert.ErrorIs(t, err, pipeline.ErrMissingCredential)
	assert.Zero(t, obs.states)

	require.NoError(t, rt.Session.OnModeChanged(models.ModeChatbot))
	assert.Equal(t, 1, obs.states)
}

func TestNewRuntimeWithEvents(t *testing.T) {
	cfg := testConfig(t)
	cfg.Events.Enabled = true
	cfg.Events.Brokers = []string{"127.0.0.1:1"}

	rt, err := NewRuntime(cfg, Options{Logger: logging.NewNop()})
	require.NoError(t, err)
	require.NotNil(t, rt.events)
	assert.NoError(t, rt.Close())
}

func TestNewRuntimeMetricsEndpoint(t *testing.T) {
	cfg := testConfig(t)

	rt, err := NewRuntime(cfg, Options{Logger: logging.NewNop(), MetricsAddr: "127.0.0.1:0"})
	require.NoError(t, err)
	require.NotNil(t, rt.metricsServer)
	assert.IsType(t, &metrics.PrometheusCollector{}, rt.Metrics)

	resp, err := http.Get("http://" + rt.metricsServer.Addr + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NoError(t, rt.Close())
}

func TestNewRuntimeBusyMetricsAddress(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	cfg := testConfig(t)
	rt, err := NewRuntime(cfg, Options{Logger: logging.NewNop(), MetricsAddr: ln.Addr().String()})
	require.NoError(t, err, "a busy metrics address must not stop the session")
	assert.Nil(t, rt.metricsServer)
	require.NotNil(t, rt.Session)
	assert.NoError(t, rt.Close())
}
