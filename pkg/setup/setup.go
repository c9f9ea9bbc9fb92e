// Package setup turns a loaded configuration into a ready-to-use runtime:
// inference providers, the generation gateway, metrics, event publishing and
// a pipeline session.
package setup

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/syntor/forge/pkg/config"
	"github.com/syntor/forge/pkg/events"
	"github.com/syntor/forge/pkg/gateway"
	"github.com/syntor/forge/pkg/inference"
	"github.com/syntor/forge/pkg/inference/anthropic"
	"github.com/syntor/forge/pkg/inference/deepseek"
	"github.com/syntor/forge/pkg/inference/gemini"
	"github.com/syntor/forge/pkg/inference/ollama"
	"github.com/syntor/forge/pkg/logging"
	"github.com/syntor/forge/pkg/metrics"
	"github.com/syntor/forge/pkg/models"
	"github.com/syntor/forge/pkg/pipeline"
	"github.com/syntor/forge/pkg/resilience"
)

// InitializeInference creates a registry holding every provider, with the
// configured one as default
func InitializeInference(cfg *config.InferenceConfig, logger logging.Logger) (*inference.Registry, error) {
	registry := inference.NewRegistry()

	baseURL := func(provider string) string {
		if cfg.Provider == provider {
			return cfg.BaseURL
		}
		return ""
	}

	registry.RegisterProvider(gemini.NewClient(gemini.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		BaseURL: baseURL(inference.ProviderGemini),
		Timeout: cfg.Timeout,
	}))
	registry.RegisterProvider(anthropic.NewClient(anthropic.ClientConfig{
		APIKey:  cfg.AnthropicAPIKey,
		BaseURL: baseURL(inference.ProviderAnthropic),
		Timeout: cfg.Timeout,
	}))
	registry.RegisterProvider(deepseek.NewClient(deepseek.ClientConfig{
		APIKey:  cfg.DeepSeekAPIKey,
		BaseURL: baseURL(inference.ProviderDeepSeek),
		Timeout: cfg.Timeout,
		Logger:  logger,
	}))

	// Ollama is always registered for local inference
	ollamaHost := cfg.OllamaHost
	if cfg.Provider == inference.ProviderOllama && cfg.BaseURL != "" {
		ollamaHost = cfg.BaseURL
	}
	registry.RegisterProvider(ollama.NewClient(ollama.ClientConfig{
		BaseURL: ollamaHost,
		Timeout: cfg.Timeout,
	}))

	if err := registry.SetDefaultProvider(cfg.Provider); err != nil {
		return nil, fmt.Errorf("failed to set default provider: %w", err)
	}
	registry.SetDefaultModel(cfg.ModelID())
	return registry, nil
}

// NewGateway builds the gateway over the registry's default provider
func NewGateway(cfg *config.InferenceConfig, registry *inference.Registry, logger logging.Logger, collector metrics.Collector) (*gateway.ProviderGateway, error) {
	provider, ok := registry.GetDefaultProvider()
	if !ok {
		return nil, fmt.Errorf("no default provider configured")
	}

	retry := resilience.DefaultRetryConfig()
	retry.MaxAttempts = cfg.MaxAttempts

	return gateway.New(provider, gateway.Config{
		Model:       registry.GetDefaultModel(),
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
		Retry:       retry,
		Logger:      logger.With(logging.String("component", "gateway")),
		Metrics:     collector,
	}), nil
}

// SessionConfig converts the pipeline section into a session configuration
func SessionConfig(cfg *config.ForgeConfig) (pipeline.Config, error) {
	mode, err := models.ParseMode(cfg.Pipeline.Mode)
	if err != nil {
		return pipeline.Config{}, err
	}
	lang, err := models.ParseBotLanguage(cfg.Pipeline.BotLanguage)
	if err != nil {
		return pipeline.Config{}, err
	}

	sc := pipeline.DefaultConfig()
	sc.Mode = mode
	sc.BotLanguage = lang
	sc.StepDelay = cfg.Pipeline.StepDelay
	sc.Clarify = cfg.Pipeline.Clarify
	return sc, nil
}

// QuickCheck performs a quick health check on the default provider
func QuickCheck(ctx context.Context, registry *inference.Registry) error {
	provider, ok := registry.GetDefaultProvider()
	if !ok {
		return fmt.Errorf("no default provider configured")
	}

	if !provider.IsAvailable(ctx) {
		if provider.RequiresCredential() {
			return fmt.Errorf("%s: %w", provider.Name(), inference.ErrMissingCredential)
		}
		return fmt.Errorf("default provider %s is not available", provider.Name())
	}
	return nil
}

// Options adjusts NewRuntime for the calling front end
type Options struct {
	// Logger overrides the logger built from the configuration
	Logger logging.Logger
	// MetricsAddr overrides metrics.addr and enables the endpoint when set
	MetricsAddr string
	// Observers receive session notifications in addition to event publishing
	Observers []pipeline.Observer
}

// Runtime is everything one forge session needs, wired together
type Runtime struct {
	Config   *config.ForgeConfig
	Logger   logging.Logger
	Metrics  metrics.Collector
	Registry *inference.Registry
	Gateway  *gateway.ProviderGateway
	Session  *pipeline.Session

	events        *events.Observer
	metricsServer *http.Server
	ownsLogger    bool
}

// NewRuntime wires a session from cfg
func NewRuntime(cfg *config.ForgeConfig, opts Options) (*Runtime, error) {
	rt := &Runtime{Config: cfg, Logger: opts.Logger}
	if rt.Logger == nil {
		logger, err := logging.NewZapLogger(cfg.LoggerConfig())
		if err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
		rt.Logger = logger
		rt.ownsLogger = true
	}

	rt.Metrics = metrics.NopCollector{}
	addr := cfg.Metrics.Addr
	if opts.MetricsAddr != "" {
		addr = opts.MetricsAddr
	}
	if cfg.Metrics.Enabled || opts.MetricsAddr != "" {
		collector := metrics.NewPrometheusCollector()
		if err := collector.RegisterStandardMetrics(); err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
		rt.Metrics = collector
		srv, err := metrics.Serve(addr, collector, rt.Logger)
		if err != nil {
			// the run still works without a scrape endpoint
			rt.Logger.Warn("metrics endpoint disabled", logging.String("addr", addr), logging.Err(err))
		} else {
			rt.metricsServer = srv
			rt.Logger.Info("metrics endpoint started", logging.String("addr", srv.Addr))
		}
	}

	registry, err := InitializeInference(&cfg.Inference, rt.Logger)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.Registry = registry

	gw, err := NewGateway(&cfg.Inference, registry, rt.Logger, rt.Metrics)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.Gateway = gw

	sc, err := SessionConfig(cfg)
	if err != nil {
		rt.Close()
		return nil, err
	}
	sc.Logger = rt.Logger
	sc.Metrics = rt.Metrics

	observers := pipeline.MultiObserver(append([]pipeline.Observer(nil), opts.Observers...))
	if cfg.Events.Enabled {
		publisher, err := events.NewKafkaPublisher(events.KafkaConfig{
			Brokers:  cfg.Events.Brokers,
			Topic:    cfg.Events.Topic,
			ClientID: cfg.Events.ClientID,
		}, rt.Logger)
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.events = events.NewObserver(publisher, rt.Logger)
		observers = append(observers, rt.events)
		rt.Logger.Info("publishing pipeline events",
			logging.String("topic", cfg.Events.Topic),
			logging.String("session_id", rt.events.SessionID()),
		)
	}
	sc.Observer = observers

	rt.Session = pipeline.NewSession(gw, sc)
	return rt, nil
}

// Close flushes events, stops the metrics endpoint and syncs the logger
func (rt *Runtime) Close() error {
	var errs []error
	if rt.events != nil {
		if err := rt.events.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if rt.metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := rt.metricsServer.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
		cancel()
	}
	if rt.ownsLogger {
		if zl, ok := rt.Logger.(*logging.ZapLogger); ok {
			// stderr sync fails on some terminals; nothing to do about it
			_ = zl.Sync()
		}
	}
	return errors.Join(errs...)
}
