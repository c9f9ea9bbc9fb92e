package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/syntor/forge/pkg/logging"
	"github.com/syntor/forge/pkg/models"
)

// ForgeConfig holds the complete forge configuration (YAML format)
type ForgeConfig struct {
	Inference InferenceConfig `yaml:"inference" json:"inference"`
	Pipeline  PipelineConfig  `yaml:"pipeline" json:"pipeline"`
	Logging   LoggingConfig   `yaml:"logging" json:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics" json:"metrics"`
	Events    EventsConfig    `yaml:"events" json:"events"`
}

// PipelineConfig holds session defaults
type PipelineConfig struct {
	Mode        string        `yaml:"mode" json:"mode"`                 // website, chatbot, prompt-refiner
	BotLanguage string        `yaml:"bot_language" json:"bot_language"` // javascript, python
	StepDelay   time.Duration `yaml:"step_delay" json:"step_delay"`
	Clarify     bool          `yaml:"clarify" json:"clarify"`
	ExportDir   string        `yaml:"export_dir" json:"export_dir"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string `yaml:"level" json:"level"`   // debug, info, warn, error
	Format     string `yaml:"format" json:"format"` // json, text
	OutputPath string `yaml:"output_path" json:"output_path"`
}

// MetricsConfig holds monitoring configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Addr    string `yaml:"addr" json:"addr"`
}

// EventsConfig holds pipeline event publishing configuration
type EventsConfig struct {
	Enabled  bool     `yaml:"enabled" json:"enabled"`
	Brokers  []string `yaml:"brokers" json:"brokers"`
	Topic    string   `yaml:"topic" json:"topic"`
	ClientID string   `yaml:"client_id" json:"client_id"`
}

// DefaultPipelineConfig returns the interactive pipeline defaults
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Mode:        string(models.ModeWebsite),
		BotLanguage: string(models.BotJavaScript),
		StepDelay:   600 * time.Millisecond,
		Clarify:     true,
		ExportDir:   "forge-out",
	}
}

// DefaultForgeConfig returns default forge configuration
func DefaultForgeConfig() ForgeConfig {
	return ForgeConfig{
		Inference: DefaultInferenceConfig(),
		Pipeline:  DefaultPipelineConfig(),
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			OutputPath: "stderr",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    ":9090",
		},
		Events: EventsConfig{
			Enabled:  false,
			Brokers:  []string{"localhost:9092"},
			Topic:    "forge.pipeline.events",
			ClientID: "forge",
		},
	}
}

// ConfigPaths returns the global and project config directories
func ConfigPaths() (globalDir, projectDir string) {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	globalDir = filepath.Join(home, ".forge")
	projectDir = ".forge"
	return
}

// GlobalConfigPath returns the path to global config file
func GlobalConfigPath() string {
	globalDir, _ := ConfigPaths()
	return filepath.Join(globalDir, "config.yaml")
}

// ProjectConfigPath returns the path to project config file
func ProjectConfigPath() string {
	_, projectDir := ConfigPaths()
	return filepath.Join(projectDir, "config.yaml")
}

// SearchPaths returns the files Load reads, lowest precedence first
func SearchPaths(explicit string) []string {
	paths := []string{GlobalConfigPath(), ProjectConfigPath()}
	if explicit != "" {
		paths = append(paths, explicit)
	}
	return paths
}

// Load builds the configuration from defaults, the global file, the project
// file, an explicit file and finally environment variables. The explicit file
// must exist; the others are optional.
func Load(explicit string) (*ForgeConfig, error) {
	config := DefaultForgeConfig()

	for _, path := range []string{GlobalConfigPath(), ProjectConfigPath()} {
		if err := loadYAMLConfig(path, &config); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}
	if explicit != "" {
		if err := loadYAMLConfig(explicit, &config); err != nil {
			return nil, fmt.Errorf("load %s: %w", explicit, err)
		}
	}

	if err := applyEnvOverrides(&config); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// loadYAMLConfig loads a YAML config file into the config struct
func loadYAMLConfig(path string, config *ForgeConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, config)
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *ForgeConfig) error {
	if v := os.Getenv("FORGE_PROVIDER"); v != "" {
		config.Inference.Provider = v
	}
	if v := os.Getenv("FORGE_MODEL"); v != "" {
		config.Inference.Model = v
	}
	if v := os.Getenv("API_KEY"); v != "" {
		config.Inference.GeminiAPIKey = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		config.Inference.GeminiAPIKey = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		config.Inference.AnthropicAPIKey = v
	}
	if v := os.Getenv("DEEPSEEK_API_KEY"); v != "" {
		config.Inference.DeepSeekAPIKey = v
	}
	if v := os.Getenv("FORGE_OLLAMA_HOST"); v != "" {
		config.Inference.OllamaHost = v
	}

	if v := os.Getenv("FORGE_STEP_DELAY"); v != "" {
		d, err := parseDelay(v)
		if err != nil {
			return fmt.Errorf("FORGE_STEP_DELAY: %w", err)
		}
		config.Pipeline.StepDelay = d
	}
	if v := os.Getenv("FORGE_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
	if v := os.Getenv("FORGE_KAFKA_BROKERS"); v != "" {
		config.Events.Brokers = splitList(v)
		config.Events.Enabled = true
	}
	return nil
}

// parseDelay accepts a Go duration or a bare number of milliseconds
func parseDelay(v string) (time.Duration, error) {
	if ms, err := strconv.Atoi(v); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	return time.ParseDuration(v)
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks values that would otherwise fail later and less clearly
func (c *ForgeConfig) Validate() error {
	if err := c.Inference.Validate(); err != nil {
		return err
	}
	if _, err := models.ParseMode(c.Pipeline.Mode); err != nil {
		return fmt.Errorf("pipeline.mode: %w", err)
	}
	if _, err := models.ParseBotLanguage(c.Pipeline.BotLanguage); err != nil {
		return fmt.Errorf("pipeline.bot_language: %w", err)
	}
	if c.Pipeline.StepDelay < 0 {
		return fmt.Errorf("pipeline.step_delay must not be negative")
	}
	if c.Events.Enabled && len(c.Events.Brokers) == 0 {
		return fmt.Errorf("events.brokers must be set when events are enabled")
	}
	return nil
}

// LoggerConfig converts the logging section for pkg/logging
func (c *ForgeConfig) LoggerConfig() logging.Config {
	lc := logging.DefaultConfig()
	lc.Level = logging.ParseLevel(c.Logging.Level)
	if c.Logging.Format != "" {
		lc.Format = c.Logging.Format
	}
	lc.Output = nil
	lc.OutputPath = c.Logging.OutputPath
	return lc
}

// Save writes the configuration as YAML to path, creating its directory
func (c *ForgeConfig) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// Redacted returns a copy with credentials masked, for display
func (c ForgeConfig) Redacted() ForgeConfig {
	c.Inference.GeminiAPIKey = mask(c.Inference.GeminiAPIKey)
	c.Inference.AnthropicAPIKey = mask(c.Inference.AnthropicAPIKey)
	c.Inference.DeepSeekAPIKey = mask(c.Inference.DeepSeekAPIKey)
	c.Events.Brokers = append([]string(nil), c.Events.Brokers...)
	return c
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 8 {
		return "****"
	}
	return secret[:4] + "****" + secret[len(secret)-4:]
}

// GetEnv retrieves environment variable with a default value
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetEnvBool retrieves environment variable as bool with a default value
func GetEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}
