package config

import (
	"fmt"
	"time"

	"github.com/syntor/forge/pkg/inference"
)

// InferenceConfig holds AI inference configuration
type InferenceConfig struct {
	// Provider settings
	Provider        string `yaml:"provider" json:"provider"`                   // gemini, anthropic, deepseek, ollama
	GeminiAPIKey    string `yaml:"gemini_api_key" json:"gemini_api_key"`       // Gemini API key
	AnthropicAPIKey string `yaml:"anthropic_api_key" json:"anthropic_api_key"` // Anthropic API key (optional)
	DeepSeekAPIKey  string `yaml:"deepseek_api_key" json:"deepseek_api_key"`   // DeepSeek API key (optional)
	OllamaHost      string `yaml:"ollama_host" json:"ollama_host"`             // Ollama API endpoint
	BaseURL         string `yaml:"base_url,omitempty" json:"base_url,omitempty"`

	// Model overrides the provider's default model
	Model string `yaml:"model" json:"model"`

	MaxTokens   int           `yaml:"max_tokens" json:"max_tokens"`
	Temperature float64       `yaml:"temperature" json:"temperature"`
	Timeout     time.Duration `yaml:"timeout" json:"timeout"`

	// MaxAttempts bounds gateway retries of transient failures; 1 disables retry
	MaxAttempts int `yaml:"max_attempts" json:"max_attempts"`
}

// DefaultInferenceConfig returns default inference configuration
func DefaultInferenceConfig() InferenceConfig {
	return InferenceConfig{
		Provider:    inference.ProviderGemini,
		OllamaHost:  GetEnv("FORGE_OLLAMA_HOST", "http://localhost:11434"),
		MaxTokens:   8192,
		Temperature: 0.7,
		Timeout:     5 * time.Minute,
		MaxAttempts: 1,
	}
}

// Validate rejects unknown providers and nonsensical limits
func (c *InferenceConfig) Validate() error {
	switch c.Provider {
	case inference.ProviderGemini, inference.ProviderAnthropic, inference.ProviderDeepSeek, inference.ProviderOllama:
	default:
		return fmt.Errorf("inference.provider: unknown provider %q", c.Provider)
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("inference.max_attempts must be at least 1")
	}
	if c.MaxTokens < 0 {
		return fmt.Errorf("inference.max_tokens must not be negative")
	}
	return nil
}

// Credential returns the API key of the selected provider. Ollama needs none
// and always returns "".
func (c *InferenceConfig) Credential() string {
	switch c.Provider {
	case inference.ProviderGemini:
		return c.GeminiAPIKey
	case inference.ProviderAnthropic:
		return c.AnthropicAPIKey
	case inference.ProviderDeepSeek:
		return c.DeepSeekAPIKey
	}
	return ""
}

// RequiresCredential reports whether the selected provider is hosted
func (c *InferenceConfig) RequiresCredential() bool {
	return c.Provider != inference.ProviderOllama
}

// ModelID returns the configured model or the provider default
func (c *InferenceConfig) ModelID() string {
	if c.Model != "" {
		return c.Model
	}
	return inference.DefaultModels[c.Provider]
}
