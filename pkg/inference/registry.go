package inference

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Provider names
const (
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
	ProviderDeepSeek  = "deepseek"
	ProviderOllama    = "ollama"
)

// AvailableModels lists the models forge knows defaults for
var AvailableModels = []Model{
	{
		ID:           "gemini-2.5-pro",
		Name:         "Gemini 2.5 Pro",
		Provider:     ProviderGemini,
		Description:  "Strong multimodal reasoning, accepts images and PDFs",
		Context:      1048576,
		Capabilities: []string{"chat", "code", "vision", "json"},
	},
	{
		ID:           "gemini-2.5-flash",
		Name:         "Gemini 2.5 Flash",
		Provider:     ProviderGemini,
		Description:  "Fast and cheap multimodal model",
		Context:      1048576,
		Capabilities: []string{"chat", "code", "vision", "json"},
	},
	{
		ID:           "claude-sonnet-4-20250514",
		Name:         "Claude Sonnet 4",
		Provider:     ProviderAnthropic,
		Description:  "Balanced performance and cost for complex tasks",
		Context:      200000,
		Capabilities: []string{"chat", "code", "vision"},
	},
	{
		ID:           "claude-opus-4-20250514",
		Name:         "Claude Opus 4",
		Provider:     ProviderAnthropic,
		Description:  "Most capable model for complex reasoning",
		Context:      200000,
		Capabilities: []string{"chat", "code", "vision"},
	},
	{
		ID:           "deepseek-chat",
		Name:         "DeepSeek Chat",
		Provider:     ProviderDeepSeek,
		Description:  "Cost-effective general purpose model, text only",
		Context:      65536,
		Capabilities: []string{"chat", "code", "json"},
	},
	{
		ID:           "qwen2.5-coder:7b",
		Name:         "Qwen 2.5 Coder 7B",
		Provider:     ProviderOllama,
		Description:  "Local code generation model",
		Context:      32768,
		Capabilities: []string{"chat", "code", "json"},
	},
	{
		ID:           "llava:7b",
		Name:         "LLaVA 7B",
		Provider:     ProviderOllama,
		Description:  "Local vision model",
		Context:      4096,
		Capabilities: []string{"chat", "vision"},
	},
}

// DefaultModels is the model used per provider when none is configured
var DefaultModels = map[string]string{
	ProviderGemini:    "gemini-2.5-pro",
	ProviderAnthropic: "claude-sonnet-4-20250514",
	ProviderDeepSeek:  "deepseek-chat",
	ProviderOllama:    "qwen2.5-coder:7b",
}

// Registry manages inference providers and the default selection
type Registry struct {
	providers       map[string]Provider
	defaultProvider string
	defaultModel    string
	mu              sync.RWMutex
}

// NewRegistry creates a new inference registry
func NewRegistry() *Registry {
	return &Registry{
		providers:       make(map[string]Provider),
		defaultProvider: ProviderGemini,
		defaultModel:    DefaultModels[ProviderGemini],
	}
}

// RegisterProvider adds a provider to the registry
func (r *Registry) RegisterProvider(provider Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[provider.Name()] = provider
}

// GetProvider returns a provider by name
func (r *Registry) GetProvider(name string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	return p, ok
}

// GetDefaultProvider returns the default provider
func (r *Registry) GetDefaultProvider() (Provider, bool) {
	r.mu.RLock()
	name := r.defaultProvider
	r.mu.RUnlock()
	return r.GetProvider(name)
}

// SetDefaultProvider sets the default provider
func (r *Registry) SetDefaultProvider(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.providers[name]; !ok {
		return fmt.Errorf("provider not registered: %s", name)
	}
	r.defaultProvider = name
	return nil
}

// SetDefaultModel sets the model used for every call
func (r *Registry) SetDefaultModel(modelID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaultModel = modelID
}

// GetDefaultModel returns the default model
func (r *Registry) GetDefaultModel() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaultModel
}

// ListProviders returns all registered provider names, sorted
func (r *Registry) ListProviders() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CheckProviderHealth checks if all registered providers are available
func (r *Registry) CheckProviderHealth(ctx context.Context) map[string]bool {
	r.mu.RLock()
	providers := make(map[string]Provider, len(r.providers))
	for k, v := range r.providers {
		providers[k] = v
	}
	r.mu.RUnlock()

	health := make(map[string]bool, len(providers))
	for name, provider := range providers {
		health[name] = provider.IsAvailable(ctx)
	}
	return health
}

// GetModelsByProvider returns known models for a provider
func GetModelsByProvider(providerName string) []Model {
	var models []Model
	for _, m := range AvailableModels {
		if m.Provider == providerName {
			models = append(models, m)
		}
	}
	return models
}

// FindModel finds a model by ID
func FindModel(modelID string) (Model, bool) {
	for _, m := range AvailableModels {
		if m.ID == modelID {
			return m, true
		}
	}
	return Model{}, false
}
