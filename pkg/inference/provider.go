package inference

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

var (
	ErrProviderNotAvailable = errors.New("inference provider not available")
	ErrMissingCredential    = errors.New("inference provider credential not configured")
	ErrEmptyResponse        = errors.New("inference provider returned no content")
	ErrInferenceFailed      = errors.New("inference failed")
)

// Provider defines the interface for AI inference providers
type Provider interface {
	// Name returns the provider name (e.g., "gemini", "anthropic", "ollama")
	Name() string

	// IsAvailable checks if the provider is accessible
	IsAvailable(ctx context.Context) bool

	// RequiresCredential reports whether calls need an API key
	RequiresCredential() bool

	// Chat generates a chat completion
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// Model represents an available AI model
type Model struct {
	ID           string   `json:"id" yaml:"id"`
	Name         string   `json:"name" yaml:"name"`
	Provider     string   `json:"provider" yaml:"provider"`
	Description  string   `json:"description,omitempty" yaml:"description,omitempty"`
	Context      int      `json:"context,omitempty" yaml:"context,omitempty"`
	Capabilities []string `json:"capabilities,omitempty" yaml:"capabilities,omitempty"`
}

// ChatRequest represents a chat completion request
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
	System      string    `json:"system,omitempty"`

	// JSON asks the provider for a JSON document when it supports a response format
	JSON bool `json:"json,omitempty"`
}

// Message represents a chat message
type Message struct {
	Role        string `json:"role"` // "user", "assistant"
	Content     string `json:"content"`
	Attachments []Blob `json:"-"`
}

// Blob is binary content sent inline with a message
type Blob struct {
	MIMEType string
	Data     []byte
}

// ChatResponse represents a chat completion response
type ChatResponse struct {
	ID         string    `json:"id"`
	Model      string    `json:"model"`
	Message    Message   `json:"message"`
	StopReason string    `json:"stop_reason,omitempty"`
	Usage      Usage     `json:"usage"`
	CreatedAt  time.Time `json:"created_at"`
}

// Usage represents token usage statistics
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// StatusError is a non-2xx response from a provider
type StatusError struct {
	Provider string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Provider, e.Code, e.Body)
}

// IsTransient reports whether err is worth retrying: rate limits, server
// errors and network timeouts.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code == http.StatusTooManyRequests || statusErr.Code >= 500
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
