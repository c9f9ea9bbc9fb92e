// Package anthropic implements inference.Provider against the Anthropic
// Messages API.
package anthropic

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/syntor/forge/pkg/inference"
)

const (
	defaultBaseURL   = "https://api.anthropic.com"
	apiVersion       = "2023-06-01"
	defaultMaxTokens = 8192
	defaultTimeout   = 5 * time.Minute
)

// Client implements the inference.Provider interface for Anthropic
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// ClientConfig holds configuration for the Anthropic client
type ClientConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// NewClient creates a new Anthropic client
func NewClient(config ClientConfig) *Client {
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}
	if config.APIKey == "" {
		config.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	}

	return &Client{
		apiKey:     config.APIKey,
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		httpClient: inference.NewHTTPClient(config.Timeout),
	}
}

// Name returns the provider name
func (c *Client) Name() string {
	return inference.ProviderAnthropic
}

// IsAvailable checks if the Anthropic API key is configured
func (c *Client) IsAvailable(ctx context.Context) bool {
	return c.apiKey != ""
}

// RequiresCredential is always true for the hosted API
func (c *Client) RequiresCredential() bool {
	return true
}

type source struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type block struct {
	Type   string  `json:"type"`
	Text   string  `json:"text,omitempty"`
	Source *source `json:"source,omitempty"`
}

type message struct {
	Role    string  `json:"role"`
	Content []block `json:"content"`
}

type messagesRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	System      string    `json:"system,omitempty"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
}

type messagesResponse struct {
	ID         string  `json:"id"`
	Model      string  `json:"model"`
	Content    []block `json:"content"`
	StopReason string  `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// attachmentBlock maps a blob to an image or document block. Other types are
// not accepted by the API and are skipped.
func attachmentBlock(b inference.Blob) (block, bool) {
	var kind string
	switch {
	case strings.HasPrefix(b.MIMEType, "image/"):
		kind = "image"
	case b.MIMEType == "application/pdf":
		kind = "document"
	default:
		return block{}, false
	}
	return block{
		Type: kind,
		Source: &source{
			Type:      "base64",
			MediaType: b.MIMEType,
			Data:      base64.StdEncoding.EncodeToString(b.Data),
		},
	}, true
}

// Chat generates a chat completion
func (c *Client) Chat(ctx context.Context, req inference.ChatRequest) (*inference.ChatResponse, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("anthropic: %w", inference.ErrMissingCredential)
	}

	body := messagesRequest{
		Model:       req.Model,
		MaxTokens:   req.MaxTokens,
		System:      req.System,
		Temperature: req.Temperature,
		Messages:    make([]message, 0, len(req.Messages)),
	}
	if body.MaxTokens <= 0 {
		body.MaxTokens = defaultMaxTokens
	}
	if req.JSON {
		body.System = strings.TrimSpace(body.System + "\nRespond with a single JSON document and nothing else.")
	}

	for _, m := range req.Messages {
		role := m.Role
		if role != "assistant" {
			role = "user"
		}
		blocks := make([]block, 0, len(m.Attachments)+1)
		for _, att := range m.Attachments {
			if b, ok := attachmentBlock(att); ok {
				blocks = append(blocks, b)
			}
		}
		blocks = append(blocks, block{Type: "text", Text: m.Content})
		body.Messages = append(body.Messages, message{Role: role, Content: blocks})
	}

	headers := map[string]string{
		"x-api-key":         c.apiKey,
		"anthropic-version": apiVersion,
	}

	var result messagesResponse
	if err := inference.PostJSON(ctx, c.httpClient, c.Name(), c.baseURL+"/v1/messages", headers, body, &result); err != nil {
		return nil, err
	}

	var text strings.Builder
	for _, b := range result.Content {
		if b.Type == "text" {
			text.WriteString(b.Text)
		}
	}

	return &inference.ChatResponse{
		ID:    result.ID,
		Model: result.Model,
		Message: inference.Message{
			Role:    "assistant",
			Content: text.String(),
		},
		StopReason: result.StopReason,
		Usage: inference.Usage{
			PromptTokens:     result.Usage.InputTokens,
			CompletionTokens: result.Usage.OutputTokens,
			TotalTokens:      result.Usage.InputTokens + result.Usage.OutputTokens,
		},
		CreatedAt: time.Now(),
	}, nil
}
