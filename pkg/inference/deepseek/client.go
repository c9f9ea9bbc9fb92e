// Package deepseek implements inference.Provider against DeepSeek's
// OpenAI-compatible chat completions API.
package deepseek

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/syntor/forge/pkg/inference"
	"github.com/syntor/forge/pkg/logging"
)

const (
	defaultBaseURL = "https://api.deepseek.com"
	defaultTimeout = 5 * time.Minute
)

// Client implements the inference.Provider interface for DeepSeek
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     logging.Logger
}

// ClientConfig holds configuration for the DeepSeek client
type ClientConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
	Logger  logging.Logger
}

// NewClient creates a new DeepSeek client
func NewClient(config ClientConfig) *Client {
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}
	if config.APIKey == "" {
		config.APIKey = os.Getenv("DEEPSEEK_API_KEY")
	}
	if config.Logger == nil {
		config.Logger = logging.NewNop()
	}

	return &Client{
		apiKey:     config.APIKey,
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		httpClient: inference.NewHTTPClient(config.Timeout),
		logger:     config.Logger,
	}
}

// Name returns the provider name
func (c *Client) Name() string {
	return inference.ProviderDeepSeek
}

// IsAvailable checks if the DeepSeek API key is configured
func (c *Client) IsAvailable(ctx context.Context) bool {
	return c.apiKey != ""
}

// RequiresCredential is always true for the hosted API
func (c *Client) RequiresCredential() bool {
	return true
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	Temperature    float64         `json:"temperature,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
	Stream         bool            `json:"stream"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Created int64  `json:"created"`
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// Chat generates a chat completion. The API is text only, so attachments are dropped.
func (c *Client) Chat(ctx context.Context, req inference.ChatRequest) (*inference.ChatResponse, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("deepseek: %w", inference.ErrMissingCredential)
	}

	body := chatRequest{
		Model:       req.Model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Messages:    make([]chatMessage, 0, len(req.Messages)+1),
	}
	if req.System != "" {
		body.Messages = append(body.Messages, chatMessage{Role: "system", Content: req.System})
	}
	if req.JSON {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	for _, m := range req.Messages {
		if len(m.Attachments) > 0 {
			c.logger.Debug("deepseek drops attachments", logging.Int("count", len(m.Attachments)))
		}
		body.Messages = append(body.Messages, chatMessage{Role: m.Role, Content: m.Content})
	}

	headers := map[string]string{"Authorization": "Bearer " + c.apiKey}

	var result chatResponse
	if err := inference.PostJSON(ctx, c.httpClient, c.Name(), c.baseURL+"/chat/completions", headers, body, &result); err != nil {
		return nil, err
	}
	if len(result.Choices) == 0 {
		return nil, fmt.Errorf("deepseek: %w", inference.ErrEmptyResponse)
	}

	return &inference.ChatResponse{
		ID:    result.ID,
		Model: result.Model,
		Message: inference.Message{
			Role:    "assistant",
			Content: result.Choices[0].Message.Content,
		},
		StopReason: result.Choices[0].FinishReason,
		Usage: inference.Usage{
			PromptTokens:     result.Usage.PromptTokens,
			CompletionTokens: result.Usage.CompletionTokens,
			TotalTokens:      result.Usage.TotalTokens,
		},
		CreatedAt: time.Unix(result.Created, 0),
	}, nil
}
