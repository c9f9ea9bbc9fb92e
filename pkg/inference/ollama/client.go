// Package ollama implements inference.Provider against a local Ollama server.
package ollama

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/syntor/forge/pkg/inference"
)

const (
	defaultBaseURL = "http://localhost:11434"
	defaultTimeout = 5 * time.Minute
)

// Client implements the inference.Provider interface for Ollama
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// ClientConfig holds configuration for the Ollama client
type ClientConfig struct {
	BaseURL string
	Timeout time.Duration
}

// NewClient creates a new Ollama client
func NewClient(config ClientConfig) *Client {
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}

	return &Client{
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		httpClient: inference.NewHTTPClient(config.Timeout),
	}
}

// Name returns the provider name
func (c *Client) Name() string {
	return inference.ProviderOllama
}

// IsAvailable checks if Ollama is accessible
func (c *Client) IsAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

// RequiresCredential is false; a local server needs no key
func (c *Client) RequiresCredential() bool {
	return false
}

type chatMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

type chatRequest struct {
	Model    string                 `json:"model"`
	Messages []chatMessage          `json:"messages"`
	Stream   bool                   `json:"stream"`
	Format   string                 `json:"format,omitempty"`
	Options  map[string]interface{} `json:"options,omitempty"`
}

type chatResponse struct {
	Model           string      `json:"model"`
	Message         chatMessage `json:"message"`
	Done            bool        `json:"done"`
	DoneReason      string      `json:"done_reason"`
	PromptEvalCount int         `json:"prompt_eval_count"`
	EvalCount       int         `json:"eval_count"`
	CreatedAt       time.Time   `json:"created_at"`
}

// Chat generates a chat completion. Only image attachments are forwarded.
func (c *Client) Chat(ctx context.Context, req inference.ChatRequest) (*inference.ChatResponse, error) {
	body := chatRequest{
		Model:    req.Model,
		Stream:   false,
		Messages: make([]chatMessage, 0, len(req.Messages)+1),
	}
	if req.System != "" {
		body.Messages = append(body.Messages, chatMessage{Role: "system", Content: req.System})
	}
	for _, m := range req.Messages {
		msg := chatMessage{Role: m.Role, Content: m.Content}
		for _, att := range m.Attachments {
			if strings.HasPrefix(att.MIMEType, "image/") {
				msg.Images = append(msg.Images, base64.StdEncoding.EncodeToString(att.Data))
			}
		}
		body.Messages = append(body.Messages, msg)
	}

	if req.JSON {
		body.Format = "json"
	}
	options := map[string]interface{}{}
	if req.MaxTokens > 0 {
		options["num_predict"] = req.MaxTokens
	}
	if req.Temperature > 0 {
		options["temperature"] = req.Temperature
	}
	if len(options) > 0 {
		body.Options = options
	}

	var result chatResponse
	if err := inference.PostJSON(ctx, c.httpClient, c.Name(), c.baseURL+"/api/chat", nil, body, &result); err != nil {
		return nil, err
	}

	return &inference.ChatResponse{
		ID:    fmt.Sprintf("ollama-%d", time.Now().UnixNano()),
		Model: result.Model,
		Message: inference.Message{
			Role:    result.Message.Role,
			Content: result.Message.Content,
		},
		StopReason: result.DoneReason,
		Usage: inference.Usage{
			PromptTokens:     result.PromptEvalCount,
			CompletionTokens: result.EvalCount,
			TotalTokens:      result.PromptEvalCount + result.EvalCount,
		},
		CreatedAt: result.CreatedAt,
	}, nil
}
