// Package gemini implements inference.Provider against the Google Generative
// Language REST API.
package gemini

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
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultTimeout = 5 * time.Minute

	roleUser  = "user"
	roleModel = "model"
)

// Client implements the inference.Provider interface for Gemini
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// ClientConfig holds configuration for the Gemini client
type ClientConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// NewClient creates a new Gemini client. An empty key falls back to
// GEMINI_API_KEY and then API_KEY.
func NewClient(config ClientConfig) *Client {
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}
	if config.APIKey == "" {
		config.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if config.APIKey == "" {
		config.APIKey = os.Getenv("API_KEY")
	}

	return &Client{
		apiKey:     config.APIKey,
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		httpClient: inference.NewHTTPClient(config.Timeout),
	}
}

// Name returns the provider name
func (c *Client) Name() string {
	return inference.ProviderGemini
}

// IsAvailable reports whether an API key is configured
func (c *Client) IsAvailable(ctx context.Context) bool {
	return c.apiKey != ""
}

// RequiresCredential is always true for the hosted API
func (c *Client) RequiresCredential() bool {
	return true
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	MaxOutputTokens  int     `json:"maxOutputTokens,omitempty"`
	Temperature      float64 `json:"temperature,omitempty"`
	ResponseMIMEType string  `json:"responseMimeType,omitempty"`
}

type generateRequest struct {
	Contents          []content         `json:"contents"`
	SystemInstruction *content          `json:"systemInstruction,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
	ModelVersion string `json:"modelVersion"`
}

// Chat generates a chat completion via generateContent
func (c *Client) Chat(ctx context.Context, req inference.ChatRequest) (*inference.ChatResponse, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("gemini: %w", inference.ErrMissingCredential)
	}

	body := generateRequest{Contents: make([]content, 0, len(req.Messages))}
	for _, m := range req.Messages {
		role := roleUser
		if m.Role == "assistant" {
			role = roleModel
		}
		parts := []part{{Text: m.Content}}
		for _, att := range m.Attachments {
			parts = append(parts, part{InlineData: &inlineData{
				MIMEType: att.MIMEType,
				Data:     base64.StdEncoding.EncodeToString(att.Data),
			}})
		}
		body.Contents = append(body.Contents, content{Role: role, Parts: parts})
	}

	if req.System != "" {
		body.SystemInstruction = &content{Parts: []part{{Text: req.System}}}
	}
	if req.MaxTokens > 0 || req.Temperature > 0 || req.JSON {
		body.GenerationConfig = &generationConfig{
			MaxOutputTokens: req.MaxTokens,
			Temperature:     req.Temperature,
		}
		if req.JSON {
			body.GenerationConfig.ResponseMIMEType = "application/json"
		}
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, req.Model)
	headers := map[string]string{"x-goog-api-key": c.apiKey}

	var result generateResponse
	if err := inference.PostJSON(ctx, c.httpClient, c.Name(), url, headers, body, &result); err != nil {
		return nil, err
	}

	if len(result.Candidates) == 0 {
		return nil, fmt.Errorf("gemini: %w", inference.ErrEmptyResponse)
	}
	var text strings.Builder
	for _, p := range result.Candidates[0].Content.Parts {
		text.WriteString(p.Text)
	}

	model := result.ModelVersion
	if model == "" {
		model = req.Model
	}

	return &inference.ChatResponse{
		ID:    fmt.Sprintf("gemini-%d", time.Now().UnixNano()),
		Model: model,
		Message: inference.Message{
			Role:    "assistant",
			Content: text.String(),
		},
		StopReason: result.Candidates[0].FinishReason,
		Usage: inference.Usage{
			PromptTokens:     result.UsageMetadata.PromptTokenCount,
			CompletionTokens: result.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      result.UsageMetadata.TotalTokenCount,
		},
		CreatedAt: time.Now(),
	}, nil
}
