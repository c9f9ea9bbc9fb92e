package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syntor/forge/pkg/inference"
)

func TestChat(t *testing.T) {
	var got generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-test:generateContent", r.URL.Path)
		assert.Equal(t, "key-1", r.Header.Get("x-goog-api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{
			"candidates": [{"content": {"role": "model", "parts": [{"text": "hello "}, {"text": "world"}]}, "finishReason": "STOP"}],
			"usageMetadata": {"promptTokenCount": 3, "candidatesTokenCount": 2, "totalTokenCount": 5}
		}`))
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{APIKey: "key-1", BaseURL: srv.URL})
	resp, err := c.Chat(context.Background(), inference.ChatRequest{
		Model:  "gemini-test",
		System: "be brief",
		JSON:   true,
		Messages: []inference.Message{{
			Role:        "user",
			Content:     "idea",
			Attachments: []inference.Blob{{MIMEType: "image/png", Data: []byte{1, 2, 3}}},
		}},
	})
	require.NoError(t, err)

	assert.Equal(t, "hello world", resp.Message.Content)
	assert.Equal(t, "gemini-test", resp.Model)
	assert.Equal(t, "STOP", resp.StopReason)
	assert.Equal(t, 5, resp.Usage.TotalTokens)

	require.NotNil(t, got.SystemInstruction)
	assert.Equal(t, "be brief", got.SystemInstruction.Parts[0].Text)
	require.NotNil(t, got.GenerationConfig)
	assert.Equal(t, "application/json", got.GenerationConfig.ResponseMIMEType)
	require.Len(t, got.Contents, 1)
	assert.Equal(t, "user", got.Contents[0].Role)
	require.Len(t, got.Contents[0].Parts, 2)
	assert.Equal(t, "idea", got.Contents[0].Parts[0].Text)
	assert.Equal(t, "image/png", got.Contents[0].Parts[1].InlineData.MIMEType)
	assert.Equal(t, "AQID", got.Contents[0].Parts[1].InlineData.Data)
}

func TestChatErrors(t *testing.T) {
	t.Run("missing key", func(t *testing.T) {
		t.Setenv("GEMINI_API_KEY", "")
		t.Setenv("API_KEY", "")
		c := NewClient(ClientConfig{BaseURL: "http://127.0.0.1:0"})
		assert.False(t, c.IsAvailable(context.Background()))
		_, err := c.Chat(context.Background(), inference.ChatRequest{Model: "m"})
		assert.ErrorIs(t, err, inference.ErrMissingCredential)
	})

	t.Run("api key alias", func(t *testing.T) {
		t.Setenv("GEMINI_API_KEY", "")
		t.Setenv("API_KEY", "alias")
		assert.True(t, NewClient(ClientConfig{}).IsAvailable(context.Background()))
	})

	t.Run("no candidates", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"candidates": []}`))
		}))
		defer srv.Close()

		c := NewClient(ClientConfig{APIKey: "k", BaseURL: srv.URL})
		_, err := c.Chat(context.Background(), inference.ChatRequest{Model: "m"})
		assert.ErrorIs(t, err, inference.ErrEmptyResponse)
	})

	t.Run("rate limited", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer srv.Close()

		c := NewClient(ClientConfig{APIKey: "k", BaseURL: srv.URL})
		_, err := c.Chat(context.Background(), inference.ChatRequest{Model: "m"})
		assert.True(t, inference.IsTransient(err))
	})
}
