package ollama

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
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			w.Write([]byte(`{"models": []}`))
		case "/api/chat":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			w.Write([]byte(`{"model": "qwen", "message": {"role": "assistant", "content": "local"}, "done": true, "prompt_eval_count": 2, "eval_count": 3}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL})
	assert.False(t, c.RequiresCredential())
	assert.True(t, c.IsAvailable(context.Background()))

	resp, err := c.Chat(context.Background(), inference.ChatRequest{
		Model:     "qwen",
		System:    "sys",
		JSON:      true,
		MaxTokens: 100,
		Messages: []inference.Message{{
			Role:    "user",
			Content: "hi",
			Attachments: []inference.Blob{
				{MIMEType: "image/png", Data: []byte{1, 2, 3}},
				{MIMEType: "application/pdf", Data: []byte{4}},
			},
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, "local", resp.Message.Content)
	assert.Equal(t, 5, resp.Usage.TotalTokens)

	assert.Equal(t, "json", got.Format)
	assert.EqualValues(t, 100, got.Options["num_predict"])
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, []string{"AQID"}, got.Messages[1].Images)
}

func TestUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL})
	assert.False(t, c.IsAvailable(context.Background()))
	_, err := c.Chat(context.Background(), inference.ChatRequest{Model: "m"})
	assert.True(t, inference.IsTransient(err))
}
