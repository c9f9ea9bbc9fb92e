package inference

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	name      string
	available bool
}

func (s *stubProvider) Name() string                         { return s.name }
func (s *stubProvider) IsAvailable(ctx context.Context) bool { return s.available }
func (s *stubProvider) RequiresCredential() bool             { return false }
func (s *stubProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	return &ChatResponse{Message: Message{Role: "assistant", Content: "ok"}}, nil
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, DefaultModels[ProviderGemini], r.GetDefaultModel())

	_, ok := r.GetDefaultProvider()
	assert.False(t, ok)

	r.RegisterProvider(&stubProvider{name: "b", available: true})
	r.RegisterProvider(&stubProvider{name: "a", available: false})
	assert.Equal(t, []string{"a", "b"}, r.ListProviders())

	assert.Error(t, r.SetDefaultProvider("missing"))
	require.NoError(t, r.SetDefaultProvider("b"))
	p, ok := r.GetDefaultProvider()
	require.True(t, ok)
	assert.Equal(t, "b", p.Name())

	r.SetDefaultModel("custom")
	assert.Equal(t, "custom", r.GetDefaultModel())

	assert.Equal(t, map[string]bool{"a": false, "b": true}, r.CheckProviderHealth(context.Background()))
}

func TestModelCatalog(t *testing.T) {
	for provider, model := range DefaultModels {
		m, ok := FindModel(model)
		require.True(t, ok, model)
		assert.Equal(t, provider, m.Provider)
		assert.NotEmpty(t, GetModelsByProvider(provider))
	}
	_, ok := FindModel("nope")
	assert.False(t, ok)
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"rate limited", &StatusError{Code: 429}, true},
		{"server error", fmt.Errorf("wrapped: %w", &StatusError{Code: 503}), true},
		{"bad request", &StatusError{Code: 400}, false},
		{"unauthorized", &StatusError{Code: 401}, false},
		{"net timeout", fmt.Errorf("do: %w", timeoutErr{}), true},
		{"deadline", context.DeadlineExceeded, true},
		{"canceled", context.Canceled, false},
		{"missing credential", ErrMissingCredential, false},
		{"other", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestPostJSON(t *testing.T) {
	t.Run("decodes success", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			assert.Equal(t, "secret", r.Header.Get("X-Key"))
			w.Write([]byte(`{"value":"hi"}`))
		}))
		defer srv.Close()

		var out struct{ Value string }
		err := PostJSON(context.Background(), NewHTTPClient(time.Second), "test", srv.URL, map[string]string{"X-Key": "secret"}, map[string]string{"a": "b"}, &out)
		require.NoError(t, err)
		assert.Equal(t, "hi", out.Value)
	})

	t.Run("status error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		var out struct{}
		err := PostJSON(context.Background(), NewHTTPClient(time.Second), "test", srv.URL, nil, struct{}{}, &out)
		var statusErr *StatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, http.StatusServiceUnavailable, statusErr.Code)
		assert.Contains(t, statusErr.Body, "overloaded")
		assert.True(t, IsTransient(err))
	})
}
