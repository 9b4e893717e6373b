package openrouter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"fridge-chef/internal/core/ai/provider"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompleteSendsPromptAndReturnsContent(t *testing.T) {
	var got Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","choices":[{"message":{"role":"assistant","content":"  Title: Soup\n"}}]}`))
	}))
	defer srv.Close()

	c := NewClient(provider.Config{APIKey: "test-key", BaseURL: srv.URL, Model: "m", MaxTokens: 10})
	out, err := c.Complete(context.Background(), "line one\nline two")
	require.NoError(t, err)

	assert.Equal(t, "Title: Soup", out)
	assert.Equal(t, "m", got.Model)
	require.Len(t, got.Messages, 1)
	// 換行必須保留，輸出格式契約依賴它
	assert.Equal(t, "line one\nline two", got.Messages[0].Content)
}

func TestCompleteDoesNotRetryOnFailure(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"quota exceeded"}}`))
	}))
	defer srv.Close()

	c := NewClient(provider.Config{APIKey: "k", BaseURL: srv.URL})
	_, err := c.Complete(context.Background(), "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestCompleteEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	c := NewClient(provider.Config{BaseURL: srv.URL})
	_, err := c.Complete(context.Background(), "hi")
	assert.Error(t, err)
}
