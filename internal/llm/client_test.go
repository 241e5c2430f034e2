package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ragerr "github.com/studydeck/studyrag/internal/errors"
)

func TestNewOpenAIChatClient_RequiresAPIKey(t *testing.T) {
	_, err := NewOpenAIChatClient(ChatConfig{})

	require.Error(t, err)
	assert.Equal(t, ragerr.ErrCodeCredentialsMissing, ragerr.CodeOf(err))
}

func TestOpenAIChatClient_Complete(t *testing.T) {
	var got chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "Paris [1]."}},
			},
		})
	}))
	defer server.Close()

	client, err := NewOpenAIChatClient(ChatConfig{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)

	reply, err := client.Complete(context.Background(), "system prompt", "user prompt")
	require.NoError(t, err)
	assert.Equal(t, "Paris [1].", reply)

	assert.Equal(t, DefaultChatModel, got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "system prompt", got.Messages[0].Content)
	assert.Equal(t, "user", got.Messages[1].Role)
	assert.Equal(t, "user prompt", got.Messages[1].Content)
}

func TestOpenAIChatClient_ServerErrorIsRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client, err := NewOpenAIChatClient(ChatConfig{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), "s", "u")

	require.Error(t, err)
	assert.Equal(t, ragerr.ErrCodeServiceUnavailable, ragerr.CodeOf(err))
	assert.True(t, ragerr.IsRetryable(err))
}

func TestOpenAIChatClient_RejectionIsNotRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer server.Close()

	client, err := NewOpenAIChatClient(ChatConfig{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), "s", "u")

	require.Error(t, err)
	assert.Equal(t, ragerr.ErrCodeServiceRejected, ragerr.CodeOf(err))
	assert.False(t, ragerr.IsRetryable(err))
}
