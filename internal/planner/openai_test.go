package planner

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAI_GenerateSendsChatCompletion(t *testing.T) {
	var gotAuth, gotPath string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("read body: %v", err)
		}
		if err := json.Unmarshal(body, &gotBody); err != nil {
			t.Errorf("unmarshal body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"model": "gpt-test",
			"choices": [
				{"index": 0, "message": {"role": "assistant", "content": " {\"actions\":[]} "}, "finish_reason": "stop"}
			]
		}`))
	}))
	t.Cleanup(srv.Close)

	const envKey = "SCREENPILOT_OPENAI_TEST_KEY"
	t.Setenv(envKey, "test-key")

	p, err := NewOpenAI("openai", ProviderConfig{Model: "gpt-test", BaseURL: srv.URL + "/v1", APIKeyEnv: envKey}, srv.Client())
	require.NoError(t, err)
	require.True(t, p.Available(context.Background()))

	out, err := p.Generate(context.Background(), "click OK", "system prompt")
	require.NoError(t, err)
	assert.Equal(t, `{"actions":[]}`, out)

	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "/v1/chat/completions", gotPath)
	assert.Equal(t, "gpt-test", gotBody["model"])
	messages, ok := gotBody["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])
	assert.Equal(t, "click OK", messages[1].(map[string]any)["content"])
}

func TestOpenAI_UnavailableWithoutKey(t *testing.T) {
	const envKey = "SCREENPILOT_OPENAI_MISSING_KEY"
	t.Setenv(envKey, "")

	p, err := NewOpenAI("openai", ProviderConfig{APIKeyEnv: envKey}, nil)
	require.NoError(t, err)
	assert.False(t, p.Available(context.Background()))
	assert.Equal(t, defaultOpenAIModel, p.Model())
}

func TestOpenAI_EmptyChoicesIsError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[]}`))
	}))
	t.Cleanup(srv.Close)

	p, err := NewOpenAI("openai", ProviderConfig{APIKey: "k", BaseURL: srv.URL + "/v1"}, srv.Client())
	require.NoError(t, err)
	_, err = p.Generate(context.Background(), "p", "")
	assert.Error(t, err)
}

func TestOllama_AvailabilityProbesModels(t *testing.T) {
	t.Parallel()

	var up atomic.Bool
	up.Store(true)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/models" || !up.Load() {
			http.Error(w, `{"error":{"message":"down"}}`, http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[{"id":"llama3.2","object":"model"}]}`))
	}))
	t.Cleanup(srv.Close)

	p, err := NewOllama("ollama", ProviderConfig{BaseURL: srv.URL + "/v1"}, srv.Client())
	require.NoError(t, err)
	assert.True(t, p.Available(context.Background()))

	up.Store(false)
	assert.False(t, p.Available(context.Background()))
}
