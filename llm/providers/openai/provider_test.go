package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/tripcrew/llm"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{APIKey: "test-key", BaseURL: srv.URL + "/v1", Model: "gpt-4o-mini", Timeout: 5 * time.Second}, zap.NewNop())
}

func TestProvider_Defaults(t *testing.T) {
	p := New(Config{}, nil)
	assert.Equal(t, "openai", p.Name())
	assert.True(t, p.SupportsNativeFunctionCalling())
	assert.Equal(t, "gpt-4o-mini", p.Model())
}

func TestProvider_Completion(t *testing.T) {
	var captured map[string]any
	p := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "gpt-4o-mini",
			"choices": [{"index": 0, "finish_reason": "stop",
				"message": {"role": "assistant", "content": "Naqsh-e Jahan Square"}}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 5, "total_tokens": 17}
		}`)
	})

	resp, err := p.Completion(context.Background(), &llm.ChatRequest{
		Messages: []llm.Message{llm.SystemMessage("You are a researcher."), llm.UserMessage("Top sights in Isfahan")},
		Tools: []llm.ToolSchema{{
			Name:        "search",
			Description: "Search the web",
			Parameters:  json.RawMessage(`{"type":"object","properties":{"query":{"type":"string"}}}`),
		}},
	})
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o-mini", captured["model"])
	assert.Len(t, captured["messages"], 2)
	tools := captured["tools"].([]any)
	require.Len(t, tools, 1)
	assert.Equal(t, "search", tools[0].(map[string]any)["function"].(map[string]any)["name"])

	assert.Equal(t, "Naqsh-e Jahan Square", resp.Text())
	assert.Equal(t, "openai", resp.Provider)
	assert.Equal(t, 17, resp.Usage.TotalTokens)
	assert.Equal(t, "stop", resp.Choices[0].FinishReason)
}

func TestProvider_CompletionToolCalls(t *testing.T) {
	p := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"id": "chatcmpl-2", "model": "gpt-4o-mini", "created": 1700000000,
			"choices": [{"index": 0, "finish_reason": "tool_calls",
				"message": {"role": "assistant", "content": "",
					"tool_calls": [{"id": "call_1", "type": "function",
						"function": {"name": "search", "arguments": "{\"query\":\"Isfahan attractions\"}"}}]}}]
		}`)
	})

	resp, err := p.Completion(context.Background(), &llm.ChatRequest{Messages: []llm.Message{llm.UserMessage("go")}})
	require.NoError(t, err)

	calls := resp.FirstMessage().ToolCalls
	require.Len(t, calls, 1)
	assert.Equal(t, "call_1", calls[0].ID)
	assert.Equal(t, "search", calls[0].Name)
	assert.JSONEq(t, `{"query":"Isfahan attractions"}`, string(calls[0].Arguments))
}

func TestProvider_CompletionErrors(t *testing.T) {
	tests := []struct {
		status    int
		code      llm.ErrorCode
		retryable bool
	}{
		{http.StatusUnauthorized, llm.ErrUnauthorized, false},
		{http.StatusTooManyRequests, llm.ErrRateLimited, true},
		{http.StatusInternalServerError, llm.ErrUpstreamError, true},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			p := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				fmt.Fprint(w, `{"error": {"message": "upstream said no", "type": "test_error"}}`)
			})

			_, err := p.Completion(context.Background(), &llm.ChatRequest{Messages: []llm.Message{llm.UserMessage("hi")}})
			require.Error(t, err)

			var llmErr *llm.Error
			require.ErrorAs(t, err, &llmErr)
			assert.Equal(t, tt.code, llmErr.Code)
			assert.Equal(t, tt.retryable, llmErr.Retryable)
			assert.Equal(t, tt.status, llmErr.HTTPStatus)
		})
	}
}

func TestProvider_EmptyChoices(t *testing.T) {
	p := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id": "x", "model": "gpt-4o-mini", "choices": []}`)
	})

	_, err := p.Completion(context.Background(), &llm.ChatRequest{Messages: []llm.Message{llm.UserMessage("hi")}})
	var llmErr *llm.Error
	require.ErrorAs(t, err, &llmErr)
	assert.Equal(t, llm.ErrEmptyResponse, llmErr.Code)
}

func TestProvider_Stream(t *testing.T) {
	p := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, part := range []string{"Day 1: ", "Chehel Sotoun"} {
			fmt.Fprintf(w, "data: {\"id\":\"s1\",\"model\":\"gpt-4o-mini\",\"choices\":[{\"index\":0,\"delta\":{\"content\":%q}}]}\n\n", part)
		}
		fmt.Fprint(w, "data: {\"id\":\"s1\",\"model\":\"gpt-4o-mini\",\"choices\":[],\"usage\":{\"prompt_tokens\":3,\"completion_tokens\":4,\"total_tokens\":7}}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	ch, err := p.Stream(context.Background(), &llm.ChatRequest{Messages: []llm.Message{llm.UserMessage("plan")}})
	require.NoError(t, err)

	var sb strings.Builder
	var usage *llm.ChatUsage
	for chunk := range ch {
		require.Nil(t, chunk.Err)
		sb.WriteString(chunk.Delta.Content)
		if chunk.Usage != nil {
			usage = chunk.Usage
		}
	}
	assert.Equal(t, "Day 1: Chehel Sotoun", sb.String())
	require.NotNil(t, usage)
	assert.Equal(t, 7, usage.TotalTokens)
}

func TestProvider_HealthCheck(t *testing.T) {
	p := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/models", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"object":"list","data":[{"id":"gpt-4o-mini","object":"model"}]}`)
	})

	status, err := p.HealthCheck(context.Background())
	require.NoError(t, err)
	assert.True(t, status.Healthy)
}

func TestProvider_Integration(t *testing.T) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		t.Skip("OPENAI_API_KEY not set, skipping integration test")
	}

	p := New(Config{APIKey: apiKey, Model: "gpt-4o-mini", Timeout: 30 * time.Second}, zap.NewNop())
	resp, err := p.Completion(context.Background(), &llm.ChatRequest{
		Messages: []llm.Message{llm.UserMessage("Say 'test' only")},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Text())
}
