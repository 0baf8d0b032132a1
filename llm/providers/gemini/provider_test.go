package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/BaSui01/tripcrew/llm"
)

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := New(context.Background(), Config{}, nil)
	var llmErr *llm.Error
	require.ErrorAs(t, err, &llmErr)
	assert.Equal(t, llm.ErrProviderUnavailable, llmErr.Code)
}

func TestBuildContents(t *testing.T) {
	contents, config := buildContents(&llm.ChatRequest{
		Temperature: 0.3,
		MaxTokens:   512,
		Messages: []llm.Message{
			llm.SystemMessage("You are an itinerary planner."),
			llm.UserMessage("Plan Isfahan"),
			{Role: llm.RoleAssistant, Content: "Which days?"},
			{Role: llm.RoleTool, Name: "search", Content: "[]"},
		},
	})

	require.Len(t, contents, 3)
	assert.Equal(t, string(genai.RoleUser), contents[0].Role)
	assert.Equal(t, string(genai.RoleModel), contents[1].Role)
	assert.Contains(t, contents[2].Parts[0].Text, "Tool search returned")

	require.NotNil(t, config.SystemInstruction)
	assert.Equal(t, "You are an itinerary planner.", config.SystemInstruction.Parts[0].Text)
	require.NotNil(t, config.Temperature)
	assert.InDelta(t, 0.3, *config.Temperature, 0.0001)
	assert.Equal(t, int32(512), config.MaxOutputTokens)
}

func TestProvider_Completion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "gemini-2.0-flash:generateContent"), r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Contains(t, body, "systemInstruction")

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"candidates": [{"content": {"role": "model", "parts": [{"text": "{\"city\":\"Isfahan\"}"}]}, "finishReason": "STOP"}],
			"usageMetadata": {"promptTokenCount": 10, "candidatesTokenCount": 6, "totalTokenCount": 16}
		}`)
	}))
	defer srv.Close()

	p, err := New(context.Background(), Config{APIKey: "k", BaseURL: srv.URL, Timeout: 5 * time.Second}, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, p.SupportsNativeFunctionCalling())

	resp, err := p.Completion(context.Background(), &llm.ChatRequest{
		Messages: []llm.Message{llm.SystemMessage("planner"), llm.UserMessage("plan")},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"city":"Isfahan"}`, resp.Text())
	assert.Equal(t, "stop", resp.Choices[0].FinishReason)
	assert.Equal(t, 16, resp.Usage.TotalTokens)
}

func TestProvider_CompletionError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error": {"code": 429, "message": "Resource has been exhausted", "status": "RESOURCE_EXHAUSTED"}}`)
	}))
	defer srv.Close()

	p, err := New(context.Background(), Config{APIKey: "k", BaseURL: srv.URL}, nil)
	require.NoError(t, err)

	_, err = p.Completion(context.Background(), &llm.ChatRequest{Messages: []llm.Message{llm.UserMessage("plan")}})
	require.Error(t, err)
	assert.True(t, llm.IsRetryable(err))
}
