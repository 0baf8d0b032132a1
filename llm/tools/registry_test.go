package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/tripcrew/llm"
)

func echoTool(_ context.Context, args json.RawMessage) (json.RawMessage, error) {
	return args, nil
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry(zap.NewNop())

	require.NoError(t, r.Register("echo", echoTool, ToolMetadata{}))
	assert.True(t, r.Has("echo"))
	assert.Equal(t, 1, r.Len())

	_, meta, err := r.Get("echo")
	require.NoError(t, err)
	assert.Equal(t, "echo", meta.Schema.Name)
	assert.Equal(t, "echo", meta.DisplayName)
	assert.Equal(t, 30*time.Second, meta.Timeout)

	assert.Error(t, r.Register("echo", echoTool, ToolMetadata{}), "duplicate")
	assert.Error(t, r.Register("other", echoTool, ToolMetadata{Schema: llm.ToolSchema{Name: "mismatch"}}))
	assert.Error(t, r.Register("nil", nil, ToolMetadata{}))

	_, _, err = r.Get("missing")
	assert.Error(t, err)
}

func TestRegistry_ListSorted(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Register("zeta", echoTool, ToolMetadata{}))
	require.NoError(t, r.Register("alpha", echoTool, ToolMetadata{}))

	schemas := r.List()
	require.Len(t, schemas, 2)
	assert.Equal(t, "alpha", schemas[0].Name)
	assert.Equal(t, "zeta", schemas[1].Name)
}

func TestExecutor_ExecuteOrderAndErrors(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Register("echo", echoTool, ToolMetadata{}))
	require.NoError(t, r.Register("fail", func(context.Context, json.RawMessage) (json.RawMessage, error) {
		return nil, errors.New("backend down")
	}, ToolMetadata{}))

	e := NewExecutor(r, nil)
	results := e.Execute(context.Background(), []llm.ToolCall{
		{ID: "1", Name: "echo", Arguments: json.RawMessage(`{"q":"x"}`)},
		{ID: "2", Name: "fail", Arguments: json.RawMessage(`{}`)},
		{ID: "3", Name: "missing"},
		{ID: "4", Name: "echo", Arguments: json.RawMessage(`{not json`)},
	})

	require.Len(t, results, 4)
	assert.Equal(t, "1", results[0].ToolCallID)
	assert.JSONEq(t, `{"q":"x"}`, string(results[0].Result))
	assert.Empty(t, results[0].Error)
	assert.Equal(t, "backend down", results[1].Error)
	assert.Contains(t, results[2].Error, "not found")
	assert.Contains(t, results[3].Error, "invalid arguments")

	msg := results[1].ToMessage()
	assert.Equal(t, llm.RoleTool, msg.Role)
	assert.Equal(t, "2", msg.ToolCallID)
	assert.JSONEq(t, `{"error":"backend down"}`, msg.Content)
}

func TestExecutor_Timeout(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Register("slow", func(ctx context.Context, _ json.RawMessage) (json.RawMessage, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}, ToolMetadata{Timeout: 20 * time.Millisecond}))

	res := NewExecutor(r, nil).ExecuteOne(context.Background(), llm.ToolCall{ID: "1", Name: "slow"})
	assert.NotEmpty(t, res.Error)
}

func TestExecutor_RateLimit(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Register("limited", echoTool, ToolMetadata{
		RateLimit: &RateLimitConfig{MaxCalls: 2, Window: time.Hour},
	}))
	e := NewExecutor(r, nil)

	call := llm.ToolCall{ID: "x", Name: "limited", Arguments: json.RawMessage(`{}`)}
	assert.Empty(t, e.ExecuteOne(context.Background(), call).Error)
	assert.Empty(t, e.ExecuteOne(context.Background(), call).Error)
	assert.Equal(t, "rate limit exceeded", e.ExecuteOne(context.Background(), call).Error)
}
