package retry

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/tripcrew/llm"
)

type flakyProvider struct {
	failures int
	err      error
	calls    int
}

func (f *flakyProvider) Completion(context.Context, *llm.ChatRequest) (*llm.ChatResponse, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, f.err
	}
	return &llm.ChatResponse{Choices: []llm.ChatChoice{{Message: llm.Message{Role: llm.RoleAssistant, Content: "done"}}}}, nil
}

func (f *flakyProvider) Stream(context.Context, *llm.ChatRequest) (<-chan llm.StreamChunk, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, f.err
	}
	ch := make(chan llm.StreamChunk)
	close(ch)
	return ch, nil
}

func (f *flakyProvider) HealthCheck(context.Context) (*llm.HealthStatus, error) {
	return &llm.HealthStatus{Healthy: true}, nil
}
func (f *flakyProvider) Name() string                        { return "flaky" }
func (f *flakyProvider) SupportsNativeFunctionCalling() bool { return true }

func TestWrapProvider_RetriesTransientErrors(t *testing.T) {
	inner := &flakyProvider{failures: 2, err: llm.MapHTTPError(http.StatusServiceUnavailable, "down", "flaky")}
	p := WrapProvider(inner, fastPolicy(3), nil)

	resp, err := p.Completion(context.Background(), &llm.ChatRequest{})
	require.NoError(t, err)
	assert.Equal(t, "done", resp.Text())
	assert.Equal(t, 3, inner.calls)
	assert.Equal(t, "flaky", p.Name())
	assert.True(t, p.SupportsNativeFunctionCalling())
}

func TestWrapProvider_DoesNotRetryAuthErrors(t *testing.T) {
	inner := &flakyProvider{failures: 5, err: llm.MapHTTPError(http.StatusUnauthorized, "bad key", "flaky")}
	p := WrapProvider(inner, fastPolicy(3), nil)

	_, err := p.Stream(context.Background(), &llm.ChatRequest{})
	require.Error(t, err)
	assert.Equal(t, 1, inner.calls)
}
