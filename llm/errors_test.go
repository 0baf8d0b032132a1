package llm

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapHTTPError(t *testing.T) {
	tests := []struct {
		status    int
		msg       string
		code      ErrorCode
		retryable bool
	}{
		{http.StatusUnauthorized, "bad key", ErrUnauthorized, false},
		{http.StatusForbidden, "denied", ErrForbidden, false},
		{http.StatusTooManyRequests, "slow down", ErrRateLimited, true},
		{http.StatusBadRequest, "You exceeded your current quota", ErrQuotaExceeded, false},
		{http.StatusBadRequest, "bad json", ErrInvalidRequest, false},
		{http.StatusGatewayTimeout, "timeout", ErrUpstreamTimeout, true},
		{529, "overloaded", ErrModelOverloaded, true},
		{http.StatusInternalServerError, "boom", ErrUpstreamError, true},
		{http.StatusNotFound, "no model", ErrUpstreamError, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d_%s", tt.status, tt.code), func(t *testing.T) {
			err := MapHTTPError(tt.status, tt.msg, "openai")
			assert.Equal(t, tt.code, err.Code)
			assert.Equal(t, tt.retryable, err.Retryable)
			assert.Equal(t, tt.status, err.HTTPStatus)
			assert.Contains(t, err.Error(), tt.msg)
			assert.Equal(t, tt.retryable, IsRetryable(fmt.Errorf("wrapped: %w", err)))
		})
	}
}

func TestChatResponse_Text(t *testing.T) {
	var nilResp *ChatResponse
	assert.Empty(t, nilResp.Text())
	assert.Empty(t, (&ChatResponse{}).Text())

	resp := &ChatResponse{Choices: []ChatChoice{{Message: Message{Role: RoleAssistant, Content: "  hello \n"}}}}
	assert.Equal(t, "hello", resp.Text())
}

func TestChatUsage_Add(t *testing.T) {
	u := ChatUsage{PromptTokens: 1, CompletionTokens: 2, TotalTokens: 3}
	u.Add(ChatUsage{PromptTokens: 10, CompletionTokens: 20, TotalTokens: 30})
	assert.Equal(t, ChatUsage{PromptTokens: 11, CompletionTokens: 22, TotalTokens: 33}, u)
}
