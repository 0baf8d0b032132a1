package mocks

import (
	"context"
	"sync"

	"github.com/BaSui01/tripcrew/llm/tools"
)

// MockSearch 是固定结果的 tools.WebSearchProvider。
type MockSearch struct {
	mu      sync.Mutex
	Results []tools.WebSearchResult
	Err     error
	Queries []string
}

func (m *MockSearch) Search(_ context.Context, query string, _ tools.WebSearchOptions) ([]tools.WebSearchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Queries = append(m.Queries, query)
	return m.Results, m.Err
}

func (m *MockSearch) Name() string { return "mock_search" }
