package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/tripcrew/llm"
)

const (
	// SearchToolName 是注册到模型的函数名。
	SearchToolName = "duckduckgo_search"
	// SearchToolDisplayName 是面向用户的名称。
	SearchToolDisplayName = "DuckDuckGo Search Tool"
	// SearchToolDescription 是传给模型的工具说明。
	SearchToolDescription = "Search the web using DuckDuckGo (free)."
)

// WebSearchProvider defines the interface for web search backends.
type WebSearchProvider interface {
	Search(ctx context.Context, query string, opts WebSearchOptions) ([]WebSearchResult, error)
	Name() string
}

// WebSearchOptions configures a web search request.
type WebSearchOptions struct {
	MaxResults int    `json:"max_results"`
	Region     string `json:"region,omitempty"` // 如 "us-en"
}

// WebSearchResult represents a single search result.
type WebSearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// WebSearchToolConfig configures the web search tool.
type WebSearchToolConfig struct {
	Provider    WebSearchProvider
	DefaultOpts WebSearchOptions
	Timeout     time.Duration
	RateLimit   *RateLimitConfig
}

// DefaultWebSearchToolConfig returns the defaults used by the researcher agent.
func DefaultWebSearchToolConfig(provider WebSearchProvider) WebSearchToolConfig {
	return WebSearchToolConfig{
		Provider:    provider,
		DefaultOpts: WebSearchOptions{MaxResults: 5},
		Timeout:     15 * time.Second,
		RateLimit:   &RateLimitConfig{MaxCalls: 30, Window: time.Minute},
	}
}

type webSearchArgs struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results,omitempty"`
}

type webSearchResponse struct {
	Query   string            `json:"query"`
	Results []WebSearchResult `json:"results"`
}

var webSearchSchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "query": {"type": "string", "description": "The search query"},
    "max_results": {"type": "integer", "description": "Maximum number of results to return"}
  },
  "required": ["query"]
}`)

// NewWebSearchTool creates the search ToolFunc and its metadata.
func NewWebSearchTool(config WebSearchToolConfig, logger *zap.Logger) (ToolFunc, ToolMetadata) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "web_search"))

	fn := func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
		var params webSearchArgs
		if err := json.Unmarshal(args, &params); err != nil {
			return nil, fmt.Errorf("invalid %s arguments: %w", SearchToolName, err)
		}
		params.Query = strings.TrimSpace(params.Query)
		if params.Query == "" {
			return nil, fmt.Errorf("query is required")
		}
		if config.Provider == nil {
			return nil, fmt.Errorf("web search provider not configured")
		}

		opts := config.DefaultOpts
		if params.MaxResults > 0 {
			opts.MaxResults = params.MaxResults
		}

		start := time.Now()
		results, err := config.Provider.Search(ctx, params.Query, opts)
		if err != nil {
			logger.Warn("web search failed", zap.String("query", params.Query), zap.Error(err))
			return nil, fmt.Errorf("web search failed: %w", err)
		}
		logger.Info("web search",
			zap.String("query", params.Query),
			zap.Int("results", len(results)),
			zap.Duration("duration", time.Since(start)))

		return json.Marshal(webSearchResponse{Query: params.Query, Results: results})
	}

	meta := ToolMetadata{
		Schema: llm.ToolSchema{
			Name:        SearchToolName,
			Description: SearchToolDescription,
			Parameters:  webSearchSchema,
		},
		DisplayName: SearchToolDisplayName,
		Timeout:     config.Timeout,
		RateLimit:   config.RateLimit,
	}
	return fn, meta
}

// FormatResults 把搜索结果渲染为可直接放入提示词的文本。
func FormatResults(results []WebSearchResult) string {
	if len(results) == 0 {
		return "No results found."
	}
	var sb strings.Builder
	for i, r := range results {
		fmt.Fprintf(&sb, "%d. %s\n   %s\n", i+1, r.Title, r.URL)
		if r.Snippet != "" {
			fmt.Fprintf(&sb, "   %s\n", r.Snippet)
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}
