package tools

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/net/publicsuffix"

	"github.com/BaSui01/tripcrew/internal/tlsutil"
)

// DefaultDuckDuckGoEndpoint 是无需 API key 的 HTML 版本。
const DefaultDuckDuckGoEndpoint = "https://html.duckduckgo.com/html/"

// DuckDuckGoProvider 抓取 DuckDuckGo HTML 结果页并用 goquery 解析。
type DuckDuckGoProvider struct {
	endpoint  string
	client    *http.Client
	userAgent string
	logger    *zap.Logger
}

// NewDuckDuckGoProvider 创建 provider，endpoint 为空时使用默认地址。
func NewDuckDuckGoProvider(endpoint string, timeout time.Duration, logger *zap.Logger) (*DuckDuckGoProvider, error) {
	if endpoint == "" {
		endpoint = DefaultDuckDuckGoEndpoint
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	return &DuckDuckGoProvider{
		endpoint:  endpoint,
		client:    tlsutil.SecureHTTPClient(timeout, tlsutil.WithCookieJar(jar)),
		userAgent: "Mozilla/5.0 (compatible; tripcrew/1.0)",
		logger:    logger.With(zap.String("component", "duckduckgo")),
	}, nil
}

func (p *DuckDuckGoProvider) Name() string { return "duckduckgo" }

func (p *DuckDuckGoProvider) Search(ctx context.Context, query string, opts WebSearchOptions) ([]WebSearchResult, error) {
	form := url.Values{"q": {query}}
	if opts.Region != "" {
		form.Set("kl", opts.Region)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse search results: %w", err)
	}
	results := parseResults(doc, opts.MaxResults)
	p.logger.Debug("search parsed", zap.String("query", query), zap.Int("results", len(results)))
	return results, nil
}

func parseResults(doc *goquery.Document, limit int) []WebSearchResult {
	var results []WebSearchResult
	doc.Find(".result").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if s.HasClass("result--ad") {
			return true
		}
		link := s.Find("a.result__a").First()
		title := strings.TrimSpace(link.Text())
		href, _ := link.Attr("href")
		if title == "" || href == "" {
			return true
		}
		results = append(results, WebSearchResult{
			Title:   title,
			URL:     resolveRedirect(href),
			Snippet: strings.Join(strings.Fields(s.Find(".result__snippet").Text()), " "),
		})
		return limit <= 0 || len(results) < limit
	})
	return results
}

// resolveRedirect 解开 DuckDuckGo 的 /l/?uddg= 跳转链接。
func resolveRedirect(href string) string {
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}
