package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"
)

// Result is one search hit, normalized across sources.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
	Source  string `json:"source"`
}

// Cache is the narrow persistence seam for the TTL-based result cache
// internal/store implements (backing WebSearchCache rows). Get reports a
// miss once the cached row is older than maxAge, matching the original's
// per-call TTL check rather than a fixed expiry baked into the row.
type Cache interface {
	Get(ctx context.Context, key string, maxAge time.Duration) ([]Result, bool, error)
	Put(ctx context.Context, key, query, provider string, results []Result) error
}

// Client fetches and caches web search results across DuckDuckGo, Wikipedia,
// and PubMed, each guarded by its own rate limit and circuit breaker so a
// single degraded source never blocks the others.
// Grounded on original_source/backend/tools/web_tools.py: same three
// sources, same per-source circuit breaker, same query-key cache; the
// golang.org/x/time/rate usage pattern here adapts an adaptive-rate-limiter
// idiom to a fixed per-source budget instead of an adaptive token-per-minute
// one.
type Client struct {
	http     *http.Client
	breaker  *CircuitBreaker
	limiters map[string]*rate.Limiter
	cache    Cache
	cacheTTL time.Duration
}

// NewClient builds a websearch Client. cacheTTL controls how long cached
// results are served before a fresh fetch is attempted.
func NewClient(cache Cache, cacheTTL time.Duration) *Client {
	if cacheTTL <= 0 {
		cacheTTL = 24 * time.Hour
	}
	return &Client{
		http: &http.Client{
			Timeout:   10 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		breaker: NewCircuitBreaker(3, 5*time.Minute, "duckduckgo", "wikipedia", "pubmed"),
		limiters: map[string]*rate.Limiter{
			"duckduckgo": rate.NewLimiter(rate.Every(2*time.Second), 3),
			"wikipedia":  rate.NewLimiter(rate.Every(time.Second), 5),
			"pubmed":     rate.NewLimiter(rate.Every(3*time.Second), 2),
		},
		cache:    cache,
		cacheTTL: cacheTTL,
	}
}

// QueryKey derives the cache key for a (query, maxResults) pair: the
// lowercased, trimmed query joined to maxResults with "::". It is not hashed.
func QueryKey(query string, maxResults int) string {
	return fmt.Sprintf("%s::%d", strings.ToLower(strings.TrimSpace(query)), maxResults)
}

// Search runs query against source (one of "duckduckgo", "wikipedia",
// "pubmed"), preferring a fresh cache entry over a live fetch.
func (c *Client) Search(ctx context.Context, source, query string, maxResults int) ([]Result, error) {
	if maxResults <= 0 {
		maxResults = 5
	}
	key := QueryKey(query, maxResults) + "::" + source

	if cached, ok, err := c.cache.Get(ctx, key, c.cacheTTL); err == nil && ok {
		return cached, nil
	}

	limiter, ok := c.limiters[source]
	if !ok {
		return nil, fmt.Errorf("websearch: unknown source %q", source)
	}
	if err := limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var results []Result
	err := c.breaker.Run(source, func() error {
		var fetchErr error
		switch source {
		case "duckduckgo":
			results, fetchErr = c.fetchDuckDuckGo(ctx, query, maxResults)
		case "wikipedia":
			results, fetchErr = c.fetchWikipedia(ctx, query, maxResults)
		case "pubmed":
			results, fetchErr = c.fetchPubMed(ctx, query, maxResults)
		default:
			fetchErr = fmt.Errorf("websearch: unknown source %q", source)
		}
		return fetchErr
	})
	if err != nil {
		return nil, err
	}

	_ = c.cache.Put(ctx, key, query, source, results)
	return results, nil
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "LongevityCoach/1.0")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("websearch: %s returned status %d", rawURL, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (c *Client) fetchDuckDuckGo(ctx context.Context, query string, maxResults int) ([]Result, error) {
	q := url.Values{"q": {query}, "format": {"json"}, "no_html": {"1"}, "skip_disambig": {"1"}}
	body, err := c.get(ctx, "https://api.duckduckgo.com/?"+q.Encode())
	if err != nil {
		return nil, err
	}
	var data struct {
		AbstractText  string `json:"AbstractText"`
		AbstractURL   string `json:"AbstractURL"`
		Heading       string `json:"Heading"`
		RelatedTopics []struct {
			Text     string `json:"Text"`
			FirstURL string `json:"FirstURL"`
			Topics   []struct {
				Text     string `json:"Text"`
				FirstURL string `json:"FirstURL"`
			} `json:"Topics"`
		} `json:"RelatedTopics"`
	}
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, err
	}

	var results []Result
	if data.AbstractText != "" && data.AbstractURL != "" {
		title := data.Heading
		if title == "" {
			title = "DuckDuckGo Instant Answer"
		}
		results = append(results, Result{Title: title, URL: data.AbstractURL, Snippet: data.AbstractText, Source: "duckduckgo"})
	}
	for _, topic := range data.RelatedTopics {
		if len(results) >= maxResults {
			break
		}
		if len(topic.Topics) > 0 {
			for _, child := range topic.Topics {
				if len(results) >= maxResults {
					break
				}
				appendDDGEntry(&results, child.Text, child.FirstURL)
			}
			continue
		}
		appendDDGEntry(&results, topic.Text, topic.FirstURL)
	}
	return truncate(results, maxResults), nil
}

func appendDDGEntry(results *[]Result, text, urlItem string) {
	text = strings.TrimSpace(text)
	urlItem = strings.TrimSpace(urlItem)
	if text == "" || urlItem == "" {
		return
	}
	title := text
	if idx := strings.Index(title, " - "); idx >= 0 {
		title = title[:idx]
	}
	title = truncateStr(title, 120)
	*results = append(*results, Result{Title: title, URL: urlItem, Snippet: truncateStr(text, 320), Source: "duckduckgo"})
}

func (c *Client) fetchWikipedia(ctx context.Context, query string, maxResults int) ([]Result, error) {
	rawURL := fmt.Sprintf(
		"https://en.wikipedia.org/w/api.php?action=opensearch&search=%s&limit=%d&namespace=0&format=json",
		url.QueryEscape(query), maxResults,
	)
	body, err := c.get(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	var data []any
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, err
	}
	if len(data) < 4 {
		return nil, nil
	}
	titles, _ := data[1].([]any)
	descs, _ := data[2].([]any)
	urls, _ := data[3].([]any)

	var out []Result
	for i, t := range titles {
		if len(out) >= maxResults {
			break
		}
		title := fmt.Sprintf("%v", t)
		var u, d string
		if i < len(urls) {
			u = fmt.Sprintf("%v", urls[i])
		}
		if i < len(descs) {
			d = fmt.Sprintf("%v", descs[i])
		}
		if title == "" || u == "" {
			continue
		}
		out = append(out, Result{Title: title, URL: u, Snippet: truncateStr(d, 320), Source: "wikipedia"})
	}
	return out, nil
}

func (c *Client) fetchPubMed(ctx context.Context, query string, maxResults int) ([]Result, error) {
	searchURL := fmt.Sprintf(
		"https://eutils.ncbi.nlm.nih.gov/entrez/eutils/esearch.fcgi?db=pubmed&retmode=json&retmax=%d&sort=relevance&term=%s",
		maxResults, url.QueryEscape(query),
	)
	searchBody, err := c.get(ctx, searchURL)
	if err != nil {
		return nil, err
	}
	var searchData struct {
		ESearchResult struct {
			IDList []string `json:"idlist"`
		} `json:"esearchresult"`
	}
	if err := json.Unmarshal(searchBody, &searchData); err != nil {
		return nil, err
	}
	ids := searchData.ESearchResult.IDList
	if len(ids) == 0 {
		return nil, nil
	}

	summaryURL := fmt.Sprintf(
		"https://eutils.ncbi.nlm.nih.gov/entrez/eutils/esummary.fcgi?db=pubmed&retmode=json&id=%s",
		strings.Join(ids, ","),
	)
	summaryBody, err := c.get(ctx, summaryURL)
	if err != nil {
		return nil, err
	}
	var summaryData struct {
		Result map[string]json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(summaryBody, &summaryData); err != nil {
		return nil, err
	}

	var out []Result
	for _, id := range ids {
		if len(out) >= maxResults {
			break
		}
		raw, ok := summaryData.Result[id]
		if !ok {
			continue
		}
		var doc struct {
			Title string `json:"title"`
		}
		if err := json.Unmarshal(raw, &doc); err != nil || doc.Title == "" {
			continue
		}
		out = append(out, Result{
			Title:   doc.Title,
			URL:     "https://pubmed.ncbi.nlm.nih.gov/" + id + "/",
			Snippet: doc.Title,
			Source:  "pubmed",
		})
	}
	return out, nil
}

func truncate(rs []Result, n int) []Result {
	if len(rs) > n {
		return rs[:n]
	}
	return rs
}

func truncateStr(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
