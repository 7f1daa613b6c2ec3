// Package websearch queries a SearXNG metasearch instance and fetches the
// readable text of result pages. It is the agent's fallback when neither the
// structured database nor the knowledge base can answer a question.
package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
)

// Defaults applied by New when Config fields are zero.
const (
	DefaultMaxResults   = 5
	DefaultMaxPageBytes = 5 * 1024 * 1024 // 5MB
	DefaultTimeout      = 15 * time.Second

	searchUserAgent = "resolvo/1.0"
)

// ErrNoResults is returned when the search engine finds nothing.
var ErrNoResults = errors.New("websearch: no results")

// Result is one search engine hit.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"content"`
}

// Page is the extracted readable content of a fetched page.
type Page struct {
	URL   string
	Title string
	Text  string
}

// Config holds Client settings.
type Config struct {
	// BaseURL is the SearXNG instance, e.g. "http://localhost:8888".
	BaseURL string
	// MaxResults caps how many hits Search returns.
	MaxResults int
	// MaxPageBytes caps how much of a page FetchPage reads.
	MaxPageBytes int64
	// Timeout bounds each outbound request.
	Timeout time.Duration
}

// Client talks to a SearXNG instance and fetches result pages.
//
// Client is safe for concurrent use by multiple goroutines.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	validator    *Validator
	maxResults   int
	maxPageBytes int64
	logger       *slog.Logger
}

// New creates a Client. Zero Config fields fall back to package defaults.
func New(cfg Config, logger *slog.Logger) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid search engine URL: %q", cfg.BaseURL)
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = DefaultMaxResults
	}
	if cfg.MaxPageBytes <= 0 {
		cfg.MaxPageBytes = DefaultMaxPageBytes
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	validator := NewValidator()
	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		httpClient:   validator.NewSafeClient(cfg.Timeout),
		validator:    validator,
		maxResults:   cfg.MaxResults,
		maxPageBytes: cfg.MaxPageBytes,
		logger:       logger,
	}, nil
}

// Search queries the engine and returns up to MaxResults hits.
// Returns ErrNoResults when the engine responds with an empty result list.
func (c *Client) Search(ctx context.Context, query string) ([]Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("query must not be empty")
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("building search request: %w", err)
	}
	req.Header.Set("User-Agent", searchUserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("searching %q: %w", query, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search engine returned status %d", resp.StatusCode)
	}

	var body struct {
		Results []Result `json:"results"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, c.maxPageBytes)).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding search response: %w", err)
	}

	if len(body.Results) == 0 {
		return nil, ErrNoResults
	}
	if len(body.Results) > c.maxResults {
		body.Results = body.Results[:c.maxResults]
	}

	c.logger.Debug("search complete", "query", query, "results", len(body.Results))
	return body.Results, nil
}

// FetchPage downloads a result page and extracts its readable text.
// The target URL is validated against internal addresses before fetching.
func (c *Client) FetchPage(ctx context.Context, pageURL string) (*Page, error) {
	if err := c.validator.ValidateURL(pageURL); err != nil {
		return nil, fmt.Errorf("unsafe page URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building page request: %w", err)
	}
	req.Header.Set("User-Agent", searchUserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", pageURL, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("page returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("reading page: %w", err)
	}
	if int64(len(body)) == c.maxPageBytes {
		extra := make([]byte, 1)
		if n, _ := resp.Body.Read(extra); n > 0 {
			return nil, fmt.Errorf("page exceeds size limit (%d bytes)", c.maxPageBytes)
		}
	}

	parsed := resp.Request.URL
	page := &Page{URL: parsed.String()}

	article, err := readability.FromReader(bytes.NewReader(body), parsed)
	if err == nil && strings.TrimSpace(article.TextContent) != "" {
		page.Title = article.Title
		page.Text = strings.TrimSpace(article.TextContent)
		return page, nil
	}

	// Readability gives up on sparse pages; fall back to stripped body text.
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing page: %w", err)
	}
	doc.Find("script, style, noscript").Remove()
	page.Title = strings.TrimSpace(doc.Find("title").First().Text())
	page.Text = strings.Join(strings.Fields(doc.Text()), " ")
	if page.Text == "" {
		return nil, fmt.Errorf("no readable text at %s", pageURL)
	}
	return page, nil
}
