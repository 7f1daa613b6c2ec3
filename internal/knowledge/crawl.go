package knowledge

// crawl.go implements bounded web ingestion.
//
// The crawler walks links on a single host starting from a seed URL,
// extracts the readable text of each page, and indexes it the same way the
// file indexer does. Depth and page count are capped so a crawl of a
// documentation site cannot run away.

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/go-shiori/go-readability"
	"github.com/gocolly/colly/v2"
)

// Crawl bounds.
const (
	DefaultMaxPages = 50
	DefaultMaxDepth = 3
	MaxCrawlPages   = 500

	crawlUserAgent = "resolvo-ingest/1.0"
)

// CrawlResult summarizes a crawl run.
type CrawlResult struct {
	PagesVisited  int
	PagesIndexed  int
	PagesFailed   int
	ChunksIndexed int
	Duration      time.Duration
}

// Crawler ingests web pages into the vector store.
type Crawler struct {
	docStore DocIndexer
	db       Execer
	splitter *Splitter
	logger   *slog.Logger
}

// NewCrawler creates a Crawler.
func NewCrawler(docStore DocIndexer, db Execer, splitter *Splitter, logger *slog.Logger) (*Crawler, error) {
	if docStore == nil {
		return nil, errors.New("doc store is required")
	}
	if db == nil {
		return nil, errors.New("db is required")
	}
	if splitter == nil {
		return nil, errors.New("splitter is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Crawler{docStore: docStore, db: db, splitter: splitter, logger: logger}, nil
}

// Crawl walks pages on the seed URL's host, indexing the readable text of
// each. maxPages and maxDepth fall back to package defaults when <= 0.
// Per-page failures are counted, not fatal.
func (c *Crawler) Crawl(ctx context.Context, seedURL string, maxPages, maxDepth int) (*CrawlResult, error) {
	start := time.Now()

	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	if maxPages > MaxCrawlPages {
		maxPages = MaxCrawlPages
	}
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}

	seed, err := url.Parse(seedURL)
	if err != nil {
		return nil, fmt.Errorf("parsing seed url: %w", err)
	}
	if seed.Scheme != "http" && seed.Scheme != "https" {
		return nil, fmt.Errorf("seed url must be http or https, got %q", seed.Scheme)
	}
	host := seed.Hostname()

	collector := colly.NewCollector(
		colly.AllowedDomains(host),
		colly.MaxDepth(maxDepth),
		colly.UserAgent(crawlUserAgent),
	)

	result := &CrawlResult{}
	var mu sync.Mutex

	collector.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if result.PagesVisited >= maxPages {
			r.Abort()
			return
		}
		result.PagesVisited++
	})

	collector.OnHTML("a[href]", func(e *colly.HTMLElement) {
		_ = e.Request.Visit(e.Attr("href"))
	})

	collector.OnResponse(func(r *colly.Response) {
		chunks, err := c.indexPage(ctx, r.Request.URL, r.Body)
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			c.logger.Warn("indexing page failed", "url", r.Request.URL, "error", err)
			result.PagesFailed++
			return
		}
		if chunks > 0 {
			result.PagesIndexed++
			result.ChunksIndexed += chunks
		}
	})

	collector.OnError(func(r *colly.Response, err error) {
		mu.Lock()
		defer mu.Unlock()
		c.logger.Warn("fetching page failed", "url", r.Request.URL, "error", err)
		result.PagesFailed++
	})

	if err := collector.Visit(seedURL); err != nil {
		return nil, fmt.Errorf("starting crawl at %s: %w", seedURL, err)
	}
	collector.Wait()

	result.Duration = time.Since(start)
	c.logger.Info("crawl complete",
		"host", host,
		"visited", result.PagesVisited,
		"indexed", result.PagesIndexed,
		"failed", result.PagesFailed,
		"chunks", result.ChunksIndexed,
		"duration", result.Duration)
	return result, nil
}

// indexPage extracts the readable text of a page and stores its chunks.
// Returns 0 chunks for pages with no extractable text.
func (c *Crawler) indexPage(ctx context.Context, pageURL *url.URL, body []byte) (int, error) {
	article, err := readability.FromReader(bytes.NewReader(body), pageURL)
	if err != nil {
		return 0, fmt.Errorf("extracting readable text: %w", err)
	}

	pieces := c.splitter.Split(article.TextContent)
	if len(pieces) == 0 {
		return 0, nil
	}

	docID := generateDocID("web", pageURL.String())
	docs := make([]*ai.Document, len(pieces))
	now := time.Now().Format(time.RFC3339)
	for i, piece := range pieces {
		docs[i] = ai.DocumentFromText(piece, map[string]any{
			"id":           docID + ":" + strconv.Itoa(i),
			"source_type":  SourceTypeWeb,
			"url":          pageURL.String(),
			"title":        article.Title,
			"chunk":        i,
			"total_chunks": len(pieces),
			"indexed_at":   now,
		})
	}

	if err := deleteChunks(ctx, c.db, docID); err != nil {
		return 0, err
	}
	if err := c.docStore.Index(ctx, docs); err != nil {
		return 0, fmt.Errorf("indexing chunks: %w", err)
	}
	return len(docs), nil
}
