package tools

// web.go defines the web_search tool.
//
// Web search is the agent's last resort before escalating. Results come
// back as title/url/snippet triples; the model can ask for the readable
// text of the top hit when snippets are not enough.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/firebase/genkit/go/ai"

	"github.com/resolvo/resolvo/internal/websearch"
)

// WebSearchName is the Genkit tool name for internet search.
const WebSearchName = "web_search"

// maxPageTextRunes caps how much fetched page text is handed to the model.
const maxPageTextRunes = 4000

// WebSearchInput defines input for the web_search tool.
type WebSearchInput struct {
	Query     string `json:"query" jsonschema_description:"The search query string"`
	FetchPage bool   `json:"fetchPage,omitempty" jsonschema_description:"Also fetch the readable text of the top result"`
}

// Searcher queries the web and fetches result pages.
// Satisfied by *websearch.Client.
type Searcher interface {
	Search(ctx context.Context, query string) ([]websearch.Result, error)
	FetchPage(ctx context.Context, pageURL string) (*websearch.Page, error)
}

// Web holds dependencies for the web_search handler.
type Web struct {
	client Searcher
	logger *slog.Logger
}

// NewWeb creates a Web handler.
func NewWeb(client Searcher, logger *slog.Logger) (*Web, error) {
	if client == nil {
		return nil, fmt.Errorf("search client is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &Web{client: client, logger: logger}, nil
}

// Search queries the search engine and optionally fetches the top result.
func (w *Web) Search(ctx *ai.ToolContext, input WebSearchInput) (Result, error) {
	w.logger.Info("web_search called", "query", input.Query, "fetchPage", input.FetchPage)

	if input.Query == "" {
		return errorResult(ErrCodeValidation, "query is required"), nil
	}

	results, err := w.client.Search(ctx, input.Query)
	if errors.Is(err, websearch.ErrNoResults) {
		return Result{
			Status:  StatusSuccess,
			Message: "The web search found nothing. Consider creating a support ticket.",
			Data:    map[string]any{"found": false},
		}, nil
	}
	if err != nil {
		w.logger.Warn("web_search failed", "query", input.Query, "error", err)
		return errorResult(ErrCodeNetwork, fmt.Sprintf("searching the web: %v", err)), nil
	}

	hits := make([]map[string]any, len(results))
	for i, r := range results {
		hits[i] = map[string]any{
			"title":   r.Title,
			"url":     r.URL,
			"snippet": r.Snippet,
		}
	}

	data := map[string]any{
		"found":        true,
		"result_count": len(hits),
		"results":      hits,
	}

	if input.FetchPage {
		page, err := w.client.FetchPage(ctx, results[0].URL)
		if err != nil {
			// Snippets are still useful; report the fetch failure inline.
			w.logger.Warn("fetching top result failed", "url", results[0].URL, "error", err)
			data["page_error"] = err.Error()
		} else {
			data["page"] = map[string]any{
				"url":   page.URL,
				"title": page.Title,
				"text":  truncateRunes(page.Text, maxPageTextRunes),
			}
		}
	}

	w.logger.Info("web_search succeeded", "query", input.Query, "result_count", len(hits))
	return Result{Status: StatusSuccess, Data: data}, nil
}

// truncateRunes cuts s to at most n runes.
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
