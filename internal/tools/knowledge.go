package tools

// knowledge.go defines the search_knowledge tool for semantic retrieval
// over ingested documents and crawled pages.

import (
	"fmt"
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/plugins/postgresql"
)

// SearchKnowledgeName is the Genkit tool name for knowledge base search.
const SearchKnowledgeName = "search_knowledge"

// TopK bounds for knowledge searches.
const (
	DefaultKnowledgeTopK = 5
	MaxTopK              = 10
)

// knowledgeFilter restricts retrieval to ingested knowledge chunks.
// Values are fixed strings, never user input.
const knowledgeFilter = "source_type IN ('file', 'web')"

// KnowledgeSearchInput defines input for the search_knowledge tool.
type KnowledgeSearchInput struct {
	Query string `json:"query" jsonschema_description:"The search query string"`
	TopK  int    `json:"topK,omitempty" jsonschema_description:"Maximum results to return (1-10)"`
}

// Knowledge holds dependencies for the search_knowledge handler.
type Knowledge struct {
	retriever ai.Retriever
	logger    *slog.Logger
}

// NewKnowledge creates a Knowledge handler.
func NewKnowledge(retriever ai.Retriever, logger *slog.Logger) (*Knowledge, error) {
	if retriever == nil {
		return nil, fmt.Errorf("retriever is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &Knowledge{retriever: retriever, logger: logger}, nil
}

// clampTopK validates topK and returns a value within [1, MaxTopK].
// If topK <= 0, returns defaultVal.
func clampTopK(topK, defaultVal int) int {
	if topK <= 0 {
		return defaultVal
	}
	if topK > MaxTopK {
		return MaxTopK
	}
	return topK
}

// Search retrieves knowledge base chunks semantically similar to the query.
func (k *Knowledge) Search(ctx *ai.ToolContext, input KnowledgeSearchInput) (Result, error) {
	k.logger.Info("search_knowledge called", "query", input.Query, "topK", input.TopK)

	if input.Query == "" {
		return errorResult(ErrCodeValidation, "query is required"), nil
	}

	topK := clampTopK(input.TopK, DefaultKnowledgeTopK)

	resp, err := k.retriever.Retrieve(ctx, &ai.RetrieverRequest{
		Query: ai.DocumentFromText(input.Query, nil),
		Options: &postgresql.RetrieverOptions{
			Filter: knowledgeFilter,
			K:      topK,
		},
	})
	if err != nil {
		k.logger.Warn("search_knowledge failed", "query", input.Query, "error", err)
		return errorResult(ErrCodeExecution, fmt.Sprintf("searching knowledge base: %v", err)), nil
	}

	if len(resp.Documents) == 0 {
		return Result{
			Status:  StatusSuccess,
			Message: "No matching documents in the knowledge base. Try another source.",
			Data:    map[string]any{"found": false},
		}, nil
	}

	passages := make([]map[string]any, len(resp.Documents))
	for i, doc := range resp.Documents {
		var text string
		if len(doc.Content) > 0 {
			text = doc.Content[0].Text
		}
		passages[i] = map[string]any{
			"content":  text,
			"metadata": doc.Metadata,
		}
	}

	k.logger.Info("search_knowledge succeeded", "query", input.Query, "result_count", len(passages))
	return Result{
		Status: StatusSuccess,
		Data: map[string]any{
			"found":        true,
			"result_count": len(passages),
			"results":      passages,
		},
	}, nil
}
