package tools

import (
	"fmt"
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// toolNames contains all registered tool names.
// Single source of truth to avoid duplication across packages.
var toolNames = []string{
	SearchDirectoryName,
	SearchKnowledgeName,
	WebSearchName,
	CreateTicketName,
	TicketStatusName,
}

// ToolNames returns all registered tool names.
func ToolNames() []string {
	return toolNames
}

// Deps holds everything the tool handlers need.
// Web is optional: when nil, web_search is not registered.
type Deps struct {
	Directory DirectoryAnswerer
	Retriever ai.Retriever
	Web       Searcher
	Tickets   TicketStore
	Logger    *slog.Logger
}

// Register registers all support tools with Genkit and returns them for
// the agent's ai.WithTools option.
//
// Handlers capture their dependencies via closures; the Genkit tool
// definitions stay thin adapters around testable handler methods.
func Register(g *genkit.Genkit, deps Deps) ([]ai.Tool, error) {
	if g == nil {
		return nil, fmt.Errorf("genkit instance is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	dir, err := NewDirectory(deps.Directory, deps.Logger)
	if err != nil {
		return nil, fmt.Errorf("directory handler: %w", err)
	}
	kn, err := NewKnowledge(deps.Retriever, deps.Logger)
	if err != nil {
		return nil, fmt.Errorf("knowledge handler: %w", err)
	}
	tk, err := NewTickets(deps.Tickets, deps.Logger)
	if err != nil {
		return nil, fmt.Errorf("tickets handler: %w", err)
	}

	registered := []ai.Tool{
		genkit.DefineTool(g, SearchDirectoryName,
			"Search the company's structured support database: team members, "+
				"FAQ entries, business hours, pricing, and policies. "+
				"Returns: found flag plus the matched answer and its source. "+
				"Use this FIRST for questions about the company itself.",
			dir.Search),
		genkit.DefineTool(g, SearchKnowledgeName,
			"Search the product knowledge base (ingested documentation and help "+
				"articles) using semantic similarity. "+
				"Returns: matched passages with metadata. "+
				"Use this for product and how-to questions. "+
				"Default topK: 5. Maximum topK: 10.",
			kn.Search),
		genkit.DefineTool(g, CreateTicketName,
			"Create a support ticket for a human agent when no other source "+
				"can answer the question. "+
				"Returns: the new ticket ID to quote back to the customer.",
			tk.Create),
		genkit.DefineTool(g, TicketStatusName,
			"Check the status of an existing support ticket by its ID "+
				"(format TKT-1A2B3C4D). "+
				"Returns: status, the original issue, and the human response "+
				"when resolved.",
			tk.Status),
	}

	// web_search is optional: deployments without a search engine simply
	// don't get the tool, and the system prompt degrades gracefully.
	if deps.Web != nil {
		web, err := NewWeb(deps.Web, deps.Logger)
		if err != nil {
			return nil, fmt.Errorf("web handler: %w", err)
		}
		registered = append(registered, genkit.DefineTool(g, WebSearchName,
			"Search the public internet. Use only when the directory and the "+
				"knowledge base both came up empty and the question is about "+
				"something public. "+
				"Returns: result titles, URLs, and snippets; set fetchPage to "+
				"also get the readable text of the top hit.",
			web.Search))
	}

	deps.Logger.Info("tools registered", "count", len(registered))
	return registered, nil
}
