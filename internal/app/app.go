// Package app provides application initialization and dependency wiring.
//
// App is the container that holds every long-lived component: the database
// pool, Genkit, the retrieval stack, stores, tools, and the agent. Setup()
// builds it in dependency order; Close() tears it down in reverse.
package app

import (
	"context"
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/postgresql"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/resolvo/resolvo/internal/agent"
	"github.com/resolvo/resolvo/internal/config"
	"github.com/resolvo/resolvo/internal/directory"
	"github.com/resolvo/resolvo/internal/knowledge"
	"github.com/resolvo/resolvo/internal/session"
	"github.com/resolvo/resolvo/internal/ticket"
	"github.com/resolvo/resolvo/internal/websearch"
)

// App is the core application container.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	// Core services
	Genkit    *genkit.Genkit
	Embedder  ai.Embedder
	DBPool    *pgxpool.Pool
	DocStore  *postgresql.DocStore
	Retriever ai.Retriever

	// Domain stores
	Sessions  *session.Store
	Tickets   *ticket.Store
	Directory *directory.Store

	// Ingestion
	Indexer *knowledge.Indexer
	Crawler *knowledge.Crawler

	// Web search (nil when no engine is configured)
	Web *websearch.Client

	// Agent
	Tools []ai.Tool
	Agent *agent.Agent
	Flow  *agent.Flow

	// Teardown, reverse order of construction
	dbCleanup   func()
	otelCleanup func()
}

// Close gracefully shuts down all resources.
func (a *App) Close() error {
	a.Logger.Info("shutting down application")

	if a.dbCleanup != nil {
		a.dbCleanup()
		a.Logger.Info("database pool closed")
	}
	if a.otelCleanup != nil {
		a.otelCleanup()
	}

	return nil
}

// NewTitleGenerator exposes session title generation for the chat UI.
// Returns a function that produces a short title from the first message,
// or "" when generation fails.
func (a *App) NewTitleGenerator() func(ctx context.Context, userMessage string) string {
	return a.Agent.GenerateTitle
}
