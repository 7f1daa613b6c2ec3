package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/firebase/genkit/go/plugins/postgresql"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/resolvo/resolvo/db"
	"github.com/resolvo/resolvo/internal/agent"
	"github.com/resolvo/resolvo/internal/config"
	"github.com/resolvo/resolvo/internal/directory"
	"github.com/resolvo/resolvo/internal/knowledge"
	"github.com/resolvo/resolvo/internal/observability"
	"github.com/resolvo/resolvo/internal/session"
	"github.com/resolvo/resolvo/internal/ticket"
	"github.com/resolvo/resolvo/internal/tools"
	"github.com/resolvo/resolvo/internal/websearch"
)

// Setup creates and initializes the application.
// Returns an App with embedded cleanup; call Close() to release.
func Setup(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, retErr error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Config: cfg, Logger: logger}

	// On error, clean up everything already initialized.
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	// Tracing first: Genkit's TracerProvider must be ready before Init.
	a.otelCleanup = provideOtelShutdown(ctx, cfg, logger)

	pool, dbCleanup, err := provideDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.dbCleanup = dbCleanup
	a.DBPool = pool

	postgres, err := providePostgresPlugin(ctx, pool, cfg)
	if err != nil {
		return nil, err
	}

	g, err := provideGenkit(ctx, postgres)
	if err != nil {
		return nil, err
	}
	a.Genkit = g

	embedder := googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
	if embedder == nil {
		return nil, fmt.Errorf("embedder %q not found", cfg.EmbedderModel)
	}
	a.Embedder = embedder

	docStore, retriever, err := provideRetrieval(ctx, g, postgres, embedder)
	if err != nil {
		return nil, err
	}
	a.DocStore = docStore
	a.Retriever = retriever

	a.Sessions = session.New(pool, logger)
	a.Tickets = ticket.New(pool, embedder, logger)

	picker := agent.NewFAQPicker(g, qualifiedModel(cfg.ModelName), logger)
	a.Directory = directory.New(pool, picker, logger)

	if err := provideIngestion(a); err != nil {
		return nil, err
	}

	if err := provideWebSearch(a); err != nil {
		return nil, err
	}

	if err := provideAgent(a); err != nil {
		return nil, err
	}

	return a, nil
}

// qualifiedModel prefixes the provider for Genkit model lookup.
func qualifiedModel(name string) string {
	return "googleai/" + name
}

// provideOtelShutdown sets up OTLP tracing when an agent host is configured.
func provideOtelShutdown(ctx context.Context, cfg *config.Config, logger *slog.Logger) func() {
	if cfg.Otel.AgentHost == "" {
		return func() {}
	}

	shutdown, err := observability.Setup(ctx, observability.Config{
		AgentHost:   cfg.Otel.AgentHost,
		ServiceName: cfg.Otel.ServiceName,
		Environment: cfg.Otel.Environment,
	}, logger)
	if err != nil {
		logger.Warn("tracing setup failed, continuing without", "error", err)
		return func() {}
	}

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Warn("shutting down tracer provider", "error", err)
		}
	}
}

// provideDBPool runs migrations and creates a PostgreSQL connection pool.
func provideDBPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, func(), error) {
	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return nil, nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresConnectionString())
	if err != nil {
		return nil, nil, fmt.Errorf("parsing connection config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, pool.Close, nil
}

// providePostgresPlugin wraps the pool for Genkit's DocStore and retriever.
func providePostgresPlugin(ctx context.Context, pool *pgxpool.Pool, cfg *config.Config) (*postgresql.Postgres, error) {
	engine, err := postgresql.NewPostgresEngine(ctx,
		postgresql.WithPool(pool),
		postgresql.WithDatabase(cfg.PostgresDBName),
	)
	if err != nil {
		return nil, fmt.Errorf("creating postgres engine: %w", err)
	}
	return &postgresql.Postgres{Engine: engine}, nil
}

// provideGenkit initializes Genkit with the Gemini and PostgreSQL plugins.
func provideGenkit(ctx context.Context, postgres *postgresql.Postgres) (*genkit.Genkit, error) {
	g := genkit.Init(ctx,
		genkit.WithPlugins(&googlegenai.GoogleAI{}, postgres),
	)
	if g == nil {
		return nil, errors.New("initializing genkit")
	}
	return g, nil
}

// provideRetrieval defines the Genkit PostgreSQL DocStore and retriever.
// DocStore is used for indexing, the retriever for semantic search.
func provideRetrieval(ctx context.Context, g *genkit.Genkit, postgres *postgresql.Postgres, embedder ai.Embedder) (*postgresql.DocStore, ai.Retriever, error) {
	cfg := knowledge.NewDocStoreConfig(embedder)
	docStore, retriever, err := postgresql.DefineRetriever(ctx, g, postgres, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("defining retriever: %w", err)
	}
	return docStore, retriever, nil
}

// provideIngestion creates the splitter, tracker, indexer, and crawler.
func provideIngestion(a *App) error {
	splitter, err := knowledge.NewSplitter(a.Config.ChunkSize, a.Config.ChunkOverlap)
	if err != nil {
		return fmt.Errorf("creating splitter: %w", err)
	}

	tracker := knowledge.NewTracker(a.DBPool)

	indexer, err := knowledge.NewIndexer(a.DocStore, tracker, a.DBPool, splitter, a.Logger)
	if err != nil {
		return fmt.Errorf("creating indexer: %w", err)
	}
	a.Indexer = indexer

	crawler, err := knowledge.NewCrawler(a.DocStore, a.DBPool, splitter, a.Logger)
	if err != nil {
		return fmt.Errorf("creating crawler: %w", err)
	}
	a.Crawler = crawler

	return nil
}

// provideWebSearch creates the search client when an engine is configured.
func provideWebSearch(a *App) error {
	cfg := a.Config.WebSearch
	if cfg.URL == "" {
		a.Logger.Info("web search disabled: no engine configured")
		return nil
	}

	client, err := websearch.New(websearch.Config{
		BaseURL:      cfg.URL,
		MaxResults:   cfg.MaxResults,
		MaxPageBytes: cfg.MaxPageBytes,
		Timeout:      time.Duration(cfg.TimeoutSecs) * time.Second,
	}, a.Logger)
	if err != nil {
		return fmt.Errorf("creating web search client: %w", err)
	}
	a.Web = client

	return nil
}

// provideAgent registers tools, builds the agent, and defines the flow.
func provideAgent(a *App) error {
	deps := tools.Deps{
		Directory: a.Directory,
		Retriever: a.Retriever,
		Tickets:   a.Tickets,
		Logger:    a.Logger,
	}
	if a.Web != nil {
		deps.Web = a.Web
	}

	registered, err := tools.Register(a.Genkit, deps)
	if err != nil {
		return fmt.Errorf("registering tools: %w", err)
	}
	a.Tools = registered

	ag, err := agent.New(agent.Config{
		Genkit:        a.Genkit,
		SessionStore:  a.Sessions,
		Logger:        a.Logger,
		Tools:         registered,
		Reuser:        a.Tickets,
		ModelName:     qualifiedModel(a.Config.ModelName),
		Temperature:   float64(a.Config.Temperature),
		MaxTurns:      a.Config.MaxTurns,
		HistoryWindow: a.Config.HistoryWindow,
	})
	if err != nil {
		return fmt.Errorf("creating agent: %w", err)
	}
	a.Agent = ag
	a.Flow = agent.NewFlow(a.Genkit, ag)

	return nil
}
