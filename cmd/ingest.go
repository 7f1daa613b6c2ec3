package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/resolvo/resolvo/internal/app"
	"github.com/resolvo/resolvo/internal/knowledge"
)

var (
	ingestURL      string
	ingestMaxPages int
	ingestMaxDepth int
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [directory]",
	Short: "Ingest documents into the knowledge base",
	Long: `Ingests local documents (txt, md, html) or crawls a website into the
vector store. Without arguments, the configured documents directory is used.

Examples:
  resolvo ingest ./docs
  resolvo ingest --url https://docs.example.com --max-pages 100`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestURL, "url", "", "crawl a website instead of reading local files")
	ingestCmd.Flags().IntVar(&ingestMaxPages, "max-pages", knowledge.DefaultMaxPages, "maximum pages to crawl")
	ingestCmd.Flags().IntVar(&ingestMaxDepth, "max-depth", knowledge.DefaultMaxDepth, "maximum link depth to follow")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(_ *cobra.Command, args []string) error {
	return withApp(func(ctx context.Context, a *app.App) error {
		if ingestURL != "" {
			return runCrawl(ctx, a)
		}

		dir := a.Config.DocumentsDir
		if len(args) > 0 {
			dir = args[0]
		}

		result, err := a.Indexer.IndexDirectory(ctx, dir)
		if errors.Is(err, knowledge.ErrIngestLocked) {
			return fmt.Errorf("another ingestion is already running: %w", err)
		}
		if err != nil {
			return fmt.Errorf("ingesting %s: %w", dir, err)
		}

		fmt.Printf("Ingested %s in %s\n", dir, result.Duration.Round(time.Millisecond))
		fmt.Printf("  files added:   %d\n", result.FilesAdded)
		fmt.Printf("  files skipped: %d (unchanged)\n", result.FilesSkipped)
		fmt.Printf("  files failed:  %d\n", result.FilesFailed)
		fmt.Printf("  chunks:        %d\n", result.ChunksIndexed)

		return printStats(ctx, a)
	})
}

func runCrawl(ctx context.Context, a *app.App) error {
	result, err := a.Crawler.Crawl(ctx, ingestURL, ingestMaxPages, ingestMaxDepth)
	if err != nil {
		return fmt.Errorf("crawling %s: %w", ingestURL, err)
	}

	fmt.Printf("Crawled %s in %s\n", ingestURL, result.Duration.Round(time.Millisecond))
	fmt.Printf("  pages visited: %d\n", result.PagesVisited)
	fmt.Printf("  pages indexed: %d\n", result.PagesIndexed)
	fmt.Printf("  pages failed:  %d\n", result.PagesFailed)
	fmt.Printf("  chunks:        %d\n", result.ChunksIndexed)

	return printStats(ctx, a)
}

func printStats(ctx context.Context, a *app.App) error {
	stats, err := knowledge.Stats(ctx, a.DBPool)
	if err != nil {
		return fmt.Errorf("reading knowledge base stats: %w", err)
	}
	fmt.Println("Knowledge base:")
	for source, count := range stats {
		fmt.Printf("  %s chunks: %d\n", source, count)
	}
	return nil
}
